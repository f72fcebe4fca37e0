package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fjod/artshop/internal/domain"
	"github.com/fjod/artshop/pkg/circuitbreaker"
)

type TossConfig struct {
	BaseURL          string
	SecretKey        string
	Timeout          time.Duration
	BreakerFailures  uint32
	BreakerOpenSleep time.Duration
	OnStateChange    func(name, from, to string)
}

// TossClient reads payments from the Toss Payments API.
type TossClient struct {
	baseURL string
	secret  string
	http    *http.Client
	breaker *circuitbreaker.Breaker[*domain.PaymentInfo]
}

func NewTossClient(cfg TossConfig) *TossClient {
	return &TossClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		secret:  cfg.SecretKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: circuitbreaker.New[*domain.PaymentInfo](circuitbreaker.Settings{
			Name:          "toss-payments",
			MaxFailures:   cfg.BreakerFailures,
			OpenTimeout:   cfg.BreakerOpenSleep,
			IsSuccessful:  func(err error) bool { return errors.Is(err, ErrPaymentNotFound) },
			OnStateChange: cfg.OnStateChange,
		}),
	}
}

type tossPayment struct {
	PaymentKey    string     `json:"paymentKey"`
	Method        string     `json:"method"`
	TotalAmount   int64      `json:"totalAmount"`
	BalanceAmount int64      `json:"balanceAmount"`
	Status        string     `json:"status"`
	RequestedAt   time.Time  `json:"requestedAt"`
	ApprovedAt    *time.Time `json:"approvedAt"`
	Card          *struct {
		Company               string `json:"company"`
		IssuerCode            string `json:"issuerCode"`
		Number                string `json:"number"`
		InstallmentPlanMonths int    `json:"installmentPlanMonths"`
	} `json:"card"`
}

type tossError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *TossClient) GetPaymentInfo(ctx context.Context, paymentKey string) (*domain.PaymentInfo, error) {
	info, err := c.breaker.Execute(func() (*domain.PaymentInfo, error) {
		return c.fetch(ctx, paymentKey)
	})
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			return nil, domain.NewNotFoundError("payment not found", err)
		}
		return nil, domain.NewUpstreamError("payment lookup failed", err)
	}
	return info, nil
}

func (c *TossClient) fetch(ctx context.Context, paymentKey string) (*domain.PaymentInfo, error) {
	endpoint := fmt.Sprintf("%s/v1/payments/%s", c.baseURL, url.PathEscape(paymentKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.secret, "")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request payment: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read payment response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrPaymentNotFound
	}
	if resp.StatusCode != http.StatusOK {
		var te tossError
		_ = json.Unmarshal(body, &te)
		return nil, fmt.Errorf("payment provider returned %d %s: %s", resp.StatusCode, te.Code, te.Message)
	}

	var p tossPayment
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode payment: %w", err)
	}

	info := &domain.PaymentInfo{
		PaymentKey:    p.PaymentKey,
		Method:        p.Method,
		TotalAmount:   p.TotalAmount,
		BalanceAmount: p.BalanceAmount,
		Status:        p.Status,
		RequestedAt:   p.RequestedAt,
		ApprovedAt:    p.ApprovedAt,
	}
	if p.Card != nil {
		company := p.Card.Company
		if company == "" {
			company = p.Card.IssuerCode
		}
		info.Card = &domain.CardInfo{
			Company:               company,
			Number:                p.Card.Number,
			InstallmentPlanMonths: p.Card.InstallmentPlanMonths,
		}
	}
	return info, nil
}
