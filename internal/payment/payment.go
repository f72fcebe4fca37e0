package payment

import (
	"context"
	"errors"

	"github.com/fjod/artshop/internal/domain"
)

// InfoProvider looks up payments at the external payment provider.
type InfoProvider interface {
	GetPaymentInfo(ctx context.Context, paymentKey string) (*domain.PaymentInfo, error)
}

var (
	ErrNotConfigured   = errors.New("payment provider not configured")
	ErrPaymentNotFound = errors.New("payment not found")
)

// NoopProvider is used when no provider secret is configured.
type NoopProvider struct{}

func (NoopProvider) GetPaymentInfo(context.Context, string) (*domain.PaymentInfo, error) {
	return nil, ErrNotConfigured
}
