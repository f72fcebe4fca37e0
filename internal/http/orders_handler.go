package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/artshop/internal/domain"
	"github.com/fjod/artshop/internal/service"
	"github.com/go-chi/chi/v5"
)

const idempotencyHeader = "X-Idempotency-Key"

type OrderService interface {
	CreateOrder(ctx context.Context, p domain.Principal, in service.CreateOrderInput) (*domain.Order, error)
	GetOrder(ctx context.Context, p domain.Principal, id string) (*domain.OrderView, error)
	ListMyOrders(ctx context.Context, p domain.Principal) ([]*domain.Order, error)
	ListOrders(ctx context.Context) ([]*domain.Order, error)
	RecentSales(ctx context.Context, limit int) ([]domain.Sale, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, expectedRevision *int64) (*domain.Order, error)
	AttachPaymentKey(ctx context.Context, p domain.Principal, id, key string) (*domain.Order, error)
	Stats(ctx context.Context) (*domain.DashboardStats, error)
}

type OrdersHandler struct {
	orders      OrderService
	timeout     time.Duration
	recentLimit int
}

func NewOrdersHandler(orders OrderService, timeout time.Duration, recentLimit int) *OrdersHandler {
	return &OrdersHandler{
		orders:      orders,
		timeout:     timeout,
		recentLimit: recentLimit,
	}
}

type CreateOrderRequestDTO struct {
	Items           []domain.Line          `json:"items"`
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   domain.PaymentMethod   `json:"paymentMethod"`
}

type UpdateStatusRequestDTO struct {
	Status   domain.OrderStatus `json:"status"`
	Revision *int64             `json:"revision,omitempty"`
}

type AttachPaymentRequestDTO struct {
	PaymentKey string `json:"paymentKey"`
}

// POST /api/orders
func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := principalFrom(r.Context())
	if !ok {
		unauth(w, "missing user authentication")
		return
	}

	var req CreateOrderRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.orders.CreateOrder(ctx, p, service.CreateOrderInput{
		Lines:           req.Items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		IdempotencyKey:  r.Header.Get(idempotencyHeader),
	})
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

// GET /api/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.orders.ListOrders(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newList(orders))
}

// GET /api/orders/myorders
func (h *OrdersHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := principalFrom(r.Context())
	if !ok {
		unauth(w, "missing user authentication")
		return
	}

	orders, err := h.orders.ListMyOrders(ctx, p)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newList(orders))
}

// GET /api/orders/recent?limit=N
func (h *OrdersHandler) RecentSales(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit := h.recentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, domain.KindValidation.String(), "limit must be a positive integer")
			return
		}
		limit = n
	}

	sales, err := h.orders.RecentSales(ctx, limit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newList(sales))
}

// GET /api/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := principalFrom(r.Context())
	if !ok {
		unauth(w, "missing user authentication")
		return
	}

	view, err := h.orders.GetOrder(ctx, p, chi.URLParam(r, "order_id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	w.Header().Set("ETag", formatRevision(view.Order.Revision))
	respondJSON(w, http.StatusOK, view)
}

// PUT /api/orders/{order_id}
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateStatusRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	expected := req.Revision
	if match := r.Header.Get("If-Match"); match != "" {
		rev, err := parseRevision(match)
		if err != nil {
			respondError(w, http.StatusBadRequest, domain.KindValidation.String(), "If-Match must carry an order revision")
			return
		}
		expected = &rev
	}

	order, err := h.orders.UpdateStatus(ctx, chi.URLParam(r, "order_id"), req.Status, expected)
	if err != nil {
		handleError(w, r, err)
		return
	}
	w.Header().Set("ETag", formatRevision(order.Revision))
	respondJSON(w, http.StatusOK, order)
}

// PUT /api/orders/{order_id}/payment
func (h *OrdersHandler) AttachPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := principalFrom(r.Context())
	if !ok {
		unauth(w, "missing user authentication")
		return
	}

	var req AttachPaymentRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.orders.AttachPaymentKey(ctx, p, chi.URLParam(r, "order_id"), req.PaymentKey)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// GET /api/dashboard/stats
func (h *OrdersHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	stats, err := h.orders.Stats(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// parseRevision accepts 3, "3" and W/"3".
func parseRevision(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "W/")
	raw = strings.Trim(raw, `"`)
	return strconv.ParseInt(raw, 10, 64)
}

func formatRevision(rev int64) string {
	return `"` + strconv.FormatInt(rev, 10) + `"`
}
