package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/artshop/internal/domain"
	"github.com/fjod/artshop/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	cartCookie        = "cart_session"
	cartSessionHeader = "X-Cart-Session"
)

type CartService interface {
	Load(ctx context.Context, sessionID string) (*domain.Cart, error)
	AddItem(ctx context.Context, sessionID string, artworkID int64) (*domain.Cart, error)
	RemoveItem(ctx context.Context, sessionID string, artworkID int64) (*domain.Cart, error)
	SetQuantity(ctx context.Context, sessionID string, artworkID int64, quantity int) (*domain.Cart, error)
	Clear(ctx context.Context, sessionID string) (*domain.Cart, error)
	Checkout(ctx context.Context, p domain.Principal, sessionID string, in service.CheckoutInput) (*domain.Order, error)
}

type CartHandler struct {
	carts         CartService
	timeout       time.Duration
	sessionTTL    time.Duration
	secureCookies bool
}

func NewCartHandler(carts CartService, timeout, sessionTTL time.Duration, secureCookies bool) *CartHandler {
	return &CartHandler{
		carts:         carts,
		timeout:       timeout,
		sessionTTL:    sessionTTL,
		secureCookies: secureCookies,
	}
}

type AddItemRequestDTO struct {
	ArtworkID int64 `json:"artwork"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CheckoutRequestDTO struct {
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   domain.PaymentMethod   `json:"paymentMethod"`
}

// session returns the cart session of the request, issuing a new one as a
// cookie when the client has none. Both forms are echoed back.
func (h *CartHandler) session(w http.ResponseWriter, r *http.Request) string {
	id := r.Header.Get(cartSessionHeader)
	if id == "" {
		if c, err := r.Cookie(cartCookie); err == nil {
			id = c.Value
		}
	}
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cartCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set(cartSessionHeader, id)
	return id
}

func artworkParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "artwork_id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, domain.KindValidation.String(), "artwork id must be a positive integer")
		return 0, false
	}
	return id, true
}

// GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.Load(ctx, h.session(w, r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

// POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ArtworkID <= 0 {
		respondError(w, http.StatusBadRequest, domain.KindValidation.String(), "artwork must be a positive id")
		return
	}

	cart, err := h.carts.AddItem(ctx, h.session(w, r), req.ArtworkID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, cart)
}

// PUT /api/cart/items/{artwork_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	artworkID, ok := artworkParam(w, r)
	if !ok {
		return
	}
	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	cart, err := h.carts.SetQuantity(ctx, h.session(w, r), artworkID, req.Quantity)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

// DELETE /api/cart/items/{artwork_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	artworkID, ok := artworkParam(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.RemoveItem(ctx, h.session(w, r), artworkID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

// DELETE /api/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.Clear(ctx, h.session(w, r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

// POST /api/cart/checkout
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := principalFrom(r.Context())
	if !ok {
		unauth(w, "missing user authentication")
		return
	}

	var req CheckoutRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.carts.Checkout(ctx, p, h.session(w, r), service.CheckoutInput{
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
