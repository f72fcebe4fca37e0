package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/artshop/internal/domain"
	"github.com/fjod/artshop/internal/service"
)

type AuthService interface {
	Signup(ctx context.Context, name, email, password string) (*service.AuthResult, error)
	Login(ctx context.Context, email, password string) (*service.AuthResult, error)
	Me(ctx context.Context, p domain.Principal) (*domain.User, error)
}

type AuthHandler struct {
	auth    AuthService
	timeout time.Duration
}

func NewAuthHandler(auth AuthService, timeout time.Duration) *AuthHandler {
	return &AuthHandler{auth: auth, timeout: timeout}
}

type SignupRequestDTO struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SignupRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.auth.Signup(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req LoginRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := principalFrom(r.Context())
	if !ok {
		unauth(w, "missing user authentication")
		return
	}

	user, err := h.auth.Me(ctx, p)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}
