package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/artshop/internal/domain"
	"github.com/fjod/artshop/internal/repository"
)

type CatalogService interface {
	List(ctx context.Context, filter repository.ArtworkFilter) ([]*domain.Artwork, error)
	Get(ctx context.Context, id int64) (*domain.Artwork, error)
	Popular(ctx context.Context, limit int) ([]domain.PopularArtwork, error)
}

type ArtworkHandler struct {
	catalog CatalogService
	timeout time.Duration
}

func NewArtworkHandler(catalog CatalogService, timeout time.Duration) *ArtworkHandler {
	return &ArtworkHandler{catalog: catalog, timeout: timeout}
}

// GET /api/artworks?category=&available=true
func (h *ArtworkHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	filter := repository.ArtworkFilter{Category: q.Get("category")}
	if raw := q.Get("available"); raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, domain.KindValidation.String(), "available must be a boolean")
			return
		}
		filter.AvailableOnly = available
	}

	artworks, err := h.catalog.List(ctx, filter)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newList(artworks))
}

// GET /api/artworks/popular?limit=5
func (h *ArtworkHandler) Popular(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, domain.KindValidation.String(), "limit must be a positive integer")
			return
		}
		limit = n
	}

	popular, err := h.catalog.Popular(ctx, limit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newList(popular))
}

// GET /api/artworks/{artwork_id}
func (h *ArtworkHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := artworkParam(w, r)
	if !ok {
		return
	}

	artwork, err := h.catalog.Get(ctx, id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, artwork)
}
