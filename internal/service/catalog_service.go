package service

import (
	"context"

	"github.com/fjod/artshop/internal/domain"
	"github.com/fjod/artshop/internal/repository"
)

const (
	DefaultPopularLimit = 5
	MaxPopularLimit     = 50
)

// CatalogService exposes the read-only artwork catalog.
type CatalogService struct {
	artworks repository.ArtworkRepository
	orders   repository.OrderRepository
}

func NewCatalogService(artworks repository.ArtworkRepository, orders repository.OrderRepository) *CatalogService {
	return &CatalogService{artworks: artworks, orders: orders}
}

func (s *CatalogService) List(ctx context.Context, filter repository.ArtworkFilter) ([]*domain.Artwork, error) {
	artworks, err := s.artworks.List(ctx, filter)
	if err != nil {
		return nil, translate(err, "failed to list artworks")
	}
	return artworks, nil
}

func (s *CatalogService) Get(ctx context.Context, id int64) (*domain.Artwork, error) {
	artwork, err := s.artworks.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to load artwork")
	}
	return artwork, nil
}

// Popular ranks artworks by views and counts the orders containing each.
// A limit below one means DefaultPopularLimit; larger limits are capped at
// MaxPopularLimit.
func (s *CatalogService) Popular(ctx context.Context, limit int) ([]domain.PopularArtwork, error) {
	if limit < 1 {
		limit = DefaultPopularLimit
	}
	limit = min(limit, MaxPopularLimit)

	artworks, err := s.artworks.MostViewed(ctx, int64(limit))
	if err != nil {
		return nil, translate(err, "failed to load popular artworks")
	}
	ids := make([]int64, 0, len(artworks))
	for _, a := range artworks {
		ids = append(ids, a.ID)
	}
	sales, err := s.orders.CountByArtwork(ctx, ids)
	if err != nil {
		return nil, translate(err, "failed to count artwork sales")
	}

	out := make([]domain.PopularArtwork, 0, len(artworks))
	for _, a := range artworks {
		out = append(out, domain.PopularArtwork{
			ID:    a.ID,
			Title: a.Title,
			Year:  a.Year,
			Views: a.Views,
			Sales: sales[a.ID],
		})
	}
	return out, nil
}
