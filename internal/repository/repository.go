package repository

import (
	"context"
	"errors"

	"github.com/fjod/artshop/internal/domain"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrRevisionConflict = errors.New("order was modified concurrently")
	ErrArtworkNotFound  = errors.New("artwork not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailTaken       = errors.New("email already registered")
)

// OrderRepository persists orders. Orders are never deleted.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// ListByUser returns the orders of userID, newest first.
	ListByUser(ctx context.Context, userID string) ([]*domain.Order, error)
	// List returns all orders newest first. A limit of zero means no limit.
	List(ctx context.Context, limit int64) ([]*domain.Order, error)
	// Update writes the mutable fields of order if its stored revision still
	// equals order.Revision, then advances order.Revision.
	Update(ctx context.Context, order *domain.Order) error
	// Totals returns the number of ordered line items and the sum of order totals.
	Totals(ctx context.Context) (lineItems int64, revenue int64, err error)
	// CountByArtwork maps each of ids to the number of orders containing it.
	// Artworks never ordered are absent.
	CountByArtwork(ctx context.Context, ids []int64) (map[int64]int64, error)
}

// ArtworkRepository is the read-only catalog.
type ArtworkRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Artwork, error)
	// GetByIDs returns the artworks found for ids keyed by id. Missing ids are absent.
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Artwork, error)
	List(ctx context.Context, filter ArtworkFilter) ([]*domain.Artwork, error)
	// MostViewed returns up to limit artworks by views descending, ties by id.
	MostViewed(ctx context.Context, limit int64) ([]*domain.Artwork, error)
	Count(ctx context.Context) (int64, error)
}

type ArtworkFilter struct {
	Category      string
	AvailableOnly bool
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// NamesByIDs maps user ids to display names. Unknown ids are absent.
	NamesByIDs(ctx context.Context, ids []string) (map[string]string, error)
	Count(ctx context.Context) (int64, error)
}

// EventRepository is the status event outbox.
type EventRepository interface {
	Append(ctx context.Context, event *domain.StatusEvent) error
	GetUnpublished(ctx context.Context, limit int64) ([]*domain.StatusEvent, error)
	MarkPublished(ctx context.Context, id string) error
}
