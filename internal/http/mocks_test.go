package http

import (
	"context"
	"sync"

	"github.com/fjod/artshop/internal/domain"
	"github.com/fjod/artshop/internal/repository"
	"github.com/fjod/artshop/internal/service"
)

// --- Mocks ---

type OrderServiceMock struct {
	mu sync.Mutex

	order  *domain.Order
	view   *domain.OrderView
	orders []*domain.Order
	sales  []domain.Sale
	stats  *domain.DashboardStats
	err    error

	createdWith  service.CreateOrderInput
	statusWith   domain.OrderStatus
	revisionWith *int64
	paymentWith  string
	limitWith    int
	principal    domain.Principal
}

func (m *OrderServiceMock) CreateOrder(_ context.Context, p domain.Principal, in service.CreateOrderInput) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.principal = p
	m.createdWith = in
	return m.order, m.err
}

func (m *OrderServiceMock) GetOrder(_ context.Context, p domain.Principal, _ string) (*domain.OrderView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.principal = p
	if m.err != nil {
		return nil, m.err
	}
	return m.view, nil
}

func (m *OrderServiceMock) ListMyOrders(_ context.Context, p domain.Principal) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.principal = p
	return m.orders, m.err
}

func (m *OrderServiceMock) ListOrders(context.Context) ([]*domain.Order, error) {
	return m.orders, m.err
}

func (m *OrderServiceMock) RecentSales(_ context.Context, limit int) ([]domain.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limitWith = limit
	return m.sales, m.err
}

func (m *OrderServiceMock) UpdateStatus(_ context.Context, _ string, status domain.OrderStatus, expected *int64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusWith = status
	m.revisionWith = expected
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

func (m *OrderServiceMock) AttachPaymentKey(_ context.Context, _ domain.Principal, _, key string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paymentWith = key
	return m.order, m.err
}

func (m *OrderServiceMock) Stats(context.Context) (*domain.DashboardStats, error) {
	return m.stats, m.err
}

type CartServiceMock struct {
	mu       sync.Mutex
	carts    map[string]*domain.Cart
	catalog  map[int64]domain.Artwork
	order    *domain.Order
	err      error
	sessions []string
}

func newCartServiceMock(artworks ...domain.Artwork) *CartServiceMock {
	m := &CartServiceMock{carts: map[string]*domain.Cart{}, catalog: map[int64]domain.Artwork{}}
	for _, a := range artworks {
		m.catalog[a.ID] = a
	}
	return m
}

func (m *CartServiceMock) cart(session string) *domain.Cart {
	m.sessions = append(m.sessions, session)
	c, ok := m.carts[session]
	if !ok {
		c = domain.NewCart()
		m.carts[session] = c
	}
	return c
}

func (m *CartServiceMock) Load(_ context.Context, session string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.cart(session), nil
}

func (m *CartServiceMock) AddItem(_ context.Context, session string, artworkID int64) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	a, ok := m.catalog[artworkID]
	if !ok {
		return nil, domain.NewNotFoundError("artwork not found", repository.ErrArtworkNotFound)
	}
	c := m.cart(session)
	c.AddItem(a.CartItem(1))
	return c, nil
}

func (m *CartServiceMock) RemoveItem(_ context.Context, session string, artworkID int64) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.cart(session)
	c.RemoveItem(artworkID)
	return c, m.err
}

func (m *CartServiceMock) SetQuantity(_ context.Context, session string, artworkID int64, quantity int) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if quantity > domain.MaxQuantity {
		return nil, domain.ErrQuantityTooLarge
	}
	c := m.cart(session)
	c.SetQuantity(artworkID, quantity)
	return c, m.err
}

func (m *CartServiceMock) Clear(_ context.Context, session string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, session)
	return domain.NewCart(), m.err
}

func (m *CartServiceMock) Checkout(_ context.Context, _ domain.Principal, session string, _ service.CheckoutInput) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.cart(session).IsEmpty() {
		return nil, domain.ErrNoItems
	}
	delete(m.carts, session)
	return m.order, nil
}

type AuthServiceMock struct {
	result *service.AuthResult
	user   *domain.User
	err    error
}

func (m AuthServiceMock) Signup(context.Context, string, string, string) (*service.AuthResult, error) {
	return m.result, m.err
}

func (m AuthServiceMock) Login(context.Context, string, string) (*service.AuthResult, error) {
	return m.result, m.err
}

func (m AuthServiceMock) Me(context.Context, domain.Principal) (*domain.User, error) {
	return m.user, m.err
}

type CatalogServiceMock struct {
	artworks []*domain.Artwork
	filter   repository.ArtworkFilter
	popular  []domain.PopularArtwork
	limit    int
	err      error
}

func (m *CatalogServiceMock) Popular(_ context.Context, limit int) ([]domain.PopularArtwork, error) {
	m.limit = limit
	return m.popular, m.err
}

func (m *CatalogServiceMock) List(_ context.Context, filter repository.ArtworkFilter) ([]*domain.Artwork, error) {
	m.filter = filter
	return m.artworks, m.err
}

func (m *CatalogServiceMock) Get(_ context.Context, id int64) (*domain.Artwork, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, a := range m.artworks {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, domain.NewNotFoundError("artwork not found", repository.ErrArtworkNotFound)
}
