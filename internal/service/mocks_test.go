package service

import (
	"context"
	"sort"
	"sync"

	"github.com/fjod/artshop/internal/cache"
	"github.com/fjod/artshop/internal/domain"
	"github.com/fjod/artshop/internal/repository"
)

type mockOrderRepository struct {
	m      sync.RWMutex
	orders map[string]*domain.Order
	err    error
	// conflicts makes the next N updates fail with ErrRevisionConflict.
	conflicts int
	creates   int
	updates   int
	gets      int
	// afterGet runs once after the next GetByID returns its copy.
	afterGet func()
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{orders: map[string]*domain.Order{}}
}

func (m *mockOrderRepository) Create(_ context.Context, order *domain.Order) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.creates++
	m.orders[order.ID] = order.Clone()
	return nil
}

func (m *mockOrderRepository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	order, hook, err := m.getByID(id)
	if hook != nil {
		hook()
	}
	return order, err
}

func (m *mockOrderRepository) getByID(id string) (*domain.Order, func(), error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.gets++
	hook := m.afterGet
	m.afterGet = nil
	if m.err != nil {
		return nil, hook, m.err
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, hook, repository.ErrOrderNotFound
	}
	return o.Clone(), hook, nil
}

func (m *mockOrderRepository) ListByUser(_ context.Context, userID string) ([]*domain.Order, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*domain.Order
	for _, o := range m.sorted() {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrderRepository) List(_ context.Context, limit int64) ([]*domain.Order, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	out := m.sorted()
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockOrderRepository) sorted() []*domain.Order {
	out := make([]*domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *mockOrderRepository) Update(_ context.Context, order *domain.Order) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.updates++
	if m.err != nil {
		return m.err
	}
	stored, ok := m.orders[order.ID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if m.conflicts > 0 {
		m.conflicts--
		stored.Revision++
		return repository.ErrRevisionConflict
	}
	if stored.Revision != order.Revision {
		return repository.ErrRevisionConflict
	}
	order.Revision++
	m.orders[order.ID] = order.Clone()
	return nil
}

func (m *mockOrderRepository) Totals(context.Context) (int64, int64, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return 0, 0, m.err
	}
	var lines, revenue int64
	for _, o := range m.orders {
		lines += int64(len(o.Items))
		revenue += o.Total
	}
	return lines, revenue, nil
}

func (m *mockOrderRepository) CountByArtwork(_ context.Context, ids []int64) (map[int64]int64, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	out := map[int64]int64{}
	for _, id := range ids {
		for _, o := range m.orders {
			for _, item := range o.Items {
				if item.ID == id {
					out[id]++
					break
				}
			}
		}
	}
	return out, nil
}

func (m *mockOrderRepository) get(id string) *domain.Order {
	m.m.RLock()
	defer m.m.RUnlock()
	if o, ok := m.orders[id]; ok {
		return o.Clone()
	}
	return nil
}

func (m *mockOrderRepository) count() int {
	m.m.RLock()
	defer m.m.RUnlock()
	return len(m.orders)
}

type mockArtworkRepository struct {
	m        sync.RWMutex
	artworks map[int64]*domain.Artwork
	err      error
}

func newMockArtworkRepository(artworks ...*domain.Artwork) *mockArtworkRepository {
	m := &mockArtworkRepository{artworks: map[int64]*domain.Artwork{}}
	for _, a := range artworks {
		m.artworks[a.ID] = a
	}
	return m
}

func (m *mockArtworkRepository) GetByID(_ context.Context, id int64) (*domain.Artwork, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	a, ok := m.artworks[id]
	if !ok {
		return nil, repository.ErrArtworkNotFound
	}
	c := *a
	return &c, nil
}

func (m *mockArtworkRepository) GetByIDs(_ context.Context, ids []int64) (map[int64]*domain.Artwork, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	out := map[int64]*domain.Artwork{}
	for _, id := range ids {
		if a, ok := m.artworks[id]; ok {
			c := *a
			out[id] = &c
		}
	}
	return out, nil
}

func (m *mockArtworkRepository) List(_ context.Context, filter repository.ArtworkFilter) ([]*domain.Artwork, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []*domain.Artwork{}
	for _, a := range m.artworks {
		if filter.AvailableOnly && !a.Available {
			continue
		}
		if filter.Category != "" && a.Category != filter.Category {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockArtworkRepository) MostViewed(_ context.Context, limit int64) ([]*domain.Artwork, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*domain.Artwork, 0, len(m.artworks))
	for _, a := range m.artworks {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Views != out[j].Views {
			return out[i].Views > out[j].Views
		}
		return out[i].ID < out[j].ID
	})
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockArtworkRepository) Count(context.Context) (int64, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	return int64(len(m.artworks)), m.err
}

func (m *mockArtworkRepository) setPrice(id, price int64) {
	m.m.Lock()
	defer m.m.Unlock()
	m.artworks[id].Price = price
}

type mockUserRepository struct {
	m     sync.RWMutex
	users map[string]*domain.User
	err   error
}

func newMockUserRepository(users ...*domain.User) *mockUserRepository {
	m := &mockUserRepository{users: map[string]*domain.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepository) Create(_ context.Context, user *domain.User) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	c := *user
	m.users[user.ID] = &c
	return nil
}

func (m *mockUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (m *mockUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) NamesByIDs(_ context.Context, ids []string) (map[string]string, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	out := map[string]string{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out[id] = u.Name
		}
	}
	return out, nil
}

func (m *mockUserRepository) Count(context.Context) (int64, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	return int64(len(m.users)), m.err
}

type mockEventRepository struct {
	m      sync.RWMutex
	events []*domain.StatusEvent
	err    error
}

func (m *mockEventRepository) Append(_ context.Context, event *domain.StatusEvent) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockEventRepository) GetUnpublished(context.Context, int64) ([]*domain.StatusEvent, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.events, m.err
}

func (m *mockEventRepository) MarkPublished(context.Context, string) error {
	return nil
}

func (m *mockEventRepository) all() []*domain.StatusEvent {
	m.m.RLock()
	defer m.m.RUnlock()
	out := make([]*domain.StatusEvent, len(m.events))
	copy(out, m.events)
	return out
}

type mockOrderCache struct {
	m      sync.RWMutex
	orders map[string]*domain.Order
	err    error
}

func newMockOrderCache() *mockOrderCache {
	return &mockOrderCache{orders: map[string]*domain.Order{}}
}

func (m *mockOrderCache) Get(_ context.Context, id string) (*domain.Order, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return o.Clone(), nil
}

func (m *mockOrderCache) Set(_ context.Context, order *domain.Order) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if cur, ok := m.orders[order.ID]; ok && cur.Revision > order.Revision {
		return nil
	}
	m.orders[order.ID] = order.Clone()
	return nil
}

func (m *mockOrderCache) Delete(_ context.Context, id string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.orders, id)
	return m.err
}

func (m *mockOrderCache) get(id string) *domain.Order {
	m.m.RLock()
	defer m.m.RUnlock()
	if o, ok := m.orders[id]; ok {
		return o.Clone()
	}
	return nil
}

func (m *mockOrderCache) has(id string) bool {
	m.m.RLock()
	defer m.m.RUnlock()
	_, ok := m.orders[id]
	return ok
}

type mockIdempotencyStore struct {
	m      sync.RWMutex
	locks  map[string]bool
	values map[string]string
	err    error
}

func newMockIdempotencyStore() *mockIdempotencyStore {
	return &mockIdempotencyStore{locks: map[string]bool{}, values: map[string]string{}}
}

func (m *mockIdempotencyStore) TryLock(_ context.Context, scope, key string) (bool, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.locks[scope+":"+key] {
		return false, nil
	}
	m.locks[scope+":"+key] = true
	return true, nil
}

func (m *mockIdempotencyStore) Release(_ context.Context, scope, key string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.locks, scope+":"+key)
	return nil
}

func (m *mockIdempotencyStore) Remember(_ context.Context, scope, key, value string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.values[scope+":"+key] = value
	return nil
}

func (m *mockIdempotencyStore) Recall(_ context.Context, scope, key string) (string, bool, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[scope+":"+key]
	return v, ok, nil
}

type mockPayments struct {
	m     sync.RWMutex
	info  *domain.PaymentInfo
	err   error
	calls int
}

func (m *mockPayments) GetPaymentInfo(_ context.Context, key string) (*domain.PaymentInfo, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	info := *m.info
	info.PaymentKey = key
	return &info, nil
}

type mockCartStore struct {
	m       sync.RWMutex
	carts   map[string][]byte
	err     error
	saveErr error
	deletes int
}

func newMockCartStore() *mockCartStore {
	return &mockCartStore{carts: map[string][]byte{}}
}

func (m *mockCartStore) Load(_ context.Context, session string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	data, ok := m.carts[session]
	if !ok {
		return domain.NewCart(), nil
	}
	c, err := domain.DecodeCart(data)
	if err != nil {
		return c, cache.ErrMalformedCart
	}
	return c, nil
}

func (m *mockCartStore) Save(_ context.Context, session string, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	data, err := domain.EncodeCart(cart)
	if err != nil {
		return err
	}
	m.carts[session] = data
	return nil
}

func (m *mockCartStore) Delete(_ context.Context, session string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.deletes++
	delete(m.carts, session)
	return nil
}

func (m *mockCartStore) raw(session string, data string) {
	m.m.Lock()
	defer m.m.Unlock()
	m.carts[session] = []byte(data)
}

func (m *mockCartStore) exists(session string) bool {
	m.m.RLock()
	defer m.m.RUnlock()
	_, ok := m.carts[session]
	return ok
}

// mockTxRunner restores the order and event mocks when fn fails.
type mockTxRunner struct {
	orders *mockOrderRepository
	events *mockEventRepository
	runs   int
}

func (m *mockTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.runs++

	m.orders.m.Lock()
	orders := make(map[string]*domain.Order, len(m.orders.orders))
	for id, o := range m.orders.orders {
		orders[id] = o.Clone()
	}
	m.orders.m.Unlock()
	m.events.m.Lock()
	events := append([]*domain.StatusEvent(nil), m.events.events...)
	m.events.m.Unlock()

	if err := fn(ctx); err != nil {
		m.orders.m.Lock()
		m.orders.orders = orders
		m.orders.m.Unlock()
		m.events.m.Lock()
		m.events.events = events
		m.events.m.Unlock()
		return err
	}
	return nil
}
