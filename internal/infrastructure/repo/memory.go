package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"bakery-backend/internal/domain"
)

func nowUTC() time.Time { return time.Now().UTC() }

// In-memory repositories, used by the tests and the "memory" driver. They
// honor the same error contract as the Mongo and Postgres implementations,
// including the conditional status update.

type MemoryOrderRepo struct {
	mu sync.RWMutex
	m  map[primitive.ObjectID]*domain.Order
}

func NewMemoryOrderRepo() *MemoryOrderRepo {
	return &MemoryOrderRepo{m: make(map[primitive.ObjectID]*domain.Order)}
}

func (r *MemoryOrderRepo) Insert(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	cp := *o
	r.m[o.ID] = &cp
	return nil
}

func (r *MemoryOrderRepo) Get(_ context.Context, id primitive.ObjectID) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.m[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *MemoryOrderRepo) ListByUser(_ context.Context, userID primitive.ObjectID) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.Order{}
	for _, o := range r.m {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *MemoryOrderRepo) List(_ context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.Order{}
	for _, o := range r.m {
		if status == "" || o.Status == status {
			out = append(out, *o)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *MemoryOrderRepo) UpdateStatus(_ context.Context, id primitive.ObjectID, expect domain.OrderStatus, upd domain.StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.m[id]
	if !ok {
		return domain.ErrNotFound
	}
	if o.Status != expect {
		return domain.ErrConflict
	}
	upd.Apply(o, nowUTC())
	return nil
}

func (r *MemoryOrderRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.m, id)
	return nil
}

func (r *MemoryOrderRepo) Stats(_ context.Context) (*domain.OrderStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := &domain.OrderStats{}
	for _, o := range r.m {
		stats.TotalOrders++
		switch o.Status {
		case domain.OrderPending:
			stats.PendingOrders++
		case domain.OrderDelivered:
			stats.DeliveredOrders++
		case domain.OrderCancelled:
			stats.CancelledOrders++
		}
		if o.Status != domain.OrderCancelled {
			stats.TotalRevenue += o.TotalPrice
		}
	}
	return stats, nil
}

func sortNewestFirst(orders []domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

type MemoryUserRepo struct {
	mu sync.RWMutex
	m  map[primitive.ObjectID]*domain.User
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{m: make(map[primitive.ObjectID]*domain.User)}
}

func (r *MemoryUserRepo) Insert(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.m {
		if existing.Email == u.Email {
			return domain.ErrDuplicate
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	cp := *u
	r.m[u.ID] = &cp
	return nil
}

func (r *MemoryUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.m[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.m {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MemoryUserRepo) Update(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[u.ID]; !ok {
		return domain.ErrNotFound
	}
	for id, existing := range r.m {
		if id != u.ID && existing.Email == u.Email {
			return domain.ErrDuplicate
		}
	}
	cp := *u
	r.m[u.ID] = &cp
	return nil
}

func (r *MemoryUserRepo) List(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.User{}
	for _, u := range r.m {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type MemoryCategoryRepo struct {
	mu sync.RWMutex
	m  map[primitive.ObjectID]*domain.Category
}

func NewMemoryCategoryRepo() *MemoryCategoryRepo {
	return &MemoryCategoryRepo{m: make(map[primitive.ObjectID]*domain.Category)}
}

func (r *MemoryCategoryRepo) Insert(_ context.Context, c *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.m {
		if existing.Name == c.Name {
			return domain.ErrDuplicate
		}
	}
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	cp := *c
	r.m[c.ID] = &cp
	return nil
}

func (r *MemoryCategoryRepo) Get(_ context.Context, id primitive.ObjectID) (*domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.m[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryCategoryRepo) List(_ context.Context) ([]domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.Category{}
	for _, c := range r.m {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryCategoryRepo) Update(_ context.Context, c *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[c.ID]; !ok {
		return domain.ErrNotFound
	}
	for id, existing := range r.m {
		if id != c.ID && existing.Name == c.Name {
			return domain.ErrDuplicate
		}
	}
	cp := *c
	r.m[c.ID] = &cp
	return nil
}

func (r *MemoryCategoryRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.m, id)
	return nil
}

type MemoryProductRepo struct {
	mu sync.RWMutex
	m  map[primitive.ObjectID]*domain.Product
}

func NewMemoryProductRepo() *MemoryProductRepo {
	return &MemoryProductRepo{m: make(map[primitive.ObjectID]*domain.Product)}
}

func (r *MemoryProductRepo) Insert(_ context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	cp := *p
	r.m[p.ID] = &cp
	return nil
}

func (r *MemoryProductRepo) Get(_ context.Context, id primitive.ObjectID) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.m[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryProductRepo) List(_ context.Context, categoryID primitive.ObjectID) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.Product{}
	for _, p := range r.m {
		if categoryID.IsZero() || p.CategoryID == categoryID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryProductRepo) Update(_ context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[p.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *p
	r.m[p.ID] = &cp
	return nil
}

func (r *MemoryProductRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.m, id)
	return nil
}
