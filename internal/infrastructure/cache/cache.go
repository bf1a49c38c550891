package cache

import (
	"context"
	"errors"

	"bakery-backend/internal/domain"
)

// CatalogCache holds the storefront's product and category listings.
type CatalogCache interface {
	GetProducts(ctx context.Context, key string) ([]domain.Product, error)
	SetProducts(ctx context.Context, key string, products []domain.Product) error
	GetCategories(ctx context.Context) ([]domain.Category, error)
	SetCategories(ctx context.Context, categories []domain.Category) error
	// Invalidate drops every cached listing, called after catalog mutations.
	Invalidate(ctx context.Context) error
}

var ErrCacheMiss = errors.New("cache miss")

// Noop satisfies CatalogCache when no redis is configured; every read misses.
type Noop struct{}

func (Noop) GetProducts(context.Context, string) ([]domain.Product, error) {
	return nil, ErrCacheMiss
}
func (Noop) SetProducts(context.Context, string, []domain.Product) error { return nil }
func (Noop) GetCategories(context.Context) ([]domain.Category, error) {
	return nil, ErrCacheMiss
}
func (Noop) SetCategories(context.Context, []domain.Category) error { return nil }
func (Noop) Invalidate(context.Context) error                       { return nil }
