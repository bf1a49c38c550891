package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/singleflight"

	"bakery-backend/internal/domain"
	"bakery-backend/internal/infrastructure/cache"
	"bakery-backend/internal/metrics"
)

type CategoryRepo interface {
	Insert(ctx context.Context, c *domain.Category) error
	Get(ctx context.Context, id primitive.ObjectID) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
	Update(ctx context.Context, c *domain.Category) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type ProductRepo interface {
	Insert(ctx context.Context, p *domain.Product) error
	Get(ctx context.Context, id primitive.ObjectID) (*domain.Product, error)
	// List returns all products, optionally restricted to a category
	// (zero ObjectID means no filter).
	List(ctx context.Context, categoryID primitive.ObjectID) ([]domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// CatalogService serves the storefront's read-heavy product and category
// listings through a cache, and the back office's CRUD, which invalidates it.
type CatalogService struct {
	Categories CategoryRepo
	Products   ProductRepo
	Cache      cache.CatalogCache
	sfg        singleflight.Group
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	v, err, _ := s.sfg.Do("categories", func() (any, error) {
		cached, err := s.Cache.GetCategories(ctx)
		if err == nil {
			metrics.CacheHits.WithLabelValues("hit").Inc()
			return cached, nil
		}
		metrics.CacheHits.WithLabelValues("miss").Inc()
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.WithError(err).Warn("category cache get failed")
		}
		cats, err := s.Categories.List(ctx)
		if err != nil {
			return nil, err
		}
		go func() {
			if err := s.Cache.SetCategories(context.Background(), cats); err != nil {
				log.WithError(err).Warn("category cache set failed")
			}
		}()
		return cats, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Category), nil
}

type CategoryInput struct {
	Name  string
	Image string
}

func (s *CatalogService) AddCategory(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrBadRequest("category name is required")
	}
	now := time.Now().UTC()
	c := &domain.Category{Name: name, Image: in.Image, CreatedAt: now, UpdatedAt: now}
	if err := s.Categories.Insert(ctx, c); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, ErrConflict(fmt.Sprintf("category '%s' already exists", name))
		}
		return nil, err
	}
	s.invalidate(ctx)
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id primitive.ObjectID, in CategoryInput) (*domain.Category, error) {
	c, err := s.Categories.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrNotFound("Category")
		}
		return nil, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		c.Name = name
	}
	if in.Image != "" {
		c.Image = in.Image
	}
	c.UpdatedAt = time.Now().UTC()
	if err := s.Categories.Update(ctx, c); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, ErrConflict(fmt.Sprintf("category '%s' already exists", c.Name))
		}
		return nil, err
	}
	s.invalidate(ctx)
	return c, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id primitive.ObjectID) error {
	if err := s.Categories.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrNotFound("Category")
		}
		return err
	}
	s.invalidate(ctx)
	return nil
}

// ListProducts returns products, optionally filtered by category id.
func (s *CatalogService) ListProducts(ctx context.Context, categoryID string) ([]domain.Product, error) {
	var catID primitive.ObjectID
	if categoryID != "" {
		var err error
		catID, err = primitive.ObjectIDFromHex(categoryID)
		if err != nil {
			return nil, ErrBadRequest("invalid category id")
		}
	}
	key := "all"
	if !catID.IsZero() {
		key = catID.Hex()
	}
	v, err, _ := s.sfg.Do("products:"+key, func() (any, error) {
		cached, err := s.Cache.GetProducts(ctx, key)
		if err == nil {
			metrics.CacheHits.WithLabelValues("hit").Inc()
			return cached, nil
		}
		metrics.CacheHits.WithLabelValues("miss").Inc()
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.WithError(err).Warn("product cache get failed")
		}
		products, err := s.Products.List(ctx, catID)
		if err != nil {
			return nil, err
		}
		go func() {
			if err := s.Cache.SetProducts(context.Background(), key, products); err != nil {
				log.WithError(err).Warn("product cache set failed")
			}
		}()
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Product), nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	p, err := s.Products.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrNotFound("Product")
		}
		return nil, err
	}
	return p, nil
}

type ProductInput struct {
	Name        string
	Description string
	Price       float64
	Image       string
	CategoryID  primitive.ObjectID
}

func (s *CatalogService) AddProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrBadRequest("product name is required")
	}
	if in.Price <= 0 {
		return nil, ErrBadRequest("product price must be positive")
	}
	if _, err := s.Categories.Get(ctx, in.CategoryID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrBadRequest("category does not exist")
		}
		return nil, err
	}
	now := time.Now().UTC()
	p := &domain.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Image:       in.Image,
		CategoryID:  in.CategoryID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Products.Insert(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id primitive.ObjectID, in ProductInput) (*domain.Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		p.Name = name
	}
	if in.Description != "" {
		p.Description = in.Description
	}
	if in.Price > 0 {
		p.Price = in.Price
	}
	if in.Image != "" {
		p.Image = in.Image
	}
	if !in.CategoryID.IsZero() {
		if _, err := s.Categories.Get(ctx, in.CategoryID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, ErrBadRequest("category does not exist")
			}
			return nil, err
		}
		p.CategoryID = in.CategoryID
	}
	p.UpdatedAt = time.Now().UTC()
	if err := s.Products.Update(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return p, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id primitive.ObjectID) error {
	if err := s.Products.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrNotFound("Product")
		}
		return err
	}
	s.invalidate(ctx)
	return nil
}

// invalidate drops cached listings after a catalog mutation. Cache failure is
// logged, never surfaced: the store can serve stale reads until the TTL runs.
func (s *CatalogService) invalidate(ctx context.Context) {
	if err := s.Cache.Invalidate(ctx); err != nil {
		log.WithError(err).Warn("catalog cache invalidation failed")
	}
}
