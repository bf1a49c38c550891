package usecase

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"bakery-backend/internal/domain"
)

type UserService struct {
	Users   UserRepo
	Catalog *CatalogService
}

func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.Users.List(ctx)
}

// Dashboard bundles the caller's profile with a catalog snapshot for the
// storefront landing view.
type Dashboard struct {
	User       *domain.User      `json:"user"`
	Categories []domain.Category `json:"categories"`
	Products   []domain.Product  `json:"products"`
}

func (s *UserService) Dashboard(ctx context.Context, userID primitive.ObjectID) (*Dashboard, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrNotFound("User")
		}
		return nil, err
	}
	cats, err := s.Catalog.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.Catalog.ListProducts(ctx, "")
	if err != nil {
		return nil, err
	}
	return &Dashboard{User: u, Categories: cats, Products: products}, nil
}
