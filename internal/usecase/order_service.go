package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"bakery-backend/internal/domain"
	"bakery-backend/internal/metrics"
)

type OrderRepo interface {
	Insert(ctx context.Context, o *domain.Order) error
	Get(ctx context.Context, id primitive.ObjectID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.Order, error)
	// List returns all orders, newest first, optionally filtered by status
	// (empty status means no filter).
	List(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
	// UpdateStatus applies upd only if the stored status still equals expect,
	// returning domain.ErrConflict when the precondition fails.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, expect domain.OrderStatus, upd domain.StatusUpdate) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Stats(ctx context.Context) (*domain.OrderStats, error)
}

type OrderService struct {
	Orders   OrderRepo
	Products ProductRepo
}

type PlaceOrderItem struct {
	ProductID primitive.ObjectID
	Quantity  int
}

type PlaceOrderInput struct {
	Items           []PlaceOrderItem
	TotalPrice      float64
	ShippingAddress domain.ShippingAddress
	PaymentMethod   domain.PaymentMethod
}

// Place creates a Pending order for userID. Item name, price and image are
// captured from the product catalog at this moment; the client-supplied total
// must match the recomputed item-sum.
func (s *OrderService) Place(ctx context.Context, userID primitive.ObjectID, in PlaceOrderInput) (*domain.Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrBadRequest("No order items")
	}
	method := in.PaymentMethod
	if method == "" {
		method = domain.PaymentCashOnDelivery
	}
	if !method.Valid() {
		return nil, ErrBadRequest(fmt.Sprintf("invalid payment method '%s'", method))
	}

	items := make([]domain.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		if it.Quantity < 1 {
			return nil, ErrBadRequest("item quantity must be at least 1")
		}
		p, err := s.Products.Get(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, ErrBadRequest(fmt.Sprintf("product %s does not exist", it.ProductID.Hex()))
			}
			return nil, err
		}
		items = append(items, domain.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  it.Quantity,
			Image:     p.Image,
		})
	}

	o := &domain.Order{
		UserID:          userID,
		Items:           items,
		ShippingAddress: in.ShippingAddress,
		Status:          domain.OrderPending,
		PaymentMethod:   method,
	}
	o.TotalPrice = o.ItemsTotal()
	if math.Abs(o.TotalPrice-in.TotalPrice) > 0.009 {
		return nil, ErrBadRequest(fmt.Sprintf("order total %.2f does not match item subtotals %.2f", in.TotalPrice, o.TotalPrice))
	}
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	if err := s.Orders.Insert(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Get fetches one order; only the owner or an admin may see it.
func (s *OrderService) Get(ctx context.Context, id primitive.ObjectID, actor domain.Actor) (*domain.Order, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleAdmin && o.UserID != actor.UserID {
		return nil, ErrForbidden("Not authorized")
	}
	return o, nil
}

func (s *OrderService) ListMine(ctx context.Context, userID primitive.ObjectID) ([]domain.Order, error) {
	return s.Orders.ListByUser(ctx, userID)
}

func (s *OrderService) ListAll(ctx context.Context, statusFilter string) ([]domain.Order, error) {
	status := domain.OrderStatus(statusFilter)
	if statusFilter != "" && !status.Valid() {
		return nil, ErrBadRequest(fmt.Sprintf("unknown status '%s'", statusFilter))
	}
	return s.Orders.List(ctx, status)
}

// UpdateStatus performs an admin-driven transition. Moving to Confirmed stamps
// ConfirmedAt. The write is conditional on the status read here; a lost race
// surfaces as ErrConflict so the client can re-fetch and retry.
func (s *OrderService) UpdateStatus(ctx context.Context, id primitive.ObjectID, requested domain.OrderStatus, actor domain.Actor) (*domain.Order, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, ErrForbidden("Not authorized")
	}
	if !requested.Valid() {
		return nil, ErrBadRequest(fmt.Sprintf("unknown status '%s'", requested))
	}
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(o.Status, domain.RoleAdmin, requested) {
		return nil, ErrInvalidTransition{From: o.Status, Requested: requested, Valid: domain.ValidTransitions(o.Status, domain.RoleAdmin)}
	}
	now := time.Now().UTC()
	upd := domain.StatusUpdate{Status: requested}
	if requested == domain.OrderConfirmed {
		upd.ConfirmedAt = &now
	}
	if err := s.persistTransition(ctx, id, o.Status, upd); err != nil {
		return nil, err
	}
	upd.Apply(o, now)
	return o, nil
}

// Cancel is the self-service cancellation window: owner or admin, and only
// while the order is still Pending. Cash-on-delivery orders carry no payment
// to reverse, so there are no further side effects.
func (s *OrderService) Cancel(ctx context.Context, id primitive.ObjectID, actor domain.Actor) (*domain.Order, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleAdmin && o.UserID != actor.UserID {
		return nil, ErrForbidden("Not authorized")
	}
	if o.Status != domain.OrderPending {
		return nil, ErrInvalidTransition{From: o.Status, Requested: domain.OrderCancelled, Valid: domain.ValidTransitions(o.Status, actor.Role)}
	}
	now := time.Now().UTC()
	upd := domain.StatusUpdate{Status: domain.OrderCancelled}
	if err := s.persistTransition(ctx, id, o.Status, upd); err != nil {
		return nil, err
	}
	upd.Apply(o, now)
	return o, nil
}

// ConfirmDelivery is the customer's attestation of the physical handoff.
// Admins may not perform it on the customer's behalf. Payment is recognized as
// collected here: Delivered, DeliveredAt, IsPaid and PaidAt are stamped in one
// conditional write.
func (s *OrderService) ConfirmDelivery(ctx context.Context, id primitive.ObjectID, actor domain.Actor) (*domain.Order, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != actor.UserID {
		return nil, ErrForbidden("Not authorized")
	}
	if o.Status != domain.OrderOutForDelivery {
		return nil, ErrBadRequest("Order can only be confirmed when it's out for delivery")
	}
	now := time.Now().UTC()
	paid := true
	upd := domain.StatusUpdate{
		Status:      domain.OrderDelivered,
		DeliveredAt: &now,
		IsPaid:      &paid,
		PaidAt:      &now,
	}
	if err := s.persistTransition(ctx, id, o.Status, upd); err != nil {
		return nil, err
	}
	upd.Apply(o, now)
	return o, nil
}

// Delete removes an order permanently, regardless of status.
func (s *OrderService) Delete(ctx context.Context, id primitive.ObjectID) error {
	err := s.Orders.Delete(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return ErrNotFound("Order")
	}
	return err
}

func (s *OrderService) Stats(ctx context.Context) (*domain.OrderStats, error) {
	return s.Orders.Stats(ctx)
}

func (s *OrderService) load(ctx context.Context, id primitive.ObjectID) (*domain.Order, error) {
	o, err := s.Orders.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrNotFound("Order")
		}
		return nil, err
	}
	return o, nil
}

func (s *OrderService) persistTransition(ctx context.Context, id primitive.ObjectID, expect domain.OrderStatus, upd domain.StatusUpdate) error {
	err := s.Orders.UpdateStatus(ctx, id, expect, upd)
	switch {
	case err == nil:
		metrics.OrderTransitions.WithLabelValues(string(expect), string(upd.Status)).Inc()
		return nil
	case errors.Is(err, domain.ErrConflict):
		return ErrConflict("order status changed concurrently, re-fetch and retry")
	case errors.Is(err, domain.ErrNotFound):
		return ErrNotFound("Order")
	default:
		return err
	}
}
