package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bakery-backend/internal/domain"
)

type MongoOrderRepo struct {
	c *mongo.Collection
}

func (r *MongoOrderRepo) Insert(ctx context.Context, o *domain.Order) error {
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	if _, err := r.c.InsertOne(ctx, o); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (r *MongoOrderRepo) Get(ctx context.Context, id primitive.ObjectID) (*domain.Order, error) {
	var o domain.Order
	err := r.c.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &o, nil
}

func (r *MongoOrderRepo) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.Order, error) {
	return r.find(ctx, bson.M{"user_id": userID})
}

func (r *MongoOrderRepo) List(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return r.find(ctx, filter)
}

func (r *MongoOrderRepo) find(ctx context.Context, filter bson.M) ([]domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cur.Close(ctx)
	orders := []domain.Order{}
	if err := cur.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus is the conditional write behind every transition: it matches on
// both _id and the status the caller read, so a concurrent transition that
// already moved the order leaves nothing to match and reports a conflict.
func (r *MongoOrderRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, expect domain.OrderStatus, upd domain.StatusUpdate) error {
	set := bson.M{
		"status":     upd.Status,
		"updated_at": time.Now().UTC(),
	}
	if upd.ConfirmedAt != nil {
		set["confirmed_at"] = *upd.ConfirmedAt
	}
	if upd.DeliveredAt != nil {
		set["delivered_at"] = *upd.DeliveredAt
	}
	if upd.IsPaid != nil {
		set["is_paid"] = *upd.IsPaid
	}
	if upd.PaidAt != nil {
		set["paid_at"] = *upd.PaidAt
	}

	res, err := r.c.UpdateOne(ctx, bson.M{"_id": id, "status": expect}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if res.MatchedCount == 0 {
		// Either the order is gone or someone else won the race.
		if err := r.c.FindOne(ctx, bson.M{"_id": id}).Err(); errors.Is(err, mongo.ErrNoDocuments) {
			return domain.ErrNotFound
		}
		return domain.ErrConflict
	}
	return nil
}

func (r *MongoOrderRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoOrderRepo) Stats(ctx context.Context) (*domain.OrderStats, error) {
	stats := &domain.OrderStats{}
	var err error
	if stats.TotalOrders, err = r.c.CountDocuments(ctx, bson.M{}); err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	if stats.PendingOrders, err = r.c.CountDocuments(ctx, bson.M{"status": domain.OrderPending}); err != nil {
		return nil, fmt.Errorf("failed to count pending orders: %w", err)
	}
	if stats.DeliveredOrders, err = r.c.CountDocuments(ctx, bson.M{"status": domain.OrderDelivered}); err != nil {
		return nil, fmt.Errorf("failed to count delivered orders: %w", err)
	}
	if stats.CancelledOrders, err = r.c.CountDocuments(ctx, bson.M{"status": domain.OrderCancelled}); err != nil {
		return nil, fmt.Errorf("failed to count cancelled orders: %w", err)
	}

	// Revenue counts every order that was not cancelled.
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": bson.M{"$ne": domain.OrderCancelled}}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$total_price"}}}},
	}
	cur, err := r.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate revenue: %w", err)
	}
	defer cur.Close(ctx)
	var rows []struct {
		Total float64 `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode revenue: %w", err)
	}
	if len(rows) > 0 {
		stats.TotalRevenue = rows[0].Total
	}
	return stats, nil
}
