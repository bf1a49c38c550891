package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bakery-backend/internal/domain"
)

func setupTestDB(t *testing.T) *Mongo {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongo(ctx, uri, "testdb")
	require.NoError(t, err)

	m := NewMongo(db)
	require.NoError(t, m.EnsureIndexes(ctx))
	return m
}

func testOrder(userID primitive.ObjectID) *domain.Order {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.Order{
		UserID: userID,
		Items: []domain.OrderItem{
			{ProductID: primitive.NewObjectID(), Name: "croissant", Price: 3.5, Quantity: 2},
		},
		TotalPrice: 7,
		ShippingAddress: domain.ShippingAddress{
			FullName: "Jane Doe", Phone: "555-0101", Address: "1 Main St", City: "Springfield",
		},
		Status:        domain.OrderPending,
		PaymentMethod: domain.PaymentCashOnDelivery,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestMongoOrderRepo_InsertAndGet(t *testing.T) {
	m := setupTestDB(t)
	ctx := context.Background()

	o := testOrder(primitive.NewObjectID())
	require.NoError(t, m.Orders.Insert(ctx, o))
	require.False(t, o.ID.IsZero())

	got, err := m.Orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.UserID, got.UserID)
	assert.Equal(t, domain.OrderPending, got.Status)
	assert.Len(t, got.Items, 1)
	assert.Equal(t, "croissant", got.Items[0].Name)

	_, err = m.Orders.Get(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMongoOrderRepo_ConditionalUpdate(t *testing.T) {
	m := setupTestDB(t)
	ctx := context.Background()

	o := testOrder(primitive.NewObjectID())
	require.NoError(t, m.Orders.Insert(ctx, o))

	now := time.Now().UTC()
	err := m.Orders.UpdateStatus(ctx, o.ID, domain.OrderPending,
		domain.StatusUpdate{Status: domain.OrderConfirmed, ConfirmedAt: &now})
	require.NoError(t, err)

	// the stale precondition must lose
	err = m.Orders.UpdateStatus(ctx, o.ID, domain.OrderPending,
		domain.StatusUpdate{Status: domain.OrderCancelled})
	assert.ErrorIs(t, err, domain.ErrConflict)

	err = m.Orders.UpdateStatus(ctx, primitive.NewObjectID(), domain.OrderPending,
		domain.StatusUpdate{Status: domain.OrderCancelled})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := m.Orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderConfirmed, got.Status)
	require.NotNil(t, got.ConfirmedAt)
}

func TestMongoOrderRepo_DeliveryStampsPayment(t *testing.T) {
	m := setupTestDB(t)
	ctx := context.Background()

	o := testOrder(primitive.NewObjectID())
	o.Status = domain.OrderOutForDelivery
	require.NoError(t, m.Orders.Insert(ctx, o))

	now := time.Now().UTC().Truncate(time.Millisecond)
	paid := true
	err := m.Orders.UpdateStatus(ctx, o.ID, domain.OrderOutForDelivery, domain.StatusUpdate{
		Status: domain.OrderDelivered, DeliveredAt: &now, IsPaid: &paid, PaidAt: &now,
	})
	require.NoError(t, err)

	got, err := m.Orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderDelivered, got.Status)
	assert.True(t, got.IsPaid)
	require.NotNil(t, got.PaidAt)
	require.NotNil(t, got.DeliveredAt)
}

func TestMongoOrderRepo_ListAndStats(t *testing.T) {
	m := setupTestDB(t)
	ctx := context.Background()
	userID := primitive.NewObjectID()

	first := testOrder(userID)
	require.NoError(t, m.Orders.Insert(ctx, first))
	second := testOrder(userID)
	second.CreatedAt = second.CreatedAt.Add(time.Second)
	require.NoError(t, m.Orders.Insert(ctx, second))
	other := testOrder(primitive.NewObjectID())
	require.NoError(t, m.Orders.Insert(ctx, other))

	require.NoError(t, m.Orders.UpdateStatus(ctx, other.ID, domain.OrderPending,
		domain.StatusUpdate{Status: domain.OrderCancelled}))

	mine, err := m.Orders.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID, "newest first")

	pending, err := m.Orders.List(ctx, domain.OrderPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	stats, err := m.Orders.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalOrders)
	assert.Equal(t, int64(2), stats.PendingOrders)
	assert.Equal(t, int64(1), stats.CancelledOrders)
	assert.InDelta(t, 14, stats.TotalRevenue, 0.001)
}

func TestMongoUserRepo_UniqueEmail(t *testing.T) {
	m := setupTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC()
	u := &domain.User{Name: "Jane", Email: "jane@example.com", Role: domain.RoleCustomer, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, m.Users.Insert(ctx, u))

	err := m.Users.Insert(ctx, &domain.User{Name: "Other", Email: "jane@example.com", Role: domain.RoleCustomer})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}
