package repo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bakery-backend/internal/domain"
)

func insertOrder(t *testing.T, r *MemoryOrderRepo, userID primitive.ObjectID, createdAt time.Time) *domain.Order {
	t.Helper()
	o := &domain.Order{
		UserID:     userID,
		Items:      []domain.OrderItem{{ProductID: primitive.NewObjectID(), Name: "scone", Price: 2, Quantity: 1}},
		TotalPrice: 2,
		Status:     domain.OrderPending,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
	require.NoError(t, r.Insert(context.Background(), o))
	return o
}

func TestMemoryOrderRepoRoundTrip(t *testing.T) {
	r := NewMemoryOrderRepo()
	userID := primitive.NewObjectID()
	o := insertOrder(t, r, userID, time.Now().UTC())

	got, err := r.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	// stored copy is isolated from caller mutation
	got.Status = domain.OrderDelivered
	again, err := r.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, again.Status)

	_, err = r.Get(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryOrderRepoListOrdering(t *testing.T) {
	r := NewMemoryOrderRepo()
	userID := primitive.NewObjectID()
	base := time.Now().UTC()
	old := insertOrder(t, r, userID, base.Add(-time.Hour))
	recent := insertOrder(t, r, userID, base)
	insertOrder(t, r, primitive.NewObjectID(), base.Add(-30*time.Minute))

	mine, err := r.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, recent.ID, mine[0].ID)
	assert.Equal(t, old.ID, mine[1].ID)

	all, err := r.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	pending, err := r.List(context.Background(), domain.OrderPending)
	require.NoError(t, err)
	assert.Len(t, pending, 3)

	delivered, err := r.List(context.Background(), domain.OrderDelivered)
	require.NoError(t, err)
	assert.Empty(t, delivered)
}

func TestMemoryOrderRepoConditionalUpdate(t *testing.T) {
	r := NewMemoryOrderRepo()
	o := insertOrder(t, r, primitive.NewObjectID(), time.Now().UTC())
	ctx := context.Background()

	err := r.UpdateStatus(ctx, o.ID, domain.OrderPending, domain.StatusUpdate{Status: domain.OrderConfirmed})
	require.NoError(t, err)

	// stale expectation loses
	err = r.UpdateStatus(ctx, o.ID, domain.OrderPending, domain.StatusUpdate{Status: domain.OrderCancelled})
	assert.ErrorIs(t, err, domain.ErrConflict)

	err = r.UpdateStatus(ctx, primitive.NewObjectID(), domain.OrderPending, domain.StatusUpdate{Status: domain.OrderCancelled})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := r.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderConfirmed, got.Status)
}

func TestMemoryOrderRepoConcurrentCancel(t *testing.T) {
	r := NewMemoryOrderRepo()
	o := insertOrder(t, r, primitive.NewObjectID(), time.Now().UTC())

	const racers = 16
	var wg sync.WaitGroup
	wins := make(chan struct{}, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.UpdateStatus(context.Background(), o.ID, domain.OrderPending,
				domain.StatusUpdate{Status: domain.OrderCancelled})
			if err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	var winners int
	for range wins {
		winners++
	}
	assert.Equal(t, 1, winners, "exactly one racer may apply the transition")
}

func TestMemoryOrderRepoStats(t *testing.T) {
	r := NewMemoryOrderRepo()
	ctx := context.Background()
	now := time.Now().UTC()

	a := insertOrder(t, r, primitive.NewObjectID(), now)
	b := insertOrder(t, r, primitive.NewObjectID(), now)
	insertOrder(t, r, primitive.NewObjectID(), now)

	paid := true
	require.NoError(t, r.UpdateStatus(ctx, a.ID, domain.OrderPending,
		domain.StatusUpdate{Status: domain.OrderDelivered, DeliveredAt: &now, IsPaid: &paid, PaidAt: &now}))
	require.NoError(t, r.UpdateStatus(ctx, b.ID, domain.OrderPending,
		domain.StatusUpdate{Status: domain.OrderCancelled}))

	stats, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalOrders)
	assert.Equal(t, int64(1), stats.PendingOrders)
	assert.Equal(t, int64(1), stats.DeliveredOrders)
	assert.Equal(t, int64(1), stats.CancelledOrders)
	assert.InDelta(t, 4.0, stats.TotalRevenue, 0.001)
}

func TestMemoryUserRepoDuplicateEmail(t *testing.T) {
	r := NewMemoryUserRepo()
	ctx := context.Background()

	u := &domain.User{Name: "Jane", Email: "jane@example.com"}
	require.NoError(t, r.Insert(ctx, u))
	err := r.Insert(ctx, &domain.User{Name: "Other", Email: "jane@example.com"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	got, err := r.GetByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestMemoryCategoryRepoDuplicateName(t *testing.T) {
	r := NewMemoryCategoryRepo()
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, &domain.Category{Name: "Bread"}))
	err := r.Insert(ctx, &domain.Category{Name: "Bread"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestMemoryProductRepoListByCategory(t *testing.T) {
	r := NewMemoryProductRepo()
	ctx := context.Background()
	catID := primitive.NewObjectID()

	require.NoError(t, r.Insert(ctx, &domain.Product{Name: "Rye", CategoryID: catID}))
	require.NoError(t, r.Insert(ctx, &domain.Product{Name: "Tart", CategoryID: primitive.NewObjectID()}))

	all, err := r.List(ctx, primitive.NilObjectID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := r.List(ctx, catID)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Rye", filtered[0].Name)
}
