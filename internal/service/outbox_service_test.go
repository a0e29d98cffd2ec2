package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/storefront_api/internal/events"
	"github.com/GTDGit/storefront_api/internal/models"
	"github.com/GTDGit/storefront_api/internal/utils"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 5 * time.Second},
		{1, 5 * time.Second},
		{2, 30 * time.Second},
		{3, 2 * time.Minute},
		{4, 10 * time.Minute},
		{5, time.Hour},
		{12, time.Hour},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Backoff(tt.attempts), "attempts=%d", tt.attempts)
	}
}

func TestOutboxService_RetriesNetworkFailures(t *testing.T) {
	sf := newStorefront(t, nil)
	ctx := context.Background()

	sf.mem.SetFailure(utils.ErrNetworkUnavailable)
	settings, err := sf.catalog.UpdateShippingFee(ctx, 7000)
	require.NoError(t, err, "a delivery failure only delays the sync")
	assert.Equal(t, int64(7000), settings.ShippingFee)
	assert.Equal(t, int64(7000), sf.catalog.ShippingFee())

	status, err := sf.outbox.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status.Entries, 1)
	entry := status.Entries[0]
	assert.Equal(t, models.OutboxSettingsSave, entry.Kind)
	assert.Equal(t, 1, entry.Attempts)
	assert.True(t, entry.NextAttemptAt.Equal(sf.clock.Now().Add(5*time.Second)))
	assert.NotEmpty(t, entry.LastError)

	// Not due yet.
	sf.mem.SetFailure(nil)
	res, err := sf.outbox.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, DrainResult{}, res)

	sf.clock.Advance(6 * time.Second)
	res, err = sf.outbox.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Delivered)

	stored, err := sf.mem.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7000), stored.ShippingFee)
}

func TestOutboxService_FailsAfterMaxAttempts(t *testing.T) {
	sf := newStorefront(t, nil)
	ctx := context.Background()

	sf.mem.SetFailure(utils.ErrNetworkUnavailable)
	_, err := sf.catalog.CreateDevice(ctx, "Galaxy Z Flip")
	require.NoError(t, err)

	// Attempt one happened inline; the fixture allows three.
	for i := 0; i < 2; i++ {
		sf.clock.Advance(time.Hour)
		_, err := sf.outbox.Drain(ctx)
		require.NoError(t, err)
	}

	status, err := sf.outbox.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Failed)
	assert.Equal(t, 0, status.Pending)
	assert.Equal(t, 3, status.Entries[0].Attempts)
	assert.Contains(t, sf.bus.Types(), events.SyncFailed)

	// Failed entries are never picked up again on their own.
	sf.mem.SetFailure(nil)
	sf.clock.Advance(time.Hour)
	res, err := sf.outbox.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Delivered)

	_, err = sf.outbox.Retry(ctx, status.Entries[0].ID)
	require.NoError(t, err)
	res, err = sf.outbox.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Delivered)
}

func TestOutboxService_FailedEntryBlocksItsAggregate(t *testing.T) {
	sf := newStorefront(t, nil)
	ctx := context.Background()

	// A decrement for a product the store does not know fails permanently.
	bad, err := sf.outbox.Enqueue(ctx, models.OutboxStockDecrement, "ghost",
		models.StockDecrement{ProductID: "ghost", Quantity: 1})
	require.NoError(t, err)
	_, err = sf.outbox.Enqueue(ctx, models.OutboxProductUpsert, "ghost",
		models.Product{ID: "ghost", Name: "Ghost", Price: 1000})
	require.NoError(t, err)
	_, err = sf.outbox.Enqueue(ctx, models.OutboxProductDelete, "6", models.DeleteTarget{ID: "6"})
	require.NoError(t, err)

	res, err := sf.outbox.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Delivered, "other aggregates keep flowing")

	status, err := sf.outbox.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Failed)
	assert.Equal(t, 1, status.Pending)

	err = sf.outbox.Discard(ctx, status.Entries[1].ID)
	assert.ErrorIs(t, err, utils.ErrSyncEntryNotFailed)

	require.NoError(t, sf.outbox.Discard(ctx, bad.ID))
	res, err = sf.outbox.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Delivered)

	stored, err := sf.mem.LoadCatalog(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(stored.Products))
	for _, p := range stored.Products {
		ids = append(ids, p.ID)
	}
	assert.Contains(t, ids, "ghost")
	assert.NotContains(t, ids, "6")
}

func TestOutboxService_DeliversInEnqueueOrder(t *testing.T) {
	sf := newStorefront(t, nil)
	ctx := context.Background()

	sf.mem.SetFailure(utils.ErrNetworkUnavailable)
	for _, fee := range []int64{6000, 7000, 8000} {
		_, err := sf.catalog.UpdateShippingFee(ctx, fee)
		require.NoError(t, err)
	}

	sf.mem.SetFailure(nil)
	sf.clock.Advance(time.Minute)
	res, err := sf.outbox.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Delivered)

	stored, err := sf.mem.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(8000), stored.ShippingFee)
}

func TestOutboxService_OrderSync(t *testing.T) {
	sf := newStorefront(t, nil)
	ctx := context.Background()

	state, err := sf.outbox.OrderSync(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, models.InventorySynced, state)

	sf.mem.SetFailure(utils.ErrNetworkUnavailable)
	_, err = sf.outbox.Enqueue(ctx, models.OutboxStockDecrement, "1",
		models.StockDecrement{ProductID: "1", VariantID: "v1", Quantity: 1, OrderID: "o1"})
	require.NoError(t, err)
	_, err = sf.outbox.Drain(ctx)
	require.NoError(t, err)

	state, err = sf.outbox.OrderSync(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, models.InventoryPending, state)

	state, err = sf.outbox.OrderSync(ctx, "o2")
	require.NoError(t, err)
	assert.Equal(t, models.InventorySynced, state)
}

func TestOutboxService_RetryUnknownEntry(t *testing.T) {
	sf := newStorefront(t, nil)
	_, err := sf.outbox.Retry(context.Background(), "missing")
	assert.ErrorIs(t, err, utils.ErrOutboxNotFound)
}
