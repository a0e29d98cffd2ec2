//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/GTDGit/storefront_api/internal/config"
	"github.com/GTDGit/storefront_api/internal/models"
	"github.com/GTDGit/storefront_api/internal/utils"
)

func startRedis(t *testing.T) *RedisClient {
	t.Helper()
	ctx := context.Background()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	client, err := NewRedisClient(&config.RedisConfig{Host: host, Port: port.Port()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisStores_Integration(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()

	carts := NewRedisCartStore(client, time.Hour)
	cart := models.NewCart("cart-1")
	cart.Items = append(cart.Items, models.CartItem{Product: models.Product{ID: "1", Name: "Cyber Glitch v2", Price: 50000}, Quantity: 2})
	require.NoError(t, carts.Save(ctx, cart))
	got, err := carts.Get(ctx, "cart-1")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)

	idem := NewRedisIdempotencyStore(client, time.Hour)
	_, reserved, err := idem.Reserve(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, reserved)
	_, _, err = idem.Reserve(ctx, "k1")
	assert.ErrorIs(t, err, utils.ErrCheckoutInProgress)
	require.NoError(t, idem.Complete(ctx, "k1", "order-1"))
	orderID, reserved, err := idem.Reserve(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.Equal(t, "order-1", orderID)
}

func TestRedisOutboxQueue_Integration(t *testing.T) {
	q := NewRedisOutboxQueue(startRedis(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	for i, id := range []string{"a1", "a2", "b1"} {
		agg := "A"
		if id == "b1" {
			agg = "B"
		}
		require.NoError(t, q.Enqueue(ctx, &models.OutboxEntry{
			ID:            id,
			Kind:          models.OutboxSettingsSave,
			AggregateID:   agg,
			Payload:       []byte(`{}`),
			Status:        models.OutboxPending,
			NextAttemptAt: now,
			CreatedAt:     now.Add(time.Duration(i) * time.Millisecond),
		}))
	}

	claimed, err := q.Claim(ctx, now, 10, time.Minute)
	require.NoError(t, err)
	ids := make([]string, 0, len(claimed))
	for _, e := range claimed {
		ids = append(ids, e.ID)
	}
	assert.ElementsMatch(t, []string{"a1", "b1"}, ids, "only the head of each aggregate is claimed")

	require.NoError(t, q.Ack(ctx, "a1"))
	claimed, err = q.Claim(ctx, now, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, "a2", claimed[0].ID)

	pending, failed, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, pending)
	assert.Equal(t, 0, failed)
}
