package sse

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/storefront_api/internal/events"
)

func TestHubPublisher_DeliversToRegisteredClients(t *testing.T) {
	hub := NewHub()
	pub := NewHubPublisher(hub)

	// No clients: nothing to deliver, nothing blocks.
	pub.Publish(context.Background(), events.New(events.ProductCreated, "1", nil))

	c := hub.Register("admin-1")
	pub.Publish(context.Background(), events.New(events.StockChanged, "1", nil))

	require.Len(t, c.Frames, 1)
	frame := <-c.Frames
	assert.Equal(t, events.StockChanged, frame.Type)
	var e events.Event
	require.NoError(t, json.Unmarshal(frame.Data, &e))
	assert.Equal(t, "1", e.AggregateID)

	hub.Unregister(c)
	assert.Equal(t, 0, hub.ClientCount())
	_, open := <-c.Frames
	assert.False(t, open)
}

func TestHub_FiltersByType(t *testing.T) {
	hub := NewHub()
	orders := hub.Register("orders", events.OrderCreated, events.OrderStatusChanged)
	all := hub.Register("all")

	hub.Broadcast(events.New(events.StockChanged, "1", nil))
	hub.Broadcast(events.New(events.OrderCreated, "o1", nil))

	require.Len(t, orders.Frames, 1)
	assert.Equal(t, events.OrderCreated, (<-orders.Frames).Type)
	assert.Len(t, all.Frames, 2)
}

func TestHub_ReRegisterReplacesClient(t *testing.T) {
	hub := NewHub()
	first := hub.Register("admin")
	second := hub.Register("admin")

	_, open := <-first.Frames
	assert.False(t, open)
	assert.Equal(t, 1, hub.ClientCount())

	// The stale handle must not remove its replacement.
	hub.Unregister(first)
	assert.Equal(t, 1, hub.ClientCount())
	hub.Unregister(second)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_DropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	c := hub.Register("slow")
	for i := 0; i < cap(c.Frames)+10; i++ {
		hub.Broadcast(events.New(events.OrderCreated, "o", nil))
	}
	assert.Len(t, c.Frames, cap(c.Frames))
}
