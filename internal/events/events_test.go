package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestBus_FansOutInOrder(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	bus := NewBus(a)
	bus.Subscribe(b)

	bus.Publish(context.Background(), New(ProductCreated, "1", nil))
	bus.Publish(context.Background(), New(StockChanged, "1", nil))

	assert.Equal(t, []Type{ProductCreated, StockChanged}, a.Types())
	assert.Equal(t, a.Types(), b.Types())
	assert.NotEmpty(t, a.Events()[0].ID)
}

func TestKafkaPublisher_WritesKeyedMessages(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w, 8)

	p.Publish(context.Background(), New(OrderCreated, "order-1", map[string]int{"total": 50000}))
	require.NoError(t, p.Close())

	require.Len(t, w.msgs, 1)
	assert.True(t, w.closed)
	assert.Equal(t, "order-1", string(w.msgs[0].Key))

	var e Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &e))
	assert.Equal(t, OrderCreated, e.Type)
}

func TestKafkaPublisher_PublishAfterCloseIsDropped(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w, 8)
	require.NoError(t, p.Close())

	assert.NotPanics(t, func() {
		p.Publish(context.Background(), New(StockChanged, "1", nil))
	})
	require.NoError(t, p.Close())
	assert.Empty(t, w.msgs)
}
