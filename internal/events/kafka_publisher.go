package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher forwards events to a Kafka topic from a background
// goroutine. Publish never blocks; events are dropped when the buffer is full.
type KafkaPublisher struct {
	w     MessageWriter
	queue chan Event
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewKafkaWriter returns a writer for topic on brokers.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
}

// NewKafkaPublisher starts the publishing goroutine. Call Close to flush.
func NewKafkaPublisher(w MessageWriter, buffer int) *KafkaPublisher {
	if buffer < 1 {
		buffer = 256
	}
	p := &KafkaPublisher{w: w, queue: make(chan Event, buffer), done: make(chan struct{})}
	go p.run()
	return p
}

// Publish is a no-op after Close.
func (p *KafkaPublisher) Publish(_ context.Context, e Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- e:
	default:
		log.Warn().Str("event", string(e.Type)).Msg("Kafka publish buffer full, dropping event")
	}
}

func (p *KafkaPublisher) run() {
	defer close(p.done)
	for e := range p.queue {
		value, err := json.Marshal(e)
		if err != nil {
			log.Error().Err(err).Str("event", string(e.Type)).Msg("Failed to marshal event")
			continue
		}
		// Keying by aggregate keeps one product's or order's events in one partition.
		msg := kafka.Message{
			Key:   []byte(e.AggregateID),
			Value: value,
			Time:  e.Timestamp,
			Headers: []kafka.Header{
				{Key: "event", Value: []byte(e.Type)},
			},
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := p.w.WriteMessages(ctx, msg); err != nil {
			log.Error().Err(err).Str("event", string(e.Type)).Str("event_id", e.ID).Msg("Failed to publish event to Kafka")
		}
		cancel()
	}
}

// Close stops accepting events, drains the buffer and closes the writer.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	return p.w.Close()
}
