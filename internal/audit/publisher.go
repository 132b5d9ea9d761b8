package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"zkcomply/internal/platform/kafka/producer"
)

// Publisher records audit events. Events always land in the store; when a
// Kafka producer is configured they are additionally streamed to the audit
// topic, keyed by identity so one identity's events stay ordered within a
// partition.
type Publisher struct {
	store    Store
	producer *producer.Producer
	topic    string
	logger   *slog.Logger

	events chan Event
	wg     sync.WaitGroup
	async  bool
}

type PublisherOption func(*Publisher)

// WithKafka streams every event to the given topic in addition to the store.
func WithKafka(p *producer.Producer, topic string) PublisherOption {
	return func(pub *Publisher) {
		pub.producer = p
		pub.topic = topic
	}
}

// WithAsyncBuffer queues events and persists them from a background
// goroutine. A full buffer drops events rather than blocking the caller.
func WithAsyncBuffer(size int) PublisherOption {
	return func(pub *Publisher) {
		if size > 0 {
			pub.events = make(chan Event, size)
			pub.async = true
		}
	}
}

func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(pub *Publisher) {
		pub.logger = logger
	}
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	pub := &Publisher{store: store}
	for _, opt := range opts {
		opt(pub)
	}
	if pub.async {
		pub.wg.Add(1)
		go pub.drain()
	}
	return pub
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if p.async {
		select {
		case p.events <- event:
			return nil
		default:
			if p.logger != nil {
				p.logger.Warn("audit buffer full, event dropped",
					"action", event.Action,
					"identity", event.Identity,
				)
			}
			return nil
		}
	}
	return p.record(ctx, event)
}

func (p *Publisher) List(ctx context.Context, identity string) ([]Event, error) {
	return p.store.ListByIdentity(ctx, identity)
}

// Close stops the async drain and waits for queued events to persist.
func (p *Publisher) Close() {
	if p.async && p.events != nil {
		close(p.events)
		p.wg.Wait()
	}
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.events {
		if err := p.record(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Error("failed to persist audit event",
				"error", err,
				"action", event.Action,
				"identity", event.Identity,
			)
		}
	}
}

func (p *Publisher) record(ctx context.Context, event Event) error {
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	if p.producer == nil {
		return nil
	}
	// The store is the source of truth; the stream is best-effort fan-out.
	payload, err := json.Marshal(event)
	if err != nil {
		return nil
	}
	err = p.producer.Produce(ctx, &producer.Message{
		Topic: p.topic,
		Key:   []byte(event.Identity),
		Value: payload,
	})
	if err != nil && p.logger != nil {
		p.logger.Error("audit stream publish failed",
			"error", err,
			"action", event.Action,
		)
	}
	return nil
}
