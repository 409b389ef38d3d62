package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"billbook/internal/config"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Type names a domain event.
type Type string

const (
	DocumentCreated   Type = "document.created"
	DocumentUpdated   Type = "document.updated"
	DocumentDeleted   Type = "document.deleted"
	PaymentRecorded   Type = "payment.recorded"
	KhataEntryCreated Type = "khata.entry_created"
	KhataEntryDeleted Type = "khata.entry_deleted"
	StockChanged      Type = "stock.changed"
)

type requestIDKey struct{}

// WithRequestID stores the request id used as the event correlation id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// Event is the envelope broadcast to websocket clients and written to kafka.
type Event struct {
	ID            string          `json:"id"`
	Type          Type            `json:"event"`
	EntityID      string          `json:"entity_id"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// Publisher delivers events to one destination.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NewEvent builds an event carrying payload as its data.
func NewEvent(ctx context.Context, eventType Type, entityID string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		EntityID:  entityID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		event.CorrelationID = id
	}
	return event, nil
}

// KafkaPublisher writes events to a kafka topic keyed by entity id.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(cfg config.KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.EntityID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Dispatcher fans events out to every publisher. Delivery is best effort:
// failures are logged and never surface to the caller.
type Dispatcher struct {
	publishers []Publisher
}

func NewDispatcher(publishers ...Publisher) *Dispatcher {
	return &Dispatcher{publishers: publishers}
}

// Dispatch is safe to call on a nil Dispatcher.
func (d *Dispatcher) Dispatch(ctx context.Context, eventType Type, entityID string, payload any) {
	if d == nil || len(d.publishers) == 0 {
		return
	}
	event, err := NewEvent(ctx, eventType, entityID, payload)
	if err != nil {
		log.Printf("events: failed to encode %s for %s: %v", eventType, entityID, err)
		return
	}
	for _, p := range d.publishers {
		if err := p.Publish(ctx, event); err != nil {
			log.Printf("events: failed to publish %s for %s: %v", eventType, entityID, err)
		}
	}
}

// FromConfig returns a kafka publisher when brokers are configured.
func FromConfig(cfg config.KafkaConfig) (*KafkaPublisher, bool) {
	if len(cfg.Brokers) == 0 {
		log.Println("Kafka not configured, domain events stay in-process")
		return nil, false
	}
	return NewKafkaPublisher(cfg), true
}
