// Package events publishes storefront domain events. Delivery is best
// effort: a failed publish is logged by the caller and never undoes the
// change it describes.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	UserTopic    = "user_events"
	CartTopic    = "cart_events"
	OrderTopic   = "order_events"
	ProductTopic = "product_events"
)

var Topics = []string{UserTopic, CartTopic, OrderTopic, ProductTopic}

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type Event struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	UserID string         `json:"userID,omitempty"`
	At     time.Time      `json:"at"`
	Data   map[string]any `json:"data,omitempty"`
}

func New(typ, userID string, data map[string]any) Event {
	return Event{
		ID:     uuid.NewString(),
		Type:   typ,
		UserID: userID,
		At:     time.Now().UTC(),
		Data:   data,
	}
}

// Nop drops every event. Used when no brokers are configured.
type Nop struct{}

func (Nop) PublishEvent(context.Context, string, string, any) error { return nil }

type Published struct {
	Topic string
	Key   string
	Event any
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu   sync.Mutex
	msgs []Published
}

func (r *Recorder) PublishEvent(_ context.Context, topic, key string, event any) error {
	r.mu.Lock()
	r.msgs = append(r.msgs, Published{Topic: topic, Key: key, Event: event})
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Messages() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Published(nil), r.msgs...)
}

// Types lists the event types seen on topic, in publish order.
func (r *Recorder) Types(topic string) []string {
	var out []string
	for _, m := range r.Messages() {
		if m.Topic != topic {
			continue
		}
		if ev, ok := m.Event.(Event); ok {
			out = append(out, ev.Type)
		}
	}
	return out
}
