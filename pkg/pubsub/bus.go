package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/paytm-adapter/pkg/logger"
	"go.uber.org/multierr"
)

// EventTypeAttribute carries the event name on every cart event message.
const EventTypeAttribute = "event_type"

// Event is a cart mutation notification keyed by cart id.
type Event struct {
	Name       string    `json:"-"`
	CartID     string    `json:"id"`
	OccurredAt time.Time `json:"occurred_at,omitempty"`
}

// Handler reacts to one event.
type Handler func(ctx context.Context, event Event) error

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// Bus routes cart events to subscribed handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logg     *logger.Logger
}

func NewBus(logg *logger.Logger) *Bus {
	return &Bus{handlers: make(map[string][]Handler), logg: logg}
}

// Subscribe registers handler for the named event.
func (b *Bus) Subscribe(event string, handler Handler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
}

// Dispatch runs every handler for the event and combines their errors.
func (b *Bus) Dispatch(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.Name]...)
	b.mu.RUnlock()

	var errs error
	for _, h := range handlers {
		errs = multierr.Append(errs, h(ctx, event))
	}
	return errs
}

// Run consumes the subscription until ctx is done. Messages are always acked;
// handler failures are logged and never redelivered.
func (b *Bus) Run(ctx context.Context, sub receiver) error {
	if sub == nil {
		return errors.New("cart events subscription required")
	}
	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		b.handleMessage(ctx, msg.ID, msg.Data, msg.Attributes)
		msg.Ack()
	})
}

func (b *Bus) handleMessage(ctx context.Context, id string, data []byte, attrs map[string]string) {
	event, err := DecodeEvent(data, attrs)
	if b.logg != nil {
		ctx = b.logg.WithFields(ctx, map[string]any{
			"message_id": id,
			"event_type": attrs[EventTypeAttribute],
		})
	}
	if err != nil {
		b.logError(ctx, "failed to decode cart event", err)
		return
	}
	if err := b.Dispatch(ctx, event); err != nil {
		for _, e := range multierr.Errors(err) {
			b.logError(ctx, "cart event handler failed", e)
		}
	}
}

func (b *Bus) logError(ctx context.Context, msg string, err error) {
	if b.logg != nil {
		b.logg.Error(ctx, msg, err)
	}
}

// DecodeEvent builds an Event from a message body and attributes.
func DecodeEvent(data []byte, attrs map[string]string) (Event, error) {
	name := strings.TrimSpace(attrs[EventTypeAttribute])
	if name == "" {
		return Event{}, errors.New("event type attribute missing")
	}
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return Event{}, fmt.Errorf("decode cart event: %w", err)
	}
	if strings.TrimSpace(event.CartID) == "" {
		return Event{}, errors.New("cart id missing")
	}
	event.Name = name
	return event, nil
}
