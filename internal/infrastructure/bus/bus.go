package bus

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/trychlos/openbook-sub016/internal/domain"
)

// Bus is an in-process notification bus implementing usecase.Publisher.
// Events fan out to every open subscription; a subscriber that falls behind
// its buffer drops the event rather than blocking the write path.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]*Subscription
	nextID int
	closed bool
	logger zerolog.Logger
}

// Subscription is one subscriber's event stream.
type Subscription struct {
	id  int
	bus *Bus
	ch  chan domain.Event
}

// Events returns the subscription's receive channel. It is closed when the
// subscription or the bus is closed.
func (s *Subscription) Events() <-chan domain.Event { return s.ch }

// Close detaches the subscription from the bus.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if _, ok := s.bus.subs[s.id]; !ok {
		return
	}
	delete(s.bus.subs, s.id)
	close(s.ch)
}

// New creates a new Bus.
func New(logger zerolog.Logger) *Bus {
	return &Bus{
		subs:   make(map[int]*Subscription),
		logger: logger,
	}
}

// Subscribe opens a subscription with the given buffer size.
func (b *Bus) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 16
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		id:  b.nextID,
		bus: b,
		ch:  make(chan domain.Event, buffer),
	}
	b.nextID++

	if b.closed {
		close(sub.ch)
		return sub
	}

	b.subs[sub.id] = sub
	return sub
}

// Publish delivers the event to every open subscription.
func (b *Bus) Publish(ctx context.Context, event domain.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		select {
		case sub.ch <- event:
		default:
			b.logger.Warn().
				Str("event", event.EventType()).
				Msg("subscriber buffer full, event dropped")
		}
	}

	return nil
}

// Close closes the bus and every open subscription.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}

// LogPublisher implements usecase.Publisher by logging each event, for
// deployments that run without any subscriber.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(ctx context.Context, event domain.Event) error {
	p.logger.Info().
		Str("event", event.EventType()).
		Interface("payload", event).
		Msg("event emitted")
	return nil
}
