package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prohmpiriya/eventic-admission/internal/domain"
)

// LocationRequester asks the validator's device for its position. It returns
// domain.ErrLocationDenied when the validator refuses, or the context error
// when no answer arrives in time.
type LocationRequester interface {
	RequestLocation(ctx context.Context) (*domain.Coordinates, error)
}

// LocationRequesterFunc adapts a function to LocationRequester
type LocationRequesterFunc func(ctx context.Context) (*domain.Coordinates, error)

// RequestLocation calls f(ctx)
func (f LocationRequesterFunc) RequestLocation(ctx context.Context) (*domain.Coordinates, error) {
	return f(ctx)
}

type locationAnswer struct {
	coords *domain.Coordinates
	err    error
}

type locationSlot struct {
	answer    chan locationAnswer
	createdAt time.Time
}

// LocationBroker pairs a pending admission with the validator's answer posted
// on a separate request. Slots are keyed by a request ID the client generates
// before it calls the admission endpoint.
type LocationBroker struct {
	mu      sync.Mutex
	slots   map[string]*locationSlot
	timeout time.Duration
	now     func() time.Time
}

// NewLocationBroker creates a broker whose requesters wait at most timeout
func NewLocationBroker(timeout time.Duration) *LocationBroker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LocationBroker{
		slots:   make(map[string]*locationSlot),
		timeout: timeout,
		now:     time.Now,
	}
}

// NewRequestID returns a fresh location request ID
func NewRequestID() string {
	return uuid.New().String()
}

// Timeout returns how long a requester waits for an answer
func (b *LocationBroker) Timeout() time.Duration {
	return b.timeout
}

// slot returns the slot for id, creating it on first use. Either side may
// arrive first.
func (b *LocationBroker) slot(id string) *locationSlot {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pruneLocked()
	s, ok := b.slots[id]
	if !ok {
		s = &locationSlot{answer: make(chan locationAnswer, 1), createdAt: b.now()}
		b.slots[id] = s
	}
	return s
}

// pruneLocked drops slots nobody collected within twice the timeout
func (b *LocationBroker) pruneLocked() {
	cutoff := b.now().Add(-2 * b.timeout)
	for id, s := range b.slots {
		if s.createdAt.Before(cutoff) {
			delete(b.slots, id)
		}
	}
}

func (b *LocationBroker) release(id string) {
	b.mu.Lock()
	delete(b.slots, id)
	b.mu.Unlock()
}

func (b *LocationBroker) answer(id string, a locationAnswer) error {
	if id == "" {
		return domain.ErrLocationRequestNotFound
	}
	select {
	case b.slot(id).answer <- a:
		return nil
	default:
		return domain.ErrLocationRequestAnswered
	}
}

// Resolve posts the validator's coordinates for a pending request
func (b *LocationBroker) Resolve(id string, coords domain.Coordinates) error {
	return b.answer(id, locationAnswer{coords: &coords})
}

// Deny records that the validator refused to share a location
func (b *LocationBroker) Deny(id string) error {
	return b.answer(id, locationAnswer{err: domain.ErrLocationDenied})
}

// Pending reports how many requests are waiting or unanswered
func (b *LocationBroker) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.slots)
}

// Requester returns the requester side of request id
func (b *LocationBroker) Requester(id string) LocationRequester {
	return LocationRequesterFunc(func(ctx context.Context) (*domain.Coordinates, error) {
		if id == "" {
			return nil, domain.ErrLocationRequestNotFound
		}

		s := b.slot(id)
		defer b.release(id)

		ctx, cancel := context.WithTimeout(ctx, b.timeout)
		defer cancel()

		select {
		case a := <-s.answer:
			return a.coords, a.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}
