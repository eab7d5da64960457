package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/eventic-admission/internal/domain"
	"github.com/prohmpiriya/eventic-admission/internal/effects"
	"github.com/prohmpiriya/eventic-admission/internal/repository"
)

// sequenceGenerator hands out predictable tokens and PINs. Scripted PINs are
// consumed in order and the last one repeats.
type sequenceGenerator struct {
	mu   sync.Mutex
	n    int
	pins []string
}

func (g *sequenceGenerator) Token() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%032x", g.n), nil
}

func (g *sequenceGenerator) PIN() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.pins) > 0 {
		pin := g.pins[0]
		if len(g.pins) > 1 {
			g.pins = g.pins[1:]
		}
		return pin, nil
	}
	return fmt.Sprintf("%04d", 1000+g.n), nil
}

type fixture struct {
	now         time.Time
	events      *repository.MemoryEventRepository
	tickets     *repository.MemoryTicketRepository
	creds       *repository.MemoryCredentialRepository
	outbox      *repository.MemoryOutboxRepository
	rng         *effects.FixedRand
	generator   *sequenceGenerator
	credentials CredentialService
	admission   AdmissionService
}

func newFixture(t *testing.T, draws ...float64) *fixture {
	t.Helper()

	f := &fixture{
		now:       time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC),
		events:    repository.NewMemoryEventRepository(),
		outbox:    repository.NewMemoryOutboxRepository(),
		rng:       effects.NewFixedRand(draws...),
		generator: &sequenceGenerator{},
	}
	clock := func() time.Time { return f.now }

	f.tickets = repository.NewMemoryTicketRepository(f.outbox, "ticket-admissions")
	f.creds = repository.NewMemoryCredentialRepository().WithClock(clock)
	f.credentials = NewCredentialService(f.creds, f.tickets, f.events, &CredentialServiceConfig{
		TTL:       3 * time.Minute,
		Retention: 15 * time.Minute,
		Generator: f.generator,
		Now:       clock,
	})
	engine := effects.NewEngine(&effects.EngineConfig{Rand: f.rng})
	f.admission = NewAdmissionService(f.credentials, f.tickets, f.events, engine, &AdmissionServiceConfig{
		DefaultRadius: 300,
		Now:           clock,
	})
	return f
}

// addEvent stores an event that started an hour before the fixture clock
func (f *fixture) addEvent(t *testing.T, e *domain.Event) *domain.Event {
	t.Helper()
	if e.OwnerID == "" {
		e.OwnerID = "owner"
	}
	if e.StartsAt.IsZero() {
		e.StartsAt = f.now.Add(-time.Hour)
	}
	if e.EarlyValidation == "" {
		e.EarlyValidation = domain.EarlyValidationAtStart
	}
	if e.ReentryType == "" {
		e.ReentryType = domain.ReentrySingleUse
	}
	require.NoError(t, f.events.Create(context.Background(), e))
	return e
}

func (f *fixture) addTicket(t *testing.T, tk *domain.Ticket) *domain.Ticket {
	t.Helper()
	require.NoError(t, f.tickets.Create(context.Background(), tk))
	return tk
}

func (f *fixture) issue(t *testing.T, holderID, ticketID string, loc *domain.Coordinates) *domain.Credential {
	t.Helper()
	cred, err := f.credentials.Issue(context.Background(), holderID, ticketID, loc)
	require.NoError(t, err)
	return cred
}

func (f *fixture) ticket(t *testing.T, id string) *domain.Ticket {
	t.Helper()
	tk, err := f.tickets.GetByID(context.Background(), id)
	require.NoError(t, err)
	return tk
}
