package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prohmpiriya/eventic-admission/internal/domain"
)

// MemoryTicketRepository implements TicketRepository using in-memory storage.
// Admissions on one ticket are serialised by a per-ticket mutex.
// This is useful for testing and development.
type MemoryTicketRepository struct {
	tickets     map[string]*domain.Ticket
	locks       map[string]*sync.Mutex
	outbox      *MemoryOutboxRepository
	outboxTopic string
	mu          sync.RWMutex
}

// NewMemoryTicketRepository creates a new in-memory ticket repository
func NewMemoryTicketRepository(outbox *MemoryOutboxRepository, outboxTopic string) *MemoryTicketRepository {
	if outbox == nil {
		outbox = NewMemoryOutboxRepository()
	}
	return &MemoryTicketRepository{
		tickets:     make(map[string]*domain.Ticket),
		locks:       make(map[string]*sync.Mutex),
		outbox:      outbox,
		outboxTopic: outboxTopic,
	}
}

// Create stores a ticket, replacing any ticket with the same ID
func (r *MemoryTicketRepository) Create(ctx context.Context, t *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tickets[t.ID] = cloneTicket(t)
	if _, ok := r.locks[t.ID]; !ok {
		r.locks[t.ID] = &sync.Mutex{}
	}
	return nil
}

// GetByID retrieves a ticket by its ID
func (r *MemoryTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tickets[id]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	return cloneTicket(t), nil
}

// HoldsTicket reports whether userID owns another ticket for the event
func (r *MemoryTicketRepository) HoldsTicket(ctx context.Context, eventID, userID, excludeTicketID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.tickets {
		if t.EventID == eventID && t.OwnerID == userID && t.ID != excludeTicketID {
			return true, nil
		}
	}
	return false, nil
}

// Admit applies one grant under the ticket's lock
func (r *MemoryTicketRepository) Admit(ctx context.Context, req *AdmitRequest) (*AdmitResult, error) {
	r.mu.RLock()
	lock, ok := r.locks[req.TicketID]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrTicketNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	stored := r.tickets[req.TicketID]
	r.mu.RUnlock()

	ticket := cloneTicket(stored)
	outcome, err := ticket.Admit(req.Reentry, req.Now)
	if err != nil {
		return nil, err
	}

	var assignment *domain.EffectAssignment
	if outcome.FirstGrant && req.Assign != nil {
		a := req.Assign(ticket)
		ticket.ApplyEffects(a)
		assignment = &a
	}

	msg, err := domain.NewTicketValidatedMessage(r.outboxTopic, ticket, outcome, req.ValidatorID, req.Now)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.tickets[ticket.ID] = ticket
	r.mu.Unlock()
	r.outbox.add(msg)

	return &AdmitResult{Ticket: cloneTicket(ticket), Outcome: outcome, Assignment: assignment}, nil
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	c := *t
	if t.ValidatedAt != nil {
		at := *t.ValidatedAt
		c.ValidatedAt = &at
	}
	if t.SpecialEffect != nil {
		effect := *t.SpecialEffect
		if effect.Colors != nil {
			colors := *effect.Colors
			effect.Colors = &colors
		}
		c.SpecialEffect = &effect
	}
	return &c
}

// MemoryEventRepository implements EventRepository using in-memory storage
type MemoryEventRepository struct {
	events    map[string]*domain.Event
	delegates map[string]map[string]*domain.Delegate // eventID -> userID -> delegate
	mu        sync.RWMutex
}

// NewMemoryEventRepository creates a new in-memory event repository
func NewMemoryEventRepository() *MemoryEventRepository {
	return &MemoryEventRepository{
		events:    make(map[string]*domain.Event),
		delegates: make(map[string]map[string]*domain.Delegate),
	}
}

// Create stores an event, replacing any event with the same ID
func (r *MemoryEventRepository) Create(ctx context.Context, e *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *e
	r.events[e.ID] = &c
	return nil
}

// GetByID retrieves an event by its ID
func (r *MemoryEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.events[id]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	c := *e
	return &c, nil
}

func (r *MemoryEventRepository) IsDelegate(ctx context.Context, eventID, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.delegates[eventID][userID]
	return ok, nil
}

func (r *MemoryEventRepository) ListDelegates(ctx context.Context, eventID string) ([]*domain.Delegate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Delegate, 0, len(r.delegates[eventID]))
	for _, d := range r.delegates[eventID] {
		c := *d
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryEventRepository) AddDelegate(ctx context.Context, d *domain.Delegate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[d.EventID]; !ok {
		return domain.ErrEventNotFound
	}
	if _, ok := r.delegates[d.EventID][d.UserID]; ok {
		return domain.ErrValidatorExists
	}
	if r.delegates[d.EventID] == nil {
		r.delegates[d.EventID] = make(map[string]*domain.Delegate)
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	c := *d
	r.delegates[d.EventID][d.UserID] = &c
	return nil
}

func (r *MemoryEventRepository) RemoveDelegate(ctx context.Context, eventID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.delegates[eventID][userID]; !ok {
		return domain.ErrValidatorNotFound
	}
	delete(r.delegates[eventID], userID)
	return nil
}

type storedCredential struct {
	cred        domain.Credential
	retainUntil time.Time
}

// MemoryCredentialRepository implements CredentialRepository using in-memory storage
type MemoryCredentialRepository struct {
	byToken  map[string]*storedCredential
	byPIN    map[string]*storedCredential
	byTicket map[string]*storedCredential
	now      func() time.Time
	mu       sync.Mutex
}

// NewMemoryCredentialRepository creates a new in-memory credential repository
func NewMemoryCredentialRepository() *MemoryCredentialRepository {
	return &MemoryCredentialRepository{
		byToken:  make(map[string]*storedCredential),
		byPIN:    make(map[string]*storedCredential),
		byTicket: make(map[string]*storedCredential),
		now:      time.Now,
	}
}

// WithClock replaces the clock used for retention, for tests
func (r *MemoryCredentialRepository) WithClock(now func() time.Time) *MemoryCredentialRepository {
	r.now = now
	return r
}

func (r *MemoryCredentialRepository) Save(ctx context.Context, cred *domain.Credential, retain time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if holder := r.live(r.byPIN, cred.PIN, now); holder != nil && holder.cred.TicketID != cred.TicketID {
		return domain.ErrPINCollision
	}

	// a lapsed code may have been handed to another ticket since
	if prev, ok := r.byTicket[cred.TicketID]; ok {
		if r.byToken[prev.cred.Token] == prev {
			delete(r.byToken, prev.cred.Token)
		}
		if r.byPIN[prev.cred.PIN] == prev {
			delete(r.byPIN, prev.cred.PIN)
		}
	}

	stored := &storedCredential{cred: *cred, retainUntil: now.Add(retain)}
	r.byToken[cred.Token] = stored
	r.byPIN[cred.PIN] = stored
	r.byTicket[cred.TicketID] = stored
	return nil
}

func (r *MemoryCredentialRepository) GetByToken(ctx context.Context, token string) (*domain.Credential, error) {
	return r.get(r.byToken, token)
}

func (r *MemoryCredentialRepository) GetByPIN(ctx context.Context, pin string) (*domain.Credential, error) {
	return r.get(r.byPIN, pin)
}

func (r *MemoryCredentialRepository) get(index map[string]*storedCredential, key string) (*domain.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := r.live(index, key, r.now())
	if stored == nil {
		return nil, domain.ErrCredentialNotFound
	}
	c := stored.cred
	return &c, nil
}

// live returns the record under key unless its retention has lapsed
func (r *MemoryCredentialRepository) live(index map[string]*storedCredential, key string, now time.Time) *storedCredential {
	stored, ok := index[key]
	if !ok || !now.Before(stored.retainUntil) {
		return nil
	}
	return stored
}

// MemoryOutboxRepository implements OutboxRepository using in-memory storage
type MemoryOutboxRepository struct {
	messages []*domain.OutboxMessage
	mu       sync.Mutex
}

// NewMemoryOutboxRepository creates a new in-memory outbox
func NewMemoryOutboxRepository() *MemoryOutboxRepository {
	return &MemoryOutboxRepository{}
}

func (r *MemoryOutboxRepository) add(msg *domain.OutboxMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	c := *msg
	r.messages = append(r.messages, &c)
}

// Messages returns a copy of every stored message, oldest first
func (r *MemoryOutboxRepository) Messages() []*domain.OutboxMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.OutboxMessage, 0, len(r.messages))
	for _, m := range r.messages {
		c := *m
		out = append(out, &c)
	}
	return out
}

func (r *MemoryOutboxRepository) GetPendingMessages(ctx context.Context, limit int) ([]*domain.OutboxMessage, error) {
	return r.filter(limit, func(m *domain.OutboxMessage) bool {
		return m.Status == domain.OutboxStatusPending
	}), nil
}

func (r *MemoryOutboxRepository) GetFailedMessages(ctx context.Context, limit int) ([]*domain.OutboxMessage, error) {
	return r.filter(limit, func(m *domain.OutboxMessage) bool {
		return m.CanRetry()
	}), nil
}

func (r *MemoryOutboxRepository) filter(limit int, keep func(*domain.OutboxMessage) bool) []*domain.OutboxMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.OutboxMessage
	for _, m := range r.messages {
		if limit > 0 && len(out) >= limit {
			break
		}
		if keep(m) {
			c := *m
			out = append(out, &c)
		}
	}
	return out
}

func (r *MemoryOutboxRepository) MarkAsPublished(ctx context.Context, id string) error {
	return r.update(id, func(m *domain.OutboxMessage) {
		now := time.Now()
		m.Status = domain.OutboxStatusPublished
		m.ProcessedAt = &now
		m.PublishedAt = &now
	})
}

func (r *MemoryOutboxRepository) MarkAsFailed(ctx context.Context, id string, errMsg string) error {
	return r.update(id, func(m *domain.OutboxMessage) {
		now := time.Now()
		m.Status = domain.OutboxStatusFailed
		m.LastError = errMsg
		m.RetryCount++
		m.ProcessedAt = &now
	})
}

func (r *MemoryOutboxRepository) update(id string, apply func(*domain.OutboxMessage)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.messages {
		if m.ID == id {
			apply(m)
			return nil
		}
	}
	return errOutboxMessageNotFound
}

func (r *MemoryOutboxRepository) DeletePublished(ctx context.Context, olderThanDays int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	kept := r.messages[:0]
	var deleted int64
	for _, m := range r.messages {
		if m.Status == domain.OutboxStatusPublished && m.PublishedAt != nil && m.PublishedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	r.messages = kept
	return deleted, nil
}

var (
	_ TicketRepository     = (*MemoryTicketRepository)(nil)
	_ EventRepository      = (*MemoryEventRepository)(nil)
	_ CredentialRepository = (*MemoryCredentialRepository)(nil)
	_ OutboxRepository     = (*MemoryOutboxRepository)(nil)
)
