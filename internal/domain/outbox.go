package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus represents the status of an outbox message
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

const (
	AggregateTicket          = "ticket"
	EventTypeTicketValidated = "ticket.validated"
	DefaultOutboxMaxRetries  = 5
)

// OutboxMessage is a row of the transactional outbox
type OutboxMessage struct {
	ID            string       `json:"id"`
	AggregateType string       `json:"aggregate_type"`
	AggregateID   string       `json:"aggregate_id"`
	EventType     string       `json:"event_type"`
	Payload       []byte       `json:"payload"`
	Topic         string       `json:"topic"`
	PartitionKey  string       `json:"partition_key"`
	Status        OutboxStatus `json:"status"`
	RetryCount    int          `json:"retry_count"`
	MaxRetries    int          `json:"max_retries"`
	LastError     string       `json:"last_error,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	ProcessedAt   *time.Time   `json:"processed_at,omitempty"`
	PublishedAt   *time.Time   `json:"published_at,omitempty"`
}

// TicketValidatedEvent is the payload published on every grant
type TicketValidatedEvent struct {
	EventID    string          `json:"event_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Ticket     *TicketSnapshot `json:"ticket"`
	UseCount   int             `json:"use_count"`
	FirstGrant bool            `json:"first_grant"`
	// ValidatorID is the user who granted entry
	ValidatorID string `json:"validator_id,omitempty"`
}

// NewTicketValidatedMessage builds the outbox row for a grant. Messages are
// keyed by ticket so consumers see a ticket's grants in order.
func NewTicketValidatedMessage(topic string, t *Ticket, outcome *AdmitOutcome, validatorID string, now time.Time) (*OutboxMessage, error) {
	payload, err := json.Marshal(&TicketValidatedEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  now,
		Ticket:      t.Snapshot(),
		UseCount:    outcome.UseCount,
		FirstGrant:  outcome.FirstGrant,
		ValidatorID: validatorID,
	})
	if err != nil {
		return nil, err
	}

	return &OutboxMessage{
		ID:            uuid.NewString(),
		AggregateType: AggregateTicket,
		AggregateID:   t.ID,
		EventType:     EventTypeTicketValidated,
		Payload:       payload,
		Topic:         topic,
		PartitionKey:  t.ID,
		Status:        OutboxStatusPending,
		MaxRetries:    DefaultOutboxMaxRetries,
		CreatedAt:     now,
	}, nil
}

// CanRetry checks if a failed message may be published again
func (m *OutboxMessage) CanRetry() bool {
	return m.Status == OutboxStatusFailed && m.RetryCount < m.MaxRetries
}
