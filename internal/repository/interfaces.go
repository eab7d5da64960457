package repository

import (
	"context"
	"time"

	"github.com/prohmpiriya/eventic-admission/internal/domain"
)

// TicketRepository defines the interface for ticket data access
type TicketRepository interface {
	// GetByID retrieves a ticket by ID, or domain.ErrTicketNotFound
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// HoldsTicket reports whether userID owns a ticket for the event other than excludeTicketID
	HoldsTicket(ctx context.Context, eventID, userID, excludeTicketID string) (bool, error)
	// Admit atomically applies one granted use to a ticket
	Admit(ctx context.Context, req *AdmitRequest) (*AdmitResult, error)
}

// AdmitRequest describes one admission transition
type AdmitRequest struct {
	TicketID    string
	Reentry     domain.ReentryType
	ValidatorID string
	Now         time.Time
	// Assign is called inside the transaction on the first grant only
	Assign domain.AssignFunc
}

// AdmitResult is the committed state after a grant
type AdmitResult struct {
	Ticket  *domain.Ticket
	Outcome *domain.AdmitOutcome
	// Assignment is nil unless this grant drew effects
	Assignment *domain.EffectAssignment
}

// EventRepository defines the interface for event data access
type EventRepository interface {
	// GetByID retrieves an event by ID, or domain.ErrEventNotFound
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	// IsDelegate reports whether userID may validate for the event by delegation
	IsDelegate(ctx context.Context, eventID, userID string) (bool, error)
	// ListDelegates lists the delegated validators of an event
	ListDelegates(ctx context.Context, eventID string) ([]*domain.Delegate, error)
	// AddDelegate adds a delegated validator, or domain.ErrValidatorExists
	AddDelegate(ctx context.Context, d *domain.Delegate) error
	// RemoveDelegate removes a delegated validator, or domain.ErrValidatorNotFound
	RemoveDelegate(ctx context.Context, eventID, userID string) error
}

// CredentialRepository stores the live credential of each ticket
type CredentialRepository interface {
	// Save stores cred as the ticket's only credential, revoking any previous one.
	// It returns domain.ErrPINCollision if the PIN belongs to another live credential.
	Save(ctx context.Context, cred *domain.Credential, retain time.Duration) error
	// GetByToken resolves a scan token, or domain.ErrCredentialNotFound
	GetByToken(ctx context.Context, token string) (*domain.Credential, error)
	// GetByPIN resolves a manual PIN, or domain.ErrCredentialNotFound
	GetByPIN(ctx context.Context, pin string) (*domain.Credential, error)
}

// OutboxRepository defines the interface for outbox data access
type OutboxRepository interface {
	// GetPendingMessages gets pending messages to be published
	GetPendingMessages(ctx context.Context, limit int) ([]*domain.OutboxMessage, error)
	// GetFailedMessages gets failed messages that can be retried
	GetFailedMessages(ctx context.Context, limit int) ([]*domain.OutboxMessage, error)
	// MarkAsPublished marks a message as successfully published
	MarkAsPublished(ctx context.Context, id string) error
	// MarkAsFailed marks a message as failed
	MarkAsFailed(ctx context.Context, id string, errMsg string) error
	// DeletePublished deletes old published messages for cleanup
	DeletePublished(ctx context.Context, olderThanDays int) (int64, error)
}
