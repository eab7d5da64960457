package service

import (
	"context"

	"github.com/prohmpiriya/eventic-admission/internal/domain"
	"github.com/prohmpiriya/eventic-admission/internal/repository"
	"github.com/prohmpiriya/eventic-admission/pkg/telemetry"
)

// TicketStatus is a ticket's post-validation view plus its usage state
type TicketStatus struct {
	*domain.TicketSnapshot
	State         domain.UsageState  `json:"state"`
	ReentryType   domain.ReentryType `json:"reentry_type"`
	RemainingUses *int               `json:"remaining_uses,omitempty"`
}

// TicketService exposes read access to tickets
type TicketService interface {
	// GetStatus returns the ticket snapshot. The holder, the event owner and
	// delegates may read it; anyone else gets domain.ErrTicketNotFound.
	GetStatus(ctx context.Context, userID, ticketID string) (*TicketStatus, error)
}

type ticketService struct {
	tickets repository.TicketRepository
	events  repository.EventRepository
}

// NewTicketService creates a new ticket service
func NewTicketService(tickets repository.TicketRepository, events repository.EventRepository) TicketService {
	return &ticketService{tickets: tickets, events: events}
}

func (s *ticketService) GetStatus(ctx context.Context, userID, ticketID string) (*TicketStatus, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.ticket.get_status")
	defer span.End()

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	event, err := s.events.GetByID(ctx, ticket.EventID)
	if err != nil {
		return nil, err
	}

	if ticket.OwnerID != userID && !event.IsOwner(userID) {
		delegated, err := s.events.IsDelegate(ctx, event.ID, userID)
		if err != nil {
			return nil, err
		}
		if !delegated {
			return nil, domain.ErrTicketNotFound
		}
	}

	status := &TicketStatus{
		TicketSnapshot: ticket.Snapshot(),
		State:          ticket.UsageState(event.ReentryType),
		ReentryType:    event.ReentryType,
	}
	if limit := ticket.UseLimit(event.ReentryType); limit > 0 {
		remaining := limit - ticket.UseCount
		if remaining < 0 {
			remaining = 0
		}
		status.RemainingUses = &remaining
	}
	return status, nil
}
