package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/eventic-admission/internal/domain"
	"github.com/prohmpiriya/eventic-admission/internal/repository"
	"github.com/prohmpiriya/eventic-admission/pkg/logger"
	"github.com/prohmpiriya/eventic-admission/pkg/telemetry"
)

// ValidatorService manages the delegated validators of an event.
// Only the event owner may call it.
type ValidatorService interface {
	List(ctx context.Context, callerID, eventID string) ([]*domain.Delegate, error)
	Add(ctx context.Context, callerID, eventID, userID string) (*domain.Delegate, error)
	Remove(ctx context.Context, callerID, eventID, userID string) error
}

type validatorService struct {
	events repository.EventRepository
	now    func() time.Time
}

// NewValidatorService creates a new validator service
func NewValidatorService(events repository.EventRepository) ValidatorService {
	return &validatorService{events: events, now: time.Now}
}

func (s *validatorService) ownedEvent(ctx context.Context, callerID, eventID string) (*domain.Event, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsOwner(callerID) {
		return nil, domain.ErrNotEventOwner
	}
	return event, nil
}

func (s *validatorService) List(ctx context.Context, callerID, eventID string) ([]*domain.Delegate, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.validator.list")
	defer span.End()

	if _, err := s.ownedEvent(ctx, callerID, eventID); err != nil {
		return nil, err
	}
	return s.events.ListDelegates(ctx, eventID)
}

func (s *validatorService) Add(ctx context.Context, callerID, eventID, userID string) (*domain.Delegate, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.validator.add")
	defer span.End()

	event, err := s.ownedEvent(ctx, callerID, eventID)
	if err != nil {
		return nil, err
	}

	userID = strings.TrimSpace(userID)
	if event.IsOwner(userID) {
		return nil, domain.ErrCannotDelegateOwner
	}

	d := &domain.Delegate{
		EventID:   eventID,
		UserID:    userID,
		GrantedBy: callerID,
		CreatedAt: s.now(),
	}
	if err := s.events.AddDelegate(ctx, d); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	logger.Get().WithContext(ctx).Info("validator delegated",
		zap.String("event_id", eventID),
		zap.String("user_id", userID),
	)
	return d, nil
}

func (s *validatorService) Remove(ctx context.Context, callerID, eventID, userID string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.validator.remove")
	defer span.End()

	if _, err := s.ownedEvent(ctx, callerID, eventID); err != nil {
		return err
	}
	if err := s.events.RemoveDelegate(ctx, eventID, userID); err != nil {
		return err
	}

	logger.Get().WithContext(ctx).Info("validator removed",
		zap.String("event_id", eventID),
		zap.String("user_id", userID),
	)
	return nil
}
