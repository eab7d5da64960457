package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/prohmpiriya/eventic-admission/internal/domain"
	"github.com/prohmpiriya/eventic-admission/internal/effects"
	"github.com/prohmpiriya/eventic-admission/internal/metrics"
	"github.com/prohmpiriya/eventic-admission/internal/repository"
	"github.com/prohmpiriya/eventic-admission/pkg/logger"
	"github.com/prohmpiriya/eventic-admission/pkg/telemetry"
)

// AdmissionService decides admission attempts
type AdmissionService interface {
	// Validate runs every check and returns exactly one decision. The error is
	// reserved for infrastructure failures; refusals are decisions.
	Validate(ctx context.Context, attempt *domain.ValidationAttempt) (*domain.Decision, error)

	// ValidateWithLocation behaves like Validate, but when the only missing
	// input is the validator's location it asks requester for it and retries.
	ValidateWithLocation(ctx context.Context, attempt *domain.ValidationAttempt, requester LocationRequester) (*domain.Decision, error)
}

// AdmissionServiceConfig contains configuration for the admission service
type AdmissionServiceConfig struct {
	// DefaultRadius applies to geofenced events without their own radius
	DefaultRadius float64
	Now           func() time.Time
}

type admissionService struct {
	credentials   CredentialService
	tickets       repository.TicketRepository
	events        repository.EventRepository
	engine        effects.Engine
	defaultRadius float64
	now           func() time.Time
}

// NewAdmissionService creates a new admission service
func NewAdmissionService(
	credentials CredentialService,
	tickets repository.TicketRepository,
	events repository.EventRepository,
	engine effects.Engine,
	cfg *AdmissionServiceConfig,
) AdmissionService {
	s := &admissionService{
		credentials:   credentials,
		tickets:       tickets,
		events:        events,
		engine:        engine,
		defaultRadius: 300,
		now:           time.Now,
	}
	if cfg != nil {
		if cfg.DefaultRadius > 0 {
			s.defaultRadius = cfg.DefaultRadius
		}
		if cfg.Now != nil {
			s.now = cfg.Now
		}
	}
	if s.engine == nil {
		s.engine = effects.NewEngine(nil)
	}
	return s
}

// Validate decides one attempt
func (s *admissionService) Validate(ctx context.Context, attempt *domain.ValidationAttempt) (*domain.Decision, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.admission.validate")
	defer span.End()

	start := time.Now()
	in, err := s.decide(ctx, attempt)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return s.finalize(ctx, attempt, in, start), nil
}

// ValidateWithLocation decides one attempt, fetching the validator's location
// at most once
func (s *admissionService) ValidateWithLocation(ctx context.Context, attempt *domain.ValidationAttempt, requester LocationRequester) (*domain.Decision, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.admission.validate_with_location")
	defer span.End()

	start := time.Now()
	in, err := s.decide(ctx, attempt)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if requester == nil || !needsValidatorLocation(in) {
		return s.finalize(ctx, attempt, in, start), nil
	}

	log := logger.Get().WithContext(ctx)
	coords, err := requester.RequestLocation(ctx)
	switch {
	case err == nil && coords != nil && coords.Valid():
		metrics.LocationRequest(metrics.LocationResolved)
		span.AddEvent("location resolved")

		retry := *attempt
		retry.ValidatorLocation = coords
		in, err = s.decide(ctx, &retry)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		return s.finalize(ctx, &retry, in, start), nil

	case err == nil, errors.Is(err, domain.ErrLocationDenied):
		metrics.LocationRequest(metrics.LocationDenied)
		log.Info("validator denied location", zap.String("validator_id", attempt.ValidatorID))

	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		metrics.LocationRequest(metrics.LocationTimeout)
		log.Warn("location request timed out", zap.String("validator_id", attempt.ValidatorID))

	default:
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to request validator location: %w", err)
	}

	in.Category = domain.CategoryLocationDenied
	return s.finalize(ctx, attempt, in, start), nil
}

func needsValidatorLocation(in *domain.DecisionInput) bool {
	return in.Category == domain.CategoryLocationRequired &&
		in.Geofence != nil && in.Geofence.ValidatorMissing
}

// decide runs the checks in order and stops at the first refusal. The
// returned input always carries the facts established so far.
func (s *admissionService) decide(ctx context.Context, attempt *domain.ValidationAttempt) (*domain.DecisionInput, error) {
	in := &domain.DecisionInput{Authorization: domain.Authorization{Role: domain.RoleNone}}
	if attempt == nil {
		in.Category = domain.CategoryInvalidCode
		return in, nil
	}

	now := attempt.At
	if now.IsZero() {
		now = s.now()
	}

	refuse := func(err error) (*domain.DecisionInput, error) {
		category, ok := domain.CategoryFor(err)
		if !ok {
			return nil, err
		}
		in.Category = category
		return in, nil
	}

	cred, err := s.credentials.Resolve(ctx, attempt.Credential, now)
	if err != nil {
		return refuse(err)
	}

	ticket, err := s.tickets.GetByID(ctx, cred.TicketID)
	if err != nil {
		return refuse(err)
	}
	event, err := s.events.GetByID(ctx, ticket.EventID)
	if err != nil {
		return refuse(err)
	}

	// A credential minted for another event, or scanned at the wrong event's
	// gate, is not authentic here.
	if cred.EventID != ticket.EventID || (attempt.EventID != "" && attempt.EventID != ticket.EventID) {
		return refuse(domain.ErrInvalidCode)
	}
	in.IsAuthentic = true
	in.Ticket = ticket

	authz, err := s.authorize(ctx, event, ticket, attempt.ValidatorID)
	if err != nil {
		return nil, err
	}
	in.Authorization = authz
	if !authz.CanValidate {
		return refuse(domain.ErrUnauthorized)
	}

	if err := ticket.CanAdmit(event.ReentryType); err != nil {
		return refuse(err)
	}

	if !event.WithinValidationWindow(now) {
		return refuse(domain.ErrOutsideValidTime)
	}

	if event.Geofence.Enabled && event.Venue == nil {
		logger.Get().WithContext(ctx).Warn("geofence enabled without venue coordinates, skipping",
			zap.String("event_id", event.ID),
		)
	}
	holder := attempt.HolderLocation
	if holder == nil {
		holder = cred.HolderLocation
	}
	fence := domain.EvaluateGeofence(event.Geofence, s.radiusFor(event), event.Venue, attempt.ValidatorLocation, holder)
	in.Geofence = &fence
	if fence.LocationRequired() {
		return refuse(domain.ErrLocationRequired)
	}
	if !fence.Within {
		return refuse(domain.ErrOutsideGeofence)
	}

	res, err := s.tickets.Admit(ctx, &repository.AdmitRequest{
		TicketID:    ticket.ID,
		Reentry:     event.ReentryType,
		ValidatorID: attempt.ValidatorID,
		Now:         now,
		Assign:      s.engine.Assigner(event),
	})
	if err != nil {
		// Lost a race to a concurrent grant: report the state the winner left.
		if errors.Is(err, domain.ErrConcurrentUpdate) {
			return refuse(domain.ErrAlreadyValidated)
		}
		return refuse(err)
	}

	in.Category = domain.CategoryGranted
	in.Ticket = res.Ticket
	in.Assignment = res.Assignment
	return in, nil
}

func (s *admissionService) authorize(ctx context.Context, event *domain.Event, ticket *domain.Ticket, validatorID string) (domain.Authorization, error) {
	input := domain.AuthorizationInput{
		Event:       event,
		Ticket:      ticket,
		ValidatorID: validatorID,
	}

	if validatorID != "" && !event.IsOwner(validatorID) {
		delegated, err := s.events.IsDelegate(ctx, event.ID, validatorID)
		if err != nil {
			return domain.Authorization{}, fmt.Errorf("failed to check delegate: %w", err)
		}
		input.Delegated = delegated

		if !delegated && event.P2PValidation {
			holds, err := s.tickets.HoldsTicket(ctx, event.ID, validatorID, ticket.ID)
			if err != nil {
				return domain.Authorization{}, fmt.Errorf("failed to check peer ticket: %w", err)
			}
			input.HoldsOtherTicket = holds
		}
	}

	return domain.Authorize(input), nil
}

func (s *admissionService) radiusFor(event *domain.Event) float64 {
	if event.Geofence.RadiusMeters > 0 {
		return event.Geofence.RadiusMeters
	}
	return s.defaultRadius
}

func (s *admissionService) finalize(ctx context.Context, attempt *domain.ValidationAttempt, in *domain.DecisionInput, start time.Time) *domain.Decision {
	decision := domain.Compose(*in)

	metrics.ObserveDecision(string(decision.Category), string(decision.ValidatorRole), time.Since(start))
	if a := in.Assignment; a != nil {
		if a.Golden {
			metrics.GoldenTicket()
		}
		if a.Effect != nil {
			metrics.EffectAssigned(string(a.Effect.Type))
		}
	}

	fields := []zap.Field{
		zap.String("category", string(decision.Category)),
		zap.String("role", string(decision.ValidatorRole)),
	}
	if attempt != nil {
		fields = append(fields, zap.String("validator_id", attempt.ValidatorID))
	}
	if in.Ticket != nil {
		fields = append(fields, zap.String("ticket_id", in.Ticket.ID))
	}

	log := logger.Get().WithContext(ctx)
	if decision.Valid {
		log.Info("ticket admitted", fields...)
	} else {
		log.Debug("admission refused", fields...)
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("admission.category", string(decision.Category)),
		attribute.Bool("admission.valid", decision.Valid),
	)

	return decision
}
