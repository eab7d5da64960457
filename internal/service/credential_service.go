package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/prohmpiriya/eventic-admission/internal/domain"
	"github.com/prohmpiriya/eventic-admission/internal/metrics"
	"github.com/prohmpiriya/eventic-admission/internal/repository"
	"github.com/prohmpiriya/eventic-admission/pkg/logger"
	"github.com/prohmpiriya/eventic-admission/pkg/telemetry"
)

const maxPINAttempts = 5

// CredentialService issues and resolves ticket credentials
type CredentialService interface {
	// Issue creates a fresh credential for the holder's ticket, revoking the previous one
	Issue(ctx context.Context, holderID, ticketID string, holderLocation *domain.Coordinates) (*domain.Credential, error)
	// Resolve maps a presented code to its credential. It never mutates ticket state.
	Resolve(ctx context.Context, raw string, now time.Time) (*domain.Credential, error)
}

// CodeGenerator produces credential secrets
type CodeGenerator interface {
	Token() (string, error)
	PIN() (string, error)
}

type randomCodeGenerator struct{}

// NewRandomCodeGenerator returns a crypto/rand backed generator
func NewRandomCodeGenerator() CodeGenerator {
	return randomCodeGenerator{}
}

func (randomCodeGenerator) Token() (string, error) {
	b := make([]byte, domain.TokenLength/2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (randomCodeGenerator) PIN() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", domain.PINLength, n.Int64()), nil
}

// CredentialServiceConfig contains configuration for the credential service
type CredentialServiceConfig struct {
	TTL       time.Duration
	Retention time.Duration
	Generator CodeGenerator
	Now       func() time.Time
}

type credentialService struct {
	credentials repository.CredentialRepository
	tickets     repository.TicketRepository
	events      repository.EventRepository
	generator   CodeGenerator
	ttl         time.Duration
	retention   time.Duration
	now         func() time.Time
}

// NewCredentialService creates a new credential service
func NewCredentialService(
	credentials repository.CredentialRepository,
	tickets repository.TicketRepository,
	events repository.EventRepository,
	cfg *CredentialServiceConfig,
) CredentialService {
	s := &credentialService{
		credentials: credentials,
		tickets:     tickets,
		events:      events,
		generator:   NewRandomCodeGenerator(),
		ttl:         3 * time.Minute,
		now:         time.Now,
	}
	if cfg != nil {
		if cfg.TTL > 0 {
			s.ttl = cfg.TTL
		}
		if cfg.Retention > 0 {
			s.retention = cfg.Retention
		}
		if cfg.Generator != nil {
			s.generator = cfg.Generator
		}
		if cfg.Now != nil {
			s.now = cfg.Now
		}
	}
	if s.retention < s.ttl {
		s.retention = 5 * s.ttl
	}
	return s
}

// Issue creates a fresh credential for a ticket the holder owns
func (s *credentialService) Issue(ctx context.Context, holderID, ticketID string, holderLocation *domain.Coordinates) (*domain.Credential, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.credential.issue")
	defer span.End()
	span.SetAttributes(attribute.String("ticket_id", ticketID))

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.OwnerID != holderID {
		return nil, domain.ErrNotTicketOwner
	}

	event, err := s.events.GetByID(ctx, ticket.EventID)
	if err != nil {
		return nil, err
	}
	if ticket.CanAdmit(event.ReentryType) != nil {
		return nil, domain.ErrTicketFullyUsed
	}

	for attempt := 1; attempt <= maxPINAttempts; attempt++ {
		cred, err := s.newCredential(ticket, holderLocation)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to generate credential: %w", err)
		}

		err = s.credentials.Save(ctx, cred, s.retention)
		if err == nil {
			metrics.CredentialIssued()
			return cred, nil
		}
		if !errors.Is(err, domain.ErrPINCollision) {
			telemetry.RecordError(span, err)
			return nil, err
		}

		logger.Get().WithContext(ctx).Debug("pin collision, regenerating",
			zap.String("ticket_id", ticketID),
			zap.Int("attempt", attempt),
		)
	}

	return nil, fmt.Errorf("no free pin after %d attempts: %w", maxPINAttempts, domain.ErrPINCollision)
}

func (s *credentialService) newCredential(ticket *domain.Ticket, holderLocation *domain.Coordinates) (*domain.Credential, error) {
	token, err := s.generator.Token()
	if err != nil {
		return nil, err
	}
	pin, err := s.generator.PIN()
	if err != nil {
		return nil, err
	}

	now := s.now()
	cred := &domain.Credential{
		TicketID:  ticket.ID,
		EventID:   ticket.EventID,
		Token:     token,
		PIN:       pin,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	if holderLocation != nil {
		loc := *holderLocation
		cred.HolderLocation = &loc
	}
	return cred, nil
}

// Resolve maps a presented code to a live credential
func (s *credentialService) Resolve(ctx context.Context, raw string, now time.Time) (*domain.Credential, error) {
	input, err := domain.ParseCredential(raw)
	if err != nil {
		return nil, err
	}

	var cred *domain.Credential
	switch input.Kind {
	case domain.CredentialPIN:
		cred, err = s.credentials.GetByPIN(ctx, input.Value)
	default:
		cred, err = s.credentials.GetByToken(ctx, input.Value)
	}
	if err != nil {
		if errors.Is(err, domain.ErrCredentialNotFound) {
			return nil, domain.ErrInvalidCode
		}
		return nil, err
	}

	if cred.Expired(now) {
		return nil, domain.ErrExpiredCode
	}
	return cred, nil
}
