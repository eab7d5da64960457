package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prohmpiriya/eventic-admission/internal/domain"
	"github.com/prohmpiriya/eventic-admission/pkg/telemetry"
)

const ticketColumns = `
	id, event_id, owner_id, ticket_number, use_count, max_uses,
	validated_at, is_golden_ticket,
	special_effect_type, special_effect_primary, special_effect_secondary,
	created_at, updated_at
`

// PostgresTicketRepository implements TicketRepository using PostgreSQL.
// Admit writes the ticket and its outbox message in one transaction.
type PostgresTicketRepository struct {
	pool        *pgxpool.Pool
	outboxRepo  *PostgresOutboxRepository
	outboxTopic string
}

// NewPostgresTicketRepository creates a new PostgresTicketRepository
func NewPostgresTicketRepository(pool *pgxpool.Pool, outboxTopic string) *PostgresTicketRepository {
	return &PostgresTicketRepository{
		pool:        pool,
		outboxRepo:  NewPostgresOutboxRepository(pool),
		outboxTopic: outboxTopic,
	}
}

// GetByID retrieves a ticket by ID
func (r *PostgresTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`

	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return ticket, nil
}

// HoldsTicket reports whether userID owns another ticket for the event
func (r *PostgresTicketRepository) HoldsTicket(ctx context.Context, eventID, userID, excludeTicketID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM tickets WHERE event_id = $1 AND owner_id = $2 AND id <> $3)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, eventID, userID, excludeTicketID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check ticket ownership: %w", err)
	}
	return exists, nil
}

// Admit locks the ticket row, applies the transition, draws effects on the
// first grant, and records the outbox message before committing.
func (r *PostgresTicketRepository) Admit(ctx context.Context, req *AdmitRequest) (*AdmitResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.ticket.admit")
	defer span.End()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1 FOR UPDATE`
	ticket, err := scanTicket(tx.QueryRow(ctx, query, req.TicketID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to lock ticket: %w", err)
	}

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

	if err := r.updateTicketTx(ctx, tx, ticket, outcome.PreviousCount); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	msg, err := domain.NewTicketValidatedMessage(r.outboxTopic, ticket, outcome, req.ValidatorID, req.Now)
	if err != nil {
		return nil, fmt.Errorf("failed to create outbox event: %w", err)
	}
	if err := r.outboxRepo.CreateTx(ctx, tx, msg); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &AdmitResult{Ticket: ticket, Outcome: outcome, Assignment: assignment}, nil
}

// updateTicketTx writes the transition, guarded by the use count read under lock
func (r *PostgresTicketRepository) updateTicketTx(ctx context.Context, tx pgx.Tx, t *domain.Ticket, previousCount int) error {
	query := `
		UPDATE tickets SET
			use_count = $2,
			validated_at = $3,
			is_golden_ticket = $4,
			special_effect_type = $5,
			special_effect_primary = $6,
			special_effect_secondary = $7,
			updated_at = $8
		WHERE id = $1 AND use_count = $9
	`

	effectType, primary, secondary := effectColumns(t.SpecialEffect)
	result, err := tx.Exec(ctx, query,
		t.ID,
		t.UseCount,
		t.ValidatedAt,
		t.IsGoldenTicket,
		effectType,
		primary,
		secondary,
		t.UpdatedAt,
		previousCount,
	)
	if err != nil {
		return fmt.Errorf("failed to update ticket: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrConcurrentUpdate
	}
	return nil
}

// Create inserts a ticket. Used by fixtures and integration tests.
func (r *PostgresTicketRepository) Create(ctx context.Context, t *domain.Ticket) error {
	query := `
		INSERT INTO tickets (` + ticketColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}

	effectType, primary, secondary := effectColumns(t.SpecialEffect)
	_, err := r.pool.Exec(ctx, query,
		t.ID, t.EventID, t.OwnerID, t.Number, t.UseCount, t.MaxUses,
		t.ValidatedAt, t.IsGoldenTicket,
		effectType, primary, secondary,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

func effectColumns(e *domain.SpecialEffect) (effectType, primary, secondary *string) {
	if e == nil {
		return nil, nil, nil
	}
	typ := string(e.Type)
	effectType = &typ
	if e.Colors != nil {
		primary = &e.Colors.Primary
		secondary = &e.Colors.Secondary
	}
	return effectType, primary, secondary
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	t := &domain.Ticket{}
	var (
		effectType *string
		primary    *string
		secondary  *string
	)

	err := row.Scan(
		&t.ID,
		&t.EventID,
		&t.OwnerID,
		&t.Number,
		&t.UseCount,
		&t.MaxUses,
		&t.ValidatedAt,
		&t.IsGoldenTicket,
		&effectType,
		&primary,
		&secondary,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if effectType != nil {
		t.SpecialEffect = &domain.SpecialEffect{Type: domain.EffectType(*effectType)}
		if primary != nil && secondary != nil {
			t.SpecialEffect.Colors = &domain.ColorPair{Primary: *primary, Secondary: *secondary}
		}
	}
	return t, nil
}

// Ensure PostgresTicketRepository implements TicketRepository
var _ TicketRepository = (*PostgresTicketRepository)(nil)
