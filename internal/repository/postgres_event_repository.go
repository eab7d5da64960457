package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prohmpiriya/eventic-admission/internal/domain"
)

const eventColumns = `
	id, owner_id, name, starts_at, ends_at,
	venue_latitude, venue_longitude,
	early_validation, reentry_type, max_uses,
	geofence_enabled, geofence_radius_meters,
	p2p_validation, special_effects_enabled,
	golden_ticket_enabled, golden_ticket_probability,
	created_at, updated_at
`

// PostgresEventRepository implements EventRepository using PostgreSQL
type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEventRepository creates a new PostgresEventRepository
func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

// GetByID retrieves an event by ID
func (r *PostgresEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	var (
		e           domain.Event
		lat, lng    *float64
		radius      *float64
		earlyPolicy string
		reentryType string
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&e.ID,
		&e.OwnerID,
		&e.Name,
		&e.StartsAt,
		&e.EndsAt,
		&lat,
		&lng,
		&earlyPolicy,
		&reentryType,
		&e.MaxUses,
		&e.Geofence.Enabled,
		&radius,
		&e.P2PValidation,
		&e.SpecialEffectsEnabled,
		&e.GoldenTicketEnabled,
		&e.GoldenTicketProbability,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	e.EarlyValidation = domain.EarlyValidation(earlyPolicy)
	e.ReentryType = domain.ReentryType(reentryType)
	if lat != nil && lng != nil {
		e.Venue = &domain.Coordinates{Latitude: *lat, Longitude: *lng}
	}
	if radius != nil {
		e.Geofence.RadiusMeters = *radius
	}
	return &e, nil
}

// Create inserts an event. Used by fixtures and integration tests.
func (r *PostgresEventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	now := time.Now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = now
	}

	var lat, lng, radius *float64
	if e.Venue != nil {
		lat, lng = &e.Venue.Latitude, &e.Venue.Longitude
	}
	if e.Geofence.RadiusMeters > 0 {
		radius = &e.Geofence.RadiusMeters
	}

	_, err := r.pool.Exec(ctx, query,
		e.ID, e.OwnerID, e.Name, e.StartsAt, e.EndsAt,
		lat, lng,
		string(e.EarlyValidation), string(e.ReentryType), e.MaxUses,
		e.Geofence.Enabled, radius,
		e.P2PValidation, e.SpecialEffectsEnabled,
		e.GoldenTicketEnabled, e.GoldenTicketProbability,
		e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// IsDelegate reports whether userID was delegated validation rights
func (r *PostgresEventRepository) IsDelegate(ctx context.Context, eventID, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM event_validators WHERE event_id = $1 AND user_id = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, eventID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check delegate: %w", err)
	}
	return exists, nil
}

// ListDelegates lists delegated validators, oldest first
func (r *PostgresEventRepository) ListDelegates(ctx context.Context, eventID string) ([]*domain.Delegate, error) {
	query := `
		SELECT event_id, user_id, granted_by, created_at
		FROM event_validators
		WHERE event_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list delegates: %w", err)
	}
	defer rows.Close()

	delegates := make([]*domain.Delegate, 0)
	for rows.Next() {
		d := &domain.Delegate{}
		if err := rows.Scan(&d.EventID, &d.UserID, &d.GrantedBy, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan delegate: %w", err)
		}
		delegates = append(delegates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating delegates: %w", err)
	}
	return delegates, nil
}

// AddDelegate inserts a delegated validator
func (r *PostgresEventRepository) AddDelegate(ctx context.Context, d *domain.Delegate) error {
	query := `
		INSERT INTO event_validators (event_id, user_id, granted_by, created_at)
		VALUES ($1, $2, $3, $4)
	`

	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}

	_, err := r.pool.Exec(ctx, query, d.EventID, d.UserID, d.GrantedBy, d.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				return domain.ErrValidatorExists
			case pgerrcode.ForeignKeyViolation:
				return domain.ErrEventNotFound
			}
		}
		return fmt.Errorf("failed to add delegate: %w", err)
	}
	return nil
}

// RemoveDelegate deletes a delegated validator
func (r *PostgresEventRepository) RemoveDelegate(ctx context.Context, eventID, userID string) error {
	query := `DELETE FROM event_validators WHERE event_id = $1 AND user_id = $2`

	result, err := r.pool.Exec(ctx, query, eventID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove delegate: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrValidatorNotFound
	}
	return nil
}

// Ensure PostgresEventRepository implements EventRepository
var _ EventRepository = (*PostgresEventRepository)(nil)
