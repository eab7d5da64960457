package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/prohmpiriya/eventic-admission/internal/domain"
)

// EventCreator is implemented by the memory and postgres event repositories
type EventCreator interface {
	Create(ctx context.Context, e *domain.Event) error
	AddDelegate(ctx context.Context, d *domain.Delegate) error
}

// TicketCreator is implemented by the memory and postgres ticket repositories
type TicketCreator interface {
	Create(ctx context.Context, t *domain.Ticket) error
}

// SeedFile is the YAML layout accepted by LoadSeed
type SeedFile struct {
	Events  []SeedEvent  `yaml:"events"`
	Tickets []SeedTicket `yaml:"tickets"`
}

// SeedEvent describes one event and its delegated validators
type SeedEvent struct {
	ID                      string           `yaml:"id"`
	OwnerID                 string           `yaml:"owner_id"`
	Name                    string           `yaml:"name"`
	StartsAt                time.Time        `yaml:"starts_at"`
	Venue                   *SeedCoordinates `yaml:"venue"`
	EarlyValidation         string           `yaml:"early_validation"`
	ReentryType             string           `yaml:"reentry_type"`
	MaxUses                 int              `yaml:"max_uses"`
	GeofenceEnabled         bool             `yaml:"geofence_enabled"`
	GeofenceRadiusMeters    float64          `yaml:"geofence_radius_meters"`
	P2PValidation           bool             `yaml:"p2p_validation"`
	SpecialEffectsEnabled   bool             `yaml:"special_effects_enabled"`
	GoldenTicketEnabled     bool             `yaml:"golden_ticket_enabled"`
	GoldenTicketProbability *float64         `yaml:"golden_ticket_probability"`
	Validators              []string         `yaml:"validators"`
}

// SeedCoordinates is a venue location
type SeedCoordinates struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// SeedTicket describes one ticket
type SeedTicket struct {
	ID      string `yaml:"id"`
	EventID string `yaml:"event_id"`
	OwnerID string `yaml:"owner_id"`
	Number  string `yaml:"number"`
}

// ParseSeed decodes and checks a seed document
func ParseSeed(data []byte) (*SeedFile, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}

	events := make(map[string]bool, len(seed.Events))
	for i, e := range seed.Events {
		if e.ID == "" || e.OwnerID == "" {
			return nil, fmt.Errorf("event %d: id and owner_id are required", i)
		}
		if e.EarlyValidation != "" && !domain.EarlyValidation(e.EarlyValidation).IsValid() {
			return nil, fmt.Errorf("event %s: unknown early_validation %q", e.ID, e.EarlyValidation)
		}
		if e.ReentryType != "" && !domain.ReentryType(e.ReentryType).IsValid() {
			return nil, fmt.Errorf("event %s: unknown reentry_type %q", e.ID, e.ReentryType)
		}
		events[e.ID] = true
	}
	for i, t := range seed.Tickets {
		if t.ID == "" || t.OwnerID == "" {
			return nil, fmt.Errorf("ticket %d: id and owner_id are required", i)
		}
		if !events[t.EventID] {
			return nil, fmt.Errorf("ticket %s: unknown event %q", t.ID, t.EventID)
		}
	}
	return &seed, nil
}

// LoadSeed reads a seed file and writes its events, delegates and tickets
func LoadSeed(ctx context.Context, path string, events EventCreator, tickets TicketCreator) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	seed, err := ParseSeed(data)
	if err != nil {
		return nil, err
	}
	if err := seed.Apply(ctx, events, tickets, time.Now()); err != nil {
		return nil, err
	}
	return seed, nil
}

// Apply writes the seed through the given repositories
func (s *SeedFile) Apply(ctx context.Context, events EventCreator, tickets TicketCreator, now time.Time) error {
	maxUses := make(map[string]int, len(s.Events))

	for _, se := range s.Events {
		e := se.toDomain(now)
		if err := events.Create(ctx, e); err != nil {
			return fmt.Errorf("failed to create event %s: %w", e.ID, err)
		}
		maxUses[e.ID] = e.MaxUses

		for _, userID := range se.Validators {
			err := events.AddDelegate(ctx, &domain.Delegate{
				EventID:   e.ID,
				UserID:    userID,
				GrantedBy: e.OwnerID,
				CreatedAt: now,
			})
			if err != nil && !errors.Is(err, domain.ErrValidatorExists) {
				return fmt.Errorf("failed to add validator %s to %s: %w", userID, e.ID, err)
			}
		}
	}

	for _, st := range s.Tickets {
		t := &domain.Ticket{
			ID:        st.ID,
			EventID:   st.EventID,
			OwnerID:   st.OwnerID,
			Number:    st.Number,
			MaxUses:   maxUses[st.EventID],
			CreatedAt: now,
			UpdatedAt: now,
		}
		if t.Number == "" {
			t.Number = st.ID
		}
		if err := tickets.Create(ctx, t); err != nil {
			return fmt.Errorf("failed to create ticket %s: %w", t.ID, err)
		}
	}
	return nil
}

func (se SeedEvent) toDomain(now time.Time) *domain.Event {
	e := &domain.Event{
		ID:                      se.ID,
		OwnerID:                 se.OwnerID,
		Name:                    se.Name,
		StartsAt:                se.StartsAt,
		EarlyValidation:         domain.EarlyValidation(se.EarlyValidation),
		ReentryType:             domain.ReentryType(se.ReentryType),
		MaxUses:                 se.MaxUses,
		Geofence:                domain.Geofence{Enabled: se.GeofenceEnabled, RadiusMeters: se.GeofenceRadiusMeters},
		P2PValidation:           se.P2PValidation,
		SpecialEffectsEnabled:   se.SpecialEffectsEnabled,
		GoldenTicketEnabled:     se.GoldenTicketEnabled,
		GoldenTicketProbability: se.GoldenTicketProbability,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if e.EarlyValidation == "" {
		e.EarlyValidation = domain.EarlyValidationAtStart
	}
	if e.ReentryType == "" {
		e.ReentryType = domain.ReentrySingleUse
	}
	if e.StartsAt.IsZero() {
		e.StartsAt = now
	}
	if se.Venue != nil {
		e.Venue = &domain.Coordinates{Latitude: se.Venue.Latitude, Longitude: se.Venue.Longitude}
	}
	return e
}
