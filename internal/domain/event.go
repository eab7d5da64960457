package domain

import "time"

// EarlyValidation controls how long before the start validators may admit
type EarlyValidation string

const (
	EarlyValidationAnytime        EarlyValidation = "anytime"
	EarlyValidationTwoHoursBefore EarlyValidation = "two_hours_before"
	EarlyValidationOneHourBefore  EarlyValidation = "one_hour_before"
	EarlyValidationAtStart        EarlyValidation = "at_start"
)

// IsValid checks if the policy is known
func (p EarlyValidation) IsValid() bool {
	switch p {
	case EarlyValidationAnytime, EarlyValidationTwoHoursBefore, EarlyValidationOneHourBefore, EarlyValidationAtStart:
		return true
	}
	return false
}

// OpensAt returns the first instant admissions are accepted. The second
// return is false for anytime. Unknown policies behave like at_start.
func (p EarlyValidation) OpensAt(start time.Time) (time.Time, bool) {
	switch p {
	case EarlyValidationAnytime:
		return time.Time{}, false
	case EarlyValidationTwoHoursBefore:
		return start.Add(-2 * time.Hour), true
	case EarlyValidationOneHourBefore:
		return start.Add(-time.Hour), true
	default:
		return start, true
	}
}

// Allows reports whether now is inside the window. There is no upper bound.
func (p EarlyValidation) Allows(start, now time.Time) bool {
	opens, bounded := p.OpensAt(start)
	if !bounded {
		return true
	}
	return !now.Before(opens)
}

// ReentryType is the per-event re-entry policy
type ReentryType string

const (
	ReentrySingleUse ReentryType = "single_use"
	ReentryPass      ReentryType = "pass"
	ReentryUnlimited ReentryType = "unlimited"
)

// IsValid checks if the re-entry type is known
func (r ReentryType) IsValid() bool {
	switch r {
	case ReentrySingleUse, ReentryPass, ReentryUnlimited:
		return true
	}
	return false
}

// Geofence is a circular admission area around the venue
type Geofence struct {
	Enabled      bool    `json:"enabled"`
	RadiusMeters float64 `json:"radius_meters,omitempty"`
}

// Event is the subset of an event record the admission engine reads
type Event struct {
	ID       string     `json:"id"`
	OwnerID  string     `json:"owner_id"`
	Name     string     `json:"name"`
	StartsAt time.Time  `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`

	Venue *Coordinates `json:"venue,omitempty"`

	EarlyValidation EarlyValidation `json:"early_validation"`
	ReentryType     ReentryType     `json:"reentry_type"`
	// MaxUses applies to pass events; tickets copy it at issue time
	MaxUses  int      `json:"max_uses"`
	Geofence Geofence `json:"geofence"`

	P2PValidation           bool     `json:"p2p_validation"`
	SpecialEffectsEnabled   bool     `json:"special_effects_enabled"`
	GoldenTicketEnabled     bool     `json:"golden_ticket_enabled"`
	GoldenTicketProbability *float64 `json:"golden_ticket_probability,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WithinValidationWindow applies the early-validation policy to now
func (e *Event) WithinValidationWindow(now time.Time) bool {
	return e.EarlyValidation.Allows(e.StartsAt, now)
}

// IsOwner reports whether userID created the event
func (e *Event) IsOwner(userID string) bool {
	return userID != "" && e.OwnerID == userID
}

// Delegate is a user the owner allowed to validate tickets
type Delegate struct {
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	GrantedBy string    `json:"granted_by"`
	CreatedAt time.Time `json:"created_at"`
}
