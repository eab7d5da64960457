package domain

import "time"

// UsageState is the admission lifecycle of a ticket
type UsageState string

const (
	UsageUnused        UsageState = "unused"
	UsagePartiallyUsed UsageState = "partially_used"
	UsageFullyUsed     UsageState = "fully_used"
)

// Ticket is the admission view of a ticket record
type Ticket struct {
	ID       string `json:"id"`
	EventID  string `json:"event_id"`
	OwnerID  string `json:"owner_id"`
	Number   string `json:"ticket_number"`
	UseCount int    `json:"use_count"`
	// MaxUses is only meaningful for pass events
	MaxUses        int            `json:"max_uses"`
	ValidatedAt    *time.Time     `json:"validated_at,omitempty"`
	IsGoldenTicket bool           `json:"is_golden_ticket"`
	SpecialEffect  *SpecialEffect `json:"special_effect,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// IsValidated is derived from the use count
func (t *Ticket) IsValidated() bool {
	return t.UseCount > 0
}

// UseLimit returns the cap on grants; 0 means unlimited
func (t *Ticket) UseLimit(reentry ReentryType) int {
	switch reentry {
	case ReentryUnlimited:
		return 0
	case ReentryPass:
		if t.MaxUses < 1 {
			return 1
		}
		return t.MaxUses
	default:
		return 1
	}
}

// UsageState derives the lifecycle state under a re-entry policy
func (t *Ticket) UsageState(reentry ReentryType) UsageState {
	limit := t.UseLimit(reentry)
	switch {
	case t.UseCount == 0:
		return UsageUnused
	case limit > 0 && t.UseCount >= limit:
		return UsageFullyUsed
	default:
		return UsagePartiallyUsed
	}
}

// CanAdmit returns the refusal a grant would hit right now, if any
func (t *Ticket) CanAdmit(reentry ReentryType) error {
	if t.UsageState(reentry) != UsageFullyUsed {
		return nil
	}
	if reentry == ReentryPass {
		return ErrMaxUsesReached
	}
	return ErrAlreadyValidated
}

// AdmitOutcome describes one granted transition
type AdmitOutcome struct {
	PreviousCount int
	UseCount      int
	FirstGrant    bool
	State         UsageState
}

// Admit performs the transition for one granted attempt: it increments the use
// count by exactly one and stamps ValidatedAt on the first grant. It does not
// touch effect fields. Callers must hold the ticket's lock.
func (t *Ticket) Admit(reentry ReentryType, now time.Time) (*AdmitOutcome, error) {
	if err := t.CanAdmit(reentry); err != nil {
		return nil, err
	}

	outcome := &AdmitOutcome{
		PreviousCount: t.UseCount,
		FirstGrant:    t.UseCount == 0,
	}

	t.UseCount++
	if t.ValidatedAt == nil {
		at := now
		t.ValidatedAt = &at
	}
	t.UpdatedAt = now

	outcome.UseCount = t.UseCount
	outcome.State = t.UsageState(reentry)
	return outcome, nil
}

// ApplyEffects records the first-grant draw. Fields already set never change.
func (t *Ticket) ApplyEffects(a EffectAssignment) {
	if a.Golden {
		t.IsGoldenTicket = true
	}
	if t.SpecialEffect == nil && a.Effect != nil {
		effect := *a.Effect
		t.SpecialEffect = &effect
	}
}

// Snapshot returns the immutable post-validation view shared downstream
func (t *Ticket) Snapshot() *TicketSnapshot {
	snap := &TicketSnapshot{
		TicketID:       t.ID,
		EventID:        t.EventID,
		TicketNumber:   t.Number,
		IsValidated:    t.IsValidated(),
		ValidatedAt:    t.ValidatedAt,
		UseCount:       t.UseCount,
		IsGoldenTicket: t.IsGoldenTicket,
	}
	if t.SpecialEffect != nil {
		effect := *t.SpecialEffect
		snap.SpecialEffect = &effect
	}
	return snap
}

// TicketSnapshot is what minting and registry consumers see
type TicketSnapshot struct {
	TicketID       string         `json:"ticket_id"`
	EventID        string         `json:"event_id"`
	TicketNumber   string         `json:"ticket_number"`
	IsValidated    bool           `json:"is_validated"`
	ValidatedAt    *time.Time     `json:"validated_at,omitempty"`
	UseCount       int            `json:"use_count"`
	IsGoldenTicket bool           `json:"is_golden_ticket"`
	SpecialEffect  *SpecialEffect `json:"special_effect,omitempty"`
}

// AssignFunc draws effects for a ticket on its first grant
type AssignFunc func(t *Ticket) EffectAssignment
