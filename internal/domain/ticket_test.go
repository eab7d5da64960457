package domain

import (
	"errors"
	"testing"
	"time"
)

func TestTicket_Admit_SingleUse(t *testing.T) {
	now := time.Date(2026, 12, 25, 20, 0, 0, 0, time.UTC)
	ticket := &Ticket{ID: "t-1"}

	outcome, err := ticket.Admit(ReentrySingleUse, now)
	if err != nil {
		t.Fatalf("first Admit() error = %v", err)
	}
	if !outcome.FirstGrant || outcome.UseCount != 1 || outcome.State != UsageFullyUsed {
		t.Errorf("unexpected outcome %+v", outcome)
	}
	if ticket.ValidatedAt == nil || !ticket.ValidatedAt.Equal(now) {
		t.Errorf("ValidatedAt = %v, want %v", ticket.ValidatedAt, now)
	}

	_, err = ticket.Admit(ReentrySingleUse, now.Add(time.Minute))
	if !errors.Is(err, ErrAlreadyValidated) {
		t.Errorf("second Admit() error = %v, want %v", err, ErrAlreadyValidated)
	}
	if ticket.UseCount != 1 {
		t.Errorf("UseCount = %d, want 1", ticket.UseCount)
	}
}

func TestTicket_Admit_Pass(t *testing.T) {
	first := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	ticket := &Ticket{ID: "t-1", MaxUses: 3}

	for i := 1; i <= 3; i++ {
		outcome, err := ticket.Admit(ReentryPass, first.Add(time.Duration(i)*time.Hour))
		if err != nil {
			t.Fatalf("Admit() #%d error = %v", i, err)
		}
		if outcome.UseCount != i {
			t.Errorf("UseCount = %d, want %d", outcome.UseCount, i)
		}
		if outcome.FirstGrant != (i == 1) {
			t.Errorf("FirstGrant = %v on grant %d", outcome.FirstGrant, i)
		}
	}

	if !ticket.ValidatedAt.Equal(first.Add(time.Hour)) {
		t.Errorf("ValidatedAt moved to %v", ticket.ValidatedAt)
	}
	if state := ticket.UsageState(ReentryPass); state != UsageFullyUsed {
		t.Errorf("state = %s, want fully_used", state)
	}

	if _, err := ticket.Admit(ReentryPass, first.Add(4*time.Hour)); !errors.Is(err, ErrMaxUsesReached) {
		t.Errorf("fourth Admit() error = %v, want %v", err, ErrMaxUsesReached)
	}
}

func TestTicket_Admit_Unlimited(t *testing.T) {
	ticket := &Ticket{ID: "t-1"}
	now := time.Now()
	for i := 0; i < 50; i++ {
		if _, err := ticket.Admit(ReentryUnlimited, now); err != nil {
			t.Fatalf("Admit() error = %v", err)
		}
	}
	if ticket.UseCount != 50 {
		t.Errorf("UseCount = %d, want 50", ticket.UseCount)
	}
	if state := ticket.UsageState(ReentryUnlimited); state != UsagePartiallyUsed {
		t.Errorf("state = %s, want partially_used", state)
	}
}

func TestTicket_UsageState(t *testing.T) {
	tests := []struct {
		name    string
		ticket  Ticket
		reentry ReentryType
		want    UsageState
	}{
		{"unused single", Ticket{}, ReentrySingleUse, UsageUnused},
		{"used single", Ticket{UseCount: 1}, ReentrySingleUse, UsageFullyUsed},
		{"pass halfway", Ticket{UseCount: 1, MaxUses: 2}, ReentryPass, UsagePartiallyUsed},
		{"pass without max behaves like one", Ticket{UseCount: 1}, ReentryPass, UsageFullyUsed},
		{"unlimited never full", Ticket{UseCount: 1000}, ReentryUnlimited, UsagePartiallyUsed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ticket.UsageState(tt.reentry); got != tt.want {
				t.Errorf("UsageState() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTicket_ApplyEffects(t *testing.T) {
	ticket := &Ticket{}
	ticket.ApplyEffects(EffectAssignment{Golden: true, Effect: &SpecialEffect{Type: EffectSnowflakes}})

	if !ticket.IsGoldenTicket {
		t.Error("expected golden ticket")
	}
	if ticket.SpecialEffect == nil || ticket.SpecialEffect.Type != EffectSnowflakes {
		t.Fatalf("SpecialEffect = %+v", ticket.SpecialEffect)
	}

	ticket.ApplyEffects(EffectAssignment{Effect: &SpecialEffect{Type: EffectConfetti}})
	if ticket.SpecialEffect.Type != EffectSnowflakes {
		t.Errorf("effect overwritten with %s", ticket.SpecialEffect.Type)
	}
	if !ticket.IsGoldenTicket {
		t.Error("golden flag must never be cleared")
	}
}

func TestTicket_Snapshot(t *testing.T) {
	now := time.Now()
	ticket := &Ticket{
		ID:            "t-1",
		EventID:       "e-1",
		Number:        "A-001",
		UseCount:      1,
		ValidatedAt:   &now,
		SpecialEffect: &SpecialEffect{Type: EffectHearts},
	}

	snap := ticket.Snapshot()
	if !snap.IsValidated || snap.TicketNumber != "A-001" || snap.UseCount != 1 {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	snap.SpecialEffect.Type = EffectRainbow
	if ticket.SpecialEffect.Type != EffectHearts {
		t.Error("snapshot must not alias the ticket effect")
	}
}
