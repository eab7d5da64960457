package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestCategoryFor(t *testing.T) {
	tests := []struct {
		err  error
		want Category
	}{
		{nil, CategoryGranted},
		{ErrInvalidCode, CategoryInvalidCode},
		{ErrCredentialNotFound, CategoryInvalidCode},
		{fmt.Errorf("lookup: %w", ErrTicketNotFound), CategoryInvalidCode},
		{ErrExpiredCode, CategoryExpiredCode},
		{ErrUnauthorized, CategoryUnauthorized},
		{ErrAlreadyValidated, CategoryAlreadyValidated},
		{ErrMaxUsesReached, CategoryMaxUsesReached},
		{ErrOutsideValidTime, CategoryOutsideValidTime},
		{ErrOutsideGeofence, CategoryOutsideGeofence},
		{ErrLocationRequired, CategoryLocationRequired},
		{ErrLocationDenied, CategoryLocationDenied},
	}

	for _, tt := range tests {
		got, ok := CategoryFor(tt.err)
		if !ok || got != tt.want {
			t.Errorf("CategoryFor(%v) = %s, %v; want %s", tt.err, got, ok, tt.want)
		}
	}

	if _, ok := CategoryFor(errors.New("connection reset")); ok {
		t.Error("infrastructure errors must not map to a category")
	}
}

func TestCategory_Message(t *testing.T) {
	seen := map[string]Category{}
	for _, c := range Categories {
		msg := c.Message()
		if msg == "" {
			t.Errorf("%s has no message", c)
		}
		if prev, dup := seen[msg]; dup {
			t.Errorf("%s and %s share a message", prev, c)
		}
		seen[msg] = c
	}
}

func TestCompose_OneFlagPerCategory(t *testing.T) {
	ticket := &Ticket{ID: "t-1", UseCount: 1}
	auth := Authorization{CanValidate: true, Role: RoleOwner}

	for _, c := range Categories {
		t.Run(string(c), func(t *testing.T) {
			d := Compose(DecisionInput{Category: c, IsAuthentic: true, Authorization: auth, Ticket: ticket})

			flags := 0
			for _, set := range []bool{d.Valid, d.AlreadyValidated, d.OutsideValidTime, d.OutsideGeofence, d.RequiresLocation} {
				if set {
					flags++
				}
			}

			switch c {
			case CategoryGranted, CategoryAlreadyValidated, CategoryMaxUsesReached,
				CategoryOutsideValidTime, CategoryOutsideGeofence, CategoryLocationRequired:
				if flags != 1 {
					t.Errorf("%d flags set for %s", flags, c)
				}
			default:
				if flags != 0 {
					t.Errorf("%d flags set for %s", flags, c)
				}
			}

			if d.Message != c.Message() {
				t.Errorf("Message = %q", d.Message)
			}
		})
	}
}

func TestCompose_Granted(t *testing.T) {
	ticket := &Ticket{ID: "t-1", UseCount: 1, IsGoldenTicket: true, SpecialEffect: &SpecialEffect{Type: EffectSpooky}}
	validatorDist := 12.5

	d := Compose(DecisionInput{
		Category:      CategoryGranted,
		IsAuthentic:   true,
		Authorization: Authorization{CanValidate: true, Role: RoleDelegate},
		Ticket:        ticket,
		Geofence:      &GeofenceResult{Checked: true, Within: true, ValidatorDistance: &validatorDist},
		Assignment:    &EffectAssignment{Golden: true, Effect: ticket.SpecialEffect},
	})

	if !d.Valid || !d.CanValidate || !d.IsAuthentic || d.ValidatorRole != RoleDelegate {
		t.Errorf("unexpected decision %+v", d)
	}
	if !d.IsGoldenTicket || d.AssignedEffect == nil || d.AssignedEffect.Type != EffectSpooky {
		t.Errorf("effects missing: %+v", d)
	}
	if d.Ticket == nil || d.Ticket.UseCount != 1 {
		t.Errorf("snapshot missing: %+v", d.Ticket)
	}
	if d.ValidatorDistance == nil || *d.ValidatorDistance != 12.5 || d.HolderDistance != nil {
		t.Errorf("distances = %v, %v", d.ValidatorDistance, d.HolderDistance)
	}
}

func TestCompose_UnauthorizedHidesTicket(t *testing.T) {
	d := Compose(DecisionInput{
		Category:      CategoryUnauthorized,
		IsAuthentic:   true,
		Authorization: Authorization{Role: RoleNone},
		Ticket:        &Ticket{ID: "t-1"},
	})
	if d.Valid || d.CanValidate || d.Ticket != nil {
		t.Errorf("unexpected decision %+v", d)
	}
	if !d.IsAuthentic {
		t.Error("authenticity is independent of authorization")
	}
}
