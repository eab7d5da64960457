package domain

import "testing"

func TestAuthorize(t *testing.T) {
	event := &Event{ID: "e-1", OwnerID: "owner"}
	p2p := &Event{ID: "e-1", OwnerID: "owner", P2PValidation: true}
	ticket := &Ticket{ID: "t-1", EventID: "e-1", OwnerID: "holder"}

	tests := []struct {
		name     string
		in       AuthorizationInput
		wantOK   bool
		wantRole ValidatorRole
	}{
		{"owner", AuthorizationInput{Event: event, Ticket: ticket, ValidatorID: "owner"}, true, RoleOwner},
		{"delegate", AuthorizationInput{Event: event, Ticket: ticket, ValidatorID: "staff", Delegated: true}, true, RoleDelegate},
		{"stranger", AuthorizationInput{Event: event, Ticket: ticket, ValidatorID: "stranger"}, false, RoleNone},
		{"ticket holder without p2p", AuthorizationInput{Event: event, Ticket: ticket, ValidatorID: "other", HoldsOtherTicket: true}, false, RoleNone},
		{"peer under p2p", AuthorizationInput{Event: p2p, Ticket: ticket, ValidatorID: "other", HoldsOtherTicket: true}, true, RolePeer},
		{"p2p without a ticket", AuthorizationInput{Event: p2p, Ticket: ticket, ValidatorID: "other"}, false, RoleNone},
		{"peer validating own ticket", AuthorizationInput{Event: p2p, Ticket: ticket, ValidatorID: "holder", HoldsOtherTicket: true}, false, RoleNone},
		{"anonymous", AuthorizationInput{Event: event, Ticket: ticket}, false, RoleNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Authorize(tt.in)
			if got.CanValidate != tt.wantOK || got.Role != tt.wantRole {
				t.Errorf("Authorize() = %+v, want can=%v role=%s", got, tt.wantOK, tt.wantRole)
			}
		})
	}
}
