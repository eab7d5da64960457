package domain

// ValidatorRole is why a validator may admit tickets for an event
type ValidatorRole string

const (
	RoleOwner    ValidatorRole = "owner"
	RoleDelegate ValidatorRole = "delegate"
	RolePeer     ValidatorRole = "peer"
	RoleNone     ValidatorRole = "none"
)

// AuthorizationInput carries the facts the policy needs
type AuthorizationInput struct {
	Event       *Event
	Ticket      *Ticket
	ValidatorID string
	// Delegated is true when the owner added ValidatorID as a validator
	Delegated bool
	// HoldsOtherTicket is true when ValidatorID owns another ticket for the event
	HoldsOtherTicket bool
}

// Authorization is the policy outcome
type Authorization struct {
	CanValidate bool
	Role        ValidatorRole
}

// Authorize applies the validation policy. The owner and delegates may always
// validate. Under P2P, any holder of another ticket for the same event may
// validate; holders can never validate their own ticket as peers.
func Authorize(in AuthorizationInput) Authorization {
	if in.ValidatorID == "" || in.Event == nil {
		return Authorization{Role: RoleNone}
	}

	if in.Event.IsOwner(in.ValidatorID) {
		return Authorization{CanValidate: true, Role: RoleOwner}
	}

	if in.Delegated {
		return Authorization{CanValidate: true, Role: RoleDelegate}
	}

	if in.Event.P2PValidation && in.HoldsOtherTicket {
		if in.Ticket != nil && in.Ticket.OwnerID == in.ValidatorID {
			return Authorization{Role: RoleNone}
		}
		return Authorization{CanValidate: true, Role: RolePeer}
	}

	return Authorization{Role: RoleNone}
}
