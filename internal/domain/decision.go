package domain

import "errors"

// Category is the single terminal outcome of an admission attempt
type Category string

const (
	CategoryGranted          Category = "granted"
	CategoryInvalidCode      Category = "invalid_code"
	CategoryExpiredCode      Category = "expired_code"
	CategoryUnauthorized     Category = "unauthorized"
	CategoryAlreadyValidated Category = "already_validated"
	CategoryMaxUsesReached   Category = "max_uses_reached"
	CategoryOutsideValidTime Category = "outside_valid_time"
	CategoryOutsideGeofence  Category = "outside_geofence"
	CategoryLocationRequired Category = "location_required"
	CategoryLocationDenied   Category = "location_denied"
)

// Categories lists every category, in check order
var Categories = []Category{
	CategoryGranted,
	CategoryInvalidCode,
	CategoryExpiredCode,
	CategoryUnauthorized,
	CategoryAlreadyValidated,
	CategoryMaxUsesReached,
	CategoryOutsideValidTime,
	CategoryOutsideGeofence,
	CategoryLocationRequired,
	CategoryLocationDenied,
}

var categoryMessages = map[Category]string{
	CategoryGranted:          "Ticket validated. Entry granted.",
	CategoryInvalidCode:      "Invalid ticket code.",
	CategoryExpiredCode:      "This code has expired. Ask the holder to refresh their ticket.",
	CategoryUnauthorized:     "You are not authorized to validate tickets for this event.",
	CategoryAlreadyValidated: "This ticket has already been validated.",
	CategoryMaxUsesReached:   "This ticket has reached its maximum number of uses.",
	CategoryOutsideValidTime: "Validation is not open yet for this event.",
	CategoryOutsideGeofence:  "Validator or ticket holder is too far from the venue.",
	CategoryLocationRequired: "Location is required to validate tickets for this event.",
	CategoryLocationDenied:   "Location access was denied. The ticket was not validated.",
}

// Message returns the human-facing text for a category
func (c Category) Message() string {
	if msg, ok := categoryMessages[c]; ok {
		return msg
	}
	return "Validation failed."
}

// CategoryFor maps an admission refusal error to its category
func CategoryFor(err error) (Category, bool) {
	switch {
	case err == nil:
		return CategoryGranted, true
	case errors.Is(err, ErrInvalidCode), errors.Is(err, ErrCredentialNotFound), errors.Is(err, ErrTicketNotFound), errors.Is(err, ErrEventNotFound):
		return CategoryInvalidCode, true
	case errors.Is(err, ErrExpiredCode):
		return CategoryExpiredCode, true
	case errors.Is(err, ErrUnauthorized):
		return CategoryUnauthorized, true
	case errors.Is(err, ErrAlreadyValidated):
		return CategoryAlreadyValidated, true
	case errors.Is(err, ErrMaxUsesReached):
		return CategoryMaxUsesReached, true
	case errors.Is(err, ErrOutsideValidTime):
		return CategoryOutsideValidTime, true
	case errors.Is(err, ErrOutsideGeofence):
		return CategoryOutsideGeofence, true
	case errors.Is(err, ErrLocationRequired):
		return CategoryLocationRequired, true
	case errors.Is(err, ErrLocationDenied):
		return CategoryLocationDenied, true
	}
	return "", false
}

// Decision is the single outcome record returned to the caller
type Decision struct {
	Valid            bool     `json:"valid"`
	Category         Category `json:"category"`
	Message          string   `json:"message"`
	CanValidate      bool     `json:"can_validate"`
	IsAuthentic      bool     `json:"is_authentic"`
	AlreadyValidated bool     `json:"already_validated"`
	OutsideValidTime bool     `json:"outside_valid_time"`
	OutsideGeofence  bool     `json:"outside_geofence"`
	RequiresLocation bool     `json:"requires_location"`

	AssignedEffect *SpecialEffect  `json:"assigned_effect,omitempty"`
	IsGoldenTicket bool            `json:"is_golden_ticket"`
	Ticket         *TicketSnapshot `json:"ticket,omitempty"`

	ValidatorRole     ValidatorRole `json:"validator_role,omitempty"`
	ValidatorDistance *float64      `json:"validator_distance_meters,omitempty"`
	HolderDistance    *float64      `json:"holder_distance_meters,omitempty"`
}

// DecisionInput collects what the checks established before the terminal category
type DecisionInput struct {
	Category      Category
	IsAuthentic   bool
	Authorization Authorization
	Ticket        *Ticket
	Geofence      *GeofenceResult
	// Assignment is set only on the grant that drew effects
	Assignment *EffectAssignment
}

// Compose builds the decision. The flag for the category is the only
// category flag set, and the message depends on the category alone.
func Compose(in DecisionInput) *Decision {
	d := &Decision{
		Category:      in.Category,
		Message:       in.Category.Message(),
		IsAuthentic:   in.IsAuthentic,
		CanValidate:   in.Authorization.CanValidate,
		ValidatorRole: in.Authorization.Role,
	}

	switch in.Category {
	case CategoryGranted:
		d.Valid = true
	case CategoryAlreadyValidated, CategoryMaxUsesReached:
		d.AlreadyValidated = true
	case CategoryOutsideValidTime:
		d.OutsideValidTime = true
	case CategoryOutsideGeofence:
		d.OutsideGeofence = true
	case CategoryLocationRequired:
		d.RequiresLocation = true
	}

	if in.Geofence != nil {
		d.ValidatorDistance = in.Geofence.ValidatorDistance
		d.HolderDistance = in.Geofence.HolderDistance
	}

	if in.Ticket != nil && d.IsAuthentic && d.CanValidate {
		d.Ticket = in.Ticket.Snapshot()
		d.IsGoldenTicket = in.Ticket.IsGoldenTicket
	}

	if in.Assignment != nil && in.Assignment.Effect != nil {
		effect := *in.Assignment.Effect
		d.AssignedEffect = &effect
	}

	return d
}
