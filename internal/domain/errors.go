package domain

import "errors"

// Admission refusals. Each maps to exactly one decision category.
var (
	ErrInvalidCode      = errors.New("invalid ticket code")
	ErrExpiredCode      = errors.New("ticket code expired")
	ErrUnauthorized     = errors.New("validator not authorized for this event")
	ErrAlreadyValidated = errors.New("ticket already validated")
	ErrMaxUsesReached   = errors.New("ticket reached maximum uses")
	ErrOutsideValidTime = errors.New("outside validation window")
	ErrOutsideGeofence  = errors.New("outside event geofence")
	ErrLocationRequired = errors.New("location required")
	ErrLocationDenied   = errors.New("location access denied")
)

// Lookup and management errors
var (
	ErrTicketNotFound          = errors.New("ticket not found")
	ErrEventNotFound           = errors.New("event not found")
	ErrCredentialNotFound      = errors.New("credential not found")
	ErrPINCollision            = errors.New("pin already in use")
	ErrNotTicketOwner          = errors.New("not the ticket holder")
	ErrTicketFullyUsed         = errors.New("ticket has no remaining uses")
	ErrNotEventOwner           = errors.New("only the event owner can manage validators")
	ErrValidatorExists         = errors.New("validator already delegated")
	ErrValidatorNotFound       = errors.New("validator not delegated")
	ErrCannotDelegateOwner     = errors.New("event owner is always a validator")
	ErrConcurrentUpdate        = errors.New("ticket changed concurrently")
	ErrLocationRequestNotFound = errors.New("location request not found")
	ErrLocationRequestAnswered = errors.New("location request already answered")
)

// IsNotFoundError reports whether err is a lookup miss
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrTicketNotFound) ||
		errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrCredentialNotFound) ||
		errors.Is(err, ErrValidatorNotFound) ||
		errors.Is(err, ErrLocationRequestNotFound)
}

// IsConflictError reports whether err is a state conflict
func IsConflictError(err error) bool {
	return errors.Is(err, ErrValidatorExists) ||
		errors.Is(err, ErrTicketFullyUsed) ||
		errors.Is(err, ErrConcurrentUpdate) ||
		errors.Is(err, ErrLocationRequestAnswered)
}

// IsForbiddenError reports whether err is an ownership refusal
func IsForbiddenError(err error) bool {
	return errors.Is(err, ErrNotTicketOwner) ||
		errors.Is(err, ErrNotEventOwner) ||
		errors.Is(err, ErrCannotDelegateOwner)
}
