package domain

import "time"

// ValidationAttempt is one presentation of a credential by a validator
type ValidationAttempt struct {
	// Credential is the raw scanned payload or typed PIN
	Credential  string
	ValidatorID string
	// EventID, when set, must match the ticket's event
	EventID           string
	ValidatorLocation *Coordinates
	// HolderLocation overrides the location captured at credential issue
	HolderLocation *Coordinates
	// At defaults to the service clock when zero
	At time.Time
}
