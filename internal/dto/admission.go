package dto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/prohmpiriya/eventic-admission/internal/domain"
)

// CoordinatesRequest is a position reported by a device
type CoordinatesRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (req CoordinatesRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Latitude, validation.NotNil, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&req.Longitude, validation.NotNil, validation.Min(-180.0), validation.Max(180.0)),
	)
}

// ToDomain converts the request to coordinates. Call Validate first.
func (req *CoordinatesRequest) ToDomain() *domain.Coordinates {
	if req == nil || req.Latitude == nil || req.Longitude == nil {
		return nil
	}
	return &domain.Coordinates{Latitude: *req.Latitude, Longitude: *req.Longitude}
}

// ValidateTicketRequest is one scan or typed PIN at the door
type ValidateTicketRequest struct {
	Credential        string              `json:"credential"`
	EventID           string              `json:"event_id,omitempty"`
	ValidatorLocation *CoordinatesRequest `json:"validator_location,omitempty"`
	HolderLocation    *CoordinatesRequest `json:"holder_location,omitempty"`
	// LocationRequestID lets the validator's device answer a location request
	// on POST /location-requests/:id while this call waits
	LocationRequestID string `json:"location_request_id,omitempty"`
}

func (req *ValidateTicketRequest) Validate() error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Credential, validation.Required, validation.Length(1, 512)),
		validation.Field(&req.EventID, validation.Length(0, 64)),
		validation.Field(&req.ValidatorLocation),
		validation.Field(&req.HolderLocation),
		validation.Field(&req.LocationRequestID, is.UUID),
	)
}

// ToAttempt builds the attempt for validatorID
func (req *ValidateTicketRequest) ToAttempt(validatorID string) *domain.ValidationAttempt {
	return &domain.ValidationAttempt{
		Credential:        req.Credential,
		ValidatorID:       validatorID,
		EventID:           req.EventID,
		ValidatorLocation: req.ValidatorLocation.ToDomain(),
		HolderLocation:    req.HolderLocation.ToDomain(),
	}
}

// LocationAnswerRequest answers a pending location request
type LocationAnswerRequest struct {
	Denied   bool                `json:"denied"`
	Location *CoordinatesRequest `json:"location,omitempty"`
}

func (req *LocationAnswerRequest) Validate() error {
	if req.Denied {
		return nil
	}
	return validation.ValidateStruct(req,
		validation.Field(&req.Location, validation.NotNil),
	)
}

// IssueCredentialRequest asks for a fresh code for a held ticket
type IssueCredentialRequest struct {
	HolderLocation *CoordinatesRequest `json:"holder_location,omitempty"`
}

func (req *IssueCredentialRequest) Validate() error {
	return validation.ValidateStruct(req,
		validation.Field(&req.HolderLocation),
	)
}

// CredentialResponse is what the holder's device renders
type CredentialResponse struct {
	TicketID    string    `json:"ticket_id"`
	PIN         string    `json:"pin"`
	ScanPayload string    `json:"scan_payload"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	TTLSeconds  int       `json:"ttl_seconds"`
}

// CredentialFromDomain converts a credential to its response
func CredentialFromDomain(c *domain.Credential) *CredentialResponse {
	return &CredentialResponse{
		TicketID:    c.TicketID,
		PIN:         c.PIN,
		ScanPayload: c.ScanPayload(),
		IssuedAt:    c.IssuedAt,
		ExpiresAt:   c.ExpiresAt,
		TTLSeconds:  int(c.ExpiresAt.Sub(c.IssuedAt).Seconds()),
	}
}

// AddValidatorRequest delegates validation to a user
type AddValidatorRequest struct {
	UserID string `json:"user_id"`
}

func (req *AddValidatorRequest) Validate() error {
	return validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required, validation.Length(1, 64)),
	)
}

// ValidatorResponse represents a delegated validator
type ValidatorResponse struct {
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	GrantedBy string    `json:"granted_by"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidatorFromDomain converts a delegate to its response
func ValidatorFromDomain(d *domain.Delegate) *ValidatorResponse {
	return &ValidatorResponse{
		EventID:   d.EventID,
		UserID:    d.UserID,
		GrantedBy: d.GrantedBy,
		CreatedAt: d.CreatedAt,
	}
}

// ValidatorsFromDomain converts a delegate list
func ValidatorsFromDomain(list []*domain.Delegate) []*ValidatorResponse {
	out := make([]*ValidatorResponse, 0, len(list))
	for _, d := range list {
		out = append(out, ValidatorFromDomain(d))
	}
	return out
}
