package domain

import (
	"encoding/hex"
	"net/url"
	"strings"
	"time"
)

const (
	// PINLength is the length of the manual entry code
	PINLength = 4
	// TokenLength is the hex length of a scan token
	TokenLength = 32
	// ScanPrefix prefixes scan payloads rendered into QR codes
	ScanPrefix = "eventic:"
)

// CredentialKind distinguishes the two ways a credential can be presented
type CredentialKind int

const (
	CredentialPIN CredentialKind = iota + 1
	CredentialToken
)

// CredentialInput is a parsed, not yet resolved, presentation
type CredentialInput struct {
	Kind  CredentialKind
	Value string
}

// ParseCredential classifies a raw presentation. It only checks shape; it
// never touches storage.
func ParseCredential(raw string) (CredentialInput, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return CredentialInput{}, ErrInvalidCode
	}

	// 32 decimal digits are valid hex, so tokens are matched before PINs
	if token := strings.ToLower(strings.TrimPrefix(raw, ScanPrefix)); isToken(token) {
		return CredentialInput{Kind: CredentialToken, Value: token}, nil
	}

	if isDigits(raw) {
		if len(raw) != PINLength {
			return CredentialInput{}, ErrInvalidCode
		}
		return CredentialInput{Kind: CredentialPIN, Value: raw}, nil
	}

	// Scanned links carry the payload in ?code=
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		u, err := url.Parse(raw)
		if err != nil {
			return CredentialInput{}, ErrInvalidCode
		}
		code := u.Query().Get("code")
		if code == "" || strings.HasPrefix(code, "http") {
			return CredentialInput{}, ErrInvalidCode
		}
		return ParseCredential(code)
	}

	return CredentialInput{}, ErrInvalidCode
}

func isToken(s string) bool {
	if len(s) != TokenLength {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Credential is one issued, time-boxed code for a ticket. A ticket has at
// most one live credential; issuing a new one revokes the previous.
type Credential struct {
	TicketID  string    `json:"ticket_id"`
	EventID   string    `json:"event_id"`
	Token     string    `json:"token"`
	PIN       string    `json:"pin"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	// HolderLocation is captured by the holder's device at issue time
	HolderLocation *Coordinates `json:"holder_location,omitempty"`
}

// Expired is computed from stored timestamps, never from a timer
func (c *Credential) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// ScanPayload is the string encoded into the holder's QR code
func (c *Credential) ScanPayload() string {
	return ScanPrefix + c.Token
}
