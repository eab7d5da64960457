package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/eventic-admission/internal/domain"
	"github.com/prohmpiriya/eventic-admission/internal/dto"
	"github.com/prohmpiriya/eventic-admission/internal/service"
)

func TestTicketHandler_IssueCredential(t *testing.T) {
	issued := time.Date(2026, 6, 9, 19, 0, 0, 0, time.UTC)
	var gotLoc *domain.Coordinates

	creds := &MockCredentialService{
		IssueFunc: func(ctx context.Context, holderID, ticketID string, loc *domain.Coordinates) (*domain.Credential, error) {
			if ticketID == "used" {
				return nil, domain.ErrTicketFullyUsed
			}
			if holderID != "alice" {
				return nil, domain.ErrNotTicketOwner
			}
			gotLoc = loc
			return &domain.Credential{
				TicketID:  ticketID,
				Token:     "0123456789abcdef0123456789abcdef",
				PIN:       "4821",
				IssuedAt:  issued,
				ExpiresAt: issued.Add(3 * time.Minute),
			}, nil
		},
	}
	h := NewTicketHandler(creds, &MockTicketService{})

	t.Run("holder without location", func(t *testing.T) {
		router := newTestRouter("alice")
		router.POST("/tickets/:id/credentials", h.IssueCredential)

		w := doJSON(router, http.MethodPost, "/tickets/t-1/credentials", nil)
		require.Equal(t, http.StatusCreated, w.Code)

		var got dto.CredentialResponse
		_, err := decodeEnvelope(w, &got)
		require.NoError(t, err)
		assert.Equal(t, "4821", got.PIN)
		assert.Equal(t, "eventic:0123456789abcdef0123456789abcdef", got.ScanPayload)
		assert.Equal(t, 180, got.TTLSeconds)
		assert.Nil(t, gotLoc)
	})

	t.Run("holder with location", func(t *testing.T) {
		router := newTestRouter("alice")
		router.POST("/tickets/:id/credentials", h.IssueCredential)

		w := doJSON(router, http.MethodPost, "/tickets/t-1/credentials",
			map[string]interface{}{"holder_location": map[string]float64{"latitude": 13.75, "longitude": 100.5}})
		require.Equal(t, http.StatusCreated, w.Code)
		require.NotNil(t, gotLoc)
		assert.Equal(t, 13.75, gotLoc.Latitude)
	})

	t.Run("not the holder", func(t *testing.T) {
		router := newTestRouter("mallory")
		router.POST("/tickets/:id/credentials", h.IssueCredential)

		w := doJSON(router, http.MethodPost, "/tickets/t-1/credentials", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("fully used", func(t *testing.T) {
		router := newTestRouter("alice")
		router.POST("/tickets/:id/credentials", h.IssueCredential)

		w := doJSON(router, http.MethodPost, "/tickets/used/credentials", nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestTicketHandler_GetTicket(t *testing.T) {
	tickets := &MockTicketService{
		GetStatusFunc: func(ctx context.Context, userID, ticketID string) (*service.TicketStatus, error) {
			if userID != "alice" {
				return nil, domain.ErrTicketNotFound
			}
			tk := &domain.Ticket{ID: ticketID, EventID: "e-1", Number: "A-1", UseCount: 1, IsGoldenTicket: true}
			return &service.TicketStatus{TicketSnapshot: tk.Snapshot(), State: domain.UsageFullyUsed}, nil
		},
	}
	h := NewTicketHandler(&MockCredentialService{}, tickets)

	router := newTestRouter("alice")
	router.GET("/tickets/:id", h.GetTicket)
	w := doJSON(router, http.MethodGet, "/tickets/t-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]interface{}
	_, err := decodeEnvelope(w, &got)
	require.NoError(t, err)
	assert.Equal(t, "A-1", got["ticket_number"])
	assert.Equal(t, true, got["is_golden_ticket"])
	assert.Equal(t, true, got["is_validated"])
	assert.Equal(t, "fully_used", got["state"])

	router = newTestRouter("mallory")
	router.GET("/tickets/:id", h.GetTicket)
	w = doJSON(router, http.MethodGet, "/tickets/t-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
