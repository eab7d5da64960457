package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/eventic-admission/internal/domain"
	"github.com/prohmpiriya/eventic-admission/internal/dto"
)

func setupValidatorRouter(h *ValidatorHandler, userID string) *gin.Engine {
	router := newTestRouter(userID)
	events := router.Group("/events/:id/validators")
	{
		events.GET("", h.List)
		events.POST("", h.Add)
		events.DELETE("/:user_id", h.Remove)
	}
	return router
}

func TestValidatorHandler(t *testing.T) {
	svc := &MockValidatorService{
		ListFunc: func(ctx context.Context, callerID, eventID string) ([]*domain.Delegate, error) {
			if callerID != "owner" {
				return nil, domain.ErrNotEventOwner
			}
			return []*domain.Delegate{{EventID: eventID, UserID: "staff", GrantedBy: "owner", CreatedAt: time.Now()}}, nil
		},
		AddFunc: func(ctx context.Context, callerID, eventID, userID string) (*domain.Delegate, error) {
			if userID == "staff" {
				return nil, domain.ErrValidatorExists
			}
			return &domain.Delegate{EventID: eventID, UserID: userID, GrantedBy: callerID}, nil
		},
		RemoveFunc: func(ctx context.Context, callerID, eventID, userID string) error {
			if userID != "staff" {
				return domain.ErrValidatorNotFound
			}
			return nil
		},
	}
	h := NewValidatorHandler(svc)

	tests := []struct {
		name           string
		userID         string
		method         string
		path           string
		body           interface{}
		expectedStatus int
	}{
		{name: "list", userID: "owner", method: http.MethodGet, path: "/events/e-1/validators", expectedStatus: http.StatusOK},
		{name: "list as stranger", userID: "staff", method: http.MethodGet, path: "/events/e-1/validators", expectedStatus: http.StatusForbidden},
		{name: "list unauthenticated", method: http.MethodGet, path: "/events/e-1/validators", expectedStatus: http.StatusUnauthorized},
		{name: "add", userID: "owner", method: http.MethodPost, path: "/events/e-1/validators", body: map[string]string{"user_id": "door-2"}, expectedStatus: http.StatusCreated},
		{name: "add duplicate", userID: "owner", method: http.MethodPost, path: "/events/e-1/validators", body: map[string]string{"user_id": "staff"}, expectedStatus: http.StatusConflict},
		{name: "add without user", userID: "owner", method: http.MethodPost, path: "/events/e-1/validators", body: map[string]string{}, expectedStatus: http.StatusBadRequest},
		{name: "remove", userID: "owner", method: http.MethodDelete, path: "/events/e-1/validators/staff", expectedStatus: http.StatusNoContent},
		{name: "remove unknown", userID: "owner", method: http.MethodDelete, path: "/events/e-1/validators/ghost", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(setupValidatorRouter(h, tt.userID), tt.method, tt.path, tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestValidatorHandler_ListBody(t *testing.T) {
	h := NewValidatorHandler(&MockValidatorService{
		ListFunc: func(ctx context.Context, callerID, eventID string) ([]*domain.Delegate, error) {
			return nil, nil
		},
	})

	w := doJSON(setupValidatorRouter(h, "owner"), http.MethodGet, "/events/e-1/validators", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []dto.ValidatorResponse
	resp, err := decodeEnvelope(w, &list)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}
