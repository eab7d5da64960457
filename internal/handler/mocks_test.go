package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/eventic-admission/internal/domain"
	"github.com/prohmpiriya/eventic-admission/internal/service"
	"github.com/prohmpiriya/eventic-admission/pkg/response"
)

// MockAdmissionService is a mock implementation of AdmissionService for testing
type MockAdmissionService struct {
	ValidateFunc             func(ctx context.Context, attempt *domain.ValidationAttempt) (*domain.Decision, error)
	ValidateWithLocationFunc func(ctx context.Context, attempt *domain.ValidationAttempt, requester service.LocationRequester) (*domain.Decision, error)
}

func (m *MockAdmissionService) Validate(ctx context.Context, attempt *domain.ValidationAttempt) (*domain.Decision, error) {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, attempt)
	}
	return nil, nil
}

func (m *MockAdmissionService) ValidateWithLocation(ctx context.Context, attempt *domain.ValidationAttempt, requester service.LocationRequester) (*domain.Decision, error) {
	if m.ValidateWithLocationFunc != nil {
		return m.ValidateWithLocationFunc(ctx, attempt, requester)
	}
	return m.Validate(ctx, attempt)
}

// MockCredentialService is a mock implementation of CredentialService for testing
type MockCredentialService struct {
	IssueFunc   func(ctx context.Context, holderID, ticketID string, loc *domain.Coordinates) (*domain.Credential, error)
	ResolveFunc func(ctx context.Context, raw string, now time.Time) (*domain.Credential, error)
}

func (m *MockCredentialService) Issue(ctx context.Context, holderID, ticketID string, loc *domain.Coordinates) (*domain.Credential, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(ctx, holderID, ticketID, loc)
	}
	return nil, nil
}

func (m *MockCredentialService) Resolve(ctx context.Context, raw string, now time.Time) (*domain.Credential, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, raw, now)
	}
	return nil, domain.ErrInvalidCode
}

// MockTicketService is a mock implementation of TicketService for testing
type MockTicketService struct {
	GetStatusFunc func(ctx context.Context, userID, ticketID string) (*service.TicketStatus, error)
}

func (m *MockTicketService) GetStatus(ctx context.Context, userID, ticketID string) (*service.TicketStatus, error) {
	if m.GetStatusFunc != nil {
		return m.GetStatusFunc(ctx, userID, ticketID)
	}
	return nil, domain.ErrTicketNotFound
}

// MockValidatorService is a mock implementation of ValidatorService for testing
type MockValidatorService struct {
	ListFunc   func(ctx context.Context, callerID, eventID string) ([]*domain.Delegate, error)
	AddFunc    func(ctx context.Context, callerID, eventID, userID string) (*domain.Delegate, error)
	RemoveFunc func(ctx context.Context, callerID, eventID, userID string) error
}

func (m *MockValidatorService) List(ctx context.Context, callerID, eventID string) ([]*domain.Delegate, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, callerID, eventID)
	}
	return nil, nil
}

func (m *MockValidatorService) Add(ctx context.Context, callerID, eventID, userID string) (*domain.Delegate, error) {
	if m.AddFunc != nil {
		return m.AddFunc(ctx, callerID, eventID, userID)
	}
	return nil, nil
}

func (m *MockValidatorService) Remove(ctx context.Context, callerID, eventID, userID string) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, callerID, eventID, userID)
	}
	return nil
}

// newTestRouter sets user_id the way the JWT middleware does
func newTestRouter(userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	})
	return router
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// decodeEnvelope decodes the response envelope with Data into data
func decodeEnvelope(w *httptest.ResponseRecorder, data interface{}) (response.Response, error) {
	var raw struct {
		response.Response
		Data json.RawMessage `json:"data,omitempty"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		return response.Response{}, err
	}
	if data != nil && len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, data); err != nil {
			return response.Response{}, err
		}
	}
	return raw.Response, nil
}

func errorCode(resp response.Response) string {
	if resp.Error == nil {
		return ""
	}
	return resp.Error.Code
}
