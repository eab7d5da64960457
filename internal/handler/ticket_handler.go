package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/prohmpiriya/eventic-admission/internal/dto"
	"github.com/prohmpiriya/eventic-admission/internal/service"
	"github.com/prohmpiriya/eventic-admission/pkg/response"
	"github.com/prohmpiriya/eventic-admission/pkg/telemetry"
)

// TicketHandler handles ticket credential and status requests
type TicketHandler struct {
	credentialService service.CredentialService
	ticketService     service.TicketService
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(credentialService service.CredentialService, ticketService service.TicketService) *TicketHandler {
	return &TicketHandler{
		credentialService: credentialService,
		ticketService:     ticketService,
	}
}

// IssueCredential handles POST /tickets/:id/credentials
func (h *TicketHandler) IssueCredential(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.ticket.issue_credential")
	defer span.End()

	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req dto.IssueCredentialRequest
	if !bindAndValidate(c, &req, true) {
		return
	}

	ticketID := c.Param("id")
	span.SetAttributes(attribute.String("ticket_id", ticketID))

	cred, err := h.credentialService.Issue(ctx, userID, ticketID, req.HolderLocation.ToDomain())
	if err != nil {
		span.RecordError(err)
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(dto.CredentialFromDomain(cred)))
}

// GetTicket handles GET /tickets/:id
func (h *TicketHandler) GetTicket(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.ticket.get")
	defer span.End()

	userID, ok := requireUser(c)
	if !ok {
		return
	}

	status, err := h.ticketService.GetStatus(ctx, userID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(status))
}
