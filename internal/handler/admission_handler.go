package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/prohmpiriya/eventic-admission/internal/dto"
	"github.com/prohmpiriya/eventic-admission/internal/service"
	"github.com/prohmpiriya/eventic-admission/pkg/response"
	"github.com/prohmpiriya/eventic-admission/pkg/telemetry"
)

// AdmissionHandler handles admission HTTP requests
type AdmissionHandler struct {
	admissionService service.AdmissionService
	broker           *service.LocationBroker
}

// NewAdmissionHandler creates a new admission handler
func NewAdmissionHandler(admissionService service.AdmissionService, broker *service.LocationBroker) *AdmissionHandler {
	return &AdmissionHandler{
		admissionService: admissionService,
		broker:           broker,
	}
}

// Validate handles POST /admissions
// Refusals are returned as 200 with valid=false; only faults are errors.
func (h *AdmissionHandler) Validate(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admission.validate")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	validatorID, ok := requireUser(c)
	if !ok {
		span.SetStatus(codes.Error, "unauthorized")
		return
	}

	var req dto.ValidateTicketRequest
	if !bindAndValidate(c, &req, false) {
		span.SetStatus(codes.Error, "invalid request")
		return
	}

	span.SetAttributes(
		attribute.String("validator_id", validatorID),
		attribute.String("event_id", req.EventID),
		attribute.Bool("location_request", req.LocationRequestID != ""),
	)

	attempt := req.ToAttempt(validatorID)

	var requester service.LocationRequester
	if req.LocationRequestID != "" && h.broker != nil {
		requester = h.broker.Requester(req.LocationRequestID)
	}

	decision, err := h.admissionService.ValidateWithLocation(ctx, attempt, requester)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.String("category", string(decision.Category)))
	c.JSON(http.StatusOK, response.Success(decision))
}

// AnswerLocation handles POST /location-requests/:id
func (h *AdmissionHandler) AnswerLocation(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	if h.broker == nil {
		c.JSON(http.StatusNotFound, response.NotFound("Location requests are not enabled"))
		return
	}

	var req dto.LocationAnswerRequest
	if !bindAndValidate(c, &req, false) {
		return
	}

	id := c.Param("id")
	var err error
	if req.Denied {
		err = h.broker.Deny(id)
	} else {
		err = h.broker.Resolve(id, *req.Location.ToDomain())
	}
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, response.Success(gin.H{"request_id": id}))
}
