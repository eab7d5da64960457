package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/eventic-admission/internal/dto"
	"github.com/prohmpiriya/eventic-admission/internal/service"
	"github.com/prohmpiriya/eventic-admission/pkg/response"
	"github.com/prohmpiriya/eventic-admission/pkg/telemetry"
)

// ValidatorHandler lets event owners manage delegated validators
type ValidatorHandler struct {
	validatorService service.ValidatorService
}

// NewValidatorHandler creates a new validator handler
func NewValidatorHandler(validatorService service.ValidatorService) *ValidatorHandler {
	return &ValidatorHandler{validatorService: validatorService}
}

// List handles GET /events/:id/validators
func (h *ValidatorHandler) List(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.validator.list")
	defer span.End()

	userID, ok := requireUser(c)
	if !ok {
		return
	}

	list, err := h.validatorService.List(ctx, userID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.ValidatorsFromDomain(list)))
}

// Add handles POST /events/:id/validators
func (h *ValidatorHandler) Add(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.validator.add")
	defer span.End()

	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req dto.AddValidatorRequest
	if !bindAndValidate(c, &req, false) {
		return
	}

	d, err := h.validatorService.Add(ctx, userID, c.Param("id"), req.UserID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(dto.ValidatorFromDomain(d)))
}

// Remove handles DELETE /events/:id/validators/:user_id
func (h *ValidatorHandler) Remove(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.validator.remove")
	defer span.End()

	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.validatorService.Remove(ctx, userID, c.Param("id"), c.Param("user_id")); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
