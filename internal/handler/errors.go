package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/eventic-admission/internal/domain"
	"github.com/prohmpiriya/eventic-admission/pkg/logger"
	"github.com/prohmpiriya/eventic-admission/pkg/middleware"
	"github.com/prohmpiriya/eventic-admission/pkg/response"
)

// handleError converts domain errors to HTTP responses
func handleError(c *gin.Context, err error) {
	switch {
	case domain.IsNotFoundError(err):
		c.JSON(http.StatusNotFound, response.NotFound(err.Error()))
	case domain.IsForbiddenError(err):
		c.JSON(http.StatusForbidden, response.Forbidden(err.Error()))
	case domain.IsConflictError(err):
		c.JSON(http.StatusConflict, response.Conflict(err.Error()))
	case errors.Is(err, domain.ErrPINCollision):
		c.JSON(http.StatusServiceUnavailable, response.Error("CODE_SPACE_EXHAUSTED", "No free ticket code available, try again"))
	default:
		logger.Get().WithContext(c.Request.Context()).Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, response.InternalError("Internal server error"))
	}
}

// requireUser returns the authenticated user or writes 401
func requireUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, response.Unauthorized("Authentication required"))
		return "", false
	}
	return userID, true
}

// bindAndValidate decodes the JSON body and runs its Validate method. An
// empty body is accepted when allowEmpty is set.
func bindAndValidate(c *gin.Context, req interface{ Validate() error }, allowEmpty bool) bool {
	if c.Request.ContentLength != 0 || !allowEmpty {
		if err := c.ShouldBindJSON(req); err != nil {
			c.JSON(http.StatusBadRequest, response.BadRequest("Invalid request body"))
			return false
		}
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, response.ValidationError(err.Error()))
		return false
	}
	return true
}
