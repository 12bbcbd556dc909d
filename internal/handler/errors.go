package handler

import (
	"errors"
	"net/http"

	"salesdesk/internal/middleware"
	"salesdesk/internal/service"
	"salesdesk/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// Order matters only where errors wrap one another; none of these do.
var errorMappings = []errorMapping{
	{service.ErrNotFound, http.StatusNotFound, "not_found"},
	{service.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{service.ErrAlreadyProcessed, http.StatusConflict, "already_processed"},
	{service.ErrInvalidState, http.StatusConflict, "invalid_state"},
	{service.ErrUsernameTaken, http.StatusConflict, "username_taken"},
	{service.ErrInvalidReason, http.StatusBadRequest, "invalid_reason"},
	{service.ErrInvalidStatus, http.StatusBadRequest, "invalid_status"},
	{service.ErrInvalidAgentID, http.StatusBadRequest, "invalid_agent_id"},
	{service.ErrInvalidRole, http.StatusBadRequest, "invalid_role"},
	{service.ErrInvalidUser, http.StatusBadRequest, "invalid_user"},
	{service.ErrUnknownProduct, http.StatusUnprocessableEntity, "unknown_product"},
	{service.ErrEmptySelection, http.StatusUnprocessableEntity, "empty_selection"},
	{service.ErrInvalidQuantity, http.StatusUnprocessableEntity, "invalid_quantity"},
	{service.ErrQuantityCap, http.StatusUnprocessableEntity, "quantity_cap"},
	{service.ErrInvalidBuyer, http.StatusUnprocessableEntity, "invalid_buyer"},
	{service.ErrInvalidGrade, http.StatusUnprocessableEntity, "invalid_grade"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{service.ErrDuplicateReceipt, http.StatusServiceUnavailable, "duplicate_receipt"},
}

// writeError maps a service error to its HTTP status. Unknown errors are
// logged and answered with a generic 500.
func writeError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			c.JSON(m.status, response.ErrorWithCode(m.status, m.code, err.Error()))
			return
		}
	}

	log.Error().
		Err(err).
		Str("request_id", c.GetString(middleware.RequestIDKey)).
		Str("path", c.FullPath()).
		Msg("request failed")
	c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Internal server error"))
}

func writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.ErrorWithCode(http.StatusBadRequest, "invalid_payload", "Invalid request payload: "+err.Error()))
}

// actorOrAbort reads the authenticated actor or answers 401.
func actorOrAbort(c *gin.Context) (middleware.Actor, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User ID not found in context"))
	}
	return actor, ok
}
