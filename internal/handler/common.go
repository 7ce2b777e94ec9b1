package handler

import (
	"errors"
	"net/http"

	"accessportal/internal/service"
	"accessportal/internal/workflow"
	"accessportal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// respondError maps engine and service errors onto HTTP statuses:
// illegal transitions conflict, denied actions are forbidden, stale
// revision ids and missing rows are not found, fixable input is a bad
// request, everything else is a server error.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, workflow.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, workflow.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, workflow.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	}
	c.JSON(status, response.Error(status, err.Error()))
}

// currentActor builds the acting identity from the JWT claims the auth
// middleware stored on the context.
func currentActor(c *gin.Context) service.Actor {
	var actor service.Actor
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok {
			if id, err := uuid.Parse(s); err == nil {
				actor.ID = id
			}
		}
	}
	if v, ok := c.Get("userRole"); ok {
		if s, ok := v.(string); ok {
			actor.Role = workflow.Role(s)
		}
	}
	if v, ok := c.Get("userName"); ok {
		if s, ok := v.(string); ok {
			actor.Name = s
		}
	}
	return actor
}
