package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/peacelink/peacelink/internal/middleware"
	"github.com/peacelink/peacelink/internal/services"
	"github.com/peacelink/peacelink/pkg/errors"
	"github.com/peacelink/peacelink/pkg/response"
)

// EmergencyAlertHandler manages emergency broadcasts over HTTP.
type EmergencyAlertHandler struct {
	broadcasts *services.BroadcastService
	users      *services.UserService
}

// NewEmergencyAlertHandler constructs an emergency alert handler.
func NewEmergencyAlertHandler(broadcasts *services.BroadcastService, users *services.UserService) *EmergencyAlertHandler {
	return &EmergencyAlertHandler{broadcasts: broadcasts, users: users}
}

// Create issues a new emergency alert. Admin only; the service enforces the
// role check against the stored user.
func (h *EmergencyAlertHandler) Create(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var payload services.CreateAlertInput
	if !bindAndValidate(c, &payload) {
		return
	}

	alert, err := h.broadcasts.Create(requestContext(c), userID, payload)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, alert)
}

// Broadcast triggers fan-out for an alert and returns the delivery summary.
func (h *EmergencyAlertHandler) Broadcast(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	summary, err := h.broadcasts.Broadcast(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, summary)
}

// Deactivate stops future dispatch for an alert.
func (h *EmergencyAlertHandler) Deactivate(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	alert, err := h.broadcasts.Deactivate(requestContext(c), userID, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, alert)
}

// Get returns one alert.
func (h *EmergencyAlertHandler) Get(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	alert, err := h.broadcasts.Get(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, alert)
}

// List returns alerts visible to the caller: admins see everything, other
// users only active alerts that target them.
func (h *EmergencyAlertHandler) List(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	user, err := h.users.GetByID(requestContext(c), userID)
	if err != nil {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	alerts, err := h.broadcasts.ListForUser(requestContext(c), user)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, alerts)
}
