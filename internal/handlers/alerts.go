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

// AlertHandler exposes ad hoc community alerts.
type AlertHandler struct {
	alerts *services.SimpleAlertService
}

// NewAlertHandler constructs an alert handler.
func NewAlertHandler(alerts *services.SimpleAlertService) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

// Create sends an ad hoc alert to an explicit recipient list.
func (h *AlertHandler) Create(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var payload services.SimpleAlertInput
	if !bindAndValidate(c, &payload) {
		return
	}

	alert, err := h.alerts.Create(requestContext(c), userID, payload)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, alert)
}

// List returns recent ad hoc alerts.
func (h *AlertHandler) List(c *gin.Context) {
	alerts, err := h.alerts.List(requestContext(c), parseIntQuery(c, "limit", 50))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, alerts)
}

// Get returns one ad hoc alert.
func (h *AlertHandler) Get(c *gin.Context) {
	alert, err := h.alerts.Get(requestContext(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, alert)
}

// Send re-dispatches an alert to its stored recipients.
func (h *AlertHandler) Send(c *gin.Context) {
	notified, err := h.alerts.Send(requestContext(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"notified": notified})
}

// Verify marks an alert as verified by a moderator.
func (h *AlertHandler) Verify(c *gin.Context) {
	alert, err := h.alerts.Verify(requestContext(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, alert)
}
