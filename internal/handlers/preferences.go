package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/peacelink/peacelink/internal/middleware"
	"github.com/peacelink/peacelink/internal/services"
	"github.com/peacelink/peacelink/pkg/errors"
	"github.com/peacelink/peacelink/pkg/response"
)

// PreferenceHandler exposes the user's notification settings.
type PreferenceHandler struct {
	prefs *services.PreferenceService
}

// NewPreferenceHandler constructs a preference handler.
func NewPreferenceHandler(prefs *services.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{prefs: prefs}
}

// Get returns the caller's preferences, creating the defaults on first access.
func (h *PreferenceHandler) Get(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	pref, err := h.prefs.Get(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, pref)
}

// Update replaces the caller's preferences with the submitted settings.
func (h *PreferenceHandler) Update(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var payload services.UpdatePreferenceInput
	if !bindAndValidate(c, &payload) {
		return
	}

	pref, err := h.prefs.Update(requestContext(c), userID, payload)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, pref)
}
