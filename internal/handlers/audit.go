package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/peacelink/peacelink/internal/services"
	"github.com/peacelink/peacelink/pkg/response"
)

// AuditHandler exposes the audit trail for administrators.
type AuditHandler struct {
	audit *services.AuditService
}

// NewAuditHandler constructs an audit handler.
func NewAuditHandler(audit *services.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List returns recent audit entries, optionally filtered by action.
func (h *AuditHandler) List(c *gin.Context) {
	entries, err := h.audit.Recent(requestContext(c),
		strings.TrimSpace(c.Query("action")),
		parseIntQuery(c, "limit", 50),
	)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, entries)
}
