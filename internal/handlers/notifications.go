package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/peacelink/peacelink/internal/middleware"
	"github.com/peacelink/peacelink/internal/services"
	"github.com/peacelink/peacelink/pkg/errors"
	"github.com/peacelink/peacelink/pkg/response"
)

// NotificationHandler exposes HTTP endpoints for the user's inbox.
type NotificationHandler struct {
	inbox *services.InboxService
}

// NewNotificationHandler constructs a notification handler.
func NewNotificationHandler(inbox *services.InboxService) *NotificationHandler {
	return &NotificationHandler{inbox: inbox}
}

// List returns notifications for the current user, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	page, err := h.inbox.List(requestContext(c), userID, services.InboxFilter{
		Read:     parseBoolQuery(c, "read"),
		Type:     strings.TrimSpace(c.Query("type")),
		Priority: strings.TrimSpace(c.Query("priority")),
		Limit:    parseIntQuery(c, "limit", 50),
		Offset:   parseIntQuery(c, "offset", 0),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, page)
}

// UnreadCount returns how many notifications are unread.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	count, err := h.inbox.UnreadCount(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"unread": count})
}

// MarkRead marks one notification as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	notification, err := h.inbox.MarkRead(requestContext(c), userID, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, notification)
}

// Clear deletes every read notification for the current user.
func (h *NotificationHandler) Clear(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	removed, err := h.inbox.PurgeRead(requestContext(c), userID, time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"removed": removed})
}

// MarkAllRead marks every unread notification as read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	updated, err := h.inbox.MarkAllRead(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": updated})
}
