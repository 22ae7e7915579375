package api

import (
	"github.com/gin-gonic/gin"

	"github.com/peacelink/peacelink/internal/handlers"
)

func registerNotificationRoutes(api *gin.RouterGroup, handler *handlers.NotificationHandler) {
	group := api.Group("/notifications")
	{
		group.GET("", handler.List)
		group.GET("/unread-count", handler.UnreadCount)
		group.POST("/read-all", handler.MarkAllRead)
		group.POST("/:id/read", handler.MarkRead)
		group.DELETE("/clear", handler.Clear)
	}
}
