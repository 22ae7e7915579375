package api

import (
	"github.com/gin-gonic/gin"

	"github.com/peacelink/peacelink/internal/handlers"
	"github.com/peacelink/peacelink/internal/middleware"
	"github.com/peacelink/peacelink/internal/models"
)

func registerEmergencyAlertRoutes(api *gin.RouterGroup, handler *handlers.EmergencyAlertHandler) {
	requireAdmin := middleware.RequireRole(models.RoleAdmin)

	group := api.Group("/emergency-alerts")
	{
		group.GET("", handler.List)
		group.GET("/:id", handler.Get)

		group.POST("", requireAdmin, handler.Create)
		group.POST("/:id/broadcast", requireAdmin, handler.Broadcast)
		group.POST("/:id/deactivate", requireAdmin, handler.Deactivate)
	}
}
