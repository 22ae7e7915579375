package api

import (
	"github.com/gin-gonic/gin"

	"github.com/peacelink/peacelink/internal/handlers"
	"github.com/peacelink/peacelink/internal/middleware"
	"github.com/peacelink/peacelink/internal/models"
)

func registerAlertRoutes(api *gin.RouterGroup, handler *handlers.AlertHandler) {
	canModerate := middleware.RequireRole(models.RoleModerator, models.RoleNGO, models.RoleAdmin)

	group := api.Group("/alerts")
	{
		group.GET("", handler.List)
		group.GET("/:id", handler.Get)

		group.POST("", canModerate, handler.Create)
		group.POST("/:id/send", canModerate, handler.Send)
		group.POST("/:id/verify", canModerate, handler.Verify)
	}
}
