package api

import (
	"github.com/gin-gonic/gin"

	"github.com/peacelink/peacelink/internal/handlers"
	"github.com/peacelink/peacelink/internal/middleware"
	"github.com/peacelink/peacelink/internal/models"
)

func registerAuditRoutes(api *gin.RouterGroup, handler *handlers.AuditHandler) {
	api.GET("/audit", middleware.RequireRole(models.RoleAdmin), handler.List)
}
