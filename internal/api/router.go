package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/peacelink/peacelink/internal/app"
	iauth "github.com/peacelink/peacelink/internal/auth"
	"github.com/peacelink/peacelink/internal/handlers"
	"github.com/peacelink/peacelink/internal/middleware"
	"github.com/peacelink/peacelink/internal/services"
)

// Services bundles the domain services the router exposes.
type Services struct {
	Users       *services.UserService
	Preferences *services.PreferenceService
	Inbox       *services.InboxService
	Broadcasts  *services.BroadcastService
	Alerts      *services.SimpleAlertService
	Audit       *services.AuditService
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, svcs Services) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if svcs.Users == nil || svcs.Preferences == nil || svcs.Inbox == nil || svcs.Broadcasts == nil || svcs.Alerts == nil {
		return nil, fmt.Errorf("all domain services must be provided")
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS())

	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health(db))
	}

	authHandler := handlers.NewAuthHandler(svcs.Users, jwt)

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	requireAuth := middleware.Auth(jwt)

	api := r.Group("/api")
	api.Use(requireAuth)

	api.GET("/auth/me", authHandler.Me)

	registerNotificationRoutes(api, handlers.NewNotificationHandler(svcs.Inbox))
	registerPreferenceRoutes(api, handlers.NewPreferenceHandler(svcs.Preferences))
	registerEmergencyAlertRoutes(api, handlers.NewEmergencyAlertHandler(svcs.Broadcasts, svcs.Users))
	registerAlertRoutes(api, handlers.NewAlertHandler(svcs.Alerts))

	if svcs.Audit != nil {
		registerAuditRoutes(api, handlers.NewAuditHandler(svcs.Audit))
	}

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	return r, nil
}
