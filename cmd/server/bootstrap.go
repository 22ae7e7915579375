package main

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/peacelink/peacelink/internal/api"
	"github.com/peacelink/peacelink/internal/app"
	"github.com/peacelink/peacelink/internal/app/maintenance"
	iauth "github.com/peacelink/peacelink/internal/auth"
	"github.com/peacelink/peacelink/internal/channels"
	"github.com/peacelink/peacelink/internal/database"
	"github.com/peacelink/peacelink/internal/services"
	"github.com/peacelink/peacelink/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB      *gorm.DB
	Cleaner *maintenance.Cleaner
	Router  *gin.Engine
}

// bootstrapRuntime initialises the database, gateways, services, and router.
func bootstrapRuntime(cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	db, err := initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	jwtService, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	push, sms := buildGateways(cfg, log)

	prefs, err := services.NewPreferenceService(db)
	if err != nil {
		return nil, fmt.Errorf("initialise preference service: %w", err)
	}
	resolver, err := services.NewTargetResolver(db)
	if err != nil {
		return nil, fmt.Errorf("initialise target resolver: %w", err)
	}

	var dispatcherOpts []services.DispatcherOption
	if cfg.Broadcast.ChannelTimeout > 0 {
		dispatcherOpts = append(dispatcherOpts, services.WithChannelTimeout(cfg.Broadcast.ChannelTimeout))
	}
	dispatcher, err := services.NewChannelDispatcher(db, push, sms, dispatcherOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise channel dispatcher: %w", err)
	}

	notifier, err := services.NewNotificationService(db, prefs, dispatcher)
	if err != nil {
		return nil, fmt.Errorf("initialise notification service: %w", err)
	}
	auditSvc, err := services.NewAuditService(db)
	if err != nil {
		return nil, fmt.Errorf("initialise audit service: %w", err)
	}
	broadcasts, err := services.NewBroadcastService(db, resolver, notifier, auditSvc,
		services.WithBroadcastWorkers(cfg.Broadcast.Workers))
	if err != nil {
		return nil, fmt.Errorf("initialise broadcast service: %w", err)
	}
	inbox, err := services.NewInboxService(db)
	if err != nil {
		return nil, fmt.Errorf("initialise inbox service: %w", err)
	}
	alerts, err := services.NewSimpleAlertService(db, notifier)
	if err != nil {
		return nil, fmt.Errorf("initialise alert service: %w", err)
	}
	users, err := services.NewUserService(db, prefs)
	if err != nil {
		return nil, fmt.Errorf("initialise user service: %w", err)
	}

	var cleaner *maintenance.Cleaner
	if cfg.Maintenance.Enabled {
		cleaner = maintenance.NewCleaner(db, auditSvc,
			maintenance.WithNotificationRetentionDays(cfg.Maintenance.NotificationRetentionDays),
			maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays),
		)
		if err := cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	router, err := api.NewRouter(db, jwtService, cfg, api.Services{
		Users:       users,
		Preferences: prefs,
		Inbox:       inbox,
		Broadcasts:  broadcasts,
		Alerts:      alerts,
		Audit:       auditSvc,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	return &runtimeStack{DB: db, Cleaner: cleaner, Router: router}, nil
}

// Close stops background jobs and releases the database handle.
func (s *runtimeStack) Close(log *zap.Logger) {
	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if err := s.Cleaner.RunOnce(stopCtx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.DB != nil {
		if sqlDB, err := s.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Warn("close database failed", zap.Error(err))
			}
		}
	}
}

func buildGateways(cfg *app.Config, log *zap.Logger) (channels.PushGateway, channels.SMSGateway) {
	if strings.TrimSpace(cfg.Gateway.BaseURL) == "" {
		log.Info("no delivery gateway configured; using logging no-op gateway")
		noop := channels.NewNoopGateway()
		return noop, noop
	}

	gateway, err := channels.NewHTTPGateway(channels.HTTPGatewayConfig{
		BaseURL: cfg.Gateway.BaseURL,
		Token:   cfg.Gateway.Token,
		Timeout: cfg.Gateway.Timeout,
	})
	if err != nil {
		log.Warn("gateway misconfigured; using logging no-op gateway", zap.Error(err))
		noop := channels.NewNoopGateway()
		return noop, noop
	}

	log.Info("delivery gateway configured", zap.String("base_url", cfg.Gateway.BaseURL))
	return gateway, gateway
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	logger.WithModule("database").Info("database connected",
		zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}
