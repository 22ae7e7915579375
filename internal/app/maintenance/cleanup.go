package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/peacelink/peacelink/internal/models"
	"github.com/peacelink/peacelink/internal/services"
	"github.com/peacelink/peacelink/pkg/logger"
)

const (
	defaultNotificationRetentionDays = 90
	defaultAuditRetentionDays        = 90
	defaultExpirySpec                = "@hourly"
	defaultRetentionSpec             = "@daily"
)

// Cleaner coordinates background maintenance: deactivating expired emergency
// alerts, pruning old read notifications, and enforcing audit log retention.
type Cleaner struct {
	db    *gorm.DB
	audit *services.AuditService
	cron  *cron.Cron
	now   func() time.Time
	log   *zap.Logger

	notificationRetention int
	auditRetention        int

	expirySchedule    string
	retentionSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for scheduling and cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithNotificationRetentionDays adjusts how long read notifications are kept.
func WithNotificationRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.notificationRetention = days
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained before cleanup.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.auditRetention = days
		}
	}
}

// WithExpirySchedule overrides the cron specification for alert expiry sweeps.
func WithExpirySchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.expirySchedule = spec
		}
	}
}

// WithRetentionSchedule overrides the cron specification for retention enforcement.
func WithRetentionSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.retentionSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. A nil audit service
// results in the audit retention job being skipped.
func NewCleaner(db *gorm.DB, audit *services.AuditService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:                    db,
		audit:                 audit,
		now:                   time.Now,
		notificationRetention: defaultNotificationRetentionDays,
		auditRetention:        defaultAuditRetentionDays,
		expirySchedule:        defaultExpirySpec,
		retentionSchedule:     defaultRetentionSpec,
		log:                   logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the cleanup jobs with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.db == nil {
		return nil
	}

	if _, err := c.cron.AddFunc(c.expirySchedule, func() {
		ctx := context.Background()
		if _, err := DeactivateExpiredAlerts(ctx, c.db, c.now()); err != nil {
			c.log.Warn("alert expiry sweep failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	if _, err := c.cron.AddFunc(c.retentionSchedule, func() {
		ctx := context.Background()
		if _, err := PruneReadNotifications(ctx, c.db, c.now().AddDate(0, 0, -c.notificationRetention)); err != nil {
			c.log.Warn("notification retention failed", zap.Error(err))
		}
		if c.audit != nil {
			if _, err := c.audit.PruneOlderThan(ctx, c.now().AddDate(0, 0, -c.auditRetention)); err != nil {
				c.log.Warn("audit retention failed", zap.Error(err))
			}
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily used
// in tests and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.db == nil {
		return nil
	}

	var errs error

	if _, err := DeactivateExpiredAlerts(ctx, c.db, c.now()); err != nil {
		errs = multierr.Append(errs, err)
	}
	if _, err := PruneReadNotifications(ctx, c.db, c.now().AddDate(0, 0, -c.notificationRetention)); err != nil {
		errs = multierr.Append(errs, err)
	}
	if c.audit != nil {
		if _, err := c.audit.PruneOlderThan(ctx, c.now().AddDate(0, 0, -c.auditRetention)); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// DeactivateExpiredAlerts turns off active alerts whose expires_at has passed.
// Already-delivered notifications are untouched.
func DeactivateExpiredAlerts(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("deactivate expired alerts: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := db.WithContext(ctx).
		Model(&models.EmergencyAlert{}).
		Where("is_active = ? AND expires_at IS NOT NULL AND expires_at < ?", true, now).
		UpdateColumn("is_active", false)
	if result.Error != nil {
		return 0, fmt.Errorf("deactivate expired alerts: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// PruneReadNotifications deletes read notifications created before the cutoff.
// Unread notifications are kept regardless of age.
func PruneReadNotifications(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("prune notifications: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := db.WithContext(ctx).
		Where("read = ? AND created_at < ?", true, cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("prune notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}
