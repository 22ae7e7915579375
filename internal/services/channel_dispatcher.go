package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/peacelink/peacelink/internal/channels"
	"github.com/peacelink/peacelink/internal/models"
	"github.com/peacelink/peacelink/pkg/logger"
	"github.com/peacelink/peacelink/pkg/metrics"
)

const defaultChannelTimeout = 10 * time.Second

// Channel labels used in dispatch results and metrics.
const (
	channelPush = "push"
	channelSMS  = "sms"
)

// AlertContext carries the broadcast attributes the dispatcher needs for the
// critical-severity SMS override.
type AlertContext struct {
	Severity string
	SendSMS  bool
}

// ChannelAttempt is the structured outcome of one channel decision.
type ChannelAttempt struct {
	Channel   string `json:"channel"`
	Attempted bool   `json:"attempted"`
	Sent      bool   `json:"sent"`
	Error     string `json:"error,omitempty"`
}

// DispatchResult reports what happened on every channel for one notification.
// Failures are recorded here and logged, never raised to the caller of notify
// or broadcast.
type DispatchResult struct {
	Push ChannelAttempt `json:"push"`
	SMS  ChannelAttempt `json:"sms"`
}

// ChannelDispatcher decides which external channels to invoke per notification
// and performs the sends. Each channel fires at most once per notification and
// channels fail independently.
type ChannelDispatcher struct {
	db      *gorm.DB
	push    channels.PushGateway
	sms     channels.SMSGateway
	timeout time.Duration
	log     *zap.Logger
}

// DispatcherOption customises the ChannelDispatcher.
type DispatcherOption func(*ChannelDispatcher)

// WithChannelTimeout bounds each external gateway call.
func WithChannelTimeout(timeout time.Duration) DispatcherOption {
	return func(d *ChannelDispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// NewChannelDispatcher constructs a ChannelDispatcher with its gateways.
func NewChannelDispatcher(db *gorm.DB, push channels.PushGateway, sms channels.SMSGateway, opts ...DispatcherOption) (*ChannelDispatcher, error) {
	if db == nil {
		return nil, errors.New("channel dispatcher: db is required")
	}
	if push == nil || sms == nil {
		return nil, errors.New("channel dispatcher: gateways are required")
	}

	d := &ChannelDispatcher{
		db:      db,
		push:    push,
		sms:     sms,
		timeout: defaultChannelTimeout,
		log:     logger.WithModule("dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch applies the channel rules for one notification:
//   - push fires iff the recipient enabled push;
//   - SMS fires iff the recipient enabled SMS and priority is critical or high;
//   - for critical-severity emergency alerts flagged send_sms, SMS fires for
//     any recipient with a phone on file regardless of their SMS preference.
//
// Re-dispatching an already-sent channel is a no-op.
func (d *ChannelDispatcher) Dispatch(ctx context.Context, notification *models.Notification, recipient *models.User, pref *models.NotificationPreference, alert *AlertContext) DispatchResult {
	ctx = ensureContext(ctx)

	result := DispatchResult{
		Push: ChannelAttempt{Channel: channelPush},
		SMS:  ChannelAttempt{Channel: channelSMS},
	}
	if notification == nil || recipient == nil || pref == nil {
		return result
	}

	result.Push = d.dispatchPush(ctx, notification, recipient, pref)
	result.SMS = d.dispatchSMS(ctx, notification, recipient, pref, alert)
	return result
}

func (d *ChannelDispatcher) dispatchPush(ctx context.Context, notification *models.Notification, recipient *models.User, pref *models.NotificationPreference) ChannelAttempt {
	attempt := ChannelAttempt{Channel: channelPush}

	if notification.PushSent {
		attempt.Sent = true
		return attempt
	}
	if !pref.PushEnabled {
		metrics.ChannelSends.WithLabelValues(channelPush, "skipped").Inc()
		return attempt
	}

	attempt.Attempted = true
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.push.SendPush(sendCtx, recipient.ID, notification.Title, notification.Message); err != nil {
		attempt.Error = err.Error()
		metrics.ChannelSends.WithLabelValues(channelPush, "failed").Inc()
		d.log.Warn("push delivery failed",
			zap.String("notification_id", notification.ID),
			zap.String("recipient_id", recipient.ID),
			zap.Error(err),
		)
		return attempt
	}

	if err := d.markChannelSent(ctx, notification, "push_sent"); err != nil {
		attempt.Error = err.Error()
		d.log.Error("record push_sent failed", zap.String("notification_id", notification.ID), zap.Error(err))
		return attempt
	}

	attempt.Sent = true
	notification.PushSent = true
	metrics.ChannelSends.WithLabelValues(channelPush, "sent").Inc()
	return attempt
}

func (d *ChannelDispatcher) dispatchSMS(ctx context.Context, notification *models.Notification, recipient *models.User, pref *models.NotificationPreference, alert *AlertContext) ChannelAttempt {
	attempt := ChannelAttempt{Channel: channelSMS}

	if notification.SMSSent {
		attempt.Sent = true
		return attempt
	}

	urgent := notification.Priority == models.PriorityCritical || notification.Priority == models.PriorityHigh
	wanted := pref.SMSEnabled && urgent

	// User-protection override: critical-severity alerts reach any phone on
	// file even when the recipient opted out of SMS.
	if alert != nil && alert.Severity == models.SeverityCritical && alert.SendSMS && recipient.Phone != "" {
		wanted = true
	}

	if !wanted || recipient.Phone == "" {
		metrics.ChannelSends.WithLabelValues(channelSMS, "skipped").Inc()
		return attempt
	}

	attempt.Attempted = true
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.sms.SendSMS(sendCtx, recipient.Phone, notification.Message); err != nil {
		attempt.Error = err.Error()
		metrics.ChannelSends.WithLabelValues(channelSMS, "failed").Inc()
		d.log.Warn("sms delivery failed",
			zap.String("notification_id", notification.ID),
			zap.String("recipient_id", recipient.ID),
			zap.Error(err),
		)
		return attempt
	}

	if err := d.markChannelSent(ctx, notification, "sms_sent"); err != nil {
		attempt.Error = err.Error()
		d.log.Error("record sms_sent failed", zap.String("notification_id", notification.ID), zap.Error(err))
		return attempt
	}

	attempt.Sent = true
	notification.SMSSent = true
	metrics.ChannelSends.WithLabelValues(channelSMS, "sent").Inc()
	return attempt
}

// markChannelSent flips the per-channel flag and stamps sent/sent_at once.
// The sent_at timestamp keeps its first value when a second channel lands.
func (d *ChannelDispatcher) markChannelSent(ctx context.Context, notification *models.Notification, column string) error {
	updates := map[string]any{column: true}
	if !notification.Sent {
		now := time.Now().UTC()
		updates["sent"] = true
		updates["sent_at"] = now
		notification.Sent = true
		notification.SentAt = &now
	}

	return d.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", notification.ID).
		UpdateColumns(updates).Error
}
