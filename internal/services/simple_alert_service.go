package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/peacelink/peacelink/internal/models"
	apperrors "github.com/peacelink/peacelink/pkg/errors"
	"github.com/peacelink/peacelink/pkg/logger"
)

// SimpleAlertInput defines an ad hoc alert with an explicit recipient list.
type SimpleAlertInput struct {
	Message    string   `json:"message" validate:"required"`
	Channel    string   `json:"channel" validate:"omitempty,oneof=push sms whatsapp"`
	Recipients []string `json:"recipients" validate:"required,min=1"`
}

// SimpleAlertService handles ad hoc alerts: no targeting rules, no delivery
// counters, just a message pushed straight to a named recipient list.
type SimpleAlertService struct {
	db       *gorm.DB
	notifier *NotificationService
	log      *zap.Logger
}

// NewSimpleAlertService constructs a SimpleAlertService.
func NewSimpleAlertService(db *gorm.DB, notifier *NotificationService) (*SimpleAlertService, error) {
	if db == nil {
		return nil, errors.New("simple alert service: db is required")
	}
	if notifier == nil {
		return nil, errors.New("simple alert service: notification service is required")
	}
	return &SimpleAlertService{db: db, notifier: notifier, log: logger.WithModule("alerts")}, nil
}

// Create persists the alert and immediately notifies every listed recipient.
// Unknown or inactive recipients are skipped, not fatal.
func (s *SimpleAlertService) Create(ctx context.Context, senderID string, input SimpleAlertInput) (*models.Alert, error) {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(input.Message) == "" {
		return nil, apperrors.NewBadRequest("message is required")
	}
	recipients := normaliseStrings(input.Recipients)
	if len(recipients) == 0 {
		return nil, apperrors.NewBadRequest("at least one recipient is required")
	}
	channel := defaultIfEmpty(strings.TrimSpace(input.Channel), models.ChannelPush)
	switch channel {
	case models.ChannelPush, models.ChannelSMS, models.ChannelWhatsapp:
	default:
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown channel %q", input.Channel))
	}

	alert := models.Alert{
		Message:    strings.TrimSpace(input.Message),
		Channel:    channel,
		Recipients: encodeStringList(recipients),
	}
	if senderID = strings.TrimSpace(senderID); senderID != "" {
		alert.SentByID = &senderID
	}

	if err := s.db.WithContext(ctx).Create(&alert).Error; err != nil {
		return nil, fmt.Errorf("simple alert service: create alert: %w", err)
	}

	created := s.notifier.NotifyBatch(ctx, recipients, NotifyInput{
		Type:     models.NotificationSystem,
		Title:    "Community Alert",
		Message:  alert.Message,
		Priority: models.PriorityHigh,
	})
	s.log.Info("simple alert sent",
		zap.String("alert_id", alert.ID),
		zap.Int("recipients", len(recipients)),
		zap.Int("notified", len(created)),
	)

	return &alert, nil
}

// Get loads one ad hoc alert by id.
func (s *SimpleAlertService) Get(ctx context.Context, alertID string) (*models.Alert, error) {
	ctx = ensureContext(ctx)

	var alert models.Alert
	if err := s.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(alertID)).First(&alert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("simple alert service: load alert: %w", err)
	}
	return &alert, nil
}

// List returns recent ad hoc alerts, newest first.
func (s *SimpleAlertService) List(ctx context.Context, limit int) ([]models.Alert, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var alerts []models.Alert
	if err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("simple alert service: list alerts: %w", err)
	}
	return alerts, nil
}

// Send re-dispatches an existing alert to its stored recipient list. Useful
// when the first fan-out happened before some recipients registered.
func (s *SimpleAlertService) Send(ctx context.Context, alertID string) (int, error) {
	ctx = ensureContext(ctx)

	alert, err := s.Get(ctx, alertID)
	if err != nil {
		return 0, err
	}
	recipients := decodeStringList(alert.Recipients)
	if len(recipients) == 0 {
		return 0, apperrors.NewBadRequest("alert has no recipients")
	}

	created := s.notifier.NotifyBatch(ctx, recipients, NotifyInput{
		Type:     models.NotificationSystem,
		Title:    "Community Alert",
		Message:  alert.Message,
		Priority: models.PriorityHigh,
	})
	s.log.Info("simple alert re-sent",
		zap.String("alert_id", alert.ID),
		zap.Int("recipients", len(recipients)),
		zap.Int("notified", len(created)),
	)
	return len(created), nil
}

// Verify flags an alert as verified by a moderator.
func (s *SimpleAlertService) Verify(ctx context.Context, alertID string) (*models.Alert, error) {
	ctx = ensureContext(ctx)

	alert, err := s.Get(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if alert.Verified {
		return alert, nil
	}

	if err := s.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("id = ?", alert.ID).
		UpdateColumn("verified", true).Error; err != nil {
		return nil, fmt.Errorf("simple alert service: verify alert: %w", err)
	}
	alert.Verified = true
	return alert, nil
}
