package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/peacelink/peacelink/internal/models"
	apperrors "github.com/peacelink/peacelink/pkg/errors"
	"github.com/peacelink/peacelink/pkg/logger"
)

// InboxFilter narrows an inbox listing. Nil/empty fields match everything.
type InboxFilter struct {
	Read     *bool
	Type     string
	Priority string
	Limit    int
	Offset   int
}

// InboxPage is one page of a user's notifications.
type InboxPage struct {
	Notifications []models.Notification `json:"notifications"`
	Total         int64                 `json:"total"`
	Unread        int64                 `json:"unread"`
}

// InboxService serves a user's own notification feed. Every operation is
// scoped to the owner; a notification belonging to someone else behaves as if
// it did not exist.
type InboxService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewInboxService constructs an InboxService.
func NewInboxService(db *gorm.DB) (*InboxService, error) {
	if db == nil {
		return nil, errors.New("inbox service: db is required")
	}
	return &InboxService{db: db, log: logger.WithModule("inbox")}, nil
}

// List returns the user's notifications, newest first.
func (s *InboxService) List(ctx context.Context, userID string, filter InboxFilter) (*InboxPage, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	query := s.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ?", userID)
	if filter.Read != nil {
		query = query.Where("read = ?", *filter.Read)
	}
	if t := strings.TrimSpace(filter.Type); t != "" {
		if !models.ValidNotificationType(t) {
			return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown notification type %q", t))
		}
		query = query.Where("type = ?", t)
	}
	if p := strings.TrimSpace(filter.Priority); p != "" {
		if !models.ValidNotificationPriority(p) {
			return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown priority %q", p))
		}
		query = query.Where("priority = ?", p)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("inbox service: count notifications: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var notifications []models.Notification
	if err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("inbox service: list notifications: %w", err)
	}

	unread, err := s.UnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &InboxPage{Notifications: notifications, Total: total, Unread: unread}, nil
}

// UnreadCount returns how many of the user's notifications are unread.
func (s *InboxService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	ctx = ensureContext(ctx)

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", strings.TrimSpace(userID), false).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("inbox service: count unread: %w", err)
	}
	return count, nil
}

// MarkRead marks one notification read. Marking an already-read notification
// is a no-op that leaves read_at untouched. The first transition to read for
// an emergency alert notification also bumps the alert's read counter.
func (s *InboxService) MarkRead(ctx context.Context, userID, notificationID string) (*models.Notification, error) {
	ctx = ensureContext(ctx)

	var notification models.Notification
	if err := s.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", strings.TrimSpace(notificationID), strings.TrimSpace(userID)).
		First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("inbox service: load notification: %w", err)
	}

	if notification.Read {
		return &notification, nil
	}

	now := time.Now()
	// The read guard makes the transition single-shot under concurrent marks.
	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND read = ?", notification.ID, false).
		UpdateColumns(map[string]any{"read": true, "read_at": now})
	if result.Error != nil {
		return nil, fmt.Errorf("inbox service: mark read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// Lost the race; reload the winner's state.
		if err := s.db.WithContext(ctx).Where("id = ?", notification.ID).First(&notification).Error; err != nil {
			return nil, fmt.Errorf("inbox service: reload notification: %w", err)
		}
		return &notification, nil
	}

	notification.Read = true
	notification.ReadAt = &now

	if notification.Type == models.NotificationEmergencyAlert {
		s.bumpAlertReadCount(ctx, notification.ID, 1)
	}

	return &notification, nil
}

// MarkAllRead marks every unread notification of the user read and returns the
// number affected.
func (s *InboxService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, apperrors.ErrUnauthorized
	}

	var alertNotificationIDs []string
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ? AND type = ?", userID, false, models.NotificationEmergencyAlert).
		Pluck("id", &alertNotificationIDs).Error; err != nil {
		return 0, fmt.Errorf("inbox service: list unread alerts: %w", err)
	}

	now := time.Now()
	var updated int64

	// Alert notifications flip one at a time with a read guard so each
	// read_count bump maps to a row this call actually transitioned. A
	// concurrent MarkRead already bumped the rows it won.
	for _, id := range alertNotificationIDs {
		result := s.db.WithContext(ctx).
			Model(&models.Notification{}).
			Where("id = ? AND read = ?", id, false).
			UpdateColumns(map[string]any{"read": true, "read_at": now})
		if result.Error != nil {
			return updated, fmt.Errorf("inbox service: mark alert read: %w", result.Error)
		}
		if result.RowsAffected == 1 {
			updated++
			s.bumpAlertReadCount(ctx, id, 1)
		}
	}

	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ? AND type <> ?", userID, false, models.NotificationEmergencyAlert).
		UpdateColumns(map[string]any{"read": true, "read_at": now})
	if result.Error != nil {
		return updated, fmt.Errorf("inbox service: mark all read: %w", result.Error)
	}

	return updated + result.RowsAffected, nil
}

// PurgeRead deletes the user's read notifications older than the cutoff and
// returns the number removed.
func (s *InboxService) PurgeRead(ctx context.Context, userID string, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("recipient_id = ? AND read = ? AND created_at < ?", strings.TrimSpace(userID), true, cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("inbox service: purge read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// bumpAlertReadCount finds the alert a notification was delivered under and
// increments its read_count. Read accounting is best effort; failures are
// logged and never surface to the caller.
func (s *InboxService) bumpAlertReadCount(ctx context.Context, notificationID string, delta int) {
	var delivery models.AlertDelivery
	if err := s.db.WithContext(ctx).
		Where("notification_id = ?", notificationID).
		First(&delivery).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn("load alert delivery failed", zap.String("notification_id", notificationID), zap.Error(err))
		}
		return
	}

	if err := s.db.WithContext(ctx).
		Model(&models.EmergencyAlert{}).
		Where("id = ?", delivery.AlertID).
		UpdateColumn("read_count", gorm.Expr("read_count + ?", delta)).Error; err != nil {
		s.log.Warn("increment read_count failed", zap.String("alert_id", delivery.AlertID), zap.Error(err))
	}
}
