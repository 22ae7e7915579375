package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/peacelink/peacelink/internal/models"
	apperrors "github.com/peacelink/peacelink/pkg/errors"
)

var quietHoursPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// UpdatePreferenceInput carries the full preference payload for an owner update.
type UpdatePreferenceInput struct {
	PushEnabled  bool `json:"push_enabled"`
	SMSEnabled   bool `json:"sms_enabled"`
	EmailEnabled bool `json:"email_enabled"`

	ReportNotifications    bool `json:"report_notifications"`
	MeetingNotifications   bool `json:"meeting_notifications"`
	ForumNotifications     bool `json:"forum_notifications"`
	MessageNotifications   bool `json:"message_notifications"`
	EmergencyNotifications bool `json:"emergency_notifications"`

	QuietHoursEnabled bool   `json:"quiet_hours_enabled"`
	QuietHoursStart   string `json:"quiet_hours_start"`
	QuietHoursEnd     string `json:"quiet_hours_end"`
}

// PreferenceService owns per-user notification settings.
type PreferenceService struct {
	db *gorm.DB
}

// NewPreferenceService constructs a PreferenceService.
func NewPreferenceService(db *gorm.DB) (*PreferenceService, error) {
	if db == nil {
		return nil, errors.New("preference service: db is required")
	}
	return &PreferenceService{db: db}, nil
}

// Get returns the user's preference row, creating the defaults when absent.
func (s *PreferenceService) Get(ctx context.Context, userID string) (*models.NotificationPreference, error) {
	return s.EnsureDefaults(ctx, userID)
}

// EnsureDefaults returns the existing preference row for the user, creating
// one with defaults when none exists. Safe under concurrent first use: the
// unique index on user_id arbitrates racing creates and the loser re-reads.
func (s *PreferenceService) EnsureDefaults(ctx context.Context, userID string) (*models.NotificationPreference, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}

	var pref models.NotificationPreference
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&pref).Error
	if err == nil {
		return &pref, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("preference service: load preference: %w", err)
	}

	pref = models.DefaultNotificationPreference(userID)
	if err := s.db.WithContext(ctx).Create(&pref).Error; err != nil {
		if !isUniqueConstraintError(err) {
			return nil, fmt.Errorf("preference service: create defaults: %w", err)
		}
		// Lost the race: another notify created the row first.
		if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&pref).Error; err != nil {
			return nil, fmt.Errorf("preference service: reload after race: %w", err)
		}
	}

	return &pref, nil
}

// Update replaces the user's preference settings. Only the owner reaches this
// call; the handler scopes userID from the authenticated identity.
func (s *PreferenceService) Update(ctx context.Context, userID string, input UpdatePreferenceInput) (*models.NotificationPreference, error) {
	ctx = ensureContext(ctx)

	if input.QuietHoursEnabled {
		if !quietHoursPattern.MatchString(input.QuietHoursStart) || !quietHoursPattern.MatchString(input.QuietHoursEnd) {
			return nil, apperrors.NewBadRequest("quiet hours must use HH:MM format")
		}
	}

	pref, err := s.EnsureDefaults(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{
		"push_enabled":            input.PushEnabled,
		"sms_enabled":             input.SMSEnabled,
		"email_enabled":           input.EmailEnabled,
		"report_notifications":    input.ReportNotifications,
		"meeting_notifications":   input.MeetingNotifications,
		"forum_notifications":     input.ForumNotifications,
		"message_notifications":   input.MessageNotifications,
		"emergency_notifications": input.EmergencyNotifications,
		"quiet_hours_enabled":     input.QuietHoursEnabled,
		"quiet_hours_start":       strings.TrimSpace(input.QuietHoursStart),
		"quiet_hours_end":         strings.TrimSpace(input.QuietHoursEnd),
	}

	if err := s.db.WithContext(ctx).Model(pref).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("preference service: update: %w", err)
	}

	var updated models.NotificationPreference
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&updated).Error; err != nil {
		return nil, fmt.Errorf("preference service: reload: %w", err)
	}
	return &updated, nil
}
