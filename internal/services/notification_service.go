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
	"github.com/peacelink/peacelink/pkg/metrics"
)

// NotifyInput defines the attributes of a point-to-point notification.
type NotifyInput struct {
	RecipientID string
	Type        string
	Title       string
	Message     string
	Priority    string

	ReportID    *int64
	ForumPostID *int64
	MeetingID   *int64
	MessageID   *int64

	ActionURL string
}

// NotificationService creates notification records and orchestrates preference
// lookup and channel dispatch. The in-app record always survives: channel
// failures are recorded on the row and in the result, never raised.
type NotificationService struct {
	db         *gorm.DB
	prefs      *PreferenceService
	dispatcher *ChannelDispatcher
	log        *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(db *gorm.DB, prefs *PreferenceService, dispatcher *ChannelDispatcher) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	if prefs == nil {
		return nil, errors.New("notification service: preference service is required")
	}
	if dispatcher == nil {
		return nil, errors.New("notification service: dispatcher is required")
	}
	return &NotificationService{
		db:         db,
		prefs:      prefs,
		dispatcher: dispatcher,
		log:        logger.WithModule("notifications"),
	}, nil
}

// Notify creates and persists a notification, then dispatches it across the
// recipient's enabled channels.
func (s *NotificationService) Notify(ctx context.Context, input NotifyInput) (*models.Notification, DispatchResult, error) {
	return s.notify(ctx, input, nil)
}

// NotifyEmergency behaves like Notify but carries the alert context that
// enables the critical-severity SMS override.
func (s *NotificationService) NotifyEmergency(ctx context.Context, input NotifyInput, alert AlertContext) (*models.Notification, DispatchResult, error) {
	return s.notify(ctx, input, &alert)
}

func (s *NotificationService) notify(ctx context.Context, input NotifyInput, alert *AlertContext) (*models.Notification, DispatchResult, error) {
	ctx = ensureContext(ctx)
	var empty DispatchResult

	recipientID := strings.TrimSpace(input.RecipientID)
	if recipientID == "" {
		return nil, empty, apperrors.NewBadRequest("recipient id is required")
	}
	if !models.ValidNotificationType(input.Type) {
		return nil, empty, apperrors.NewBadRequest(fmt.Sprintf("unknown notification type %q", input.Type))
	}
	priority := defaultIfEmpty(input.Priority, models.PriorityMedium)
	if !models.ValidNotificationPriority(priority) {
		return nil, empty, apperrors.NewBadRequest(fmt.Sprintf("unknown priority %q", input.Priority))
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, empty, apperrors.NewBadRequest("title is required")
	}

	var recipient models.User
	if err := s.db.WithContext(ctx).Where("id = ?", recipientID).First(&recipient).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, empty, apperrors.ErrNotFound
		}
		return nil, empty, fmt.Errorf("notification service: load recipient: %w", err)
	}

	notification := models.Notification{
		RecipientID: recipient.ID,
		Type:        input.Type,
		Priority:    priority,
		Title:       strings.TrimSpace(input.Title),
		Message:     strings.TrimSpace(input.Message),
		ReportID:    input.ReportID,
		ForumPostID: input.ForumPostID,
		MeetingID:   input.MeetingID,
		MessageID:   input.MessageID,
		ActionURL:   strings.TrimSpace(input.ActionURL),
	}

	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return nil, empty, fmt.Errorf("notification service: create notification: %w", err)
	}
	metrics.NotificationsCreated.WithLabelValues(notification.Type).Inc()

	pref, err := s.prefs.EnsureDefaults(ctx, recipient.ID)
	if err != nil {
		// The in-app record exists; treat the preference failure like a
		// channel failure and keep the row.
		s.log.Error("preference lookup failed, skipping dispatch",
			zap.String("notification_id", notification.ID),
			zap.String("recipient_id", recipient.ID),
			zap.Error(err),
		)
		return &notification, empty, nil
	}

	result := s.dispatcher.Dispatch(ctx, &notification, &recipient, pref, alert)
	return &notification, result, nil
}

// NotifyReportStatus tells a report author their report moved to a new status.
func (s *NotificationService) NotifyReportStatus(ctx context.Context, recipientID string, reportID int64, category, newStatus string) (*models.Notification, error) {
	priority := models.PriorityMedium
	if newStatus == "assigned" || newStatus == "resolved" {
		priority = models.PriorityHigh
	}

	notification, _, err := s.Notify(ctx, NotifyInput{
		RecipientID: recipientID,
		Type:        models.NotificationReportStatus,
		Title:       fmt.Sprintf("Report Status Updated: %s", titleCase(newStatus)),
		Message:     fmt.Sprintf("Your report about %s has been updated to %s.", category, newStatus),
		Priority:    priority,
		ReportID:    &reportID,
		ActionURL:   fmt.Sprintf("/reports/%d", reportID),
	})
	return notification, err
}

// NotifyMeetingInvite tells a user they were invited to a meeting.
func (s *NotificationService) NotifyMeetingInvite(ctx context.Context, recipientID string, meetingID int64, title, urgency, when string) (*models.Notification, error) {
	priority := models.PriorityMedium
	if urgency == models.PriorityCritical || urgency == models.PriorityHigh {
		priority = models.PriorityHigh
	}

	notification, _, err := s.Notify(ctx, NotifyInput{
		RecipientID: recipientID,
		Type:        models.NotificationMeetingInvite,
		Title:       fmt.Sprintf("Meeting Invitation: %s", title),
		Message:     fmt.Sprintf("You've been invited to a %s priority meeting on %s.", urgency, when),
		Priority:    priority,
		MeetingID:   &meetingID,
		ActionURL:   fmt.Sprintf("/meetings/%d", meetingID),
	})
	return notification, err
}

// NotifyMeetingReminder reminds an invitee of an upcoming meeting.
func (s *NotificationService) NotifyMeetingReminder(ctx context.Context, recipientID string, meetingID int64, title string, hoursBefore int, joinURL string) (*models.Notification, error) {
	action := joinURL
	if action == "" {
		action = fmt.Sprintf("/meetings/%d", meetingID)
	}

	notification, _, err := s.Notify(ctx, NotifyInput{
		RecipientID: recipientID,
		Type:        models.NotificationMeetingReminder,
		Title:       fmt.Sprintf("Meeting Reminder: %s", title),
		Message:     fmt.Sprintf("Your meeting starts in %d hours.", hoursBefore),
		Priority:    models.PriorityHigh,
		MeetingID:   &meetingID,
		ActionURL:   action,
	})
	return notification, err
}

// NotifyForumReply tells a post author someone replied.
func (s *NotificationService) NotifyForumReply(ctx context.Context, recipientID string, postID int64, replierName, topicTitle string) (*models.Notification, error) {
	notification, _, err := s.Notify(ctx, NotifyInput{
		RecipientID: recipientID,
		Type:        models.NotificationForumReply,
		Title:       "New Reply to Your Post",
		Message:     fmt.Sprintf("%s replied to your post in %s.", replierName, defaultIfEmpty(topicTitle, "a discussion")),
		Priority:    models.PriorityLow,
		ForumPostID: &postID,
	})
	return notification, err
}

// NotifyForumMention tells a user they were mentioned in a forum post.
func (s *NotificationService) NotifyForumMention(ctx context.Context, recipientID string, postID int64, mentionerName string) (*models.Notification, error) {
	notification, _, err := s.Notify(ctx, NotifyInput{
		RecipientID: recipientID,
		Type:        models.NotificationForumMention,
		Title:       "You Were Mentioned",
		Message:     fmt.Sprintf("%s mentioned you in a forum post.", mentionerName),
		Priority:    models.PriorityMedium,
		ForumPostID: &postID,
	})
	return notification, err
}

// NotifyForumLike tells a post author someone liked their post.
func (s *NotificationService) NotifyForumLike(ctx context.Context, recipientID string, postID int64, likerName string) (*models.Notification, error) {
	notification, _, err := s.Notify(ctx, NotifyInput{
		RecipientID: recipientID,
		Type:        models.NotificationForumLike,
		Title:       "Someone Liked Your Post",
		Message:     fmt.Sprintf("%s liked your post.", likerName),
		Priority:    models.PriorityLow,
		ForumPostID: &postID,
	})
	return notification, err
}

// NotifyBatch sends the same notification to several recipients. Failures for
// individual recipients are logged and skipped.
func (s *NotificationService) NotifyBatch(ctx context.Context, recipientIDs []string, input NotifyInput) []*models.Notification {
	ctx = ensureContext(ctx)

	var created []*models.Notification
	for _, recipientID := range normaliseStrings(recipientIDs) {
		one := input
		one.RecipientID = recipientID
		notification, _, err := s.Notify(ctx, one)
		if err != nil {
			s.log.Warn("batch notify failed for recipient",
				zap.String("recipient_id", recipientID),
				zap.Error(err),
			)
			continue
		}
		created = append(created, notification)
	}
	return created
}
