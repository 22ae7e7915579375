package models

import "time"

// Notification types cover every domain event that produces a per-user message.
const (
	NotificationReportStatus    = "report_status"
	NotificationReportComment   = "report_comment"
	NotificationMeetingInvite   = "meeting_invite"
	NotificationMeetingReminder = "meeting_reminder"
	NotificationForumReply      = "forum_reply"
	NotificationForumMention    = "forum_mention"
	NotificationForumLike       = "forum_like"
	NotificationMessage         = "message"
	NotificationEmergencyAlert  = "emergency_alert"
	NotificationVerification    = "verification"
	NotificationResourceAdded   = "resource_added"
	NotificationSystem          = "system"
)

// Notification priorities.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

// NotificationTypes enumerates the accepted type values.
var NotificationTypes = []string{
	NotificationReportStatus,
	NotificationReportComment,
	NotificationMeetingInvite,
	NotificationMeetingReminder,
	NotificationForumReply,
	NotificationForumMention,
	NotificationForumLike,
	NotificationMessage,
	NotificationEmergencyAlert,
	NotificationVerification,
	NotificationResourceAdded,
	NotificationSystem,
}

// NotificationPriorities enumerates the accepted priority values.
var NotificationPriorities = []string{
	PriorityCritical,
	PriorityHigh,
	PriorityMedium,
	PriorityLow,
}

// Notification is one message addressed to one recipient. Rows are immutable
// after creation except for the read/sent flags, which only move false→true.
// The correlation ids are deliberately loose references: the domains that own
// reports, posts, and meetings live outside this service.
type Notification struct {
	BaseModel

	RecipientID string `gorm:"type:uuid;not null;index:idx_notifications_recipient_created;index:idx_notifications_recipient_read" json:"recipient_id"`
	Type        string `gorm:"type:varchar(30);not null;index" json:"type"`
	Priority    string `gorm:"type:varchar(20);default:'medium';index" json:"priority"`
	Title       string `gorm:"type:varchar(255);not null" json:"title"`
	Message     string `gorm:"type:text" json:"message"`

	ReportID    *int64 `json:"report_id"`
	ForumPostID *int64 `json:"forum_post_id"`
	MeetingID   *int64 `json:"meeting_id"`
	MessageID   *int64 `json:"message_id"`

	ActionURL string `gorm:"type:varchar(255)" json:"action_url"`

	Read   bool       `gorm:"default:false;index:idx_notifications_recipient_read" json:"read"`
	ReadAt *time.Time `json:"read_at"`

	Sent   bool       `gorm:"default:false" json:"sent"`
	SentAt *time.Time `json:"sent_at"`

	PushSent bool `gorm:"default:false" json:"push_sent"`
	SMSSent  bool `gorm:"default:false" json:"sms_sent"`
}

// ValidNotificationType reports whether the value is a known type.
func ValidNotificationType(value string) bool {
	for _, t := range NotificationTypes {
		if t == value {
			return true
		}
	}
	return false
}

// ValidNotificationPriority reports whether the value is a known priority.
func ValidNotificationPriority(value string) bool {
	for _, p := range NotificationPriorities {
		if p == value {
			return true
		}
	}
	return false
}
