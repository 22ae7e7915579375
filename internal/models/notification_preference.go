package models

// NotificationPreference stores per-user delivery settings. Exactly one row
// exists per user; it is created lazily on first need with the defaults below.
//
// Quiet hours are captured here but dispatch does not consult them yet; the
// window is surfaced through the preference API only.
type NotificationPreference struct {
	BaseModel

	UserID string `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`

	// Defaults live in DefaultNotificationPreference, not in gorm tags: a
	// default:true tag drops explicit false values from the INSERT.
	PushEnabled  bool `json:"push_enabled"`
	SMSEnabled   bool `json:"sms_enabled"`
	EmailEnabled bool `json:"email_enabled"`

	ReportNotifications    bool `json:"report_notifications"`
	MeetingNotifications   bool `json:"meeting_notifications"`
	ForumNotifications     bool `json:"forum_notifications"`
	MessageNotifications   bool `json:"message_notifications"`
	EmergencyNotifications bool `json:"emergency_notifications"`

	QuietHoursEnabled bool   `gorm:"default:false" json:"quiet_hours_enabled"`
	QuietHoursStart   string `gorm:"type:varchar(5)" json:"quiet_hours_start"`
	QuietHoursEnd     string `gorm:"type:varchar(5)" json:"quiet_hours_end"`
}

// DefaultNotificationPreference returns the preference row created when a user
// receives their first notification: push on, SMS/email off, all categories on.
func DefaultNotificationPreference(userID string) NotificationPreference {
	return NotificationPreference{
		UserID:                 userID,
		PushEnabled:            true,
		SMSEnabled:             false,
		EmailEnabled:           false,
		ReportNotifications:    true,
		MeetingNotifications:   true,
		ForumNotifications:     true,
		MessageNotifications:   true,
		EmergencyNotifications: true,
	}
}
