package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultNotificationPreference(t *testing.T) {
	pref := DefaultNotificationPreference("user-1")

	require.Equal(t, "user-1", pref.UserID)
	require.True(t, pref.PushEnabled)
	require.False(t, pref.SMSEnabled)
	require.False(t, pref.EmailEnabled)
	require.True(t, pref.ReportNotifications)
	require.True(t, pref.MeetingNotifications)
	require.True(t, pref.ForumNotifications)
	require.True(t, pref.MessageNotifications)
	require.True(t, pref.EmergencyNotifications)
	require.False(t, pref.QuietHoursEnabled)
}

func TestValidNotificationType(t *testing.T) {
	require.True(t, ValidNotificationType(NotificationEmergencyAlert))
	require.True(t, ValidNotificationType(NotificationForumReply))
	require.False(t, ValidNotificationType("carrier_pigeon"))
	require.False(t, ValidNotificationType(""))
}

func TestValidNotificationPriority(t *testing.T) {
	for _, p := range NotificationPriorities {
		require.True(t, ValidNotificationPriority(p))
	}
	require.False(t, ValidNotificationPriority("urgent"))
}

func TestValidAlertSeverityAndType(t *testing.T) {
	require.True(t, ValidAlertSeverity(SeverityCritical))
	require.False(t, ValidAlertSeverity("apocalyptic"))

	require.True(t, ValidAlertType(AlertTypeFlood))
	require.True(t, ValidAlertType(AlertTypeEvacuation))
	require.False(t, ValidAlertType("meteor"))
}

func TestUserIsAdmin(t *testing.T) {
	admin := User{Role: RoleAdmin}
	member := User{Role: RoleYouth}

	require.True(t, admin.IsAdmin())
	require.False(t, member.IsAdmin())
}
