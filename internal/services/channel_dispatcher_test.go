package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/peacelink/peacelink/internal/models"
)

func (s *testStack) createNotification(t *testing.T, recipientID, priority string) *models.Notification {
	t.Helper()

	notification := models.Notification{
		RecipientID: recipientID,
		Type:        models.NotificationSystem,
		Priority:    priority,
		Title:       "test",
		Message:     "test message",
	}
	require.NoError(t, s.db.Create(&notification).Error)
	return &notification
}

func TestDispatchPushFollowsPreference(t *testing.T) {
	stack := newTestStack(t)
	user := stack.createUser(t, userSpec{username: "garang"})
	pref, err := stack.prefs.Get(context.Background(), user.ID)
	require.NoError(t, err)

	notification := stack.createNotification(t, user.ID, models.PriorityMedium)
	result := stack.dispatcher.Dispatch(context.Background(), notification, user, pref, nil)

	require.True(t, result.Push.Sent)
	require.False(t, result.SMS.Attempted)
	require.Equal(t, 1, stack.gateway.pushCount())

	var stored models.Notification
	require.NoError(t, stack.db.First(&stored, "id = ?", notification.ID).Error)
	require.True(t, stored.PushSent)
	require.True(t, stored.Sent)
	require.NotNil(t, stored.SentAt)
	require.False(t, stored.SMSSent)
}

func TestDispatchSMSRequiresOptInAndUrgency(t *testing.T) {
	stack := newTestStack(t)
	user := stack.createUser(t, userSpec{username: "abuk", phone: "+211912000001"})
	pref, err := stack.prefs.Update(context.Background(), user.ID, UpdatePreferenceInput{
		PushEnabled: true,
		SMSEnabled:  true,
	})
	require.NoError(t, err)

	// Medium priority never reaches SMS even with the opt-in.
	medium := stack.createNotification(t, user.ID, models.PriorityMedium)
	result := stack.dispatcher.Dispatch(context.Background(), medium, user, pref, nil)
	require.False(t, result.SMS.Attempted)

	high := stack.createNotification(t, user.ID, models.PriorityHigh)
	result = stack.dispatcher.Dispatch(context.Background(), high, user, pref, nil)
	require.True(t, result.SMS.Sent)
	require.Equal(t, []string{"+211912000001"}, stack.gateway.smsTargets())
}

func TestDispatchCriticalAlertOverridesSMSOptOut(t *testing.T) {
	stack := newTestStack(t)
	user := stack.createUser(t, userSpec{username: "nyawal", phone: "+211912000002"})
	pref, err := stack.prefs.Get(context.Background(), user.ID)
	require.NoError(t, err)
	require.False(t, pref.SMSEnabled)

	notification := stack.createNotification(t, user.ID, models.PriorityCritical)
	result := stack.dispatcher.Dispatch(context.Background(), notification, user, pref,
		&AlertContext{Severity: models.SeverityCritical, SendSMS: true})

	require.True(t, result.SMS.Sent)
	require.Equal(t, []string{"+211912000002"}, stack.gateway.smsTargets())
}

func TestDispatchSevereAlertRespectsSMSOptOut(t *testing.T) {
	stack := newTestStack(t)
	user := stack.createUser(t, userSpec{username: "akech", phone: "+211912000003"})
	pref, err := stack.prefs.Get(context.Background(), user.ID)
	require.NoError(t, err)

	notification := stack.createNotification(t, user.ID, models.PriorityCritical)
	result := stack.dispatcher.Dispatch(context.Background(), notification, user, pref,
		&AlertContext{Severity: models.SeveritySevere, SendSMS: true})

	require.False(t, result.SMS.Attempted)
	require.Empty(t, stack.gateway.smsTargets())
}

func TestDispatchOverrideNeedsPhoneOnFile(t *testing.T) {
	stack := newTestStack(t)
	user := stack.createUser(t, userSpec{username: "nophone"})
	pref, err := stack.prefs.Get(context.Background(), user.ID)
	require.NoError(t, err)

	notification := stack.createNotification(t, user.ID, models.PriorityCritical)
	result := stack.dispatcher.Dispatch(context.Background(), notification, user, pref,
		&AlertContext{Severity: models.SeverityCritical, SendSMS: true})

	require.False(t, result.SMS.Attempted)
}

func TestDispatchChannelsFailIndependently(t *testing.T) {
	stack := newTestStack(t)
	stack.gateway.pushErr = errors.New("provider unreachable")

	user := stack.createUser(t, userSpec{username: "ayen", phone: "+211912000004"})
	pref, err := stack.prefs.Update(context.Background(), user.ID, UpdatePreferenceInput{
		PushEnabled: true,
		SMSEnabled:  true,
	})
	require.NoError(t, err)

	notification := stack.createNotification(t, user.ID, models.PriorityHigh)
	result := stack.dispatcher.Dispatch(context.Background(), notification, user, pref, nil)

	require.True(t, result.Push.Attempted)
	require.False(t, result.Push.Sent)
	require.NotEmpty(t, result.Push.Error)
	require.True(t, result.SMS.Sent)

	var stored models.Notification
	require.NoError(t, stack.db.First(&stored, "id = ?", notification.ID).Error)
	require.False(t, stored.PushSent)
	require.True(t, stored.SMSSent)
	require.True(t, stored.Sent)
}

func TestDispatchIsIdempotentPerChannel(t *testing.T) {
	stack := newTestStack(t)
	user := stack.createUser(t, userSpec{username: "kuol"})
	pref, err := stack.prefs.Get(context.Background(), user.ID)
	require.NoError(t, err)

	notification := stack.createNotification(t, user.ID, models.PriorityMedium)

	first := stack.dispatcher.Dispatch(context.Background(), notification, user, pref, nil)
	require.True(t, first.Push.Sent)
	require.True(t, first.Push.Attempted)

	second := stack.dispatcher.Dispatch(context.Background(), notification, user, pref, nil)
	require.True(t, second.Push.Sent)
	require.False(t, second.Push.Attempted)
	require.Equal(t, 1, stack.gateway.pushCount())
}
