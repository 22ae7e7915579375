package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/peacelink/peacelink/internal/models"
)

func newSimpleAlertService(t *testing.T, stack *testStack) *SimpleAlertService {
	t.Helper()
	alerts, err := NewSimpleAlertService(stack.db, stack.notifier)
	require.NoError(t, err)
	return alerts
}

func TestSimpleAlertNotifiesRecipients(t *testing.T) {
	stack := newTestStack(t)
	alerts := newSimpleAlertService(t, stack)

	sender := stack.createUser(t, userSpec{username: "moderator", role: models.RoleModerator})
	a := stack.createUser(t, userSpec{username: "a"})
	b := stack.createUser(t, userSpec{username: "b"})

	alert, err := alerts.Create(context.Background(), sender.ID, SimpleAlertInput{
		Message:    "Community meeting moved to 3pm.",
		Recipients: []string{a.ID, b.ID},
	})
	require.NoError(t, err)
	require.Equal(t, models.ChannelPush, alert.Channel)
	require.NotNil(t, alert.SentByID)

	var count int64
	require.NoError(t, stack.db.Model(&models.Notification{}).
		Where("type = ? AND priority = ?", models.NotificationSystem, models.PriorityHigh).
		Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestSimpleAlertSkipsUnknownRecipients(t *testing.T) {
	stack := newTestStack(t)
	alerts := newSimpleAlertService(t, stack)
	known := stack.createUser(t, userSpec{username: "known"})

	_, err := alerts.Create(context.Background(), "", SimpleAlertInput{
		Message:    "Heads up.",
		Recipients: []string{known.ID, "33333333-3333-3333-3333-333333333333"},
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, stack.db.Model(&models.Notification{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestSimpleAlertValidation(t *testing.T) {
	stack := newTestStack(t)
	alerts := newSimpleAlertService(t, stack)
	user := stack.createUser(t, userSpec{username: "u"})

	_, err := alerts.Create(context.Background(), "", SimpleAlertInput{
		Message:    " ",
		Recipients: []string{user.ID},
	})
	require.Error(t, err)

	_, err = alerts.Create(context.Background(), "", SimpleAlertInput{
		Message: "No recipients",
	})
	require.Error(t, err)

	_, err = alerts.Create(context.Background(), "", SimpleAlertInput{
		Message:    "Bad channel",
		Channel:    "smoke",
		Recipients: []string{user.ID},
	})
	require.Error(t, err)
}

func TestSimpleAlertSendRedispatches(t *testing.T) {
	stack := newTestStack(t)
	alerts := newSimpleAlertService(t, stack)
	user := stack.createUser(t, userSpec{username: "u"})

	created, err := alerts.Create(context.Background(), "", SimpleAlertInput{
		Message:    "Road to Bor reopened.",
		Recipients: []string{user.ID},
	})
	require.NoError(t, err)

	notified, err := alerts.Send(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, 1, notified)

	var count int64
	require.NoError(t, stack.db.Model(&models.Notification{}).
		Where("recipient_id = ?", user.ID).
		Count(&count).Error)
	require.EqualValues(t, 2, count)

	_, err = alerts.Send(context.Background(), "44444444-4444-4444-4444-444444444444")
	require.Error(t, err)
}

func TestSimpleAlertVerifyIsIdempotent(t *testing.T) {
	stack := newTestStack(t)
	alerts := newSimpleAlertService(t, stack)
	user := stack.createUser(t, userSpec{username: "u"})

	created, err := alerts.Create(context.Background(), "", SimpleAlertInput{
		Message:    "Verify me",
		Recipients: []string{user.ID},
	})
	require.NoError(t, err)
	require.False(t, created.Verified)

	verified, err := alerts.Verify(context.Background(), created.ID)
	require.NoError(t, err)
	require.True(t, verified.Verified)

	again, err := alerts.Verify(context.Background(), created.ID)
	require.NoError(t, err)
	require.True(t, again.Verified)
}
