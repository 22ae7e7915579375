package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/peacelink/peacelink/internal/database/testutil"
	"github.com/peacelink/peacelink/internal/models"
)

// recordingGateway captures sends so tests can assert on channel traffic.
type recordingGateway struct {
	mu     sync.Mutex
	pushes []string
	smses  []string

	pushErr error
	smsErr  error
}

func (g *recordingGateway) SendPush(_ context.Context, userID, _, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pushErr != nil {
		return g.pushErr
	}
	g.pushes = append(g.pushes, userID)
	return nil
}

func (g *recordingGateway) SendSMS(_ context.Context, phone, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.smsErr != nil {
		return g.smsErr
	}
	g.smses = append(g.smses, phone)
	return nil
}

func (g *recordingGateway) pushCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pushes)
}

func (g *recordingGateway) smsTargets() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.smses...)
}

// testStack wires the full notification core against an in-memory database.
type testStack struct {
	db      *gorm.DB
	gateway *recordingGateway

	prefs      *PreferenceService
	resolver   *TargetResolver
	dispatcher *ChannelDispatcher
	notifier   *NotificationService
	broadcasts *BroadcastService
	inbox      *InboxService
	audit      *AuditService
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	gateway := &recordingGateway{}

	prefs, err := NewPreferenceService(db)
	require.NoError(t, err)
	resolver, err := NewTargetResolver(db)
	require.NoError(t, err)
	dispatcher, err := NewChannelDispatcher(db, gateway, gateway)
	require.NoError(t, err)
	notifier, err := NewNotificationService(db, prefs, dispatcher)
	require.NoError(t, err)
	audit, err := NewAuditService(db)
	require.NoError(t, err)
	broadcasts, err := NewBroadcastService(db, resolver, notifier, audit, WithBroadcastWorkers(4))
	require.NoError(t, err)
	inbox, err := NewInboxService(db)
	require.NoError(t, err)

	return &testStack{
		db:         db,
		gateway:    gateway,
		prefs:      prefs,
		resolver:   resolver,
		dispatcher: dispatcher,
		notifier:   notifier,
		broadcasts: broadcasts,
		inbox:      inbox,
		audit:      audit,
	}
}

type userSpec struct {
	username string
	role     string
	state    string
	location string
	phone    string
	inactive bool
}

func (s *testStack) createUser(t *testing.T, spec userSpec) *models.User {
	t.Helper()

	role := spec.role
	if role == "" {
		role = models.RoleYouth
	}
	user := models.User{
		Username: spec.username,
		Email:    spec.username + "@example.org",
		Password: "x",
		Role:     role,
		IsActive: !spec.inactive,
		State:    spec.state,
		Location: spec.location,
		Phone:    spec.phone,
	}
	require.NoError(t, s.db.Create(&user).Error)
	return &user
}
