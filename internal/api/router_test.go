package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/peacelink/peacelink/internal/app"
	iauth "github.com/peacelink/peacelink/internal/auth"
	"github.com/peacelink/peacelink/internal/channels"
	"github.com/peacelink/peacelink/internal/database/testutil"
	"github.com/peacelink/peacelink/internal/models"
	"github.com/peacelink/peacelink/internal/services"
)

type routerFixture struct {
	db     *gorm.DB
	jwt    *iauth.JWTService
	router *gin.Engine
}

func newTestRouter(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "test-secret",
		Issuer:         "peacelink",
		AccessTokenTTL: 15 * time.Minute,
	})
	require.NoError(t, err)

	gateway := channels.NewNoopGateway()
	prefs, err := services.NewPreferenceService(db)
	require.NoError(t, err)
	resolver, err := services.NewTargetResolver(db)
	require.NoError(t, err)
	dispatcher, err := services.NewChannelDispatcher(db, gateway, gateway)
	require.NoError(t, err)
	notifier, err := services.NewNotificationService(db, prefs, dispatcher)
	require.NoError(t, err)
	audit, err := services.NewAuditService(db)
	require.NoError(t, err)
	broadcasts, err := services.NewBroadcastService(db, resolver, notifier, audit)
	require.NoError(t, err)
	inbox, err := services.NewInboxService(db)
	require.NoError(t, err)
	alerts, err := services.NewSimpleAlertService(db, notifier)
	require.NoError(t, err)
	users, err := services.NewUserService(db, prefs)
	require.NoError(t, err)

	cfg, err := app.LoadConfig(t.TempDir())
	require.NoError(t, err)

	router, err := NewRouter(db, jwtSvc, cfg, Services{
		Users:       users,
		Preferences: prefs,
		Inbox:       inbox,
		Broadcasts:  broadcasts,
		Alerts:      alerts,
		Audit:       audit,
	})
	require.NoError(t, err)

	return &routerFixture{db: db, jwt: jwtSvc, router: router}
}

func (f *routerFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *routerFixture) registerUser(t *testing.T, username, state, role string) (string, string) {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": username,
		"email":    username + "@example.org",
		"password": "strong-password",
		"state":    state,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var payload struct {
		Data struct {
			User  models.User `json:"user"`
			Token string      `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))

	userID := payload.Data.User.ID
	token := payload.Data.Token

	if role != "" && role != models.RoleYouth {
		require.NoError(t, f.db.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumn("role", role).Error)
		// Re-issue the token so the role claim matches.
		var err error
		token, err = f.jwt.GenerateAccessToken(iauth.AccessTokenInput{UserID: userID, Role: role})
		require.NoError(t, err)
	}

	return userID, token
}

func TestRouterPublicAndProtectedRoutes(t *testing.T) {
	f := newTestRouter(t)

	rec := f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/notifications", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterRegisterLoginMe(t *testing.T) {
	f := newTestRouter(t)

	_, token := f.registerUser(t, "amou", "Unity", "")

	rec := f.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "amou",
		"password": "strong-password",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "amou",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterEmergencyAlertFlow(t *testing.T) {
	f := newTestRouter(t)

	_, adminToken := f.registerUser(t, "admin", "", models.RoleAdmin)
	_, memberToken := f.registerUser(t, "member", "Unity", "")

	// Non-admins cannot create emergency alerts.
	rec := f.do(t, http.MethodPost, "/api/emergency-alerts", memberToken, gin.H{
		"title": "Nope", "message": "x",
		"alert_type": "flood", "severity": "severe",
		"broadcast_all": true,
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/emergency-alerts", adminToken, gin.H{
		"title": "Flood warning", "message": "Move to higher ground.",
		"alert_type": "flood", "severity": "severe",
		"target_states": []string{"Unity"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Data models.EmergencyAlert `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	alertID := created.Data.ID

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/emergency-alerts/%s/broadcast", alertID), adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary struct {
		Data services.BroadcastSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.Equal(t, 1, summary.Data.Delivered)

	// Member sees the alert notification in their inbox.
	rec = f.do(t, http.MethodGet, "/api/notifications?type=emergency_alert", memberToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Data services.InboxPage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Data.Notifications, 1)

	// Mark it read and confirm the unread counter drops.
	notificationID := page.Data.Notifications[0].ID
	rec = f.do(t, http.MethodPost, "/api/notifications/"+notificationID+"/read", memberToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/notifications/unread-count", memberToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var unread struct {
		Data struct {
			Unread int64 `json:"unread"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &unread))
	require.Zero(t, unread.Data.Unread)

	// Deactivate and verify broadcast is refused afterwards.
	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/emergency-alerts/%s/deactivate", alertID), adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/emergency-alerts/%s/broadcast", alertID), adminToken, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestRouterPreferenceRoutes(t *testing.T) {
	f := newTestRouter(t)
	_, token := f.registerUser(t, "pref", "", "")

	rec := f.do(t, http.MethodGet, "/api/notifications/preferences", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var pref struct {
		Data models.NotificationPreference `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pref))
	require.True(t, pref.Data.PushEnabled)
	require.False(t, pref.Data.SMSEnabled)

	rec = f.do(t, http.MethodPut, "/api/notifications/preferences", token, gin.H{
		"push_enabled":            false,
		"sms_enabled":             true,
		"emergency_notifications": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pref))
	require.False(t, pref.Data.PushEnabled)
	require.True(t, pref.Data.SMSEnabled)
}

func TestRouterAlertRoutesRequireModerator(t *testing.T) {
	f := newTestRouter(t)

	targetID, memberToken := f.registerUser(t, "member", "", "")
	_, modToken := f.registerUser(t, "mod", "", models.RoleModerator)

	rec := f.do(t, http.MethodPost, "/api/alerts", memberToken, gin.H{
		"message":    "Unauthorized",
		"recipients": []string{targetID},
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/alerts", modToken, gin.H{
		"message":    "Community meeting moved to 3pm.",
		"recipients": []string{targetID},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Data models.Alert `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = f.do(t, http.MethodGet, "/api/alerts", memberToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/alerts/%s/send", created.Data.ID), memberToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/alerts/%s/send", created.Data.ID), modToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var sent struct {
		Data struct {
			Notified int `json:"notified"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sent))
	require.Equal(t, 1, sent.Data.Notified)
}

func TestRouterClearRemovesReadNotifications(t *testing.T) {
	f := newTestRouter(t)

	targetID, memberToken := f.registerUser(t, "member", "", "")
	_, modToken := f.registerUser(t, "mod", "", models.RoleModerator)

	rec := f.do(t, http.MethodPost, "/api/alerts", modToken, gin.H{
		"message":    "Water point restored in sector 4.",
		"recipients": []string{targetID},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/notifications/read-all", memberToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/notifications/clear", memberToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cleared struct {
		Data struct {
			Removed int64 `json:"removed"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cleared))
	require.Equal(t, int64(1), cleared.Data.Removed)

	var page struct {
		Data services.InboxPage `json:"data"`
	}
	rec = f.do(t, http.MethodGet, "/api/notifications", memberToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Zero(t, page.Data.Total)
}

func TestRouterAuditRequiresAdmin(t *testing.T) {
	f := newTestRouter(t)

	_, memberToken := f.registerUser(t, "member", "", "")
	_, adminToken := f.registerUser(t, "admin", "", models.RoleAdmin)

	rec := f.do(t, http.MethodGet, "/api/audit", memberToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/audit", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
