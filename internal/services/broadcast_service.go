package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/peacelink/peacelink/internal/models"
	apperrors "github.com/peacelink/peacelink/pkg/errors"
	"github.com/peacelink/peacelink/pkg/logger"
	"github.com/peacelink/peacelink/pkg/metrics"
)

const defaultBroadcastWorkers = 8

// CreateAlertInput defines a new emergency broadcast.
type CreateAlertInput struct {
	Title     string `json:"title" validate:"required,max=255"`
	Message   string `json:"message" validate:"required"`
	AlertType string `json:"alert_type" validate:"required"`
	Severity  string `json:"severity" validate:"required"`

	BroadcastAll   bool     `json:"broadcast_all"`
	TargetStates   []string `json:"target_states"`
	TargetRegions  []string `json:"target_regions"`
	TargetCounties []string `json:"target_counties"`

	IssuingOrganization string `json:"issuing_organization"`

	SendPush     *bool `json:"send_push"`
	SendSMS      *bool `json:"send_sms"`
	SendWhatsapp *bool `json:"send_whatsapp"`

	ExpiresAt *time.Time `json:"expires_at"`
}

// BroadcastSummary reports the outcome of one fan-out run.
type BroadcastSummary struct {
	AlertID    string `json:"alert_id"`
	Recipients int    `json:"recipients"`
	Delivered  int    `json:"delivered"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
}

// BroadcastService drives one-to-many emergency fan-out: it resolves targets,
// creates one notification per target through a bounded worker pool, and keeps
// the alert-level counters through atomic increments.
type BroadcastService struct {
	db       *gorm.DB
	resolver *TargetResolver
	notifier *NotificationService
	audit    *AuditService
	workers  int
	log      *zap.Logger
}

// BroadcastOption customises the BroadcastService.
type BroadcastOption func(*BroadcastService)

// WithBroadcastWorkers bounds the fan-out worker pool size.
func WithBroadcastWorkers(n int) BroadcastOption {
	return func(s *BroadcastService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// NewBroadcastService constructs a BroadcastService.
func NewBroadcastService(db *gorm.DB, resolver *TargetResolver, notifier *NotificationService, audit *AuditService, opts ...BroadcastOption) (*BroadcastService, error) {
	if db == nil {
		return nil, errors.New("broadcast service: db is required")
	}
	if resolver == nil {
		return nil, errors.New("broadcast service: target resolver is required")
	}
	if notifier == nil {
		return nil, errors.New("broadcast service: notification service is required")
	}

	s := &BroadcastService{
		db:       db,
		resolver: resolver,
		notifier: notifier,
		audit:    audit,
		workers:  defaultBroadcastWorkers,
		log:      logger.WithModule("broadcast"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create validates and persists a new emergency alert. Only admins may issue
// broadcasts.
func (s *BroadcastService) Create(ctx context.Context, issuerID string, input CreateAlertInput) (*models.EmergencyAlert, error) {
	ctx = ensureContext(ctx)

	issuer, err := s.requireAdmin(ctx, issuerID)
	if err != nil {
		return nil, err
	}

	if !models.ValidAlertType(input.AlertType) {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown alert type %q", input.AlertType))
	}
	if !models.ValidAlertSeverity(input.Severity) {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown severity %q", input.Severity))
	}
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Message) == "" {
		return nil, apperrors.NewBadRequest("title and message are required")
	}

	criteria := TargetCriteria{
		BroadcastAll: input.BroadcastAll,
		States:       input.TargetStates,
		Regions:      input.TargetRegions,
		Counties:     input.TargetCounties,
	}
	if err := s.resolver.Validate(criteria); err != nil {
		return nil, err
	}

	alert := models.EmergencyAlert{
		Title:               strings.TrimSpace(input.Title),
		Message:             strings.TrimSpace(input.Message),
		AlertType:           input.AlertType,
		Severity:            input.Severity,
		BroadcastAll:        input.BroadcastAll,
		TargetStates:        encodeStringList(normaliseStrings(input.TargetStates)),
		TargetRegions:       encodeStringList(normaliseStrings(input.TargetRegions)),
		TargetCounties:      encodeStringList(normaliseStrings(input.TargetCounties)),
		IssuedByID:          &issuer.ID,
		IssuingOrganization: strings.TrimSpace(input.IssuingOrganization),
		SendPush:            boolOrDefault(input.SendPush, true),
		SendSMS:             boolOrDefault(input.SendSMS, true),
		SendWhatsapp:        boolOrDefault(input.SendWhatsapp, false),
		IsActive:            true,
		ExpiresAt:           input.ExpiresAt,
	}

	if err := s.db.WithContext(ctx).Create(&alert).Error; err != nil {
		return nil, fmt.Errorf("broadcast service: create alert: %w", err)
	}

	s.auditLog(ctx, issuer, "alert.create", alert.ID, map[string]any{
		"severity":   alert.Severity,
		"alert_type": alert.AlertType,
	})
	return &alert, nil
}

// Broadcast fans an active alert out to its resolved targets. A failure while
// delivering to one recipient never aborts delivery to the rest, and a re-run
// of a partially completed broadcast only reaches recipients without a
// delivery record.
func (s *BroadcastService) Broadcast(ctx context.Context, alertID string) (*BroadcastSummary, error) {
	ctx = ensureContext(ctx)
	started := time.Now()

	alert, err := s.Get(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if !alert.IsActive {
		return nil, apperrors.ErrAlertInactive
	}

	targets, err := s.resolver.Resolve(ctx, TargetCriteria{
		BroadcastAll: alert.BroadcastAll,
		States:       decodeStringList(alert.TargetStates),
		Regions:      decodeStringList(alert.TargetRegions),
		Counties:     decodeStringList(alert.TargetCounties),
	})
	if err != nil {
		return nil, err
	}

	// recipients_count is a population snapshot taken once; a retry of a
	// partially completed fan-out keeps the original figure.
	if err := s.db.WithContext(ctx).
		Model(&models.EmergencyAlert{}).
		Where("id = ? AND recipients_count = 0", alert.ID).
		UpdateColumn("recipients_count", len(targets)).Error; err != nil {
		return nil, fmt.Errorf("broadcast service: snapshot recipients: %w", err)
	}
	metrics.BroadcastRecipients.Observe(float64(len(targets)))

	summary := &BroadcastSummary{AlertID: alert.ID, Recipients: len(targets)}
	var mu sync.Mutex

	jobs := make(chan models.User)
	var wg sync.WaitGroup

	workers := s.workers
	if workers > len(targets) && len(targets) > 0 {
		workers = len(targets)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for target := range jobs {
				outcome := s.deliverOne(ctx, alert, target)
				mu.Lock()
				switch outcome {
				case deliveryDone:
					summary.Delivered++
				case deliverySkipped:
					summary.Skipped++
				default:
					summary.Failed++
				}
				mu.Unlock()
			}
		}()
	}

	for _, target := range targets {
		jobs <- target
	}
	close(jobs)
	wg.Wait()

	metrics.BroadcastFanout.Observe(time.Since(started).Seconds())
	s.log.Info("broadcast completed",
		zap.String("alert_id", alert.ID),
		zap.Int("recipients", summary.Recipients),
		zap.Int("delivered", summary.Delivered),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", time.Since(started)),
	)

	return summary, nil
}

type deliveryOutcome int

const (
	deliveryDone deliveryOutcome = iota
	deliverySkipped
	deliveryFailed
)

// deliverOne claims the (alert, recipient) pair, creates the notification, and
// bumps delivered_count. The claim-first ordering keeps retries idempotent: a
// claim that exists means the recipient was already handled, and a failed
// notification releases the claim so a retry can reach them.
func (s *BroadcastService) deliverOne(ctx context.Context, alert *models.EmergencyAlert, target models.User) deliveryOutcome {
	delivery := models.AlertDelivery{AlertID: alert.ID, RecipientID: target.ID}
	if err := s.db.WithContext(ctx).Create(&delivery).Error; err != nil {
		if isUniqueConstraintError(err) {
			return deliverySkipped
		}
		s.log.Warn("claim delivery failed",
			zap.String("alert_id", alert.ID),
			zap.String("recipient_id", target.ID),
			zap.Error(err),
		)
		return deliveryFailed
	}

	notification, _, err := s.notifier.NotifyEmergency(ctx, NotifyInput{
		RecipientID: target.ID,
		Type:        models.NotificationEmergencyAlert,
		Title:       fmt.Sprintf("🚨 %s: %s", strings.ToUpper(alert.Severity), alert.Title),
		Message:     alert.Message,
		Priority:    models.PriorityCritical,
		ActionURL:   "/alerts",
	}, AlertContext{Severity: alert.Severity, SendSMS: alert.SendSMS})
	if err != nil {
		s.db.WithContext(ctx).Delete(&models.AlertDelivery{}, "id = ?", delivery.ID)
		s.log.Warn("deliver alert notification failed",
			zap.String("alert_id", alert.ID),
			zap.String("recipient_id", target.ID),
			zap.Error(err),
		)
		return deliveryFailed
	}

	if err := s.db.WithContext(ctx).
		Model(&models.AlertDelivery{}).
		Where("id = ?", delivery.ID).
		UpdateColumn("notification_id", notification.ID).Error; err != nil {
		s.log.Warn("record delivery notification failed", zap.String("alert_id", alert.ID), zap.Error(err))
	}

	if err := s.db.WithContext(ctx).
		Model(&models.EmergencyAlert{}).
		Where("id = ?", alert.ID).
		UpdateColumn("delivered_count", gorm.Expr("delivered_count + 1")).Error; err != nil {
		s.log.Warn("increment delivered_count failed", zap.String("alert_id", alert.ID), zap.Error(err))
	}

	return deliveryDone
}

// Deactivate stops future dispatch for the alert. Notifications already
// created stay in place; there is no recall mechanism.
func (s *BroadcastService) Deactivate(ctx context.Context, actorID, alertID string) (*models.EmergencyAlert, error) {
	ctx = ensureContext(ctx)

	actor, err := s.requireAdmin(ctx, actorID)
	if err != nil {
		return nil, err
	}

	alert, err := s.Get(ctx, alertID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).
		Model(&models.EmergencyAlert{}).
		Where("id = ?", alert.ID).
		UpdateColumn("is_active", false).Error; err != nil {
		return nil, fmt.Errorf("broadcast service: deactivate alert: %w", err)
	}
	alert.IsActive = false

	s.auditLog(ctx, actor, "alert.deactivate", alert.ID, nil)
	return alert, nil
}

// Get loads a single alert by id.
func (s *BroadcastService) Get(ctx context.Context, alertID string) (*models.EmergencyAlert, error) {
	ctx = ensureContext(ctx)

	var alert models.EmergencyAlert
	if err := s.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(alertID)).First(&alert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("broadcast service: load alert: %w", err)
	}
	return &alert, nil
}

// ListForUser returns alerts visible to the given user: admins see everything,
// other users see active alerts that broadcast to all or match their state or
// location.
func (s *BroadcastService) ListForUser(ctx context.Context, user *models.User) ([]models.EmergencyAlert, error) {
	ctx = ensureContext(ctx)
	if user == nil {
		return nil, apperrors.ErrUnauthorized
	}

	var alerts []models.EmergencyAlert
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("broadcast service: list alerts: %w", err)
	}
	if user.IsAdmin() {
		return alerts, nil
	}

	// JSON list membership varies per driver, filter in memory instead.
	visible := make([]models.EmergencyAlert, 0, len(alerts))
	for _, alert := range alerts {
		if !alert.IsActive {
			continue
		}
		if alert.BroadcastAll ||
			containsValue(decodeStringList(alert.TargetStates), user.State) ||
			containsValue(decodeStringList(alert.TargetRegions), user.Location) {
			visible = append(visible, alert)
		}
	}
	return visible, nil
}

func (s *BroadcastService) requireAdmin(ctx context.Context, userID string) (*models.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, fmt.Errorf("broadcast service: load actor: %w", err)
	}
	if !user.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	return &user, nil
}

func (s *BroadcastService) auditLog(ctx context.Context, actor *models.User, action, resource string, metadata map[string]any) {
	if s.audit == nil || actor == nil {
		return
	}
	entry := AuditEntry{
		UserID:   &actor.ID,
		Username: actor.Username,
		Action:   action,
		Resource: resource,
		Result:   "success",
		Metadata: metadata,
	}
	if err := s.audit.Log(ctx, entry); err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func boolOrDefault(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

func containsValue(values []string, target string) bool {
	target = strings.TrimSpace(target)
	if target == "" {
		return false
	}
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
