package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/peacelink/peacelink/internal/models"
)

// AuditEntry captures a single audit event to persist.
type AuditEntry struct {
	UserID    *string
	Username  string
	Action    string
	Resource  string
	Result    string
	IPAddress string
	UserAgent string
	Metadata  map[string]any
}

// AuditService persists and retrieves audit log entries for privileged
// operations such as alert broadcasts and deactivations.
type AuditService struct {
	db *gorm.DB
}

// NewAuditService constructs an AuditService using the provided database handle.
func NewAuditService(db *gorm.DB) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	return &AuditService{db: db}, nil
}

// Log stores an audit entry, marshalling metadata into JSON form.
func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(entry.Action) == "" {
		return errors.New("audit service: action is required")
	}
	if strings.TrimSpace(entry.Result) == "" {
		return errors.New("audit service: result is required")
	}

	payload := ""
	if entry.Metadata != nil {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("audit service: marshal metadata: %w", err)
		}
		payload = string(encoded)
	}

	log := models.AuditLog{
		UserID:    entry.UserID,
		Username:  strings.TrimSpace(entry.Username),
		Action:    strings.TrimSpace(entry.Action),
		Resource:  strings.TrimSpace(entry.Resource),
		Result:    strings.TrimSpace(entry.Result),
		IPAddress: strings.TrimSpace(entry.IPAddress),
		UserAgent: strings.TrimSpace(entry.UserAgent),
		Metadata:  payload,
	}

	if err := s.db.WithContext(ctx).Create(&log).Error; err != nil {
		return fmt.Errorf("audit service: persist entry: %w", err)
	}
	return nil
}

// Recent returns the newest audit entries, optionally filtered by action.
func (s *AuditService) Recent(ctx context.Context, action string, limit int) ([]models.AuditLog, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if action = strings.TrimSpace(action); action != "" {
		query = query.Where("action = ?", action)
	}

	var logs []models.AuditLog
	if err := query.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("audit service: list entries: %w", err)
	}
	return logs, nil
}

// PruneOlderThan removes audit entries created before the cutoff.
func (s *AuditService) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("audit service: prune entries: %w", result.Error)
	}
	return result.RowsAffected, nil
}
