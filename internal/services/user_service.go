package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/peacelink/peacelink/internal/models"
	apperrors "github.com/peacelink/peacelink/pkg/errors"
)

// RegisterInput carries the fields for a new account.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`

	Phone         string `json:"phone"`
	WhatsappPhone string `json:"whatsapp_phone"`
	Location      string `json:"location"`
	State         string `json:"state"`
	County        string `json:"county"`

	PreferredLanguage string `json:"preferred_language"`
}

// UserService manages accounts and credential checks. It also seeds each new
// account's notification preferences so dispatch never has to special-case a
// missing row.
type UserService struct {
	db          *gorm.DB
	preferences *PreferenceService
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB, preferences *PreferenceService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db, preferences: preferences}, nil
}

// Register creates an account with a bcrypt-hashed password and default
// notification preferences.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" || email == "" {
		return nil, apperrors.NewBadRequest("username and email are required")
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewBadRequest("password must be at least 8 characters")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := models.User{
		Username:          username,
		Email:             email,
		Password:          string(hashed),
		Role:              models.RoleYouth,
		IsActive:          true,
		Phone:             strings.TrimSpace(input.Phone),
		WhatsappPhone:     strings.TrimSpace(input.WhatsappPhone),
		Location:          strings.TrimSpace(input.Location),
		State:             strings.TrimSpace(input.State),
		County:            strings.TrimSpace(input.County),
		PreferredLanguage: defaultIfEmpty(strings.TrimSpace(input.PreferredLanguage), "en"),
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("username or email already in use")
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	if s.preferences != nil {
		if _, err := s.preferences.EnsureDefaults(ctx, user.ID); err != nil {
			return nil, err
		}
	}

	return &user, nil
}

// Authenticate verifies credentials against the stored bcrypt hash. The same
// error is returned for unknown accounts and bad passwords.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	if err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", strings.TrimSpace(username), strings.ToLower(strings.TrimSpace(username))).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	if !user.IsActive {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		UpdateColumn("last_active_at", now).Error; err == nil {
		user.LastActiveAt = &now
	}

	return &user, nil
}

// GetByID loads one user by id.
func (s *UserService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(userID)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	return &user, nil
}

// Deactivate disables an account. Deactivated users drop out of alert
// targeting and cannot authenticate.
func (s *UserService) Deactivate(ctx context.Context, userID string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", strings.TrimSpace(userID)).
		UpdateColumn("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("user service: deactivate user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
