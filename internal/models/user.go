package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles mirror the community structure: ordinary members, community
// elders, moderators, NGO/government staff, and platform admins.
const (
	RoleYouth     = "youth"
	RoleElder     = "elder"
	RoleModerator = "moderator"
	RoleNGO       = "ngo"
	RoleAdmin     = "admin"
)

// User describes a platform member. The notification core reads users as its
// directory: targeting consults state/location, the SMS override consults the
// phone number.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	Role     string `gorm:"type:varchar(16);default:'youth';index" json:"role"`
	Verified bool   `gorm:"default:false" json:"verified"`
	IsActive bool   `gorm:"index" json:"is_active"`

	Phone         string `gorm:"type:varchar(32)" json:"phone"`
	WhatsappPhone string `gorm:"type:varchar(32)" json:"whatsapp_phone"`

	Location string `gorm:"type:varchar(128);index" json:"location"`
	State    string `gorm:"type:varchar(64);index" json:"state"`
	County   string `gorm:"type:varchar(64)" json:"county"`

	PreferredLanguage string `gorm:"type:varchar(10);default:'en'" json:"preferred_language"`

	LastActiveAt *time.Time `json:"last_active_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// IsAdmin reports whether the user may manage broadcasts.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
