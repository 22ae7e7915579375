package models

import (
	"time"

	"gorm.io/datatypes"
)

// Alert severities, ordered from most to least urgent.
const (
	SeverityCritical = "critical"
	SeveritySevere   = "severe"
	SeverityModerate = "moderate"
	SeverityInfo     = "info"
)

// Emergency alert types.
const (
	AlertTypeConflict   = "conflict"
	AlertTypeFlood      = "flood"
	AlertTypeDrought    = "drought"
	AlertTypeDisease    = "disease"
	AlertTypeEvacuation = "evacuation"
	AlertTypeSafety     = "safety"
	AlertTypeResource   = "resource"
	AlertTypeMeeting    = "meeting"
	AlertTypeOther      = "other"
)

// AlertSeverities enumerates accepted severity values.
var AlertSeverities = []string{SeverityCritical, SeveritySevere, SeverityModerate, SeverityInfo}

// AlertTypes enumerates accepted alert type values.
var AlertTypes = []string{
	AlertTypeConflict,
	AlertTypeFlood,
	AlertTypeDrought,
	AlertTypeDisease,
	AlertTypeEvacuation,
	AlertTypeSafety,
	AlertTypeResource,
	AlertTypeMeeting,
	AlertTypeOther,
}

// EmergencyAlert is a broadcast definition, distinct from the individual
// notifications it fans out into. The counters are only ever mutated through
// single-statement atomic increments; recipients_count is a snapshot taken
// once at broadcast time.
//
// TargetCounties is captured from issuers but the resolver does not consult
// it. Kept as-is pending product clarification.
type EmergencyAlert struct {
	BaseModel

	Title     string `gorm:"type:varchar(255);not null" json:"title"`
	Message   string `gorm:"type:text;not null" json:"message"`
	AlertType string `gorm:"type:varchar(30);not null" json:"alert_type"`
	Severity  string `gorm:"type:varchar(20);not null;index" json:"severity"`

	BroadcastAll   bool           `gorm:"default:false" json:"broadcast_all"`
	TargetStates   datatypes.JSON `json:"target_states"`
	TargetRegions  datatypes.JSON `json:"target_regions"`
	TargetCounties datatypes.JSON `json:"target_counties"`

	IssuedByID          *string `gorm:"type:uuid;index" json:"issued_by"`
	IssuedBy            *User   `gorm:"foreignKey:IssuedByID" json:"-"`
	IssuingOrganization string  `gorm:"type:varchar(255)" json:"issuing_organization"`

	// No gorm defaults on the channel switches: a default tag makes gorm
	// omit false values from the INSERT, silently re-enabling a channel the
	// issuer turned off. The service sets every switch explicitly.
	SendPush     bool `json:"send_push"`
	SendSMS      bool `json:"send_sms"`
	SendWhatsapp bool `json:"send_whatsapp"`

	RecipientsCount int64 `gorm:"default:0" json:"recipients_count"`
	DeliveredCount  int64 `gorm:"default:0" json:"delivered_count"`
	ReadCount       int64 `gorm:"default:0" json:"read_count"`

	IsActive  bool       `gorm:"index" json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// ValidAlertSeverity reports whether the value is a known severity.
func ValidAlertSeverity(value string) bool {
	for _, s := range AlertSeverities {
		if s == value {
			return true
		}
	}
	return false
}

// ValidAlertType reports whether the value is a known alert type.
func ValidAlertType(value string) bool {
	for _, t := range AlertTypes {
		if t == value {
			return true
		}
	}
	return false
}
