package models

import "gorm.io/datatypes"

// Simple alert channels.
const (
	ChannelPush     = "push"
	ChannelSMS      = "sms"
	ChannelWhatsapp = "whatsapp"
)

// Alert is an ad hoc broadcast: a message plus an explicit recipient list.
// It carries no targeting rules and no delivery counters; governance lives on
// EmergencyAlert.
type Alert struct {
	BaseModel

	Message    string         `gorm:"type:text;not null" json:"message"`
	Channel    string         `gorm:"type:varchar(32);default:'push'" json:"channel"`
	SentByID   *string        `gorm:"type:uuid" json:"sent_by"`
	SentBy     *User          `gorm:"foreignKey:SentByID" json:"-"`
	Recipients datatypes.JSON `json:"recipients"`
	Verified   bool           `gorm:"default:false" json:"verified"`
}
