package models

// AlertDelivery records one emergency alert delivery per recipient. The unique
// (alert_id, recipient_id) pair makes broadcast retries idempotent: a re-run
// of a partially completed fan-out only reaches recipients without a row, and
// delivered_count is never double counted.
type AlertDelivery struct {
	BaseModel

	AlertID        string `gorm:"type:uuid;not null;uniqueIndex:idx_alert_deliveries_alert_recipient" json:"alert_id"`
	RecipientID    string `gorm:"type:uuid;not null;uniqueIndex:idx_alert_deliveries_alert_recipient" json:"recipient_id"`
	NotificationID string `gorm:"type:uuid;index" json:"notification_id"`
}
