// Package channels holds the external delivery gateways the dispatcher calls.
// Gateways are fire-and-forget from the core's perspective: they report
// success or failure for the attempt, never delivery receipts.
package channels

import "context"

// PushGateway delivers a push notification to all of a user's devices.
type PushGateway interface {
	SendPush(ctx context.Context, userID, title, body string) error
}

// SMSGateway delivers a text message to a phone number.
type SMSGateway interface {
	SendSMS(ctx context.Context, phone, body string) error
}
