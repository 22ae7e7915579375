package channels

import (
	"context"

	"go.uber.org/zap"

	"github.com/peacelink/peacelink/pkg/logger"
)

// NoopGateway logs deliveries instead of performing them. Used when no
// provider is configured so notification records still accumulate normally.
type NoopGateway struct{}

// NewNoopGateway returns a gateway that accepts every send.
func NewNoopGateway() *NoopGateway {
	return &NoopGateway{}
}

// SendPush logs the push delivery and reports success.
func (g *NoopGateway) SendPush(ctx context.Context, userID, title, body string) error {
	logger.WithModule("channels").Debug("push delivery skipped (no provider configured)",
		zap.String("user_id", userID),
		zap.String("title", title),
	)
	return nil
}

// SendSMS logs the SMS delivery and reports success.
func (g *NoopGateway) SendSMS(ctx context.Context, phone, body string) error {
	logger.WithModule("channels").Debug("sms delivery skipped (no provider configured)",
		zap.String("phone", phone),
	)
	return nil
}
