package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultGatewayTimeout = 5 * time.Second

// HTTPGatewayConfig configures an outbound HTTP delivery provider.
type HTTPGatewayConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// HTTPGateway posts delivery requests to a provider endpoint. It backs both
// the push and SMS channels; the provider path differs per channel.
type HTTPGateway struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPGateway constructs a gateway client for the configured provider.
func NewHTTPGateway(cfg HTTPGatewayConfig) (*HTTPGateway, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("channels: gateway base url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}

	return &HTTPGateway{
		baseURL: baseURL,
		token:   strings.TrimSpace(cfg.Token),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// SendPush posts a push delivery request for the given user.
func (g *HTTPGateway) SendPush(ctx context.Context, userID, title, body string) error {
	payload := map[string]string{
		"user_id": userID,
		"title":   title,
		"body":    body,
	}
	return g.post(ctx, "/push", payload)
}

// SendSMS posts a text delivery request for the given phone number.
func (g *HTTPGateway) SendSMS(ctx context.Context, phone, body string) error {
	payload := map[string]string{
		"to":      phone,
		"message": body,
	}
	return g.post(ctx, "/sms", payload)
}

func (g *HTTPGateway) post(ctx context.Context, path string, payload map[string]string) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("channels: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("channels: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("channels: gateway request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("channels: gateway returned status %d", resp.StatusCode)
	}
	return nil
}
