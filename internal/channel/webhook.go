package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dkrasov/postline/internal/models"
)

// WebhookChannel is the primary automated channel: it POSTs the media
// reference to the tenant's configured endpoint. The receiving side (the
// chat layer) performs the actual publication.
type WebhookChannel struct {
	client *http.Client
}

func NewWebhookChannel(timeout time.Duration) *WebhookChannel {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WebhookChannel{
		client: &http.Client{Timeout: timeout},
	}
}

func (c *WebhookChannel) Name() string { return "webhook" }

type webhookPayload struct {
	TenantID    int64  `json:"tenant_id"`
	MediaID     int64  `json:"media_id"`
	Fingerprint string `json:"fingerprint"`
	Category    string `json:"category"`
}

func (c *WebhookChannel) Deliver(ctx context.Context, media *models.MediaItem, tenant *models.TenantConfig) error {
	if tenant.WebhookURL == "" {
		return Hard(fmt.Errorf("tenant %d has no webhook url configured", tenant.TenantID))
	}

	body, err := json.Marshal(webhookPayload{
		TenantID:    tenant.TenantID,
		MediaID:     media.ID,
		Fingerprint: media.Fingerprint,
		Category:    media.Category,
	})
	if err != nil {
		return Hard(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tenant.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return Hard(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// Network-level faults are retryable.
		return Recoverable(err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	return classifyHTTPStatus(resp.StatusCode)
}

// classifyHTTPStatus maps the endpoint's status code onto the outcome
// taxonomy: 2xx success, 429/5xx recoverable, everything else hard.
func classifyHTTPStatus(statusCode int) error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusTooManyRequests:
		return Recoverable(fmt.Errorf("webhook rate limited (status %d)", statusCode))
	case statusCode >= 500:
		return Recoverable(fmt.Errorf("webhook server error (status %d)", statusCode))
	default:
		return Hard(fmt.Errorf("webhook rejected delivery (status %d)", statusCode))
	}
}
