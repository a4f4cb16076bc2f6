package dispatch

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"innkeeper/models"
)

// Sender delivers one webhook payload to a venue endpoint.
type Sender interface {
	Send(ctx context.Context, ep *models.WebhookEndpoint, event *models.WebhookEvent) error
}

// HTTPSender posts JSON payloads, signing them with the endpoint secret so
// receivers can authenticate and de-duplicate by event id.
type HTTPSender struct {
	client *http.Client
}

func NewHTTPSender(timeout time.Duration) *HTTPSender {
	return &HTTPSender{client: &http.Client{Timeout: timeout}}
}

func (s *HTTPSender) Send(ctx context.Context, ep *models.WebhookEndpoint, event *models.WebhookEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Innkeeper-Event-Id", event.EventID)
	req.Header.Set("X-Innkeeper-Stay-Seq", strconv.FormatInt(event.Seq, 10))
	if ep.Secret != "" {
		req.Header.Set("X-Innkeeper-Signature", sign(ep.Secret, body))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
