package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HTTPConfirmer confirms orders against the order system's REST API with
// POST {base}/{orderType}/{orderID}/confirm. 2xx and 409 (already confirmed)
// both count as success.
type HTTPConfirmer struct {
	baseURL string
	client  *http.Client
}

func NewHTTPConfirmer(baseURL string) *HTTPConfirmer {
	return &HTTPConfirmer{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPConfirmer) Confirm(ctx context.Context, orderType string, orderID uuid.UUID) error {
	body, err := json.Marshal(map[string]string{"status": "confirmed"})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s/%s/confirm", c.baseURL, orderType, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 || resp.StatusCode == http.StatusConflict {
		return nil
	}
	return fmt.Errorf("order system returned %d", resp.StatusCode)
}

// LogConfirmer acknowledges every order locally. It stands in for the order
// system in development environments.
type LogConfirmer struct {
	logger zerolog.Logger
}

func NewLogConfirmer(logger zerolog.Logger) *LogConfirmer {
	return &LogConfirmer{logger: logger}
}

func (c *LogConfirmer) Confirm(_ context.Context, orderType string, orderID uuid.UUID) error {
	c.logger.Info().
		Str("order_type", orderType).
		Str("order_id", orderID.String()).
		Msg("order confirmed (local)")
	return nil
}
