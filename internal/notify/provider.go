package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ProviderClient sends email through the transactional email provider's
// HTTP API.
type ProviderClient struct {
	BaseURL string
	APIKey  string
	From    string
	HTTP    *http.Client
}

func NewProviderClient(baseURL, apiKey, from string) *ProviderClient {
	return &ProviderClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		From:    from,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

type sendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

func (c *ProviderClient) Send(ctx context.Context, email Email) error {
	raw, err := json.Marshal(sendRequest{
		From:    c.From,
		To:      email.To,
		Subject: email.Subject,
		HTML:    email.HTML,
	})
	if err != nil {
		return fmt.Errorf("encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/emails", bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("email provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("email provider error: status %d: %s", resp.StatusCode, body)
	}
	return nil
}
