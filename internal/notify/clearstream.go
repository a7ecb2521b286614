package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ClearstreamConfig configures the Clearstream SMS client.
type ClearstreamConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// ClearstreamClient sends text messages through the Clearstream API.
type ClearstreamClient struct {
	cfg        ClearstreamConfig
	httpClient *http.Client
}

type clearstreamText struct {
	To         string `json:"to"`
	TextHeader string `json:"text_header"`
	TextBody   string `json:"text_body"`
}

// NewClearstreamClient returns a client for cfg. An empty API key yields ErrNotConfigured.
func NewClearstreamClient(cfg ClearstreamConfig) (*ClearstreamClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("clearstream: missing CLEARSTREAM_API_KEY: %w", ErrNotConfigured)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.getclearstream.com"
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &ClearstreamClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Send texts msg to the entry's phone number in E.164 form.
func (c *ClearstreamClient) Send(ctx context.Context, msg Message) error {
	to, err := E164(msg.Entry.Phone)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(clearstreamText{
		To:         to,
		TextHeader: msg.Subject,
		TextBody:   msg.Body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/texts", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("X-Api-Key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("(%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// E164 formats a ten digit North American number as +1NNNNNNNNNN.
func E164(phone string) (string, error) {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	switch {
	case len(d) == 10:
		return "+1" + d, nil
	case len(d) == 11 && strings.HasPrefix(d, "1"):
		return "+" + d, nil
	default:
		return "", fmt.Errorf("phone %q is not a valid number", phone)
	}
}
