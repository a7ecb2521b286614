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

// SendGridConfig configures the SendGrid email client.
type SendGridConfig struct {
	APIKey    string
	BaseURL   string
	FromEmail string
	FromName  string
	Timeout   time.Duration
}

// SendGridClient sends plain-text email through the SendGrid v3 mail API.
type SendGridClient struct {
	cfg        SendGridConfig
	httpClient *http.Client
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type personalization struct {
	To []emailAddress `json:"to"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type mailSendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             emailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []mailContent     `json:"content"`
}

// NewSendGridClient returns a client for cfg. The API key and sender address are required.
func NewSendGridClient(cfg SendGridConfig) (*SendGridClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("sendgrid: missing SENDGRID_API_KEY: %w", ErrNotConfigured)
	}
	if strings.TrimSpace(cfg.FromEmail) == "" {
		return nil, fmt.Errorf("sendgrid: missing SENDGRID_FROM_EMAIL: %w", ErrNotConfigured)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.sendgrid.com"
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &SendGridClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Send emails msg as plain text to the entry's address.
func (c *SendGridClient) Send(ctx context.Context, msg Message) error {
	to := strings.TrimSpace(msg.Entry.Email)
	if to == "" {
		return fmt.Errorf("entry %s has no email address", msg.Entry.ID)
	}
	wire := mailSendRequest{
		Personalizations: []personalization{{
			To: []emailAddress{{
				Email: to,
				Name:  strings.TrimSpace(msg.Entry.FirstName + " " + msg.Entry.LastName),
			}},
		}},
		From:    emailAddress{Email: c.cfg.FromEmail, Name: c.cfg.FromName},
		Subject: msg.Subject,
		Content: []mailContent{{Type: "text/plain", Value: msg.Body}},
	}
	payload, err := json.Marshal(wire)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v3/mail/send", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
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
