package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"raffle/internal/models"

	"github.com/google/logger"
)

// ErrNotConfigured is returned by a channel that has no credentials.
var ErrNotConfigured = errors.New("channel not configured")

// Message is one winner notification, rendered once and sent on every channel.
type Message struct {
	Subject string
	Body    string
	Entry   models.Entry
}

// Sender delivers a message over a single channel.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Result reports the outcome of each channel.
type Result struct {
	SMSOK   bool     `json:"smsOk"`
	EmailOK bool     `json:"emailOk"`
	Errors  []string `json:"errors,omitempty"`
}

// Delivered reports whether at least one channel succeeded.
func (r Result) Delivered() bool {
	return r.SMSOK || r.EmailOK
}

// Notifier tells a winner about their win.
type Notifier interface {
	Notify(ctx context.Context, entry models.Entry, prize *models.Prize) Result
}

// Dispatcher sends SMS and email independently.
type Dispatcher struct {
	sms               Sender
	email             Sender
	raffleName        string
	claimInstructions string
}

// NewDispatcher creates a Dispatcher. A nil sender marks its channel as not configured.
func NewDispatcher(sms, email Sender, raffleName, claimInstructions string) *Dispatcher {
	return &Dispatcher{
		sms:               sms,
		email:             email,
		raffleName:        raffleName,
		claimInstructions: claimInstructions,
	}
}

// Notify formats the winner message and sends it on both channels.
func (d *Dispatcher) Notify(ctx context.Context, entry models.Entry, prize *models.Prize) Result {
	msg := d.Compose(entry, prize)
	logger.Infof("notifying winner %s %s (%s, %s)", entry.FirstName, entry.LastName, entry.Phone, entry.Email)

	var result Result
	if err := send(ctx, d.sms, msg); err != nil {
		logger.Warningf("SMS notification failed for entry %s: %v", entry.ID, err)
		result.Errors = append(result.Errors, fmt.Sprintf("SMS failed: %v", err))
	} else {
		result.SMSOK = true
	}
	if err := send(ctx, d.email, msg); err != nil {
		logger.Warningf("email notification failed for entry %s: %v", entry.ID, err)
		result.Errors = append(result.Errors, fmt.Sprintf("Email failed: %v", err))
	} else {
		result.EmailOK = true
	}
	return result
}

// Compose renders the subject and body for a winner.
func (d *Dispatcher) Compose(entry models.Entry, prize *models.Prize) Message {
	prizeText := ""
	if prize != nil && strings.TrimSpace(prize.Name) != "" {
		prizeText = " for the " + prize.Name
	}
	body := fmt.Sprintf("Congratulations %s! You've been selected as a winner%s!", entry.FirstName, prizeText)
	if instructions := strings.TrimSpace(d.claimInstructions); instructions != "" {
		body += " " + instructions
	}
	return Message{
		Subject: "\U0001F389 " + d.raffleName,
		Body:    body,
		Entry:   entry,
	}
}

func send(ctx context.Context, sender Sender, msg Message) error {
	if sender == nil {
		return ErrNotConfigured
	}
	return sender.Send(ctx, msg)
}
