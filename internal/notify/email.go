package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/Fi44er/roi_ledger/utils"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sony/gobreaker"
)

const sendTimeout = 10 * time.Second

type EmailConfig struct {
	APIKey     string
	FromEmail  string
	FromName   string
	AdminEmail string
	// Trip the breaker after this many consecutive failures. Defaults to 5.
	MaxFailures uint32
}

// Email sends notifications through SendGrid behind a circuit breaker.
type Email struct {
	config  EmailConfig
	breaker *gobreaker.CircuitBreaker
	send    func(ctx context.Context, msg *mail.SGMailV3) (*rest.Response, error)
	logger  *utils.Logger
}

func NewEmail(config EmailConfig, logger *utils.Logger) *Email {
	client := sendgrid.NewSendClient(config.APIKey)
	return newEmail(config, client.SendWithContext, logger)
}

func newEmail(config EmailConfig, send func(context.Context, *mail.SGMailV3) (*rest.Response, error), logger *utils.Logger) *Email {
	if config.MaxFailures == 0 {
		config.MaxFailures = 5
	}
	if config.FromName == "" {
		config.FromName = "ROI Ledger"
	}

	maxFailures := config.MaxFailures
	settings := gobreaker.Settings{
		Name:        "SendGrid",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf("circuit breaker %s: %s -> %s", name, from, to)
		},
	}

	return &Email{
		config:  config,
		breaker: gobreaker.NewCircuitBreaker(settings),
		send:    send,
		logger:  logger,
	}
}

func (e *Email) NotifyAdmin(ctx context.Context, event Event, fields Fields) error {
	if e.config.AdminEmail == "" {
		return nil
	}
	return e.deliver(ctx, e.config.AdminEmail, event, fields)
}

func (e *Email) NotifyUser(ctx context.Context, email string, event Event, fields Fields) error {
	if email == "" {
		return nil
	}
	return e.deliver(ctx, email, event, fields)
}

func (e *Email) deliver(ctx context.Context, to string, event Event, fields Fields) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	subject := Subject(event)
	text := Render(event, fields)
	htmlContent := "<pre>" + html.EscapeString(text) + "</pre>"

	from := mail.NewEmail(e.config.FromName, e.config.FromEmail)
	message := mail.NewSingleEmail(from, subject, mail.NewEmail("", to), text, htmlContent)

	_, err := e.breaker.Execute(func() (interface{}, error) {
		resp, err := e.send(ctx, message)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("sendgrid status %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body))
		}
		return resp, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("email to %s skipped: %w", to, err)
	}
	if err != nil {
		e.logger.Errorf("Failed to send %s email to %s: %v", event, to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	e.logger.Debugf("Email %s sent to %s", event, to)
	return nil
}
