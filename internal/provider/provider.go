// internal/provider/provider.go
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coldpitch/outreach-backend/internal/config"
)

// Event types emitted by delivery providers.
const (
	EventOpen        = "open"
	EventClick       = "click"
	EventBounce      = "bounce"
	EventSpamReport  = "spam_report"
	EventUnsubscribe = "unsubscribe"
	EventDelivered   = "delivered"
	EventDeferred    = "deferred"
	EventDropped     = "dropped"
	EventReply       = "reply"
)

type SendParams struct {
	FromEmail  string
	FromName   string
	ToEmail    string
	ToName     string
	Subject    string
	HTML       string
	Text       string
	Headers    map[string]string
	CustomArgs map[string]string
}

type SendResult struct {
	MessageID  string
	ProviderID string
}

type WebhookEvent struct {
	Type      string
	Email     string
	MessageID string
	Timestamp time.Time
	Data      json.RawMessage
}

type InboundEmail struct {
	From       string
	To         string
	Subject    string
	HTML       string
	Text       string
	MessageID  string
	InReplyTo  string
	References string
}

// EmailProvider abstracts the outbound transport and its webhook formats.
// Webhook methods take the already-buffered request body so that signature
// verification and parsing can both read it.
type EmailProvider interface {
	SendEmail(ctx context.Context, p SendParams) (*SendResult, error)
	VerifyWebhook(header http.Header, body []byte) bool
	ParseWebhookEvents(body []byte) ([]WebhookEvent, error)
	ParseInboundEmail(contentType string, body []byte) (*InboundEmail, error)
}

// New selects the provider adapter configured by EMAIL_PROVIDER.
func New(cfg *config.Config) (EmailProvider, error) {
	switch cfg.EmailProvider {
	case "sendgrid":
		return NewSendGridProvider(cfg.SendGridAPIKey, cfg.WebhookSigningSecret)
	case "ses":
		return NewSESProvider(cfg.AWSRegion, cfg.SESConfigurationSet)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported email provider: %s", cfg.EmailProvider)
	}
}
