// internal/provider/mock.go
package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// MockProvider logs instead of sending. Used in development and tests.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (p *MockProvider) SendEmail(ctx context.Context, params SendParams) (*SendResult, error) {
	id := "mock-" + uuid.NewString()
	log.WithFields(log.Fields{
		"to":         params.ToEmail,
		"subject":    params.Subject,
		"message_id": id,
	}).Info("mock provider: email sent")
	return &SendResult{MessageID: id, ProviderID: id}, nil
}

func (p *MockProvider) VerifyWebhook(header http.Header, body []byte) bool {
	return true
}

func (p *MockProvider) ParseWebhookEvents(body []byte) ([]WebhookEvent, error) {
	var events []struct {
		Event     string `json:"event"`
		Email     string `json:"email"`
		MessageID string `json:"message_id"`
	}
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, err
	}

	parsed := make([]WebhookEvent, 0, len(events))
	for _, ev := range events {
		parsed = append(parsed, WebhookEvent{
			Type:      ev.Event,
			Email:     ev.Email,
			MessageID: ev.MessageID,
			Timestamp: time.Now(),
		})
	}
	return parsed, nil
}

func (p *MockProvider) ParseInboundEmail(contentType string, body []byte) (*InboundEmail, error) {
	var inbound InboundEmail
	if err := json.Unmarshal(body, &inbound); err != nil {
		return nil, err
	}
	return &inbound, nil
}
