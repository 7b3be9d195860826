// internal/provider/ses.go
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ses"
)

// SESProvider delivers through Amazon SES. Events and inbound mail arrive
// as SNS notification envelopes; SNS performs its own signature validation
// at the subscription level, so VerifyWebhook only checks the envelope
// shape.
type SESProvider struct {
	client           *ses.SES
	configurationSet string
}

func NewSESProvider(region, configurationSet string) (*SESProvider, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return &SESProvider{
		client:           ses.New(sess),
		configurationSet: configurationSet,
	}, nil
}

func (p *SESProvider) SendEmail(ctx context.Context, params SendParams) (*SendResult, error) {
	source := params.FromEmail
	if params.FromName != "" {
		source = fmt.Sprintf("%s <%s>", params.FromName, params.FromEmail)
	}

	body := &ses.Body{}
	if params.HTML != "" {
		body.Html = &ses.Content{Data: aws.String(params.HTML), Charset: aws.String("UTF-8")}
	}
	if params.Text != "" {
		body.Text = &ses.Content{Data: aws.String(params.Text), Charset: aws.String("UTF-8")}
	}

	input := &ses.SendEmailInput{
		Source:      aws.String(source),
		Destination: &ses.Destination{ToAddresses: []*string{aws.String(params.ToEmail)}},
		Message: &ses.Message{
			Subject: &ses.Content{Data: aws.String(params.Subject), Charset: aws.String("UTF-8")},
			Body:    body,
		},
	}
	if p.configurationSet != "" {
		input.ConfigurationSetName = aws.String(p.configurationSet)
	}

	out, err := p.client.SendEmailWithContext(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("ses send: %w", err)
	}

	messageID := aws.StringValue(out.MessageId)
	return &SendResult{MessageID: messageID, ProviderID: messageID}, nil
}

type snsEnvelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

func (p *SESProvider) VerifyWebhook(header http.Header, body []byte) bool {
	var env snsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return false
	}
	return env.Type == "Notification"
}

type sesNotification struct {
	EventType string `json:"eventType"`
	Mail      struct {
		MessageID     string    `json:"messageId"`
		Timestamp     time.Time `json:"timestamp"`
		Destination   []string  `json:"destination"`
		CommonHeaders struct {
			From      []string `json:"from"`
			To        []string `json:"to"`
			Subject   string   `json:"subject"`
			InReplyTo []string `json:"inReplyTo"`
			References []string `json:"references"`
		} `json:"commonHeaders"`
	} `json:"mail"`
	Content string `json:"content"`
}

var sesEventTypes = map[string]string{
	"Open":      EventOpen,
	"Click":     EventClick,
	"Bounce":    EventBounce,
	"Complaint": EventSpamReport,
	"Delivery":  EventDelivered,
}

func (p *SESProvider) ParseWebhookEvents(body []byte) ([]WebhookEvent, error) {
	notification, raw, err := decodeSNS(body)
	if err != nil {
		return nil, err
	}

	kind, ok := sesEventTypes[notification.EventType]
	if !ok {
		kind = EventDelivered
	}

	email := ""
	if len(notification.Mail.Destination) > 0 {
		email = notification.Mail.Destination[0]
	}

	return []WebhookEvent{{
		Type:      kind,
		Email:     email,
		MessageID: notification.Mail.MessageID,
		Timestamp: notification.Mail.Timestamp,
		Data:      raw,
	}}, nil
}

func (p *SESProvider) ParseInboundEmail(contentType string, body []byte) (*InboundEmail, error) {
	notification, _, err := decodeSNS(body)
	if err != nil {
		return nil, err
	}

	headers := notification.Mail.CommonHeaders
	if len(headers.To) == 0 {
		return nil, fmt.Errorf("invalid ses inbound format")
	}

	inbound := &InboundEmail{
		To:        headers.To[0],
		Subject:   headers.Subject,
		HTML:      notification.Content,
		Text:      notification.Content,
		MessageID: notification.Mail.MessageID,
	}
	if len(headers.From) > 0 {
		inbound.From = headers.From[0]
	}
	if len(headers.InReplyTo) > 0 {
		inbound.InReplyTo = headers.InReplyTo[0]
	}
	if len(headers.References) > 0 {
		inbound.References = headers.References[0]
	}
	return inbound, nil
}

func decodeSNS(body []byte) (*sesNotification, json.RawMessage, error) {
	var env snsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, nil, fmt.Errorf("parse sns envelope: %w", err)
	}
	if env.Type != "Notification" {
		return nil, nil, fmt.Errorf("unexpected sns message type: %s", env.Type)
	}

	var notification sesNotification
	if err := json.Unmarshal([]byte(env.Message), &notification); err != nil {
		return nil, nil, fmt.Errorf("parse ses notification: %w", err)
	}
	return &notification, json.RawMessage(env.Message), nil
}
