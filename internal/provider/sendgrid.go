// internal/provider/sendgrid.go
package provider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// sgSender lets tests substitute the SendGrid client.
type sgSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type SendGridProvider struct {
	client        sgSender
	webhookSecret string
}

func NewSendGridProvider(apiKey, webhookSecret string) (*SendGridProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("SENDGRID_API_KEY is not set")
	}
	return &SendGridProvider{
		client:        sendgrid.NewSendClient(apiKey),
		webhookSecret: webhookSecret,
	}, nil
}

func buildSendGridMail(params SendParams) *mail.SGMailV3 {
	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(params.FromName, params.FromEmail))
	m.Subject = params.Subject

	personalization := mail.NewPersonalization()
	personalization.AddTos(mail.NewEmail(params.ToName, params.ToEmail))
	for key, value := range params.CustomArgs {
		personalization.SetCustomArg(key, value)
	}
	m.AddPersonalizations(personalization)

	if params.Text != "" {
		m.AddContent(mail.NewContent("text/plain", params.Text))
	}
	if params.HTML != "" {
		m.AddContent(mail.NewContent("text/html", params.HTML))
	}
	for key, value := range params.Headers {
		m.SetHeader(key, value)
	}
	return m
}

func (p *SendGridProvider) SendEmail(ctx context.Context, params SendParams) (*SendResult, error) {
	resp, err := p.client.SendWithContext(ctx, buildSendGridMail(params))
	if err != nil {
		return nil, fmt.Errorf("sendgrid request: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sendgrid responded %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body))
	}

	messageID := ""
	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
		messageID = ids[0]
	}
	if messageID == "" {
		messageID = "msg-" + uuid.NewString()
	}
	return &SendResult{MessageID: messageID, ProviderID: messageID}, nil
}

// VerifyWebhook checks the HMAC-SHA256 signature over timestamp+body.
// Verification is skipped when no signing secret is configured.
func (p *SendGridProvider) VerifyWebhook(header http.Header, body []byte) bool {
	if p.webhookSecret == "" {
		return true
	}

	signature := header.Get("X-Twilio-Email-Event-Webhook-Signature")
	if signature == "" {
		signature = header.Get("X-Sendgrid-Signature")
	}
	timestamp := header.Get("X-Twilio-Email-Event-Webhook-Timestamp")
	if timestamp == "" {
		timestamp = header.Get("X-Sendgrid-Timestamp")
	}
	if signature == "" || timestamp == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(p.webhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expected))
}

type sgEvent struct {
	Event       string `json:"event"`
	Email       string `json:"email"`
	SGMessageID string `json:"sg_message_id"`
	Timestamp   int64  `json:"timestamp"`
}

var sgEventTypes = map[string]string{
	"open":        EventOpen,
	"click":       EventClick,
	"bounce":      EventBounce,
	"spamreport":  EventSpamReport,
	"unsubscribe": EventUnsubscribe,
	"delivered":   EventDelivered,
	"deferred":    EventDeferred,
	"dropped":     EventDropped,
}

func (p *SendGridProvider) ParseWebhookEvents(body []byte) ([]WebhookEvent, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse event payload: %w", err)
	}

	events := make([]WebhookEvent, 0, len(raw))
	for _, item := range raw {
		var ev sgEvent
		if err := json.Unmarshal(item, &ev); err != nil {
			continue
		}
		kind, ok := sgEventTypes[ev.Event]
		if !ok {
			kind = EventDelivered
		}
		events = append(events, WebhookEvent{
			Type:      kind,
			Email:     ev.Email,
			MessageID: ev.SGMessageID,
			Timestamp: time.Unix(ev.Timestamp, 0),
			Data:      item,
		})
	}
	return events, nil
}

var (
	messageIDRe  = regexp.MustCompile(`(?m)^Message-ID:\s*(.+)$`)
	inReplyToRe  = regexp.MustCompile(`(?m)^In-Reply-To:\s*(.+)$`)
	referencesRe = regexp.MustCompile(`(?m)^References:\s*(.+)$`)
)

// ParseInboundEmail decodes the SendGrid inbound parse form post.
func (p *SendGridProvider) ParseInboundEmail(contentType string, body []byte) (*InboundEmail, error) {
	form, err := parseFormBody(contentType, body)
	if err != nil {
		return nil, fmt.Errorf("parse inbound form: %w", err)
	}

	headers := form.Get("headers")
	inbound := &InboundEmail{
		From:       form.Get("from"),
		To:         form.Get("to"),
		Subject:    form.Get("subject"),
		HTML:       form.Get("html"),
		Text:       form.Get("text"),
		MessageID:  matchHeader(messageIDRe, headers),
		InReplyTo:  matchHeader(inReplyToRe, headers),
		References: matchHeader(referencesRe, headers),
	}
	if inbound.To == "" {
		return nil, fmt.Errorf("inbound email has no recipient")
	}
	return inbound, nil
}

func matchHeader(re *regexp.Regexp, headers string) string {
	m := re.FindStringSubmatch(headers)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func parseFormBody(contentType string, body []byte) (url.Values, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, err
	}

	switch {
	case mediaType == "application/x-www-form-urlencoded":
		return url.ParseQuery(string(body))
	case strings.HasPrefix(mediaType, "multipart/"):
		boundary, ok := params["boundary"]
		if !ok {
			return nil, fmt.Errorf("multipart body without boundary")
		}
		reader := multipart.NewReader(bytes.NewReader(body), boundary)
		values := url.Values{}
		for {
			part, err := reader.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, err
			}
			data, err := io.ReadAll(part)
			if err != nil {
				return nil, err
			}
			values.Set(part.FormName(), string(data))
		}
		return values, nil
	default:
		return nil, fmt.Errorf("unsupported content type: %s", mediaType)
	}
}
