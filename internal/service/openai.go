// internal/service/openai.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/coldpitch/outreach-backend/internal/model"
)

type GeneratedEmail struct {
	Subject            string `json:"subject"`
	HTML               string `json:"html"`
	Text               string `json:"text"`
	FollowUpSuggestion string `json:"followUpSuggestion,omitempty"`
}

// AIClient generates outreach email content. threadContext carries the
// prior messages when generating a reply, empty for cold outreach.
type AIClient interface {
	GenerateEmail(ctx context.Context, campaign *model.Campaign, lead *model.Lead, threadContext string) (*GeneratedEmail, error)
}

// chatCompleter lets tests substitute the OpenAI client.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient asks a chat completion endpoint for JSON email content with
// a bounded timeout. Callers treat any error as a signal to fall back to
// template rendering.
type OpenAIClient struct {
	client chatCompleter
	model  string
}

func NewOpenAIClient(apiKey, model, baseURL string, timeout time.Duration) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (c *OpenAIClient) GenerateEmail(ctx context.Context, campaign *model.Campaign, lead *model.Lead, threadContext string) (*GeneratedEmail, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(campaign)},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(campaign, lead, threadContext)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion request: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("chat completion returned no content")
	}

	var generated GeneratedEmail
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &generated); err != nil {
		return nil, fmt.Errorf("parse generated email: %w", err)
	}
	if generated.Subject == "" {
		return nil, fmt.Errorf("generated email has no subject")
	}
	return &generated, nil
}

func systemPrompt(campaign *model.Campaign) string {
	tone := campaign.AITone
	if tone == "" {
		tone = "professional"
	}

	var b strings.Builder
	b.WriteString("You write professional business outreach emails. Rules:\n")
	b.WriteString("- Never invent facts that are not present in the lead information\n")
	b.WriteString("- Avoid exaggerated claims\n")
	b.WriteString("- Keep the message concise and polite\n")
	b.WriteString("- Tone: " + tone)
	if len(campaign.AIProhibitedWords) > 0 {
		b.WriteString("\n- Never use these words: " + strings.Join(campaign.AIProhibitedWords, ", "))
	}
	return b.String()
}

func userPrompt(campaign *model.Campaign, lead *model.Lead, threadContext string) string {
	var b strings.Builder
	if threadContext != "" {
		b.WriteString("Write a reply to the following email thread.\n\n")
		b.WriteString("Previous messages:\n")
		b.WriteString(threadContext)
		b.WriteString("\n\n")
	} else {
		b.WriteString("Write an outreach email subject and body based on the information below.\n\n")
	}

	b.WriteString("Lead:\n")
	b.WriteString(fmt.Sprintf("- Company: %s\n", orUnknown(lead.CompanyName)))
	b.WriteString(fmt.Sprintf("- Contact: %s\n", lead.ContactName))
	b.WriteString(fmt.Sprintf("- Industry: %s\n", orUnknown(lead.Industry)))
	b.WriteString(fmt.Sprintf("- Position: %s\n", lead.Position))
	if threadContext == "" {
		b.WriteString(fmt.Sprintf("- Website: %s\n", lead.WebsiteURL))
	}

	b.WriteString("\nCampaign proposal:\n")
	b.WriteString(campaign.BodyTemplate)
	if threadContext == "" {
		b.WriteString("\n\nSubject template for reference:\n")
		b.WriteString(campaign.SubjectTemplate)
	}

	b.WriteString("\n\nRespond in JSON: {\"subject\": ..., \"html\": ..., \"text\": ..., \"followUpSuggestion\": ...}")
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

var _ AIClient = (*OpenAIClient)(nil)
