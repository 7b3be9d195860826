// internal/service/composer.go
package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/coldpitch/outreach-backend/internal/model"
)

const maxSubjectLength = 100

// defaultProhibitedWords are stripped from AI output regardless of the
// campaign's own list.
var defaultProhibitedWords = []string{
	"guaranteed",
	"risk-free",
	"100% free",
	"act now",
	"no obligation",
	"winner",
	"once in a lifetime",
}

type RenderedEmail struct {
	Subject string
	HTML    string
	Text    string
}

// Composer produces the subject/html/text for a (campaign, lead) pair.
// Template mode is deterministic and never fails; AI mode degrades to
// template mode on any error, so generation can never block a send.
type Composer struct {
	AI             AIClient
	BaseURL        string
	CompanyName    string
	CompanyAddress string
}

// RenderTemplate substitutes the fixed placeholder set into a template.
func RenderTemplate(template string, lead *model.Lead) string {
	company := lead.CompanyName
	if company == "" {
		company = "your company"
	}

	result := template
	result = strings.ReplaceAll(result, "{{companyName}}", company)
	result = strings.ReplaceAll(result, "{{contactName}}", lead.ContactName)
	result = strings.ReplaceAll(result, "{{position}}", lead.Position)
	result = strings.ReplaceAll(result, "{{industry}}", lead.Industry)
	result = strings.ReplaceAll(result, "{{websiteUrl}}", lead.WebsiteURL)
	return result
}

// Compose renders the email for one queue item. unsubscribeToken is the
// per-lead token already stored for the recipient.
func (c *Composer) Compose(ctx context.Context, campaign *model.Campaign, lead *model.Lead, unsubscribeToken string) RenderedEmail {
	if campaign.UseAI && c.AI != nil {
		generated, err := c.AI.GenerateEmail(ctx, campaign, lead, "")
		if err == nil {
			return c.sanitizeGenerated(campaign, generated)
		}
		log.WithError(err).WithFields(log.Fields{
			"campaign_id": campaign.ID,
			"lead_id":     lead.ID,
		}).Warn("AI generation failed, falling back to template")
	}
	return c.buildTemplateContent(campaign, lead, unsubscribeToken)
}

func (c *Composer) sanitizeGenerated(campaign *model.Campaign, generated *GeneratedEmail) RenderedEmail {
	words := append([]string{}, defaultProhibitedWords...)
	words = append(words, campaign.AIProhibitedWords...)

	subject := filterProhibitedWords(generated.Subject, words)
	if runes := []rune(subject); len(runes) > maxSubjectLength {
		subject = string(runes[:maxSubjectLength])
	}

	return RenderedEmail{
		Subject: subject,
		HTML:    filterProhibitedWords(generated.HTML, words),
		Text:    filterProhibitedWords(generated.Text, words),
	}
}

func (c *Composer) buildTemplateContent(campaign *model.Campaign, lead *model.Lead, unsubscribeToken string) RenderedEmail {
	subject := RenderTemplate(campaign.SubjectTemplate, lead)
	body := RenderTemplate(campaign.BodyTemplate, lead)

	unsubscribeURL := fmt.Sprintf("%s/unsubscribe?token=%s", c.BaseURL, unsubscribeToken)
	unsubscribeText := campaign.UnsubscribeText
	if unsubscribeText == "" {
		unsubscribeText = "If you no longer wish to receive these emails, click the link below."
	}

	var html strings.Builder
	html.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"></head><body>`)
	html.WriteString(`<div style="max-width: 600px; margin: 0 auto; padding: 20px;">`)
	html.WriteString(strings.ReplaceAll(body, "\n", "<br>"))
	if campaign.Signature != "" {
		html.WriteString(`<div style="margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee;">`)
		html.WriteString(strings.ReplaceAll(campaign.Signature, "\n", "<br>"))
		html.WriteString(`</div>`)
	}
	html.WriteString(`<div style="margin-top: 40px; padding-top: 20px; border-top: 2px solid #eee; font-size: 12px; color: #666;">`)
	html.WriteString(fmt.Sprintf(`<p><strong>%s</strong></p>`, c.CompanyName))
	if c.CompanyAddress != "" {
		html.WriteString(fmt.Sprintf(`<p>%s</p>`, c.CompanyAddress))
	}
	html.WriteString(fmt.Sprintf(`<p>%s<br><a href="%s">Unsubscribe</a></p>`, unsubscribeText, unsubscribeURL))
	html.WriteString(`</div></div></body></html>`)

	var text strings.Builder
	text.WriteString(body)
	if campaign.Signature != "" {
		text.WriteString("\n\n")
		text.WriteString(campaign.Signature)
	}
	text.WriteString("\n\n---\n")
	text.WriteString(c.CompanyName)
	text.WriteString("\n")
	if c.CompanyAddress != "" {
		text.WriteString(c.CompanyAddress)
		text.WriteString("\n")
	}
	text.WriteString(unsubscribeText)
	text.WriteString("\n")
	text.WriteString(unsubscribeURL)

	return RenderedEmail{
		Subject: subject,
		HTML:    html.String(),
		Text:    text.String(),
	}
}

func filterProhibitedWords(s string, words []string) string {
	result := s
	for _, word := range words {
		if word == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(word))
		if err != nil {
			continue
		}
		result = re.ReplaceAllString(result, "")
	}
	return result
}
