// internal/model/email_message.go
package model

import "time"

type Direction string

const (
	DirectionOutbound Direction = "OUTBOUND"
	DirectionInbound  Direction = "INBOUND"
)

type MessageStatus string

const (
	MessageSent      MessageStatus = "SENT"
	MessageDelivered MessageStatus = "DELIVERED"
	MessageBounced   MessageStatus = "BOUNCED"
	MessageFailed    MessageStatus = "FAILED"
)

// EmailMessage is a concrete inbound or outbound email. Immutable once
// created except for status/timestamps updated by reconciliation.
type EmailMessage struct {
	ID           string        `db:"id" json:"id"`
	CampaignID   string        `db:"campaign_id" json:"campaign_id"`
	LeadID       string        `db:"lead_id" json:"lead_id"`
	Direction    Direction     `db:"direction" json:"direction"`
	MessageID    string        `db:"message_id" json:"message_id,omitempty"`
	ProviderID   string        `db:"provider_id" json:"provider_id,omitempty"`
	ThreadKey    string        `db:"thread_key" json:"thread_key,omitempty"`
	InReplyTo    string        `db:"in_reply_to" json:"in_reply_to,omitempty"`
	References   string        `db:"references" json:"references,omitempty"`
	Subject      string        `db:"subject" json:"subject"`
	HTMLBody     string        `db:"html_body" json:"html_body,omitempty"`
	TextBody     string        `db:"text_body" json:"text_body,omitempty"`
	FromEmail    string        `db:"from_email" json:"from_email"`
	FromName     string        `db:"from_name" json:"from_name,omitempty"`
	ToEmail      string        `db:"to_email" json:"to_email"`
	ToName       string        `db:"to_name" json:"to_name,omitempty"`
	Status       MessageStatus `db:"status" json:"status"`
	SentAt       *time.Time    `db:"sent_at" json:"sent_at,omitempty"`
	DeliveredAt  *time.Time    `db:"delivered_at" json:"delivered_at,omitempty"`
	ErrorMessage string        `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
}
