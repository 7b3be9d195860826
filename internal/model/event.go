// internal/model/event.go
package model

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventOpen        EventType = "OPEN"
	EventClick       EventType = "CLICK"
	EventBounce      EventType = "BOUNCE"
	EventDelivered   EventType = "DELIVERED"
	EventUnsubscribe EventType = "UNSUBSCRIBE"
	EventReply       EventType = "REPLY"
	EventSpamReport  EventType = "SPAM_REPORT"
)

type Event struct {
	ID             string          `db:"id" json:"id"`
	CampaignID     string          `db:"campaign_id" json:"campaign_id"`
	LeadID         string          `db:"lead_id" json:"lead_id"`
	EmailMessageID string          `db:"email_message_id" json:"email_message_id,omitempty"`
	Type           EventType       `db:"type" json:"type"`
	Data           json.RawMessage `db:"data" json:"data,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}
