// internal/model/queue_item.go
package model

import "time"

type QueueStatus string

const (
	QueuePending   QueueStatus = "PENDING"
	QueueSending   QueueStatus = "SENDING"
	QueueSent      QueueStatus = "SENT"
	QueueFailed    QueueStatus = "FAILED"
	QueueCancelled QueueStatus = "CANCELLED"
)

// QueueItem is one scheduled send attempt linking a campaign and a lead.
// Rows are never deleted; terminal rows remain as an audit trail.
type QueueItem struct {
	ID             string      `db:"id" json:"id"`
	CampaignID     string      `db:"campaign_id" json:"campaign_id"`
	LeadID         string      `db:"lead_id" json:"lead_id"`
	Status         QueueStatus `db:"status" json:"status"`
	ScheduledAt    time.Time   `db:"scheduled_at" json:"scheduled_at"`
	Attempts       int         `db:"attempts" json:"attempts"`
	MaxAttempts    int         `db:"max_attempts" json:"max_attempts"`
	NextAttemptAt  time.Time   `db:"next_attempt_at" json:"next_attempt_at"`
	LastError      string      `db:"last_error" json:"last_error,omitempty"`
	LockedAt       *time.Time  `db:"locked_at" json:"locked_at,omitempty"`
	LockOwner      *string     `db:"lock_owner" json:"lock_owner,omitempty"`
	EmailMessageID *string     `db:"email_message_id" json:"email_message_id,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}
