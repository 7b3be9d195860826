// internal/model/campaign.go
package model

import (
	"time"

	"github.com/lib/pq"
)

type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "DRAFT"
	CampaignRunning   CampaignStatus = "RUNNING"
	CampaignPaused    CampaignStatus = "PAUSED"
	CampaignStopped   CampaignStatus = "STOPPED"
	CampaignCompleted CampaignStatus = "COMPLETED"
)

type Campaign struct {
	ID                string         `db:"id" json:"id"`
	Name              string         `db:"name" json:"name"`
	Status            CampaignStatus `db:"status" json:"status"`
	SubjectTemplate   string         `db:"subject_template" json:"subject_template"`
	BodyTemplate      string         `db:"body_template" json:"body_template"`
	Signature         string         `db:"signature" json:"signature,omitempty"`
	UnsubscribeText   string         `db:"unsubscribe_text" json:"unsubscribe_text,omitempty"`
	FromEmail         string         `db:"from_email" json:"from_email"`
	FromName          string         `db:"from_name" json:"from_name,omitempty"`
	RateLimitPerMin   int            `db:"rate_limit_per_min" json:"rate_limit_per_min"`
	RateLimitPerDay   int            `db:"rate_limit_per_day" json:"rate_limit_per_day"`
	RandomDelayMin    int            `db:"random_delay_min" json:"random_delay_min"` // seconds
	RandomDelayMax    int            `db:"random_delay_max" json:"random_delay_max"` // seconds
	UseAI             bool           `db:"use_ai" json:"use_ai"`
	AITone            string         `db:"ai_tone" json:"ai_tone,omitempty"`
	AIProhibitedWords pq.StringArray `db:"ai_prohibited_words" json:"ai_prohibited_words,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}
