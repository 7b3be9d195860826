// internal/model/lead.go
package model

import "time"

type LeadStatus string

const (
	LeadNew          LeadStatus = "NEW"
	LeadContacted    LeadStatus = "CONTACTED"
	LeadReplied      LeadStatus = "REPLIED"
	LeadBounced      LeadStatus = "BOUNCED"
	LeadUnsubscribed LeadStatus = "UNSUBSCRIBED"
	LeadDoNotContact LeadStatus = "DO_NOT_CONTACT"
)

type Lead struct {
	ID          string     `db:"id" json:"id"`
	Email       string     `db:"email" json:"email"`
	CompanyName string     `db:"company_name" json:"company_name"`
	ContactName string     `db:"contact_name" json:"contact_name"`
	Position    string     `db:"position" json:"position"`
	Industry    string     `db:"industry" json:"industry"`
	WebsiteURL  string     `db:"website_url" json:"website_url"`
	Status      LeadStatus `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
