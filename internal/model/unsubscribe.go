// internal/model/unsubscribe.go
package model

import "time"

// Unsubscribe maps an email address to its opt-out token. Existence of a
// row blocks future sends to that address.
type Unsubscribe struct {
	Email     string    `db:"email" json:"email"`
	LeadID    string    `db:"lead_id" json:"lead_id,omitempty"`
	Token     string    `db:"token" json:"token"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
