// internal/errors/errors.go
package appErrors

import "fmt"

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID string
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign %s not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id string) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrLeadNotFound reports an unknown recipient address.
type ErrLeadNotFound struct {
	Email string
}

func (e *ErrLeadNotFound) Error() string {
	return fmt.Sprintf("lead with email %s not found", e.Email)
}

func NewLeadNotFound(email string) error {
	return &ErrLeadNotFound{Email: email}
}
