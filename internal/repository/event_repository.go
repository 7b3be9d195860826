// internal/repository/event_repository.go
package repository

import (
	"database/sql"
	"time"

	"github.com/coldpitch/outreach-backend/internal/model"
)

type EventRepositoryInterface interface {
	Create(e *model.Event) error
}

type EventRepository struct {
	DB *sql.DB
}

func (r *EventRepository) Create(e *model.Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	data := e.Data
	if len(data) == 0 {
		data = []byte("{}")
	}
	query := `
        INSERT INTO events (id, campaign_id, lead_id, email_message_id, type, data, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	_, err := r.DB.Exec(query, e.ID, e.CampaignID, e.LeadID, e.EmailMessageID, e.Type, []byte(data), e.CreatedAt)
	return err
}

var _ EventRepositoryInterface = (*EventRepository)(nil)
