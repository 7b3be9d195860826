// internal/repository/message_repository.go
package repository

import (
	"database/sql"
	"time"

	"github.com/coldpitch/outreach-backend/internal/model"
)

type MessageRepositoryInterface interface {
	Create(m *model.EmailMessage) error
	GetByID(id string) (*model.EmailMessage, error)
	CountSentSince(campaignID string, since time.Time) (int, error)
	FindForEvent(messageID, email string) (*model.EmailMessage, error)
	FindByReference(ref string) (*model.EmailMessage, error)
	MarkDelivered(id string, at time.Time) error
	MarkBounced(id string) error
	ListSentLeadIDs(campaignID string) ([]string, error)
}

type MessageRepository struct {
	DB *sql.DB
}

const messageColumns = `id, campaign_id, lead_id, direction, message_id, provider_id, thread_key,
          in_reply_to, refs, subject, html_body, text_body, from_email, from_name,
          to_email, to_name, status, sent_at, delivered_at, error_message, created_at`

func (r *MessageRepository) Create(m *model.EmailMessage) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	query := `
        INSERT INTO email_messages
        (id, campaign_id, lead_id, direction, message_id, provider_id, thread_key,
         in_reply_to, refs, subject, html_body, text_body, from_email, from_name,
         to_email, to_name, status, sent_at, delivered_at, error_message, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
    `
	_, err := r.DB.Exec(query,
		m.ID, m.CampaignID, m.LeadID, m.Direction, m.MessageID, m.ProviderID,
		m.ThreadKey, m.InReplyTo, m.References, m.Subject, m.HTMLBody, m.TextBody,
		m.FromEmail, m.FromName, m.ToEmail, m.ToName, m.Status,
		m.SentAt, m.DeliveredAt, m.ErrorMessage, m.CreatedAt,
	)
	return err
}

func (r *MessageRepository) GetByID(id string) (*model.EmailMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM email_messages WHERE id=$1`
	return r.queryOne(query, id)
}

// CountSentSince feeds the rate limiter: outbound messages accepted or
// delivered within the trailing window, per campaign.
func (r *MessageRepository) CountSentSince(campaignID string, since time.Time) (int, error) {
	query := `
        SELECT COUNT(*)
        FROM email_messages
        WHERE campaign_id=$1
          AND direction='OUTBOUND'
          AND status IN ('SENT', 'DELIVERED')
          AND sent_at >= $2
    `
	var count int
	err := r.DB.QueryRow(query, campaignID, since).Scan(&count)
	return count, err
}

// FindForEvent matches a webhook event to a message by provider message id
// or, failing that, by outbound recipient address. An exact message_id match
// always wins over an address match.
func (r *MessageRepository) FindForEvent(messageID, email string) (*model.EmailMessage, error) {
	if messageID != "" {
		query := `
        SELECT ` + messageColumns + `
        FROM email_messages
        WHERE message_id=$1
        ORDER BY created_at DESC
        LIMIT 1
    `
		m, err := r.queryOne(query, messageID)
		if err != nil || m != nil {
			return m, err
		}
	}
	if email == "" {
		return nil, nil
	}
	query := `
        SELECT ` + messageColumns + `
        FROM email_messages
        WHERE to_email=$1 AND direction='OUTBOUND'
        ORDER BY created_at DESC
        LIMIT 1
    `
	return r.queryOne(query, email)
}

// FindByReference resolves a reply thread: the referenced value may be
// either our message_id or the provider's id.
func (r *MessageRepository) FindByReference(ref string) (*model.EmailMessage, error) {
	query := `
        SELECT ` + messageColumns + `
        FROM email_messages
        WHERE message_id=$1 OR provider_id=$1
        ORDER BY created_at DESC
        LIMIT 1
    `
	return r.queryOne(query, ref)
}

func (r *MessageRepository) MarkDelivered(id string, at time.Time) error {
	query := `UPDATE email_messages SET status='DELIVERED', delivered_at=$2 WHERE id=$1`
	_, err := r.DB.Exec(query, id, at)
	return err
}

func (r *MessageRepository) MarkBounced(id string) error {
	query := `UPDATE email_messages SET status='BOUNCED' WHERE id=$1`
	_, err := r.DB.Exec(query, id)
	return err
}

// ListSentLeadIDs returns leads that already received this campaign, used
// to exclude them when a campaign is (re)started.
func (r *MessageRepository) ListSentLeadIDs(campaignID string) ([]string, error) {
	query := `
        SELECT DISTINCT lead_id
        FROM email_messages
        WHERE campaign_id=$1 AND direction='OUTBOUND' AND status IN ('SENT', 'DELIVERED')
    `
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *MessageRepository) queryOne(query string, args ...interface{}) (*model.EmailMessage, error) {
	var m model.EmailMessage
	err := r.DB.QueryRow(query, args...).Scan(
		&m.ID, &m.CampaignID, &m.LeadID, &m.Direction, &m.MessageID, &m.ProviderID,
		&m.ThreadKey, &m.InReplyTo, &m.References, &m.Subject, &m.HTMLBody, &m.TextBody,
		&m.FromEmail, &m.FromName, &m.ToEmail, &m.ToName, &m.Status,
		&m.SentAt, &m.DeliveredAt, &m.ErrorMessage, &m.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

var _ MessageRepositoryInterface = (*MessageRepository)(nil)
