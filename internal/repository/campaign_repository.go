// internal/repository/campaign_repository.go
package repository

import (
	"database/sql"
	"fmt"
	"time"

	appErrors "github.com/coldpitch/outreach-backend/internal/errors"
	"github.com/coldpitch/outreach-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(c *model.Campaign) error
	GetByID(id string) (*model.Campaign, error)
	ListCampaigns(offset, limit int, status string) ([]*model.Campaign, int, error)
	UpdateStatus(campaignID string, status model.CampaignStatus) error
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, name, status, subject_template, body_template, signature, unsubscribe_text,
          from_email, from_name, rate_limit_per_min, rate_limit_per_day,
          random_delay_min, random_delay_max, use_ai, ai_tone, ai_prohibited_words,
          created_at, updated_at`

func (r *CampaignRepository) Create(c *model.Campaign) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	query := `
        INSERT INTO campaigns
        (id, name, status, subject_template, body_template, signature, unsubscribe_text,
         from_email, from_name, rate_limit_per_min, rate_limit_per_day,
         random_delay_min, random_delay_max, use_ai, ai_tone, ai_prohibited_words, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
    `
	_, err := r.DB.Exec(query,
		c.ID, c.Name, c.Status, c.SubjectTemplate, c.BodyTemplate, c.Signature,
		c.UnsubscribeText, c.FromEmail, c.FromName, c.RateLimitPerMin, c.RateLimitPerDay,
		c.RandomDelayMin, c.RandomDelayMax, c.UseAI, c.AITone, c.AIProhibitedWords, c.CreatedAt,
	)
	return err
}

func (r *CampaignRepository) GetByID(id string) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	var c model.Campaign
	err := r.DB.QueryRow(query, id).Scan(
		&c.ID, &c.Name, &c.Status, &c.SubjectTemplate, &c.BodyTemplate, &c.Signature,
		&c.UnsubscribeText, &c.FromEmail, &c.FromName, &c.RateLimitPerMin, &c.RateLimitPerDay,
		&c.RandomDelayMin, &c.RandomDelayMax, &c.UseAI, &c.AITone, &c.AIProhibitedWords,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) ListCampaigns(offset, limit int, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c := &model.Campaign{}
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Status, &c.SubjectTemplate, &c.BodyTemplate, &c.Signature,
			&c.UnsubscribeText, &c.FromEmail, &c.FromName, &c.RateLimitPerMin, &c.RateLimitPerDay,
			&c.RandomDelayMin, &c.RandomDelayMax, &c.UseAI, &c.AITone, &c.AIProhibitedWords,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countQuery := `SELECT COUNT(*) FROM campaigns WHERE 1=1`
	countArgs := []interface{}{}
	if status != "" {
		countQuery += " AND status=$1"
		countArgs = append(countArgs, status)
	}

	var total int
	if err := r.DB.QueryRow(countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

func (r *CampaignRepository) UpdateStatus(campaignID string, status model.CampaignStatus) error {
	query := `UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3`
	_, err := r.DB.Exec(query, status, time.Now(), campaignID)
	return err
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
