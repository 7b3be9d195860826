// internal/repository/lead_repository.go
package repository

import (
	"database/sql"

	"github.com/coldpitch/outreach-backend/internal/model"
)

type LeadRepositoryInterface interface {
	GetByID(id string) (*model.Lead, error)
	GetByEmail(email string) (*model.Lead, error)
	ListEligible() ([]*model.Lead, error)
	UpdateStatus(id string, status model.LeadStatus) error
}

type LeadRepository struct {
	DB *sql.DB
}

const leadColumns = `id, email, company_name, contact_name, position, industry, website_url, status, created_at, updated_at`

func (r *LeadRepository) GetByID(id string) (*model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id=$1`
	return r.queryOne(query, id)
}

func (r *LeadRepository) GetByEmail(email string) (*model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE email=$1`
	return r.queryOne(query, email)
}

// ListEligible excludes leads that must never be queued.
func (r *LeadRepository) ListEligible() ([]*model.Lead, error) {
	query := `
        SELECT ` + leadColumns + `
        FROM leads
        WHERE status NOT IN ('UNSUBSCRIBED', 'DO_NOT_CONTACT')
        ORDER BY created_at ASC
    `
	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := []*model.Lead{}
	for rows.Next() {
		var l model.Lead
		if err := rows.Scan(
			&l.ID, &l.Email, &l.CompanyName, &l.ContactName, &l.Position,
			&l.Industry, &l.WebsiteURL, &l.Status, &l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, err
		}
		leads = append(leads, &l)
	}
	return leads, rows.Err()
}

func (r *LeadRepository) UpdateStatus(id string, status model.LeadStatus) error {
	query := `UPDATE leads SET status=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, status, id)
	return err
}

func (r *LeadRepository) queryOne(query string, arg interface{}) (*model.Lead, error) {
	var l model.Lead
	err := r.DB.QueryRow(query, arg).Scan(
		&l.ID, &l.Email, &l.CompanyName, &l.ContactName, &l.Position,
		&l.Industry, &l.WebsiteURL, &l.Status, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

var _ LeadRepositoryInterface = (*LeadRepository)(nil)
