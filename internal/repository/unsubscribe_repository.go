// internal/repository/unsubscribe_repository.go
package repository

import (
	"database/sql"
	"time"

	"github.com/coldpitch/outreach-backend/internal/model"
)

type UnsubscribeRepositoryInterface interface {
	GetByEmail(email string) (*model.Unsubscribe, error)
	GetByToken(token string) (*model.Unsubscribe, error)
	EnsureToken(email, leadID, token string) (string, error)
}

type UnsubscribeRepository struct {
	DB *sql.DB
}

func (r *UnsubscribeRepository) GetByEmail(email string) (*model.Unsubscribe, error) {
	query := `SELECT email, lead_id, token, created_at FROM unsubscribes WHERE email=$1`
	return r.queryOne(query, email)
}

func (r *UnsubscribeRepository) GetByToken(token string) (*model.Unsubscribe, error) {
	query := `SELECT email, lead_id, token, created_at FROM unsubscribes WHERE token=$1`
	return r.queryOne(query, token)
}

// EnsureToken inserts a token mapping for the address if none exists and
// returns the token actually stored (the existing one wins on conflict).
func (r *UnsubscribeRepository) EnsureToken(email, leadID, token string) (string, error) {
	query := `
        INSERT INTO unsubscribes (email, lead_id, token, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (email) DO UPDATE SET email=EXCLUDED.email
        RETURNING token
    `
	var stored string
	err := r.DB.QueryRow(query, email, leadID, token, time.Now()).Scan(&stored)
	if err != nil {
		return "", err
	}
	return stored, nil
}

func (r *UnsubscribeRepository) queryOne(query string, arg interface{}) (*model.Unsubscribe, error) {
	var u model.Unsubscribe
	err := r.DB.QueryRow(query, arg).Scan(&u.Email, &u.LeadID, &u.Token, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

var _ UnsubscribeRepositoryInterface = (*UnsubscribeRepository)(nil)
