// internal/repository/queue_repository.go
package repository

import (
	"database/sql"
	"time"

	"github.com/coldpitch/outreach-backend/internal/model"
)

type QueueRepositoryInterface interface {
	BulkCreate(items []*model.QueueItem) error
	GetByID(id string) (*model.QueueItem, error)
	ListCandidates(now, lockExpiredBefore time.Time, limit int) ([]*model.QueueItem, error)
	Claim(id string, now, lockExpiredBefore time.Time, owner string) (bool, error)
	MarkSent(id, emailMessageID string) error
	ReleaseForRetry(id string, attempts int, nextAttemptAt time.Time, lastError string) error
	MarkFailed(id string, attempts int, lastError string) error
	Cancel(id string) error
	ReleaseSkipped(id string) error
	CancelPending(campaignID string) (int64, error)
	CountByStatus(campaignID string) (map[string]int, error)
}

type QueueRepository struct {
	DB *sql.DB
}

const queueColumns = `id, campaign_id, lead_id, status, scheduled_at, attempts, max_attempts,
          next_attempt_at, last_error, locked_at, lock_owner, email_message_id, created_at, updated_at`

func (r *QueueRepository) BulkCreate(items []*model.QueueItem) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}

	query := `
        INSERT INTO send_queue
        (id, campaign_id, lead_id, status, scheduled_at, attempts, max_attempts, next_attempt_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
    `
	for _, item := range items {
		if _, err := tx.Exec(query,
			item.ID, item.CampaignID, item.LeadID, item.Status,
			item.ScheduledAt, item.Attempts, item.MaxAttempts,
			item.NextAttemptAt, item.CreatedAt,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (r *QueueRepository) GetByID(id string) (*model.QueueItem, error) {
	query := `SELECT ` + queueColumns + ` FROM send_queue WHERE id=$1`
	item, err := scanQueueItem(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return item, nil
}

// ListCandidates returns eligible items oldest first: pending or retryable,
// due, under the attempt ceiling, and not held by a live lock. SENDING rows
// are included so an item stranded by a crashed worker becomes eligible
// again once its lock expires.
func (r *QueueRepository) ListCandidates(now, lockExpiredBefore time.Time, limit int) ([]*model.QueueItem, error) {
	query := `
        SELECT ` + queueColumns + `
        FROM send_queue
        WHERE status IN ('PENDING', 'FAILED', 'SENDING')
          AND scheduled_at <= $1
          AND next_attempt_at <= $1
          AND attempts < max_attempts
          AND (locked_at IS NULL OR locked_at < $2)
        ORDER BY scheduled_at ASC, created_at ASC
        LIMIT $3
    `
	rows, err := r.DB.Query(query, now, lockExpiredBefore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*model.QueueItem{}
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Claim is the only concurrency primitive over the queue: a single
// conditional UPDATE that succeeds for exactly one caller. A plain
// read-then-write must never replace this, since overlapping worker
// invocations may race for the same item.
func (r *QueueRepository) Claim(id string, now, lockExpiredBefore time.Time, owner string) (bool, error) {
	query := `
        UPDATE send_queue
        SET status='SENDING', locked_at=$2, lock_owner=$3, updated_at=$2
        WHERE id=$1
          AND status IN ('PENDING', 'FAILED', 'SENDING')
          AND (locked_at IS NULL OR locked_at < $4)
    `
	res, err := r.DB.Exec(query, id, now, owner, lockExpiredBefore)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *QueueRepository) MarkSent(id, emailMessageID string) error {
	query := `
        UPDATE send_queue
        SET status='SENT', email_message_id=$2, last_error='', locked_at=NULL, lock_owner=NULL, updated_at=NOW()
        WHERE id=$1 AND status='SENDING'
    `
	_, err := r.DB.Exec(query, id, emailMessageID)
	return err
}

// ReleaseForRetry returns a failed item to PENDING with its next attempt
// scheduled per the backoff schedule.
func (r *QueueRepository) ReleaseForRetry(id string, attempts int, nextAttemptAt time.Time, lastError string) error {
	query := `
        UPDATE send_queue
        SET status='PENDING', attempts=$2, next_attempt_at=$3, last_error=$4,
            locked_at=NULL, lock_owner=NULL, updated_at=NOW()
        WHERE id=$1 AND status='SENDING'
    `
	_, err := r.DB.Exec(query, id, attempts, nextAttemptAt, lastError)
	return err
}

// MarkFailed is terminal: the item is no longer eligible for pickup.
func (r *QueueRepository) MarkFailed(id string, attempts int, lastError string) error {
	query := `
        UPDATE send_queue
        SET status='FAILED', attempts=$2, last_error=$3, locked_at=NULL, lock_owner=NULL, updated_at=NOW()
        WHERE id=$1 AND status='SENDING'
    `
	_, err := r.DB.Exec(query, id, attempts, lastError)
	return err
}

func (r *QueueRepository) Cancel(id string) error {
	query := `
        UPDATE send_queue
        SET status='CANCELLED', locked_at=NULL, lock_owner=NULL, updated_at=NOW()
        WHERE id=$1 AND status='SENDING'
    `
	_, err := r.DB.Exec(query, id)
	return err
}

// ReleaseSkipped undoes a claim without touching attempts or
// next_attempt_at. Used when the rate limiter defers an item.
func (r *QueueRepository) ReleaseSkipped(id string) error {
	query := `
        UPDATE send_queue
        SET status='PENDING', locked_at=NULL, lock_owner=NULL, updated_at=NOW()
        WHERE id=$1 AND status='SENDING'
    `
	_, err := r.DB.Exec(query, id)
	return err
}

func (r *QueueRepository) CancelPending(campaignID string) (int64, error) {
	query := `
        UPDATE send_queue
        SET status='CANCELLED', updated_at=NOW()
        WHERE campaign_id=$1 AND status='PENDING'
    `
	res, err := r.DB.Exec(query, campaignID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *QueueRepository) CountByStatus(campaignID string) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM send_queue WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{
		"PENDING": 0, "SENDING": 0, "SENT": 0, "FAILED": 0, "CANCELLED": 0,
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQueueItem(row rowScanner) (*model.QueueItem, error) {
	var item model.QueueItem
	var lastError sql.NullString
	err := row.Scan(
		&item.ID, &item.CampaignID, &item.LeadID, &item.Status,
		&item.ScheduledAt, &item.Attempts, &item.MaxAttempts,
		&item.NextAttemptAt, &lastError, &item.LockedAt, &item.LockOwner,
		&item.EmailMessageID, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.LastError = lastError.String
	return &item, nil
}

var _ QueueRepositoryInterface = (*QueueRepository)(nil)
