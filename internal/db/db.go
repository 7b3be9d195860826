// internal/db/db.go
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

// Connect opens a Postgres connection and pings it with exponential
// backoff so the binaries survive a database that is still starting up.
func Connect(dsn string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 30 * time.Second

	err = backoff.Retry(func() error {
		if pingErr := conn.Ping(); pingErr != nil {
			log.WithError(pingErr).Warn("database not ready, retrying")
			return pingErr
		}
		return nil
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("connected to database")
	return conn, nil
}
