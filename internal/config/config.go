// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Worker holds the tunables for one batch pass of the send worker.
type Worker struct {
	BatchSize      int           `envconfig:"WORKER_BATCH_SIZE" default:"50"`
	LockTTLSeconds int           `envconfig:"WORKER_LOCK_TTL_SECONDS" default:"540"`
	MaxAttempts    int           `envconfig:"WORKER_MAX_ATTEMPTS" default:"5"`
	BackoffMinutes []int         `envconfig:"WORKER_RETRY_BACKOFF_MINUTES" default:"5,15,60,360"`
	PollInterval   time.Duration `envconfig:"WORKER_POLL_INTERVAL" default:"60s"`
}

func (w Worker) LockTTL() time.Duration {
	return time.Duration(w.LockTTLSeconds) * time.Second
}

// BackoffDelay returns the retry delay for the given attempt count (1-based).
// The last schedule entry repeats beyond the schedule length.
func (w Worker) BackoffDelay(attempt int) time.Duration {
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(w.BackoffMinutes) {
		idx = len(w.BackoffMinutes) - 1
	}
	return time.Duration(w.BackoffMinutes[idx]) * time.Minute
}

type Config struct {
	Port        int    `envconfig:"PORT" default:"8080"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	AMQPURL     string `envconfig:"AMQP_URL" default:""`

	CronSecret string `envconfig:"CRON_SECRET"`

	AppBaseURL     string `envconfig:"APP_BASE_URL" default:"http://localhost:8080"`
	CompanyName    string `envconfig:"APP_COMPANY_NAME" default:"Your Company"`
	CompanyAddress string `envconfig:"APP_COMPANY_ADDRESS"`

	EmailProvider        string `envconfig:"EMAIL_PROVIDER" default:"mock"`
	SendGridAPIKey       string `envconfig:"SENDGRID_API_KEY"`
	WebhookSigningSecret string `envconfig:"WEBHOOK_SIGNING_SECRET"`
	AWSRegion            string `envconfig:"AWS_REGION" default:"us-east-1"`
	SESConfigurationSet  string `envconfig:"SES_CONFIGURATION_SET"`

	OpenAIAPIKey  string        `envconfig:"OPENAI_API_KEY"`
	OpenAIModel   string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAIBaseURL string        `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	OpenAITimeout time.Duration `envconfig:"OPENAI_TIMEOUT" default:"30s"`

	Worker Worker
}

// Load parses configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if len(cfg.Worker.BackoffMinutes) == 0 {
		cfg.Worker.BackoffMinutes = []int{5, 15, 60, 360}
	}
	for _, m := range cfg.Worker.BackoffMinutes {
		if m <= 0 {
			return nil, fmt.Errorf("WORKER_RETRY_BACKOFF_MINUTES must be positive, got %d", m)
		}
	}
	if cfg.Worker.BatchSize < 1 {
		return nil, fmt.Errorf("WORKER_BATCH_SIZE must be at least 1")
	}
	return &cfg, nil
}
