// cmd/worker/main.go
package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/coldpitch/outreach-backend/internal/config"
	"github.com/coldpitch/outreach-backend/internal/db"
	"github.com/coldpitch/outreach-backend/internal/provider"
	"github.com/coldpitch/outreach-backend/internal/queue"
	"github.com/coldpitch/outreach-backend/internal/repository"
	"github.com/coldpitch/outreach-backend/internal/service"
)

// The worker binary runs batches on a poll interval and, when a broker is
// configured, also reacts to wake messages published at campaign start so
// the first sends do not wait out a full interval.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, relying on OS environment variables")
	}
	log.SetFormatter(&log.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database: ", err)
	}
	defer database.Close()

	campaignRepo := &repository.CampaignRepository{DB: database}
	leadRepo := &repository.LeadRepository{DB: database}
	queueRepo := &repository.QueueRepository{DB: database}
	messageRepo := &repository.MessageRepository{DB: database}
	unsubscribeRepo := &repository.UnsubscribeRepository{DB: database}

	emailProvider, err := provider.New(cfg)
	if err != nil {
		log.Fatal(err)
	}

	composer := &service.Composer{
		BaseURL:        cfg.AppBaseURL,
		CompanyName:    cfg.CompanyName,
		CompanyAddress: cfg.CompanyAddress,
	}
	if cfg.OpenAIAPIKey != "" {
		composer.AI = service.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, cfg.OpenAITimeout)
	}

	worker := &service.Worker{
		Queue:        queueRepo,
		Messages:     messageRepo,
		Leads:        leadRepo,
		Campaigns:    campaignRepo,
		Unsubscribes: unsubscribeRepo,
		Provider:     emailProvider,
		Composer:     composer,
		Limiter:      service.NewRateLimiter(messageRepo),
		Config:       cfg.Worker,
	}

	wakes := make(chan struct{}, 1)
	if cfg.AMQPURL != "" {
		broker, err := queue.Connect(cfg.AMQPURL)
		if err != nil {
			log.Warn("broker unavailable, falling back to polling only: ", err)
		} else {
			defer broker.Close()
			deliveries, err := broker.Consume()
			if err != nil {
				log.Fatal("failed to consume wake queue: ", err)
			}
			go func() {
				for d := range deliveries {
					d.Ack(false)
					select {
					case wakes <- struct{}{}:
					default:
						// a batch is already due, coalesce
					}
				}
			}()
		}
	}

	log.WithField("poll_interval", cfg.Worker.PollInterval.String()).Info("worker running")

	ticker := time.NewTicker(cfg.Worker.PollInterval)
	defer ticker.Stop()

	runOnce(worker)
	for {
		select {
		case <-ticker.C:
			runOnce(worker)
		case <-wakes:
			runOnce(worker)
		}
	}
}

func runOnce(worker *service.Worker) {
	summary, err := worker.RunBatch(context.Background())
	if err != nil {
		log.WithError(err).Error("batch failed")
		return
	}
	if summary.Processed > 0 {
		log.WithFields(log.Fields{
			"request_id": summary.RequestID,
			"processed":  summary.Processed,
			"sent":       summary.Sent,
			"failed":     summary.Failed,
			"skipped":    summary.Skipped,
		}).Info("batch complete")
	}
}
