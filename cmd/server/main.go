// cmd/server/main.go
package main

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/coldpitch/outreach-backend/internal/config"
	"github.com/coldpitch/outreach-backend/internal/controller"
	"github.com/coldpitch/outreach-backend/internal/db"
	"github.com/coldpitch/outreach-backend/internal/provider"
	"github.com/coldpitch/outreach-backend/internal/queue"
	"github.com/coldpitch/outreach-backend/internal/repository"
	"github.com/coldpitch/outreach-backend/internal/service"
)

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
	eventRepo := &repository.EventRepository{DB: database}
	unsubscribeRepo := &repository.UnsubscribeRepository{DB: database}

	emailProvider, err := provider.New(cfg)
	if err != nil {
		log.Fatal(err)
	}

	var wake queue.Publisher = queue.NoopPublisher{}
	if cfg.AMQPURL != "" {
		broker, err := queue.Connect(cfg.AMQPURL)
		if err != nil {
			log.Warn("broker unavailable, worker relies on polling: ", err)
		} else {
			wake = broker
			defer broker.Close()
		}
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

	reconciler := &service.Reconciler{
		Messages:     messageRepo,
		Leads:        leadRepo,
		Events:       eventRepo,
		Unsubscribes: unsubscribeRepo,
	}

	campaignService := &service.CampaignService{
		Campaigns: campaignRepo,
		Leads:     leadRepo,
		Messages:  messageRepo,
		Queue:     queueRepo,
		Wake:      wake,
		Config:    cfg.Worker,
	}

	campaignController := &controller.CampaignController{CampaignService: campaignService}
	workerController := &controller.WorkerController{Worker: worker, CronSecret: cfg.CronSecret}
	webhookController := &controller.WebhookController{Provider: emailProvider, Reconciler: reconciler}
	unsubscribeController := &controller.UnsubscribeController{
		Unsubscribes: unsubscribeRepo,
		Leads:        leadRepo,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Get("/campaigns", campaignController.ListCampaigns)
	r.Get("/campaigns/{id}", campaignController.GetCampaignDetails)
	r.Post("/campaigns/{id}/start", campaignController.StartCampaign)
	r.Post("/campaigns/{id}/stop", campaignController.StopCampaign)

	r.Post("/worker/send", workerController.RunBatch)

	r.Post("/webhooks/email/events", webhookController.HandleEvents)
	r.Post("/webhooks/email/inbound", webhookController.HandleInbound)

	r.Post("/unsubscribe", unsubscribeController.Unsubscribe)

	r.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.WithField("addr", addr).Info("server listening")
	log.Fatal(http.ListenAndServe(addr, r))
}
