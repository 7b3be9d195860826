// internal/service/campaign_service.go
package service

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/coldpitch/outreach-backend/internal/config"
	"github.com/coldpitch/outreach-backend/internal/model"
	"github.com/coldpitch/outreach-backend/internal/queue"
	"github.com/coldpitch/outreach-backend/internal/repository"
)

// CampaignStats is the per-status queue breakdown returned with campaign
// details.
type CampaignStats struct {
	Pending   int `json:"pending"`
	Sending   int `json:"sending"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
	Total     int `json:"total"`
}

type CampaignDetails struct {
	Campaign *model.Campaign `json:"campaign"`
	Stats    CampaignStats   `json:"stats"`
}

type StartResult struct {
	CampaignID string `json:"campaign_id"`
	Enqueued   int    `json:"enqueued"`
	Skipped    int    `json:"skipped"`
}

// CampaignService owns campaign lifecycle: creation, listing, starting a
// campaign (fan-out into the send queue) and stopping it.
type CampaignService struct {
	Campaigns repository.CampaignRepositoryInterface
	Leads     repository.LeadRepositoryInterface
	Messages  repository.MessageRepositoryInterface
	Queue     repository.QueueRepositoryInterface
	Wake      queue.Publisher
	Config    config.Worker
	Now       func() time.Time
	Rand      *rand.Rand
}

func (s *CampaignService) CreateCampaign(c *model.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	now := s.now()
	c.CreatedAt = now
	c.UpdatedAt = &now
	return s.Campaigns.Create(c)
}

func (s *CampaignService) ListCampaigns(offset, limit int, status string) ([]*model.Campaign, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.Campaigns.ListCampaigns(offset, limit, status)
}

func (s *CampaignService) GetCampaignDetails(id string) (*CampaignDetails, error) {
	campaign, err := s.Campaigns.GetByID(id)
	if err != nil {
		return nil, err
	}
	counts, err := s.Queue.CountByStatus(id)
	if err != nil {
		return nil, fmt.Errorf("count queue items: %w", err)
	}
	stats := CampaignStats{
		Pending:   counts[string(model.QueuePending)],
		Sending:   counts[string(model.QueueSending)],
		Sent:      counts[string(model.QueueSent)],
		Failed:    counts[string(model.QueueFailed)],
		Cancelled: counts[string(model.QueueCancelled)],
	}
	stats.Total = stats.Pending + stats.Sending + stats.Sent + stats.Failed + stats.Cancelled
	return &CampaignDetails{Campaign: campaign, Stats: stats}, nil
}

// StartCampaign fans out one queue row per eligible lead that has not
// already been contacted by this campaign. Rows are scheduled with a
// growing random delay so the batch does not hit the provider as a burst.
func (s *CampaignService) StartCampaign(id string) (*StartResult, error) {
	campaign, err := s.Campaigns.GetByID(id)
	if err != nil {
		return nil, err
	}
	if campaign.Status == model.CampaignRunning {
		return nil, fmt.Errorf("campaign %s is already running", id)
	}

	leads, err := s.Leads.ListEligible()
	if err != nil {
		return nil, fmt.Errorf("list eligible leads: %w", err)
	}
	sentIDs, err := s.Messages.ListSentLeadIDs(id)
	if err != nil {
		return nil, fmt.Errorf("list contacted leads: %w", err)
	}
	contacted := make(map[string]bool, len(sentIDs))
	for _, leadID := range sentIDs {
		contacted[leadID] = true
	}

	now := s.now()
	items := make([]*model.QueueItem, 0, len(leads))
	offset := time.Duration(0)
	skipped := 0
	for _, lead := range leads {
		if contacted[lead.ID] {
			skipped++
			continue
		}
		offset += s.jitter(campaign)
		scheduledAt := now.Add(offset)
		items = append(items, &model.QueueItem{
			ID:            uuid.NewString(),
			CampaignID:    id,
			LeadID:        lead.ID,
			Status:        model.QueuePending,
			ScheduledAt:   scheduledAt,
			MaxAttempts:   s.Config.MaxAttempts,
			NextAttemptAt: scheduledAt,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}

	if len(items) > 0 {
		if err := s.Queue.BulkCreate(items); err != nil {
			return nil, fmt.Errorf("enqueue sends: %w", err)
		}
	}
	if err := s.Campaigns.UpdateStatus(id, model.CampaignRunning); err != nil {
		return nil, err
	}

	if err := s.Wake.PublishWake(id); err != nil {
		log.WithError(err).WithField("campaign_id", id).Warn("failed to publish worker wake")
	}

	log.WithFields(log.Fields{
		"campaign_id": id,
		"enqueued":    len(items),
		"skipped":     skipped,
	}).Info("campaign started")

	return &StartResult{CampaignID: id, Enqueued: len(items), Skipped: skipped}, nil
}

// StopCampaign marks the campaign STOPPED and cancels every queue row that
// has not been claimed. Items already SENDING finish their in-flight
// attempt.
func (s *CampaignService) StopCampaign(id string) (int64, error) {
	if _, err := s.Campaigns.GetByID(id); err != nil {
		return 0, err
	}
	if err := s.Campaigns.UpdateStatus(id, model.CampaignStopped); err != nil {
		return 0, err
	}
	cancelled, err := s.Queue.CancelPending(id)
	if err != nil {
		return 0, fmt.Errorf("cancel pending items: %w", err)
	}
	log.WithFields(log.Fields{
		"campaign_id": id,
		"cancelled":   cancelled,
	}).Info("campaign stopped")
	return cancelled, nil
}

// jitter returns a random per-lead spacing within the campaign's
// configured delay window, defaulting to 30-90 seconds.
func (s *CampaignService) jitter(campaign *model.Campaign) time.Duration {
	min, max := campaign.RandomDelayMin, campaign.RandomDelayMax
	if min <= 0 {
		min = 30
	}
	if max <= min {
		max = min + 60
	}
	span := max - min
	n := min + s.intn(span+1)
	return time.Duration(n) * time.Second
}

func (s *CampaignService) intn(n int) int {
	if n <= 0 {
		return 0
	}
	if s.Rand != nil {
		return s.Rand.Intn(n)
	}
	return rand.Intn(n)
}

func (s *CampaignService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
