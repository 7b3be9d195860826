// internal/service/worker.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/coldpitch/outreach-backend/internal/config"
	"github.com/coldpitch/outreach-backend/internal/metrics"
	"github.com/coldpitch/outreach-backend/internal/model"
	"github.com/coldpitch/outreach-backend/internal/provider"
	"github.com/coldpitch/outreach-backend/internal/repository"
)

// Worker runs one bounded pass over the send queue per invocation. It is
// stateless and cron-triggered; overlapping invocations coordinate solely
// through the conditional claim in the queue repository, so it is safe to
// run from multiple processes.
type Worker struct {
	Queue        repository.QueueRepositoryInterface
	Messages     repository.MessageRepositoryInterface
	Leads        repository.LeadRepositoryInterface
	Campaigns    repository.CampaignRepositoryInterface
	Unsubscribes repository.UnsubscribeRepositoryInterface
	Provider     provider.EmailProvider
	Composer     *Composer
	Limiter      *RateLimiter
	Config       config.Worker
	Now          func() time.Time
}

type ItemResult struct {
	ID     string `json:"id"`
	To     string `json:"to"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type BatchSummary struct {
	RequestID  string       `json:"requestId"`
	Processed  int          `json:"processed"`
	Sent       int          `json:"sent"`
	Failed     int          `json:"failed"`
	Skipped    int          `json:"skipped"`
	DurationMs int64        `json:"durationMs"`
	Items      []ItemResult `json:"items"`
}

// RunBatch claims up to BatchSize eligible items and processes them
// sequentially. Items are processed one at a time on purpose: the rate
// limiter reads historical counts, and parallel sends would make those
// reads meaningless within a batch.
func (w *Worker) RunBatch(ctx context.Context) (*BatchSummary, error) {
	start := time.Now()
	now := w.now()
	requestID := uuid.NewString()
	lockExpiredBefore := now.Add(-w.Config.LockTTL())

	logger := log.WithField("request_id", requestID)

	candidates, err := w.Queue.ListCandidates(now, lockExpiredBefore, w.Config.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	claimed := make([]*model.QueueItem, 0, len(candidates))
	for _, item := range candidates {
		ok, err := w.Queue.Claim(item.ID, now, lockExpiredBefore, requestID)
		if err != nil {
			logger.WithError(err).WithField("item_id", item.ID).Error("claim failed")
			continue
		}
		if !ok {
			// Another invocation holds it. Leave it for the next pass.
			continue
		}
		claimed = append(claimed, item)
	}

	summary := &BatchSummary{
		RequestID: requestID,
		Processed: len(claimed),
		Items:     []ItemResult{},
	}

	for _, item := range claimed {
		result := w.processItem(ctx, logger, item, now)
		summary.Items = append(summary.Items, result)
		switch result.Status {
		case string(model.QueueSent):
			summary.Sent++
		case string(model.QueueFailed), string(model.QueuePending):
			summary.Failed++
		case "SKIPPED":
			summary.Skipped++
		}
	}

	summary.DurationMs = time.Since(start).Milliseconds()
	metrics.BatchRuns.Inc()

	logger.WithFields(log.Fields{
		"processed":   summary.Processed,
		"sent":        summary.Sent,
		"failed":      summary.Failed,
		"skipped":     summary.Skipped,
		"duration_ms": summary.DurationMs,
	}).Info("batch pass complete")

	return summary, nil
}

// processItem drives one claimed item to its next state. Failures are
// contained here so one bad item never aborts the rest of the batch.
func (w *Worker) processItem(ctx context.Context, logger *log.Entry, item *model.QueueItem, now time.Time) ItemResult {
	itemLog := logger.WithFields(log.Fields{
		"item_id":     item.ID,
		"campaign_id": item.CampaignID,
		"lead_id":     item.LeadID,
	})

	campaign, err := w.Campaigns.GetByID(item.CampaignID)
	if err != nil {
		return w.failItem(itemLog, item, nil, "", now, fmt.Errorf("load campaign: %w", err))
	}

	lead, err := w.Leads.GetByID(item.LeadID)
	if err != nil {
		return w.failItem(itemLog, item, campaign, "", now, fmt.Errorf("load lead: %w", err))
	}
	if lead == nil {
		return w.failItem(itemLog, item, campaign, "", now, fmt.Errorf("lead %s not found", item.LeadID))
	}

	allowed, err := w.Limiter.Allow(campaign)
	if err != nil {
		return w.failItem(itemLog, item, campaign, lead.Email, now, fmt.Errorf("rate limit check: %w", err))
	}
	if !allowed {
		// Pure skip: back to PENDING, attempts untouched, no penalty.
		if err := w.Queue.ReleaseSkipped(item.ID); err != nil {
			itemLog.WithError(err).Error("release skipped item")
		}
		metrics.ItemsSkipped.Inc()
		return ItemResult{ID: item.ID, To: lead.Email, Status: "SKIPPED"}
	}

	unsubscribed, err := w.Unsubscribes.GetByEmail(lead.Email)
	if err != nil {
		return w.failItem(itemLog, item, campaign, lead.Email, now, fmt.Errorf("unsubscribe check: %w", err))
	}
	if unsubscribed != nil {
		if err := w.Queue.Cancel(item.ID); err != nil {
			itemLog.WithError(err).Error("cancel unsubscribed item")
		}
		metrics.ItemsCancelled.Inc()
		itemLog.Info("recipient unsubscribed, item cancelled")
		return ItemResult{ID: item.ID, To: lead.Email, Status: string(model.QueueCancelled)}
	}

	token, err := w.Unsubscribes.EnsureToken(lead.Email, lead.ID, uuid.NewString())
	if err != nil {
		return w.failItem(itemLog, item, campaign, lead.Email, now, fmt.Errorf("ensure unsubscribe token: %w", err))
	}

	content := w.Composer.Compose(ctx, campaign, lead, token)

	result, err := w.Provider.SendEmail(ctx, provider.SendParams{
		FromEmail: campaign.FromEmail,
		FromName:  campaign.FromName,
		ToEmail:   lead.Email,
		ToName:    lead.ContactName,
		Subject:   content.Subject,
		HTML:      content.HTML,
		Text:      content.Text,
		CustomArgs: map[string]string{
			"campaignId": campaign.ID,
			"leadId":     lead.ID,
		},
	})
	if err != nil {
		return w.failItem(itemLog, item, campaign, lead.Email, now, err)
	}

	sentAt := w.now()
	message := &model.EmailMessage{
		ID:         uuid.NewString(),
		CampaignID: campaign.ID,
		LeadID:     lead.ID,
		Direction:  model.DirectionOutbound,
		MessageID:  result.MessageID,
		ProviderID: result.ProviderID,
		Subject:    content.Subject,
		HTMLBody:   content.HTML,
		TextBody:   content.Text,
		FromEmail:  campaign.FromEmail,
		FromName:   campaign.FromName,
		ToEmail:    lead.Email,
		ToName:     lead.ContactName,
		Status:     model.MessageSent,
		SentAt:     &sentAt,
		CreatedAt:  sentAt,
	}
	// The thread key starts as the message's own id so a later inbound
	// reply always has a key to inherit.
	message.ThreadKey = message.ID

	if err := w.Messages.Create(message); err != nil {
		// The mail went out but we could not record it. Keep the lock
		// state consistent and surface the error; the lock TTL bounds
		// how long the item stays stuck.
		return w.failItem(itemLog, item, campaign, lead.Email, now, fmt.Errorf("record sent message: %w", err))
	}

	if err := w.Queue.MarkSent(item.ID, message.ID); err != nil {
		itemLog.WithError(err).Error("mark item sent")
	}
	if err := w.Leads.UpdateStatus(lead.ID, model.LeadContacted); err != nil {
		itemLog.WithError(err).Error("update lead status")
	}

	metrics.EmailsSent.Inc()
	itemLog.WithField("message_id", result.MessageID).Info("email sent")
	return ItemResult{ID: item.ID, To: lead.Email, Status: string(model.QueueSent)}
}

// failItem applies the retry policy: reschedule with backoff while under
// the attempt ceiling, otherwise mark the item terminally failed and
// record an audit message.
func (w *Worker) failItem(itemLog *log.Entry, item *model.QueueItem, campaign *model.Campaign, toEmail string, now time.Time, cause error) ItemResult {
	attempts := item.Attempts + 1
	maxAttempts := item.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = w.Config.MaxAttempts
	}

	if attempts < maxAttempts {
		delay := w.Config.BackoffDelay(attempts)
		nextAttemptAt := now.Add(delay)
		if err := w.Queue.ReleaseForRetry(item.ID, attempts, nextAttemptAt, cause.Error()); err != nil {
			itemLog.WithError(err).Error("release item for retry")
		}
		itemLog.WithError(cause).WithFields(log.Fields{
			"attempts":        attempts,
			"next_attempt_at": nextAttemptAt,
		}).Warn("send failed, scheduled for retry")
		return ItemResult{ID: item.ID, To: toEmail, Status: string(model.QueuePending), Error: cause.Error()}
	}

	if err := w.Queue.MarkFailed(item.ID, attempts, cause.Error()); err != nil {
		itemLog.WithError(err).Error("mark item failed")
	}

	if campaign != nil {
		audit := &model.EmailMessage{
			ID:           uuid.NewString(),
			CampaignID:   item.CampaignID,
			LeadID:       item.LeadID,
			Direction:    model.DirectionOutbound,
			Subject:      campaign.SubjectTemplate,
			FromEmail:    campaign.FromEmail,
			FromName:     campaign.FromName,
			Status:       model.MessageFailed,
			ErrorMessage: cause.Error(),
			CreatedAt:    now,
		}
		audit.ToEmail = toEmail
		if toEmail == "" {
			if lead, err := w.Leads.GetByID(item.LeadID); err == nil && lead != nil {
				audit.ToEmail = lead.Email
				toEmail = lead.Email
			}
		}
		if err := w.Messages.Create(audit); err != nil {
			itemLog.WithError(err).Error("record failed message")
		}
	}

	metrics.EmailsFailed.Inc()
	itemLog.WithError(cause).WithField("attempts", attempts).Error("send failed permanently")
	return ItemResult{ID: item.ID, To: toEmail, Status: string(model.QueueFailed), Error: cause.Error()}
}

func (w *Worker) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}
