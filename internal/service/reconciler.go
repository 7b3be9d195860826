// internal/service/reconciler.go
package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	appErrors "github.com/coldpitch/outreach-backend/internal/errors"
	"github.com/coldpitch/outreach-backend/internal/metrics"
	"github.com/coldpitch/outreach-backend/internal/model"
	"github.com/coldpitch/outreach-backend/internal/provider"
	"github.com/coldpitch/outreach-backend/internal/repository"
)

// Reconciler applies provider webhook events and inbound replies to the
// message/lead/thread state. It runs asynchronously from the send path and
// is stateless per call.
type Reconciler struct {
	Messages     repository.MessageRepositoryInterface
	Leads        repository.LeadRepositoryInterface
	Events       repository.EventRepositoryInterface
	Unsubscribes repository.UnsubscribeRepositoryInterface
	Now          func() time.Time
}

// HandleEvents applies a batch of delivery events. Events that cannot be
// matched to a message are logged and skipped; one bad event never fails
// the batch. Returns the number of events applied.
func (r *Reconciler) HandleEvents(events []provider.WebhookEvent) int {
	applied := 0
	for _, ev := range events {
		if err := r.applyEvent(ev); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"type":       ev.Type,
				"message_id": ev.MessageID,
			}).Warn("skipping webhook event")
			continue
		}
		applied++
	}
	return applied
}

func (r *Reconciler) applyEvent(ev provider.WebhookEvent) error {
	message, err := r.Messages.FindForEvent(ev.MessageID, ev.Email)
	if err != nil {
		return fmt.Errorf("match event to message: %w", err)
	}
	if message == nil {
		return fmt.Errorf("no message for event %s (message_id=%s email=%s)", ev.Type, ev.MessageID, ev.Email)
	}

	event := &model.Event{
		ID:             uuid.NewString(),
		CampaignID:     message.CampaignID,
		LeadID:         message.LeadID,
		EmailMessageID: message.ID,
		Type:           model.EventType(strings.ToUpper(ev.Type)),
		Data:           ev.Data,
		CreatedAt:      ev.Timestamp,
	}
	if err := r.Events.Create(event); err != nil {
		return fmt.Errorf("record event: %w", err)
	}

	switch ev.Type {
	case provider.EventBounce:
		if err := r.Messages.MarkBounced(message.ID); err != nil {
			return err
		}
		if err := r.Leads.UpdateStatus(message.LeadID, model.LeadBounced); err != nil {
			return err
		}
	case provider.EventDelivered:
		if err := r.Messages.MarkDelivered(message.ID, ev.Timestamp); err != nil {
			return err
		}
	case provider.EventUnsubscribe:
		if _, err := r.Unsubscribes.EnsureToken(ev.Email, message.LeadID, uuid.NewString()); err != nil {
			return err
		}
		if err := r.Leads.UpdateStatus(message.LeadID, model.LeadUnsubscribed); err != nil {
			return err
		}
	case provider.EventReply:
		if err := r.Leads.UpdateStatus(message.LeadID, model.LeadReplied); err != nil {
			return err
		}
	}

	metrics.WebhookEvents.WithLabelValues(ev.Type).Inc()
	return nil
}

// HandleInbound records an inbound reply, threading it onto the outbound
// message named by In-Reply-To/References when one exists.
func (r *Reconciler) HandleInbound(inbound *provider.InboundEmail) (*model.EmailMessage, error) {
	lead, err := r.Leads.GetByEmail(inbound.To)
	if err != nil {
		return nil, fmt.Errorf("resolve lead: %w", err)
	}
	if lead == nil {
		return nil, appErrors.NewLeadNotFound(inbound.To)
	}

	threadKey := ""
	campaignID := ""
	if ref := firstReference(inbound); ref != "" {
		parent, err := r.Messages.FindByReference(ref)
		if err != nil {
			return nil, fmt.Errorf("resolve thread: %w", err)
		}
		if parent != nil {
			threadKey = parent.ThreadKey
			if threadKey == "" {
				threadKey = parent.ID
			}
			campaignID = parent.CampaignID
		}
	}
	if threadKey == "" {
		threadKey = newThreadKey()
	}

	now := r.now()
	message := &model.EmailMessage{
		ID:          uuid.NewString(),
		CampaignID:  campaignID,
		LeadID:      lead.ID,
		Direction:   model.DirectionInbound,
		MessageID:   inbound.MessageID,
		InReplyTo:   inbound.InReplyTo,
		References:  inbound.References,
		ThreadKey:   threadKey,
		Subject:     inbound.Subject,
		HTMLBody:    inbound.HTML,
		TextBody:    inbound.Text,
		FromEmail:   inbound.From,
		ToEmail:     inbound.To,
		Status:      model.MessageDelivered,
		DeliveredAt: &now,
		CreatedAt:   now,
	}
	if err := r.Messages.Create(message); err != nil {
		return nil, fmt.Errorf("record inbound message: %w", err)
	}

	event := &model.Event{
		ID:             uuid.NewString(),
		CampaignID:     campaignID,
		LeadID:         lead.ID,
		EmailMessageID: message.ID,
		Type:           model.EventReply,
		Data:           []byte(`{"inbound": true}`),
		CreatedAt:      now,
	}
	if err := r.Events.Create(event); err != nil {
		log.WithError(err).Warn("record reply event")
	}

	if err := r.Leads.UpdateStatus(lead.ID, model.LeadReplied); err != nil {
		return nil, fmt.Errorf("update lead status: %w", err)
	}

	metrics.WebhookEvents.WithLabelValues(provider.EventReply).Inc()
	return message, nil
}

// firstReference prefers In-Reply-To, falling back to the first entry of
// the References header.
func firstReference(inbound *provider.InboundEmail) string {
	if inbound.InReplyTo != "" {
		return inbound.InReplyTo
	}
	fields := strings.Fields(inbound.References)
	if len(fields) > 0 {
		return fields[0]
	}
	return ""
}

func newThreadKey() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(buf)
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
