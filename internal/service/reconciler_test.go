// internal/service/reconciler_test.go
package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/coldpitch/outreach-backend/internal/errors"
	"github.com/coldpitch/outreach-backend/internal/model"
	"github.com/coldpitch/outreach-backend/internal/provider"
	"github.com/coldpitch/outreach-backend/internal/service"
)

type reconcilerFixture struct {
	messages     *fakeMessageRepo
	leads        *fakeLeadRepo
	events       *fakeEventRepo
	unsubscribes *fakeUnsubscribeRepo
	reconciler   *service.Reconciler
	now          time.Time
}

func newReconcilerFixture(leads ...*model.Lead) *reconcilerFixture {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	f := &reconcilerFixture{
		messages:     &fakeMessageRepo{},
		leads:        newFakeLeadRepo(leads...),
		events:       &fakeEventRepo{},
		unsubscribes: newFakeUnsubscribeRepo(),
		now:          now,
	}
	f.reconciler = &service.Reconciler{
		Messages:     f.messages,
		Leads:        f.leads,
		Events:       f.events,
		Unsubscribes: f.unsubscribes,
		Now:          func() time.Time { return now },
	}
	return f
}

func (f *reconcilerFixture) addOutbound(id, messageID, leadID, toEmail string) *model.EmailMessage {
	sentAt := f.now.Add(-time.Hour)
	m := &model.EmailMessage{
		ID:         id,
		CampaignID: "camp-1",
		LeadID:     leadID,
		Direction:  model.DirectionOutbound,
		MessageID:  messageID,
		ThreadKey:  id,
		FromEmail:  "sender@example.com",
		ToEmail:    toEmail,
		Status:     model.MessageSent,
		SentAt:     &sentAt,
	}
	if err := f.messages.Create(m); err != nil {
		panic(err)
	}
	return m
}

func TestHandleEventsBounce(t *testing.T) {
	f := newReconcilerFixture(testLead("lead-1", "jo@acme.example"))
	f.addOutbound("msg-1", "<id-1@mail>", "lead-1", "jo@acme.example")

	applied := f.reconciler.HandleEvents([]provider.WebhookEvent{{
		Type:      provider.EventBounce,
		Email:     "jo@acme.example",
		MessageID: "<id-1@mail>",
		Timestamp: f.now,
	}})
	assert.Equal(t, 1, applied)

	m, _ := f.messages.GetByID("msg-1")
	assert.Equal(t, model.MessageBounced, m.Status)

	lead, _ := f.leads.GetByID("lead-1")
	assert.Equal(t, model.LeadBounced, lead.Status)

	events := f.events.all()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventBounce, events[0].Type)
}

func TestHandleEventsDelivered(t *testing.T) {
	f := newReconcilerFixture(testLead("lead-1", "jo@acme.example"))
	f.addOutbound("msg-1", "<id-1@mail>", "lead-1", "jo@acme.example")

	f.reconciler.HandleEvents([]provider.WebhookEvent{{
		Type:      provider.EventDelivered,
		Email:     "jo@acme.example",
		MessageID: "<id-1@mail>",
		Timestamp: f.now,
	}})

	m, _ := f.messages.GetByID("msg-1")
	assert.Equal(t, model.MessageDelivered, m.Status)
	require.NotNil(t, m.DeliveredAt)
	assert.Equal(t, f.now, *m.DeliveredAt)
}

func TestHandleEventsUnsubscribe(t *testing.T) {
	f := newReconcilerFixture(testLead("lead-1", "jo@acme.example"))
	f.addOutbound("msg-1", "<id-1@mail>", "lead-1", "jo@acme.example")

	f.reconciler.HandleEvents([]provider.WebhookEvent{{
		Type:      provider.EventUnsubscribe,
		Email:     "jo@acme.example",
		MessageID: "<id-1@mail>",
		Timestamp: f.now,
	}})

	lead, _ := f.leads.GetByID("lead-1")
	assert.Equal(t, model.LeadUnsubscribed, lead.Status)

	record, _ := f.unsubscribes.GetByEmail("jo@acme.example")
	require.NotNil(t, record, "an opt-out record is stored so future sends are blocked")
}

func TestHandleEventsMatchByRecipientFallback(t *testing.T) {
	f := newReconcilerFixture(testLead("lead-1", "jo@acme.example"))
	f.addOutbound("msg-1", "<id-1@mail>", "lead-1", "jo@acme.example")

	// Provider lost the message id; matching falls back to the address.
	applied := f.reconciler.HandleEvents([]provider.WebhookEvent{{
		Type:      provider.EventOpen,
		Email:     "jo@acme.example",
		Timestamp: f.now,
	}})
	assert.Equal(t, 1, applied)

	events := f.events.all()
	require.Len(t, events, 1)
	assert.Equal(t, "msg-1", events[0].EmailMessageID)
}

func TestHandleEventsSkipsUnmatched(t *testing.T) {
	f := newReconcilerFixture()

	applied := f.reconciler.HandleEvents([]provider.WebhookEvent{{
		Type:      provider.EventOpen,
		Email:     "stranger@nowhere.example",
		MessageID: "<unknown@mail>",
		Timestamp: f.now,
	}})

	assert.Equal(t, 0, applied, "unmatched events are skipped, not fatal")
	assert.Empty(t, f.events.all())
}

func TestHandleInboundInheritsThread(t *testing.T) {
	f := newReconcilerFixture(testLead("lead-1", "jo@acme.example"))
	parent := f.addOutbound("msg-1", "<id-1@mail>", "lead-1", "jo@acme.example")

	message, err := f.reconciler.HandleInbound(&provider.InboundEmail{
		From:      "jo@acme.example",
		To:        "jo@acme.example",
		Subject:   "Re: hello",
		Text:      "sounds interesting",
		MessageID: "<reply-1@acme>",
		InReplyTo: "<id-1@mail>",
	})
	require.NoError(t, err)

	assert.Equal(t, model.DirectionInbound, message.Direction)
	assert.Equal(t, parent.ThreadKey, message.ThreadKey, "reply joins the original thread")
	assert.Equal(t, parent.CampaignID, message.CampaignID)

	lead, _ := f.leads.GetByID("lead-1")
	assert.Equal(t, model.LeadReplied, lead.Status)

	events := f.events.all()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventReply, events[0].Type)
}

func TestHandleInboundNewThreadWhenNoReference(t *testing.T) {
	f := newReconcilerFixture(testLead("lead-1", "jo@acme.example"))

	message, err := f.reconciler.HandleInbound(&provider.InboundEmail{
		From:      "jo@acme.example",
		To:        "jo@acme.example",
		Subject:   "Hello out of the blue",
		MessageID: "<fresh-1@acme>",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, message.ThreadKey, "an unreferenced inbound starts its own thread")
	assert.Empty(t, message.CampaignID)
}

func TestHandleInboundUnknownLead(t *testing.T) {
	f := newReconcilerFixture()

	_, err := f.reconciler.HandleInbound(&provider.InboundEmail{
		From: "stranger@nowhere.example",
		To:   "stranger@nowhere.example",
	})
	require.Error(t, err)

	var notFound *appErrors.ErrLeadNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestHandleInboundFallsBackToReferencesHeader(t *testing.T) {
	f := newReconcilerFixture(testLead("lead-1", "jo@acme.example"))
	parent := f.addOutbound("msg-1", "<id-1@mail>", "lead-1", "jo@acme.example")

	message, err := f.reconciler.HandleInbound(&provider.InboundEmail{
		From:       "jo@acme.example",
		To:         "jo@acme.example",
		MessageID:  "<reply-2@acme>",
		References: "<id-1@mail> <other@mail>",
	})
	require.NoError(t, err)
	assert.Equal(t, parent.ThreadKey, message.ThreadKey)
}
