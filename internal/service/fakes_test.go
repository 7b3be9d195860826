// internal/service/fakes_test.go
package service_test

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coldpitch/outreach-backend/internal/model"
	"github.com/coldpitch/outreach-backend/internal/provider"
	"github.com/coldpitch/outreach-backend/internal/repository"
)

// In-memory repositories mirroring the SQL semantics, including the
// conditional claim.

type fakeQueueRepo struct {
	mu    sync.Mutex
	items map[string]*model.QueueItem
}

func newFakeQueueRepo() *fakeQueueRepo {
	return &fakeQueueRepo{items: map[string]*model.QueueItem{}}
}

func (r *fakeQueueRepo) add(item *model.QueueItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *item
	r.items[item.ID] = &copied
}

func (r *fakeQueueRepo) get(id string) model.QueueItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.items[id]
}

func (r *fakeQueueRepo) BulkCreate(items []*model.QueueItem) error {
	for _, item := range items {
		r.add(item)
	}
	return nil
}

func (r *fakeQueueRepo) GetByID(id string) (*model.QueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (r *fakeQueueRepo) ListCandidates(now, lockExpiredBefore time.Time, limit int) ([]*model.QueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.QueueItem
	for _, item := range r.items {
		if len(out) >= limit {
			break
		}
		if item.Status != model.QueuePending && item.Status != model.QueueFailed && item.Status != model.QueueSending {
			continue
		}
		if item.ScheduledAt.After(now) || item.NextAttemptAt.After(now) {
			continue
		}
		if item.Attempts >= item.MaxAttempts {
			continue
		}
		if item.LockedAt != nil && !item.LockedAt.Before(lockExpiredBefore) {
			continue
		}
		copied := *item
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeQueueRepo) Claim(id string, now, lockExpiredBefore time.Time, owner string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return false, nil
	}
	if item.Status != model.QueuePending && item.Status != model.QueueFailed && item.Status != model.QueueSending {
		return false, nil
	}
	if item.LockedAt != nil && !item.LockedAt.Before(lockExpiredBefore) {
		return false, nil
	}
	item.Status = model.QueueSending
	item.LockedAt = &now
	item.LockOwner = &owner
	return true, nil
}

func (r *fakeQueueRepo) MarkSent(id, emailMessageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item := r.items[id]
	item.Status = model.QueueSent
	item.EmailMessageID = &emailMessageID
	item.LockedAt = nil
	item.LockOwner = nil
	return nil
}

func (r *fakeQueueRepo) ReleaseForRetry(id string, attempts int, nextAttemptAt time.Time, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item := r.items[id]
	item.Status = model.QueuePending
	item.Attempts = attempts
	item.NextAttemptAt = nextAttemptAt
	item.LastError = lastError
	item.LockedAt = nil
	item.LockOwner = nil
	return nil
}

func (r *fakeQueueRepo) MarkFailed(id string, attempts int, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item := r.items[id]
	item.Status = model.QueueFailed
	item.Attempts = attempts
	item.LastError = lastError
	item.LockedAt = nil
	item.LockOwner = nil
	return nil
}

func (r *fakeQueueRepo) Cancel(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item := r.items[id]
	item.Status = model.QueueCancelled
	item.LockedAt = nil
	item.LockOwner = nil
	return nil
}

func (r *fakeQueueRepo) ReleaseSkipped(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item := r.items[id]
	item.Status = model.QueuePending
	item.LockedAt = nil
	item.LockOwner = nil
	return nil
}

func (r *fakeQueueRepo) CancelPending(campaignID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, item := range r.items {
		if item.CampaignID == campaignID && item.Status == model.QueuePending {
			item.Status = model.QueueCancelled
			n++
		}
	}
	return n, nil
}

func (r *fakeQueueRepo) CountByStatus(campaignID string) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[string]int{}
	for _, item := range r.items {
		if item.CampaignID == campaignID {
			counts[string(item.Status)]++
		}
	}
	return counts, nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*model.EmailMessage
}

func (r *fakeMessageRepo) Create(m *model.EmailMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *m
	r.messages = append(r.messages, &copied)
	return nil
}

func (r *fakeMessageRepo) GetByID(id string) (*model.EmailMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			copied := *m
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeMessageRepo) CountSentSince(campaignID string, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, m := range r.messages {
		if m.CampaignID != campaignID || m.Direction != model.DirectionOutbound {
			continue
		}
		if m.Status != model.MessageSent && m.Status != model.MessageDelivered {
			continue
		}
		if m.SentAt != nil && !m.SentAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *fakeMessageRepo) FindForEvent(messageID, email string) (*model.EmailMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.messages) - 1; i >= 0; i-- {
		m := r.messages[i]
		if messageID != "" && (m.MessageID == messageID || m.ProviderID == messageID) {
			copied := *m
			return &copied, nil
		}
	}
	for i := len(r.messages) - 1; i >= 0; i-- {
		m := r.messages[i]
		if m.ToEmail == email && m.Direction == model.DirectionOutbound {
			copied := *m
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeMessageRepo) FindByReference(ref string) (*model.EmailMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.MessageID == ref || m.ProviderID == ref {
			copied := *m
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeMessageRepo) MarkDelivered(id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			m.Status = model.MessageDelivered
			m.DeliveredAt = &at
		}
	}
	return nil
}

func (r *fakeMessageRepo) MarkBounced(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			m.Status = model.MessageBounced
		}
	}
	return nil
}

func (r *fakeMessageRepo) ListSentLeadIDs(campaignID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, m := range r.messages {
		if m.CampaignID == campaignID && m.Direction == model.DirectionOutbound && !seen[m.LeadID] {
			seen[m.LeadID] = true
			out = append(out, m.LeadID)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) all() []*model.EmailMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.EmailMessage, len(r.messages))
	copy(out, r.messages)
	return out
}

type fakeLeadRepo struct {
	mu    sync.Mutex
	leads map[string]*model.Lead
}

func newFakeLeadRepo(leads ...*model.Lead) *fakeLeadRepo {
	r := &fakeLeadRepo{leads: map[string]*model.Lead{}}
	for _, lead := range leads {
		copied := *lead
		r.leads[lead.ID] = &copied
	}
	return r
}

func (r *fakeLeadRepo) GetByID(id string) (*model.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[id]
	if !ok {
		return nil, nil
	}
	copied := *lead
	return &copied, nil
}

func (r *fakeLeadRepo) GetByEmail(email string) (*model.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, lead := range r.leads {
		if lead.Email == email {
			copied := *lead
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeLeadRepo) ListEligible() ([]*model.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Lead
	for _, lead := range r.leads {
		if lead.Status == model.LeadUnsubscribed || lead.Status == model.LeadDoNotContact {
			continue
		}
		copied := *lead
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeLeadRepo) UpdateStatus(id string, status model.LeadStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lead, ok := r.leads[id]; ok {
		lead.Status = status
	}
	return nil
}

type fakeCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[string]*model.Campaign
}

func newFakeCampaignRepo(campaigns ...*model.Campaign) *fakeCampaignRepo {
	r := &fakeCampaignRepo{campaigns: map[string]*model.Campaign{}}
	for _, c := range campaigns {
		copied := *c
		r.campaigns[c.ID] = &copied
	}
	return r
}

func (r *fakeCampaignRepo) Create(c *model.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *c
	r.campaigns[c.ID] = &copied
	return nil
}

func (r *fakeCampaignRepo) GetByID(id string) (*model.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return nil, fmt.Errorf("campaign %s not found", id)
	}
	copied := *c
	return &copied, nil
}

func (r *fakeCampaignRepo) ListCampaigns(offset, limit int, status string) ([]*model.Campaign, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Campaign
	for _, c := range r.campaigns {
		if status != "" && string(c.Status) != status {
			continue
		}
		copied := *c
		out = append(out, &copied)
	}
	return out, len(out), nil
}

func (r *fakeCampaignRepo) UpdateStatus(campaignID string, status model.CampaignStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.campaigns[campaignID]; ok {
		c.Status = status
	}
	return nil
}

type fakeUnsubscribeRepo struct {
	mu      sync.Mutex
	records map[string]*model.Unsubscribe
}

func newFakeUnsubscribeRepo() *fakeUnsubscribeRepo {
	return &fakeUnsubscribeRepo{records: map[string]*model.Unsubscribe{}}
}

func (r *fakeUnsubscribeRepo) GetByEmail(email string) (*model.Unsubscribe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[email]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (r *fakeUnsubscribeRepo) GetByToken(token string) (*model.Unsubscribe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, record := range r.records {
		if record.Token == token {
			copied := *record
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeUnsubscribeRepo) EnsureToken(email, leadID, token string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.records[email]; ok {
		return existing.Token, nil
	}
	r.records[email] = &model.Unsubscribe{
		Email:     email,
		LeadID:    leadID,
		Token:     token,
		CreatedAt: time.Now(),
	}
	return token, nil
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events []*model.Event
}

func (r *fakeEventRepo) Create(e *model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *e
	r.events = append(r.events, &copied)
	return nil
}

func (r *fakeEventRepo) all() []*model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Event, len(r.events))
	copy(out, r.events)
	return out
}

// fakeProvider records sends and can be told to fail.
type fakeProvider struct {
	mu      sync.Mutex
	sendErr error
	sent    []provider.SendParams
	nextID  int
}

func (p *fakeProvider) SendEmail(ctx context.Context, params provider.SendParams) (*provider.SendResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return nil, p.sendErr
	}
	p.sent = append(p.sent, params)
	p.nextID++
	return &provider.SendResult{
		MessageID:  fmt.Sprintf("fake-%d", p.nextID),
		ProviderID: fmt.Sprintf("provider-%d", p.nextID),
	}, nil
}

func (p *fakeProvider) VerifyWebhook(header http.Header, body []byte) bool { return true }

func (p *fakeProvider) ParseWebhookEvents(body []byte) ([]provider.WebhookEvent, error) {
	return nil, nil
}

func (p *fakeProvider) ParseInboundEmail(contentType string, body []byte) (*provider.InboundEmail, error) {
	return nil, nil
}

func (p *fakeProvider) sentCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

type fakePublisher struct {
	mu    sync.Mutex
	wakes []string
}

func (p *fakePublisher) PublishWake(campaignID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wakes = append(p.wakes, campaignID)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

var (
	_ repository.QueueRepositoryInterface       = (*fakeQueueRepo)(nil)
	_ repository.MessageRepositoryInterface     = (*fakeMessageRepo)(nil)
	_ repository.LeadRepositoryInterface        = (*fakeLeadRepo)(nil)
	_ repository.CampaignRepositoryInterface    = (*fakeCampaignRepo)(nil)
	_ repository.UnsubscribeRepositoryInterface = (*fakeUnsubscribeRepo)(nil)
	_ repository.EventRepositoryInterface       = (*fakeEventRepo)(nil)
	_ provider.EmailProvider                    = (*fakeProvider)(nil)
)
