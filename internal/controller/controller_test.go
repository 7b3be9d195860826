// internal/controller/controller_test.go
package controller_test

import (
	"context"
	"net/http"
	"time"

	"github.com/coldpitch/outreach-backend/internal/model"
	"github.com/coldpitch/outreach-backend/internal/provider"
	"github.com/coldpitch/outreach-backend/internal/repository"
)

// --- Stub repositories and provider ---

type stubQueueRepo struct{}

func (stubQueueRepo) BulkCreate(items []*model.QueueItem) error { return nil }
func (stubQueueRepo) GetByID(id string) (*model.QueueItem, error) {
	return nil, nil
}
func (stubQueueRepo) ListCandidates(now, lockExpiredBefore time.Time, limit int) ([]*model.QueueItem, error) {
	return []*model.QueueItem{}, nil
}
func (stubQueueRepo) Claim(id string, now, lockExpiredBefore time.Time, owner string) (bool, error) {
	return false, nil
}
func (stubQueueRepo) MarkSent(id, emailMessageID string) error { return nil }
func (stubQueueRepo) ReleaseForRetry(id string, attempts int, nextAttemptAt time.Time, lastError string) error {
	return nil
}
func (stubQueueRepo) MarkFailed(id string, attempts int, lastError string) error { return nil }
func (stubQueueRepo) Cancel(id string) error                                     { return nil }
func (stubQueueRepo) ReleaseSkipped(id string) error                             { return nil }
func (stubQueueRepo) CancelPending(campaignID string) (int64, error)             { return 0, nil }
func (stubQueueRepo) CountByStatus(campaignID string) (map[string]int, error) {
	return map[string]int{}, nil
}

type stubMessageRepo struct {
	created []*model.EmailMessage
	found   *model.EmailMessage
}

func (s *stubMessageRepo) Create(m *model.EmailMessage) error {
	s.created = append(s.created, m)
	return nil
}
func (s *stubMessageRepo) GetByID(id string) (*model.EmailMessage, error) { return nil, nil }
func (s *stubMessageRepo) CountSentSince(campaignID string, since time.Time) (int, error) {
	return 0, nil
}
func (s *stubMessageRepo) FindForEvent(messageID, email string) (*model.EmailMessage, error) {
	return s.found, nil
}
func (s *stubMessageRepo) FindByReference(ref string) (*model.EmailMessage, error) {
	return s.found, nil
}
func (s *stubMessageRepo) MarkDelivered(id string, at time.Time) error { return nil }
func (s *stubMessageRepo) MarkBounced(id string) error                 { return nil }
func (s *stubMessageRepo) ListSentLeadIDs(campaignID string) ([]string, error) {
	return nil, nil
}

type stubLeadRepo struct {
	lead     *model.Lead
	statuses map[string]model.LeadStatus
}

func (s *stubLeadRepo) GetByID(id string) (*model.Lead, error)       { return s.lead, nil }
func (s *stubLeadRepo) GetByEmail(email string) (*model.Lead, error) { return s.lead, nil }
func (s *stubLeadRepo) ListEligible() ([]*model.Lead, error)         { return nil, nil }
func (s *stubLeadRepo) UpdateStatus(id string, status model.LeadStatus) error {
	if s.statuses == nil {
		s.statuses = map[string]model.LeadStatus{}
	}
	s.statuses[id] = status
	return nil
}

type stubEventRepo struct {
	events []*model.Event
}

func (s *stubEventRepo) Create(e *model.Event) error {
	s.events = append(s.events, e)
	return nil
}

type stubUnsubscribeRepo struct {
	record *model.Unsubscribe
}

func (s *stubUnsubscribeRepo) GetByEmail(email string) (*model.Unsubscribe, error) {
	return s.record, nil
}
func (s *stubUnsubscribeRepo) GetByToken(token string) (*model.Unsubscribe, error) {
	if s.record != nil && s.record.Token == token {
		return s.record, nil
	}
	return nil, nil
}
func (s *stubUnsubscribeRepo) EnsureToken(email, leadID, token string) (string, error) {
	return token, nil
}

// stubProvider controls signature verification and parsed payloads.
type stubProvider struct {
	valid   bool
	events  []provider.WebhookEvent
	inbound *provider.InboundEmail
}

func (s *stubProvider) SendEmail(ctx context.Context, p provider.SendParams) (*provider.SendResult, error) {
	return &provider.SendResult{MessageID: "stub-1"}, nil
}
func (s *stubProvider) VerifyWebhook(header http.Header, body []byte) bool { return s.valid }
func (s *stubProvider) ParseWebhookEvents(body []byte) ([]provider.WebhookEvent, error) {
	return s.events, nil
}
func (s *stubProvider) ParseInboundEmail(contentType string, body []byte) (*provider.InboundEmail, error) {
	return s.inbound, nil
}

var (
	_ repository.QueueRepositoryInterface       = stubQueueRepo{}
	_ repository.MessageRepositoryInterface     = (*stubMessageRepo)(nil)
	_ repository.LeadRepositoryInterface        = (*stubLeadRepo)(nil)
	_ repository.EventRepositoryInterface       = (*stubEventRepo)(nil)
	_ repository.UnsubscribeRepositoryInterface = (*stubUnsubscribeRepo)(nil)
	_ provider.EmailProvider                    = (*stubProvider)(nil)
)
