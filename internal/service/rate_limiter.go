// internal/service/rate_limiter.go
package service

import (
	"time"

	"github.com/coldpitch/outreach-backend/internal/model"
	"github.com/coldpitch/outreach-backend/internal/repository"
)

// RateLimiter enforces per-campaign throughput ceilings by counting sent
// messages in the trailing minute and day. The message table is the source
// of truth; there is no separate counter state. Two items checked in the
// same batch can both pass before either send is recorded, so the ceiling
// can be exceeded by up to batch size minus one. Accepted soft limit.
type RateLimiter struct {
	Messages repository.MessageRepositoryInterface
	Now      func() time.Time
}

func NewRateLimiter(messages repository.MessageRepositoryInterface) *RateLimiter {
	return &RateLimiter{Messages: messages, Now: time.Now}
}

// Allow reports whether the campaign may send one more message now.
func (l *RateLimiter) Allow(campaign *model.Campaign) (bool, error) {
	now := l.Now()

	if campaign.RateLimitPerMin > 0 {
		sentLastMinute, err := l.Messages.CountSentSince(campaign.ID, now.Add(-time.Minute))
		if err != nil {
			return false, err
		}
		if sentLastMinute >= campaign.RateLimitPerMin {
			return false, nil
		}
	}

	if campaign.RateLimitPerDay > 0 {
		sentLastDay, err := l.Messages.CountSentSince(campaign.ID, now.Add(-24*time.Hour))
		if err != nil {
			return false, err
		}
		if sentLastDay >= campaign.RateLimitPerDay {
			return false, nil
		}
	}

	return true, nil
}
