// internal/queue/queue.go
package queue

import (
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

const wakeQueue = "worker_wake"

// WakeMessage nudges the worker to run a batch ahead of its poll interval,
// typically right after a campaign start fans out queue rows.
type WakeMessage struct {
	CampaignID string    `json:"campaign_id"`
	IssuedAt   time.Time `json:"issued_at"`
}

// Publisher sends wake messages. The worker still polls on a timer, so a
// lost message only delays sends, never drops them.
type Publisher interface {
	PublishWake(campaignID string) error
	Close() error
}

// Broker is the AMQP-backed publisher/consumer pair.
type Broker struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Connect dials the broker, retrying with exponential backoff for up to
// thirty seconds before giving up.
func Connect(url string) (*Broker, error) {
	var conn *amqp.Connection
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 30 * time.Second

	err := backoff.Retry(func() error {
		var dialErr error
		conn, dialErr = amqp.Dial(url)
		return dialErr
	}, policy)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := channel.QueueDeclare(wakeQueue, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}
	return &Broker{conn: conn, channel: channel}, nil
}

func (b *Broker) PublishWake(campaignID string) error {
	body, err := json.Marshal(WakeMessage{CampaignID: campaignID, IssuedAt: time.Now()})
	if err != nil {
		return err
	}
	return b.channel.Publish("", wakeQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Consume delivers wake messages until the channel closes.
func (b *Broker) Consume() (<-chan amqp.Delivery, error) {
	return b.channel.Consume(wakeQueue, "", false, false, false, false, nil)
}

func (b *Broker) Close() error {
	if b.channel != nil {
		b.channel.Close()
	}
	return b.conn.Close()
}

// NoopPublisher is used when no broker is configured; the worker relies on
// its poll interval alone.
type NoopPublisher struct{}

func (NoopPublisher) PublishWake(campaignID string) error {
	log.WithField("campaign_id", campaignID).Debug("no broker configured, skipping wake")
	return nil
}

func (NoopPublisher) Close() error { return nil }

var (
	_ Publisher = (*Broker)(nil)
	_ Publisher = NoopPublisher{}
)
