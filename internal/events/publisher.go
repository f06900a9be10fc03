package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Event names; the NATS subject is "approval." plus the event name
const (
	EventRequested         = "requested"
	EventSubmitted         = "submitted"
	EventGranted           = "granted"
	EventRejected          = "rejected"
	EventRevisionRequested = "revision_requested"
	EventCancelled         = "cancelled"
	EventEscalated         = "escalated"
	EventExpired           = "expired"
	EventPublished         = "published"
)

// Notification is the payload published for every request transition
type Notification struct {
	RequestID  string `json:"requestId"`
	TenantID   string `json:"tenantId"`
	TargetType string `json:"targetType"`
	TargetID   string `json:"targetId"`
	ActorID    string `json:"actorId,omitempty"`
	FromStatus string `json:"fromStatus,omitempty"`
	ToStatus   string `json:"toStatus"`
	Priority   string `json:"priority,omitempty"`
	OccurredAt string `json:"occurredAt"`
}

// Publisher publishes workflow notifications to NATS. Publishing is
// fire-and-forget: failures are logged and never surfaced to callers,
// since the transition is already committed by the time we get here.
type Publisher struct {
	conn   *nats.Conn
	logger *logrus.Entry
}

// NewPublisher connects to NATS. A connection failure returns an error so
// the caller can decide whether to run without notifications.
func NewPublisher(url string, logger *logrus.Logger) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Name("workflow-service"),
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{
		conn:   conn,
		logger: logger.WithField("component", "event-publisher"),
	}, nil
}

// Notify publishes a notification asynchronously
func (p *Publisher) Notify(_ context.Context, event string, n Notification) {
	if p == nil || p.conn == nil {
		return
	}
	n.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	subject := "approval." + event

	go func() {
		payload, err := json.Marshal(n)
		if err != nil {
			p.logger.WithError(err).Error("Failed to marshal notification")
			return
		}
		if err := p.conn.Publish(subject, payload); err != nil {
			p.logger.WithFields(logrus.Fields{
				"subject":   subject,
				"requestId": n.RequestID,
			}).WithError(err).Error("Failed to publish notification")
			return
		}
		p.logger.WithFields(logrus.Fields{
			"subject":   subject,
			"requestId": n.RequestID,
		}).Debug("Published notification")
	}()
}

// Close drains the connection
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
