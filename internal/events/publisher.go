// Package events publishes lifecycle notifications to NATS JetStream.
// The event stream is a side channel for interested observers; the
// ledger store stays the single source of truth and a failed publish
// never fails the operation that triggered it.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/taklabs/coordinator/internal/metrics"
)

// Envelope is the canonical wire format for lifecycle events.
type Envelope struct {
	EventID    uuid.UUID       `json:"event_id"`
	EventType  string          `json:"event_type"`
	Service    string          `json:"service"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Publisher wraps a NATS connection and publishes event envelopes.
// A nil *Publisher is valid and drops everything, so callers never
// need to branch on whether eventing is configured.
type Publisher struct {
	js      nats.JetStreamContext
	prefix  string
	service string
	logger  *zap.Logger
}

// New creates a Publisher with JetStream enabled.
func New(nc *nats.Conn, subjectPrefix, service string, logger *zap.Logger) (*Publisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		js:      js,
		prefix:  subjectPrefix,
		service: service,
		logger:  logger,
	}, nil
}

// Publish serializes payload into an envelope and publishes it to
// "<prefix>.<eventType>". Errors are logged and counted, not returned.
func (p *Publisher) Publish(_ context.Context, eventType string, payload any) {
	if p == nil {
		return
	}
	subject := p.prefix + "." + eventType

	body, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("events.marshal_failed",
			zap.String("event_type", eventType),
			zap.Error(err))
		metrics.IncError("events", "marshal_failed")
		return
	}

	env := Envelope{
		EventID:    uuid.New(),
		EventType:  eventType,
		Service:    p.service,
		OccurredAt: time.Now().UTC(),
		Payload:    body,
	}
	data, err := json.Marshal(env)
	if err != nil {
		p.logger.Error("events.marshal_failed",
			zap.String("event_type", eventType),
			zap.Error(err))
		metrics.IncError("events", "marshal_failed")
		return
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"event_type":   []string{eventType},
			"event_id":     []string{env.EventID.String()},
			"service":      []string{p.service},
			"content_type": []string{"application/json"},
		},
	}

	if _, err := p.js.PublishMsg(msg); err != nil {
		p.logger.Warn("events.publish_failed",
			zap.String("subject", subject),
			zap.String("event_type", eventType),
			zap.Error(err))
		metrics.IncEvent(subject, "error")
		return
	}

	metrics.IncEvent(subject, "ok")
}
