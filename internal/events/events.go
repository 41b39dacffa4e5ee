// Package events publishes orchestration session events to NATS.
//
// Events are published to subjects of the form:
//
//	<prefix>.<context_id>.started
//	<prefix>.<context_id>.dispatched
//	<prefix>.<context_id>.anomaly
//	<prefix>.<context_id>.replan
//	<prefix>.<context_id>.completed
//
// Publishing is best effort. Callers log failures and carry on.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// Type identifies the session stage an event reports.
type Type string

const (
	TypeStarted    Type = "started"
	TypeDispatched Type = "dispatched"
	TypeAnomaly    Type = "anomaly"
	TypeReplan     Type = "replan"
	TypeCompleted  Type = "completed"
)

// Event is one session stage notification.
type Event struct {
	Type      Type      `json:"type"`
	ContextID string    `json:"context_id"`
	Subtask   string    `json:"subtask,omitempty"`
	Output    string    `json:"output,omitempty"`
	Status    bool      `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher delivers events to observers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// NATSPublisher publishes JSON events on a NATS connection.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSPublisher creates a publisher using nc. prefix is the leading
// subject segment(s), e.g. "sovereign.sessions".
func NewNATSPublisher(nc *nats.Conn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: nc, prefix: prefix}
}

// Connect dials NATS with reconnect settings suited to a long-running server.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("sovereign"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// Subject returns the subject an event is published on.
func (p *NATSPublisher) Subject(ev Event) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, subjectToken(ev.ContextID), ev.Type)
}

// Publish implements Publisher.
func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(p.Subject(ev), data); err != nil {
		return fmt.Errorf("publish %s event: %w", ev.Type, err)
	}
	return nil
}

// subjectToken makes an opaque context id safe for use as one subject token.
func subjectToken(id string) string {
	if id == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, id)
}
