// Package events publishes cycle outcomes over NATS for fleet-side
// monitoring. Publishing is strictly optional: connection or publish
// failures are logged and never affect cycle classification.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/robolab/robosync/internal/cycle"
	"git.home.luguber.info/robolab/robosync/internal/logfields"
	"github.com/nats-io/nats.go"
)

// CycleEvent is the wire form of a published cycle result.
type CycleEvent struct {
	CycleID   string    `json:"cycle_id"`
	Device    string    `json:"device"`
	Branch    string    `json:"branch"`
	Outcome   string    `json:"outcome"`
	Stage     string    `json:"stage,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Commit    string    `json:"commit,omitempty"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
}

// Publisher sends cycle events to a NATS subject derived from the outcome,
// e.g. robosync.cycle.committed-and-pushed.
type Publisher struct {
	conn          *nats.Conn
	subjectPrefix string
}

// NewPublisher connects to the NATS server. The connection is configured to
// reconnect in the background so transient broker outages on a moving
// device do not tear it down.
func NewPublisher(url, subjectPrefix string) (*Publisher, error) {
	if url == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Publisher{conn: conn, subjectPrefix: subjectPrefix}, nil
}

// Publish sends one cycle result. Errors are returned for the caller to
// log; they must not influence the cycle outcome.
func (p *Publisher) Publish(res cycle.Result) error {
	event := CycleEvent{
		CycleID:   res.ID,
		Device:    res.Device,
		Branch:    res.Branch,
		Outcome:   string(res.Outcome),
		Stage:     res.Stage,
		Detail:    res.Detail,
		Commit:    res.Commit,
		StartedAt: res.StartedAt,
		Duration:  res.Duration.String(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal cycle event: %w", err)
	}
	subject := fmt.Sprintf("%s.%s", p.subjectPrefix, res.Outcome)
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	slog.Debug("Published cycle event",
		logfields.CycleID(res.ID), logfields.Outcome(string(res.Outcome)), slog.String("subject", subject))
	return nil
}

// Close flushes and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	_ = p.conn.Drain()
}
