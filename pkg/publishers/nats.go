package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

type natsConn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// natsPublisher publishes events on a core NATS subject.
type natsPublisher struct {
	id      string
	subject string
	timeout time.Duration
	conn    natsConn
	log     Logger
}

func newNATSPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.NATS == nil {
		return nil, fmt.Errorf("publisher %q missing nats configuration", cfg.ID)
	}

	name := cfg.NATS.Name
	if name == "" {
		name = "headlines-" + cfg.ID
	}
	timeout := time.Duration(cfg.NATS.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = natsDefaultTimeoutSeconds * time.Second
	}
	conn, err := nats.Connect(cfg.NATS.URL, nats.Name(name), nats.Timeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &natsPublisher{
		id:      cfg.ID,
		subject: cfg.NATS.Subject,
		timeout: timeout,
		conn:    conn,
		log:     ensureLogger(log),
	}, nil
}

func (n *natsPublisher) ID() string   { return n.id }
func (n *natsPublisher) Type() string { return TypeNATS }

// Publish sends the event and flushes so delivery errors surface here.
func (n *natsPublisher) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := n.conn.Publish(n.subject, payload); err != nil {
		n.log.ErrorObj("nats publisher send failed", "publisher_nats_error", map[string]any{
			"publisher_id": n.id,
			"card_id":      evt.CardID,
			"error":        err.Error(),
		})
		return fmt.Errorf("publish to nats: %w", err)
	}
	// FlushWithContext refuses contexts without a deadline.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush nats: %w", err)
	}
	n.log.DebugObj("nats publisher delivered event", "publisher_nats_delivery", map[string]any{
		"publisher_id": n.id,
		"card_id":      evt.CardID,
		"subject":      n.subject,
	})
	return nil
}

// Close drains the connection.
func (n *natsPublisher) Close() error {
	return n.conn.Drain()
}
