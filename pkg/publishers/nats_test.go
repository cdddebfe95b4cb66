package publishers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type fakeNATSConn struct {
	subject     string
	data        []byte
	publishErr  error
	hadDeadline bool
	drained     bool
}

func (f *fakeNATSConn) Publish(subject string, data []byte) error {
	f.subject = subject
	f.data = data
	return f.publishErr
}

func (f *fakeNATSConn) FlushWithContext(ctx context.Context) error {
	_, f.hadDeadline = ctx.Deadline()
	return nil
}

func (f *fakeNATSConn) Drain() error {
	f.drained = true
	return nil
}

func TestNATSPublisherPublishesAndFlushes(t *testing.T) {
	conn := &fakeNATSConn{}
	pub := &natsPublisher{id: "n", subject: "news.headlines", timeout: time.Second, conn: conn, log: noopLogger{}}

	evt := testEvent()
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if conn.subject != "news.headlines" {
		t.Fatalf("subject = %q", conn.subject)
	}
	if !conn.hadDeadline {
		t.Fatalf("flush should always run with a deadline")
	}
	var decoded Event
	if err := json.Unmarshal(conn.data, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.CardID != evt.CardID {
		t.Fatalf("card id = %q", decoded.CardID)
	}

	if err := pub.Close(); err != nil || !conn.drained {
		t.Fatalf("Close should drain the connection, err=%v", err)
	}
}

func TestNATSPublisherReturnsPublishError(t *testing.T) {
	conn := &fakeNATSConn{publishErr: errors.New("no connection")}
	pub := &natsPublisher{id: "n", subject: "s", timeout: time.Second, conn: conn, log: noopLogger{}}

	if err := pub.Publish(context.Background(), testEvent()); err == nil {
		t.Fatalf("expected publish error")
	}
}
