package fetchworker

import "sync"

// pending is the coalesced set of commands posted since the worker last looked.
type pending struct {
	refresh       bool
	credential    string
	hasCredential bool
}

func (p pending) empty() bool {
	return !p.refresh && !p.hasCredential
}

// mailbox is the command channel of a worker. Any number of goroutines may
// post; exactly one goroutine takes. Posting never blocks: commands that
// arrive while the worker is busy are merged, the newest credential winning.
type mailbox struct {
	mu     sync.Mutex
	box    pending
	closed bool
	wake   chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{wake: make(chan struct{}, 1)}
}

func (m *mailbox) postRefresh() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrChannelClosed
	}
	m.box.refresh = true
	m.mu.Unlock()
	m.signal()
	return nil
}

func (m *mailbox) postCredential(cred string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrChannelClosed
	}
	m.box.credential = cred
	m.box.hasCredential = true
	m.mu.Unlock()
	m.signal()
	return nil
}

func (m *mailbox) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// take empties the mailbox and returns what was in it. Once closed it
// returns nothing, so commands queued before Close never start a pass.
func (m *mailbox) take() pending {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		m.box = pending{}
		return pending{}
	}
	p := m.box
	m.box = pending{}
	return p
}

func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}
