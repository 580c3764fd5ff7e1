package store

import (
	"sync"

	"github.com/dkeye/askroom/internal/core"
)

// mailbox holds at most one undelivered record. A newer record replaces an
// undelivered older one: records are full replacements, so only the latest matters.
type mailbox struct {
	ch     chan *core.RawRoom
	mu     sync.Mutex
	closed bool
}

func newMailbox() *mailbox {
	return &mailbox{ch: make(chan *core.RawRoom, 1)}
}

func (m *mailbox) offer(rec *core.RawRoom) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	select {
	case m.ch <- rec:
	default:
		select {
		case <-m.ch:
		default:
		}
		m.ch <- rec
	}
	return true
}

func (m *mailbox) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.ch)
}
