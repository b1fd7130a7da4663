package cosim

import "sync"

// Mailbox hands parameter updates from one producer to the engine. It holds
// at most one pending update; sending while one is pending replaces it, so
// the engine always sees the most recent value and bursts never queue up.
type Mailbox struct {
	ch        chan ParameterUpdate
	closeOnce sync.Once
}

func NewMailbox() *Mailbox {
	return &Mailbox{ch: make(chan ParameterUpdate, 1)}
}

// Send stores u for the engine and reports whether a pending update was
// discarded. Send must only be called from a single goroutine and never
// after Close.
func (m *Mailbox) Send(u ParameterUpdate) (replaced bool) {
	for {
		select {
		case m.ch <- u:
			return replaced
		default:
		}

		select {
		case <-m.ch:
			replaced = true
		default:
		}
	}
}

// Updates returns the channel the engine polls.
func (m *Mailbox) Updates() <-chan ParameterUpdate {
	return m.ch
}

// Close tells the engine no more updates will arrive.
func (m *Mailbox) Close() {
	m.closeOnce.Do(func() { close(m.ch) })
}
