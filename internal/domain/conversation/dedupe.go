package conversation

import "sync"

// Deduper turns snapshot-style deliveries into an append-only stream by
// forwarding each message id once.
type Deduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	handler MessageHandler
}

// NewDeduper wraps handler.
func NewDeduper(handler MessageHandler) *Deduper {
	return &Deduper{seen: make(map[string]struct{}), handler: handler}
}

// Deliver forwards the messages not yet seen, preserving their order.
func (d *Deduper) Deliver(messages []*Message) {
	d.mu.Lock()
	fresh := make([]*Message, 0, len(messages))
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		if _, ok := d.seen[msg.ID]; ok {
			continue
		}
		d.seen[msg.ID] = struct{}{}
		fresh = append(fresh, msg)
	}
	d.mu.Unlock()

	for _, msg := range fresh {
		d.handler(msg)
	}
}
