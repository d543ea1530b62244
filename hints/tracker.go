package hints

import (
	"context"
	"sync"
)

// Tracker remembers the authoritative request of each document. Starting a
// request cancels the one it supersedes.
type Tracker struct {
	mu     sync.Mutex
	active map[string]*Ticket
	next   uint64
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{active: make(map[string]*Ticket)}
}

// Ticket is one tracked request.
type Ticket struct {
	tracker *Tracker
	uri     string
	gen     uint64
	ctx     context.Context
	cancel  context.CancelFunc
}

// Begin registers a request for uri and cancels the previous one. The
// ticket's context is derived from parent.
func (t *Tracker) Begin(parent context.Context, uri string) *Ticket {
	ctx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.active[uri]; ok {
		prev.cancel()
	}

	t.next++
	tk := &Ticket{tracker: t, uri: uri, gen: t.next, ctx: ctx, cancel: cancel}
	t.active[uri] = tk

	return tk
}

// CancelAll cancels and forgets every active request.
func (t *Tracker) CancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for uri, tk := range t.active {
		tk.cancel()
		delete(t.active, uri)
	}
}

// Cancel cancels the active request for uri, if any.
func (t *Tracker) Cancel(uri string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tk, ok := t.active[uri]; ok {
		tk.cancel()
		delete(t.active, uri)
	}
}

// Active returns the number of requests in flight.
func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.active)
}

// Context is cancelled when the request is superseded or done.
func (tk *Ticket) Context() context.Context {
	return tk.ctx
}

// Generation increases with every Begin.
func (tk *Ticket) Generation() uint64 {
	return tk.gen
}

// Current reports whether the request is still the authoritative one for its
// document and has not been cancelled.
func (tk *Ticket) Current() bool {
	if tk.ctx.Err() != nil {
		return false
	}

	tk.tracker.mu.Lock()
	defer tk.tracker.mu.Unlock()

	return tk.tracker.active[tk.uri] == tk
}

// Done releases the request. A superseded ticket leaves its successor alone.
func (tk *Ticket) Done() {
	tk.cancel()

	tk.tracker.mu.Lock()
	defer tk.tracker.mu.Unlock()

	if tk.tracker.active[tk.uri] == tk {
		delete(tk.tracker.active, tk.uri)
	}
}
