package signature

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	phphints "github.com/php-hints/phphints"
)

type lookupResult struct {
	sig *Signature
	err error
}

// Session memoizes lookups by callee for the duration of one resolution
// pass. Concurrent lookups of the same callee share a single source call.
type Session struct {
	source Source

	mu    sync.Mutex
	memo  map[string]lookupResult
	calls singleflight.Group
}

// NewSession starts a session over source.
func NewSession(source Source) *Session {
	return &Session{
		source: source,
		memo:   make(map[string]lookupResult),
	}
}

// Lookup returns the signature of g's callee, asking the source at most once
// per callee. Cancellation errors are not memoized.
func (s *Session) Lookup(ctx context.Context, g phphints.CallGroup) (*Signature, error) {
	key := g.Callee()

	s.mu.Lock()
	r, ok := s.memo[key]
	s.mu.Unlock()

	if ok {
		return r.sig, r.err
	}

	v, _, _ := s.calls.Do(key, func() (any, error) {
		s.mu.Lock()
		r, ok := s.memo[key]
		s.mu.Unlock()

		if ok {
			return r, nil
		}

		sig, err := s.source.Lookup(ctx, g)
		r = lookupResult{sig: sig, err: err}

		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			s.mu.Lock()
			s.memo[key] = r
			s.mu.Unlock()
		}

		return r, nil
	})

	r, _ = v.(lookupResult)

	return r.sig, r.err
}

// Len returns the number of memoized callees.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.memo)
}
