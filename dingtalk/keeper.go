package dingtalk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// fetchTokenFunc performs a single credential exchange against the
// platform's token endpoint.
type fetchTokenFunc func(ctx context.Context) (Token, error)

// tokenKeeper owns the cached access token for one credential scope.  It is
// a small state machine: Empty (no cached token), Valid (cached token
// inside its expiry margin) and Refreshing (a fetch in flight).  Demand in
// Empty moves to Refreshing; a successful fetch moves to Valid; expiry or
// Invalidate moves back to Empty.  Callers arriving while Refreshing share
// the single in-flight fetch rather than issuing their own.
//
// A failed or cancelled fetch stores nothing, leaving the cache in its
// pre-refresh state.
type tokenKeeper struct {
	fetch fetchTokenFunc
	skew  time.Duration
	now   func() time.Time

	mu      sync.RWMutex
	current *Token

	group singleflight.Group
}

func newTokenKeeper(fetch fetchTokenFunc, skew time.Duration, now func() time.Time) *tokenKeeper {
	if now == nil {
		now = time.Now
	}
	if skew <= 0 {
		skew = DefaultExpirySkew
	}
	return &tokenKeeper{
		fetch: fetch,
		skew:  skew,
		now:   now,
	}
}

// Token returns an access token inside its validity margin.  Cache hits
// never block on I/O.  When a refresh is needed, exactly one fetch is
// issued no matter how many callers are waiting, and every waiter receives
// the same new token (or the fetch's error).
//
// The fetch runs on the context of the caller that initiated it.  Waiters
// coalesced onto that fetch honor their own context: a waiter whose
// context ends gets its context's error while the fetch continues for the
// others.
func (k *tokenKeeper) Token(ctx context.Context) (Token, error) {
	const op = "dingtalk.(tokenKeeper).Token"
	if t, ok := k.cached(); ok {
		return t, nil
	}
	ch := k.group.DoChan("token", func() (interface{}, error) {
		// a waiter can be queued behind a refresh that already stored a
		// fresh token
		if t, ok := k.cached(); ok {
			return t, nil
		}
		t, err := k.fetch(ctx)
		if err != nil {
			return nil, err
		}
		k.mu.Lock()
		k.current = &t
		k.mu.Unlock()
		return t, nil
	})
	select {
	case <-ctx.Done():
		return Token{}, fmt.Errorf("%s: %w", op, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return Token{}, fmt.Errorf("%s: %w", op, res.Err)
		}
		return res.Val.(Token), nil
	}
}

// Invalidate discards the cached token so the next Token call performs a
// real refresh.  Used when a downstream call reports the token invalid.
func (k *tokenKeeper) Invalidate() {
	k.mu.Lock()
	k.current = nil
	k.mu.Unlock()
}

// cached returns the current token when it is inside its validity margin.
func (k *tokenKeeper) cached() (Token, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.current == nil {
		return Token{}, false
	}
	if !k.current.Valid(WithExpirySkew(k.skew), WithNow(k.now)) {
		return Token{}, false
	}
	return *k.current, true
}
