package identity

import (
	"context"
	"strings"
	"sync"
	"time"
)

// cacheTTL is how long a successful validation is served without
// re-contacting the provider. Failures are never cached.
const cacheTTL = 5 * time.Minute

type cacheEntry struct {
	session   Session
	expiresAt time.Time
}

// Validator wraps a Provider with bearer-header parsing and a short-lived
// positive-result cache keyed by the raw token string. Safe for concurrent
// use; the map is mutex-protected.
type Validator struct {
	provider Provider
	now      func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewValidator builds a Validator over the given provider.
func NewValidator(provider Provider) *Validator {
	return &Validator{
		provider: provider,
		now:      time.Now,
		cache:    make(map[string]cacheEntry),
	}
}

// SetClock overrides the time source; tests use it to cross cache expiry.
func (v *Validator) SetClock(now func() time.Time) { v.now = now }

// ValidateBearer validates an Authorization header value. Missing or
// non-Bearer headers are rejected without contacting the provider.
func (v *Validator) ValidateBearer(ctx context.Context, header string) Session {
	if header == "" {
		return Session{Valid: false, Error: "missing Authorization header"}
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return Session{Valid: false, Error: "Authorization header must use the Bearer scheme"}
	}
	return v.ValidateToken(ctx, token)
}

// ValidateToken returns the cached session for this exact token when a
// non-expired entry exists, otherwise delegates to the provider. Successful
// results are cached for five minutes; an expired entry is logically absent.
func (v *Validator) ValidateToken(ctx context.Context, token string) Session {
	now := v.now()

	v.mu.Lock()
	if entry, ok := v.cache[token]; ok {
		if now.Before(entry.expiresAt) {
			v.mu.Unlock()
			return entry.session
		}
		delete(v.cache, token)
	}
	v.mu.Unlock()

	session := v.provider.ValidateToken(ctx, token)
	if !session.Valid {
		return session
	}

	v.mu.Lock()
	v.cache[token] = cacheEntry{session: session, expiresAt: now.Add(cacheTTL)}
	// Opportunistic purge: drop whatever else has expired while we hold the lock.
	for k, e := range v.cache {
		if !now.Before(e.expiresAt) {
			delete(v.cache, k)
		}
	}
	v.mu.Unlock()

	return session
}

// Invalidate drops any cached entry for the token (used when a session is
// revoked through the key-management API).
func (v *Validator) Invalidate(token string) {
	v.mu.Lock()
	delete(v.cache, token)
	v.mu.Unlock()
}
