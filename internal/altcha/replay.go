package altcha

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Yiling-J/theine-go"
)

// ErrReplayed is returned when a solved challenge is submitted a second time.
var ErrReplayed = errors.New("altcha: solution already used")

// ReplayGuard remembers solved challenges until they expire so each can be
// redeemed once.
type ReplayGuard struct {
	mu    sync.Mutex
	cache *theine.Cache[string, struct{}]
	ttl   time.Duration
}

// NewReplayGuard creates a guard holding at most size entries. Entries
// without an expiry in their salt are kept for ttl.
func NewReplayGuard(size int64, ttl time.Duration) (*ReplayGuard, error) {
	cache, err := theine.NewBuilder[string, struct{}](size).Build()
	if err != nil {
		return nil, fmt.Errorf("altcha: build replay cache: %w", err)
	}
	return &ReplayGuard{cache: cache, ttl: ttl}, nil
}

// Claim records p as used. It returns ErrReplayed if it already was.
func (g *ReplayGuard) Claim(p Payload, now time.Time) error {
	ttl := g.ttl
	if expires, ok := p.Expiry(); ok {
		if d := expires.Sub(now); d > 0 {
			ttl = d
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, seen := g.cache.Get(p.Signature); seen {
		return ErrReplayed
	}
	g.cache.SetWithTTL(p.Signature, struct{}{}, 1, ttl)
	return nil
}

// Close releases the cache's background resources.
func (g *ReplayGuard) Close() {
	g.cache.Close()
}

// Verifier checks payloads against a key and, when a guard is set, rejects
// reuse.
type Verifier struct {
	HMACKey string
	Guard   *ReplayGuard
	Now     func() time.Time
}

// Verify decodes and checks encoded, then claims it.
func (v *Verifier) Verify(encoded string) error {
	now := time.Now()
	if v.Now != nil {
		now = v.Now()
	}
	p, err := VerifySolution(encoded, v.HMACKey, now)
	if err != nil {
		return err
	}
	if v.Guard == nil {
		return nil
	}
	return v.Guard.Claim(p, now)
}
