package utils

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const statePrefix = "oauth:state:"

// OAuthStateStore holds single-use OAuth state tokens.
type OAuthStateStore struct {
	rc      *redis.Client
	ttl     time.Duration
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewOAuthStateStore creates a store; rc may be nil. ttl defaults to ten minutes.
func NewOAuthStateStore(rc *redis.Client, ttl time.Duration) *OAuthStateStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &OAuthStateStore{rc: rc, ttl: ttl, entries: map[string]time.Time{}, now: time.Now}
}

// Issue generates and stores a fresh state token.
func (s *OAuthStateStore) Issue(ctx context.Context) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	state := hex.EncodeToString(buf)
	if s.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.rc.Set(ctx, statePrefix+state, "1", s.ttl).Err(); err == nil {
			return state, nil
		}
	}
	s.mu.Lock()
	s.entries[state] = s.now().Add(s.ttl)
	s.mu.Unlock()
	return state, nil
}

// Consume validates and removes a state token.
func (s *OAuthStateStore) Consume(ctx context.Context, state string) bool {
	if state == "" {
		return false
	}
	if s.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if v, err := s.rc.GetDel(ctx, statePrefix+state).Result(); err == nil && v != "" {
			return true
		}
	}
	s.mu.Lock()
	exp, ok := s.entries[state]
	if ok {
		delete(s.entries, state)
	}
	s.mu.Unlock()
	return ok && s.now().Before(exp)
}

// Prune drops expired in-memory states.
func (s *OAuthStateStore) Prune() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, exp := range s.entries {
		if !now.Before(exp) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}
