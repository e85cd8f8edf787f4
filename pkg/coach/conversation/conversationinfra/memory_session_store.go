package conversationinfra

import (
	"context"
	"time"

	"github.com/Abraxas-365/certcoach/pkg/coach/conversation"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemorySessionStore implementación en memoria del SessionStore, para
// desarrollo local sin Redis. Capacity-bounded LRU with idle eviction;
// per-entry TTLs are honored on read.
type MemorySessionStore struct {
	entries *expirable.LRU[string, memoryEntry]
}

// NewMemorySessionStore crea un session store en memoria.
// maxIdle caps how long an untouched entry can linger regardless of its TTL.
func NewMemorySessionStore(capacity int, maxIdle time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		entries: expirable.NewLRU[string, memoryEntry](capacity, nil, maxIdle),
	}
}

func (s *MemorySessionStore) Get(ctx context.Context, key conversation.SessionKey) ([]byte, bool, error) {
	entry, ok := s.entries.Get(key.String())
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		s.entries.Remove(key.String())
		return nil, false, nil
	}
	return entry.payload, true, nil
}

func (s *MemorySessionStore) Set(ctx context.Context, key conversation.SessionKey, payload []byte, ttl time.Duration) error {
	s.entries.Add(key.String(), memoryEntry{
		payload:   payload,
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, key conversation.SessionKey) error {
	s.entries.Remove(key.String())
	return nil
}
