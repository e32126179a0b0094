package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "session:revoked:"

// Revoker records logged-out sessions until their tokens expire.
type Revoker interface {
	Revoke(ctx context.Context, sessionID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// MemoryRevoker keeps revoked sessions in process memory.
type MemoryRevoker struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevoker constructs an in-memory revoker.
func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{entries: map[string]time.Time{}, now: time.Now}
}

// Revoke also drops entries whose tokens have already expired.
func (m *MemoryRevoker) Revoke(_ context.Context, sessionID string, expiresAt time.Time) error {
	now := m.now()
	if !expiresAt.After(now) {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, exp := range m.entries {
		if now.After(exp) {
			delete(m.entries, id)
		}
	}
	m.entries[sessionID] = expiresAt
	return nil
}

// size reports how many revocations are held.
func (m *MemoryRevoker) size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryRevoker) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	m.mu.RLock()
	expiresAt, ok := m.entries[sessionID]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if m.now().After(expiresAt) {
		m.mu.Lock()
		delete(m.entries, sessionID)
		m.mu.Unlock()
		return false, nil
	}
	return true, nil
}

// RedisRevoker stores revoked sessions as keys that expire with the token.
type RedisRevoker struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisRevoker wraps an existing client.
func NewRedisRevoker(client *redis.Client) *RedisRevoker {
	return &RedisRevoker{client: client, now: time.Now}
}

func (r *RedisRevoker) Revoke(ctx context.Context, sessionID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedKeyPrefix+sessionID, "1", ttl).Err()
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKeyPrefix+sessionID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
