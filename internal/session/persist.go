package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	_ Persister = (*MemoryPersister)(nil)
	_ Persister = (*RedisPersister)(nil)
	_ expiring  = (*MemoryPersister)(nil)
)

type memoryEntry struct {
	snap      Snapshot
	expiresAt time.Time
}

// MemoryPersister keeps snapshots in process memory with an idle TTL.
type MemoryPersister struct {
	mu       sync.Mutex
	entries  map[string]memoryEntry
	ttl      time.Duration
	now      func() time.Time
	expireFn func(id string)
}

// MemoryOption configures a MemoryPersister.
type MemoryOption func(*MemoryPersister)

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) MemoryOption {
	return func(p *MemoryPersister) { p.now = now }
}

// NewMemoryPersister constructs a MemoryPersister. ttl <= 0 disables expiry.
func NewMemoryPersister(ttl time.Duration, opts ...MemoryOption) *MemoryPersister {
	p := &MemoryPersister{entries: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *MemoryPersister) onExpire(fn func(id string)) {
	p.mu.Lock()
	p.expireFn = fn
	p.mu.Unlock()
}

// Load implements Persister. An expired entry is dropped on first sight.
func (p *MemoryPersister) Load(_ context.Context, id string) (Snapshot, bool, error) {
	p.mu.Lock()
	entry, ok := p.entries[id]
	if ok && p.expired(entry) {
		delete(p.entries, id)
		fn := p.expireFn
		p.mu.Unlock()
		if fn != nil {
			fn(id)
		}
		return Snapshot{}, false, nil
	}
	p.mu.Unlock()
	if !ok {
		return Snapshot{}, false, nil
	}
	return entry.snap, true, nil
}

// Save implements Persister.
func (p *MemoryPersister) Save(_ context.Context, id string, snap Snapshot) error {
	entry := memoryEntry{snap: snap}
	if p.ttl > 0 {
		entry.expiresAt = p.now().Add(p.ttl)
	}
	p.mu.Lock()
	p.entries[id] = entry
	p.mu.Unlock()
	return nil
}

// Delete implements Persister.
func (p *MemoryPersister) Delete(_ context.Context, id string) error {
	p.mu.Lock()
	delete(p.entries, id)
	p.mu.Unlock()
	return nil
}

// Each implements Persister. Expired entries are purged along the way.
func (p *MemoryPersister) Each(ctx context.Context, fn func(id string) error) error {
	p.mu.Lock()
	ids := make([]string, 0, len(p.entries))
	var expired []string
	for id, entry := range p.entries {
		if p.expired(entry) {
			delete(p.entries, id)
			expired = append(expired, id)
			continue
		}
		ids = append(ids, id)
	}
	onExpire := p.expireFn
	p.mu.Unlock()
	if onExpire != nil {
		for _, id := range expired {
			onExpire(id)
		}
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(id); err != nil {
			return err
		}
	}
	return nil
}

func (p *MemoryPersister) expired(entry memoryEntry) bool {
	return !entry.expiresAt.IsZero() && p.now().After(entry.expiresAt)
}

const redisKeyPrefix = "cart:session:"

// RedisPersister stores each snapshot as JSON under cart:session:<id>.
type RedisPersister struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPersister constructs a RedisPersister. Every save refreshes the TTL.
func NewRedisPersister(client *redis.Client, ttl time.Duration) *RedisPersister {
	return &RedisPersister{client: client, ttl: ttl}
}

// Load implements Persister.
func (p *RedisPersister) Load(ctx context.Context, id string) (Snapshot, bool, error) {
	data, err := p.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

// Save implements Persister.
func (p *RedisPersister) Save(ctx context.Context, id string, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return p.client.Set(ctx, redisKeyPrefix+id, data, p.ttl).Err()
}

// Delete implements Persister.
func (p *RedisPersister) Delete(ctx context.Context, id string) error {
	return p.client.Del(ctx, redisKeyPrefix+id).Err()
}

// Each implements Persister using SCAN so large keyspaces are not blocked.
func (p *RedisPersister) Each(ctx context.Context, fn func(id string) error) error {
	iter := p.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := fn(strings.TrimPrefix(iter.Val(), redisKeyPrefix)); err != nil {
			return err
		}
	}
	return iter.Err()
}
