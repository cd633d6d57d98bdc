package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultFeedLimit bounds how many notifications a session keeps.
const DefaultFeedLimit = 20

// Feed stores notifications per session, newest first.
type Feed interface {
	For(sessionID string) Sink
	List(ctx context.Context, sessionID string) ([]Notification, error)
	Dismiss(ctx context.Context, sessionID, notificationID string) error
	Clear(ctx context.Context, sessionID string) error
}

var (
	_ Feed = (*MemoryFeed)(nil)
	_ Feed = (*RedisFeed)(nil)
)

// MemoryFeed keeps notifications in process memory.
type MemoryFeed struct {
	mu    sync.Mutex
	items map[string][]Notification
	limit int
	now   func() time.Time
}

// NewMemoryFeed constructs a MemoryFeed. limit <= 0 uses DefaultFeedLimit.
func NewMemoryFeed(limit int) *MemoryFeed {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	return &MemoryFeed{items: make(map[string][]Notification), limit: limit, now: time.Now}
}

// For returns a Sink appending to sessionID's feed.
func (f *MemoryFeed) For(sessionID string) Sink {
	return SinkFunc(func(_ context.Context, message string, severity Severity) {
		n := newNotification(message, severity, f.now())
		f.mu.Lock()
		defer f.mu.Unlock()
		list := append([]Notification{n}, f.items[sessionID]...)
		if len(list) > f.limit {
			list = list[:f.limit]
		}
		f.items[sessionID] = list
	})
}

// List returns sessionID's notifications, newest first.
func (f *MemoryFeed) List(_ context.Context, sessionID string) ([]Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Notification{}, f.items[sessionID]...), nil
}

// Dismiss removes one notification.
func (f *MemoryFeed) Dismiss(_ context.Context, sessionID, notificationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.items[sessionID]
	out := make([]Notification, 0, len(list))
	for _, n := range list {
		if n.ID != notificationID {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		delete(f.items, sessionID)
		return nil
	}
	f.items[sessionID] = out
	return nil
}

// Clear drops sessionID's whole feed.
func (f *MemoryFeed) Clear(_ context.Context, sessionID string) error {
	f.mu.Lock()
	delete(f.items, sessionID)
	f.mu.Unlock()
	return nil
}

// Sessions reports how many sessions currently hold notifications.
func (f *MemoryFeed) Sessions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// RedisFeed keeps each session's notifications in a capped Redis list.
type RedisFeed struct {
	client *redis.Client
	ttl    time.Duration
	limit  int
	log    zerolog.Logger
	now    func() time.Time
}

// NewRedisFeed constructs a RedisFeed whose lists expire with the session ttl.
func NewRedisFeed(client *redis.Client, ttl time.Duration, limit int, logger zerolog.Logger) *RedisFeed {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	return &RedisFeed{client: client, ttl: ttl, limit: limit, log: logger, now: time.Now}
}

func feedKey(sessionID string) string {
	return "cart:notifications:" + sessionID
}

// For returns a Sink pushing onto sessionID's list. Write failures are logged.
func (f *RedisFeed) For(sessionID string) Sink {
	return SinkFunc(func(ctx context.Context, message string, severity Severity) {
		data, err := json.Marshal(newNotification(message, severity, f.now()))
		if err != nil {
			f.log.Error().Err(err).Msg("encode notification")
			return
		}
		key := feedKey(sessionID)
		pipe := f.client.TxPipeline()
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, int64(f.limit-1))
		if f.ttl > 0 {
			pipe.Expire(ctx, key, f.ttl)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			f.log.Error().Err(err).Str("session_id", sessionID).Msg("push notification")
		}
	})
}

// List returns sessionID's notifications, newest first.
func (f *RedisFeed) List(ctx context.Context, sessionID string) ([]Notification, error) {
	raw, err := f.client.LRange(ctx, feedKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Notification, 0, len(raw))
	for _, item := range raw {
		var n Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// Dismiss removes one notification.
func (f *RedisFeed) Dismiss(ctx context.Context, sessionID, notificationID string) error {
	key := feedKey(sessionID)
	raw, err := f.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return err
	}
	for _, item := range raw {
		var n Notification
		if err := json.Unmarshal([]byte(item), &n); err == nil && n.ID == notificationID {
			return f.client.LRem(ctx, key, 1, item).Err()
		}
	}
	return nil
}

// Clear drops sessionID's whole feed.
func (f *RedisFeed) Clear(ctx context.Context, sessionID string) error {
	return f.client.Del(ctx, feedKey(sessionID)).Err()
}
