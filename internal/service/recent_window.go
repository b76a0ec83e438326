package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// RecentWindow remembers the last questions served to a user in Endless mode.
type RecentWindow interface {
	Recent(ctx context.Context, userID uint) ([]string, error)
	Push(ctx context.Context, userID uint, keys ...string) error
}

// RedisRecentWindow keeps one capped list per user.
type RedisRecentWindow struct {
	Client *redis.Client
	Size   int
	TTL    time.Duration
}

func NewRedisRecentWindow(client *redis.Client, size int) *RedisRecentWindow {
	return &RedisRecentWindow{Client: client, Size: size, TTL: 24 * time.Hour}
}

func (w *RedisRecentWindow) key(userID uint) string {
	return "endless:recent:" + strconv.FormatUint(uint64(userID), 10)
}

func (w *RedisRecentWindow) Recent(ctx context.Context, userID uint) ([]string, error) {
	keys, err := w.Client.LRange(ctx, w.key(userID), 0, int64(w.Size-1)).Result()
	if err != nil && err != redis.Nil {
		return nil, errors.Wrap(err, "read recent window")
	}
	return keys, nil
}

func (w *RedisRecentWindow) Push(ctx context.Context, userID uint, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	values := make([]interface{}, len(keys))
	for i, k := range keys {
		values[i] = k
	}
	key := w.key(userID)
	_, err := w.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, values...)
		pipe.LTrim(ctx, key, 0, int64(w.Size-1))
		pipe.Expire(ctx, key, w.TTL)
		return nil
	})
	return errors.Wrap(err, "push recent window")
}

// MemoryRecentWindow is used when redis is disabled; it is per process.
type MemoryRecentWindow struct {
	Size int

	mu     sync.Mutex
	recent map[uint][]string
}

func NewMemoryRecentWindow(size int) *MemoryRecentWindow {
	return &MemoryRecentWindow{Size: size, recent: make(map[uint][]string)}
}

// Recent returns newest first, like the redis list.
func (w *MemoryRecentWindow) Recent(_ context.Context, userID uint) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	keys := w.recent[userID]
	out := make([]string, len(keys))
	for i, k := range keys {
		out[len(keys)-1-i] = k
	}
	return out, nil
}

func (w *MemoryRecentWindow) Push(_ context.Context, userID uint, keys ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	list := append(w.recent[userID], keys...)
	if over := len(list) - w.Size; over > 0 {
		list = append([]string(nil), list[over:]...)
	}
	w.recent[userID] = list
	return nil
}
