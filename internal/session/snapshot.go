package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gokatarajesh/tarea-editor/internal/editor"
)

// ErrNoSnapshot is returned when no draft is stored for a session.
var ErrNoSnapshot = errors.New("no session snapshot")

// SnapshotStore persists session drafts so an open session survives a restart.
type SnapshotStore interface {
	Save(ctx context.Context, d editor.Draft) error
	Load(ctx context.Context, sessionID string) (editor.Draft, error)
	Delete(ctx context.Context, sessionID string) error
}

type redisKV interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisSnapshots keeps one JSON draft per session under editor:session:{id}.
type RedisSnapshots struct {
	client redisKV
	ttl    time.Duration
	prefix string
}

func NewRedisSnapshots(client redisKV, ttl time.Duration) *RedisSnapshots {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &RedisSnapshots{client: client, ttl: ttl, prefix: "editor:session:"}
}

func (s *RedisSnapshots) key(sessionID string) string {
	return s.prefix + sessionID
}

// Save overwrites the draft and refreshes its TTL.
func (s *RedisSnapshots) Save(ctx context.Context, d editor.Draft) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := s.client.Set(ctx, s.key(d.SessionID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("store draft: %w", err)
	}
	return nil
}

func (s *RedisSnapshots) Load(ctx context.Context, sessionID string) (editor.Draft, error) {
	payload, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return editor.Draft{}, ErrNoSnapshot
	}
	if err != nil {
		return editor.Draft{}, fmt.Errorf("load draft: %w", err)
	}
	var d editor.Draft
	if err := json.Unmarshal(payload, &d); err != nil {
		return editor.Draft{}, fmt.Errorf("decode draft: %w", err)
	}
	return d, nil
}

func (s *RedisSnapshots) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}

// NopSnapshots is used when Redis is not configured.
type NopSnapshots struct{}

func (NopSnapshots) Save(context.Context, editor.Draft) error { return nil }
func (NopSnapshots) Load(context.Context, string) (editor.Draft, error) {
	return editor.Draft{}, ErrNoSnapshot
}
func (NopSnapshots) Delete(context.Context, string) error { return nil }
