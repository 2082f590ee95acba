package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/tarea-editor/internal/document"
	"github.com/gokatarajesh/tarea-editor/internal/editor"
	"github.com/gokatarajesh/tarea-editor/internal/metrics"
	ws "github.com/gokatarajesh/tarea-editor/pkg/http/ws"
)

// memStore keeps documents per tarea in memory.
type memStore struct {
	mu   sync.Mutex
	docs map[int]map[int]document.Document
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[int]map[int]document.Document)}
}

func (s *memStore) ListVersions(_ context.Context, tareaID int) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	versions := []int{}
	for v := range s.docs[tareaID] {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	return versions, nil
}

func (s *memStore) GetDocument(_ context.Context, tareaID, version int) (document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[tareaID][version]
	if !ok {
		return document.Document{}, editor.ErrNotFound
	}
	return doc.Clone(), nil
}

func (s *memStore) PutDocument(_ context.Context, tareaID int, doc document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docs[tareaID] == nil {
		s.docs[tareaID] = make(map[int]document.Document)
	}
	s.docs[tareaID][doc.Version] = doc.Clone()
	return nil
}

func (s *memStore) DeleteDocument(_ context.Context, tareaID, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[tareaID][version]; !ok {
		return editor.ErrNotFound
	}
	delete(s.docs[tareaID], version)
	return nil
}

type published struct {
	topic string
	msg   ws.Message
}

// recordingPublisher remembers every message and closed topic.
type recordingPublisher struct {
	mu       sync.Mutex
	messages []published
	closed   []string
}

func (p *recordingPublisher) Publish(topic string, msg ws.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, published{topic: topic, msg: msg})
	return nil
}

func (p *recordingPublisher) CloseTopic(topic string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = append(p.closed, topic)
}

func (p *recordingPublisher) types(topic string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, m := range p.messages {
		if m.topic == topic {
			out = append(out, m.msg.Type)
		}
	}
	return out
}

// fakeRedis implements redisKV over a map.
type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

type testEnv struct {
	store     *memStore
	publisher *recordingPublisher
	redis     *fakeRedis
	registry  *prometheus.Registry
	manager   *Manager
}

func newTestEnv() *testEnv {
	env := &testEnv{
		store:     newMemStore(),
		publisher: &recordingPublisher{},
		redis:     newFakeRedis(),
		registry:  prometheus.NewRegistry(),
	}
	env.manager = NewManager(ManagerOptions{
		Store:     env.store,
		Snapshots: NewRedisSnapshots(env.redis, time.Hour),
		Publisher: env.publisher,
		Metrics:   metrics.New(env.registry),
	}, zerolog.Nop())
	seq := 0
	env.manager.newID = func() string {
		seq++
		return fmt.Sprintf("sess-%d", seq)
	}
	return env
}
