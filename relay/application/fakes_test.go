package application

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"rebuild-relay/relay/domain"
)

type fakeStore struct {
	mu     sync.Mutex
	values map[string][]byte
	ttls   map[string]time.Duration

	getErr    error
	putErr    error
	deleteErr error
	puts      int
	deletes   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		values: make(map[string][]byte),
		ttls:   make(map[string]time.Duration),
	}
}

func (s *fakeStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *fakeStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.puts++
	s.values[key] = append([]byte(nil), value...)
	s.ttls[key] = ttl
	return nil
}

func (s *fakeStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletes++
	for _, k := range keys {
		delete(s.values, k)
		delete(s.ttls, k)
	}
	return nil
}

func (s *fakeStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	return ok
}

func (s *fakeStore) snapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = string(v)
	}
	return out
}

func (s *fakeStore) batch(key string) domain.PendingBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b domain.PendingBatch
	_ = json.Unmarshal(s.values[key], &b)
	return b
}

func (s *fakeStore) marker(key string) domain.ScheduledRebuild {
	s.mu.Lock()
	defer s.mu.Unlock()
	var m domain.ScheduledRebuild
	_ = json.Unmarshal(s.values[key], &m)
	return m
}

type dispatchCall struct {
	target    string
	eventType string
	payload   any
}

type fakeDispatcher struct {
	calls []dispatchCall
	err   error
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, eventType string, payload any) error {
	return d.DispatchTo(ctx, "", eventType, payload)
}

func (d *fakeDispatcher) DispatchTo(_ context.Context, target, eventType string, payload any) error {
	d.calls = append(d.calls, dispatchCall{target: target, eventType: eventType, payload: payload})
	return d.err
}

// manualClock devolve o instante atual em ms desde a época, ajustável no teste.
type manualClock struct {
	ms int64
}

func (c *manualClock) now() time.Time { return time.UnixMilli(c.ms) }

func (c *manualClock) set(ms int64) { c.ms = ms }

var errBoom = errors.New("boom")

type fakeStats struct {
	events []domain.StatsEvent
}

func (s *fakeStats) Record(_ context.Context, ev domain.StatsEvent) error {
	s.events = append(s.events, ev)
	return nil
}
