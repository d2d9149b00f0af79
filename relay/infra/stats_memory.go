package infra

import (
	"context"
	"sync"

	"rebuild-relay/relay/domain"
)

// MemoryStatsStore conta eventos por rota e resultado, em memória.
// Útil para testes e desenvolvimento; não expira nada.
type MemoryStatsStore struct {
	mu      sync.Mutex
	total   map[string]int64
	byRoute map[string]map[string]int64
}

func NewMemoryStatsStore() *MemoryStatsStore {
	return &MemoryStatsStore{
		total:   make(map[string]int64),
		byRoute: make(map[string]map[string]int64),
	}
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total[ev.Outcome]++
	r := s.byRoute[ev.Route]
	if r == nil {
		r = make(map[string]int64)
		s.byRoute[ev.Route] = r
	}
	r[ev.Outcome]++
	return nil
}

// Count retorna o contador de route/outcome. route vazio = total.
func (s *MemoryStatsStore) Count(route, outcome string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if route == "" {
		return s.total[outcome]
	}
	return s.byRoute[route][outcome]
}

var _ domain.StatsStore = (*MemoryStatsStore)(nil)
