package main

import (
	"testing"

	"rebuild-relay/relay/config"
)

func TestCheckBackend(t *testing.T) {
	cfg := config.DefaultConfig()

	cfg.Store.Backend = config.BackendMemory
	if err := checkBackend(cfg); err == nil {
		t.Fatalf("expected memory backend to be rejected")
	}

	for _, backend := range []string{config.BackendRedis, config.BackendMongo} {
		cfg.Store.Backend = backend
		if err := checkBackend(cfg); err != nil {
			t.Fatalf("backend %s: unexpected error: %v", backend, err)
		}
	}
}
