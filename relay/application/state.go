package application

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"rebuild-relay/relay/domain"

	glog "github.com/goliatone/go-logger/glog"
)

const (
	DefaultDebounceDelay   = 30 * time.Second
	DefaultBatchTTLBuffer  = 60 * time.Second
	DefaultMarkerTTLBuffer = 120 * time.Second
	DefaultKeyPrefix       = "relay:debounce"
)

// Keys são as chaves fixas do batch e do marcador no store.
type Keys struct {
	Batch  string
	Marker string
}

func NewKeys(prefix string) Keys {
	prefix = strings.Trim(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		return Keys{Batch: domain.PendingBatchKey, Marker: domain.ScheduledRebuildKey}
	}
	return Keys{
		Batch:  prefix + ":" + domain.PendingBatchKey,
		Marker: prefix + ":" + domain.ScheduledRebuildKey,
	}
}

// Settings é compartilhado entre Debouncer e Checker; os dois precisam
// enxergar as mesmas chaves e o mesmo delay.
type Settings struct {
	Delay           time.Duration
	BatchTTLBuffer  time.Duration
	MarkerTTLBuffer time.Duration
	Keys            Keys
}

func DefaultSettings() Settings {
	return Settings{
		Delay:           DefaultDebounceDelay,
		BatchTTLBuffer:  DefaultBatchTTLBuffer,
		MarkerTTLBuffer: DefaultMarkerTTLBuffer,
		Keys:            NewKeys(DefaultKeyPrefix),
	}
}

func (s Settings) normalized() Settings {
	def := DefaultSettings()
	if s.Delay <= 0 {
		s.Delay = def.Delay
	}
	if s.BatchTTLBuffer <= 0 {
		s.BatchTTLBuffer = def.BatchTTLBuffer
	}
	if s.MarkerTTLBuffer <= 0 {
		s.MarkerTTLBuffer = def.MarkerTTLBuffer
	}
	if s.Keys.Batch == "" || s.Keys.Marker == "" {
		s.Keys = def.Keys
	}
	return s
}

// BatchTTL: delay + buffer, para o batch não crescer sem limite se o check nunca rodar.
func (s Settings) BatchTTL() time.Duration { return s.Delay + s.BatchTTLBuffer }

func (s Settings) MarkerTTL() time.Duration { return s.Delay + s.MarkerTTLBuffer }

// readJSON lê e decodifica a chave. Valor corrompido é tratado como ausente
// (e será sobrescrito no próximo commit); só falha do store vira erro.
func readJSON[T any](ctx context.Context, store domain.KVStore, key string, logger glog.Logger) (T, bool, error) {
	var out T
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return out, false, domain.StoreError(err, "get", key)
	}
	if !ok {
		return out, false, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		logger.Warn("discarding undecodable store value", "key", key, "error", err)
		var zero T
		return zero, false, nil
	}
	return out, true, nil
}

func writeJSON(ctx context.Context, store domain.KVStore, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := store.Put(ctx, key, raw, ttl); err != nil {
		return domain.StoreError(err, "put", key)
	}
	return nil
}
