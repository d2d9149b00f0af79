package application

import (
	"context"

	"rebuild-relay/relay/domain"

	glog "github.com/goliatone/go-logger/glog"
)

// RecordResult é o retorno de RecordChange.
//
// Triggered é sempre false: o caminho de gravação nunca faz dispatch,
// toda decisão de envio fica no Checker.
type RecordResult struct {
	Triggered   bool  `json:"triggered"`
	Armed       bool  `json:"armed"`
	Pending     int   `json:"pending"`
	TriggerTime int64 `json:"triggerTime,omitempty"`
}

// Debouncer absorve mudanças de conteúdo num único batch pendente e decide
// quando uma nova janela precisa ser armada.
type Debouncer struct {
	Store    domain.KVStore
	Settings Settings
	Now      domain.Clock
	Logger   glog.Logger
}

// RecordChange anexa a mudança ao batch e arma o marcador se a janela anterior
// não existia ou já tinha ficado ociosa por mais que o delay.
//
// A comparação usa o LastUpdate do batch anterior: atividade contínua (gaps <= delay)
// nunca rearma o marcador, então o TriggerTime fica ancorado no primeiro evento.
// Se o marcador expirar antes de um check, o batch só some pelo TTL.
func (d Debouncer) RecordChange(ctx context.Context, change domain.ChangeRecord) (RecordResult, error) {
	if d.Store == nil {
		return RecordResult{}, domain.ConfigurationError("debounce store is not configured")
	}
	cfg := d.Settings.normalized()
	logger := glog.Ensure(d.Logger)

	prev, found, err := readJSON[domain.PendingBatch](ctx, d.Store, cfg.Keys.Batch, logger)
	if err != nil {
		return RecordResult{}, err
	}

	now := d.Now.UnixMilli()
	change.Timestamp = now

	next := domain.PendingBatch{LastUpdate: now}
	if found {
		next.PendingChanges = make([]domain.ChangeRecord, 0, len(prev.PendingChanges)+1)
		next.PendingChanges = append(next.PendingChanges, prev.PendingChanges...)
	}
	next.PendingChanges = append(next.PendingChanges, change)

	// commit 1: batch
	if err := writeJSON(ctx, d.Store, cfg.Keys.Batch, next, cfg.BatchTTL()); err != nil {
		return RecordResult{}, err
	}

	res := RecordResult{Pending: len(next.PendingChanges)}
	arm := !found || now-prev.LastUpdate > cfg.Delay.Milliseconds()
	if arm {
		marker := domain.ScheduledRebuild{
			TriggerTime: now + cfg.Delay.Milliseconds(),
			Type:        domain.EventContentUpdate,
		}
		// commit 2: marcador
		if err := writeJSON(ctx, d.Store, cfg.Keys.Marker, marker, cfg.MarkerTTL()); err != nil {
			return RecordResult{}, err
		}
		res.Armed = true
		res.TriggerTime = marker.TriggerTime
	}

	logger.Info("content change recorded",
		"collection", change.Collection,
		"doc_id", change.DocID,
		"pending", res.Pending,
		"armed", res.Armed,
	)
	return res, nil
}
