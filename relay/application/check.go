package application

import (
	"context"
	"time"

	"rebuild-relay/relay/domain"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

const (
	CheckNoMarker   = "no_marker"
	CheckNotDue     = "not_due"
	CheckEmptyBatch = "empty_batch"
	CheckDispatched = "dispatched"
)

type CheckResult struct {
	Dispatched   bool   `json:"dispatched"`
	Reason       string `json:"reason"`
	TotalChanges int    `json:"totalChanges,omitempty"`
	BatchID      string `json:"batchId,omitempty"`
}

// Checker verifica se a janela armada venceu e, se sim, envia o batch.
type Checker struct {
	Store      domain.KVStore
	Dispatcher domain.Dispatcher
	Settings   Settings
	Now        domain.Clock
	// NewBatchID gera o batchId do payload. Se nil, usa UUID v4.
	NewBatchID func() string
	Stats      domain.StatsStore
	Logger     glog.Logger
}

// CheckAndDispatch só apaga o estado depois de um dispatch confirmado.
// Em falha de dispatch o batch e o marcador ficam, e o próximo check tenta de novo.
//
// Não há lock entre invocações: dois checks que leem o mesmo estado antes do
// delete podem disparar duas vezes.
func (c Checker) CheckAndDispatch(ctx context.Context) (CheckResult, error) {
	if c.Store == nil {
		return CheckResult{}, domain.ConfigurationError("debounce store is not configured")
	}
	if c.Dispatcher == nil {
		return CheckResult{}, domain.ConfigurationError("dispatcher is not configured")
	}
	cfg := c.Settings.normalized()
	logger := glog.Ensure(c.Logger)

	marker, found, err := readJSON[domain.ScheduledRebuild](ctx, c.Store, cfg.Keys.Marker, logger)
	if err != nil {
		return CheckResult{}, err
	}
	if !found {
		return CheckResult{Reason: CheckNoMarker}, nil
	}

	now := c.Now.UnixMilli()
	if !marker.Due(now) {
		return CheckResult{Reason: CheckNotDue}, nil
	}

	batch, found, err := readJSON[domain.PendingBatch](ctx, c.Store, cfg.Keys.Batch, logger)
	if err != nil {
		return CheckResult{}, err
	}
	if !found || len(batch.PendingChanges) == 0 {
		return CheckResult{Reason: CheckEmptyBatch}, nil
	}

	eventType := marker.Type
	if eventType == "" {
		eventType = domain.EventContentUpdate
	}
	payload := domain.BatchPayload{
		BatchID:        c.batchID(),
		BatchedChanges: batch.PendingChanges,
		TotalChanges:   len(batch.PendingChanges),
		Timestamp:      now,
	}

	if err := c.Dispatcher.Dispatch(ctx, eventType, payload); err != nil {
		c.record(ctx, domain.OutcomeFailed)
		logger.Error("batched dispatch failed, keeping pending state",
			"event_type", eventType,
			"batch_id", payload.BatchID,
			"total_changes", payload.TotalChanges,
			"error", err,
		)
		return CheckResult{}, err
	}

	// commit: batch e marcador juntos
	if err := c.Store.Delete(ctx, cfg.Keys.Batch, cfg.Keys.Marker); err != nil {
		logger.Error("dispatched batch but cleanup failed",
			"batch_id", payload.BatchID,
			"error", err,
		)
		return CheckResult{}, domain.StoreError(err, "delete", cfg.Keys.Batch)
	}
	c.record(ctx, domain.OutcomeAccepted)

	logger.Info("batched rebuild dispatched",
		"event_type", eventType,
		"batch_id", payload.BatchID,
		"total_changes", payload.TotalChanges,
	)
	return CheckResult{
		Dispatched:   true,
		Reason:       CheckDispatched,
		TotalChanges: payload.TotalChanges,
		BatchID:      payload.BatchID,
	}, nil
}

// Start roda CheckAndDispatch a cada intervalo numa goroutine.
// Pare cancelando o contexto. every <= 0 não inicia nada.
func (c Checker) Start(ctx context.Context, every time.Duration, timeout time.Duration) {
	if every <= 0 {
		return
	}
	logger := glog.Ensure(c.Logger)

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				runCtx, cancel := withOptionalTimeout(ctx, timeout)
				if _, err := c.CheckAndDispatch(runCtx); err != nil {
					logger.Warn("scheduled rebuild check failed", "error", err)
				}
				cancel()
			}
		}
	}()
}

func (c Checker) batchID() string {
	if c.NewBatchID != nil {
		return c.NewBatchID()
	}
	return uuid.NewString()
}

func (c Checker) record(ctx context.Context, outcome string) {
	if c.Stats == nil {
		return
	}
	_ = c.Stats.Record(ctx, domain.StatsEvent{
		Route:   "dispatch " + domain.EventContentUpdate,
		Outcome: outcome,
		At:      c.Now.Time(),
	})
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
