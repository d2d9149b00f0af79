package domain

import (
	"context"
	"time"
)

const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// StatsEvent representa o resultado de uma requisição ou de um dispatch.
//
// Cuidado com cardinalidade: Route deve ser o path registrado, nunca o path cru.
type StatsEvent struct {
	Route   string
	Outcome string
	At      time.Time
}

// StatsStore persiste estatísticas. É best-effort: erro não derruba request.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
