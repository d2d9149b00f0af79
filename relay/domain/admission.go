package domain

import (
	"context"
	"time"
)

// Limiter decide se uma requisição pode entrar agora.
// Quando nega, retryAfter é a estimativa de quando haverá token.
type Limiter interface {
	Take(now time.Time) (ok bool, retryAfter time.Duration)
}

// LimiterStore obtém um limiter por chave (ex: "content-webhook|10.0.0.1").
type LimiterStore interface {
	Get(key string) Limiter
}

// SlotPool representa um recurso com capacidade finita (requisições em voo).
//
// Acquire bloqueia até conseguir uma vaga ou até o ctx encerrar.
// Ao adquirir, retorna uma função de release que deve ser chamada exatamente uma vez.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}

const (
	AdmitOK          = ""
	AdmitRateLimited = "rate_limited"
	AdmitBusy        = "busy"
)

// Admission é a decisão de entrada de um webhook.
type Admission struct {
	Allowed    bool
	Reason     string
	RetryAfter time.Duration
}
