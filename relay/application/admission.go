package application

import (
	"context"
	"time"

	"rebuild-relay/relay/domain"
)

// AdmissionService concentra rate limit e limite de concorrência dos webhooks,
// sem saber nada sobre HTTP.
type AdmissionService struct {
	Limits domain.LimiterStore
	Slots  domain.SlotPool
	// AcquireTimeout <= 0 espera uma vaga até o ctx cancelar.
	AcquireTimeout time.Duration
	// MinRetryAfter é o piso do Retry-After devolvido quando o limiter nega.
	MinRetryAfter time.Duration
	Now           func() time.Time
}

// Admit decide a entrada de uma requisição da origem source vinda de client.
// Cada origem tem seus próprios buckets, então rajadas de conteúdo não
// bloqueiam deploys. Se Allowed, release deve ser chamado ao final.
func (s AdmissionService) Admit(ctx context.Context, source, client string) (func(), domain.Admission) {
	noop := func() {}

	if s.Limits != nil {
		now := time.Now()
		if s.Now != nil {
			now = s.Now()
		}
		if lim := s.Limits.Get(source + "|" + client); lim != nil {
			if ok, wait := lim.Take(now); !ok {
				if wait < s.minRetry() {
					wait = s.minRetry()
				}
				return noop, domain.Admission{Reason: domain.AdmitRateLimited, RetryAfter: wait}
			}
		}
	}

	if s.Slots == nil {
		return noop, domain.Admission{Allowed: true}
	}

	acqCtx, cancel := ctx, func() {}
	if s.AcquireTimeout > 0 {
		acqCtx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
	}
	defer cancel()

	release, ok := s.Slots.Acquire(acqCtx)
	if !ok {
		return noop, domain.Admission{Reason: domain.AdmitBusy}
	}
	return release, domain.Admission{Allowed: true}
}

func (s AdmissionService) minRetry() time.Duration {
	if s.MinRetryAfter <= 0 {
		return time.Second
	}
	return s.MinRetryAfter
}
