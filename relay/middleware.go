package relay

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rebuild-relay/relay/application"
	"rebuild-relay/relay/domain"
)

type KeyFunc func(r *http.Request) string

// ClientKeyFunc identifica o cliente pelo IP.
func ClientKeyFunc(trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if trustXFF {
			// primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

// AdmissionMiddleware aplica rate limit (429 + Retry-After) e limite de
// concorrência (503) por origem de webhook.
func AdmissionMiddleware(svc *application.AdmissionService, source string, keyFn KeyFunc) func(next http.Handler) http.Handler {
	if svc == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if keyFn == nil {
		keyFn = ClientKeyFunc(false)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, adm := svc.Admit(r.Context(), source, keyFn(r))
			if !adm.Allowed {
				if adm.Reason == domain.AdmitRateLimited {
					w.Header().Set("Retry-After", retryAfterSeconds(adm.RetryAfter))
					writeError(w, domain.RateLimitedError(source, adm.RetryAfter))
					return
				}
				writeError(w, domain.BusyError(source))
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}

// retryAfterSeconds arredonda para cima: Retry-After só aceita segundos inteiros.
func retryAfterSeconds(d time.Duration) string {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		s = 1
	}
	return strconv.Itoa(s)
}

// TimeoutMiddleware limita store + dispatch de cada request.
func TimeoutMiddleware(d time.Duration) func(next http.Handler) http.Handler {
	if d <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) code() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// StatsMiddleware grava o resultado de cada request (best-effort).
func StatsMiddleware(route string, stats domain.StatsStore) func(next http.Handler) http.Handler {
	if stats == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			outcome := domain.OutcomeAccepted
			switch code := rec.code(); {
			case code >= 500:
				outcome = domain.OutcomeFailed
			case code >= 400:
				outcome = domain.OutcomeRejected
			}
			// o contexto do request pode já ter vencido
			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), time.Second)
			defer cancel()
			_ = stats.Record(ctx, domain.StatsEvent{Route: route, Outcome: outcome, At: time.Now()})
		})
	}
}
