package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rebuild-relay/relay/application"
	"rebuild-relay/relay/domain"
	"rebuild-relay/relay/infra"
)

func TestAdmissionMiddleware_RateLimitsPerSource(t *testing.T) {
	rec := &fakeRecorder{}
	dep := &fakeDeploy{}
	h := NewHandler(Options{
		Recorder: rec,
		Deploy:   dep,
		Admission: &application.AdmissionService{
			Limits: infra.NewLimiterStore(0.02, 1),
		},
	})

	if w := post(h, RouteContent, `{"collection":"posts"}`, nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	// mesma origem + mesmo cliente: burst=1 esgotado
	w := post(h, RouteContent, `{"collection":"posts"}`, nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got == "" || got == "0" {
		t.Fatalf("expected Retry-After >= 1, got %q", got)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON error envelope, got content type %q", ct)
	}
	if got := errorCode(t, w); got != domain.ErrorRateLimited {
		t.Fatalf("expected %s, got %s", domain.ErrorRateLimited, got)
	}
	if len(rec.changes) != 1 {
		t.Fatalf("expected limited request to skip the scheduler, got %d changes", len(rec.changes))
	}

	// deploy tem bucket próprio
	if w := post(h, RouteDeploy, `{"project":{"id":"p-1"}}`, nil); w.Code != http.StatusOK {
		t.Fatalf("deploy should not share the content bucket, got %d", w.Code)
	}
}

func TestAdmissionMiddleware_BusyWhenNoSlot(t *testing.T) {
	pool := infra.NewChanPool(1)
	release, ok := pool.Acquire(context.Background())
	if !ok {
		t.Fatalf("expected to acquire the only slot")
	}
	defer release()

	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	})
	svc := &application.AdmissionService{Slots: pool, AcquireTimeout: 10 * time.Millisecond}
	h := AdmissionMiddleware(svc, SourceContent, nil)(next)

	r := httptest.NewRequest(http.MethodPost, "http://relay"+RouteContent, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if got := errorCode(t, w); got != domain.ErrorBusy {
		t.Fatalf("expected %s, got %s", domain.ErrorBusy, got)
	}
	if calls != 0 {
		t.Fatalf("next must not run without a slot")
	}
}

func TestClientKeyFunc(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "http://relay/", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	if got := ClientKeyFunc(false)(r); got != "10.0.0.9" {
		t.Fatalf("expected remote addr, got %q", got)
	}
	if got := ClientKeyFunc(true)(r); got != "203.0.113.7" {
		t.Fatalf("expected first XFF ip, got %q", got)
	}

	r.RemoteAddr = ""
	r.Header.Del("X-Forwarded-For")
	if got := ClientKeyFunc(true)(r); got != "unknown" {
		t.Fatalf("expected unknown, got %q", got)
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	cases := map[time.Duration]string{
		0:                       "1",
		300 * time.Millisecond:  "1",
		1500 * time.Millisecond: "2",
		50 * time.Second:        "50",
	}
	for d, want := range cases {
		if got := retryAfterSeconds(d); got != want {
			t.Fatalf("retryAfterSeconds(%s) = %s, want %s", d, got, want)
		}
	}
}

func TestTimeoutMiddleware_SetsDeadline(t *testing.T) {
	var hasDeadline bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	})
	h := TimeoutMiddleware(time.Second)(next)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "http://relay/", nil))
	if !hasDeadline {
		t.Fatalf("expected request context with deadline")
	}
}

func TestStatsMiddleware_ClassifiesOutcome(t *testing.T) {
	stats := infra.NewMemoryStatsStore()
	h := NewHandler(Options{
		Recorder: &fakeRecorder{},
		Secrets:  Secrets{Content: "s"},
		Stats:    stats,
	})

	post(h, RouteContent, `{"collection":"posts"}`, map[string]string{"X-Webhook-Secret": "s"})
	post(h, RouteContent, `{"collection":"posts"}`, nil)
	post(h, RouteCheck, "", nil) // sem checker: 500

	if got := stats.Count(RouteContent, domain.OutcomeAccepted); got != 1 {
		t.Fatalf("expected 1 accepted, got %d", got)
	}
	if got := stats.Count(RouteContent, domain.OutcomeRejected); got != 1 {
		t.Fatalf("expected 1 rejected, got %d", got)
	}
	if got := stats.Count(RouteCheck, domain.OutcomeFailed); got != 1 {
		t.Fatalf("expected 1 failed, got %d", got)
	}
}
