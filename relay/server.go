package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"rebuild-relay/relay/application"
	"rebuild-relay/relay/domain"

	glog "github.com/goliatone/go-logger/glog"
)

const (
	RouteDeploy  = "/deploy-webhook"
	RouteContent = "/content-webhook"
	RouteCheck   = "/rebuild-check"

	SourceDeploy  = "deploy"
	SourceContent = "content"
	SourceCheck   = "check"
)

type ChangeRecorder interface {
	RecordChange(ctx context.Context, change domain.ChangeRecord) (application.RecordResult, error)
}

type RebuildChecker interface {
	CheckAndDispatch(ctx context.Context) (application.CheckResult, error)
}

type DeployHandler interface {
	Handle(ctx context.Context, ev domain.DeployEvent) error
}

// Secrets são os segredos compartilhados por origem. Vazio desliga a verificação.
type Secrets struct {
	Deploy  string
	Content string
	Check   string
}

type Options struct {
	Recorder ChangeRecorder
	Checker  RebuildChecker
	Deploy   DeployHandler

	Secrets      Secrets
	SecretHeader string
	MaxBodyBytes int64

	// Admission nil desliga rate limit e limite de concorrência.
	Admission *application.AdmissionService
	TrustXFF  bool

	OperationTimeout time.Duration
	Stats            domain.StatsStore
	Logger           glog.Logger
}

type server struct {
	opts   Options
	logger glog.Logger
}

// NewHandler monta as três rotas com seus middlewares.
func NewHandler(opts Options) http.Handler {
	if opts.SecretHeader == "" {
		opts.SecretHeader = "X-Webhook-Secret"
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	s := &server{opts: opts, logger: glog.Ensure(opts.Logger)}
	keyFn := ClientKeyFunc(opts.TrustXFF)

	mux := http.NewServeMux()
	mux.Handle("POST "+RouteDeploy, s.wrap(RouteDeploy, SourceDeploy, keyFn, http.HandlerFunc(s.handleDeploy)))
	mux.Handle("POST "+RouteContent, s.wrap(RouteContent, SourceContent, keyFn, http.HandlerFunc(s.handleContent)))
	mux.Handle("POST "+RouteCheck, s.wrap(RouteCheck, SourceCheck, keyFn, http.HandlerFunc(s.handleCheck)))
	return mux
}

func (s *server) wrap(route, source string, keyFn KeyFunc, h http.Handler) http.Handler {
	h = TimeoutMiddleware(s.opts.OperationTimeout)(h)
	h = AdmissionMiddleware(s.opts.Admission, source, keyFn)(h)
	h = StatsMiddleware(route, s.opts.Stats)(h)
	return h
}

func (s *server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	if !secretMatches(r, s.opts.SecretHeader, s.opts.Secrets.Deploy) {
		s.reject(w, r, domain.UnauthorizedError(SourceDeploy))
		return
	}
	var ev domain.DeployEvent
	if err := s.decode(w, r, &ev); err != nil {
		s.reject(w, r, err)
		return
	}
	if s.opts.Deploy == nil {
		writeError(w, domain.ConfigurationError("deploy path is not configured"))
		return
	}

	if err := s.opts.Deploy.Handle(r.Context(), ev); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"eventType": domain.EventRailwayDeploy,
		"projectId": ev.Project.ID,
	})
}

// contentEvent aceita docId ou id (formatos comuns de webhook de CMS).
type contentEvent struct {
	Collection string `json:"collection"`
	DocID      string `json:"docId"`
	ID         string `json:"id"`
}

func (s *server) handleContent(w http.ResponseWriter, r *http.Request) {
	if !secretMatches(r, s.opts.SecretHeader, s.opts.Secrets.Content) {
		s.reject(w, r, domain.UnauthorizedError(SourceContent))
		return
	}
	var ev contentEvent
	if err := s.decode(w, r, &ev); err != nil {
		s.reject(w, r, err)
		return
	}
	change := domain.ChangeRecord{
		Collection: strings.TrimSpace(ev.Collection),
		DocID:      strings.TrimSpace(ev.DocID),
	}
	if change.DocID == "" {
		change.DocID = strings.TrimSpace(ev.ID)
	}
	if change.Collection == "" {
		s.reject(w, r, domain.ValidationError("missing collection in payload", nil))
		return
	}
	if s.opts.Recorder == nil {
		writeError(w, domain.ConfigurationError("content path is not configured"))
		return
	}

	res, err := s.opts.Recorder.RecordChange(r.Context(), change)
	if err != nil {
		s.logger.Error("record content change failed",
			"collection", change.Collection,
			"doc_id", change.DocID,
			"error", err,
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if !secretMatches(r, s.opts.SecretHeader, s.opts.Secrets.Check) {
		s.reject(w, r, domain.UnauthorizedError(SourceCheck))
		return
	}
	if s.opts.Checker == nil {
		writeError(w, domain.ConfigurationError("rebuild check is not configured"))
		return
	}

	res, err := s.opts.Checker.CheckAndDispatch(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.ValidationError("payload too large", map[string]any{"limit": tooLarge.Limit})
		}
		return domain.ValidationError("invalid payload", nil)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return domain.ValidationError("invalid payload", nil)
	}
	return nil
}

func (s *server) reject(w http.ResponseWriter, r *http.Request, err error) {
	rich := domain.AsRelayError(err)
	s.logger.Warn("webhook rejected",
		"path", r.URL.Path,
		"code", rich.TextCode,
		"reason", rich.Message,
	)
	writeError(w, err)
}
