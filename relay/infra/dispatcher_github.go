package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rebuild-relay/relay/domain"
)

const (
	DefaultGitHubAPIBase = "https://api.github.com"
	githubAPIVersion     = "2022-11-28"
	userAgent            = "rebuild-relay"

	// maxDrainBody limita o quanto da resposta é lido, com sucesso ou não.
	maxDrainBody = 4 << 10
)

// GitHubDispatcher dispara repository_dispatch no repositório ("owner/repo").
//
// Não faz retry. Credencial/alvo ausentes falham antes de qualquer chamada de rede.
type GitHubDispatcher struct {
	client  *http.Client
	token   string
	repo    string
	apiBase string
}

type GitHubOption func(*GitHubDispatcher)

func WithGitHubAPIBase(base string) GitHubOption {
	return func(d *GitHubDispatcher) {
		if base = strings.TrimRight(strings.TrimSpace(base), "/"); base != "" {
			d.apiBase = base
		}
	}
}

func WithHTTPClient(c *http.Client) GitHubOption {
	return func(d *GitHubDispatcher) {
		if c != nil {
			d.client = c
		}
	}
}

func WithDispatchTimeout(timeout time.Duration) GitHubOption {
	return func(d *GitHubDispatcher) {
		if timeout > 0 {
			d.client = &http.Client{Timeout: timeout}
		}
	}
}

func NewGitHubDispatcher(token, repo string, opts ...GitHubOption) *GitHubDispatcher {
	d := &GitHubDispatcher{
		client:  &http.Client{Timeout: 10 * time.Second},
		token:   strings.TrimSpace(token),
		repo:    strings.Trim(strings.TrimSpace(repo), "/"),
		apiBase: DefaultGitHubAPIBase,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type dispatchBody struct {
	EventType     string `json:"event_type"`
	ClientPayload any    `json:"client_payload"`
}

// Dispatch usa o repositório padrão.
func (d *GitHubDispatcher) Dispatch(ctx context.Context, eventType string, clientPayload any) error {
	return d.DispatchTo(ctx, d.repo, eventType, clientPayload)
}

func (d *GitHubDispatcher) DispatchTo(ctx context.Context, repo string, eventType string, clientPayload any) error {
	if d.token == "" {
		return domain.ConfigurationError("missing GitHub token")
	}
	repo = strings.Trim(strings.TrimSpace(repo), "/")
	if repo == "" || strings.Count(repo, "/") != 1 {
		return domain.ConfigurationError("missing or invalid dispatch repository")
	}

	body, err := json.Marshal(dispatchBody{EventType: eventType, ClientPayload: clientPayload})
	if err != nil {
		return fmt.Errorf("encode dispatch body: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/dispatches", d.apiBase, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build dispatch request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Api-Version", githubAPIVersion)
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return &domain.UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBody))
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxDrainBody))
	return domain.NewUpstreamError(resp.StatusCode, raw)
}

var _ domain.TargetedDispatcher = (*GitHubDispatcher)(nil)
