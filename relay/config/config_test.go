package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

// withSecrets completa env com os três segredos obrigatórios.
func withSecrets(env map[string]string) map[string]string {
	out := map[string]string{
		"DEPLOY_WEBHOOK_SECRET":  "d",
		"CONTENT_WEBHOOK_SECRET": "c",
		"CHECK_SECRET":           "k",
	}
	for k, v := range env {
		out[k] = v
	}
	return out
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(LoadOptions{LookupEnv: envMap(withSecrets(nil))})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, 30*time.Second, cfg.Debounce.Delay)
	assert.Equal(t, 60*time.Second, cfg.Debounce.BatchTTLBuffer)
	assert.Equal(t, 120*time.Second, cfg.Debounce.MarkerTTLBuffer)
	assert.Equal(t, "X-Webhook-Secret", cfg.Webhooks.SecretHeader)
	assert.ElementsMatch(t, []string{"GITHUB_TOKEN", "GITHUB_REPO"}, cfg.MissingDispatchSettings())
	assert.False(t, cfg.Webhooks.AllowUnauthenticated)
	assert.Empty(t, cfg.UnauthenticatedRoutes())
}

func TestLoad_RequiresWebhookSecrets(t *testing.T) {
	_, err := Load(LoadOptions{LookupEnv: envMap(map[string]string{"STORE_BACKEND": "memory"})})
	require.Error(t, err)
	for _, env := range []string{"DEPLOY_WEBHOOK_SECRET", "CONTENT_WEBHOOK_SECRET", "CHECK_SECRET"} {
		assert.Contains(t, err.Error(), env)
	}

	// um segredo faltando já basta para falhar
	env := withSecrets(nil)
	delete(env, "CHECK_SECRET")
	_, err = Load(LoadOptions{LookupEnv: envMap(env)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHECK_SECRET")
	assert.NotContains(t, err.Error(), "CONTENT_WEBHOOK_SECRET")
}

func TestLoad_AllowUnauthenticatedOptOut(t *testing.T) {
	cfg, err := Load(LoadOptions{LookupEnv: envMap(map[string]string{
		"STORE_BACKEND":                  "memory",
		"WEBHOOKS_ALLOW_UNAUTHENTICATED": "true",
		"CONTENT_WEBHOOK_SECRET":         "c",
	})})
	require.NoError(t, err)

	assert.True(t, cfg.Webhooks.AllowUnauthenticated)
	assert.Equal(t, []string{"/deploy-webhook", "/rebuild-check"}, cfg.UnauthenticatedRoutes())
}

func TestLoad_EnvOverrides(t *testing.T) {
	cfg, err := Load(LoadOptions{LookupEnv: envMap(withSecrets(map[string]string{
		"STORE_BACKEND":  "Memory",
		"DEBOUNCE_DELAY": "45s",
		"RATE_RPS":       "0.5",
		"RATE_BURST":     "2",
		"TRUST_XFF":      "true",
		"GITHUB_TOKEN":   "tok",
		"GITHUB_REPO":    "acme/site",
		"PROJECT_REPOS":  "p-1=acme/site, p-2=acme/docs",
	}))})
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 45*time.Second, cfg.Debounce.Delay)
	assert.Equal(t, 0.5, cfg.Rate.RPS)
	assert.Equal(t, 2, cfg.Rate.Burst)
	assert.True(t, cfg.Rate.TrustXFF)
	assert.Equal(t, map[string]string{"p-1": "acme/site", "p-2": "acme/docs"}, cfg.GitHub.ProjectRepos)
	assert.Empty(t, cfg.MissingDispatchSettings())
	// não sobrescritos continuam com default
	assert.Equal(t, 120*time.Second, cfg.Debounce.MarkerTTLBuffer)
}

func TestLoad_YAMLThenEnvFileThenProcessEnv(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "relay.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
listen_addr: ":9000"
debounce:
  delay: 20s
  check_interval: 5s
webhooks:
  allow_unauthenticated: true
github:
  repo: acme/from-yaml
  project_repos:
    p-9: acme/nine
`), 0o600))
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("GITHUB_REPO=acme/from-dotenv\nLOG_LEVEL=debug\n"), 0o600))

	cfg, err := Load(LoadOptions{
		File:     yamlPath,
		EnvFiles: []string{envPath, filepath.Join(dir, "missing.env")},
		LookupEnv: envMap(map[string]string{
			"LOG_LEVEL":     "warn",
			"STORE_BACKEND": "memory",
		}),
	})
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, 20*time.Second, cfg.Debounce.Delay)
	assert.Equal(t, 5*time.Second, cfg.Debounce.CheckInterval)
	assert.Equal(t, "acme/from-dotenv", cfg.GitHub.Repo)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, map[string]string{"p-9": "acme/nine"}, cfg.GitHub.ProjectRepos)
	assert.True(t, cfg.Webhooks.AllowUnauthenticated)
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"bad duration":  {"DEBOUNCE_DELAY": "soon"},
		"bad backend":   {"STORE_BACKEND": "etcd"},
		"negative rps":  {"RATE_RPS": "-1"},
		"bad repos":     {"PROJECT_REPOS": "p-1"},
		"mongo no uri":  {"STORE_BACKEND": "mongo"},
		"stats non-rds": {"STORE_BACKEND": "memory", "STATS_ENABLED": "true"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(LoadOptions{LookupEnv: envMap(withSecrets(env))})
			assert.Error(t, err)
		})
	}
}

func TestParseProjectRepos(t *testing.T) {
	m, err := ParseProjectRepos("a=o/r,,b = o/s")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "o/r", "b": "o/s"}, m)

	_, err = ParseProjectRepos("=o/r")
	assert.Error(t, err)
}
