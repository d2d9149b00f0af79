// Package config carrega a configuração do relay.
//
// Ordem (menor para maior precedência): defaults -> arquivo YAML (CONFIG_FILE)
// -> arquivos .env -> variáveis de ambiente do processo. O mapa resultante é
// materializado com cfgx.Build, que aplica defaults e Validate.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

type Config struct {
	ListenAddr string `koanf:"listen_addr" mapstructure:"listen_addr" yaml:"listen_addr"`
	// OperationTimeout limita cada request/check (store + dispatch).
	OperationTimeout time.Duration `koanf:"operation_timeout" mapstructure:"operation_timeout" yaml:"operation_timeout"`

	Store    StoreConfig    `koanf:"store" mapstructure:"store" yaml:"store"`
	GitHub   GitHubConfig   `koanf:"github" mapstructure:"github" yaml:"github"`
	Webhooks WebhookConfig  `koanf:"webhooks" mapstructure:"webhooks" yaml:"webhooks"`
	Debounce DebounceConfig `koanf:"debounce" mapstructure:"debounce" yaml:"debounce"`
	Rate     RateConfig     `koanf:"rate" mapstructure:"rate" yaml:"rate"`
	Stats    StatsConfig    `koanf:"stats" mapstructure:"stats" yaml:"stats"`
	Log      LogConfig      `koanf:"log" mapstructure:"log" yaml:"log"`
}

type StoreConfig struct {
	Backend         string `koanf:"backend" mapstructure:"backend" yaml:"backend"`
	Prefix          string `koanf:"prefix" mapstructure:"prefix" yaml:"prefix"`
	RedisAddr       string `koanf:"redis_addr" mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword   string `koanf:"redis_password" mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB         int    `koanf:"redis_db" mapstructure:"redis_db" yaml:"redis_db"`
	MongoURI        string `koanf:"mongo_uri" mapstructure:"mongo_uri" yaml:"mongo_uri"`
	MongoDatabase   string `koanf:"mongo_database" mapstructure:"mongo_database" yaml:"mongo_database"`
	MongoCollection string `koanf:"mongo_collection" mapstructure:"mongo_collection" yaml:"mongo_collection"`
}

type GitHubConfig struct {
	Token   string        `koanf:"token" mapstructure:"token" yaml:"token"`
	Repo    string        `koanf:"repo" mapstructure:"repo" yaml:"repo"`
	APIBase string        `koanf:"api_base" mapstructure:"api_base" yaml:"api_base"`
	Timeout time.Duration `koanf:"timeout" mapstructure:"timeout" yaml:"timeout"`
	// ProjectRepos mapeia project id (deploy) -> "owner/repo".
	ProjectRepos map[string]string `koanf:"project_repos" mapstructure:"project_repos" yaml:"project_repos"`
}

type WebhookConfig struct {
	DeploySecret  string `koanf:"deploy_secret" mapstructure:"deploy_secret" yaml:"deploy_secret"`
	ContentSecret string `koanf:"content_secret" mapstructure:"content_secret" yaml:"content_secret"`
	CheckSecret   string `koanf:"check_secret" mapstructure:"check_secret" yaml:"check_secret"`
	SecretHeader  string `koanf:"secret_header" mapstructure:"secret_header" yaml:"secret_header"`
	MaxBodyBytes  int64  `koanf:"max_body_bytes" mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	// AllowUnauthenticated libera rotas sem segredo. Só para desenvolvimento.
	AllowUnauthenticated bool `koanf:"allow_unauthenticated" mapstructure:"allow_unauthenticated" yaml:"allow_unauthenticated"`
}

type DebounceConfig struct {
	Delay           time.Duration `koanf:"delay" mapstructure:"delay" yaml:"delay"`
	BatchTTLBuffer  time.Duration `koanf:"batch_ttl_buffer" mapstructure:"batch_ttl_buffer" yaml:"batch_ttl_buffer"`
	MarkerTTLBuffer time.Duration `koanf:"marker_ttl_buffer" mapstructure:"marker_ttl_buffer" yaml:"marker_ttl_buffer"`
	// CheckInterval 0 desliga o ticker interno (check só via /rebuild-check ou cron).
	CheckInterval time.Duration `koanf:"check_interval" mapstructure:"check_interval" yaml:"check_interval"`
}

type RateConfig struct {
	Enabled            bool          `koanf:"enabled" mapstructure:"enabled" yaml:"enabled"`
	RPS                float64       `koanf:"rps" mapstructure:"rps" yaml:"rps"`
	Burst              int           `koanf:"burst" mapstructure:"burst" yaml:"burst"`
	TrustXFF           bool          `koanf:"trust_xff" mapstructure:"trust_xff" yaml:"trust_xff"`
	ConcurrencyMax     int           `koanf:"concurrency_max" mapstructure:"concurrency_max" yaml:"concurrency_max"`
	ConcurrencyTimeout time.Duration `koanf:"concurrency_timeout" mapstructure:"concurrency_timeout" yaml:"concurrency_timeout"`
}

type StatsConfig struct {
	Enabled bool          `koanf:"enabled" mapstructure:"enabled" yaml:"enabled"`
	Prefix  string        `koanf:"prefix" mapstructure:"prefix" yaml:"prefix"`
	TTL     time.Duration `koanf:"ttl" mapstructure:"ttl" yaml:"ttl"`
}

type LogConfig struct {
	Level  string `koanf:"level" mapstructure:"level" yaml:"level"`
	Format string `koanf:"format" mapstructure:"format" yaml:"format"`
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:       ":8080",
		OperationTimeout: 10 * time.Second,
		Store: StoreConfig{
			Backend:         BackendRedis,
			Prefix:          "relay:debounce",
			RedisAddr:       "localhost:6379",
			MongoDatabase:   "relay",
			MongoCollection: "relay_state",
		},
		GitHub: GitHubConfig{
			APIBase: "https://api.github.com",
			Timeout: 10 * time.Second,
		},
		Webhooks: WebhookConfig{
			SecretHeader: "X-Webhook-Secret",
			MaxBodyBytes: 1 << 20,
		},
		Debounce: DebounceConfig{
			Delay:           30 * time.Second,
			BatchTTLBuffer:  60 * time.Second,
			MarkerTTLBuffer: 120 * time.Second,
			CheckInterval:   10 * time.Second,
		},
		Rate: RateConfig{
			Enabled:        true,
			RPS:            5,
			Burst:          20,
			ConcurrencyMax: 100,
		},
		Stats: StatsConfig{
			Prefix: "relay:stats",
			TTL:    24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ListenAddr) == "" {
		errs = append(errs, errors.New("LISTEN_ADDR is required"))
	}
	switch c.Store.Backend {
	case BackendRedis:
		if strings.TrimSpace(c.Store.RedisAddr) == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required when STORE_BACKEND=redis"))
		}
	case BackendMongo:
		if strings.TrimSpace(c.Store.MongoURI) == "" {
			errs = append(errs, errors.New("MONGO_URI is required when STORE_BACKEND=mongo"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be redis, mongo or memory, got %q", c.Store.Backend))
	}
	if !c.Webhooks.AllowUnauthenticated {
		for _, env := range c.missingSecrets() {
			errs = append(errs, fmt.Errorf("%s is required (or set WEBHOOKS_ALLOW_UNAUTHENTICATED=true)", env))
		}
	}
	if c.Stats.Enabled && c.Store.Backend != BackendRedis {
		errs = append(errs, errors.New("STATS_ENABLED requires STORE_BACKEND=redis"))
	}
	if c.Debounce.Delay <= 0 {
		errs = append(errs, errors.New("DEBOUNCE_DELAY must be > 0"))
	}
	if c.Debounce.BatchTTLBuffer < 0 || c.Debounce.MarkerTTLBuffer < 0 {
		errs = append(errs, errors.New("TTL buffers must be >= 0"))
	}
	if c.Debounce.CheckInterval < 0 {
		errs = append(errs, errors.New("CHECK_INTERVAL must be >= 0"))
	}
	if c.Rate.Enabled {
		if c.Rate.RPS <= 0 {
			errs = append(errs, errors.New("RATE_RPS must be > 0"))
		}
		if c.Rate.Burst <= 0 {
			errs = append(errs, errors.New("RATE_BURST must be > 0"))
		}
	}
	if c.Rate.ConcurrencyMax < 0 {
		errs = append(errs, errors.New("CONCURRENCY_MAX must be >= 0"))
	}
	for id, repo := range c.GitHub.ProjectRepos {
		if strings.Count(strings.Trim(repo, "/"), "/") != 1 {
			errs = append(errs, fmt.Errorf("PROJECT_REPOS: invalid repository %q for project %q", repo, id))
		}
	}
	return errors.Join(errs...)
}

// MissingDispatchSettings lista o que falta para o dispatch funcionar.
// Não impede o boot: a falta vira ConfigurationError (500) na hora do dispatch.
func (c Config) MissingDispatchSettings() []string {
	var missing []string
	if strings.TrimSpace(c.GitHub.Token) == "" {
		missing = append(missing, "GITHUB_TOKEN")
	}
	if strings.TrimSpace(c.GitHub.Repo) == "" {
		missing = append(missing, "GITHUB_REPO")
	}
	return missing
}

type routeSecret struct {
	route string
	env   string
	value string
}

func (c Config) routeSecrets() []routeSecret {
	return []routeSecret{
		{"/deploy-webhook", "DEPLOY_WEBHOOK_SECRET", c.Webhooks.DeploySecret},
		{"/content-webhook", "CONTENT_WEBHOOK_SECRET", c.Webhooks.ContentSecret},
		{"/rebuild-check", "CHECK_SECRET", c.Webhooks.CheckSecret},
	}
}

// UnauthenticatedRoutes lista as rotas que aceitam requests sem segredo.
func (c Config) UnauthenticatedRoutes() []string {
	var routes []string
	for _, rs := range c.routeSecrets() {
		if strings.TrimSpace(rs.value) == "" {
			routes = append(routes, rs.route)
		}
	}
	return routes
}

func (c Config) missingSecrets() []string {
	var missing []string
	for _, rs := range c.routeSecrets() {
		if strings.TrimSpace(rs.value) == "" {
			missing = append(missing, rs.env)
		}
	}
	return missing
}
