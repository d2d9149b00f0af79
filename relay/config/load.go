package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type kind int

const (
	kindString kind = iota
	kindInt
	kindInt64
	kindFloat
	kindBool
	kindDuration
	kindMap
)

type envVar struct {
	name string
	path string
	kind kind
}

var envVars = []envVar{
	{"LISTEN_ADDR", "listen_addr", kindString},
	{"OPERATION_TIMEOUT", "operation_timeout", kindDuration},

	{"STORE_BACKEND", "store.backend", kindString},
	{"STORE_PREFIX", "store.prefix", kindString},
	{"REDIS_ADDR", "store.redis_addr", kindString},
	{"REDIS_PASSWORD", "store.redis_password", kindString},
	{"REDIS_DB", "store.redis_db", kindInt},
	{"MONGO_URI", "store.mongo_uri", kindString},
	{"MONGO_DATABASE", "store.mongo_database", kindString},
	{"MONGO_COLLECTION", "store.mongo_collection", kindString},

	{"GITHUB_TOKEN", "github.token", kindString},
	{"GITHUB_REPO", "github.repo", kindString},
	{"GITHUB_API_BASE", "github.api_base", kindString},
	{"DISPATCH_TIMEOUT", "github.timeout", kindDuration},
	{"PROJECT_REPOS", "github.project_repos", kindMap},

	{"DEPLOY_WEBHOOK_SECRET", "webhooks.deploy_secret", kindString},
	{"CONTENT_WEBHOOK_SECRET", "webhooks.content_secret", kindString},
	{"CHECK_SECRET", "webhooks.check_secret", kindString},
	{"WEBHOOK_SECRET_HEADER", "webhooks.secret_header", kindString},
	{"WEBHOOK_MAX_BODY_BYTES", "webhooks.max_body_bytes", kindInt64},
	{"WEBHOOKS_ALLOW_UNAUTHENTICATED", "webhooks.allow_unauthenticated", kindBool},

	{"DEBOUNCE_DELAY", "debounce.delay", kindDuration},
	{"BATCH_TTL_BUFFER", "debounce.batch_ttl_buffer", kindDuration},
	{"MARKER_TTL_BUFFER", "debounce.marker_ttl_buffer", kindDuration},
	{"CHECK_INTERVAL", "debounce.check_interval", kindDuration},

	{"RATE_ENABLED", "rate.enabled", kindBool},
	{"RATE_RPS", "rate.rps", kindFloat},
	{"RATE_BURST", "rate.burst", kindInt},
	{"TRUST_XFF", "rate.trust_xff", kindBool},
	{"CONCURRENCY_MAX", "rate.concurrency_max", kindInt},
	{"CONCURRENCY_TIMEOUT", "rate.concurrency_timeout", kindDuration},

	{"STATS_ENABLED", "stats.enabled", kindBool},
	{"STATS_PREFIX", "stats.prefix", kindString},
	{"STATS_TTL", "stats.ttl", kindDuration},

	{"LOG_LEVEL", "log.level", kindString},
	{"LOG_FORMAT", "log.format", kindString},
}

type LoadOptions struct {
	// File é o YAML opcional. Vazio = usa CONFIG_FILE, se definido.
	File string
	// EnvFiles são arquivos .env; os que não existem são ignorados.
	EnvFiles []string
	// LookupEnv permite injetar o ambiente nos testes. Padrão: os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

func Load(opts LoadOptions) (Config, error) {
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	dotenv, err := readEnvFiles(opts.EnvFiles)
	if err != nil {
		return Config{}, err
	}
	// processo > .env
	env := func(k string) (string, bool) {
		if v, ok := lookup(k); ok {
			return v, true
		}
		v, ok := dotenv[k]
		return v, ok
	}

	raw := map[string]any{}

	file := opts.File
	if file == "" {
		if v, ok := env("CONFIG_FILE"); ok {
			file = strings.TrimSpace(v)
		}
	}
	if file != "" {
		if raw, err = readYAML(file); err != nil {
			return Config{}, err
		}
	}

	for _, ev := range envVars {
		if v, ok := env(ev.name); ok && strings.TrimSpace(v) != "" {
			parsed, err := parseValue(ev.kind, strings.TrimSpace(v))
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", ev.name, err)
			}
			setPath(raw, ev.path, parsed)
			continue
		}
		// normaliza valores vindos do YAML (ex: "30s" -> time.Duration)
		if cur, ok := getPath(raw, ev.path); ok {
			parsed, err := normalizeValue(ev.kind, cur)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s in %s: %w", ev.path, file, err)
			}
			setPath(raw, ev.path, parsed)
		}
	}

	if b, ok := getPath(raw, "store.backend"); ok {
		setPath(raw, "store.backend", strings.ToLower(strings.TrimSpace(fmt.Sprint(b))))
	}

	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(DefaultConfig()),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readEnvFiles(files []string) (map[string]string, error) {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
	}
	if len(existing) == 0 {
		return map[string]string{}, nil
	}
	return godotenv.Read(existing...)
}

func readYAML(file string) (map[string]any, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", file, err)
	}
	return raw, nil
}

func parseValue(k kind, v string) (any, error) {
	switch k {
	case kindInt:
		return strconv.Atoi(v)
	case kindInt64:
		return strconv.ParseInt(v, 10, 64)
	case kindFloat:
		return strconv.ParseFloat(v, 64)
	case kindBool:
		return strconv.ParseBool(v)
	case kindDuration:
		return time.ParseDuration(v)
	case kindMap:
		return ParseProjectRepos(v)
	default:
		return v, nil
	}
}

func normalizeValue(k kind, v any) (any, error) {
	switch k {
	case kindDuration:
		switch d := v.(type) {
		case string:
			return time.ParseDuration(d)
		case int:
			return time.Duration(d), nil
		}
	case kindMap:
		if m, ok := v.(map[string]any); ok {
			out := make(map[string]string, len(m))
			for id, repo := range m {
				out[id] = fmt.Sprint(repo)
			}
			return out, nil
		}
	}
	return v, nil
}

// ParseProjectRepos lê "id=owner/repo,id2=owner/other".
func ParseProjectRepos(v string) (map[string]string, error) {
	out := map[string]string{}
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, repo, ok := strings.Cut(part, "=")
		id, repo = strings.TrimSpace(id), strings.TrimSpace(repo)
		if !ok || id == "" || repo == "" {
			return nil, fmt.Errorf("expected id=owner/repo, got %q", part)
		}
		out[id] = repo
	}
	return out, nil
}

func getPath(raw map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	cur := raw
	for i, p := range parts {
		v, ok := cur[p]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		next, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

func setPath(raw map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	cur := raw
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}
