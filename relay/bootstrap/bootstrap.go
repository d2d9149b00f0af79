// Package bootstrap liga config, store, dispatcher e serviços.
// Usado pelo servidor (cmd/relay) e pelo check one-shot (cmd/relay-check).
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"rebuild-relay/relay/application"
	"rebuild-relay/relay/config"
	"rebuild-relay/relay/domain"
	"rebuild-relay/relay/infra"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectTimeout = 2 * time.Second

// App agrupa as dependências montadas a partir da Config.
type App struct {
	Config     config.Config
	Store      domain.KVStore
	Dispatcher *infra.GitHubDispatcher
	Stats      domain.StatsStore
	Limits     *infra.LimiterStore
	Slots      domain.SlotPool

	Debouncer application.Debouncer
	Checker   application.Checker
	Deploy    application.DeployService

	closers []func(context.Context) error
}

// Build conecta o backend escolhido e monta os serviços.
// Em erro, o que já foi aberto é fechado antes de retornar.
func Build(ctx context.Context, cfg config.Config, logger glog.Logger) (*App, error) {
	logger = glog.Ensure(logger)
	app := &App{Config: cfg}

	var rdb *redis.Client
	switch cfg.Store.Backend {
	case config.BackendRedis:
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		})
		app.closers = append(app.closers, func(context.Context) error { return rdb.Close() })

		store := infra.NewRedisStore(rdb)
		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		err := store.Ping(pingCtx)
		cancel()
		if err != nil {
			_ = app.Close(ctx)
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		app.Store = store

	case config.BackendMongo:
		connCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		client, err := mongo.Connect(connCtx, options.Client().ApplyURI(cfg.Store.MongoURI))
		if err == nil {
			err = client.Ping(connCtx, nil)
		}
		if client != nil {
			app.closers = append(app.closers, client.Disconnect)
		}
		if err != nil {
			cancel()
			_ = app.Close(ctx)
			return nil, fmt.Errorf("mongo connect: %w", err)
		}

		store := infra.NewMongoStore(client.Database(cfg.Store.MongoDatabase).Collection(cfg.Store.MongoCollection))
		err = store.EnsureIndexes(connCtx)
		cancel()
		if err != nil {
			_ = app.Close(ctx)
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		app.Store = store

	default:
		// memória só serve para desenvolvimento: o estado some no restart
		mem := infra.NewMemoryStore()
		mem.StartJanitor(ctx)
		app.Store = mem
		logger.Warn("using in-memory debounce store, state is lost on restart")
	}

	if cfg.Stats.Enabled && rdb != nil {
		app.Stats = infra.NewRedisStatsStore(rdb,
			infra.WithStatsPrefix(cfg.Stats.Prefix),
			infra.WithStatsTTL(cfg.Stats.TTL),
		)
	}

	app.Dispatcher = infra.NewGitHubDispatcher(cfg.GitHub.Token, cfg.GitHub.Repo,
		infra.WithGitHubAPIBase(cfg.GitHub.APIBase),
		infra.WithDispatchTimeout(cfg.GitHub.Timeout),
	)

	if cfg.Rate.Enabled {
		app.Limits = infra.NewLimiterStore(cfg.Rate.RPS, cfg.Rate.Burst)
		app.Limits.StartJanitor(ctx)
	}
	app.Slots = infra.NewChanPool(cfg.Rate.ConcurrencyMax)

	settings := application.Settings{
		Delay:           cfg.Debounce.Delay,
		BatchTTLBuffer:  cfg.Debounce.BatchTTLBuffer,
		MarkerTTLBuffer: cfg.Debounce.MarkerTTLBuffer,
		Keys:            application.NewKeys(cfg.Store.Prefix),
	}
	app.Debouncer = application.Debouncer{
		Store:    app.Store,
		Settings: settings,
		Now:      domain.SystemClock,
		Logger:   logger,
	}
	app.Checker = application.Checker{
		Store:      app.Store,
		Dispatcher: app.Dispatcher,
		Settings:   settings,
		Now:        domain.SystemClock,
		Stats:      app.Stats,
		Logger:     logger,
	}
	app.Deploy = application.DeployService{
		Dispatcher:    app.Dispatcher,
		Projects:      cfg.GitHub.ProjectRepos,
		DefaultTarget: cfg.GitHub.Repo,
		Stats:         app.Stats,
		Now:           domain.SystemClock,
		Logger:        logger,
	}
	return app, nil
}

// Admission retorna nil quando rate limit e limite de concorrência estão desligados.
func (a *App) Admission() *application.AdmissionService {
	if a.Limits == nil && a.Slots == nil {
		return nil
	}
	svc := &application.AdmissionService{
		Slots:          a.Slots,
		AcquireTimeout: a.Config.Rate.ConcurrencyTimeout,
	}
	// evita interface não-nil com ponteiro nil
	if a.Limits != nil {
		svc.Limits = a.Limits
	}
	return svc
}

// Close fecha conexões em ordem inversa de abertura.
func (a *App) Close(ctx context.Context) error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
