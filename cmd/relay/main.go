package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"rebuild-relay/relay"
	"rebuild-relay/relay/bootstrap"
	"rebuild-relay/relay/config"
	"rebuild-relay/relay/logging"
)

func main() {
	cfg, err := config.Load(config.LoadOptions{EnvFiles: []string{".env"}})
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Name: "relay"})

	if missing := cfg.MissingDispatchSettings(); len(missing) > 0 {
		// sobe mesmo assim: o dispatch responde 500 até a config ser corrigida
		logger.Warn("dispatch settings missing", "missing", missing)
	}
	for _, route := range cfg.UnauthenticatedRoutes() {
		logger.Warn("webhook route accepts requests without a secret", "route", route)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("bootstrap failed", "error", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = app.Close(closeCtx)
	}()

	app.Checker.Start(ctx, cfg.Debounce.CheckInterval, cfg.OperationTimeout)

	h := relay.NewHandler(relay.Options{
		Recorder: app.Debouncer,
		Checker:  app.Checker,
		Deploy:   app.Deploy,
		Secrets: relay.Secrets{
			Deploy:  cfg.Webhooks.DeploySecret,
			Content: cfg.Webhooks.ContentSecret,
			Check:   cfg.Webhooks.CheckSecret,
		},
		SecretHeader:     cfg.Webhooks.SecretHeader,
		MaxBodyBytes:     cfg.Webhooks.MaxBodyBytes,
		Admission:        app.Admission(),
		TrustXFF:         cfg.Rate.TrustXFF,
		OperationTimeout: cfg.OperationTimeout,
		Stats:            app.Stats,
		Logger:           logger,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("relay listening",
		"addr", cfg.ListenAddr,
		"store", cfg.Store.Backend,
		"debounce_delay", cfg.Debounce.Delay.String(),
		"check_interval", cfg.Debounce.CheckInterval.String(),
		"rate_enabled", cfg.Rate.Enabled,
		"concurrency_max", cfg.Rate.ConcurrencyMax,
		"stats_enabled", app.Stats != nil,
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
	}
}
