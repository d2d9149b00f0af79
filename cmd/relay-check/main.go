package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rebuild-relay/relay/bootstrap"
	"rebuild-relay/relay/config"
	"rebuild-relay/relay/logging"
)

// Executa um único CheckAndDispatch e sai. Pensado para cron
// (ex: a cada minuto) quando o ticker interno do servidor está desligado.
func main() {
	cfg, err := config.Load(config.LoadOptions{EnvFiles: []string{".env"}})
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := checkBackend(cfg); err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Name: "relay-check"})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("bootstrap failed", "error", err)
	}

	checkCtx, cancelCheck := ctx, context.CancelFunc(func() {})
	if cfg.OperationTimeout > 0 {
		checkCtx, cancelCheck = context.WithTimeout(ctx, cfg.OperationTimeout)
	}
	res, err := app.Checker.CheckAndDispatch(checkCtx)
	cancelCheck()

	closeCtx, cancelClose := context.WithTimeout(context.Background(), 5*time.Second)
	_ = app.Close(closeCtx)
	cancelClose()

	if err != nil {
		logger.Error("rebuild check failed", "error", err)
		os.Exit(1)
	}
	logger.Info("rebuild check done",
		"dispatched", res.Dispatched,
		"reason", res.Reason,
		"total_changes", res.TotalChanges,
		"batch_id", res.BatchID,
	)
}

// checkBackend recusa o store em memória: um processo novo sempre o vê vazio.
func checkBackend(cfg config.Config) error {
	if cfg.Store.Backend == config.BackendMemory {
		return errors.New("STORE_BACKEND=memory is not supported by relay-check: a fresh process never sees pending state, use redis or mongo")
	}
	return nil
}
