package appbootstrap

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kestrel-qhse/config"
	"kestrel-qhse/core/store"
	"kestrel-qhse/core/utils"
)

const shutdownGrace = 15 * time.Second

// Run wires the whole application together and blocks until SIGINT/SIGTERM.
func Run() error {
	logger := utils.NewLogger()
	cfg, err := config.Load(os.Getenv("KESTREL_CONFIG"))
	if err != nil {
		return err
	}

	db, err := store.NewDB(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.ApplyMigrations(ctx, db, cfg.DBDriver, logger); err != nil {
		return err
	}

	rt, err := composeRuntime(cfg, db, logger)
	if err != nil {
		return err
	}

	if err := rt.escalator.Start(ctx); err != nil {
		return err
	}
	defer rt.escalator.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- rt.server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return rt.server.Shutdown(shutdownCtx)
}
