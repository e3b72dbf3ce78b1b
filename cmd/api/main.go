// Command api serves the event command endpoints. It persists aggregates
// in PostgreSQL and publishes their domain events to the bus. With the
// memory bus it also runs the projector and the report endpoints in
// process.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/Shivanand-hulikatti/ticketing-projections/internal/app"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/bus"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/config"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/database"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/handler"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/logging"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/repository"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flagSet := pflag.NewFlagSet("api", pflag.ContinueOnError)
	configPath := flagSet.String("config", "", "path to a YAML config file (default: $TICKETING_CONFIG)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Connect to PostgreSQL ──────────────────────────────────────────
	pool, err := database.NewPool(ctx, cfg.Postgres.DSN(), logger)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	if cfg.Postgres.Migrate {
		if err := database.Migrate(ctx, pool); err != nil {
			return err
		}
	}
	logger.Info("connected to postgres", "host", cfg.Postgres.Host, "db", cfg.Postgres.DBName)

	// ── 2. Event bus ──────────────────────────────────────────────────────
	g, ctx := errgroup.WithContext(ctx)
	var (
		publisher bus.Publisher
		mounts    []func(chi.Router)
	)
	switch cfg.Bus.Driver {
	case config.BusRedis:
		b, client, err := app.NewRedisBus(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer client.Close()
		publisher = b
	default:
		rep, err := app.NewReporting(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer rep.Close(context.Background())

		mem := bus.NewMemory(logger, bus.MemoryOptions{MaxDeliveries: cfg.Bus.MaxDeliveries})
		g.Go(func() error { return mem.Run(ctx, rep.Router) })
		publisher = mem
		mounts = append(mounts, handler.NewReportHandler(rep.Store, rep.Audit, logger).Mount)
		logger.Warn("memory bus: projections run in this process and are lost on exit")
	}

	// ── 3. Wire up layers ─────────────────────────────────────────────────
	eventSvc := service.NewEventService(repository.NewEventRepository(pool), publisher, logger)
	eventHandler := handler.NewEventHandler(eventSvc, logger)
	mounts = append([]func(chi.Router){eventHandler.Mount}, mounts...)

	// ── 4. Serve until SIGINT or SIGTERM ──────────────────────────────────
	srv := app.NewServer(cfg.HTTP, handler.NewRouter(logger, cfg.HTTP.AllowedOrigins, mounts...))
	g.Go(func() error { return app.Serve(ctx, srv, cfg.HTTP, logger) })

	return g.Wait()
}
