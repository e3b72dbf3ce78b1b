// Command projector consumes domain events from Redis Streams, folds them
// into the read models and serves the report endpoints.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/Shivanand-hulikatti/ticketing-projections/internal/app"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/config"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/handler"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flagSet := pflag.NewFlagSet("projector", pflag.ContinueOnError)
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
	if cfg.Bus.Driver != config.BusRedis {
		return fmt.Errorf("projector needs bus.driver %q; the memory bus runs inside the api process", config.BusRedis)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rep, err := app.NewReporting(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rep.Close(context.Background())

	b, client, err := app.NewRedisBus(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	reports := handler.NewReportHandler(rep.Store, rep.Audit, logger)
	srv := app.NewServer(cfg.Reports, handler.NewRouter(logger, cfg.Reports.AllowedOrigins, reports.Mount))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.Run(ctx, rep.Router) })
	g.Go(func() error { return app.Serve(ctx, srv, cfg.Reports, logger) })

	logger.Info("projector running", "group", cfg.Bus.Group, "consumer", cfg.Bus.Consumer)
	return g.Wait()
}
