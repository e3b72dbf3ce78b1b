// Package app wires configuration into running components for the
// binaries under cmd/.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Shivanand-hulikatti/ticketing-projections/internal/audit"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/bus"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/config"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/database"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/projection"
	"github.com/Shivanand-hulikatti/ticketing-projections/internal/readmodel"
)

// AuditLog is both ends of the audit log.
type AuditLog interface {
	audit.Sink
	audit.Reader
}

// Reporting is the read side: read-model store, audit log and the routing
// table that feeds them.
type Reporting struct {
	Store     readmodel.Store
	Audit     AuditLog
	Projector *projection.Projector
	Router    *bus.Router

	mongo *mongo.Client
}

// NewReporting opens the configured read-model store and builds the
// projector over it.
func NewReporting(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Reporting, error) {
	rep := &Reporting{}
	var dedup readmodel.Deduper

	switch cfg.Store.Driver {
	case config.StoreMongo:
		client, err := database.ConnectMongo(ctx, cfg.Mongo.URI, logger)
		if err != nil {
			return nil, err
		}
		rep.mongo = client
		db := client.Database(cfg.Mongo.Database)

		auditLog := audit.NewMongo(db)
		if err := auditLog.EnsureIndexes(ctx); err != nil {
			_ = rep.Close(ctx)
			return nil, err
		}
		rep.Store = readmodel.NewMongoStore(db)
		rep.Audit = auditLog
		if cfg.Projection.Dedup {
			d := readmodel.NewMongoDeduper(db, cfg.Projection.DedupRetention)
			if err := d.EnsureIndexes(ctx); err != nil {
				_ = rep.Close(ctx)
				return nil, err
			}
			dedup = d
		}
		logger.Info("read models in mongo", "database", cfg.Mongo.Database)
	default:
		rep.Store = readmodel.NewMemoryStore()
		rep.Audit = audit.NewMemory()
		if cfg.Projection.Dedup {
			dedup = readmodel.NewMemoryDeduper()
		}
		logger.Info("read models in memory")
	}

	rep.Projector = projection.New(rep.Store, rep.Audit, logger, projection.Options{Deduper: dedup})
	router, err := projection.Routes(rep.Projector)
	if err != nil {
		_ = rep.Close(ctx)
		return nil, fmt.Errorf("build routes: %w", err)
	}
	rep.Router = router
	logger.Info("projection routes ready", "types", router.Types(), "dedup", cfg.Projection.Dedup)
	return rep, nil
}

// Close releases the store connection.
func (r *Reporting) Close(ctx context.Context) error {
	if r.mongo == nil {
		return nil
	}
	return r.mongo.Disconnect(ctx)
}

// NewRedisBus opens the Redis Streams transport.
func NewRedisBus(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*bus.Redis, redis.UniversalClient, error) {
	client, err := database.NewRedis(ctx, database.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	b := bus.NewRedis(client, logger, bus.RedisOptions{
		StreamPrefix:  cfg.Bus.StreamPrefix,
		Group:         cfg.Bus.Group,
		Consumer:      cfg.Bus.Consumer,
		Block:         cfg.Bus.Block,
		ClaimMinIdle:  cfg.Bus.ClaimMinIdle,
		ClaimInterval: cfg.Bus.ClaimInterval,
		MaxDeliveries: int64(cfg.Bus.MaxDeliveries),
	})
	return b, client, nil
}

// NewServer builds an http.Server from the listener settings.
func NewServer(c config.HTTP, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         c.Addr,
		Handler:      h,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		IdleTimeout:  c.IdleTimeout,
	}
}

// Serve runs srv until ctx is cancelled, then shuts it down gracefully.
func Serve(ctx context.Context, srv *http.Server, c config.HTTP, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server", "addr", srv.Addr)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped", "addr", srv.Addr)
	return nil
}
