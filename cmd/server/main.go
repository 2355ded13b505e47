package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/garageos/api/internal/config"
	"github.com/garageos/api/internal/database"
	"github.com/garageos/api/internal/idempotency"
	"github.com/garageos/api/internal/jobs"
	"github.com/garageos/api/internal/logger"
	"github.com/garageos/api/internal/router"
	"github.com/garageos/api/internal/ws"
)

const devJWTSecret = "dev-secret-change-in-production"

func main() {
	configFile := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	lg := logger.Setup(cfg.Log.Level, cfg.Log.Format)
	if cfg.IsProduction() && cfg.JWT.Secret == devJWTSecret {
		lg.Fatal("JWT_SECRET must be set in production")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Database.RunMigrations {
		version, err := database.Migrate(cfg.Database.URL)
		if err != nil {
			lg.Fatalf("run migrations: %v", err)
		}
		lg.WithField("version", version).Info("database migrated")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		lg.Fatalf("parse database url: %v", err)
	}
	if cfg.Database.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Database.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		lg.Fatalf("connect to database: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		lg.Fatalf("ping database: %v", err)
	}
	lg.Info("connected to database")

	idem, purger, closeIdem := openIdempotencyStore(ctx, cfg, lg)
	defer closeIdem()

	hub := ws.NewHub()
	go hub.Run(ctx)

	scheduler := cron.New()
	lowStock := jobs.NewLowStockJob(database.New(pool), hub, purger)
	if _, err := lowStock.Schedule(scheduler, cfg.Jobs.LowStockSchedule); err != nil {
		lg.Fatalf("schedule low stock job: %v", err)
	}
	scheduler.Start()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.New(cfg, lg, pool, hub, idem),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		lg.WithField("addr", srv.Addr).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.WithError(err).Error("server shutdown")
	}
	<-scheduler.Stop().Done()
}

// openIdempotencyStore opens the configured idempotency backend. The bolt
// store doubles as the purger for the nightly sweep; redis expires keys itself.
func openIdempotencyStore(ctx context.Context, cfg *config.Config, lg *log.Logger) (idempotency.Store, jobs.Purger, func()) {
	switch cfg.Idempotency.Backend {
	case "redis":
		s, err := idempotency.NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			lg.Fatalf("connect to redis: %v", err)
		}
		lg.WithField("addr", cfg.Redis.Addr).Info("idempotency store: redis")
		return s, nil, func() { s.Close() } //nolint:errcheck
	case "bolt":
		s, err := idempotency.NewBoltStore(cfg.Idempotency.BoltPath)
		if err != nil {
			lg.Fatalf("open bolt store: %v", err)
		}
		lg.WithField("path", cfg.Idempotency.BoltPath).Info("idempotency store: bolt")
		return s, s, func() { s.Close() } //nolint:errcheck
	default:
		lg.Warn("idempotency disabled")
		return nil, nil, func() {}
	}
}
