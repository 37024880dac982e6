package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/ises-energia/scrc-backend/api/routes"
	"github.com/ises-energia/scrc-backend/internal/brigades"
	"github.com/ises-energia/scrc-backend/internal/closures"
	"github.com/ises-energia/scrc-backend/internal/dispatch"
	"github.com/ises-energia/scrc-backend/internal/ingest"
	"github.com/ises-energia/scrc-backend/internal/refill"
	"github.com/ises-energia/scrc-backend/internal/reporting"
	"github.com/ises-energia/scrc-backend/internal/rules"
	"github.com/ises-energia/scrc-backend/internal/tracking"
	"github.com/ises-energia/scrc-backend/pkg/config"
	"github.com/ises-energia/scrc-backend/pkg/db"
	"github.com/ises-energia/scrc-backend/pkg/logger"
	"github.com/ises-energia/scrc-backend/pkg/metrics"
	"github.com/ises-energia/scrc-backend/pkg/migrate"
	"github.com/ises-energia/scrc-backend/pkg/outbox"
	"github.com/ises-energia/scrc-backend/pkg/redis"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	rulesLoader, err := rules.NewLoader(rules.LoaderParams{
		DB:       dbClient.DB(),
		Dispatch: cfg.Dispatch,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create rules loader", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	dispatchRepo := dispatch.NewRepository(dbClient.DB())
	dispatchMetrics := metrics.NewDispatchMetrics(prometheus.DefaultRegisterer)

	dispatchService, err := dispatch.NewService(dispatch.Params{
		Repo:     dispatchRepo,
		Tx:       dbClient,
		Rules:    rulesLoader,
		Outbox:   outboxService,
		Logger:   logg,
		Metrics:  dispatchMetrics,
		Dispatch: cfg.Dispatch,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatch service", err)
		os.Exit(1)
	}

	refillTrigger, err := refill.NewTrigger(refill.Params{
		Counts: dispatchRepo,
		Engine: dispatchService,
		Tx:     dbClient,
		Outbox: outboxService,
		Logger: logg,
		Refill: cfg.Refill,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create refill trigger", err)
		os.Exit(1)
	}

	closuresService, err := closures.NewService(closures.Params{
		Repo:    closures.NewRepository(dbClient.DB()),
		Tx:      dbClient,
		Outbox:  outboxService,
		Refill:  refillTrigger,
		Logger:  logg,
		Metrics: dispatchMetrics,
		Audit:   cfg.Audit,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create closures service", err)
		os.Exit(1)
	}

	ingestService, err := ingest.NewService(ingest.Params{
		Repo:   ingest.NewRepository(dbClient.DB()),
		Tx:     dbClient,
		Outbox: outboxService,
		Rules:  rulesLoader,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ingest service", err)
		os.Exit(1)
	}

	reportingService, err := reporting.NewService(reporting.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create reporting service", err)
		os.Exit(1)
	}

	brigadesService, err := brigades.NewService(brigades.NewRepository(dbClient.DB()), rulesLoader, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create brigades service", err)
		os.Exit(1)
	}

	tracker := tracking.NewTracker(cfg.Tracking, nil)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:    cfg,
			Logger:    logg,
			DB:        dbClient,
			Redis:     redisClient,
			Dispatch:  dispatchService,
			Reporting: reportingService,
			Closures:  closuresService,
			Ingest:    ingestService,
			Brigades:  brigadesService,
			Tracker:   tracker,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
