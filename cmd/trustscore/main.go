// Command trustscore runs the directory service in one of three modes:
// api (HTTP serving only), worker (scheduled ingestion only), or
// refresh_once (a single ingestion pass, then exit). See config.Config
// for every environment-tunable setting.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectologger"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/calhealth/trustscore/config"
	"github.com/calhealth/trustscore/internal/platform/database"
	"github.com/calhealth/trustscore/internal/platform/httpmiddleware"
	"github.com/calhealth/trustscore/internal/platform/tracing"
	"github.com/calhealth/trustscore/internal/repositories/facility"
	"github.com/calhealth/trustscore/pkg/connectors"
	"github.com/calhealth/trustscore/pkg/connectors/cpra"
	"github.com/calhealth/trustscore/pkg/connectors/lacounty"
	"github.com/calhealth/trustscore/pkg/connectors/lives"
	"github.com/calhealth/trustscore/pkg/connectors/longbeach"
	"github.com/calhealth/trustscore/pkg/connectors/sandiego"
	"github.com/calhealth/trustscore/pkg/events"
	"github.com/calhealth/trustscore/pkg/ingest"
	"github.com/calhealth/trustscore/pkg/merging"
	facilityroutes "github.com/calhealth/trustscore/pkg/routes/facility"
	"github.com/calhealth/trustscore/pkg/routes/health"
	"github.com/calhealth/trustscore/pkg/routes/system"
	"github.com/calhealth/trustscore/pkg/search"
	"github.com/calhealth/trustscore/pkg/vote"
)

// Exit codes (spec §6): 0 normal shutdown, 1 fatal startup error, 2
// reserved for refresh_once when every connector failed.
const (
	exitOK            = 0
	exitFatalStartup  = 1
	exitAllConnectors = 2
)

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(exitFatalStartup)
	}

	logger := newLogger()
	shutdownTracing := setupTracing(cfg.AppName)
	defer shutdownTracing()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("failed to open repository")
		os.Exit(exitFatalStartup)
	}
	defer closeStore()

	orchestrator := ingest.NewOrchestrator(store, buildConnectors(cfg), merging.NewEngine(logger), buildEmitter(cfg, logger), logger)

	switch cfg.RunMode {
	case "refresh_once":
		runRefreshOnce(ctx, orchestrator, logger)
	case "worker":
		runWorker(ctx, orchestrator, cfg, logger)
	default:
		runAPI(ctx, orchestrator, store, cfg, logger)
	}
}

func newLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		b, err := json.Marshal(msg)
		if err != nil {
			fmt.Fprintln(os.Stdout, msg)
			return
		}
		fmt.Fprintln(os.Stdout, string(b))
	})
}

// setupTracing installs a tracer provider batching against a local
// no-op exporter (no OTLP collector is assumed to be reachable by
// default) and returns a func that shuts it down.
func setupTracing(serviceName string) func() {
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(&tracing.ConsoleExporter{}))
	tracing.SetTracer(tp.Tracer(serviceName))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}
}

// openStore picks the durable PostgreSQL backend when a database host is
// configured, falling back to the in-memory repository otherwise (spec
// §4.4, §6: "absence → in-memory repository").
func openStore(cfg config.Config, logger ectologger.Logger) (facility.Store, func(), error) {
	if cfg.DatabaseHost == "" {
		logger.Info("no database host configured, using in-memory repository")
		return facility.NewMemoryStore(), func() {}, nil
	}

	db, err := database.Connect(database.Settings{
		Driver:          cfg.DatabaseDriver,
		Host:            cfg.DatabaseHost,
		Port:            parsePort(cfg.DatabasePort),
		UserName:        cfg.DatabaseUserName,
		Password:        cfg.DatabasePassword,
		Name:            cfg.DatabaseName,
		SSLMode:         cfg.DatabaseSSLMode,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := database.Migrate(db, logger, database.MigrationConfig{
		FolderPath:   cfg.DatabaseMigrationFolderPath,
		AutoRollback: cfg.DatabaseMigrationAutoRollback,
	}); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("apply migrations: %w", err)
	}

	return facility.NewSQLStore(db, logger), func() { _ = db.Close() }, nil
}

func parsePort(raw string) int {
	port := 5432
	_, _ = fmt.Sscanf(raw, "%d", &port)
	return port
}

func buildConnectors(cfg config.Config) []connectors.Connector {
	return []connectors.Connector{
		lacounty.New(cfg.LACountyInventoryURL, cfg.LACountyInspectionsURL, cfg.LACountyViolationsURL, cfg.LACountyPageSize, cfg.LACountyMaxRecords, cfg.LACountyTimeout),
		sandiego.New(cfg.SanDiegoBaseURL, cfg.SanDiegoAppToken, cfg.SanDiegoPageSize, cfg.SanDiegoMaxRecords, cfg.SanDiegoTimeout),
		longbeach.New(cfg.LongBeachListingURL, cfg.LongBeachTimeout),
		lives.New(cfg.LivesRiversideBaseURL, cfg.LivesSanBernardinoBaseURL, cfg.LivesPageSize, cfg.LivesMaxRecords, cfg.LivesTimeout),
		cpra.New(cfg.CPRAOrangeCountyCSVURL, cfg.CPRAOrangeCountyLiveURL, cfg.CPRAPasadenaCSVURL, cfg.CPRAPasadenaLiveURL, cfg.CPRATimeout),
	}
}

func buildEmitter(cfg config.Config, logger ectologger.Logger) events.Emitter {
	if !cfg.KafkaEventsEnabled {
		return &events.NoopEmitter{}
	}
	return events.NewKafkaEmitter(events.ProducerConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaIngestionTopic,
	}, logger)
}

// runRefreshOnce performs exactly one refresh and exits with the code
// spec §6 reserves for this mode.
func runRefreshOnce(ctx context.Context, orchestrator *ingest.Orchestrator, logger ectologger.Logger) {
	outcome, err := orchestrator.RunOnce(ctx)
	if err != nil {
		logger.WithError(err).Error("refresh_once failed")
		os.Exit(exitFatalStartup)
	}
	if outcome.AllFailed {
		logger.Error("refresh_once: every connector failed")
		os.Exit(exitAllConnectors)
	}
	os.Exit(exitOK)
}

// runWorker runs the scheduled ingestion loop only; it serves no HTTP
// traffic (spec §4.5's "worker" mode).
func runWorker(ctx context.Context, orchestrator *ingest.Orchestrator, cfg config.Config, logger ectologger.Logger) {
	if err := orchestrator.Start(ctx, true, cfg.WorkerRefreshInterval); err != nil {
		logger.WithError(err).Error("failed to start worker loop")
		os.Exit(exitFatalStartup)
	}

	<-ctx.Done()
	logger.Info("shutting down worker")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = orchestrator.Stop(stopCtx)
}

// runAPI serves the HTTP surface. The orchestrator's manual-refresh
// mailbox is started but not scheduled, so POST /api/v1/system/refresh
// still works without a background ingestion loop.
func runAPI(ctx context.Context, orchestrator *ingest.Orchestrator, store facility.Store, cfg config.Config, logger ectologger.Logger) {
	if err := orchestrator.Start(ctx, false, 0); err != nil {
		logger.WithError(err).Error("failed to start orchestrator")
		os.Exit(exitFatalStartup)
	}

	searchSvc := search.NewService(store, logger)
	voteSvc := vote.NewService(store, vote.Config{
		PerFacilityInterval: cfg.VotePerFacilityInterval,
		GlobalLimit:         cfg.VoteGlobalLimit,
		GlobalWindow:        cfg.VoteGlobalWindow,
	}, logger)
	defer voteSvc.Close()

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httpmiddleware.Error(logger)
	e.Use(httpmiddleware.Context())
	e.Use(httpmiddleware.Logger(logger))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(echomw.Recover())

	health.Register(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	facilityroutes.NewHandler(searchSvc, voteSvc).Register(api)
	system.NewHandler(store, orchestrator).Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		ReadTimeout:  time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		logger.Infof("listening on %s", server.Addr)
		if err := e.StartServer(server); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("http server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = e.Shutdown(shutdownCtx)
	_ = orchestrator.Stop(shutdownCtx)
}
