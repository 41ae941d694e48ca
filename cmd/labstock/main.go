package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/text/language"

	"github.com/labstock/labstock/internal/app"
	"github.com/labstock/labstock/internal/assets"
	"github.com/labstock/labstock/internal/backend"
	"github.com/labstock/labstock/internal/lab"
	"github.com/labstock/labstock/internal/observability"
	"github.com/labstock/labstock/internal/platform/cache"
	"github.com/labstock/labstock/internal/platform/db"
	"github.com/labstock/labstock/internal/reportlog"
	"github.com/labstock/labstock/internal/shared"
	"github.com/labstock/labstock/internal/view"
	"github.com/labstock/labstock/jobs"
	"github.com/labstock/labstock/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	metrics := observability.NewMetrics()

	var reportLogs lab.ReportLog
	if cfg.PGDSN != "" {
		pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			os.Exit(1)
		}
		reportLogs = reportlog.NewStore(pool, cfg.ReportLogRetention)
	} else {
		logger.Info("PG_DSN not set, report log disabled")
	}

	var redisClient *redis.Client
	if cfg.RedisEnabled() {
		redisClient, err = cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Error("connect redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	} else {
		logger.Warn("REDIS_ADDR not set, using in-memory list state without sessions")
	}

	var sessionManager *shared.SessionManager
	if redisClient != nil {
		sessionManager = shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	}
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	source, err := newAssetSource(cfg, logger)
	if err != nil {
		logger.Error("init asset source", slog.Any("error", err))
		os.Exit(1)
	}
	logos := &report.LogoLoader{Source: source, Left: cfg.LogoLeft, Right: cfg.LogoRight}

	var gotenberg *report.Client
	var engine report.Engine = report.NewFPDFEngine()
	if cfg.ReportEngine == "gotenberg" {
		gotenberg = report.NewClient(cfg.GotenbergURL)
		engine = report.NewGotenbergEngine(gotenberg)
	}
	renderer := report.NewRenderer(engine, logger,
		report.WithLogos(logos),
		report.WithLetterhead(cfg.Letterhead()),
		report.WithObserver(metrics),
	)

	lang, err := language.Parse(cfg.AppLanguage)
	if err != nil {
		logger.Warn("unknown APP_LANGUAGE, using English", slog.String("language", cfg.AppLanguage))
		lang = language.English
	}

	service := lab.NewService(
		lab.NewCatalogue(),
		backend.NewClient(cfg.BackendURL, cfg.BackendTimeout),
		cache.NewStore(redisClient, cfg.CollectionTTL),
		renderer,
		lab.Options{
			Language: lang,
			StateTTL: cfg.StateTTL,
			Logs:     reportLogs,
			Metrics:  metrics,
			Logger:   logger,
		},
	)
	labHandler := lab.NewHandler(logger, service, templates, csrfManager)
	reportHandler := report.NewHandler(gotenberg, logger)

	var jobHandler *jobs.Handler
	if redisClient != nil {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
		inspector := asynq.NewInspector(redisOpts)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobClient := jobs.NewClient(redisOpts)
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, jobClient, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		LabHandler:     labHandler,
		ReportHandler:  reportHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("engine", engine.Name()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func newAssetSource(cfg *app.Config, logger *slog.Logger) (report.AssetSource, error) {
	if cfg.AssetProvider == "s3" {
		return assets.NewS3Source(cfg.S3(), logger), nil
	}
	return assets.NewLocalSource(cfg.AssetDir)
}
