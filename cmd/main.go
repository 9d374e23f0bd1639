package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/team-space/config"
	"github.com/Dosada05/team-space/db"
	_ "github.com/Dosada05/team-space/docs"
	"github.com/Dosada05/team-space/handlers"
	"github.com/Dosada05/team-space/middleware"
	"github.com/Dosada05/team-space/realtime"
	"github.com/Dosada05/team-space/repositories"
	api "github.com/Dosada05/team-space/routes"
	"github.com/Dosada05/team-space/services"
	"github.com/Dosada05/team-space/storage"
	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

// @title Team Space API
// @version 1.0
// @description Teams, membership and invite-token workflow
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	if err := run(); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("application exited")
}

func run() error {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("storage", cfg.StorageDriver),
		slog.String("auth_mode", cfg.AuthMode))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Хранилище команд
	var (
		teamRepo repositories.TeamRepository
		pinger   handlers.Pinger
	)
	switch cfg.StorageDriver {
	case config.StorageDriverPostgres:
		dbConn, err := db.Connect(cfg.DatabaseURL, db.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
		}, 5*time.Second)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			if err := dbConn.Close(); err != nil {
				logger.Error("failed to close database connection", slog.Any("error", err))
			} else {
				logger.Info("database connection closed")
			}
		}()
		if err := db.Migrate(ctx, dbConn); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
		logger.Info("database connection established")
		teamRepo = repositories.NewPostgresTeamRepository(dbConn)
		pinger = dbConn
	default:
		logger.Warn("using in-memory storage, data will not survive a restart")
		teamRepo = repositories.NewMemoryTeamRepository(nil)
	}

	// Инициализация WebSocket Hub
	wsHub := realtime.NewHub(logger)

	serviceCfg := services.TeamServiceConfig{
		Tokens:    services.NewCryptoTokenGenerator(),
		Events:    wsHub,
		Logger:    logger,
		PublicURL: cfg.PublicURL,
	}

	// Инициализация загрузчика файлов (Cloudflare R2)
	if cfg.R2Enabled() {
		uploader, err := storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudflare R2 uploader: %w", err)
		}
		serviceCfg.Uploader = uploader
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Info("R2 is not configured, team logos are disabled")
	}

	if cfg.SMTPEnabled() {
		serviceCfg.Mailer = services.NewEmailService(cfg)
		logger.Info("SMTP email delivery enabled", slog.String("host", cfg.SMTPHost))
	}

	teamService := services.NewTeamService(teamRepo, serviceCfg)

	// Аутентификация
	var resolver middleware.IdentityResolver
	switch cfg.AuthMode {
	case config.AuthModePrincipal:
		resolver = middleware.NewClientPrincipalResolver(cfg.DevMode)
		if cfg.DevMode {
			logger.Warn("dev mode: requests without a principal run as the development user")
		}
	default:
		resolver = middleware.NewJWTResolver(cfg.JWTSecretKey)
	}

	// Инициализация обработчиков HTTP
	teamHandler := handlers.NewTeamHandler(teamService, handlers.NewValidator())
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, teamService, cfg.CORSAllowedOrigins)
	healthHandler := handlers.NewHealthHandler(pinger)

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Config{
		Logger:         logger,
		Resolver:       resolver,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}, teamHandler, webSocketHandler, healthHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("WebSocket Hub started")
		return wsHub.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("starting server", slog.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Ожидание сигнала завершения
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		logger.Info("server shutdown complete")
		return nil
	})

	return g.Wait()
}
