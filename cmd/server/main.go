package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xaenox/nutrobo/internal/assistant"
	"github.com/xaenox/nutrobo/internal/auth"
	"github.com/xaenox/nutrobo/internal/bot"
	"github.com/xaenox/nutrobo/internal/food"
	"github.com/xaenox/nutrobo/internal/http/router"
	"github.com/xaenox/nutrobo/internal/service"
	"github.com/xaenox/nutrobo/internal/storage"
	"github.com/xaenox/nutrobo/internal/threadlock"
	"github.com/xaenox/nutrobo/pkg/config"
	"github.com/xaenox/nutrobo/pkg/logger"
)

func main() {
	configPath := os.Getenv("NUTROBO_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		os.Stderr.WriteString("failed to build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := newStorage(cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to initialize storage", zap.Error(err), zap.String("driver", cfg.Database.Driver))
	}
	defer store.Close()

	locker, closeLocker, err := newLocker(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to initialize thread lock", zap.Error(err))
	}
	defer closeLocker()

	resolver := food.NewResolver(log,
		food.NewFDCSource(food.FDCConfig{
			BaseURL: cfg.FDC.BaseURL,
			APIKey:  cfg.FDC.APIKey,
		}, &http.Client{Timeout: cfg.FDC.Timeout}, log),
		food.NewNutritionixSource(food.NutritionixConfig{
			BaseURL: cfg.Nutritionix.BaseURL,
			AppID:   cfg.Nutritionix.AppID,
			APIKey:  cfg.Nutritionix.APIKey,
		}, &http.Client{Timeout: cfg.Nutritionix.Timeout}, log),
	)

	gateway := assistant.NewOpenAIGateway(assistant.OpenAIConfig{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		OrgID:       cfg.OpenAI.OrgID,
		AssistantID: cfg.OpenAI.AssistantID,
	}, log)

	dispatcher := assistant.NewDispatcher(gateway, log)
	dispatcher.Register(assistant.ToolGetNutrientData, assistant.NutrientDataTool(resolver, log))

	orchestrator := assistant.NewOrchestrator(gateway, dispatcher, assistant.Config{
		PollInterval:    cfg.Assistant.PollInterval,
		MaxPollDuration: cfg.Assistant.MaxPollDuration,
		FetchMaxTries:   cfg.Assistant.FetchMaxTries,
	}, log)

	services := service.NewServices(service.Deps{
		Runner:   orchestrator,
		Resolver: resolver,
		Storage:  store,
		Locker:   locker,
		Logger:   log,
	})

	verifier := auth.NewTokenVerifier(auth.Config{
		JWTSecret:   cfg.Auth.JWTSecret,
		JWTIssuer:   cfg.Auth.JWTIssuer,
		JWTAudience: cfg.Auth.JWTAudience,
		Clients:     cfg.Auth.Clients,
	})

	if cfg.Server.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := router.New(services, verifier, router.RouterConfig{
		RequestTimeout: cfg.Server.RequestTimeout,
	}, log)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	if cfg.Telegram.Token != "" {
		b, err := bot.New(cfg.Telegram.Token, services, cfg.Telegram.TurnTimeout, log)
		if err != nil {
			log.Fatal("Failed to create bot", zap.Error(err))
		}
		go func() {
			if err := b.Start(ctx); err != nil {
				log.Error("Bot error", zap.Error(err))
			}
		}()
	} else {
		log.Info("Telegram token not set, bot disabled")
	}

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
	log.Info("Shutdown complete")
}

func newStorage(cfg config.DatabaseConfig, log *zap.Logger) (storage.Storage, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		log.Info("Using PostgreSQL storage", zap.String("host", cfg.Host))
		s, err := storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			DBName:   cfg.DBName,
			SSLMode:  cfg.SSLMode,
		}, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverSQLite:
		log.Info("Using SQLite storage", zap.String("path", cfg.SQLitePath))
		s, err := storage.NewSQLiteStorage(cfg.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		log.Info("Using in-memory storage")
		return storage.NewMemoryStorage(), nil
	}
}

// newLocker returns the Redis lock when redis.url is set and the in-process
// lock otherwise.
func newLocker(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (threadlock.Locker, func(), error) {
	if cfg.URL == "" {
		log.Info("Using in-process thread lock")
		return threadlock.NewLocal(), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}
	log.Info("Using Redis thread lock", zap.String("addr", opts.Addr))

	locker := threadlock.NewRedis(client, threadlock.RedisConfig{
		TTL:       cfg.LockTTL,
		KeyPrefix: cfg.KeyPrefix,
	}, log)
	return locker, func() { client.Close() }, nil
}
