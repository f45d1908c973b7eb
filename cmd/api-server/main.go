package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lending-core/internal/api"
	"lending-core/internal/common/aws"
	"lending-core/internal/common/config"
	"lending-core/internal/common/database"
	"lending-core/internal/common/logger"
	"lending-core/internal/common/observability"
	"lending-core/internal/matching"
	"lending-core/internal/voice"
	"lending-core/pkg/catalog"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := logger.NewZapAdapter(zapLogger)

	log.Info("Starting lending core", map[string]interface{}{
		"service":     cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres is optional: without a configured database the service
	// runs on the in-memory voicemail store and candidate-only matching.
	var pg *database.PostgresClient
	if cfg.Database.Postgres.Database != "" {
		pg, err = connectPostgres(ctx, cfg.Database.Postgres, zapLogger)
		if err != nil {
			zapLogger.Fatal("postgres unavailable", zap.Error(err))
		}
		defer pg.Close()
	}

	var rdb *database.RedisClient
	if cfg.Database.Redis.Address != "" {
		rdb, err = connectRedis(ctx, cfg.Database.Redis, zapLogger)
		if err != nil {
			zapLogger.Warn("redis unavailable, continuing without cache and events", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	directory, err := voice.NewDirectoryFromConfig(cfg.Voice)
	if err != nil {
		zapLogger.Fatal("failed to seed directory", zap.Error(err))
	}

	var store voice.VoicemailStore = voice.NewMemoryStore()
	if pg != nil {
		store = voice.NewPostgresStore(pg.DB)
	}

	var publisher voice.Publisher = voice.NoopPublisher{}
	if rdb != nil {
		publisher = voice.NewRedisPublisher(rdb.Client, cfg.Voice.EventChannel)
	}

	notifier := buildNotifier(ctx, cfg, directory, log, zapLogger)

	callRouter := voice.NewCallRouter(cfg.Voice, directory, store, notifier, publisher, log)

	var productRepo matching.ProductRepository
	var appRepo matching.ApplicationRepository
	if pg != nil {
		productRepo = matching.NewPostgresProductRepository(pg.DB)
		appRepo = matching.NewPostgresApplicationRepository(pg.DB)
	} else if cfg.Matching.CatalogFile != "" {
		catalogFile, err := catalog.Load(cfg.Matching.CatalogFile)
		if err != nil {
			zapLogger.Fatal("failed to load product catalog file", zap.Error(err))
		}
		productRepo = catalog.NewRepository(catalogFile)
		log.Info("Product catalog loaded from file", map[string]interface{}{
			"path":     cfg.Matching.CatalogFile,
			"version":  catalogFile.Version,
			"products": len(catalogFile.Products),
		})
	}

	var redisConn *redis.Client
	if rdb != nil {
		redisConn = rdb.Client
	}
	matchSvc := matching.NewService(matching.ServiceConfig{
		MinScore:     cfg.Matching.MinScore,
		Limit:        cfg.Matching.Limit,
		CacheTTL:     time.Duration(cfg.Matching.CacheTTL) * time.Second,
		CacheEnabled: cfg.Matching.CacheEnabled && rdb != nil,
	}, productRepo, appRepo, redisConn, log)

	engine := api.NewRouter(cfg.App, log, obs,
		api.NewVoiceHandler(callRouter, store, directory, log),
		api.NewMatchingHandler(matchSvc, log),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.HTTP.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("graceful shutdown failed", zap.Error(err))
	}

	log.Info("Shutdown complete", nil)
}

func connectPostgres(ctx context.Context, cfg config.PostgresConfig, zapLogger *zap.Logger) (*database.PostgresClient, error) {
	var client *database.PostgresClient
	err := retryWithBackoff(ctx, 5, 2*time.Second, func() error {
		c, err := database.NewPostgres(cfg)
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := c.Ping(pingCtx); err != nil {
			c.Close()
			return err
		}
		client = c
		return nil
	}, zapLogger, "postgres")
	return client, err
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, zapLogger *zap.Logger) (*database.RedisClient, error) {
	var client *database.RedisClient
	err := retryWithBackoff(ctx, 3, time.Second, func() error {
		c, err := database.NewRedis(cfg)
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := c.Ping(pingCtx); err != nil {
			c.Close()
			return err
		}
		client = c
		return nil
	}, zapLogger, "redis")
	return client, err
}

// buildNotifier wires SES and SNS when enabled. A client setup failure
// disables the channel instead of blocking startup; voicemail capture
// must not depend on notification delivery.
func buildNotifier(ctx context.Context, cfg *config.Config, directory *voice.Directory, log logger.Logger, zapLogger *zap.Logger) *voice.Notifier {
	var sesClient voice.SESService
	var snsClient voice.SNSService

	if cfg.Integrations.AWS.SES.Enabled {
		client, err := aws.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLogger.Warn("ses client setup failed, email notifications disabled", zap.Error(err))
		} else {
			sesClient = client
		}
	}
	if cfg.Integrations.AWS.SNS.Enabled {
		client, err := aws.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLogger.Warn("sns client setup failed, sms notifications disabled", zap.Error(err))
		} else {
			snsClient = client
		}
	}

	return voice.NewNotifier(voice.NotifierConfig{
		SESEnabled:  cfg.Integrations.AWS.SES.Enabled && sesClient != nil,
		FromEmail:   cfg.Integrations.AWS.SES.FromEmail,
		SNSEnabled:  cfg.Integrations.AWS.SNS.Enabled && snsClient != nil,
		SMSSenderID: cfg.Integrations.AWS.SNS.DefaultSMSSenderID,
	}, directory, sesClient, snsClient, log)
}

func retryWithBackoff(ctx context.Context, attempts int, base time.Duration, fn func() error, zapLogger *zap.Logger, name string) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}

		zapLogger.Warn("connection attempt failed",
			zap.String("target", name),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(base * time.Duration(1<<(attempt-1))):
		}
	}
	return err
}
