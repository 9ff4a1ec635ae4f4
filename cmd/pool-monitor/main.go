package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pool-monitor/internal/auth"
	"pool-monitor/internal/cache"
	"pool-monitor/internal/config"
	"pool-monitor/internal/database"
	"pool-monitor/internal/evaluator"
	httpapi "pool-monitor/internal/http"
	"pool-monitor/internal/logger"
	"pool-monitor/internal/metrics"
	"pool-monitor/internal/mqtt"
	"pool-monitor/internal/notify"
	"pool-monitor/internal/repository"
	"pool-monitor/internal/service"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "pool-monitor")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage: Postgres when available, in-memory otherwise
	var db *sql.DB
	var store repository.Store
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(ctx, cfg.Database); err == nil {
			db = d
		} else {
			log.Warn("DB enabled but connection failed, falling back to in-memory store", zap.Error(err))
		}
	}
	if db != nil {
		if cfg.Migrate {
			if err := database.Migrate(db, log); err != nil {
				log.Fatal("Failed to migrate database", zap.Error(err))
			}
		}
		store = repository.NewPostgresStore(db, log)
		log.Info("DB enabled for pool-monitor")
	} else {
		store = repository.NewMemoryStore()
		log.Warn("Using in-memory store; data is lost on restart")
	}

	metrics.Init(db)

	// Redis: latest-reading cache and alert stream
	var redisClient *redis.Client
	var readingCache service.ReadingCache
	var notifiers []notify.Notifier
	if cfg.RedisEnabled {
		if c, err := cache.NewRedisClient(ctx, cfg.Redis); err == nil {
			redisClient = c
			readingCache = cache.NewReadingCache(c, cfg.Cache.LatestKeyPrefix, cfg.Cache.LatestSuffix, cfg.Cache.LatestTTL)
			notifiers = append(notifiers, cache.NewAlertStream(c, cfg.Alert.Stream, cfg.Alert.StreamMaxLen))
			log.Info("Redis enabled", zap.String("addr", cfg.Redis.Addr))
		} else {
			log.Warn("Redis enabled but connection failed, running without cache", zap.Error(err))
		}
	}
	if cfg.Alert.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.Alert.WebhookURL, cfg.Alert.WebhookTimeout, log))
	}
	var alertPublisher service.AlertPublisher
	if fanout := notify.NewFanout(log, notifiers...); fanout.Len() > 0 {
		alertPublisher = fanout
	}

	// MQTT: config push. The telemetry subscription is added once ingestion exists.
	var mqttClient *mqtt.Client
	var configPublisher service.ConfigPublisher
	if cfg.MQTTEnabled {
		if c, err := mqtt.NewClient(cfg.MQTT, log); err == nil {
			mqttClient = c
			configPublisher = mqtt.NewConfigPublisher(c, cfg.Topics.ConfigFormat, cfg.MQTT.QoS)
		} else {
			log.Warn("MQTT enabled but connection failed, running HTTP only", zap.Error(err))
		}
	}

	// Services
	ingest := service.NewIngestService(store, evaluator.NewDeduplicator(cfg.Alert.DedupWindow), readingCache, alertPublisher, log)
	devices := service.NewDeviceService(store, log)
	configs := service.NewConfigService(store, configPublisher, log)
	readings := service.NewReadingService(store, readingCache, log)
	alerts := service.NewAlertService(store, log)
	dispenser := service.NewDispenserService(store, log)

	if mqttClient != nil {
		telemetry := mqtt.NewTelemetryHandler(ingest, log)
		if err := mqttClient.Subscribe(cfg.Topics.Data, cfg.MQTT.QoS, telemetry.HandleMessage); err != nil {
			log.Error("Failed to subscribe to telemetry topic", zap.String("topic", cfg.Topics.Data), zap.Error(err))
		} else {
			log.Info("Subscribed to telemetry topic", zap.String("topic", cfg.Topics.Data))
		}
	}

	// HTTP
	router := httpapi.NewRouter(log)
	router.RegisterPoolRoutes(httpapi.NewPoolHandler(ingest, configs, log))
	router.RegisterDeviceRoutes(httpapi.NewDeviceHandler(devices, configs, readings, alerts, log))
	router.RegisterAlertRoutes(httpapi.NewAlertHandler(alerts, readings, log))
	router.RegisterDispenserRoutes(httpapi.NewDispenserHandler(dispenser, log))
	router.RegisterSystemRoutes(metrics.Handler())

	var handler http.Handler = router
	if cfg.Auth.Enabled {
		tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		users := service.NewUserService(store, tokens, log)
		if cfg.Auth.SeedAdmin != "" {
			if err := users.SeedAdmin(ctx, cfg.Auth.SeedAdmin, cfg.Auth.SeedAdminPassword); err != nil {
				log.Error("Failed to seed admin account", zap.String("username", cfg.Auth.SeedAdmin), zap.Error(err))
			}
		}
		router.RegisterAuthRoutes(httpapi.NewAuthHandler(users, log))
		handler = auth.NewMiddleware(tokens, auth.NewDefaultPolicy(), log).Wrap(router)
		log.Info("Authentication enabled")
	}
	handler = httpapi.RequestLogger(httpapi.CORS(handler), log)

	srv := service.NewServer(cfg.HTTP.Addr, handler, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Shutting down", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", zap.Error(err))
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = database.Close(db)
	}
}
