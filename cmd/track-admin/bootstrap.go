package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ParcelDesk/ParcelDesk/config"
	authapi "github.com/ParcelDesk/ParcelDesk/internal/api/auth_api"
	trackingsapi "github.com/ParcelDesk/ParcelDesk/internal/api/trackings_api"
	"github.com/ParcelDesk/ParcelDesk/internal/broker/kafka"
	"github.com/ParcelDesk/ParcelDesk/internal/cache/rediscache"
	"github.com/ParcelDesk/ParcelDesk/internal/services/auth"
	"github.com/ParcelDesk/ParcelDesk/internal/services/trackings"
	"github.com/ParcelDesk/ParcelDesk/internal/storage/mongostore"
	"github.com/joho/godotenv"
)

type trackAdminApp struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     trackAdminOpts
	svc      *trackings.Service
	api      *trackingsapi.TrackingsAPI
	authAPI  *authapi.AuthAPI
	consumer *kafka.Consumer
	producer *kafka.Producer
	closeDB  func()
}

func mustBootstrapTrackAdmin() *trackAdminApp {
	// .env опционален, в контейнере переменные приходят снаружи
	_ = godotenv.Load()

	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}
	if cfg.Auth.JWTSecret == "" {
		panic("auth.jwt_secret (or JWT_SECRET env var) is required")
	}

	httpAddr := cfg.ParcelDesk.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := cfg.ParcelDesk.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "track-admin"
	}
	topic := cfg.Kafka.TrackingChangedTopicName
	if topic == "" {
		topic = "tracking.changed"
	}
	cacheTTL := time.Duration(cfg.ParcelDesk.CurrentStatusTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	tokenTTL := time.Duration(cfg.Auth.TokenTTLSeconds) * time.Second

	st := mustOpenMongoWithRetry(cfg.Mongo.URI, cfg.Mongo.DBName, 60*time.Second)

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rc := rediscache.New(redisAddr)
	limiter := rediscache.NewRateLimiter(redisAddr)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	producer := kafka.NewProducer(brokers, topic)
	consumer := kafka.NewConsumer(brokers, topic, consumerGroup)

	svc := trackings.New(st, rc, producer, cacheTTL)
	authSvc := auth.New(st, cfg.Auth.JWTSecret, tokenTTL)

	if err := authSvc.EnsureAdmin(context.Background(), cfg.Auth.SeedAdminLogin, cfg.Auth.SeedAdminPassword); err != nil {
		slog.Error("seed admin failed", "error", err)
	}

	api := trackingsapi.New(svc, limiter, int64(cfg.ParcelDesk.PublicRateLimitPerMinute), time.Minute)
	authAPI := authapi.New(authSvc, limiter, int64(cfg.ParcelDesk.LoginRateLimitPerMinute), time.Minute)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &trackAdminApp{
		ctx:    ctx,
		cancel: cancel,
		opts: trackAdminOpts{
			httpAddr:      httpAddr,
			swaggerPath:   swaggerPath,
			topic:         topic,
			consumerGroup: consumerGroup,
			ready:         st.Ping,
		},
		svc:      svc,
		api:      api,
		authAPI:  authAPI,
		consumer: consumer,
		producer: producer,
		closeDB:  st.Close,
	}
}

func mustOpenMongoWithRetry(uri, dbName string, wait time.Duration) *mongostore.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := mongostore.New(uri, dbName)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("mongo is not ready after %s: %v", wait, lastErr))
}

func (a *trackAdminApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.consumer != nil {
		_ = a.consumer.Close()
	}
	if a.producer != nil {
		_ = a.producer.Close()
	}
	if a.closeDB != nil {
		a.closeDB()
	}
}

func (a *trackAdminApp) Run() error {
	return runTrackAdmin(a.ctx, a.opts, a.svc, a.api, a.authAPI, a.consumer)
}
