package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fathima-sithara/dm-service/internal/api"
	"github.com/fathima-sithara/dm-service/internal/auth"
	"github.com/fathima-sithara/dm-service/internal/config"
	"github.com/fathima-sithara/dm-service/internal/events"
	"github.com/fathima-sithara/dm-service/internal/logger"
	"github.com/fathima-sithara/dm-service/internal/middleware"
	"github.com/fathima-sithara/dm-service/internal/presence"
	"github.com/fathima-sithara/dm-service/internal/repository"
	"github.com/fathima-sithara/dm-service/internal/service"
	"github.com/fathima-sithara/dm-service/internal/ws"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	zl, err := logger.New(cfg.App.Env != "production")
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	mc, err := repository.NewMongoClient(cfg.Mongo.URI)
	if err != nil {
		zl.Fatalf("mongo init: %v", err)
	}
	defer func() { _ = mc.Disconnect(context.Background()) }()
	db := mc.Database(cfg.Mongo.DB)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	publisher := events.NewKafkaPublisher(cfg.Kafka.Brokers)
	defer func() { _ = publisher.Close() }()

	var jv *auth.Validator
	if strings.ToUpper(cfg.JWT.Alg) == "RS256" {
		jv, err = auth.NewValidatorRS256(cfg.JWT.PublicKeyPath)
	} else {
		jv, err = auth.NewValidatorHS256(cfg.JWT.HSSecret)
	}
	if err != nil {
		zl.Fatalf("jwt validator init: %v", err)
	}

	presenceStore := presence.NewRedisStore(rdb, cfg.Redis.Prefix)

	conversations := service.NewConversationService(repository.NewMongoConversationRepository(db))
	blocks := service.NewBlockService(repository.NewMongoBlockRepository(db))
	messages := service.NewMessageService(
		repository.NewMongoMessageRepository(db),
		conversations,
		blocks,
		presenceStore,
		publisher,
		zl,
	)
	users := repository.NewMongoUserRepository(db)

	hub := ws.NewHub()
	messages.SetPusher(hub)
	wsrv := ws.NewServer(hub, jv, messages, presenceStore, zl,
		cfg.PingInterval, cfg.WriteDeadline, cfg.WS.MaxMessageSizeBytes)

	limiter := middleware.NewRateLimiter(rdb, "rl", cfg.RateLimit.PerMinute, time.Minute)

	app := api.NewServer(api.Deps{
		Validator:     jv,
		Messages:      messages,
		Conversations: conversations,
		Blocks:        blocks,
		Users:         users,
		Limiter:       limiter,
		WS:            wsrv,
	})

	go func() {
		if err := app.Listen(":" + cfg.App.Port); err != nil {
			zl.Fatalf("server listen: %v", err)
		}
	}()
	zl.Infof("dm-service started on :%s", cfg.App.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(ctx)
	zl.Info("dm-service stopped")
}
