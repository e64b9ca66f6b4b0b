package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	phttp "github.com/radieske/court-booking-platform/internal/payment-service/http"
	"github.com/radieske/court-booking-platform/internal/payment-service/ws"
	"github.com/radieske/court-booking-platform/internal/shared/cache"
	"github.com/radieske/court-booking-platform/internal/shared/config"
	"github.com/radieske/court-booking-platform/internal/shared/kafka"
	"github.com/radieske/court-booking-platform/internal/shared/kvstore"
	"github.com/radieske/court-booking-platform/internal/shared/logger"
	"github.com/radieske/court-booking-platform/internal/shared/metrics"
	wclient "github.com/radieske/court-booking-platform/internal/wallet-service/client"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := kvstore.Open(ctx, cfg.StoreBackend, cfg.RedisAddr, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("store open", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer backend.Close()

	// Redis Pub/Sub: todas as réplicas recebem as mudanças de status e repassam aos seus clientes WS
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	hub := ws.NewHub(func(r *http.Request) bool { return true }, logger.Component(log, "ws"))
	ws.StartRedisSubscriber(ctx, redisClient, cfg.RedisPubSubChannel, hub, log)

	events, closeEvents := kafka.Open(cfg.KafkaBrokers, cfg.TopicPaymentStatus, log)
	defer closeEvents()

	metrics.MustRegister(prometheus.DefaultRegisterer, metrics.PaymentTransitions)
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := backend.Ping(ctx); err != nil {
			return err
		}
		return redisClient.Ping(ctx).Err()
	})

	api := phttp.NewServer(logger.Component(log, "payment"), backend.Store, phttp.Deps{
		Events:      events,
		Broadcaster: ws.NewRedisBroadcaster(redisClient, cfg.RedisPubSubChannel),
		Wallet:      wclient.New(cfg.WalletURL),
		Hub:         hub,
		DemoConfirm: cfg.PaymentDemoConfirm,
	})
	if cfg.PaymentDemoConfirm {
		log.Warn("demo payment confirmation enabled")
	}

	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort, // ex: 8083
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = apiSrv.Shutdown(sctx)
		_ = metricsSrv.Shutdown(sctx)
	}()

	log.Info("api listening", zap.String("addr", apiSrv.Addr), zap.String("ws", "/ws/payments"))
	if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("api srv", zap.Error(err))
	}
}
