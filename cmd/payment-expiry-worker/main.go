package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/court-booking-platform/internal/payment-expiry/sweeper"
	"github.com/radieske/court-booking-platform/internal/payment-service/ws"
	"github.com/radieske/court-booking-platform/internal/shared/cache"
	"github.com/radieske/court-booking-platform/internal/shared/config"
	"github.com/radieske/court-booking-platform/internal/shared/kafka"
	"github.com/radieske/court-booking-platform/internal/shared/kvstore"
	"github.com/radieske/court-booking-platform/internal/shared/logger"
	"github.com/radieske/court-booking-platform/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := kvstore.Open(ctx, cfg.StoreBackend, cfg.RedisAddr, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("store open", zap.Error(err))
	}
	defer backend.Close()

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	events, closeEvents := kafka.Open(cfg.KafkaBrokers, cfg.TopicPaymentStatus, log)
	defer closeEvents()

	// Métricas do ciclo de expiração
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "payment_expiry_errors_total", Help: "erros por estágio"}, []string{"stage"})
	metrics.MustRegister(prometheus.DefaultRegisterer, metrics.ExpirySweeps, errorsBy)
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, backend.Ping)
	defer metricsSrv.Close()

	sw := &sweeper.Sweeper{
		Log:         logger.Component(log, "sweeper"),
		Store:       backend.Store,
		Events:      events,
		Broadcaster: ws.NewRedisBroadcaster(redisClient, cfg.RedisPubSubChannel),
		Interval:    cfg.PaymentSweepInterval,
		OnExpired:   func() { metrics.ExpirySweeps.Inc() },
		OnError:     func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	log.Info("payment-expiry-worker started",
		zap.Duration("interval", cfg.PaymentSweepInterval),
		zap.String("backend", cfg.StoreBackend),
	)
	if err := sw.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("sweeper stopped", zap.Error(err))
	}
	log.Info("payment-expiry-worker stopped")
}
