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

	bhttp "github.com/radieske/court-booking-platform/internal/booking-service/http"
	"github.com/radieske/court-booking-platform/internal/shared/config"
	"github.com/radieske/court-booking-platform/internal/shared/kafka"
	"github.com/radieske/court-booking-platform/internal/shared/kvstore"
	"github.com/radieske/court-booking-platform/internal/shared/logger"
	"github.com/radieske/court-booking-platform/internal/shared/metrics"
	wclient "github.com/radieske/court-booking-platform/internal/wallet-service/client"
)

func main() {
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := kvstore.Open(ctx, cfg.StoreBackend, cfg.RedisAddr, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("store open", zap.Error(err))
	}
	defer backend.Close()

	events, closeEvents := kafka.Open(cfg.KafkaBrokers, cfg.TopicBookingStatus, log)
	defer closeEvents()

	metrics.MustRegister(prometheus.DefaultRegisterer, metrics.BookingOperations)
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, backend.Ping)

	// deps
	wallet := wclient.New(cfg.WalletURL) // wallet-service
	api := bhttp.NewServer(logger.Component(log, "booking"), backend.Store, events, wallet)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
		_ = metricsSrv.Shutdown(sctx)
	}()

	log.Info("booking-service listening", zap.String("addr", srv.Addr), zap.String("wallet", cfg.WalletURL))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("listen", zap.Error(err))
	}
}
