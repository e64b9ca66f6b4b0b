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

	"github.com/radieske/court-booking-platform/internal/shared/config"
	"github.com/radieske/court-booking-platform/internal/shared/kafka"
	"github.com/radieske/court-booking-platform/internal/shared/kvstore"
	"github.com/radieske/court-booking-platform/internal/shared/logger"
	"github.com/radieske/court-booking-platform/internal/shared/metrics"
	whttp "github.com/radieske/court-booking-platform/internal/wallet-service/http"
)

func main() {
	cfg := config.Load()

	// Inicializa logger estruturado
	log, err := logger.New("wallet-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", "wallet-service"), zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Store dos slots por usuário (memory | redis | postgres)
	backend, err := kvstore.Open(ctx, cfg.StoreBackend, cfg.RedisAddr, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("store open", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer backend.Close()

	// Eventos wallet_transactions
	events, closeEvents := kafka.Open(cfg.KafkaBrokers, cfg.TopicWalletTransactions, log)
	defer closeEvents()

	metrics.MustRegister(prometheus.DefaultRegisterer, metrics.WalletTransactions, metrics.WalletRejections)
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, backend.Ping) // ex: 9098
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	api := whttp.NewServer(logger.Component(log, "wallet"), backend.Store, events)
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort, // ex: 8082
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdown(log, apiSrv, metricsSrv)
	}()

	log.Info("api listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("api srv", zap.Error(err))
	}
}

func shutdown(log *zap.Logger, servers ...*http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, s := range servers {
		if err := s.Shutdown(ctx); err != nil {
			log.Warn("shutdown", zap.String("addr", s.Addr), zap.Error(err))
		}
	}
}
