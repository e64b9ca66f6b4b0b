package main

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/court-booking-platform/internal/geocoder-simulator/mock"
	"github.com/radieske/court-booking-platform/internal/shared/config"
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

	metrics.MustRegister(prometheus.DefaultRegisterer, mock.Requests)

	// SIM_LATENCY e SIM_FAIL_RATIO controlam o comportamento do mock
	var opts []mock.Option
	if d, err := time.ParseDuration(os.Getenv("SIM_LATENCY")); err == nil {
		opts = append(opts, mock.WithLatency(d))
	}
	if r, err := strconv.ParseFloat(os.Getenv("SIM_FAIL_RATIO"), 64); err == nil {
		opts = append(opts, mock.WithFailRatio(r))
	}

	// Servidor de métricas em goroutine
	metrics.StartMetricsServer(cfg.MetricsPort, nil)
	log.Info("geocoder simulator (metrics) running", zap.String("addr", ":"+cfg.MetricsPort))

	// Servidor público (/search, /reverse)
	publicAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	log.Info("geocoder simulator (public) running",
		zap.String("addr", publicAddr),
		zap.String("paths", "/search,/reverse"),
	)
	if err := http.ListenAndServe(publicAddr, mock.NewServer(log, opts...).Router()); err != nil {
		log.Fatal("public server error", zap.Error(err))
	}
}
