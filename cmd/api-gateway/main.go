package main

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/court-booking-platform/internal/api-gateway/gateway"
	"github.com/radieske/court-booking-platform/internal/shared/config"
	"github.com/radieske/court-booking-platform/internal/shared/logger"
	"github.com/radieske/court-booking-platform/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	// targets
	h, err := gateway.Router(gateway.Targets{
		Wallet:    cfg.WalletURL,
		Payments:  cfg.PaymentURL,
		Bookings:  cfg.BookingURL,
		Geocoding: cfg.GeocodingURL,
	}, log)
	if err != nil {
		log.Fatal("gateway routes", zap.Error(err))
	}

	metrics.StartMetricsServer(cfg.MetricsPort, nil)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info("api-gateway listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("gateway failed", zap.Error(err))
	}
}
