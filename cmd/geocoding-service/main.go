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

	gcache "github.com/radieske/court-booking-platform/internal/geocoding-service/cache"
	"github.com/radieske/court-booking-platform/internal/geocoding-service/geocoder"
	ghttp "github.com/radieske/court-booking-platform/internal/geocoding-service/http"
	"github.com/radieske/court-booking-platform/internal/geocoding-service/nominatim"
	"github.com/radieske/court-booking-platform/internal/shared/cache"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []geocoder.Option{geocoder.WithBatchDelay(cfg.GeocodeBatchDelay)}

	// cache Redis é opcional: sem Redis o serviço segue consultando o upstream
	var health metrics.HealthFunc
	if cfg.GeocodeCacheTTL > 0 {
		redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
		if err != nil {
			log.Warn("redis unavailable, geocode cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			opts = append(opts, geocoder.WithCache(gcache.New(redisClient), cfg.GeocodeCacheTTL))
			health = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
			log.Info("geocode cache enabled", zap.Duration("ttl", cfg.GeocodeCacheTTL))
		}
	}

	metrics.MustRegister(prometheus.DefaultRegisterer, metrics.GeocodeLookups)
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, health)

	upstream := nominatim.New(cfg.NominatimURL, cfg.NominatimUserAgent, cfg.NominatimCountryCodes)
	geo := geocoder.New(upstream, logger.Component(log, "geocoder"), opts...)
	api := ghttp.NewServer(log, geo)

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

	log.Info("geocoding-service listening",
		zap.String("addr", srv.Addr),
		zap.String("upstream", cfg.NominatimURL),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("listen", zap.Error(err))
	}
}
