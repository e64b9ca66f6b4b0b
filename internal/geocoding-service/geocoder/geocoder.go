package geocoder

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/court-booking-platform/internal/geocoding-service/nominatim"
	"github.com/radieske/court-booking-platform/internal/shared/metrics"
)

var (
	ErrNoResults = errors.New("no results found")
	ErrBadCoords = errors.New("invalid coordinates in upstream response")
)

type Result struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

// Searcher é o upstream (nominatim.Client).
type Searcher interface {
	Search(ctx context.Context, q string) ([]nominatim.Place, error)
	Reverse(ctx context.Context, lat, lng float64) (*nominatim.ReversePlace, error)
}

// Cache opcional para resultados positivos.
type Cache interface {
	Get(ctx context.Context, address string, dst any) (bool, error)
	Set(ctx context.Context, address string, v any, ttl time.Duration) error
}

type Geocoder struct {
	upstream Searcher
	cache    Cache
	ttl      time.Duration
	delay    time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	log      *zap.Logger
}

type Option func(*Geocoder)

// WithCache liga o cache com a validade informada.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(g *Geocoder) { g.cache, g.ttl = c, ttl }
}

// WithBatchDelay define a pausa entre consultas do lote.
func WithBatchDelay(d time.Duration) Option {
	return func(g *Geocoder) { g.delay = d }
}

func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(g *Geocoder) { g.sleep = fn }
}

func New(upstream Searcher, log *zap.Logger, opts ...Option) *Geocoder {
	g := &Geocoder{
		upstream: upstream,
		delay:    300 * time.Millisecond,
		sleep:    sleepCtx,
		log:      log,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Lookup resolve um endereço usando o primeiro resultado do upstream.
func (g *Geocoder) Lookup(ctx context.Context, address string) (*Result, error) {
	if g.cache != nil {
		var cached Result
		ok, err := g.cache.Get(ctx, address, &cached)
		if err != nil {
			g.log.Warn("geocode cache read", zap.Error(err))
		}
		if ok {
			metrics.GeocodeLookups.WithLabelValues("cache_hit").Inc()
			return &cached, nil
		}
	}

	places, err := g.upstream.Search(ctx, address)
	if err != nil {
		metrics.GeocodeLookups.WithLabelValues("error").Inc()
		return nil, err
	}
	if len(places) == 0 {
		metrics.GeocodeLookups.WithLabelValues("not_found").Inc()
		return nil, ErrNoResults
	}

	p := places[0]
	lat, err1 := strconv.ParseFloat(p.Lat, 64)
	lng, err2 := strconv.ParseFloat(p.Lon, 64)
	if err1 != nil || err2 != nil {
		metrics.GeocodeLookups.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %q,%q", ErrBadCoords, p.Lat, p.Lon)
	}
	res := &Result{Lat: lat, Lng: lng, Address: p.DisplayName}
	if res.Address == "" {
		res.Address = address
	}
	metrics.GeocodeLookups.WithLabelValues("found").Inc()

	if g.cache != nil {
		if err := g.cache.Set(ctx, address, res, g.ttl); err != nil {
			g.log.Warn("geocode cache write", zap.Error(err))
		}
	}
	return res, nil
}

// Batch resolve os endereços em série, com pausa entre consultas (não após a última).
// Falhas individuais viram nil no mapa.
func (g *Geocoder) Batch(ctx context.Context, addresses []string) (map[string]*Result, error) {
	out := make(map[string]*Result, len(addresses))
	for i, addr := range addresses {
		res, err := g.Lookup(ctx, addr)
		if err != nil {
			g.log.Debug("batch geocode miss", zap.String("address", addr), zap.Error(err))
			res = nil
		}
		out[addr] = res

		if i < len(addresses)-1 {
			if err := g.sleep(ctx, g.delay); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// Reverse devolve o nome de exibição de uma coordenada.
func (g *Geocoder) Reverse(ctx context.Context, lat, lng float64) (*nominatim.ReversePlace, error) {
	p, err := g.upstream.Reverse(ctx, lat, lng)
	if err != nil {
		return nil, err
	}
	if p.DisplayName == "" {
		return nil, ErrNoResults
	}
	return p, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
