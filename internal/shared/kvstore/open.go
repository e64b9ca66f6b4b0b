package kvstore

import (
	"context"
	"fmt"

	"github.com/radieske/court-booking-platform/internal/shared/cache"
	"github.com/radieske/court-booking-platform/internal/shared/db"
)

// Backend agrupa o store escolhido com seu health check e finalizador.
type Backend struct {
	Store Store
	Ping  func(ctx context.Context) error
	Close func() error
}

// Open resolve o backend conforme STORE_BACKEND ("memory", "redis" ou "postgres").
func Open(ctx context.Context, kind, redisAddr, postgresDSN string) (*Backend, error) {
	switch kind {
	case "memory":
		return &Backend{
			Store: NewMemory(),
			Ping:  func(context.Context) error { return nil },
			Close: func() error { return nil },
		}, nil
	case "redis":
		rdb, err := cache.ConnectRedis(redisAddr)
		if err != nil {
			return nil, fmt.Errorf("redis connect: %w", err)
		}
		return &Backend{
			Store: NewRedis(rdb),
			Ping:  func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			Close: rdb.Close,
		}, nil
	case "postgres":
		pg, err := db.ConnectPostgres(postgresDSN)
		if err != nil {
			return nil, err
		}
		ps := NewPostgres(pg)
		if err := ps.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("kv_store schema: %w", err)
		}
		return &Backend{Store: ps, Ping: pg.PingContext, Close: pg.Close}, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", kind)
	}
}
