package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache guarda resultados de geocoding bem-sucedidos no Redis.
type Cache struct{ R *redis.Client }

func New(r *redis.Client) *Cache { return &Cache{R: r} }

// chave normalizada: caixa e espaços das pontas não geram entradas distintas
func keyAddress(address string) string {
	return "geocode:" + strings.ToLower(strings.TrimSpace(address))
}

func (c *Cache) Get(ctx context.Context, address string, dst any) (bool, error) {
	b, err := c.R.Get(ctx, keyAddress(address)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (c *Cache) Set(ctx context.Context, address string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, keyAddress(address), b, ttl).Err()
}
