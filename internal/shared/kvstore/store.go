// Package kvstore é o meio de persistência dos serviços "fake": um armazenamento
// chave/valor de blobs JSON, dividido em slots (um por usuário).
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("kvstore: key not found")

// Store é o contrato mínimo de um armazenamento chave/valor de blobs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	// Keys lista as chaves que começam com prefix (ordem não garantida).
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// SlotPrefix devolve o prefixo do slot de armazenamento de um usuário.
func SlotPrefix(userID string) string { return "slot:" + userID + ":" }

// SlotFromKey extrai o userID de "slot:<userID>:<key>" cortando prefixo e sufixo conhecidos,
// já que o userID pode conter ':'.
func SlotFromKey(fullKey, key string) (string, bool) {
	rest, ok := strings.CutPrefix(fullKey, "slot:")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, ":"+key)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// GetJSON carrega e desserializa a chave em dst. Retorna false quando a chave não existe.
func GetJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	b, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON serializa v e grava na chave.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, b)
}

type prefixed struct {
	inner  Store
	prefix string
}

// WithPrefix restringe o store a um namespace; chaves retornadas por Keys vêm sem o prefixo.
func WithPrefix(s Store, prefix string) Store {
	return &prefixed{inner: s, prefix: prefix}
}

func (p *prefixed) Get(ctx context.Context, key string) ([]byte, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key string, value []byte) error {
	return p.inner.Set(ctx, p.prefix+key, value)
}

func (p *prefixed) Delete(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = p.prefix + k
	}
	return p.inner.Delete(ctx, full...)
}

func (p *prefixed) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := p.inner.Keys(ctx, p.prefix+prefix)
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, p.prefix)
	}
	return keys, nil
}
