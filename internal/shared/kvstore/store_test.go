package kvstore

import (
	"context"
	"sort"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore roda o mesmo contrato contra qualquer implementação.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "slot:1:fake_wallet", []byte(`{"balance":1}`)))
	require.NoError(t, s.Set(ctx, "slot:1:fake_transactions", []byte(`[]`)))
	require.NoError(t, s.Set(ctx, "slot:2:fake_wallet", []byte(`{"balance":2}`)))

	got, err := s.Get(ctx, "slot:1:fake_wallet")
	require.NoError(t, err)
	assert.JSONEq(t, `{"balance":1}`, string(got))

	// sobrescrita: last write wins
	require.NoError(t, s.Set(ctx, "slot:1:fake_wallet", []byte(`{"balance":3}`)))
	got, err = s.Get(ctx, "slot:1:fake_wallet")
	require.NoError(t, err)
	assert.JSONEq(t, `{"balance":3}`, string(got))

	keys, err := s.Keys(ctx, "slot:1:")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"slot:1:fake_transactions", "slot:1:fake_wallet"}, keys)

	require.NoError(t, s.Delete(ctx, "slot:1:fake_wallet", "slot:1:fake_transactions", "never-existed"))
	_, err = s.Get(ctx, "slot:1:fake_wallet")
	assert.ErrorIs(t, err, ErrNotFound)

	keys, err = s.Keys(ctx, "slot:")
	require.NoError(t, err)
	assert.Equal(t, []string{"slot:2:fake_wallet"}, keys)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	exerciseStore(t, NewRedis(rdb))
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	buf := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", buf))
	buf[0] = 'x'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestWithPrefix_IsolatesSlots(t *testing.T) {
	ctx := context.Background()
	root := NewMemory()
	alice := WithPrefix(root, SlotPrefix("alice"))
	bob := WithPrefix(root, SlotPrefix("bob"))

	require.NoError(t, SetJSON(ctx, alice, "fake_wallet", map[string]int{"balance": 10}))

	var w map[string]int
	ok, err := GetJSON(ctx, bob, "fake_wallet", &w)
	require.NoError(t, err)
	assert.False(t, ok, "bob must not see alice's wallet")

	ok, err = GetJSON(ctx, alice, "fake_wallet", &w)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 10, w["balance"])

	keys, err := alice.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"fake_wallet"}, keys)

	raw, err := root.Get(ctx, "slot:alice:fake_wallet")
	require.NoError(t, err)
	assert.JSONEq(t, `{"balance":10}`, string(raw))

	require.NoError(t, alice.Delete(ctx, "fake_wallet"))
	_, err = root.Get(ctx, "slot:alice:fake_wallet")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetJSON_CorruptBlob(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Set(ctx, "fake_bookings", []byte("{not json")))

	var v []int
	ok, err := GetJSON(ctx, s, "fake_bookings", &v)
	assert.False(t, ok)
	assert.ErrorContains(t, err, "decode fake_bookings")
}

func TestSlotFromKey(t *testing.T) {
	tests := []struct {
		key    string
		want   string
		wantOK bool
	}{
		{"slot:42:payment_requests", "42", true},
		{"slot:org:42:payment_requests", "org:42", true},
		{"slot:a:payment_requests:payment_requests", "a:payment_requests", true},
		{"slot::payment_requests", "", false},
		{"payment_requests", "", false},
		{"slot:user-a:active_payment", "", false},
		{"slot:payment_requests", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := SlotFromKey(tt.key, "payment_requests")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEscaping(t *testing.T) {
	assert.Equal(t, `slot:a\*b\?:`, escapeGlob("slot:a*b?:"))
	assert.Equal(t, `slot:a\_b\%:`, escapeLike("slot:a_b%:"))
}

func TestOpen(t *testing.T) {
	b, err := Open(context.Background(), "memory", "", "")
	require.NoError(t, err)
	assert.NoError(t, b.Ping(context.Background()))
	assert.NoError(t, b.Close())

	_, err = Open(context.Background(), "etcd", "", "")
	assert.ErrorContains(t, err, "unknown store backend")
}
