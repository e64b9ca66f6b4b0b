package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/court-booking-platform/internal/shared/kvstore"
	"github.com/radieske/court-booking-platform/internal/wallet-service/dto"
	"github.com/radieske/court-booking-platform/internal/wallet-service/wallet"
	"github.com/radieske/court-booking-platform/pkg/contracts/events"
)

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	evts []any
}

func (p *recordingPublisher) Publish(_ context.Context, key string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.evts = append(p.evts, v)
	return nil
}

func newTestServer(t *testing.T) (http.Handler, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	srv := NewServer(zap.NewNop(), kvstore.NewMemory(), pub, wallet.WithClock(func() time.Time { return now }))
	return srv.Router(), pub
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWallet_NotFoundBeforeInit(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/wallet/u1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/wallet/u1/topup", `{"amount":1000,"paymentMethod":"MOMO"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWallet_InitAndPayBooking(t *testing.T) {
	h, pub := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/wallet/u1/init", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var wl wallet.Wallet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wl))
	assert.Equal(t, int64(2_500_000), wl.Balance)

	rec = do(t, h, http.MethodPost, "/wallet/u1/pay-booking", `{"amount":150000,"bookingId":42,"courtName":"Sân A"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var out dto.TransactionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, int64(2_350_000), out.Balance)
	assert.Equal(t, wallet.TypeBookingPayment, out.Transaction.Type)

	require.Len(t, pub.evts, 1)
	assert.Equal(t, "u1", pub.keys[0])
	evt, ok := pub.evts[0].(events.TransactionCreated)
	require.True(t, ok)
	assert.Equal(t, "BOOKING_PAYMENT", evt.Type)
	assert.Equal(t, "42", evt.Reference)
	assert.NotEmpty(t, evt.EventID)
}

func TestWallet_ErrorMapping(t *testing.T) {
	h, pub := newTestServer(t)
	do(t, h, http.MethodPost, "/wallet/u1/init", "")

	cases := []struct {
		name string
		path string
		body string
		want int
	}{
		{"overdraft", "/wallet/u1/withdraw", `{"amount":99000000,"bankAccount":"1","bankName":"ACB"}`, http.StatusConflict},
		{"zero amount", "/wallet/u1/topup", `{"amount":0,"paymentMethod":"MOMO"}`, http.StatusBadRequest},
		{"bad method", "/wallet/u1/topup", `{"amount":10,"paymentMethod":"GOLD"}`, http.StatusBadRequest},
		{"bad json", "/wallet/u1/topup", `{`, http.StatusBadRequest},
		{"missing recipient", "/wallet/u1/transfer", `{"amount":10}`, http.StatusBadRequest},
		{"bad type", "/wallet/u1/transactions", `{"type":"GIFT","amount":10}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
	assert.Empty(t, pub.evts)
}

func TestWallet_ListTransactions(t *testing.T) {
	h, _ := newTestServer(t)
	do(t, h, http.MethodPost, "/wallet/u1/init", "")

	rec := do(t, h, http.MethodGet, "/wallet/u1/transactions?type=TOP_UP&limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page dto.TransactionPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Items, 2)

	rec = do(t, h, http.MethodGet, "/wallet/u1/transactions?type=TOP_UP&limit=2&page=2", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Items, 1)

	rec = do(t, h, http.MethodGet, "/wallet/u1/transactions?startDate=2026-03-12", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 3, page.Total)

	rec = do(t, h, http.MethodGet, "/wallet/u1/transactions?minAmount=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWallet_SummaryStatsAndClear(t *testing.T) {
	h, _ := newTestServer(t)
	do(t, h, http.MethodPost, "/wallet/u1/init", "")

	rec := do(t, h, http.MethodGet, "/wallet/u1/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sum wallet.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, int64(2_500_000), sum.AvailableBalance)

	rec = do(t, h, http.MethodGet, "/wallet/u1/stats", "")
	var st wallet.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 7, st.TotalTransactions)
	assert.Len(t, st.MonthlyTrend, 6)

	rec = do(t, h, http.MethodDelete, "/wallet/u1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodGet, "/wallet/u1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWallet_UsersDoNotShareSlots(t *testing.T) {
	h, _ := newTestServer(t)
	do(t, h, http.MethodPost, "/wallet/u1/init", "")

	rec := do(t, h, http.MethodGet, "/wallet/u2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
