package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/court-booking-platform/internal/booking-service/booking"
	"github.com/radieske/court-booking-platform/internal/booking-service/dto"
	"github.com/radieske/court-booking-platform/internal/shared/kafka"
	"github.com/radieske/court-booking-platform/internal/shared/kvstore"
	wclient "github.com/radieske/court-booking-platform/internal/wallet-service/client"
	wdto "github.com/radieske/court-booking-platform/internal/wallet-service/dto"
	whttp "github.com/radieske/court-booking-platform/internal/wallet-service/http"
	"github.com/radieske/court-booking-platform/internal/wallet-service/wallet"
)

var fixedNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

// newStack sobe wallet-service real (em memória) atrás do client HTTP
func newStack(t *testing.T) (http.Handler, string) {
	t.Helper()
	clock := func() time.Time { return fixedNow }
	wapi := whttp.NewServer(zap.NewNop(), kvstore.NewMemory(), kafka.Nop{}, wallet.WithClock(clock))
	ts := httptest.NewServer(wapi.Router())
	t.Cleanup(ts.Close)

	srv := NewServer(zap.NewNop(), kvstore.NewMemory(), kafka.Nop{}, wclient.New(ts.URL), booking.WithClock(clock))
	return srv.Router(), ts.URL
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func initWallet(t *testing.T, url string) {
	t.Helper()
	res, err := http.Post(url+"/wallet/u1/init", "application/json", nil)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusCreated, res.StatusCode)
}

func walletBalance(t *testing.T, url string) int64 {
	t.Helper()
	res, err := http.Get(url + "/wallet/u1")
	require.NoError(t, err)
	defer res.Body.Close()
	var w wallet.Wallet
	require.NoError(t, json.NewDecoder(res.Body).Decode(&w))
	return w.Balance
}

const paidBody = `{"court":{"id":7,"name":"Sân A"},"bookingDate":"2026-03-20","startTime":"18:00","endTime":"20:00","totalPrice":150000,"payWithWallet":true}`

func TestCreate_PayWithWallet(t *testing.T) {
	h, url := newStack(t)
	initWallet(t, url)

	rec := do(t, h, http.MethodPost, "/bookings/u1", paidBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var b booking.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	assert.Equal(t, booking.StatusConfirmed, b.Status)
	assert.Equal(t, "WALLET", b.PaymentMethod)
	assert.NotEmpty(t, b.TransactionID)
	assert.Equal(t, "u1", b.User.ID)
	assert.Equal(t, int64(2_350_000), walletBalance(t, url))

	// cancelamento com estorno
	rec = do(t, h, http.MethodPost, "/bookings/u1/"+strconv.FormatInt(b.ID, 10)+"/cancel", `{"reason":"bận việc","refundToWallet":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out dto.CancelResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, booking.StatusCancelled, out.Booking.Status)
	assert.NotEmpty(t, out.RefundTxnID)
	require.NotNil(t, out.WalletBalance)
	assert.Equal(t, int64(2_500_000), *out.WalletBalance)

	// segundo cancelamento não estorna de novo
	rec = do(t, h, http.MethodPost, "/bookings/u1/"+strconv.FormatInt(b.ID, 10)+"/cancel", `{"refundToWallet":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(2_500_000), walletBalance(t, url))
}

func TestCreate_InsufficientBalanceDoesNotSave(t *testing.T) {
	h, url := newStack(t)
	initWallet(t, url)

	body := strings.Replace(paidBody, `"totalPrice":150000`, `"totalPrice":9000000`, 1)
	rec := do(t, h, http.MethodPost, "/bookings/u1", body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodGet, "/bookings/u1", "")
	var list []booking.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list)
}

func TestCreate_WalletMissing(t *testing.T) {
	h, _ := newStack(t)
	rec := do(t, h, http.MethodPost, "/bookings/u1", paidBody)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListFiltersAndStats(t *testing.T) {
	h, _ := newStack(t)

	rec := do(t, h, http.MethodPost, "/bookings/u1/samples", `{"courts":[{"id":1,"name":"A"},{"id":2,"name":"B"},{"id":3,"name":"C"}],"user":{"fullName":"Minh"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/bookings/u1?status=CONFIRMED", "")
	var list []booking.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].Court.ID)

	rec = do(t, h, http.MethodGet, "/bookings/u1?courtId=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/bookings/u1/stats", "")
	var st booking.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 3, st.TotalBookings)
	assert.Equal(t, int64(450_000), st.TotalRevenue)

	rec = do(t, h, http.MethodPost, "/bookings/u1/"+strconv.FormatInt(list[0].ID, 10)+"/status", `{"status":"COMPLETED"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPost, "/bookings/u1/"+strconv.FormatInt(list[0].ID, 10)+"/status", `{"status":"LOST"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/bookings/u1/123", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, h, http.MethodGet, "/bookings/u1/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodDelete, "/bookings/u1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCreate_Validation(t *testing.T) {
	h, _ := newStack(t)
	rec := do(t, h, http.MethodPost, "/bookings/u1", `{"bookingDate":"2026-03-20"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/bookings/u1", `{"court":{"id":1},"bookingDate":"2026-03-20","status":"LOST"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// flakyWallet falha o estorno enquanto down for true
type flakyWallet struct {
	*wclient.Client
	down bool
}

func (f *flakyWallet) RefundBooking(ctx context.Context, userID string, amount, bookingID int64, courtName string) (*wdto.TransactionResponse, error) {
	if f.down {
		return nil, errors.New("connection reset")
	}
	return f.Client.RefundBooking(ctx, userID, amount, bookingID, courtName)
}

func TestCancel_RefundFailureCanBeRetried(t *testing.T) {
	clock := func() time.Time { return fixedNow }
	wapi := whttp.NewServer(zap.NewNop(), kvstore.NewMemory(), kafka.Nop{}, wallet.WithClock(clock))
	ts := httptest.NewServer(wapi.Router())
	t.Cleanup(ts.Close)
	fw := &flakyWallet{Client: wclient.New(ts.URL)}
	h := NewServer(zap.NewNop(), kvstore.NewMemory(), kafka.Nop{}, fw, booking.WithClock(clock)).Router()
	initWallet(t, ts.URL)

	rec := do(t, h, http.MethodPost, "/bookings/u1", paidBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var b booking.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	path := "/bookings/u1/" + strconv.FormatInt(b.ID, 10)

	fw.down = true
	rec = do(t, h, http.MethodPost, path+"/cancel", `{"reason":"bận việc","refundToWallet":true}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, int64(2_350_000), walletBalance(t, ts.URL))

	rec = do(t, h, http.MethodGet, path, "")
	var kept booking.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &kept))
	assert.Equal(t, booking.StatusConfirmed, kept.Status)

	// cancelada sem estorno; o pedido seguinte ainda estorna uma única vez
	rec = do(t, h, http.MethodPost, path+"/cancel", `{"reason":"bận việc"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	fw.down = false
	for range 3 {
		rec = do(t, h, http.MethodPost, path+"/cancel", `{"refundToWallet":true}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	assert.Equal(t, int64(2_500_000), walletBalance(t, ts.URL))

	rec = do(t, h, http.MethodGet, path, "")
	var done booking.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &done))
	assert.NotEmpty(t, done.RefundTxnID)

	rec = do(t, h, http.MethodPost, path+"/status", `{"status":"CONFIRMED"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
