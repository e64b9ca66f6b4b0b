package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/court-booking-platform/internal/payment-service/dto"
	"github.com/radieske/court-booking-platform/internal/payment-service/payment"
	"github.com/radieske/court-booking-platform/internal/shared/kvstore"
	wdto "github.com/radieske/court-booking-platform/internal/wallet-service/dto"
	"github.com/radieske/court-booking-platform/internal/wallet-service/wallet"
	"github.com/radieske/court-booking-platform/pkg/contracts/events"
)

type topUpCall struct {
	userID    string
	amount    int64
	reference string
	desc      string
}

type fakeWallet struct {
	mu    sync.Mutex
	calls []topUpCall
	err   error
}

func (f *fakeWallet) TopUp(_ context.Context, userID string, amount int64, _, description, reference string) (*wdto.TransactionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, topUpCall{userID: userID, amount: amount, reference: reference, desc: description})
	return &wdto.TransactionResponse{Transaction: &wallet.Transaction{ID: "txn_1"}, Balance: amount}, nil
}

func (f *fakeWallet) FindTopUp(_ context.Context, userID, reference string) (*wallet.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, c := range f.calls {
		if c.userID == userID && c.reference == reference {
			return &wallet.Transaction{ID: "txn_1", Reference: reference}, nil
		}
	}
	return nil, nil
}

type recorder struct {
	mu   sync.Mutex
	evts []events.PaymentStatusChanged
}

func (r *recorder) Publish(_ context.Context, _ string, v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evts = append(r.evts, v.(events.PaymentStatusChanged))
	return nil
}

func (r *recorder) Broadcast(_ context.Context, evt events.PaymentStatusChanged) error {
	return r.Publish(context.Background(), evt.PaymentID, evt)
}

func (r *recorder) statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.evts))
	for _, e := range r.evts {
		out = append(out, e.Status)
	}
	return out
}

type env struct {
	h      http.Handler
	clock  *time.Time
	wallet *fakeWallet
	kafka  *recorder
	bus    *recorder
}

func newEnv(t *testing.T, demo bool) *env {
	t.Helper()
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	e := &env{clock: &now, wallet: &fakeWallet{}, kafka: &recorder{}, bus: &recorder{}}
	srv := NewServer(zap.NewNop(), kvstore.NewMemory(), Deps{
		Events:      e.kafka,
		Broadcaster: e.bus,
		Wallet:      e.wallet,
		DemoConfirm: demo,
	}, payment.WithClock(func() time.Time { return *e.clock }))
	e.h = srv.Router()
	return e
}

func (e *env) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func (e *env) create(t *testing.T, method string, amount int) dto.PaymentView {
	t.Helper()
	body, _ := json.Marshal(map[string]any{"type": "TOP_UP", "method": method, "amount": amount, "description": "Nạp tiền"})
	rec := e.do(t, http.MethodPost, "/payments/u1", string(body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var v dto.PaymentView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestCreate(t *testing.T) {
	e := newEnv(t, true)
	v := e.create(t, "VIET_QR", 200_000)

	assert.Equal(t, payment.StatusPending, v.Status)
	assert.Equal(t, int64(600), v.TimeRemaining)
	assert.False(t, v.Expired)
	assert.Contains(t, v.QRCodeURL, "https://api.qrserver.com/v1/create-qr-code/?size=300x300&data=")
	assert.Equal(t, []string{"PENDING"}, e.kafka.statuses())
	assert.Equal(t, []string{"PENDING"}, e.bus.statuses())

	rec := e.do(t, http.MethodPost, "/payments/u1", `{"type":"TOP_UP","method":"VIET_QR","amount":5000}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/payments/u1/active", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var active dto.PaymentView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &active))
	assert.Equal(t, v.ID, active.ID)
}

func TestConfirm_CreditsWallet(t *testing.T) {
	e := newEnv(t, true)
	v := e.create(t, "VIET_QR", 200_000)

	rec := e.do(t, http.MethodPost, "/payments/u1/"+v.ID+"/confirm", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got dto.PaymentView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, payment.StatusCompleted, got.Status)
	assert.Equal(t, "txn_1", got.WalletCredit)

	require.Len(t, e.wallet.calls, 1)
	assert.Equal(t, topUpCall{userID: "u1", amount: 200_000, reference: v.ID, desc: "Nạp tiền qua VIET_QR"}, e.wallet.calls[0])
	assert.Equal(t, []string{"PENDING", "COMPLETED"}, e.kafka.statuses())

	rec = e.do(t, http.MethodPost, "/payments/u1/"+v.ID+"/confirm", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Len(t, e.wallet.calls, 1)
}

func TestConfirm_AfterExpiry(t *testing.T) {
	e := newEnv(t, true)
	v := e.create(t, "VIET_QR", 200_000)
	*e.clock = e.clock.Add(601 * time.Second)

	rec := e.do(t, http.MethodPost, "/payments/u1/"+v.ID+"/confirm", "")
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Empty(t, e.wallet.calls)
	assert.Equal(t, []string{"PENDING", "EXPIRED"}, e.kafka.statuses())

	rec = e.do(t, http.MethodGet, "/payments/u1/"+v.ID, "")
	var got dto.PaymentView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, payment.StatusExpired, got.Status)
	assert.Equal(t, int64(0), got.TimeRemaining)
	assert.True(t, got.Expired)
}

func TestConfirm_DisabledOutsideDemo(t *testing.T) {
	e := newEnv(t, false)
	v := e.create(t, "VIET_QR", 200_000)

	rec := e.do(t, http.MethodPost, "/payments/u1/"+v.ID+"/confirm", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminApproveAndReject(t *testing.T) {
	e := newEnv(t, false)
	a := e.create(t, "ADMIN_APPROVAL", 300_000)
	b := e.create(t, "ADMIN_APPROVAL", 400_000)
	assert.Equal(t, payment.StatusWaitingApproval, a.Status)

	rec := e.do(t, http.MethodPost, "/payments/u1/"+a.ID+"/approve", `{"note":"ok"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, e.wallet.calls, 1)
	assert.Equal(t, "Nạp tiền được admin duyệt - "+a.ID, e.wallet.calls[0].desc)

	rec = e.do(t, http.MethodPost, "/payments/u1/"+b.ID+"/reject", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = e.do(t, http.MethodPost, "/payments/u1/"+b.ID+"/reject", `{"reason":"sai số tiền"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, e.wallet.calls, 1)

	rec = e.do(t, http.MethodGet, "/payments/u1/stats", "")
	var st payment.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 1, st.Completed)
	assert.Equal(t, 1, st.Failed)
	assert.Equal(t, int64(300_000), st.TotalAmount)

	rec = e.do(t, http.MethodGet, "/payments/u1?method=ADMIN_APPROVAL", "")
	var list []dto.PaymentView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)
}

func TestWalletFailureIsReported(t *testing.T) {
	e := newEnv(t, true)
	e.wallet.err = errors.New("connection refused")
	v := e.create(t, "MOMO", 100_000)

	rec := e.do(t, http.MethodPost, "/payments/u1/"+v.ID+"/confirm", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCreditRetryAfterWalletFailure(t *testing.T) {
	e := newEnv(t, true)
	v := e.create(t, "MOMO", 100_000)
	pending := e.create(t, "VIET_QR", 50_000)

	e.wallet.err = errors.New("connection refused")
	rec := e.do(t, http.MethodPost, "/payments/u1/"+v.ID+"/confirm", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)

	rec = e.do(t, http.MethodGet, "/payments/u1/"+v.ID, "")
	var got dto.PaymentView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, payment.StatusCompleted, got.Status)
	assert.Empty(t, e.wallet.calls)

	rec = e.do(t, http.MethodPost, "/payments/u1/"+v.ID+"/credit", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	e.wallet.err = nil
	for range 2 {
		rec = e.do(t, http.MethodPost, "/payments/u1/"+v.ID+"/credit", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "txn_1", got.WalletCredit)
	}
	require.Len(t, e.wallet.calls, 1)
	assert.Equal(t, v.ID, e.wallet.calls[0].reference)

	rec = e.do(t, http.MethodPost, "/payments/u1/"+pending.ID+"/credit", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = e.do(t, http.MethodPost, "/payments/u1/pay_nope/credit", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Len(t, e.wallet.calls, 1)
}

func TestCancelStatusAndCleanup(t *testing.T) {
	e := newEnv(t, true)
	a := e.create(t, "VIET_QR", 100_000)
	b := e.create(t, "MOMO", 100_000)

	rec := e.do(t, http.MethodPost, "/payments/u1/"+a.ID+"/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got dto.PaymentView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Cancelled by user", got.Metadata["failureReason"])

	rec = e.do(t, http.MethodPost, "/payments/u1/"+a.ID+"/status", `{"status":"PENDING"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(t, http.MethodPost, "/payments/u1/pay_nope/status", `{"status":"FAILED"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	*e.clock = e.clock.Add(11 * time.Minute)
	rec = e.do(t, http.MethodPost, "/payments/u1/cleanup", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out dto.CleanupResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 1, out.Expired)

	rec = e.do(t, http.MethodGet, "/payments/u1/"+b.ID, "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, payment.StatusExpired, got.Status)

	rec = e.do(t, http.MethodGet, "/payments/u1/active", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(t, http.MethodDelete, "/payments/u1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestExpiredTopUpCannotBeCompleted(t *testing.T) {
	e := newEnv(t, false)
	a := e.create(t, "VIET_QR", 200_000)
	b := e.create(t, "VIET_QR", 200_000)
	*e.clock = e.clock.Add(601 * time.Second)

	rec := e.do(t, http.MethodPost, "/payments/u1/"+a.ID+"/status", `{"status":"COMPLETED"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(t, http.MethodPost, "/payments/u1/"+b.ID+"/approve", `{}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = e.do(t, http.MethodPost, "/payments/u1/"+b.ID+"/reject", `{"reason":"sai"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	assert.Empty(t, e.wallet.calls)
	for _, id := range []string{a.ID, b.ID} {
		rec = e.do(t, http.MethodGet, "/payments/u1/"+id, "")
		var got dto.PaymentView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.NotEqual(t, payment.StatusCompleted, got.Status)
	}
}
