package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/court-booking-platform/internal/payment-service/dto"
	"github.com/radieske/court-booking-platform/internal/payment-service/payment"
	"github.com/radieske/court-booking-platform/internal/payment-service/ws"
	"github.com/radieske/court-booking-platform/internal/shared/kvstore"
	"github.com/radieske/court-booking-platform/internal/shared/metrics"
	wdto "github.com/radieske/court-booking-platform/internal/wallet-service/dto"
	"github.com/radieske/court-booking-platform/internal/wallet-service/wallet"
	"github.com/radieske/court-booking-platform/pkg/contracts/events"
)

var (
	// ErrDemoConfirmDisabled: atalho de confirmação manual desligado neste ambiente.
	ErrDemoConfirmDisabled = errors.New("demo confirmation disabled")
	ErrNotCreditable       = errors.New("only completed top-ups credit the wallet")
	ErrWalletDisabled      = errors.New("wallet integration disabled")
)

type Publisher interface {
	Publish(ctx context.Context, key string, v any) error
}

type Broadcaster interface {
	Broadcast(ctx context.Context, evt events.PaymentStatusChanged) error
}

// WalletClient credita a carteira quando uma recarga é concluída.
// FindTopUp devolve nil quando ainda não há lançamento com a referência.
type WalletClient interface {
	TopUp(ctx context.Context, userID string, amount int64, method, description, reference string) (*wdto.TransactionResponse, error)
	FindTopUp(ctx context.Context, userID, reference string) (*wallet.Transaction, error)
}

// Deps agrupa os colaboradores opcionais do servidor; Hub nil desliga a rota WebSocket.
type Deps struct {
	Events      Publisher
	Broadcaster Broadcaster
	Wallet      WalletClient
	Hub         *ws.Hub
	DemoConfirm bool
}

type Server struct {
	log   *zap.Logger
	store kvstore.Store
	deps  Deps
	opts  []payment.Option

	payments sync.Map // userID -> *payment.Service
}

func NewServer(log *zap.Logger, store kvstore.Store, deps Deps, opts ...payment.Option) *Server {
	return &Server{log: log, store: store, deps: deps, opts: opts}
}

// Router retorna o roteador chi com as rotas de pagamento
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	if s.deps.Hub != nil {
		r.Get("/ws/payments", s.deps.Hub.HandleWS)
	}
	r.Route("/payments/{userId}", func(r chi.Router) {
		r.Post("/", s.create)
		r.Get("/", s.list)
		r.Delete("/", s.clear)
		r.Get("/active", s.active)
		r.Get("/stats", s.stats)
		r.Post("/cleanup", s.cleanup)
		r.Route("/{paymentId}", func(r chi.Router) {
			r.Get("/", s.get)
			r.Post("/status", s.updateStatus)
			r.Post("/confirm", s.confirm)
			r.Post("/cancel", s.cancel)
			r.Post("/approve", s.approve)
			r.Post("/reject", s.reject)
			r.Post("/credit", s.credit)
		})
	})
	return r
}

func (s *Server) paymentsFor(userID string) *payment.Service {
	if v, ok := s.payments.Load(userID); ok {
		return v.(*payment.Service)
	}
	svc := payment.NewService(
		kvstore.WithPrefix(s.store, kvstore.SlotPrefix(userID)),
		s.log.With(zap.String("user_id", userID)),
		s.opts...,
	)
	v, _ := s.payments.LoadOrStore(userID, svc)
	return v.(*payment.Service)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePaymentRequest
	if !decode(w, r, &req) {
		return
	}
	userID := chi.URLParam(r, "userId")
	svc := s.paymentsFor(userID)
	p, err := svc.CreatePaymentRequest(r.Context(), userID, payment.Type(req.Type), payment.Method(req.Method), req.Amount, req.Description)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.notify(r.Context(), svc, p, "")
	writeJSONStatus(w, http.StatusCreated, s.view(svc, p))
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	svc := s.paymentsFor(chi.URLParam(r, "userId"))
	var reqs []payment.Request
	if m := r.URL.Query().Get("method"); m != "" {
		reqs = svc.ListByMethod(r.Context(), payment.Method(m))
	} else {
		reqs = svc.GetAllPaymentRequests(r.Context())
	}
	out := make([]dto.PaymentView, 0, len(reqs))
	for i := range reqs {
		out = append(out, s.view(svc, &reqs[i]))
	}
	writeJSON(w, out)
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	if err := s.paymentsFor(chi.URLParam(r, "userId")).ClearAll(r.Context()); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) active(w http.ResponseWriter, r *http.Request) {
	svc := s.paymentsFor(chi.URLParam(r, "userId"))
	p, ok := svc.GetActivePayment(r.Context())
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, s.view(svc, p))
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.paymentsFor(chi.URLParam(r, "userId")).GetPaymentStats(r.Context()))
}

func (s *Server) cleanup(w http.ResponseWriter, r *http.Request) {
	svc := s.paymentsFor(chi.URLParam(r, "userId"))
	swept, err := svc.CleanupExpiredPayments(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	for i := range swept {
		s.notify(r.Context(), svc, &swept[i], "expired by sweep")
	}
	writeJSON(w, dto.CleanupResponse{Expired: len(swept)})
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	svc := s.paymentsFor(chi.URLParam(r, "userId"))
	p, ok := svc.GetPaymentRequest(r.Context(), chi.URLParam(r, "paymentId"))
	if !ok {
		s.fail(w, payment.ErrPaymentNotFound)
		return
	}
	writeJSON(w, s.view(svc, p))
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateStatusRequest
	if !decode(w, r, &req) {
		return
	}
	s.transition(w, r, func(ctx context.Context, svc *payment.Service, id string) (*payment.Request, error) {
		return svc.UpdatePaymentStatus(ctx, id, payment.Status(req.Status), req.Metadata)
	}, "")
}

// confirm é o atalho de demonstração que simula o pagamento recebido
func (s *Server) confirm(w http.ResponseWriter, r *http.Request) {
	if !s.deps.DemoConfirm {
		s.fail(w, ErrDemoConfirmDisabled)
		return
	}
	var req dto.ConfirmRequest
	if r.ContentLength > 0 && !decode(w, r, &req) {
		return
	}
	if req.CompletedBy == "" {
		req.CompletedBy = "user_hotkey"
	}
	s.transition(w, r, func(ctx context.Context, svc *payment.Service, id string) (*payment.Request, error) {
		return svc.CompletePayment(ctx, id, req.CompletedBy)
	}, "")
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	var req dto.ReasonRequest
	if r.ContentLength > 0 && !decode(w, r, &req) {
		return
	}
	s.transition(w, r, func(ctx context.Context, svc *payment.Service, id string) (*payment.Request, error) {
		return svc.CancelPayment(ctx, id, req.Reason)
	}, req.Reason)
}

func (s *Server) approve(w http.ResponseWriter, r *http.Request) {
	var req dto.ReasonRequest
	if r.ContentLength > 0 && !decode(w, r, &req) {
		return
	}
	s.transition(w, r, func(ctx context.Context, svc *payment.Service, id string) (*payment.Request, error) {
		return svc.ApprovePayment(ctx, id, req.Note)
	}, req.Note)
}

func (s *Server) reject(w http.ResponseWriter, r *http.Request) {
	var req dto.ReasonRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Reason == "" {
		http.Error(w, "reason required", http.StatusBadRequest)
		return
	}
	s.transition(w, r, func(ctx context.Context, svc *payment.Service, id string) (*payment.Request, error) {
		return svc.RejectPayment(ctx, id, req.Reason)
	}, req.Reason)
}

// transition aplica a operação, publica o evento e, em recarga concluída, credita a carteira
func (s *Server) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, *payment.Service, string) (*payment.Request, error), reason string) {
	userID := chi.URLParam(r, "userId")
	svc := s.paymentsFor(userID)
	p, err := op(r.Context(), svc, chi.URLParam(r, "paymentId"))
	if err != nil {
		// vencido ainda gera transição para EXPIRED
		if errors.Is(err, payment.ErrPaymentExpired) && p != nil && p.Status == payment.StatusExpired {
			s.notify(r.Context(), svc, p, "Payment expired")
		}
		s.fail(w, err)
		return
	}
	s.notify(r.Context(), svc, p, reason)

	view := s.view(svc, p)
	if p.Status == payment.StatusCompleted && p.Type == payment.TypeTopUp {
		credit, err := s.creditWallet(r.Context(), userID, p)
		if err != nil {
			s.log.Error("wallet credit failed",
				zap.String("user_id", userID), zap.String("payment_id", p.ID), zap.Error(err))
			http.Error(w, "payment completed but wallet credit failed", http.StatusBadGateway)
			return
		}
		view.WalletCredit = credit
	}
	writeJSON(w, view)
}

// credit repete o crédito de uma recarga concluída cujo lançamento falhou
func (s *Server) credit(w http.ResponseWriter, r *http.Request) {
	if s.deps.Wallet == nil {
		http.Error(w, ErrWalletDisabled.Error(), http.StatusServiceUnavailable)
		return
	}
	userID := chi.URLParam(r, "userId")
	svc := s.paymentsFor(userID)
	p, ok := svc.GetPaymentRequest(r.Context(), chi.URLParam(r, "paymentId"))
	if !ok {
		s.fail(w, payment.ErrPaymentNotFound)
		return
	}
	if p.Status != payment.StatusCompleted || p.Type != payment.TypeTopUp {
		s.fail(w, fmt.Errorf("%w: %s %s", ErrNotCreditable, p.Type, p.Status))
		return
	}
	credit, err := s.creditWallet(r.Context(), userID, p)
	if err != nil {
		s.log.Error("wallet credit retry failed",
			zap.String("user_id", userID), zap.String("payment_id", p.ID), zap.Error(err))
		http.Error(w, "wallet credit failed", http.StatusBadGateway)
		return
	}
	view := s.view(svc, p)
	view.WalletCredit = credit
	writeJSON(w, view)
}

// creditWallet lança a recarga uma única vez por pagamento: a referência é o id do pagamento.
func (s *Server) creditWallet(ctx context.Context, userID string, p *payment.Request) (string, error) {
	if s.deps.Wallet == nil {
		return "", nil
	}
	prev, err := s.deps.Wallet.FindTopUp(ctx, userID, p.ID)
	if err != nil {
		return "", err
	}
	if prev != nil {
		return prev.ID, nil
	}
	desc := fmt.Sprintf("Nạp tiền qua %s", p.Method)
	if p.Method == payment.MethodAdminApproval {
		desc = fmt.Sprintf("Nạp tiền được admin duyệt - %s", p.ID)
	}
	res, err := s.deps.Wallet.TopUp(ctx, userID, p.Amount, "BANKING", desc, p.ID)
	if err != nil {
		return "", err
	}
	return res.Transaction.ID, nil
}

// notify publica no Kafka e no canal Pub/Sub dos hubs; falhas só são registradas
func (s *Server) notify(ctx context.Context, svc *payment.Service, p *payment.Request, reason string) {
	metrics.PaymentTransitions.WithLabelValues(string(p.Status)).Inc()
	evt := StatusEvent(p, reason, svc.Now())
	if s.deps.Events != nil {
		_ = s.deps.Events.Publish(ctx, p.ID, evt)
	}
	if s.deps.Broadcaster != nil {
		if err := s.deps.Broadcaster.Broadcast(ctx, evt); err != nil {
			s.log.Warn("payment broadcast failed", zap.String("payment_id", p.ID), zap.Error(err))
		}
	}
}

// StatusEvent monta o evento de mudança de status de um pagamento
func StatusEvent(p *payment.Request, reason string, ts time.Time) events.PaymentStatusChanged {
	if reason == "" {
		if fr, ok := p.Metadata["failureReason"].(string); ok {
			reason = fr
		}
	}
	return events.PaymentStatusChanged{
		EventID:   events.NewID(),
		PaymentID: p.ID,
		UserID:    p.UserID,
		Type:      string(p.Type),
		Method:    string(p.Method),
		Amount:    p.Amount,
		Status:    string(p.Status),
		Reason:    reason,
		ExpiresAt: p.ExpiresAt,
		Ts:        ts.UTC(),
	}
}

func (s *Server) view(svc *payment.Service, p *payment.Request) dto.PaymentView {
	v := dto.PaymentView{
		Request:       *p,
		TimeRemaining: svc.GetTimeRemaining(*p),
		Expired:       svc.IsPaymentExpired(*p),
	}
	if p.QRCode != "" {
		v.QRCodeURL = payment.QRCodeURL(p.QRCode, 300)
	}
	return v
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, payment.ErrPaymentNotFound):
		status = http.StatusNotFound
	case errors.Is(err, payment.ErrPaymentExpired):
		status = http.StatusGone
	case errors.Is(err, payment.ErrInvalidTransition), errors.Is(err, ErrNotCreditable):
		status = http.StatusConflict
	case errors.Is(err, payment.ErrInvalidAmount), errors.Is(err, payment.ErrInvalidType),
		errors.Is(err, payment.ErrInvalidMethod):
		status = http.StatusBadRequest
	case errors.Is(err, ErrDemoConfirmDisabled):
		status = http.StatusForbidden
	default:
		s.log.Error("payment request failed", zap.Error(err))
	}
	http.Error(w, err.Error(), status)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return false
	}
	return true
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, v any) { writeJSONStatus(w, http.StatusOK, v) }

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
