package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/court-booking-platform/internal/shared/kvstore"
	"github.com/radieske/court-booking-platform/internal/shared/metrics"
	"github.com/radieske/court-booking-platform/internal/wallet-service/dto"
	"github.com/radieske/court-booking-platform/internal/wallet-service/wallet"
	"github.com/radieske/court-booking-platform/pkg/contracts/events"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Publisher publica eventos de domínio (kafka.Publisher em produção, kafka.Nop em testes).
type Publisher interface {
	Publish(ctx context.Context, key string, v any) error
}

// Server expõe a carteira simulada por usuário; cada userId tem seu próprio slot no store.
type Server struct {
	log    *zap.Logger
	store  kvstore.Store
	events Publisher
	opts   []wallet.Option

	wallets sync.Map // userID -> *wallet.Service
}

func NewServer(log *zap.Logger, store kvstore.Store, events Publisher, opts ...wallet.Option) *Server {
	return &Server{log: log, store: store, events: events, opts: opts}
}

// Router retorna o roteador chi com as rotas da API de wallet
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Route("/wallet/{userId}", func(r chi.Router) {
		r.Get("/", s.getWallet)
		r.Delete("/", s.clearWallet)
		r.Post("/init", s.initWallet)
		r.Get("/transactions", s.listTransactions)
		r.Post("/transactions", s.createTransaction)
		r.Post("/topup", s.topUp)
		r.Post("/withdraw", s.withdraw)
		r.Post("/transfer", s.transfer)
		r.Post("/pay-booking", s.payBooking)
		r.Post("/refund-booking", s.refundBooking)
		r.Get("/summary", s.summary)
		r.Get("/stats", s.stats)
	})
	return r
}

func (s *Server) walletFor(userID string) *wallet.Service {
	if v, ok := s.wallets.Load(userID); ok {
		return v.(*wallet.Service)
	}
	svc := wallet.NewService(
		kvstore.WithPrefix(s.store, kvstore.SlotPrefix(userID)),
		s.log.With(zap.String("user_id", userID)),
		s.opts...,
	)
	v, _ := s.wallets.LoadOrStore(userID, svc)
	return v.(*wallet.Service)
}

func (s *Server) initWallet(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	wl, err := s.walletFor(userID).InitializeWallet(r.Context(), userID)
	if err != nil {
		s.log.Error("init wallet", zap.String("user_id", userID), zap.Error(err))
		http.Error(w, "failed to initialize wallet", http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, http.StatusCreated, wl)
}

func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	wl, ok := s.walletFor(chi.URLParam(r, "userId")).GetWallet(r.Context())
	if !ok {
		http.Error(w, wallet.ErrWalletNotFound.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, wl)
}

func (s *Server) clearWallet(w http.ResponseWriter, r *http.Request) {
	if err := s.walletFor(chi.URLParam(r, "userId")).ClearAll(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listTransactions aplica filtros via query string e pagina o resultado
func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := wallet.TransactionFilter{
		Type:          wallet.TransactionType(q.Get("type")),
		Status:        wallet.TransactionStatus(q.Get("status")),
		PaymentMethod: wallet.PaymentMethod(q.Get("method")),
		Reference:     q.Get("reference"),
	}

	var err error
	if f.StartDate, err = parseDate(q.Get("startDate"), false); err != nil {
		http.Error(w, "invalid startDate", http.StatusBadRequest)
		return
	}
	if f.EndDate, err = parseDate(q.Get("endDate"), true); err != nil {
		http.Error(w, "invalid endDate", http.StatusBadRequest)
		return
	}
	if f.MinAmount, err = parseInt(q.Get("minAmount"), 0); err != nil {
		http.Error(w, "invalid minAmount", http.StatusBadRequest)
		return
	}
	if f.MaxAmount, err = parseInt(q.Get("maxAmount"), 0); err != nil {
		http.Error(w, "invalid maxAmount", http.StatusBadRequest)
		return
	}
	page, err := parseInt(q.Get("page"), 1)
	if err != nil || page < 1 {
		http.Error(w, "invalid page", http.StatusBadRequest)
		return
	}
	limit, err := parseInt(q.Get("limit"), defaultPageSize)
	if err != nil || limit < 1 {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	all := s.walletFor(chi.URLParam(r, "userId")).GetFilteredTransactions(r.Context(), f)
	start := int((page - 1) * limit)
	if start > len(all) {
		start = len(all)
	}
	end := start + int(limit)
	if end > len(all) {
		end = len(all)
	}
	writeJSON(w, dto.TransactionPage{Items: all[start:end], Total: len(all), Page: int(page), Limit: int(limit)})
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTransactionRequest
	if !decode(w, r, &req) {
		return
	}
	s.apply(w, r, func(ctx context.Context, svc *wallet.Service) (*wallet.Transaction, error) {
		return svc.CreateTransaction(ctx, wallet.TransactionType(req.Type), req.Amount, req.Description,
			wallet.PaymentMethod(req.PaymentMethod), req.Metadata)
	})
}

func (s *Server) topUp(w http.ResponseWriter, r *http.Request) {
	var req dto.TopUpRequest
	if !decode(w, r, &req) {
		return
	}
	s.apply(w, r, func(ctx context.Context, svc *wallet.Service) (*wallet.Transaction, error) {
		return svc.TopUp(ctx, wallet.TopUpRequest{
			Amount:        req.Amount,
			PaymentMethod: wallet.PaymentMethod(req.PaymentMethod),
			Description:   req.Description,
			Reference:     req.Reference,
		})
	})
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	var req dto.WithdrawRequest
	if !decode(w, r, &req) {
		return
	}
	if req.BankAccount == "" || req.BankName == "" {
		http.Error(w, "bankAccount and bankName required", http.StatusBadRequest)
		return
	}
	s.apply(w, r, func(ctx context.Context, svc *wallet.Service) (*wallet.Transaction, error) {
		return svc.Withdraw(ctx, wallet.WithdrawalRequest{
			Amount:        req.Amount,
			BankAccount:   req.BankAccount,
			BankName:      req.BankName,
			AccountHolder: req.AccountHolder,
			Description:   req.Description,
		})
	})
}

func (s *Server) transfer(w http.ResponseWriter, r *http.Request) {
	var req dto.TransferRequest
	if !decode(w, r, &req) {
		return
	}
	if req.RecipientID == "" {
		http.Error(w, "recipientId required", http.StatusBadRequest)
		return
	}
	s.apply(w, r, func(ctx context.Context, svc *wallet.Service) (*wallet.Transaction, error) {
		return svc.Transfer(ctx, wallet.TransferRequest{
			RecipientID:   req.RecipientID,
			RecipientName: req.RecipientName,
			Amount:        req.Amount,
			Description:   req.Description,
		})
	})
}

func (s *Server) payBooking(w http.ResponseWriter, r *http.Request) {
	var req dto.BookingChargeRequest
	if !decode(w, r, &req) {
		return
	}
	s.apply(w, r, func(ctx context.Context, svc *wallet.Service) (*wallet.Transaction, error) {
		return svc.PayForBooking(ctx, req.Amount, req.BookingID, req.CourtName)
	})
}

func (s *Server) refundBooking(w http.ResponseWriter, r *http.Request) {
	var req dto.BookingChargeRequest
	if !decode(w, r, &req) {
		return
	}
	s.apply(w, r, func(ctx context.Context, svc *wallet.Service) (*wallet.Transaction, error) {
		return svc.RefundBooking(ctx, req.Amount, req.BookingID, req.CourtName)
	})
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.walletFor(chi.URLParam(r, "userId")).GetWalletSummary(r.Context()))
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.walletFor(chi.URLParam(r, "userId")).GetStats(r.Context()))
}

// apply executa um lançamento, mapeia erros de domínio e publica o evento em caso de sucesso
func (s *Server) apply(w http.ResponseWriter, r *http.Request, op func(context.Context, *wallet.Service) (*wallet.Transaction, error)) {
	userID := chi.URLParam(r, "userId")
	tx, err := op(r.Context(), s.walletFor(userID))
	if err != nil {
		status := statusFor(err)
		if status == http.StatusConflict {
			metrics.WalletRejections.WithLabelValues(reasonFor(err)).Inc()
		}
		if status == http.StatusInternalServerError {
			s.log.Error("wallet transaction", zap.String("user_id", userID), zap.Error(err))
		}
		http.Error(w, err.Error(), status)
		return
	}
	metrics.WalletTransactions.WithLabelValues(string(tx.Type)).Inc()

	evt := events.TransactionCreated{
		EventID:       events.NewID(),
		TransactionID: tx.ID,
		UserID:        userID,
		Type:          string(tx.Type),
		Amount:        tx.Amount,
		Balance:       tx.Balance,
		PaymentMethod: string(tx.PaymentMethod),
		Reference:     tx.Reference,
		Ts:            time.Now().UTC(),
	}
	// falha de publicação não desfaz o lançamento; o publisher já registra o erro
	_ = s.events.Publish(r.Context(), userID, evt)

	writeJSONStatus(w, http.StatusCreated, dto.TransactionResponse{Transaction: tx, Balance: tx.Balance})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, wallet.ErrWalletNotFound):
		return http.StatusNotFound
	case errors.Is(err, wallet.ErrInsufficientBalance), errors.Is(err, wallet.ErrWalletInactive):
		return http.StatusConflict
	case errors.Is(err, wallet.ErrInvalidAmount), errors.Is(err, wallet.ErrInvalidType),
		errors.Is(err, wallet.ErrInvalidPaymentMethod):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func reasonFor(err error) string {
	if errors.Is(err, wallet.ErrInsufficientBalance) {
		return "insufficient_balance"
	}
	return "wallet_inactive"
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return false
	}
	return true
}

// parseDate aceita RFC3339 ou YYYY-MM-DD; para endDate a data simples cobre o dia inteiro
func parseDate(v string, endOfDay bool) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func parseInt(v string, def int64) (int64, error) {
	if v == "" {
		return def, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, v any) { writeJSONStatus(w, http.StatusOK, v) }

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
