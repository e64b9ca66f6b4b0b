package payment

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/radieske/court-booking-platform/internal/shared/kvstore"
)

const (
	// KeyRequests é a chave (dentro do slot) da lista de solicitações; usada pelo worker de expiração.
	KeyRequests = "payment_requests"
	keyActive   = "active_payment"
)

var (
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrPaymentExpired    = errors.New("payment expired")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidAmount     = errors.New("amount out of range")
	ErrInvalidType       = errors.New("invalid payment type")
	ErrInvalidMethod     = errors.New("invalid payment method")
)

// Service mantém as solicitações de pagamento de um slot e o ponteiro do pagamento ativo.
type Service struct {
	store kvstore.Store
	log   *zap.Logger
	now   func() time.Time

	mu sync.Mutex
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store kvstore.Store, log *zap.Logger, opts ...Option) *Service {
	s := &Service{store: store, log: log, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Now expõe o relógio do serviço (carimbo de eventos).
func (s *Service) Now() time.Time { return s.now() }

// CreatePaymentRequest registra uma solicitação com validade de Timeout e a marca como ativa.
func (s *Service) CreatePaymentRequest(ctx context.Context, userID string, typ Type, method Method, amount int64, description string) (*Request, error) {
	if !typ.Valid() {
		return nil, ErrInvalidType
	}
	if !method.Valid() {
		return nil, ErrInvalidMethod
	}
	if amount < MinAmount || amount > MaxAmount {
		return nil, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	req := Request{
		ID:          "pay_" + ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		UserID:      userID,
		Type:        typ,
		Method:      method,
		Amount:      amount,
		Description: description,
		Status:      StatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(Timeout),
		Metadata:    map[string]any{},
	}
	if method == MethodAdminApproval {
		req.Status = StatusWaitingApproval
	}
	if method == MethodVietQR {
		content := req.ID + " NAP TIEN BADMINTON"
		qr, err := vietQRPayload(demoBank.AccountNumber, amount, content)
		if err != nil {
			return nil, err
		}
		req.QRCode = qr
		req.QRText = content
		req.BankAccount = &BankAccount{
			AccountNumber: demoBank.AccountNumber,
			AccountName:   demoBank.AccountName,
			BankName:      demoBank.BankName,
			Content:       content,
		}
	}

	reqs, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	reqs = append([]Request{req}, reqs...)
	if err := kvstore.SetJSON(ctx, s.store, KeyRequests, reqs); err != nil {
		return nil, fmt.Errorf("save payment requests: %w", err)
	}
	if err := kvstore.SetJSON(ctx, s.store, keyActive, req.ID); err != nil {
		return nil, fmt.Errorf("save active payment: %w", err)
	}

	s.log.Info("payment request created",
		zap.String("payment_id", req.ID),
		zap.String("method", string(method)),
		zap.Int64("amount", amount))
	return &req, nil
}

func (s *Service) GetPaymentRequest(ctx context.Context, id string) (*Request, bool) {
	for _, r := range s.GetAllPaymentRequests(ctx) {
		if r.ID == id {
			return &r, true
		}
	}
	return nil, false
}

// GetAllPaymentRequests lista do mais recente para o mais antigo; erro de leitura vira lista vazia.
func (s *Service) GetAllPaymentRequests(ctx context.Context) []Request {
	reqs, err := s.load(ctx)
	if err != nil {
		s.log.Error("load payment requests", zap.Error(err))
		return []Request{}
	}
	return reqs
}

func (s *Service) ListByMethod(ctx context.Context, method Method) []Request {
	all := s.GetAllPaymentRequests(ctx)
	out := make([]Request, 0, len(all))
	for _, r := range all {
		if r.Method == method {
			out = append(out, r)
		}
	}
	return out
}

// UpdatePaymentStatus valida a transição, mescla metadata e carimba os horários.
// COMPLETED só é alcançável por CompletePayment ou ApprovePayment.
func (s *Service) UpdatePaymentStatus(ctx context.Context, id string, status Status, metadata map[string]any) (*Request, error) {
	if status == StatusCompleted {
		return nil, fmt.Errorf("%w: completion must go through CompletePayment", ErrInvalidTransition)
	}
	return s.mutate(ctx, id, func(r *Request, now time.Time) error {
		return transition(r, status, metadata, now)
	})
}

// CompletePayment confirma o pagamento; vencido vira EXPIRED e retorna ErrPaymentExpired.
func (s *Service) CompletePayment(ctx context.Context, id, completedBy string) (*Request, error) {
	expired := false
	r, err := s.mutate(ctx, id, func(r *Request, now time.Time) error {
		if now.After(r.ExpiresAt) {
			expired = true
			if r.Status.Terminal() {
				return nil
			}
			return transition(r, StatusExpired, map[string]any{"failureReason": "Payment expired"}, now)
		}
		return transition(r, StatusCompleted, map[string]any{
			"completedBy": completedBy,
			"completedAt": now.Format(time.RFC3339),
		}, now)
	})
	if err != nil {
		return r, err
	}
	if expired {
		return r, ErrPaymentExpired
	}
	return r, nil
}

// ApprovePayment é o caminho do admin para WAITING_APPROVAL; não verifica validade.
func (s *Service) ApprovePayment(ctx context.Context, id, note string) (*Request, error) {
	if note == "" {
		note = "Đã duyệt bởi admin"
	}
	return s.mutate(ctx, id, func(r *Request, now time.Time) error {
		if err := awaitingApproval(r); err != nil {
			return err
		}
		return transition(r, StatusCompleted, map[string]any{
			"approvedBy": "admin",
			"adminNote":  note,
			"approvedAt": now.Format(time.RFC3339),
		}, now)
	})
}

func (s *Service) RejectPayment(ctx context.Context, id, reason string) (*Request, error) {
	return s.mutate(ctx, id, func(r *Request, now time.Time) error {
		if err := awaitingApproval(r); err != nil {
			return err
		}
		return transition(r, StatusFailed, map[string]any{
			"rejectedBy":    "admin",
			"adminNote":     reason,
			"failureReason": reason,
			"rejectedAt":    now.Format(time.RFC3339),
		}, now)
	})
}

func (s *Service) CancelPayment(ctx context.Context, id, reason string) (*Request, error) {
	if reason == "" {
		reason = "Cancelled by user"
	}
	return s.UpdatePaymentStatus(ctx, id, StatusCancelled, map[string]any{"failureReason": reason})
}

// GetTimeRemaining retorna os segundos inteiros até expirar, nunca negativo.
func (s *Service) GetTimeRemaining(r Request) int64 {
	left := r.ExpiresAt.Sub(s.now())
	if left <= 0 {
		return 0
	}
	return int64(left / time.Second)
}

func (s *Service) IsPaymentExpired(r Request) bool {
	return s.now().After(r.ExpiresAt)
}

func (s *Service) SetActivePayment(ctx context.Context, id string) error {
	return kvstore.SetJSON(ctx, s.store, keyActive, id)
}

// GetActivePayment resolve o ponteiro ativo; PENDING vencido é marcado EXPIRED na leitura.
func (s *Service) GetActivePayment(ctx context.Context) (*Request, bool) {
	var id string
	ok, err := kvstore.GetJSON(ctx, s.store, keyActive, &id)
	if err != nil {
		s.log.Error("load active payment", zap.Error(err))
		return nil, false
	}
	if !ok || id == "" {
		return nil, false
	}

	r, found := s.GetPaymentRequest(ctx, id)
	if !found {
		if err := s.ClearActivePayment(ctx); err != nil {
			s.log.Warn("clear dangling active payment", zap.Error(err))
		}
		return nil, false
	}
	if r.Status == StatusPending && s.IsPaymentExpired(*r) {
		expired, err := s.UpdatePaymentStatus(ctx, id, StatusExpired, nil)
		if err != nil {
			s.log.Error("expire active payment", zap.String("payment_id", id), zap.Error(err))
			return r, true
		}
		return expired, true
	}
	return r, true
}

func (s *Service) ClearActivePayment(ctx context.Context) error {
	return s.store.Delete(ctx, keyActive)
}

// CleanupExpiredPayments marca EXPIRED todo PENDING vencido e retorna os afetados.
func (s *Service) CleanupExpiredPayments(ctx context.Context) ([]Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reqs, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	var swept []Request
	for i := range reqs {
		r := &reqs[i]
		if r.Status != StatusPending || !now.After(r.ExpiresAt) {
			continue
		}
		if err := transition(r, StatusExpired, nil, now); err != nil {
			return nil, err
		}
		swept = append(swept, *r)
	}
	if len(swept) == 0 {
		return nil, nil
	}
	if err := kvstore.SetJSON(ctx, s.store, KeyRequests, reqs); err != nil {
		return nil, fmt.Errorf("save payment requests: %w", err)
	}
	for _, r := range swept {
		s.clearActiveIf(ctx, r.ID)
	}
	s.log.Info("expired payments swept", zap.Int("count", len(swept)))
	return swept, nil
}

func (s *Service) GetPaymentStats(ctx context.Context) Stats {
	var st Stats
	for _, r := range s.GetAllPaymentRequests(ctx) {
		st.Total++
		switch r.Status {
		case StatusCompleted:
			st.Completed++
			st.TotalAmount += r.Amount
		case StatusFailed:
			st.Failed++
		case StatusExpired:
			st.Expired++
		case StatusPending:
			st.Pending++
		case StatusWaitingApproval:
			st.WaitingApproval++
		case StatusCancelled:
			st.Cancelled++
		}
	}
	return st
}

func (s *Service) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Delete(ctx, KeyRequests, keyActive)
}

// QRCodeURL monta a URL de renderização do QR (serviço público, apenas demo).
func QRCodeURL(payload string, size int) string {
	if size <= 0 {
		size = 300
	}
	return fmt.Sprintf("https://api.qrserver.com/v1/create-qr-code/?size=%dx%d&data=%s", size, size, url.QueryEscape(payload))
}

func (s *Service) mutate(ctx context.Context, id string, fn func(r *Request, now time.Time) error) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reqs, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i := range reqs {
		if reqs[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrPaymentNotFound
	}

	r := &reqs[idx]
	before := r.Status
	if err := fn(r, s.now().UTC()); err != nil {
		out := *r
		return &out, err
	}
	if err := kvstore.SetJSON(ctx, s.store, KeyRequests, reqs); err != nil {
		return nil, fmt.Errorf("save payment requests: %w", err)
	}
	if r.Status != before && r.Status.Terminal() {
		s.clearActiveIf(ctx, r.ID)
	}
	if r.Status != before {
		s.log.Info("payment status changed",
			zap.String("payment_id", r.ID),
			zap.String("from", string(before)),
			zap.String("to", string(r.Status)))
	}
	out := *r
	return &out, nil
}

// clearActiveIf remove o ponteiro apenas se ele aponta para id.
func (s *Service) clearActiveIf(ctx context.Context, id string) {
	var active string
	ok, err := kvstore.GetJSON(ctx, s.store, keyActive, &active)
	if err != nil || !ok || active != id {
		return
	}
	if err := s.store.Delete(ctx, keyActive); err != nil {
		s.log.Warn("clear active payment", zap.Error(err))
	}
}

func (s *Service) load(ctx context.Context) ([]Request, error) {
	var reqs []Request
	if _, err := kvstore.GetJSON(ctx, s.store, KeyRequests, &reqs); err != nil {
		return nil, err
	}
	if reqs == nil {
		reqs = []Request{}
	}
	return reqs, nil
}

func awaitingApproval(r *Request) error {
	if r.Status != StatusWaitingApproval {
		return fmt.Errorf("%w: %s is not awaiting approval", ErrInvalidTransition, r.Status)
	}
	return nil
}

func transition(r *Request, to Status, metadata map[string]any, now time.Time) error {
	if !CanTransition(r.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, to)
	}
	r.Status = to
	if len(metadata) > 0 && r.Metadata == nil {
		r.Metadata = map[string]any{}
	}
	for k, v := range metadata {
		r.Metadata[k] = v
	}
	switch {
	case to == StatusProcessing:
		r.ProcessingStartedAt = &now
	case to.Terminal():
		r.CompletedAt = &now
	}
	return nil
}

type qrPayload struct {
	BankCode      string `json:"bankCode"`
	AccountNumber string `json:"accountNumber"`
	Amount        int64  `json:"amount"`
	Content       string `json:"content"`
	Template      string `json:"template"`
}

// vietQRPayload gera o conteúdo (base64 de JSON) codificado no QR de transferência.
func vietQRPayload(accountNumber string, amount int64, content string) (string, error) {
	raw, err := json.Marshal(qrPayload{
		BankCode:      demoBank.BankCode,
		AccountNumber: accountNumber,
		Amount:        amount,
		Content:       content,
		Template:      "compact",
	})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
