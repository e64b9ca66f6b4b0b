package wallet

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/radieske/court-booking-platform/internal/shared/kvstore"
)

// Chaves lógicas dentro do slot do usuário
const (
	keyWallet       = "fake_wallet"
	keyTransactions = "fake_transactions"
	keyStats        = "fake_wallet_stats"
)

const (
	DemoStartingBalance int64 = 2_500_000 // saldo inicial da carteira demo
	SavingsGoalTarget   int64 = 10_000_000
	DefaultCurrency           = "VND"
)

var (
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrInvalidType          = errors.New("invalid transaction type")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrWalletInactive       = errors.New("wallet is not active")
)

// Service implementa a carteira simulada sobre um slot do kvstore.
// Cada instância deve ser a única escritora do seu slot dentro do processo.
type Service struct {
	store kvstore.Store
	log   *zap.Logger
	now   func() time.Time

	mu sync.Mutex // serializa os ciclos ler-modificar-gravar
}

type Option func(*Service)

// WithClock troca o relógio (testes).
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

// InitializeWallet cria a carteira demo (sobrescrevendo a existente) e o histórico de exemplo.
func (s *Service) InitializeWallet(ctx context.Context, userID string) (*Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	w := &Wallet{
		ID:            fmt.Sprintf("wallet_%s_%d", userID, now.UnixMilli()),
		UserID:        userID,
		Balance:       DemoStartingBalance,
		LockedBalance: 0,
		TotalEarned:   DemoStartingBalance,
		TotalSpent:    0,
		Currency:      DefaultCurrency,
		Status:        WalletActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := kvstore.SetJSON(ctx, s.store, keyWallet, w); err != nil {
		return nil, fmt.Errorf("save wallet: %w", err)
	}
	if err := kvstore.SetJSON(ctx, s.store, keyTransactions, sampleTransactions(userID, now)); err != nil {
		return nil, fmt.Errorf("save sample transactions: %w", err)
	}
	s.refreshStats(ctx)

	s.log.Info("wallet initialized", zap.String("user_id", userID), zap.String("wallet_id", w.ID))
	return w, nil
}

// GetWallet retorna a carteira do slot; falhas de leitura são logadas e tratadas como ausência.
func (s *Service) GetWallet(ctx context.Context) (*Wallet, bool) {
	w, err := s.loadWallet(ctx)
	if err != nil {
		if !errors.Is(err, ErrWalletNotFound) {
			s.log.Error("load wallet", zap.Error(err))
		}
		return nil, false
	}
	return w, true
}

func (s *Service) HasWallet(ctx context.Context) bool {
	_, ok := s.GetWallet(ctx)
	return ok
}

// UpdateWallet aplica mutate sobre a carteira atual e grava, carimbando updatedAt.
func (s *Service) UpdateWallet(ctx context.Context, mutate func(*Wallet)) (*Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.loadWallet(ctx)
	if err != nil {
		return nil, err
	}
	mutate(w)
	w.UpdatedAt = s.now().UTC()
	if err := kvstore.SetJSON(ctx, s.store, keyWallet, w); err != nil {
		return nil, fmt.Errorf("save wallet: %w", err)
	}
	s.refreshStats(ctx)
	return w, nil
}

// CreateTransaction lança um movimento COMPLETED e atualiza saldo e totais.
// Débito que deixaria o saldo negativo retorna ErrInsufficientBalance e nada é gravado.
func (s *Service) CreateTransaction(ctx context.Context, typ TransactionType, amount int64, description string, method PaymentMethod, metadata map[string]any) (*Transaction, error) {
	return s.create(ctx, Transaction{
		Type:          typ,
		Amount:        amount,
		Description:   description,
		PaymentMethod: method,
		Metadata:      metadata,
	})
}

func (s *Service) create(ctx context.Context, draft Transaction) (*Transaction, error) {
	if !draft.Type.Valid() {
		return nil, ErrInvalidType
	}
	if draft.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.loadWallet(ctx)
	if err != nil {
		return nil, err
	}
	if w.Status != WalletActive {
		return nil, ErrWalletInactive
	}

	debit := draft.Type.IsDebit()
	newBalance := w.Balance + draft.Amount
	if debit {
		newBalance = w.Balance - draft.Amount
		if newBalance < 0 {
			return nil, ErrInsufficientBalance
		}
	}

	prev, err := s.loadTransactions(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	tx := draft
	tx.ID = newTransactionID(now)
	tx.UserID = w.UserID
	tx.Status = StatusCompleted
	tx.Balance = newBalance
	tx.CreatedAt = now
	tx.ProcessedAt = &now

	// mais recente primeiro
	txs := make([]Transaction, 0, len(prev)+1)
	txs = append(txs, tx)
	txs = append(txs, prev...)
	if err := kvstore.SetJSON(ctx, s.store, keyTransactions, txs); err != nil {
		return nil, fmt.Errorf("save transactions: %w", err)
	}

	w.Balance = newBalance
	if debit {
		w.TotalSpent += tx.Amount
	} else {
		w.TotalEarned += tx.Amount
	}
	w.LastTransactionAt = &now
	w.UpdatedAt = now
	if err := kvstore.SetJSON(ctx, s.store, keyWallet, w); err != nil {
		// desfaz o lançamento para não divergir do saldo
		if rerr := kvstore.SetJSON(ctx, s.store, keyTransactions, prev); rerr != nil {
			s.log.Error("rollback transactions", zap.Error(rerr))
		}
		return nil, fmt.Errorf("save wallet: %w", err)
	}

	s.refreshStats(ctx)
	s.log.Info("transaction created", logFields(&tx)...)
	return &tx, nil
}

func (s *Service) TopUp(ctx context.Context, req TopUpRequest) (*Transaction, error) {
	if !req.PaymentMethod.Valid() {
		return nil, ErrInvalidPaymentMethod
	}
	desc := req.Description
	if desc == "" {
		desc = fmt.Sprintf("Nạp tiền qua %s", req.PaymentMethod)
	}
	return s.create(ctx, Transaction{
		Type:          TypeTopUp,
		Amount:        req.Amount,
		Description:   desc,
		PaymentMethod: req.PaymentMethod,
		Reference:     req.Reference,
		Metadata:      map[string]any{"topUpMethod": string(req.PaymentMethod)},
	})
}

func (s *Service) Withdraw(ctx context.Context, req WithdrawalRequest) (*Transaction, error) {
	desc := req.Description
	if desc == "" {
		desc = fmt.Sprintf("Rút tiền về %s", req.BankName)
	}
	return s.create(ctx, Transaction{
		Type:          TypeWithdrawal,
		Amount:        req.Amount,
		Description:   desc,
		PaymentMethod: MethodBanking,
		Metadata: map[string]any{
			"bankAccount":   req.BankAccount,
			"bankName":      req.BankName,
			"accountHolder": req.AccountHolder,
		},
	})
}

func (s *Service) Transfer(ctx context.Context, req TransferRequest) (*Transaction, error) {
	desc := req.Description
	if desc == "" {
		desc = fmt.Sprintf("Chuyển tiền cho %s", req.RecipientName)
	}
	return s.create(ctx, Transaction{
		Type:          TypeTransferOut,
		Amount:        req.Amount,
		Description:   desc,
		PaymentMethod: MethodWallet,
		Metadata: map[string]any{
			"recipientId":   req.RecipientID,
			"recipientName": req.RecipientName,
		},
	})
}

func (s *Service) PayForBooking(ctx context.Context, amount int64, bookingID int64, courtName string) (*Transaction, error) {
	return s.create(ctx, Transaction{
		Type:          TypeBookingPayment,
		Amount:        amount,
		Description:   fmt.Sprintf("Thanh toán đặt sân %s", courtName),
		PaymentMethod: MethodWallet,
		Reference:     strconv.FormatInt(bookingID, 10),
		Metadata:      map[string]any{"bookingId": bookingID, "courtName": courtName},
	})
}

// RefundBooking devolve à carteira o valor de uma reserva cancelada.
func (s *Service) RefundBooking(ctx context.Context, amount int64, bookingID int64, courtName string) (*Transaction, error) {
	return s.create(ctx, Transaction{
		Type:          TypeRefund,
		Amount:        amount,
		Description:   fmt.Sprintf("Hoàn tiền đặt sân %s", courtName),
		PaymentMethod: MethodWallet,
		Reference:     strconv.FormatInt(bookingID, 10),
		Metadata:      map[string]any{"bookingId": bookingID, "courtName": courtName},
	})
}

// GetAllTransactions lista os lançamentos (mais recente primeiro); erro de leitura vira lista vazia.
func (s *Service) GetAllTransactions(ctx context.Context) []Transaction {
	txs, err := s.loadTransactions(ctx)
	if err != nil {
		s.log.Error("load transactions", zap.Error(err))
		return []Transaction{}
	}
	return txs
}

func (s *Service) GetFilteredTransactions(ctx context.Context, f TransactionFilter) []Transaction {
	return filterTransactions(s.GetAllTransactions(ctx), f)
}

// ClearAll remove carteira, lançamentos e estatísticas do slot.
func (s *Service) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Delete(ctx, keyWallet, keyTransactions, keyStats)
}

func (s *Service) loadWallet(ctx context.Context) (*Wallet, error) {
	var w Wallet
	ok, err := kvstore.GetJSON(ctx, s.store, keyWallet, &w)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrWalletNotFound
	}
	return &w, nil
}

func (s *Service) loadTransactions(ctx context.Context) ([]Transaction, error) {
	var txs []Transaction
	if _, err := kvstore.GetJSON(ctx, s.store, keyTransactions, &txs); err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []Transaction{}
	}
	return txs, nil
}

// refreshStats regrava o snapshot de estatísticas; falha não interrompe a operação.
func (s *Service) refreshStats(ctx context.Context) {
	txs, err := s.loadTransactions(ctx)
	if err != nil {
		s.log.Warn("stats refresh skipped", zap.Error(err))
		return
	}
	if err := kvstore.SetJSON(ctx, s.store, keyStats, computeStats(txs, s.now().UTC())); err != nil {
		s.log.Warn("stats refresh failed", zap.Error(err))
	}
}

func newTransactionID(t time.Time) string {
	return "txn_" + ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String()
}
