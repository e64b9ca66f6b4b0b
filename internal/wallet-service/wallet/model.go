package wallet

import "time"

type TransactionType string

const (
	TypeBookingPayment TransactionType = "BOOKING_PAYMENT"
	TypeRefund         TransactionType = "REFUND"
	TypeTopUp          TransactionType = "TOP_UP"
	TypeWithdrawal     TransactionType = "WITHDRAWAL"
	TypeBonus          TransactionType = "BONUS"
	TypePenalty        TransactionType = "PENALTY"
	TypeCashback       TransactionType = "CASHBACK"
	TypeTransferIn     TransactionType = "TRANSFER_IN"
	TypeTransferOut    TransactionType = "TRANSFER_OUT"
)

// IsDebit indica se o tipo reduz o saldo.
func (t TransactionType) IsDebit() bool {
	switch t {
	case TypeBookingPayment, TypeWithdrawal, TypePenalty, TypeTransferOut:
		return true
	}
	return false
}

func (t TransactionType) Valid() bool {
	switch t {
	case TypeBookingPayment, TypeRefund, TypeTopUp, TypeWithdrawal, TypeBonus,
		TypePenalty, TypeCashback, TypeTransferIn, TypeTransferOut:
		return true
	}
	return false
}

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusFailed    TransactionStatus = "FAILED"
	StatusCancelled TransactionStatus = "CANCELLED"
	StatusRefunded  TransactionStatus = "REFUNDED"
)

type PaymentMethod string

const (
	MethodWallet     PaymentMethod = "WALLET"
	MethodMomo       PaymentMethod = "MOMO"
	MethodBanking    PaymentMethod = "BANKING"
	MethodZaloPay    PaymentMethod = "ZALOPAY"
	MethodCash       PaymentMethod = "CASH"
	MethodCreditCard PaymentMethod = "CREDIT_CARD"
	MethodVisa       PaymentMethod = "VISA"
	MethodMastercard PaymentMethod = "MASTERCARD"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodWallet, MethodMomo, MethodBanking, MethodZaloPay, MethodCash,
		MethodCreditCard, MethodVisa, MethodMastercard:
		return true
	}
	return false
}

type Status string

const (
	WalletActive    Status = "ACTIVE"
	WalletSuspended Status = "SUSPENDED"
	WalletLocked    Status = "LOCKED"
)

// Wallet é o registro único de carteira do slot. Valores em VND inteiros.
type Wallet struct {
	ID                string     `json:"id"`
	UserID            string     `json:"userId"`
	Balance           int64      `json:"balance"`
	LockedBalance     int64      `json:"lockedBalance"` // valor retido por operações pendentes
	TotalEarned       int64      `json:"totalEarned"`
	TotalSpent        int64      `json:"totalSpent"`
	Currency          string     `json:"currency"`
	Status            Status     `json:"status"`
	LastTransactionAt *time.Time `json:"lastTransactionAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// Transaction é imutável depois de gravada. Balance guarda o saldo resultante.
type Transaction struct {
	ID            string            `json:"id"`
	UserID        string            `json:"userId"`
	Type          TransactionType   `json:"type"`
	Status        TransactionStatus `json:"status"`
	Amount        int64             `json:"amount"`
	Balance       int64             `json:"balance"`
	Description   string            `json:"description"`
	PaymentMethod PaymentMethod     `json:"paymentMethod,omitempty"`
	Reference     string            `json:"reference,omitempty"` // ex.: id da reserva
	Metadata      map[string]any    `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     *time.Time        `json:"updatedAt,omitempty"`
	ProcessedAt   *time.Time        `json:"processedAt,omitempty"`
}

type TopUpRequest struct {
	Amount        int64
	PaymentMethod PaymentMethod
	Description   string
	Reference     string
}

type WithdrawalRequest struct {
	Amount        int64
	BankAccount   string
	BankName      string
	AccountHolder string
	Description   string
}

type TransferRequest struct {
	RecipientID   string
	RecipientName string
	Amount        int64
	Description   string
}

// TransactionFilter: campos zero são ignorados.
type TransactionFilter struct {
	Type          TransactionType
	Status        TransactionStatus
	PaymentMethod PaymentMethod
	StartDate     time.Time
	EndDate       time.Time
	MinAmount     int64
	MaxAmount     int64
	Reference     string
}

type SavingsGoal struct {
	Target     int64   `json:"target"`
	Current    int64   `json:"current"`
	Percentage float64 `json:"percentage"`
}

type Summary struct {
	AvailableBalance  int64        `json:"availableBalance"`
	PendingAmount     int64        `json:"pendingAmount"`
	TodayTransactions int          `json:"todayTransactions"`
	WeeklySpending    int64        `json:"weeklySpending"`
	MonthlySpending   int64        `json:"monthlySpending"`
	SavingsGoal       *SavingsGoal `json:"savingsGoal,omitempty"`
}

type MonthlyTrend struct {
	Month        string `json:"month"` // "2006-01"
	Income       int64  `json:"income"`
	Expense      int64  `json:"expense"`
	Transactions int    `json:"transactions"`
}

type Stats struct {
	TotalTransactions     int                     `json:"totalTransactions"`
	ThisMonthTransactions int                     `json:"thisMonthTransactions"`
	TotalIncome           int64                   `json:"totalIncome"`
	TotalExpense          int64                   `json:"totalExpense"`
	ThisMonthIncome       int64                   `json:"thisMonthIncome"`
	ThisMonthExpense      int64                   `json:"thisMonthExpense"`
	AverageTransaction    float64                 `json:"averageTransaction"`
	LargestTransaction    int64                   `json:"largestTransaction"`
	FavoritePaymentMethod *PaymentMethod          `json:"favoritePaymentMethod"`
	TransactionsByType    map[TransactionType]int `json:"transactionsByType"`
	MonthlyTrend          []MonthlyTrend          `json:"monthlyTrend"`
}
