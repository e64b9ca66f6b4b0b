package payment

import "time"

type Type string

const (
	TypeTopUp      Type = "TOP_UP"
	TypeBooking    Type = "BOOKING"
	TypeWithdrawal Type = "WITHDRAWAL"
)

func (t Type) Valid() bool {
	switch t {
	case TypeTopUp, TypeBooking, TypeWithdrawal:
		return true
	}
	return false
}

type Method string

const (
	MethodVietQR        Method = "VIET_QR"
	MethodAdminApproval Method = "ADMIN_APPROVAL"
	MethodMomo          Method = "MOMO"
	MethodZaloPay       Method = "ZALOPAY"
	MethodBanking       Method = "BANKING"
)

func (m Method) Valid() bool {
	switch m {
	case MethodVietQR, MethodAdminApproval, MethodMomo, MethodZaloPay, MethodBanking:
		return true
	}
	return false
}

type Status string

const (
	StatusPending         Status = "PENDING"
	StatusProcessing      Status = "PROCESSING"
	StatusWaitingApproval Status = "WAITING_APPROVAL"
	StatusCompleted       Status = "COMPLETED"
	StatusFailed          Status = "FAILED"
	StatusExpired         Status = "EXPIRED"
	StatusCancelled       Status = "CANCELLED"
)

// Terminal: nenhuma transição sai destes estados.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

var transitions = map[Status][]Status{
	StatusPending:         {StatusProcessing, StatusCompleted, StatusFailed, StatusExpired, StatusCancelled},
	StatusProcessing:      {StatusCompleted, StatusFailed, StatusExpired, StatusCancelled},
	StatusWaitingApproval: {StatusCompleted, StatusFailed, StatusExpired, StatusCancelled},
}

// CanTransition informa se from -> to é permitido.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type BankAccount struct {
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
	BankName      string `json:"bankName"`
	Content       string `json:"content"`
}

// Request é uma tentativa de pagamento com validade fixa.
type Request struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	Type        Type         `json:"type"`
	Method      Method       `json:"method"`
	Amount      int64        `json:"amount"`
	Description string       `json:"description"`
	Status      Status       `json:"status"`
	QRCode      string       `json:"qrCode,omitempty"`
	QRText      string       `json:"qrText,omitempty"`
	BankAccount *BankAccount `json:"bankAccount,omitempty"`

	CreatedAt           time.Time  `json:"createdAt"`
	ExpiresAt           time.Time  `json:"expiresAt"`
	ProcessingStartedAt *time.Time `json:"processingStartedAt,omitempty"`
	CompletedAt         *time.Time `json:"completedAt,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

type Stats struct {
	Total           int   `json:"total"`
	Completed       int   `json:"completed"`
	Failed          int   `json:"failed"`
	Expired         int   `json:"expired"`
	Pending         int   `json:"pending"`
	WaitingApproval int   `json:"waitingApproval"`
	Cancelled       int   `json:"cancelled"`
	TotalAmount     int64 `json:"totalAmount"` // soma dos COMPLETED
}

// Conta de recebimento exibida nos pagamentos VietQR.
type bankInfo struct {
	BankCode      string
	BankName      string
	AccountNumber string
	AccountName   string
}

var demoBank = bankInfo{
	BankCode:      "VCB",
	BankName:      "Vietcombank",
	AccountNumber: "1234567890",
	AccountName:   "CONG TY BADMINTON APP",
}

const (
	Timeout   = 10 * time.Minute
	MinAmount = 10_000
	MaxAmount = 50_000_000
)
