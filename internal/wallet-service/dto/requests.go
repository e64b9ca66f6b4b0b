package dto

// Valores sempre em VND inteiros.

type TopUpRequest struct {
	Amount        int64  `json:"amount"`
	PaymentMethod string `json:"paymentMethod"`
	Description   string `json:"description,omitempty"`
	Reference     string `json:"reference,omitempty"` // ex.: id do pagamento que originou a recarga
}

type WithdrawRequest struct {
	Amount        int64  `json:"amount"`
	BankAccount   string `json:"bankAccount"`
	BankName      string `json:"bankName"`
	AccountHolder string `json:"accountHolder"`
	Description   string `json:"description,omitempty"`
}

type TransferRequest struct {
	RecipientID   string `json:"recipientId"`
	RecipientName string `json:"recipientName,omitempty"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description,omitempty"`
}

// BookingChargeRequest serve tanto para pagamento quanto para estorno de reserva.
type BookingChargeRequest struct {
	Amount    int64  `json:"amount"`
	BookingID int64  `json:"bookingId"`
	CourtName string `json:"courtName"`
}

type CreateTransactionRequest struct {
	Type          string         `json:"type"`
	Amount        int64          `json:"amount"`
	Description   string         `json:"description"`
	PaymentMethod string         `json:"paymentMethod,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}
