package events

import "time"

// Evento publicado no tópico "wallet_transactions" a cada lançamento aceito na carteira.
type TransactionCreated struct {
	EventID       string    `json:"event_id"`
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	Type          string    `json:"type"` // TOP_UP | BOOKING_PAYMENT | ...
	Amount        int64     `json:"amount"`
	Balance       int64     `json:"balance"` // saldo após o lançamento
	PaymentMethod string    `json:"payment_method,omitempty"`
	Reference     string    `json:"reference,omitempty"`
	Ts            time.Time `json:"ts"`
}
