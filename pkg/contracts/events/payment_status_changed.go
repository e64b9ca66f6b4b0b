package events

import "time"

// Evento emitido pelo payment-service (e pelo payment-expiry-worker) em cada transição.
type PaymentStatusChanged struct {
	EventID   string    `json:"event_id"`
	PaymentID string    `json:"payment_id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Method    string    `json:"method"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"` // PENDING | COMPLETED | EXPIRED | ...
	Reason    string    `json:"reason,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	Ts        time.Time `json:"ts"`
}
