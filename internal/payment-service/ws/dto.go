package ws

import "github.com/radieske/court-booking-platform/pkg/contracts/events"

// ClientMsg é a mensagem enviada pelo cliente WebSocket
// Type: subscribe | unsubscribe | ping; PaymentID obrigatório em subscribe/unsubscribe
type ClientMsg struct {
	Type      string `json:"type"`
	PaymentID string `json:"paymentId"`
}

// PaymentUpdate é o frame entregue aos inscritos de um pagamento
type PaymentUpdate struct {
	PaymentID string                      `json:"paymentId"`
	Payload   events.PaymentStatusChanged `json:"payload"`
}
