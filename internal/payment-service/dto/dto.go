package dto

import "github.com/radieske/court-booking-platform/internal/payment-service/payment"

type CreatePaymentRequest struct {
	Type        string `json:"type"`
	Method      string `json:"method"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

type UpdateStatusRequest struct {
	Status   string         `json:"status"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ReasonRequest cobre cancel, approve (note) e reject (reason).
type ReasonRequest struct {
	Reason string `json:"reason,omitempty"`
	Note   string `json:"note,omitempty"`
}

type ConfirmRequest struct {
	CompletedBy string `json:"completedBy,omitempty"`
}

// PaymentView acrescenta ao registro os campos derivados do relógio.
type PaymentView struct {
	payment.Request
	TimeRemaining int64  `json:"timeRemaining"`
	Expired       bool   `json:"expired"`
	QRCodeURL     string `json:"qrCodeUrl,omitempty"`
	WalletCredit  string `json:"walletCredit,omitempty"` // id do lançamento de recarga, quando houver
}

type CleanupResponse struct {
	Expired int `json:"expired"`
}
