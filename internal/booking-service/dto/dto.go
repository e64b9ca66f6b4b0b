package dto

import "github.com/radieske/court-booking-platform/internal/booking-service/booking"

type CreateBookingRequest struct {
	Court         booking.Court `json:"court"`
	User          booking.User  `json:"user"`
	BookingDate   string        `json:"bookingDate"`
	StartTime     string        `json:"startTime"`
	EndTime       string        `json:"endTime"`
	TotalPrice    int64         `json:"totalPrice"`
	Status        string        `json:"status,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	PayWithWallet bool          `json:"payWithWallet,omitempty"` // debita a carteira antes de gravar
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type CancelRequest struct {
	Reason         string `json:"reason,omitempty"`
	RefundToWallet bool   `json:"refundToWallet,omitempty"`
}

type SampleRequest struct {
	Courts []booking.Court `json:"courts"`
	User   booking.User    `json:"user"`
}

type CancelResponse struct {
	Booking       *booking.Booking `json:"booking"`
	RefundTxnID   string           `json:"refundTransactionId,omitempty"`
	WalletBalance *int64           `json:"walletBalance,omitempty"`
}
