package booking

import "time"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

type Court struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

type User struct {
	ID       string `json:"id"`
	FullName string `json:"fullName,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Booking guarda apenas os campos informados; preço e horário não são validados aqui.
type Booking struct {
	ID            int64      `json:"id"`
	Court         Court      `json:"court"`
	User          User       `json:"user"`
	BookingDate   string     `json:"bookingDate"` // YYYY-MM-DD
	StartTime     string     `json:"startTime"`   // HH:MM
	EndTime       string     `json:"endTime"`
	TotalPrice    int64      `json:"totalPrice"`
	Status        Status     `json:"status"`
	Notes         string     `json:"notes,omitempty"`
	CancelReason  string     `json:"cancelReason,omitempty"`
	PaymentMethod string     `json:"paymentMethod,omitempty"`
	TransactionID string     `json:"transactionId,omitempty"` // lançamento na carteira, quando pago por ela
	RefundTxnID   string     `json:"refundTransactionId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

// Refundable: paga pela carteira e ainda sem estorno registrado.
func (b Booking) Refundable() bool {
	return b.PaymentMethod == "WALLET" && b.TransactionID != "" && b.RefundTxnID == "" && b.TotalPrice > 0
}

// Filter: campos zero são ignorados; datas comparadas como texto YYYY-MM-DD.
type Filter struct {
	Status    Status
	StartDate string
	EndDate   string
	CourtID   int64
}

type Stats struct {
	TotalBookings     int   `json:"totalBookings"`
	ConfirmedBookings int   `json:"confirmedBookings"`
	PendingBookings   int   `json:"pendingBookings"`
	TotalRevenue      int64 `json:"totalRevenue"` // CONFIRMED + COMPLETED
	ThisMonthBookings int   `json:"thisMonthBookings"`
}
