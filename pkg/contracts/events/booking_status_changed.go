package events

import "time"

type BookingStatusChanged struct {
	EventID    string    `json:"event_id"`
	BookingID  int64     `json:"booking_id"`
	UserID     string    `json:"user_id"`
	CourtID    int64     `json:"court_id"`
	Status     string    `json:"status"` // PENDING | CONFIRMED | CANCELLED | COMPLETED
	TotalPrice int64     `json:"total_price"`
	Reason     string    `json:"reason,omitempty"`
	Ts         time.Time `json:"ts"`
}
