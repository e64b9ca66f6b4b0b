package topics

const (
	// Wallet
	WalletTransactions = "wallet_transactions"

	// Payments
	PaymentStatus = "payment_status"

	// Bookings
	BookingStatus = "booking_status"

	// Redis Pub/Sub (payment-service/ws)
	PaymentUpdatesChannel = "payment_updates_broadcast"
)
