package wallet

import (
	"time"
)

type sample struct {
	daysAgo     int
	typ         TransactionType
	amount      int64
	description string
	method      PaymentMethod
	reference   string
	metadata    map[string]any
}

// Histórico demo em ordem cronológica; o saldo de cada lançamento é acumulado a partir de zero.
var samples = []sample{
	{daysAgo: 10, typ: TypeTopUp, amount: 2_000_000, description: "Nạp tiền qua MoMo", method: MethodMomo,
		metadata: map[string]any{"topUpMethod": string(MethodMomo)}},
	{daysAgo: 8, typ: TypeBookingPayment, amount: 150_000, description: "Thanh toán đặt sân Cầu Lông Hải Châu", method: MethodWallet,
		reference: "1001", metadata: map[string]any{"bookingId": 1001, "courtName": "Sân Cầu Lông Hải Châu"}},
	{daysAgo: 7, typ: TypeBonus, amount: 50_000, description: "Thưởng thành viên mới", method: MethodWallet},
	{daysAgo: 5, typ: TypeTopUp, amount: 500_000, description: "Nạp tiền qua ZaloPay", method: MethodZaloPay,
		metadata: map[string]any{"topUpMethod": string(MethodZaloPay)}},
	{daysAgo: 3, typ: TypeCashback, amount: 15_000, description: "Hoàn tiền khuyến mãi 10%", method: MethodWallet},
	{daysAgo: 2, typ: TypeBookingPayment, amount: 200_000, description: "Thanh toán đặt sân Cầu Lông Sơn Trà", method: MethodWallet,
		reference: "1002", metadata: map[string]any{"bookingId": 1002, "courtName": "Sân Cầu Lông Sơn Trà"}},
	{daysAgo: 1, typ: TypeTopUp, amount: 300_000, description: "Nạp tiền qua ngân hàng", method: MethodBanking,
		metadata: map[string]any{"topUpMethod": string(MethodBanking)}},
}

// sampleTransactions monta o histórico demo, retornado do mais recente para o mais antigo.
func sampleTransactions(userID string, now time.Time) []Transaction {
	out := make([]Transaction, len(samples))
	var balance int64
	for i, sm := range samples {
		if sm.typ.IsDebit() {
			balance -= sm.amount
		} else {
			balance += sm.amount
		}
		at := now.AddDate(0, 0, -sm.daysAgo)
		processed := at
		out[len(samples)-1-i] = Transaction{
			ID:            newTransactionID(at),
			UserID:        userID,
			Type:          sm.typ,
			Status:        StatusCompleted,
			Amount:        sm.amount,
			Balance:       balance,
			Description:   sm.description,
			PaymentMethod: sm.method,
			Reference:     sm.reference,
			Metadata:      sm.metadata,
			CreatedAt:     at,
			ProcessedAt:   &processed,
		}
	}
	return out
}
