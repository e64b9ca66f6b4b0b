package wallet

import (
	"context"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
)

const trendMonths = 6

// GetWalletSummary resume o slot; sem carteira retorna resumo zerado.
func (s *Service) GetWalletSummary(ctx context.Context) Summary {
	w, ok := s.GetWallet(ctx)
	if !ok {
		return Summary{}
	}
	return summarize(w, s.GetAllTransactions(ctx), s.now().UTC())
}

// GetStats recalcula as estatísticas a partir da lista completa.
func (s *Service) GetStats(ctx context.Context) Stats {
	return computeStats(s.GetAllTransactions(ctx), s.now().UTC())
}

func summarize(w *Wallet, txs []Transaction, now time.Time) Summary {
	weekAgo := now.AddDate(0, 0, -7)
	monthAgo := now.AddDate(0, 0, -30)
	y, m, d := now.Date()

	var sum Summary
	sum.AvailableBalance = w.Balance
	sum.PendingAmount = w.LockedBalance
	for _, tx := range txs {
		at := tx.CreatedAt.UTC()
		if ty, tm, td := at.Date(); ty == y && tm == m && td == d {
			sum.TodayTransactions++
		}
		if !tx.Type.IsDebit() {
			continue
		}
		if !at.Before(weekAgo) {
			sum.WeeklySpending += tx.Amount
		}
		if !at.Before(monthAgo) {
			sum.MonthlySpending += tx.Amount
		}
	}

	pct := float64(w.Balance) / float64(SavingsGoalTarget) * 100
	sum.SavingsGoal = &SavingsGoal{
		Target:     SavingsGoalTarget,
		Current:    w.Balance,
		Percentage: math.Min(pct, 100),
	}
	return sum
}

func computeStats(txs []Transaction, now time.Time) Stats {
	st := Stats{
		TransactionsByType: map[TransactionType]int{},
		MonthlyTrend:       make([]MonthlyTrend, 0, trendMonths),
	}
	y, m, _ := now.Date()

	methodCount := map[PaymentMethod]int{}
	var methodOrder []PaymentMethod
	var total int64

	for _, tx := range txs {
		st.TotalTransactions++
		total += tx.Amount
		if tx.Amount > st.LargestTransaction {
			st.LargestTransaction = tx.Amount
		}
		st.TransactionsByType[tx.Type]++

		debit := tx.Type.IsDebit()
		if debit {
			st.TotalExpense += tx.Amount
		} else {
			st.TotalIncome += tx.Amount
		}

		if ty, tm, _ := tx.CreatedAt.UTC().Date(); ty == y && tm == m {
			st.ThisMonthTransactions++
			if debit {
				st.ThisMonthExpense += tx.Amount
			} else {
				st.ThisMonthIncome += tx.Amount
			}
		}

		if tx.PaymentMethod != "" {
			if _, seen := methodCount[tx.PaymentMethod]; !seen {
				methodOrder = append(methodOrder, tx.PaymentMethod)
			}
			methodCount[tx.PaymentMethod]++
		}
	}

	if st.TotalTransactions > 0 {
		st.AverageTransaction = float64(total) / float64(st.TotalTransactions)
	}

	// empate fica com o primeiro visto (lista mais recente primeiro)
	best := 0
	for _, pm := range methodOrder {
		if c := methodCount[pm]; c > best {
			best = c
			fav := pm
			st.FavoritePaymentMethod = &fav
		}
	}

	for i := trendMonths - 1; i >= 0; i-- {
		start := time.Date(y, m-time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0)
		bucket := MonthlyTrend{Month: start.Format("2006-01")}
		for _, tx := range txs {
			at := tx.CreatedAt.UTC()
			if at.Before(start) || !at.Before(end) {
				continue
			}
			bucket.Transactions++
			if tx.Type.IsDebit() {
				bucket.Expense += tx.Amount
			} else {
				bucket.Income += tx.Amount
			}
		}
		st.MonthlyTrend = append(st.MonthlyTrend, bucket)
	}
	return st
}

func filterTransactions(txs []Transaction, f TransactionFilter) []Transaction {
	out := make([]Transaction, 0, len(txs))
	ref := strings.ToLower(f.Reference)
	for _, tx := range txs {
		if f.Type != "" && tx.Type != f.Type {
			continue
		}
		if f.Status != "" && tx.Status != f.Status {
			continue
		}
		if f.PaymentMethod != "" && tx.PaymentMethod != f.PaymentMethod {
			continue
		}
		if !f.StartDate.IsZero() && tx.CreatedAt.Before(f.StartDate) {
			continue
		}
		if !f.EndDate.IsZero() && tx.CreatedAt.After(f.EndDate) {
			continue
		}
		if f.MinAmount > 0 && tx.Amount < f.MinAmount {
			continue
		}
		if f.MaxAmount > 0 && tx.Amount > f.MaxAmount {
			continue
		}
		// referência por trecho; descrição por trecho sem caixa
		if ref != "" && !strings.Contains(tx.Reference, f.Reference) && !strings.Contains(strings.ToLower(tx.Description), ref) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

func logFields(tx *Transaction) []zap.Field {
	return []zap.Field{
		zap.String("txn_id", tx.ID),
		zap.String("type", string(tx.Type)),
		zap.Int64("amount", tx.Amount),
		zap.Int64("balance", tx.Balance),
	}
}
