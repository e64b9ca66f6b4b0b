package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"

	phttp "github.com/radieske/court-booking-platform/internal/payment-service/http"
	"github.com/radieske/court-booking-platform/internal/payment-service/payment"
	"github.com/radieske/court-booking-platform/internal/shared/kvstore"
)

// Sweeper percorre os slots de usuários e expira pagamentos PENDING vencidos,
// emitindo o evento de status para cada um.
type Sweeper struct {
	Log         *zap.Logger
	Store       kvstore.Store
	Events      phttp.Publisher
	Broadcaster phttp.Broadcaster
	Interval    time.Duration
	Opts        []payment.Option

	OnExpired func()       // métricas
	OnError   func(string) // métricas por fase
}

// Run executa um ciclo imediato e depois a cada Interval até ctx ser cancelado.
func (s *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(s.Interval)
	defer t.Stop()
	for {
		if _, err := s.SweepOnce(ctx); err != nil {
			s.Log.Warn("expiry sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// SweepOnce processa todos os slots que possuem solicitações de pagamento.
// Retorna o total expirado no ciclo.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	users, err := s.slots(ctx)
	if err != nil {
		s.onError("scan")
		return 0, err
	}

	total := 0
	for _, userID := range users {
		svc := payment.NewService(
			kvstore.WithPrefix(s.Store, kvstore.SlotPrefix(userID)),
			s.Log.With(zap.String("user_id", userID)),
			s.Opts...,
		)
		swept, err := svc.CleanupExpiredPayments(ctx)
		if err != nil {
			s.onError("cleanup")
			s.Log.Warn("cleanup slot", zap.String("user_id", userID), zap.Error(err))
			continue
		}
		for i := range swept {
			s.emit(ctx, &swept[i], svc.Now())
		}
		total += len(swept)
	}
	if total > 0 {
		s.Log.Info("expiry sweep done", zap.Int("slots", len(users)), zap.Int("expired", total))
	}
	return total, nil
}

func (s *Sweeper) emit(ctx context.Context, p *payment.Request, now time.Time) {
	if s.OnExpired != nil {
		s.OnExpired()
	}
	evt := phttp.StatusEvent(p, "Payment expired", now)
	if s.Events != nil {
		if err := s.Events.Publish(ctx, p.ID, evt); err != nil {
			s.onError("publish")
		}
	}
	if s.Broadcaster != nil {
		if err := s.Broadcaster.Broadcast(ctx, evt); err != nil {
			s.onError("broadcast")
			s.Log.Warn("expiry broadcast", zap.String("payment_id", p.ID), zap.Error(err))
		}
	}
}

// slots lista os userIDs com a chave de solicitações gravada.
func (s *Sweeper) slots(ctx context.Context) ([]string, error) {
	keys, err := s.Store.Keys(ctx, "slot:")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, k := range keys {
		id, ok := kvstore.SlotFromKey(k, payment.KeyRequests)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

func (s *Sweeper) onError(stage string) {
	if s.OnError != nil {
		s.OnError(stage)
	}
}
