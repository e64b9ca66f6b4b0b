package booking

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/court-booking-platform/internal/shared/kvstore"
)

const (
	keyBookings = "fake_bookings"
	keyStats    = "fake_booking_stats"
)

var (
	ErrBookingNotFound  = errors.New("booking not found")
	ErrInvalidStatus    = errors.New("invalid booking status")
	ErrDuplicateID      = errors.New("booking id already exists")
	ErrBookingCancelled = errors.New("booking is cancelled")
)

// RefundFunc estorna a reserva e devolve o id do lançamento de estorno.
type RefundFunc func(b Booking) (string, error)

type Service struct {
	store kvstore.Store
	log   *zap.Logger
	now   func() time.Time

	mu sync.Mutex
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store kvstore.Store, log *zap.Logger, opts ...Option) *Service {
	s := &Service{store: store, log: log, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GenerateBookingID deriva o id do relógio em ms com sufixo aleatório de três dígitos.
func (s *Service) GenerateBookingID() int64 {
	return s.now().UnixMilli()*1000 + rand.Int64N(1000)
}

// SaveBooking anexa a reserva; id, createdAt e status recebem defaults quando vazios.
func (s *Service) SaveBooking(ctx context.Context, b Booking) (*Booking, error) {
	if b.Status == "" {
		b.Status = StatusPending
	}
	if !b.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if b.ID == 0 {
		b.ID = s.uniqueID(all)
	} else if indexOf(all, b.ID) >= 0 {
		return nil, ErrDuplicateID
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.now().UTC()
	}

	all = append(all, b)
	if err := kvstore.SetJSON(ctx, s.store, keyBookings, all); err != nil {
		return nil, fmt.Errorf("save bookings: %w", err)
	}
	s.refreshStats(ctx, all)

	s.log.Info("booking saved", zap.Int64("booking_id", b.ID), zap.String("status", string(b.Status)))
	return &b, nil
}

// GetAllBookings retorna na ordem de gravação; erro de leitura vira lista vazia.
func (s *Service) GetAllBookings(ctx context.Context) []Booking {
	all, err := s.load(ctx)
	if err != nil {
		s.log.Error("load bookings", zap.Error(err))
		return []Booking{}
	}
	return all
}

func (s *Service) GetBookingByID(ctx context.Context, id int64) (*Booking, bool) {
	all := s.GetAllBookings(ctx)
	if i := indexOf(all, id); i >= 0 {
		return &all[i], true
	}
	return nil, false
}

func (s *Service) HasBookings(ctx context.Context) bool {
	return len(s.GetAllBookings(ctx)) > 0
}

// UpdateBookingStatus troca o status e carimba updatedAt.
// Reserva cancelada não volta a outro status.
func (s *Service) UpdateBookingStatus(ctx context.Context, id int64, status Status) (*Booking, error) {
	return s.update(ctx, id, func(b *Booking) error {
		if !status.Valid() {
			return ErrInvalidStatus
		}
		if b.Status == StatusCancelled && status != StatusCancelled {
			return ErrBookingCancelled
		}
		b.Status = status
		return nil
	})
}

func (s *Service) CancelBooking(ctx context.Context, id int64, reason string) (*Booking, error) {
	return s.update(ctx, id, func(b *Booking) error {
		b.Status = StatusCancelled
		b.CancelReason = reason
		return nil
	})
}

// CancelWithRefund cancela e estorna no máximo uma vez, sob o mesmo lock.
// O estorno roda antes de gravar: se falhar nada muda e a chamada pode ser repetida,
// inclusive sobre reserva já cancelada sem refundTransactionId.
func (s *Service) CancelWithRefund(ctx context.Context, id int64, reason string, refund RefundFunc) (*Booking, error) {
	return s.update(ctx, id, func(b *Booking) error {
		if refund != nil && b.Refundable() {
			txnID, err := refund(*b)
			if err != nil {
				return fmt.Errorf("refund booking %d: %w", b.ID, err)
			}
			b.RefundTxnID = txnID
		}
		if b.Status != StatusCancelled || reason != "" {
			b.CancelReason = reason
		}
		b.Status = StatusCancelled
		return nil
	})
}

// GetFilteredBookings filtra e ordena por createdAt decrescente.
func (s *Service) GetFilteredBookings(ctx context.Context, f Filter) []Booking {
	all := s.GetAllBookings(ctx)
	out := make([]Booking, 0, len(all))
	for _, b := range all {
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.StartDate != "" && b.BookingDate < f.StartDate {
			continue
		}
		if f.EndDate != "" && b.BookingDate > f.EndDate {
			continue
		}
		if f.CourtID != 0 && b.Court.ID != f.CourtID {
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *Service) GetUserBookings(ctx context.Context, userID string) []Booking {
	var out []Booking
	for _, b := range s.GetAllBookings(ctx) {
		if b.User.ID == userID {
			out = append(out, b)
		}
	}
	return out
}

// GetStats lê o snapshot; ausente ou ilegível é recalculado e regravado.
func (s *Service) GetStats(ctx context.Context) Stats {
	var st Stats
	ok, err := kvstore.GetJSON(ctx, s.store, keyStats, &st)
	if err == nil && ok {
		return st
	}
	if err != nil {
		s.log.Warn("load booking stats", zap.Error(err))
	}
	all := s.GetAllBookings(ctx)
	s.refreshStats(ctx, all)
	return computeStats(all, s.now().UTC())
}

func (s *Service) ClearAllBookings(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Delete(ctx, keyBookings, keyStats)
}

// CreateSampleBookings grava três reservas de demonstração para o usuário.
// Quadras faltantes reaproveitam a primeira.
func (s *Service) CreateSampleBookings(ctx context.Context, courts []Court, user User) ([]Booking, error) {
	if len(courts) == 0 {
		return nil, errors.New("at least one court is required")
	}
	court := func(i int) Court {
		if i < len(courts) {
			return courts[i]
		}
		return courts[0]
	}
	now := s.now().UTC()
	day := func(d int) string { return now.AddDate(0, 0, d).Format("2006-01-02") }

	samples := []Booking{
		{Court: court(0), User: user, BookingDate: day(2), StartTime: "14:00", EndTime: "16:00",
			TotalPrice: 300_000, Status: StatusConfirmed, Notes: "Đặt sân cho 4 người", CreatedAt: now.AddDate(0, 0, -2)},
		{Court: court(1), User: user, BookingDate: day(4), StartTime: "18:00", EndTime: "20:00",
			TotalPrice: 400_000, Status: StatusPending, Notes: "Booking cho team công ty", CreatedAt: now.AddDate(0, 0, -1)},
		{Court: court(2), User: user, BookingDate: day(-3), StartTime: "07:00", EndTime: "08:00",
			TotalPrice: 150_000, Status: StatusCompleted, Notes: "Chơi buổi sáng", CreatedAt: now.AddDate(0, 0, -5)},
	}
	out := make([]Booking, 0, len(samples))
	for _, b := range samples {
		saved, err := s.SaveBooking(ctx, b)
		if err != nil {
			return out, err
		}
		out = append(out, *saved)
	}
	return out, nil
}

func (s *Service) update(ctx context.Context, id int64, fn func(*Booking) error) (*Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(all, id)
	if i < 0 {
		return nil, ErrBookingNotFound
	}
	if err := fn(&all[i]); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	all[i].UpdatedAt = &now
	if err := kvstore.SetJSON(ctx, s.store, keyBookings, all); err != nil {
		return nil, fmt.Errorf("save bookings: %w", err)
	}
	s.refreshStats(ctx, all)
	out := all[i]
	return &out, nil
}

func (s *Service) uniqueID(all []Booking) int64 {
	for {
		id := s.GenerateBookingID()
		if indexOf(all, id) < 0 {
			return id
		}
	}
}

func (s *Service) refreshStats(ctx context.Context, all []Booking) {
	if err := kvstore.SetJSON(ctx, s.store, keyStats, computeStats(all, s.now().UTC())); err != nil {
		s.log.Warn("booking stats refresh failed", zap.Error(err))
	}
}

func (s *Service) load(ctx context.Context) ([]Booking, error) {
	var all []Booking
	if _, err := kvstore.GetJSON(ctx, s.store, keyBookings, &all); err != nil {
		return nil, err
	}
	if all == nil {
		all = []Booking{}
	}
	return all, nil
}

func computeStats(all []Booking, now time.Time) Stats {
	st := Stats{TotalBookings: len(all)}
	y, m, _ := now.Date()
	for _, b := range all {
		switch b.Status {
		case StatusConfirmed:
			st.ConfirmedBookings++
			st.TotalRevenue += b.TotalPrice
		case StatusPending:
			st.PendingBookings++
		case StatusCompleted:
			st.TotalRevenue += b.TotalPrice
		}
		if by, bm, _ := b.CreatedAt.UTC().Date(); by == y && bm == m {
			st.ThisMonthBookings++
		}
	}
	return st
}

func indexOf(all []Booking, id int64) int {
	for i := range all {
		if all[i].ID == id {
			return i
		}
	}
	return -1
}
