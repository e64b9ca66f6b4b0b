package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/court-booking-platform/internal/booking-service/booking"
	"github.com/radieske/court-booking-platform/internal/booking-service/dto"
	"github.com/radieske/court-booking-platform/internal/shared/kvstore"
	"github.com/radieske/court-booking-platform/internal/shared/metrics"
	wclient "github.com/radieske/court-booking-platform/internal/wallet-service/client"
	wdto "github.com/radieske/court-booking-platform/internal/wallet-service/dto"
	"github.com/radieske/court-booking-platform/pkg/contracts/events"
)

type Publisher interface {
	Publish(ctx context.Context, key string, v any) error
}

// WalletClient cobra e estorna reservas pagas com a carteira.
type WalletClient interface {
	PayBooking(ctx context.Context, userID string, amount, bookingID int64, courtName string) (*wdto.TransactionResponse, error)
	RefundBooking(ctx context.Context, userID string, amount, bookingID int64, courtName string) (*wdto.TransactionResponse, error)
}

type Server struct {
	log    *zap.Logger
	store  kvstore.Store
	events Publisher
	wallet WalletClient // nil desliga pagamento com carteira
	opts   []booking.Option

	bookings sync.Map // userID -> *booking.Service
}

func NewServer(log *zap.Logger, store kvstore.Store, events Publisher, wallet WalletClient, opts ...booking.Option) *Server {
	return &Server{log: log, store: store, events: events, wallet: wallet, opts: opts}
}

// Router retorna o roteador chi com as rotas de reservas
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Route("/bookings/{userId}", func(r chi.Router) {
		r.Post("/", s.create)
		r.Get("/", s.list)
		r.Delete("/", s.clear)
		r.Get("/stats", s.stats)
		r.Post("/samples", s.samples)
		r.Get("/{bookingId}", s.get)
		r.Post("/{bookingId}/status", s.updateStatus)
		r.Post("/{bookingId}/cancel", s.cancel)
	})
	return r
}

func (s *Server) bookingsFor(userID string) *booking.Service {
	if v, ok := s.bookings.Load(userID); ok {
		return v.(*booking.Service)
	}
	svc := booking.NewService(
		kvstore.WithPrefix(s.store, kvstore.SlotPrefix(userID)),
		s.log.With(zap.String("user_id", userID)),
		s.opts...,
	)
	v, _ := s.bookings.LoadOrStore(userID, svc)
	return v.(*booking.Service)
}

// create grava a reserva; com payWithWallet a carteira é debitada antes e a reserva nasce CONFIRMED
func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBookingRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Court.ID == 0 || req.BookingDate == "" || req.TotalPrice < 0 {
		http.Error(w, "court.id, bookingDate and a non-negative totalPrice are required", http.StatusBadRequest)
		return
	}
	userID := chi.URLParam(r, "userId")
	svc := s.bookingsFor(userID)

	b := booking.Booking{
		Court:       req.Court,
		User:        req.User,
		BookingDate: req.BookingDate,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		TotalPrice:  req.TotalPrice,
		Status:      booking.Status(req.Status),
		Notes:       req.Notes,
	}
	b.User.ID = userID

	if req.PayWithWallet {
		if s.wallet == nil || req.TotalPrice == 0 {
			http.Error(w, "wallet payment unavailable", http.StatusBadRequest)
			return
		}
		b.ID = svc.GenerateBookingID()
		res, err := s.wallet.PayBooking(r.Context(), userID, req.TotalPrice, b.ID, req.Court.Name)
		if err != nil {
			s.walletFail(w, userID, err)
			return
		}
		b.Status = booking.StatusConfirmed
		b.PaymentMethod = "WALLET"
		b.TransactionID = res.Transaction.ID
	}

	saved, err := svc.SaveBooking(r.Context(), b)
	if err != nil {
		if req.PayWithWallet {
			// devolve o débito já feito
			if _, rerr := s.wallet.RefundBooking(r.Context(), userID, b.TotalPrice, b.ID, b.Court.Name); rerr != nil {
				s.log.Error("refund after failed save", zap.Int64("booking_id", b.ID), zap.Error(rerr))
			}
		}
		s.fail(w, err)
		return
	}
	metrics.BookingOperations.WithLabelValues("create").Inc()
	s.notify(r.Context(), saved, "")
	writeJSONStatus(w, http.StatusCreated, saved)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := booking.Filter{
		Status:    booking.Status(q.Get("status")),
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
	}
	if v := q.Get("courtId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid courtId", http.StatusBadRequest)
			return
		}
		f.CourtID = id
	}
	writeJSON(w, s.bookingsFor(chi.URLParam(r, "userId")).GetFilteredBookings(r.Context(), f))
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	if err := s.bookingsFor(chi.URLParam(r, "userId")).ClearAllBookings(r.Context()); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.bookingsFor(chi.URLParam(r, "userId")).GetStats(r.Context()))
}

func (s *Server) samples(w http.ResponseWriter, r *http.Request) {
	var req dto.SampleRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Courts) == 0 {
		http.Error(w, "courts required", http.StatusBadRequest)
		return
	}
	userID := chi.URLParam(r, "userId")
	req.User.ID = userID
	out, err := s.bookingsFor(userID).CreateSampleBookings(r.Context(), req.Courts, req.User)
	if err != nil {
		s.fail(w, err)
		return
	}
	metrics.BookingOperations.WithLabelValues("samples").Inc()
	writeJSONStatus(w, http.StatusCreated, out)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}
	b, found := s.bookingsFor(chi.URLParam(r, "userId")).GetBookingByID(r.Context(), id)
	if !found {
		s.fail(w, booking.ErrBookingNotFound)
		return
	}
	writeJSON(w, b)
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}
	var req dto.UpdateStatusRequest
	if !decode(w, r, &req) {
		return
	}
	b, err := s.bookingsFor(chi.URLParam(r, "userId")).UpdateBookingStatus(r.Context(), id, booking.Status(req.Status))
	if err != nil {
		s.fail(w, err)
		return
	}
	metrics.BookingOperations.WithLabelValues("update_status").Inc()
	s.notify(r.Context(), b, "")
	writeJSON(w, b)
}

// cancel cancela e, se pedido e a reserva foi paga com a carteira, estorna o valor
func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}
	var req dto.CancelRequest
	if r.ContentLength > 0 && !decode(w, r, &req) {
		return
	}
	userID := chi.URLParam(r, "userId")

	var (
		refund    booking.RefundFunc
		balance   *int64
		refundErr error
	)
	if req.RefundToWallet && s.wallet != nil {
		refund = func(b booking.Booking) (string, error) {
			res, err := s.wallet.RefundBooking(r.Context(), userID, b.TotalPrice, b.ID, b.Court.Name)
			if err != nil {
				refundErr = err
				return "", err
			}
			balance = &res.Balance
			return res.Transaction.ID, nil
		}
	}
	b, err := s.bookingsFor(userID).CancelWithRefund(r.Context(), id, req.Reason, refund)
	if err != nil {
		if refundErr != nil {
			s.walletFail(w, userID, refundErr)
			return
		}
		s.fail(w, err)
		return
	}
	metrics.BookingOperations.WithLabelValues("cancel").Inc()
	s.notify(r.Context(), b, req.Reason)

	out := dto.CancelResponse{Booking: b}
	if balance != nil {
		out.RefundTxnID = b.RefundTxnID
		out.WalletBalance = balance
	}
	writeJSON(w, out)
}

func (s *Server) notify(ctx context.Context, b *booking.Booking, reason string) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish(ctx, strconv.FormatInt(b.ID, 10), events.BookingStatusChanged{
		EventID:    events.NewID(),
		BookingID:  b.ID,
		UserID:     b.User.ID,
		CourtID:    b.Court.ID,
		Status:     string(b.Status),
		TotalPrice: b.TotalPrice,
		Reason:     reason,
		Ts:         time.Now().UTC(),
	})
}

func (s *Server) walletFail(w http.ResponseWriter, userID string, err error) {
	switch {
	case errors.Is(err, wclient.ErrInsufficientBalance), errors.Is(err, wclient.ErrWalletInactive):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, wclient.ErrWalletNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		s.log.Error("wallet call failed", zap.String("user_id", userID), zap.Error(err))
		http.Error(w, "wallet unavailable", http.StatusBadGateway)
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrBookingNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, booking.ErrInvalidStatus):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, booking.ErrDuplicateID), errors.Is(err, booking.ErrBookingCancelled):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		s.log.Error("booking request failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func bookingID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "bookingId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid booking id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return false
	}
	return true
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, v any) { writeJSONStatus(w, http.StatusOK, v) }

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
