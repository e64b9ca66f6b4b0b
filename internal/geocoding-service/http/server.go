package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/court-booking-platform/internal/geocoding-service/geocoder"
	"github.com/radieske/court-booking-platform/internal/geocoding-service/nominatim"
)

// Geocoder é o contrato usado pelas rotas (geocoder.Geocoder em produção).
type Geocoder interface {
	Lookup(ctx context.Context, address string) (*geocoder.Result, error)
	Batch(ctx context.Context, addresses []string) (map[string]*geocoder.Result, error)
	Reverse(ctx context.Context, lat, lng float64) (*nominatim.ReversePlace, error)
}

type Server struct {
	log *zap.Logger
	geo Geocoder
}

func NewServer(log *zap.Logger, geo Geocoder) *Server {
	return &Server{log: log, geo: geo}
}

type batchRequest struct {
	Addresses []string `json:"addresses"`
}

type distanceResponse struct {
	Kilometers float64 `json:"kilometers"`
	Formatted  string  `json:"formatted"`
}

// Router retorna o roteador chi do proxy de geocoding
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/geocoding", s.lookup)
	r.Post("/geocoding/batch", s.batch)
	r.Get("/geocoding/distance", s.distance)
	r.Get("/geocoding/reverse", s.reverse)
	return r
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if address == "" {
		writeError(w, http.StatusBadRequest, "Address parameter is required")
		return
	}
	res, err := s.geo.Lookup(r.Context(), address)
	switch {
	case errors.Is(err, geocoder.ErrNoResults):
		writeError(w, http.StatusNotFound, "No results found")
		return
	case err != nil:
		s.log.Error("geocoding failed", zap.String("address", address), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Geocoding failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) batch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Addresses == nil {
		writeError(w, http.StatusBadRequest, "Addresses array is required")
		return
	}
	out, err := s.geo.Batch(r.Context(), req.Addresses)
	if err != nil {
		s.log.Warn("batch geocoding aborted", zap.Int("addresses", len(req.Addresses)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Geocoding failed")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) distance(w http.ResponseWriter, r *http.Request) {
	lat1, lng1, ok1 := parsePoint(r.URL.Query().Get("from"))
	lat2, lng2, ok2 := parsePoint(r.URL.Query().Get("to"))
	if !ok1 || !ok2 {
		writeError(w, http.StatusBadRequest, "from and to must be lat,lng")
		return
	}
	km := geocoder.DistanceKm(lat1, lng1, lat2, lng2)
	writeJSON(w, http.StatusOK, distanceResponse{Kilometers: km, Formatted: geocoder.FormatKm(km)})
}

func (s *Server) reverse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lng, err2 := strconv.ParseFloat(q.Get("lng"), 64)
	if err1 != nil || err2 != nil || !validCoord(lat, lng) {
		writeError(w, http.StatusBadRequest, "lat and lng are required")
		return
	}
	p, err := s.geo.Reverse(r.Context(), lat, lng)
	switch {
	case errors.Is(err, geocoder.ErrNoResults):
		writeError(w, http.StatusNotFound, "No results found")
		return
	case err != nil:
		s.log.Error("reverse geocoding failed", zap.Float64("lat", lat), zap.Float64("lng", lng), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Geocoding failed")
		return
	}
	writeJSON(w, http.StatusOK, geocoder.Result{Lat: lat, Lng: lng, Address: p.DisplayName})
}

// parsePoint lê "lat,lng".
func parsePoint(v string) (float64, float64, bool) {
	parts := strings.Split(v, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil || !validCoord(lat, lng) {
		return 0, 0, false
	}
	return lat, lng, true
}

func validCoord(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
