package mock

import (
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	Requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geocoder_sim_requests_total",
		Help: "requisições atendidas pelo simulador por rota e resultado",
	}, []string{"route", "result"})
)

type searchItem struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

type reverseItem struct {
	DisplayName string `json:"display_name"`
}

// Server simula um serviço compatível com Nominatim (/search e /reverse).
type Server struct {
	log       *zap.Logger
	latency   time.Duration
	failRatio float64 // fração de respostas 503
}

type Option func(*Server)

func WithLatency(d time.Duration) Option { return func(s *Server) { s.latency = d } }

func WithFailRatio(r float64) Option { return func(s *Server) { s.failRatio = r } }

func NewServer(log *zap.Logger, opts ...Option) *Server {
	s := &Server{log: log}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/search", s.search)
	r.Get("/reverse", s.reverse)
	return r
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	if !s.simulate(w, "search") {
		return
	}
	q := r.URL.Query().Get("q")
	out := []searchItem{}
	if p, ok := match(q); ok {
		out = append(out, searchItem{Lat: coord(p.Lat), Lon: coord(p.Lon), DisplayName: p.Display})
		Requests.WithLabelValues("search", "hit").Inc()
	} else {
		Requests.WithLabelValues("search", "miss").Inc()
	}
	s.log.Debug("search", zap.String("q", q), zap.Int("results", len(out)))
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) reverse(w http.ResponseWriter, r *http.Request) {
	if !s.simulate(w, "reverse") {
		return
	}
	lat, err1 := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err1 != nil || err2 != nil {
		// Nominatim responde 200 com campo error
		writeJSON(w, http.StatusOK, map[string]string{"error": "Unable to geocode"})
		return
	}
	p := nearest(lat, lon)
	Requests.WithLabelValues("reverse", "hit").Inc()
	writeJSON(w, http.StatusOK, reverseItem{DisplayName: p.Display})
}

// simulate aplica latência e falha aleatória; retorna false se já respondeu.
func (s *Server) simulate(w http.ResponseWriter, route string) bool {
	if s.latency > 0 {
		time.Sleep(s.latency)
	}
	if s.failRatio > 0 && rand.Float64() < s.failRatio {
		Requests.WithLabelValues(route, "fail").Inc()
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
