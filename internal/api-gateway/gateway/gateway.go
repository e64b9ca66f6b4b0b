package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Targets são as URLs base dos serviços atrás do gateway.
type Targets struct {
	Wallet    string
	Payments  string
	Bookings  string
	Geocoding string
}

// Router monta o proxy reverso: /api/<serviço>/... -> <serviço>/<serviço>/...
// O prefixo /api é removido; o restante do caminho segue intacto.
func Router(t Targets, log *zap.Logger) (http.Handler, error) {
	routes := []struct {
		prefix string
		target string
	}{
		{"/wallet", t.Wallet},
		{"/payments", t.Payments},
		{"/bookings", t.Bookings},
		{"/geocoding", t.Geocoding},
		{"/ws/payments", t.Payments},
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	for _, rt := range routes {
		proxy, err := reverseProxy(rt.target, log)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", rt.prefix, err)
		}
		h := http.StripPrefix("/api", proxy)
		r.Handle("/api"+rt.prefix, h)
		r.Handle("/api"+rt.prefix+"/*", h)
	}
	return r, nil
}

func reverseProxy(target string, log *zap.Logger) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid target %q", target)
	}
	p := httputil.NewSingleHostReverseProxy(u)
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn("upstream unavailable", zap.String("target", target), zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}
	return p, nil
}
