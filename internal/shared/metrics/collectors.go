package metrics

import "github.com/prometheus/client_golang/prometheus"

// Métricas de domínio compartilhadas pelos serviços.
// Registradas explicitamente via MustRegister no main de cada binário.
var (
	WalletTransactions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_transactions_total",
		Help: "lançamentos aceitos na carteira por tipo",
	}, []string{"type"})

	WalletRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_transactions_rejected_total",
		Help: "lançamentos recusados por motivo",
	}, []string{"reason"})

	PaymentTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_transitions_total",
		Help: "transições de status de pagamento",
	}, []string{"status"})

	BookingOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_operations_total",
		Help: "operações sobre reservas",
	}, []string{"op"})

	GeocodeLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geocode_lookups_total",
		Help: "consultas de geocoding por resultado",
	}, []string{"result"})

	ExpirySweeps = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_expiry_swept_total",
		Help: "pagamentos marcados EXPIRED pelo worker",
	})
)

// MustRegister registra as métricas de domínio no registry informado.
func MustRegister(reg prometheus.Registerer, cs ...prometheus.Collector) {
	reg.MustRegister(cs...)
}
