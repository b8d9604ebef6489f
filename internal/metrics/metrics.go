package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the payment and wallet paths.
type Metrics struct {
	DepositIntents    *prometheus.CounterVec
	ReconcileAttempts *prometheus.CounterVec
	GatewayDuration   *prometheus.HistogramVec
	PayoutsSettled    prometheus.Counter
}

// New registers all collectors on the given registerer and returns them.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		DepositIntents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nardwin",
			Subsystem: "payments",
			Name:      "deposit_intents_total",
			Help:      "Deposit intent creations by result.",
		}, []string{"result"}),

		ReconcileAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nardwin",
			Subsystem: "payments",
			Name:      "reconcile_attempts_total",
			Help:      "Reconciliation attempts by channel and outcome.",
		}, []string{"channel", "outcome"}),

		GatewayDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nardwin",
			Subsystem: "payments",
			Name:      "gateway_request_duration_seconds",
			Help:      "Outbound gateway and oracle request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),

		PayoutsSettled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "nardwin",
			Subsystem: "games",
			Name:      "payouts_settled_total",
			Help:      "Match settlements applied to the ledger.",
		}),
	}
}

// NewNop returns metrics backed by a throwaway registry, for tests.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
