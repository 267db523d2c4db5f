package observability

import "github.com/prometheus/client_golang/prometheus"

// Domain collectors for the credit ledger and the two workflows. Label sets
// are closed vocabularies (delivery kind, credit kind, outcome), so
// cardinality stays fixed.
var (
	// LettersGenerated counts creature letters committed, by delivery kind
	// and charge ("free" or "credit").
	LettersGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "letters_generated_total",
			Help: "Creature letters persisted, by delivery kind and charge.",
		},
		[]string{"delivery", "charge"},
	)

	// EntitlementDenied counts letter requests refused for lack of credits.
	EntitlementDenied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlement_denied_total",
			Help: "Letter requests refused by the entitlement evaluator.",
		},
		[]string{"delivery"},
	)

	// GenerationDuration observes text generator latency by outcome.
	GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "letter_generation_duration_seconds",
			Help:    "Latency of the text generator.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"outcome"},
	)

	// LedgerConflicts counts guarded ledger updates that lost a race.
	LedgerConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_conflicts_total",
			Help: "Guarded ledger updates that matched no row, by workflow.",
		},
		[]string{"workflow"},
	)

	// CreditsGranted counts credits added by completed purchases.
	CreditsGranted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credits_granted_total",
			Help: "Credits granted by completed purchases, by credit kind.",
		},
		[]string{"credit_kind"},
	)

	// PurchaseConfirmations counts confirmation attempts by outcome
	// ("completed", "duplicate", "unpaid").
	PurchaseConfirmations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchase_confirmations_total",
			Help: "Purchase confirmations, by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		LettersGenerated,
		EntitlementDenied,
		GenerationDuration,
		LedgerConflicts,
		CreditsGranted,
		PurchaseConfirmations,
	)
}
