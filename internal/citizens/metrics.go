package citizens

import "github.com/prometheus/client_golang/prometheus"

var (
	// idCollisions counts lookups where more than one game row derived the
	// requested numeric ID.
	idCollisions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mdt_citizen_id_collisions_total",
		Help: "Citizen lookups that matched more than one identifier.",
	})

	// lookupFailures counts failed game store attempts by operation,
	// including attempts that a later retry recovered.
	lookupFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mdt_citizen_lookup_failures_total",
		Help: "Failed game store query attempts.",
	}, []string{"op"})

	// scanRows observes how many candidate rows a GetByID lookup examined.
	scanRows = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mdt_citizen_scan_rows",
		Help:    "Candidate rows examined by citizen ID lookups.",
		Buckets: prometheus.ExponentialBuckets(10, 4, 8),
	})
)

func init() {
	prometheus.MustRegister(idCollisions, lookupFailures, scanRows)
}
