package permalink

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingest outcomes recorded by Metrics.
const (
	ingestChanged   = "changed"
	ingestUnchanged = "unchanged"
	ingestSkipped   = "skipped"
)

// Metrics holds the permalink Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	updates       prometheus.Counter
	ingests       *prometheus.CounterVec
	addressWrites prometheus.Counter
	storageErrors prometheus.Counter
}

// NewMetrics registers the permalink collectors with reg, falling back to
// the default registerer when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		updates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "permalink",
			Name:      "updates_total",
			Help:      "Total number of param updates applied",
		}),
		ingests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "permalink",
			Name:      "ingests_total",
			Help:      "Total number of address ingests by outcome",
		}, []string{"result"}),
		addressWrites: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "permalink",
			Name:      "address_writes_total",
			Help:      "Total number of addresses written to the location",
		}),
		storageErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "permalink",
			Name:      "storage_errors_total",
			Help:      "Total number of local storage read or write failures",
		}),
	}
}

func (m *Metrics) update() {
	if m != nil {
		m.updates.Inc()
	}
}

func (m *Metrics) ingest(result string) {
	if m != nil {
		m.ingests.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) addressWrite() {
	if m != nil {
		m.addressWrites.Inc()
	}
}

func (m *Metrics) storageError() {
	if m != nil {
		m.storageErrors.Inc()
	}
}
