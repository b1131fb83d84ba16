package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TradesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_trades_recorded_total",
		Help: "Total recordTrade calls by outcome",
	}, []string{"status"})

	RecordDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ledger_record_duration_seconds",
		Help:    "Duration of the full recordTrade path (ledger + journal)",
		Buckets: prometheus.DefBuckets,
	})

	LedgerSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_trades_total",
		Help: "Number of trades currently in the ledger",
	})

	LookupRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_lookups_total",
		Help: "Total lookup calls by operation and outcome",
	}, []string{"operation", "status"})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_cache_hits_total",
		Help: "Total trade cache hits",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_cache_misses_total",
		Help: "Total trade cache misses",
	})

	JournalAppends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_journal_appends_total",
		Help: "Total journal appends by status",
	}, []string{"status"})

	JournalAppendDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ledger_journal_append_duration_seconds",
		Help:    "Duration of journal appends",
		Buckets: prometheus.DefBuckets,
	})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_events_published_total",
		Help: "TradeRecorded events published by sink and status",
	}, []string{"sink", "status"})
)

func RecordTrade(status string) {
	TradesRecorded.WithLabelValues(status).Inc()
}

func RecordLookup(operation, status string) {
	LookupRequests.WithLabelValues(operation, status).Inc()
}

func RecordCacheHit() {
	CacheHits.Inc()
}

func RecordCacheMiss() {
	CacheMisses.Inc()
}

func RecordJournalAppend(status string, duration float64) {
	JournalAppends.WithLabelValues(status).Inc()
	JournalAppendDuration.Observe(duration)
}

func RecordEventPublished(sink, status string) {
	EventsPublished.WithLabelValues(sink, status).Inc()
}

type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{
		start: time.Now(),
	}
}

func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(time.Since(t.start).Seconds())
}

func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
