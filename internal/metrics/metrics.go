package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "smartpark"

// Metrics holds the collectors for the parking engine. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	registry               prometheus.Gatherer
	sessionTransitions     *prometheus.CounterVec
	reservationTransitions *prometheus.CounterVec
	ledgerEntries          *prometheus.CounterVec
	ledgerAmount           *prometheus.CounterVec
	violationsIssued       *prometheus.CounterVec
	notifications          *prometheus.CounterVec
	jobRuns                *prometheus.CounterVec
	jobDuration            *prometheus.HistogramVec
	walletMismatches       prometheus.Gauge
	httpRequests           *prometheus.CounterVec
	httpDuration           *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		sessionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Parking session state transitions.",
		}, []string{"transition"}),
		reservationTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_transitions_total",
			Help:      "Reservation state transitions.",
		}, []string{"transition"}),
		ledgerEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wallet_ledger_entries_total",
			Help:      "Wallet ledger entries written, by type.",
		}, []string{"type"}),
		ledgerAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wallet_ledger_amount_total",
			Help:      "Sum of wallet ledger entry magnitudes, by type.",
		}, []string{"type"}),
		violationsIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_issued_total",
			Help:      "Violations issued, by source.",
		}, []string{"source"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries, by channel and result.",
		}, []string{"channel", "result"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Scheduled job runs, by job and result.",
		}, []string{"job", "result"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Scheduled job run duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		walletMismatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "wallet_reconciliation_mismatches",
			Help:      "Users whose balance differs from the ledger sum at the last reconciliation.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		m.sessionTransitions,
		m.reservationTransitions,
		m.ledgerEntries,
		m.ledgerAmount,
		m.violationsIssued,
		m.notifications,
		m.jobRuns,
		m.jobDuration,
		m.walletMismatches,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SessionTransition(transition string) {
	if m == nil {
		return
	}
	m.sessionTransitions.WithLabelValues(transition).Inc()
}

func (m *Metrics) ReservationTransition(transition string) {
	if m == nil {
		return
	}
	m.reservationTransitions.WithLabelValues(transition).Inc()
}

func (m *Metrics) LedgerEntry(txType string, amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.ledgerEntries.WithLabelValues(txType).Inc()
	m.ledgerAmount.WithLabelValues(txType).Add(amount.Abs().InexactFloat64())
}

func (m *Metrics) ViolationIssued(source string) {
	if m == nil {
		return
	}
	m.violationsIssued.WithLabelValues(source).Inc()
}

func (m *Metrics) Notification(channel string, err error) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel, result(err)).Inc()
}

func (m *Metrics) JobRun(job string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, result(err)).Inc()
	m.jobDuration.WithLabelValues(job).Observe(time.Since(started).Seconds())
}

func (m *Metrics) WalletMismatches(count int) {
	if m == nil {
		return
	}
	m.walletMismatches.Set(float64(count))
}

func (m *Metrics) HTTPRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
