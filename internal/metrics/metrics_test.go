package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SessionTransition("started")
	m.SessionTransition("started")
	m.LedgerEntry("payment", decimal.RequireFromString("1500.50"))
	m.JobRun("ExpireSessions", time.Now(), errors.New("boom"))
	m.WalletMismatches(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessionTransitions.WithLabelValues("started")))
	assert.Equal(t, 1500.5, testutil.ToFloat64(m.ledgerAmount.WithLabelValues("payment")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("ExpireSessions", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.walletMismatches))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SessionTransition("started")
		m.Notification("push", nil)
		m.HTTPRequest("sessions.start", http.MethodPost, 201, time.Millisecond)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ViolationIssued("system")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `smartpark_violations_issued_total{source="system"} 1`)
}
