package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New()

	m.ObserveVerify("ok")
	m.ObserveVerify("malformed_signature")
	m.ObserveWhitelist("ok", 10*time.Millisecond)
	m.ObserveWhitelist("slot_already_used", time.Millisecond)
	m.ObserveTokenUpdate(true)
	m.ObserveHTTP("/verify", "200")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.VerifyTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VerifyTotal.WithLabelValues("malformed_signature")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WhitelistTotal.WithLabelValues("slot_already_used")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SlotsConsumed), "only successful calls consume slots")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokenUpdatesTotal.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("/verify", "200")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveVerify("ok")
		m.ObserveWhitelist("ok", time.Second)
		m.ObserveTokenUpdate(false)
		m.ObserveHTTP("/", "200")
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveWhitelist("ok", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `artfi_whitelist_do_whitelist_total{outcome="ok"} 1`)
}
