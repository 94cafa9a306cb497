package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "artfi_whitelist"

// Metrics holds the gate's collectors on a private registry. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	registry *prometheus.Registry

	VerifyTotal       *prometheus.CounterVec
	WhitelistTotal    *prometheus.CounterVec
	WhitelistDuration prometheus.Histogram
	TokenUpdatesTotal *prometheus.CounterVec
	SlotsConsumed     prometheus.Counter
	HTTPRequestsTotal *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		VerifyTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verify_total",
			Help:      "Signature verifications by result",
		}, []string{"result"}),
		WhitelistTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "do_whitelist_total",
			Help:      "Whitelist calls by outcome",
		}, []string{"outcome"}),
		WhitelistDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "do_whitelist_duration_seconds",
			Help:      "Whitelist call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		TokenUpdatesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_updates_total",
			Help:      "Token registry updates by accepted flag",
		}, []string{"accepted"}),
		SlotsConsumed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slots_consumed_total",
			Help:      "Whitelist slots consumed by successful calls",
		}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveVerify(result string) {
	if m == nil {
		return
	}
	m.VerifyTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveWhitelist(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.WhitelistTotal.WithLabelValues(outcome).Inc()
	m.WhitelistDuration.Observe(elapsed.Seconds())
	if outcome == "ok" {
		m.SlotsConsumed.Inc()
	}
}

func (m *Metrics) ObserveTokenUpdate(accepted bool) {
	if m == nil {
		return
	}
	label := "false"
	if accepted {
		label = "true"
	}
	m.TokenUpdatesTotal.WithLabelValues(label).Inc()
}

func (m *Metrics) ObserveHTTP(route string, code string) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, code).Inc()
}
