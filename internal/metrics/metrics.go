// Package metrics define las métricas Prometheus del broker. Se construyen por
// instancia (no globales) para que cada test use su propio registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics agrupa los collectors del broker. Un *Metrics nil es válido: los
// métodos Observe* no hacen nada.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPInflight        *prometheus.GaugeVec

	LoginsTotal      *prometheus.CounterVec
	TokensIssued     *prometheus.CounterVec
	RateLimitRejects *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New crea y registra los collectors. reg nil = registry nuevo.
func New(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "route", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),

		HTTPInflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Requests en vuelo por método",
		}, []string{"method"}),

		LoginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "broker_logins_total",
			Help: "Callbacks de proveedor por resultado",
		}, []string{"provider", "result"}), // result: success|failed

		TokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "broker_token_pairs_issued_total",
			Help: "Pares access/refresh emitidos",
		}, []string{"reason"}), // reason: exchange|refresh

		RateLimitRejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "broker_rate_limit_rejects_total",
			Help: "Requests rechazadas por rate limit",
		}, []string{"route"}),

		gatherer: reg,
	}

	for _, c := range []prometheus.Collector{
		m.HTTPRequestsTotal, m.HTTPRequestDuration, m.HTTPInflight,
		m.LoginsTotal, m.TokensIssued, m.RateLimitRejects,
	} {
		if err := registerCollector(reg, c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Register agrega un collector extra (p.ej. stats del pool de Postgres).
func (m *Metrics) Register(c prometheus.Collector) error {
	reg, ok := m.gatherer.(prometheus.Registerer)
	if !ok {
		return nil
	}
	return registerCollector(reg, c)
}

// Handler expone /metrics para este registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveLogin(provider, result string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(provider, result).Inc()
}

func (m *Metrics) ObserveTokensIssued(reason string) {
	if m == nil {
		return
	}
	m.TokensIssued.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveRateLimited(route string) {
	if m == nil {
		return
	}
	m.RateLimitRejects.WithLabelValues(route).Inc()
}

// registerCollector registra el collector, ignorando duplicados.
func registerCollector(reg prometheus.Registerer, collector prometheus.Collector) error {
	if err := reg.Register(collector); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}
