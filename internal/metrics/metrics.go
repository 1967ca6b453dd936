// Package metrics holds the prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors. All of them are registered with Registry.
type Metrics struct {
	Registry *prometheus.Registry

	// HTTPRequests counts handled requests by route, method and status.
	HTTPRequests *prometheus.CounterVec

	// HTTPDuration records request duration in seconds by route and method.
	HTTPDuration *prometheus.HistogramVec

	// MailSends counts single transport requests by result, "sent" or "failed".
	MailSends *prometheus.CounterVec
}

// New creates the collectors on a fresh registry. Go runtime and process collectors are
// registered too.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "contacts_http_requests_total",
			Help: "Total HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "contacts_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		MailSends: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "contacts_mail_sends_total",
			Help: "Total mail transport requests by result",
		}, []string{"result"}),
	}
}
