package prometheus

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sifan077/SnipURL/config"
)

const (
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 10 * time.Second
	defaultPort       = 9090
)

// Metrics bundles the service counters exported for scraping.
type Metrics struct {
	HTTPRequests        *prometheus.CounterVec
	ShortensTotal       prometheus.Counter
	RedirectsTotal      prometheus.Counter
	RateLimitRejections *prometheus.CounterVec
	ClicksPersisted     prometheus.Counter
	ClicksDropped       prometheus.Counter
}

// NewMetrics registers the service counters on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "snipurl_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		ShortensTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "snipurl_shortens_total",
			Help: "Mappings created.",
		}),
		RedirectsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "snipurl_redirects_total",
			Help: "Successful short-code redirects.",
		}),
		RateLimitRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "snipurl_rate_limit_rejections_total",
			Help: "Requests rejected by the rate limiter.",
		}, []string{"endpoint"}),
		ClicksPersisted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "snipurl_clicks_persisted_total",
			Help: "Click events written to the database.",
		}),
		ClicksDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "snipurl_clicks_dropped_total",
			Help: "Click events that could not be published or stored.",
		}),
	}
}

// NewServer builds a basic HTTP server that exposes /metrics for Prometheus scraping.
func NewServer(cfg config.PrometheusConfig) *http.Server {
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}
}
