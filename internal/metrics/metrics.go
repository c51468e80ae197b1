package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Redirect outcomes.
const (
	OutcomeRedirected = "redirected"
	OutcomeNotFound   = "not_found"
	OutcomeError      = "error"
)

// Click recording stages that can fail independently.
const (
	StageIncrement = "increment"
	StageInsert    = "insert"
)

var (
	Redirects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "linkpulse_redirects_total",
		Help: "Visits to short links by outcome.",
	}, []string{"outcome"})
	ClicksRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "linkpulse_clicks_recorded_total",
		Help: "Clicks whose counter increment succeeded.",
	})
	ClickRecordFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "linkpulse_click_record_failures_total",
		Help: "Failed click recording steps.",
	}, []string{"stage"})
	LiveNotifications = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "linkpulse_live_notifications_total",
		Help: "Messages handed to live subscribers.",
	})
	LiveSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "linkpulse_live_subscribers",
		Help: "Currently connected live subscribers.",
	})
	LinksCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "linkpulse_links_created_total",
		Help: "Short links created.",
	})
)

func init() {
	prometheus.MustRegister(Redirects, ClicksRecorded, ClickRecordFailures, LiveNotifications, LiveSubscribers, LinksCreated)
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
