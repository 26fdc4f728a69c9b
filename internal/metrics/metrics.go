// Package metrics provides Prometheus metrics for the browser client.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// API request metrics
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghsbrowse_api_requests_total",
			Help: "Total number of requests sent to the file server",
		},
		[]string{"endpoint", "method", "status"},
	)

	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ghsbrowse_api_request_duration_seconds",
			Help:    "File server request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// Listing metrics
	listStaleTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ghsbrowse_list_stale_responses_total",
			Help: "Directory listings discarded because a newer navigation superseded them",
		},
	)

	listEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ghsbrowse_list_entries",
			Help: "Number of entries in the most recently applied listing",
		},
	)

	// Upload metrics
	uploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ghsbrowse_upload_bytes_total",
			Help: "Total bytes uploaded",
		},
	)

	uploadFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghsbrowse_upload_files_total",
			Help: "Total files uploaded",
		},
		[]string{"status"},
	)

	// UI metrics
	bannersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghsbrowse_banners_total",
			Help: "Transient error banners shown, by action",
		},
		[]string{"action"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Endpoint maps a request path to a low-cardinality label.
func Endpoint(path string) string {
	rest, ok := strings.CutPrefix(path, "/-/")
	if !ok {
		return "raw"
	}
	name, _, _ := strings.Cut(rest, "/")
	if name == "ipa" {
		return "ipa"
	}
	return name
}

// RecordAPIRequest records a request to the file server. A status of 0
// means the request never got a response.
func RecordAPIRequest(method, path string, status int, duration time.Duration) {
	endpoint := Endpoint(path)
	apiRequestsTotal.WithLabelValues(endpoint, method, strconv.Itoa(status)).Inc()
	apiRequestDuration.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

// RecordStaleList records a discarded out-of-order listing.
func RecordStaleList() {
	listStaleTotal.Inc()
}

// SetListEntries sets the size of the applied listing.
func SetListEntries(n int) {
	listEntries.Set(float64(n))
}

// RecordUpload records one uploaded file.
func RecordUpload(bytes int64, success bool) {
	status := "success"
	if !success {
		status = "error"
	} else {
		uploadBytesTotal.Add(float64(bytes))
	}
	uploadFilesTotal.WithLabelValues(status).Inc()
}

// RecordBanner records an error banner for an action.
func RecordBanner(action string) {
	bannersTotal.WithLabelValues(action).Inc()
}

// Transport wraps an http.RoundTripper with request metrics.
type Transport struct {
	Next http.RoundTripper
}

// NewTransport returns a metrics transport around next (the default
// transport when nil).
func NewTransport(next http.RoundTripper) *Transport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Transport{Next: next}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.Next.RoundTrip(req)
	status := 0
	if err == nil {
		status = resp.StatusCode
	}
	RecordAPIRequest(req.Method, req.URL.Path, status, time.Since(start))
	return resp, err
}
