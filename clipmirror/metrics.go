package clipmirror

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Metrics counts served requests by operation and outcome. A nil *Metrics
// records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "clipmirror",
				Subsystem: "server",
				Name:      "requests_total",
				Help:      "Total requests handled, by operation and result.",
			},
			[]string{"operation", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "clipmirror",
				Subsystem: "server",
				Name:      "request_duration_seconds",
				Help:      "Time from accept to close for each connection.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "result"},
		),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

// observe records one connection. req is nil when the frame never decoded.
func (m *Metrics) observe(req *Request, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	opLabel := "unknown"
	if req != nil {
		opLabel = req.Operation.String()
	}
	result := "ok"
	if err != nil {
		result = "error"
		var reqErr *RequestError
		if errors.As(err, &reqErr) {
			result = reqErr.Kind.String()
		}
	}
	m.requests.WithLabelValues(opLabel, result).Inc()
	m.duration.WithLabelValues(opLabel, result).Observe(elapsed.Seconds())
}

// ServeMetrics exposes the registry on addr at /metrics until ctx is cancelled.
// It runs beside the request loop and never touches the clipboard.
func ServeMetrics(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger zerolog.Logger) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen for metrics on %s: %w", addr, err)
	}
	return serveMetrics(ctx, ln, gatherer, logger)
}

func serveMetrics(ctx context.Context, ln net.Listener, gatherer prometheus.Gatherer, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
	defer stop()

	logger.Info().Str("address", ln.Addr().String()).Msg("metrics listening")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
