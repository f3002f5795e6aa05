// Package metrics exposes Prometheus counters for the polling loop and a
// small ops HTTP endpoint.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics holds the instrument set. A nil *Metrics is a valid no-op
// receiver so callers need no guards when metrics are disabled.
type Metrics struct {
	registry          *prometheus.Registry
	pollCycles        prometheus.Counter
	snapshotsInserted prometheus.Counter
	signalsDetected   *prometheus.CounterVec
	alertsSent        prometheus.Counter
	creditsRemaining  prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pollCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sharpscan_poll_cycles_total",
			Help: "Completed poll cycles.",
		}),
		snapshotsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sharpscan_snapshots_inserted_total",
			Help: "Odds snapshot rows inserted.",
		}),
		signalsDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sharpscan_signals_detected_total",
			Help: "Signals surviving the pipeline, by type.",
		}, []string{"type"}),
		alertsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sharpscan_alerts_sent_total",
			Help: "Alerts dispatched to the webhook.",
		}),
		creditsRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sharpscan_api_credits_remaining",
			Help: "Upstream API credits remaining per the latest response.",
		}),
	}
	m.registry.MustRegister(m.pollCycles, m.snapshotsInserted, m.signalsDetected,
		m.alertsSent, m.creditsRemaining)
	return m
}

func (m *Metrics) PollCycle() {
	if m != nil {
		m.pollCycles.Inc()
	}
}

func (m *Metrics) SnapshotsInserted(n int) {
	if m != nil {
		m.snapshotsInserted.Add(float64(n))
	}
}

func (m *Metrics) SignalDetected(signalType string) {
	if m != nil {
		m.signalsDetected.WithLabelValues(signalType).Inc()
	}
}

func (m *Metrics) AlertsSent(n int) {
	if m != nil {
		m.alertsSent.Add(float64(n))
	}
}

func (m *Metrics) SetCreditsRemaining(n int) {
	if m != nil {
		m.creditsRemaining.Set(float64(n))
	}
}

// Serve runs the ops endpoint until ctx is cancelled. Blocks.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("metrics server shutdown")
		}
	}()

	log.Info().Str("addr", addr).Msg("metrics listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
