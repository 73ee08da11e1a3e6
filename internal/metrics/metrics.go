// Package metrics holds the prometheus collectors for RPC traffic and
// submitted transactions.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rentsol"

const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeSimulated = "simulated"
	OutcomePending   = "pending"
)

type Metrics struct {
	Registry     *prometheus.Registry
	RPCRequests  *prometheus.CounterVec
	RPCLatency   *prometheus.HistogramVec
	Transactions *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RPCRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "JSON-RPC requests by method and outcome.",
		}, []string{"method", "outcome"}),
		RPCLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_request_seconds",
			Help:      "JSON-RPC request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		Transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Program transactions by instruction and outcome.",
		}, []string{"instruction", "outcome"}),
	}
	m.Registry.MustRegister(m.RPCRequests, m.RPCLatency, m.Transactions)
	return m
}

// ObserveRPC records one finished RPC call. Nil receivers are no-ops.
func (m *Metrics) ObserveRPC(method string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.RPCRequests.WithLabelValues(method, outcome).Inc()
	m.RPCLatency.WithLabelValues(method).Observe(time.Since(started).Seconds())
}

func (m *Metrics) ObserveTransaction(instruction, outcome string) {
	if m == nil {
		return
	}
	m.Transactions.WithLabelValues(instruction, outcome).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done. An empty addr disables it.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return m.serve(ctx, ln)
}

func (m *Metrics) serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	slog.Info("metrics listening", "addr", ln.Addr().String())
	err := srv.Serve(ln)
	stop()
	<-done
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
