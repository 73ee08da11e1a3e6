package metrics

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestObserveRPC(t *testing.T) {
	m := New()
	m.ObserveRPC("getLatestBlockhash", time.Now(), nil)
	m.ObserveRPC("getLatestBlockhash", time.Now(), nil)
	m.ObserveRPC("sendTransaction", time.Now(), errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RPCRequests.WithLabelValues("getLatestBlockhash", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RPCRequests.WithLabelValues("sendTransaction", OutcomeError)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.RPCLatency))
}

func TestObserveTransaction(t *testing.T) {
	m := New()
	m.ObserveTransaction("initialize", OutcomeOK)
	m.ObserveTransaction("borrow", OutcomeSimulated)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transactions.WithLabelValues("initialize", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transactions.WithLabelValues("borrow", OutcomeSimulated)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRPC("x", time.Now(), nil)
	m.ObserveTransaction("x", OutcomeOK)
}

func TestServe_EmptyAddr(t *testing.T) {
	require.NoError(t, New().Serve(context.Background(), ""))
}

func TestServe_ExposesMetricsAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := New()
	m.ObserveTransaction("initialize", OutcomeOK)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- m.serve(ctx, ln) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + ln.Addr().String() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Contains(t, string(body), `rentsol_transactions_total{instruction="initialize",outcome="ok"} 1`)

	cancel()
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServe_ListenerFailureReleasesShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	errc := make(chan error, 1)
	go func() { errc <- New().serve(context.Background(), ln) }()
	select {
	case err := <-errc:
		require.Error(t, err)
		assert.NotErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return")
	}
}
