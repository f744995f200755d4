package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Cycles.WithLabelValues("ok").Inc()
	r.Cycles.WithLabelValues("ok").Inc()
	r.Accepted.Add(3)
	r.HistorySize.Set(42)
	r.SampleHost(context.Background())

	require.Equal(t, 2.0, testutil.ToFloat64(r.Cycles.WithLabelValues("ok")))
	require.Equal(t, 3.0, testutil.ToFloat64(r.Accepted))
	require.Greater(t, testutil.ToFloat64(r.Goroutines), 0.0)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()
	res, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "salesledger_history_size 42")
	require.Contains(t, string(body), `salesledger_cycles_total{outcome="ok"} 2`)
}
