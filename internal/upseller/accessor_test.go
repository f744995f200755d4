package upseller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"salesledger/internal/telemetry"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestSnapshotAccessor(t *testing.T) {
	ctx := context.Background()
	a, err := NewSnapshotAccessor("testdata/pages", telemetry.NewRecorder())
	require.NoError(t, err)

	blocks, err := a.RowBlocks(ctx)
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	ok, err := a.AdvancePage(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	blocks, err = a.RowBlocks(ctx)
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	ok, err = a.AdvancePage(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = a.FirstPage(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	blocks, err = a.RowBlocks(ctx)
	require.NoError(t, err)
	require.Equal(t, "#UP7AB12", blocks[0].StructuralID)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = a.RowBlocks(cancelled)
	require.ErrorIs(t, err, context.Canceled)

	_, err = NewSnapshotAccessor(t.TempDir(), telemetry.NewRecorder())
	require.Error(t, err)
}

func TestHTTPAccessor(t *testing.T) {
	pages := map[string][]byte{}
	for _, n := range []string{"1", "2"} {
		raw, err := os.ReadFile(filepath.Join("testdata", "pages", "page-"+n+".html"))
		require.NoError(t, err)
		pages[n] = raw
	}

	var requested []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("cookie") != "session=abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		page := r.URL.Query().Get("p")
		requested = append(requested, page)
		body, ok := pages[page]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("content-type", "text/html")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	ctx := context.Background()
	rec := telemetry.NewRecorder()
	a := NewHTTPAccessor(ClientOptions{
		OrdersURL: srv.URL + "/orders",
		Cookie:    "session=abc",
		PageParam: "p",
	}, rec)

	blocks, err := a.RowBlocks(ctx)
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	ok, err := a.AdvancePage(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	blocks, err = a.RowBlocks(ctx)
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	ok, err = a.AdvancePage(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = a.FirstPage(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, []string{"1", "2", "1"}, requested)
	require.Empty(t, rec.Find("broken", ""))

	unauthorized := NewHTTPAccessor(ClientOptions{OrdersURL: srv.URL}, rec)
	_, err = unauthorized.RowBlocks(ctx)
	require.Error(t, err)
	require.Len(t, rec.Find("broken", report_client_fetch_page), 1)
}

func TestLimiterRefusalPastDeadline(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	require.True(t, limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	err := waitLimiter(ctx, limiter)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NoError(t, ctx.Err())
	require.Less(t, time.Since(start), time.Second)

	require.NoError(t, waitLimiter(context.Background(), rate.NewLimiter(rate.Inf, 1)))
}
