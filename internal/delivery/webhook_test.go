package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"salesledger/internal/chrono"
	"salesledger/internal/sale"
	"salesledger/internal/telemetry"

	"github.com/stretchr/testify/require"
)

type hookServer struct {
	mu       sync.Mutex
	statuses []int
	keys     []string
	bodies   []string
	files    map[string]string
}

func (h *hookServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.keys = append(h.keys, r.Header.Get("Idempotency-Key"))
	if file, header, err := r.FormFile("file"); err == nil {
		raw, _ := io.ReadAll(file)
		h.files[header.Filename] = string(raw)
	} else {
		raw, _ := io.ReadAll(r.Body)
		h.bodies = append(h.bodies, string(raw))
	}

	status := http.StatusOK
	if len(h.statuses) > 0 {
		status = h.statuses[0]
		h.statuses = h.statuses[1:]
	}
	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "0")
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(http.StatusText(status)))
}

func newHook(t *testing.T, statuses ...int) (*hookServer, *httptest.Server) {
	t.Helper()
	h := &hookServer{statuses: statuses, files: map[string]string{}}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return h, srv
}

func newWebhook(url string, tel telemetry.API) Webhook {
	clock := &chrono.FixedImpl{At: time.Date(2026, 2, 4, 13, 45, 0, 0, time.UTC)}
	return NewWebhook(WebhookOptions{
		SaleURL:   url + "/sale",
		ReportURL: url + "/report",
		Retry: RetryPolicy{
			Attempts:  3,
			BaseDelay: time.Millisecond,
		},
	}, clock, tel)
}

func TestSendSaleRetriesWithSameKey(t *testing.T) {
	h, srv := newHook(t, http.StatusServiceUnavailable, http.StatusTooManyRequests, http.StatusOK)
	rec := telemetry.NewRecorder()

	err := newWebhook(srv.URL, rec).SendSale(context.Background(), sale.Sale{ID: "12345678901", Valor: "R$ 29,99"})
	require.NoError(t, err)

	require.Len(t, h.keys, 3)
	require.NotEmpty(t, h.keys[0])
	require.Equal(t, h.keys[0], h.keys[1])
	require.Equal(t, h.keys[0], h.keys[2])

	var got sale.Sale
	require.NoError(t, json.Unmarshal([]byte(h.bodies[2]), &got))
	require.Equal(t, "12345678901", got.ID)
	require.Equal(t, "R$ 29,99", got.Valor)
	require.Empty(t, rec.Find("broken", ""))
}

func TestSendSaleClientErrorIsNotRetried(t *testing.T) {
	h, srv := newHook(t, http.StatusUnprocessableEntity, http.StatusOK)
	rec := telemetry.NewRecorder()

	err := newWebhook(srv.URL, rec).SendSale(context.Background(), sale.Sale{ID: "1"})
	var failure *Failure
	require.True(t, errors.As(err, &failure))
	require.Equal(t, http.StatusUnprocessableEntity, failure.Status)
	require.Equal(t, "Unprocessable Entity", failure.Body)
	require.False(t, failure.Retryable())
	require.Len(t, h.keys, 1)
	require.Len(t, rec.Find("broken", report_webhook_send_sale), 1)
}

func TestSendReportUploadsFile(t *testing.T) {
	h, srv := newHook(t, http.StatusBadGateway)
	path := filepath.Join(t.TempDir(), "vendas-2026-02-04-13-45.txt")
	require.NoError(t, os.WriteFile(path, []byte("relatório"), 0o644))

	err := newWebhook(srv.URL, telemetry.NewRecorder()).SendReport(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"vendas-2026-02-04-13-45.txt": "relatório"}, h.files)
	require.Len(t, h.keys, 2)
}

func TestDisabledWebhookIsNoop(t *testing.T) {
	clock := &chrono.FixedImpl{}
	w := NewWebhook(WebhookOptions{}, clock, telemetry.NewRecorder())
	require.NoError(t, w.SendSale(context.Background(), sale.Sale{ID: "1"}))
	require.NoError(t, w.SendReport(context.Background(), "missing.txt"))
}

func TestUnreachableWebhook(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := newWebhook(url, telemetry.NewRecorder()).SendSale(context.Background(), sale.Sale{ID: "1"})
	var failure *Failure
	require.True(t, errors.As(err, &failure))
	require.Equal(t, 0, failure.Status)
	require.True(t, failure.Retryable())
}
