package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lendingScope/internal/model"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestObserveEventCounts(t *testing.T) {
	m := New()
	m.ObserveEvent(model.RoleBorrowable, model.EventSync, 3*time.Millisecond)
	m.ObserveEvent(model.RoleBorrowable, model.EventSync, time.Millisecond)
	m.ObserveEvent(model.RolePair, model.EventSync, time.Millisecond)
	m.ObserveRevert("decimals")

	body := scrape(t, m)
	require.Contains(t, body, `lendingscope_events_processed_total{event="Sync",role="borrowable"} 2`)
	require.Contains(t, body, `lendingscope_events_processed_total{event="Sync",role="pair"} 1`)
	require.Contains(t, body, `lendingscope_handler_duration_seconds_count{event="Sync"} 3`)
	require.Contains(t, body, `lendingscope_reverted_reads_total{method="decimals"} 1`)
}

func TestObserveCommit(t *testing.T) {
	m := New()
	m.ObserveCommit(1200, map[model.Kind]int{model.KindToken: 4, model.KindPair: 2})

	body := scrape(t, m)
	require.Contains(t, body, "lendingscope_last_processed_block 1200")
	require.Contains(t, body, `lendingscope_entities{kind="token"} 4`)
	require.Contains(t, body, `lendingscope_entities{kind="pair"} 2`)
}

func TestRouter(t *testing.T) {
	m := New()
	m.ObserveRevert("symbol")
	router := m.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok\n", rec.Body.String())

	require.Contains(t, scrape(t, m), `lendingscope_reverted_reads_total{method="symbol"} 1`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServeStopsWithContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	m := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Serve(ctx, addr, nil) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return strings.TrimSpace(string(body)) == "ok"
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
