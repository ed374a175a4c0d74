package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mohammed-shakir/geoalign/internal/core/health"
	"github.com/mohammed-shakir/geoalign/internal/core/observability"
	"github.com/mohammed-shakir/geoalign/internal/metrics"
)

func TestRouter_ServesHealthMetricsAndProgress(t *testing.T) {
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := metrics.Init(metrics.Config{})
	observability.ObserveOperation("align", "ok", 0.01)
	tr := health.NewTracker()
	tr.Report(context.Background(), "align", 1, 2)

	srv := httptest.NewServer(Router(l, p.Handler(), tr))
	defer srv.Close()

	for path, want := range map[string]string{
		"/healthz":  "ok",
		"/metrics":  "geoalign_operations_total",
		"/progress": `"job":"align"`,
	} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status=%d", path, resp.StatusCode)
		}
		if !strings.Contains(string(body), want) {
			t.Fatalf("GET %s body missing %q:\n%s", path, want, body)
		}
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Run(ctx, "127.0.0.1:0", l, http.NotFoundHandler()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
