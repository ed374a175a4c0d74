package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsHandler_Smoke(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(Collectors()...)

	ObserveOperation("align", "ok", 0.012)
	AddCellsIndexed("source", 42)
	SetCrosswalkCoverage(0.75)
	ObserveCompactness("polsby_popper", 0.4)
	ObserveHTTP("GET", "/healthz", 200)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`geoalign_operations_total{op="align",outcome="ok"} `,
		`geoalign_operation_duration_seconds_bucket`,
		`geoalign_crosswalk_coverage 0.75`,
		`geoalign_compactness_score_bucket{measure="polsby_popper"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics payload missing %q; got:\n%s", want, body)
		}
	}
}

func TestAddCellsIndexed_IgnoresNonPositive(t *testing.T) {
	before := testutil.ToFloat64(cellsIndexedTotal.WithLabelValues("target"))
	AddCellsIndexed("target", 0)
	AddCellsIndexed("target", -3)
	AddCellsIndexed("target", 5)
	after := testutil.ToFloat64(cellsIndexedTotal.WithLabelValues("target"))
	if after-before != 5 {
		t.Fatalf("delta=%v want 5", after-before)
	}
}
