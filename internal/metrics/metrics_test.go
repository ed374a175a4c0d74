package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mohammed-shakir/geoalign/internal/core/observability"
)

func scrape(t *testing.T, p *Provider) string {
	t.Helper()
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	return rr.Body.String()
}

func TestInit_RegistersEngineCollectors(t *testing.T) {
	p := Init(Config{})

	for _, c := range observability.Collectors() {
		err := p.Registerer().Register(c)
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			t.Fatalf("engine collector not registered by Init: err=%v", err)
		}
	}

	body := scrape(t, p)
	for _, name := range []string{"geoalign_crosswalk_coverage", "go_goroutines"} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s in payload; got:\n%s", name, body)
		}
	}
}

func TestInit_BuildInfo(t *testing.T) {
	p := Init(Config{Build: BuildInfo{Version: "1.2.0", Revision: "abc", Branch: "main", BuildDate: "2026-10-18"}})
	if v := testutil.ToFloat64(p.buildInfo.WithLabelValues("1.2.0", "abc", "main", "2026-10-18")); v != 1 {
		t.Fatalf("app_build_info=%v want 1", v)
	}

	dev := Init(Config{})
	if !strings.Contains(scrape(t, dev), `version="dev"`) {
		t.Fatalf("empty version should be reported as dev")
	}
}

func TestProvider_RegisterExtraCollector(t *testing.T) {
	p := Init(Config{})
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "geoalign_test_gauge", Help: "smoke"})
	p.Register(g)
	g.Set(42)

	if !strings.Contains(scrape(t, p), "geoalign_test_gauge 42") {
		t.Fatalf("registered gauge missing from payload")
	}
}
