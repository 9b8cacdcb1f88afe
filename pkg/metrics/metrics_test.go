package metrics_test

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/goliatone/go-crmpanel/pkg/metrics"
	"github.com/goliatone/go-crmpanel/pkg/navigation"
)

func TestMetrics_PreviewLoadOutcomes(t *testing.T) {
	m := metrics.New()
	m.PreviewLoad("drill", nil)
	m.PreviewLoad("drill", fmt.Errorf("wrapped: %w", navigation.ErrStale))
	m.PreviewLoad("back", errors.New("boom"))

	expected := `
# HELP crmpanel_preview_loads_total Preview loads by navigation action and outcome.
# TYPE crmpanel_preview_loads_total counter
crmpanel_preview_loads_total{action="back",result="error"} 1
crmpanel_preview_loads_total{action="drill",result="ok"} 1
crmpanel_preview_loads_total{action="drill",result="stale"} 1
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "crmpanel_preview_loads_total"); err != nil {
		t.Fatalf("preview loads mismatch: %v", err)
	}
}

func TestMetrics_HandlerExposesRequests(t *testing.T) {
	m := metrics.New()
	m.ObserveRequest("/panel/forms/{form}", "GET", 200, 15*time.Millisecond)
	m.Validation("personnel", false)
	m.Submission("personnel", nil)
	m.RowChange("personnel", "delete", errors.New("last row"))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`crmpanel_http_requests_total{method="GET",route="/panel/forms/{form}",status="200"} 1`,
		`crmpanel_forms_validations_total{form="personnel",result="invalid"} 1`,
		`crmpanel_forms_submissions_total{form="personnel",result="ok"} 1`,
		`crmpanel_rows_changes_total{form="personnel",op="delete",result="error"} 1`,
		`go_goroutines`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
