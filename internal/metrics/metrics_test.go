package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordHTTPRequest_CountsByStatusCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest(200)
	c.RecordHTTPRequest(200)
	c.RecordHTTPRequest(404)

	if got := testutil.ToFloat64(c.httpRequests.WithLabelValues("200")); got != 2 {
		t.Errorf("requests{200} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.httpRequests.WithLabelValues("404")); got != 1 {
		t.Errorf("requests{404} = %v, want 1", got)
	}
}

func TestRecordLoginOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLoginSuccess()
	c.RecordLoginFailure()
	c.RecordLoginFailure()

	if got := testutil.ToFloat64(c.loginSuccess); got != 1 {
		t.Errorf("login_success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.loginFailure); got != 2 {
		t.Errorf("login_failure = %v, want 2", got)
	}
}

func TestRecordAuthzDenied_CountsByAction(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuthzDenied("car.delete")
	c.RecordAuthzDenied("car.delete")
	c.RecordAuthzDenied("car.add")

	if got := testutil.ToFloat64(c.authzDenied.WithLabelValues("car.delete")); got != 2 {
		t.Errorf("authz_denied{car.delete} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.authzDenied.WithLabelValues("car.add")); got != 1 {
		t.Errorf("authz_denied{car.add} = %v, want 1", got)
	}
}

func TestHandler_ExposesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest(200)
	c.RecordHTTPDuration(42 * time.Millisecond)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("failed to scrape metrics: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	output := string(body)
	for _, name := range []string{
		"dealership_http_requests_total",
		"dealership_http_request_duration_seconds",
	} {
		if !strings.Contains(output, name) {
			t.Errorf("metrics output missing %q", name)
		}
	}
}
