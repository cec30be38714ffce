package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorCounters(t *testing.T) {
	c := New()
	c.DecryptFailed()
	c.DecryptFailed()
	c.CipherUnavailable()
	c.SalaryOp("create", nil)
	c.SalaryOp("create", errors.New("boom"))

	if got := testutil.ToFloat64(c.decryptFailures); got != 2 {
		t.Fatalf("expected 2 decrypt failures, got %v", got)
	}
	if got := testutil.ToFloat64(c.cipherUnavailable); got != 1 {
		t.Fatalf("expected 1 cipher fallback, got %v", got)
	}
	if got := testutil.ToFloat64(c.salaryOps.WithLabelValues("create", "error")); got != 1 {
		t.Fatalf("expected 1 failed create, got %v", got)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.DecryptFailed()
	c.Record(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	c.MailSent("slip", nil)
}

func TestHandlerExposesRegistry(t *testing.T) {
	c := New()
	c.Record(http.MethodGet, "/healthz", http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `http_requests_total{method="GET",route="/healthz",status="200"} 1`) {
		t.Fatalf("missing request counter in output:\n%s", rec.Body.String())
	}
}
