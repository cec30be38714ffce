package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"hrpay/internal/domain/auth"
	"hrpay/internal/platform/logger"
	"hrpay/internal/platform/metrics"
	"hrpay/internal/requestctx"
)

func TestRequestIDMiddleware(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) == "" {
			t.Fatal("expected request id in context")
		}
		if requestctx.GetClientIP(r.Context()) != "192.0.2.1" {
			t.Fatalf("expected client ip in context, got %q", requestctx.GetClientIP(r.Context()))
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") != "abc-123" {
		t.Fatalf("expected caller request id to be kept, got %q", rec.Header().Get("X-Request-ID"))
	}
}

type permissionTable map[string]bool

func (p permissionTable) HasPermission(_ context.Context, role, permission string) (bool, error) {
	if role == "broken" {
		return false, errors.New("db down")
	}
	return p[role+":"+permission], nil
}

func TestRequirePermission(t *testing.T) {
	perms := permissionTable{"accounts:salary.read": true}
	handler := RequirePermission(auth.PermSalaryRead, perms)(noContent())

	tests := []struct {
		name string
		user *auth.UserContext
		want int
	}{
		{name: "anonymous", want: http.StatusUnauthorized},
		{name: "allowed", user: &auth.UserContext{UserID: "u1", RoleName: "accounts"}, want: http.StatusNoContent},
		{name: "forbidden", user: &auth.UserContext{UserID: "u2", RoleName: "viewer"}, want: http.StatusForbidden},
		{name: "store error", user: &auth.UserContext{UserID: "u3", RoleName: "broken"}, want: http.StatusInternalServerError},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.user != nil {
			req = req.WithContext(WithUser(req.Context(), *tc.user))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(req.Context(), auth.UserContext{RoleName: "accounts"}))
	if !Allowed(req, auth.PermSalaryRead, perms) || Allowed(req, auth.PermSalaryReveal, perms) {
		t.Fatal("unexpected Allowed result")
	}
}

func TestLoggerWritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New("info", "json")
	log.SetWriter(&buf)

	handler := RequestID(Logger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("missing"))
	})))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/x", nil))

	out := buf.String()
	for _, want := range []string{`"status":404`, `"path":"/api/v1/x"`, `"bytes":"7 B"`, `"requestId"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in log line %q", want, out)
		}
	}
}

func TestRecovererReturns500(t *testing.T) {
	handler := Recoverer(logger.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestBodyLimitRejectsDeclaredOversize(t *testing.T) {
	handler := BodyLimit(8)(noContent())
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"much":"too long"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestSecureHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecureHeaders(true)(noContent()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("Cache-Control") != "no-store" || rec.Header().Get("Strict-Transport-Security") == "" {
		t.Fatalf("unexpected headers %v", rec.Header())
	}
}

func TestInstrumentLabelsByRoutePattern(t *testing.T) {
	c := metrics.New()
	r := chi.NewRouter()
	r.Use(Instrument(c))
	r.Get("/salaries/{salaryID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/salaries/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/salaries/def", nil))

	expected := `
# HELP http_requests_total Total number of HTTP requests.
# TYPE http_requests_total counter
http_requests_total{method="GET",route="/salaries/{salaryID}",status="200"} 2
`
	if err := testutil.GatherAndCompare(c.Registry(), strings.NewReader(expected), "http_requests_total"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}
