package salaryhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"hrpay/internal/domain/auth"
	"hrpay/internal/domain/salary"
	"hrpay/internal/transport/http/middleware"
)

type roles map[string][]string

func (r roles) HasPermission(_ context.Context, role, permission string) (bool, error) {
	for _, p := range r[role] {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}

type fakeService struct {
	Service

	created   salary.Input
	patched   salary.Patch
	owner     salary.Owner
	reveal    bool
	page      int
	err       error
	sentTo    string
	periodArg [2]int
}

func (f *fakeService) Create(_ context.Context, owner salary.Owner, in salary.Input) (salary.Record, error) {
	f.owner, f.created = owner, in
	if f.err != nil {
		return salary.Record{}, f.err
	}
	return salary.Record{ID: "rec-1", PayMonth: in.PayMonth, PayYear: in.PayYear}, nil
}

func (f *fakeService) Update(_ context.Context, owner salary.Owner, id string, p salary.Patch) (salary.Record, error) {
	f.owner, f.patched = owner, p
	if f.err != nil {
		return salary.Record{}, f.err
	}
	return salary.Record{ID: id}, nil
}

func (f *fakeService) Project(_ context.Context, owner salary.Owner, id string, reveal bool) (salary.Projection, error) {
	f.owner, f.reveal = owner, reveal
	if f.err != nil {
		return salary.Projection{}, f.err
	}
	return salary.Projection{ID: id, Revealed: reveal}, nil
}

func (f *fakeService) ListProjected(_ context.Context, owner salary.Owner, page int, reveal bool) (salary.ProjectionPage, error) {
	f.owner, f.page, f.reveal = owner, page, reveal
	return salary.ProjectionPage{Page: page, PageSize: salary.PageSize, Revealed: reveal}, f.err
}

func (f *fakeService) RenderSlip(context.Context, salary.Owner, string) ([]byte, string, error) {
	return []byte("%PDF-1.3"), "Payslip-EMP-1-March-2025.pdf", f.err
}

func (f *fakeService) SendSlip(_ context.Context, _ salary.Owner, _ string, to string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if to == "" {
		to = "asha@example.com"
	}
	f.sentTo = to
	return to, nil
}

func (f *fakeService) AccountsSummary(_ context.Context, _, _ string, month, year int) (salary.Summary, error) {
	f.periodArg = [2]int{month, year}
	return salary.Summary{Month: month, Year: year}, f.err
}

func (f *fakeService) SendDepartmentSlips(_ context.Context, _, _ string, month, year int) (salary.DispatchReport, error) {
	f.periodArg = [2]int{month, year}
	return salary.DispatchReport{Sent: 2, Skipped: 1}, f.err
}

func newTestRouter(svc Service, role string) http.Handler {
	h := NewHandler(svc, roles(auth.RolePermissions), nil)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if role != "" {
				req = req.WithContext(middleware.WithUser(req.Context(), auth.UserContext{UserID: "u1", RoleName: role}))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/companies/{companyID}/departments/{departmentID}", h.RegisterRoutes)
	return r
}

const base = "/companies/c1/departments/d1"

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestCreateAcceptsStringNumbers(t *testing.T) {
	svc := &fakeService{}
	h := newTestRouter(svc, auth.RoleAdmin)

	rec := do(t, h, http.MethodPost, base+"/employees/e1/salaries",
		`{"payMonth":"3","payYear":2025,"basicSalary":"20000","hra":4000,"epf":"1800","paidDays":29,"netPay":1,"notes":"March"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, salary.Owner{CompanyID: "c1", DepartmentID: "d1", EmployeeID: "e1"}, svc.owner)
	require.Equal(t, 3, svc.created.PayMonth)
	require.Equal(t, 20000.0, svc.created.Components.BasicSalary)
	require.Equal(t, 4000.0, svc.created.Components.HRA)
	require.Equal(t, 1800.0, svc.created.Components.EPF)
	require.Equal(t, 29.0, svc.created.Attendance.PaidDays)
	require.Equal(t, "March", svc.created.Notes)
}

func TestCreateRequiresPeriod(t *testing.T) {
	svc := &fakeService{}
	h := newTestRouter(svc, auth.RoleAdmin)

	rec := do(t, h, http.MethodPost, base+"/employees/e1/salaries", `{"payMonth":"march"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.Equal(t, "validation_error", env.Error.Code)
	require.Len(t, env.Error.Details["fields"], 2)
}

func TestCreateRejectsMalformedJSON(t *testing.T) {
	rec := do(t, newTestRouter(&fakeService{}, auth.RoleAdmin), http.MethodPost, base+"/employees/e1/salaries", `{`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_payload", decodeEnvelope(t, rec).Error.Code)
}

func TestUpdatePassesOnlyPresentFields(t *testing.T) {
	svc := &fakeService{}
	h := newTestRouter(svc, auth.RoleAdmin)

	rec := do(t, h, http.MethodPatch, base+"/employees/e1/salaries/rec-1", `{"hra":4500,"lateLogin":"250"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, svc.patched.PayMonth)
	require.Nil(t, svc.patched.Components.BasicSalary)
	require.Equal(t, 4500.0, *svc.patched.Components.HRA)
	require.Equal(t, 250.0, *svc.patched.Components.LateLogin)
}

func TestErrorKindsMapToStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "validation", err: &salary.Error{Kind: salary.KindValidation, Field: "payMonth", Msg: "must be between 1 and 12"}, status: http.StatusBadRequest, code: "validation_error"},
		{name: "not found", err: &salary.Error{Kind: salary.KindNotFound, Msg: "salary record not found"}, status: http.StatusNotFound, code: "not_found"},
		{name: "duplicate", err: &salary.Error{Kind: salary.KindDuplicate, Msg: "salary record already exists for this period"}, status: http.StatusConflict, code: "duplicate"},
		{name: "conflict", err: &salary.Error{Kind: salary.KindConflict}, status: http.StatusConflict, code: "conflict"},
		{name: "decryption", err: &salary.Error{Kind: salary.KindDecryption}, status: http.StatusUnprocessableEntity, code: "decryption"},
		{name: "cipher", err: &salary.Error{Kind: salary.KindCipherUnavailable}, status: http.StatusServiceUnavailable, code: "cipher_unavailable"},
		{name: "plain error", err: context.DeadlineExceeded, status: http.StatusInternalServerError, code: "internal"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			h := newTestRouter(&fakeService{err: tc.err}, auth.RoleAdmin)
			rec := do(t, h, http.MethodPost, base+"/employees/e1/salaries", `{"payMonth":3,"payYear":2025}`)
			require.Equal(t, tc.status, rec.Code)
			require.Equal(t, tc.code, decodeEnvelope(t, rec).Error.Code)
		})
	}
}

func TestInternalErrorsHideDetail(t *testing.T) {
	h := newTestRouter(&fakeService{err: context.DeadlineExceeded}, auth.RoleAdmin)
	rec := do(t, h, http.MethodGet, base+"/employees/e1/salaries/rec-1", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "internal server error", decodeEnvelope(t, rec).Error.Message)
}

func TestRevealNeedsPermissionAndFlag(t *testing.T) {
	tests := []struct {
		role  string
		query string
		want  bool
	}{
		{role: auth.RoleAdmin, query: "?reveal=true", want: true},
		{role: auth.RoleAdmin, query: "", want: false},
		{role: auth.RoleAccounts, query: "?reveal=1", want: true},
		{role: auth.RoleViewer, query: "?reveal=true", want: false},
	}
	for _, tc := range tests {
		svc := &fakeService{}
		rec := do(t, newTestRouter(svc, tc.role), http.MethodGet, base+"/employees/e1/salaries/rec-1"+tc.query, "")
		require.Equal(t, http.StatusOK, rec.Code)
		if svc.reveal != tc.want {
			t.Fatalf("role %s query %q: reveal=%v, want %v", tc.role, tc.query, svc.reveal, tc.want)
		}
	}
}

func TestListReadsPage(t *testing.T) {
	svc := &fakeService{}
	rec := do(t, newTestRouter(svc, auth.RoleViewer), http.MethodGet, base+"/employees/e1/salaries?page=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 3, svc.page)
	require.False(t, svc.reveal)
}

func TestPermissionsGateRoutes(t *testing.T) {
	svc := &fakeService{}
	rec := do(t, newTestRouter(svc, auth.RoleViewer), http.MethodPost, base+"/employees/e1/salaries", `{"payMonth":3,"payYear":2025}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, newTestRouter(svc, ""), http.MethodGet, base+"/employees/e1/salaries", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, newTestRouter(svc, auth.RoleAccounts), http.MethodPost, base+"/salary-slips/email", `{"month":3,"year":2025}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSlipDownload(t *testing.T) {
	rec := do(t, newTestRouter(&fakeService{}, auth.RoleAccounts), http.MethodGet, base+"/employees/e1/salaries/rec-1/slip", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "Payslip-EMP-1-March-2025.pdf")
	require.Equal(t, "%PDF-1.3", rec.Body.String())
}

func TestSlipEmail(t *testing.T) {
	svc := &fakeService{}
	h := newTestRouter(svc, auth.RoleAdmin)

	rec := do(t, h, http.MethodPost, base+"/employees/e1/salaries/rec-1/slip/email", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "asha@example.com", svc.sentTo)

	rec = do(t, h, http.MethodPost, base+"/employees/e1/salaries/rec-1/slip/email", `{"email":"not-an-address"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAccountsSummaryQuery(t *testing.T) {
	svc := &fakeService{}
	h := newTestRouter(svc, auth.RoleAccounts)

	rec := do(t, h, http.MethodGet, base+"/accounts-summary?month=3&year=2025", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, [2]int{3, 2025}, svc.periodArg)

	rec = do(t, h, http.MethodGet, base+"/accounts-summary?month=13&year=2025", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendDepartmentSlips(t *testing.T) {
	svc := &fakeService{}
	rec := do(t, newTestRouter(svc, auth.RoleAdmin), http.MethodPost, base+"/salary-slips/email", `{"month":"4","year":"2025"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, [2]int{4, 2025}, svc.periodArg)

	var report salary.DispatchReport
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &report))
	require.Equal(t, 2, report.Sent)
	require.Equal(t, 1, report.Skipped)
}
