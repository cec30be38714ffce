package orghandler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"hrpay/internal/domain/auth"
	"hrpay/internal/domain/org"
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

type fakeDirectory struct {
	page, limit int
	reveal      bool
	err         error
}

func (f *fakeDirectory) ListEmployees(_ context.Context, companyID, departmentID string, page, limit int, reveal bool) (org.EmployeePage, error) {
	f.page, f.limit, f.reveal = page, limit, reveal
	if f.err != nil {
		return org.EmployeePage{}, f.err
	}
	return org.EmployeePage{Company: org.Company{ID: companyID}, Department: org.Department{ID: departmentID}, Page: page, Revealed: reveal}, nil
}

func serve(t *testing.T, svc Service, role, target string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewHandler(svc, roles(auth.RolePermissions), nil)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := middleware.WithUser(req.Context(), auth.UserContext{UserID: "u1", RoleName: role})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/companies/{companyID}/departments/{departmentID}", h.RegisterRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestListEmployeesReveal(t *testing.T) {
	dir := &fakeDirectory{}
	rec := serve(t, dir, auth.RoleAccounts, "/companies/c1/departments/d1/employees?page=2&limit=5&reveal=true")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, dir.page)
	require.Equal(t, 5, dir.limit)
	require.True(t, dir.reveal)

	rec = serve(t, dir, auth.RoleViewer, "/companies/c1/departments/d1/employees?reveal=true")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, dir.page)
	require.False(t, dir.reveal)
}

func TestListEmployeesUnknownDepartment(t *testing.T) {
	rec := serve(t, &fakeDirectory{err: org.ErrDepartmentNotFound}, auth.RoleAdmin, "/companies/c1/departments/nope/employees")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "department not found")
}

func TestListEmployeesStoreFailure(t *testing.T) {
	rec := serve(t, &fakeDirectory{err: context.Canceled}, auth.RoleAdmin, "/companies/c1/departments/d1/employees")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
