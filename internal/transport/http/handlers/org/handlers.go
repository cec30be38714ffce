package orghandler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"hrpay/internal/domain/auth"
	"hrpay/internal/domain/org"
	"hrpay/internal/platform/logger"
	"hrpay/internal/transport/http/api"
	"hrpay/internal/transport/http/middleware"
	"hrpay/internal/transport/http/shared"
)

type Service interface {
	ListEmployees(ctx context.Context, companyID, departmentID string, page, limit int, reveal bool) (org.EmployeePage, error)
}

type Handler struct {
	Service Service
	Perms   middleware.PermissionStore
	Log     logger.Logger
}

func NewHandler(service Service, perms middleware.PermissionStore, log logger.Logger) *Handler {
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{Service: service, Perms: perms, Log: log}
}

// RegisterRoutes expects a router scoped to a company department.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermOrgRead, h.Perms)).Get("/employees", h.handleListEmployees)
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	reveal := shared.ParseBool(r, "reveal") && middleware.Allowed(r, auth.PermSalaryReveal, h.Perms)

	page, err := h.Service.ListEmployees(r.Context(), chi.URLParam(r, "companyID"), chi.URLParam(r, "departmentID"), shared.ParsePage(r), limit, reveal)
	switch {
	case err == nil:
		api.Success(w, page, reqID)
	case errors.Is(err, org.ErrCompanyNotFound), errors.Is(err, org.ErrDepartmentNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), reqID)
	default:
		h.Log.WithField("requestId", reqID).Errorf("list employees: %v", err)
		api.Fail(w, http.StatusInternalServerError, "internal", "internal server error", reqID)
	}
}
