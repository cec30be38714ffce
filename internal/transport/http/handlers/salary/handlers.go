package salaryhandler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"hrpay/internal/domain/auth"
	"hrpay/internal/domain/salary"
	"hrpay/internal/platform/logger"
	"hrpay/internal/transport/http/api"
	"hrpay/internal/transport/http/middleware"
	"hrpay/internal/transport/http/shared"
)

// Service is the salary surface the handlers drive.
type Service interface {
	Create(ctx context.Context, owner salary.Owner, in salary.Input) (salary.Record, error)
	Update(ctx context.Context, owner salary.Owner, id string, p salary.Patch) (salary.Record, error)
	Delete(ctx context.Context, owner salary.Owner, id string) error
	Project(ctx context.Context, owner salary.Owner, id string, reveal bool) (salary.Projection, error)
	ListProjected(ctx context.Context, owner salary.Owner, page int, reveal bool) (salary.ProjectionPage, error)
	SalaryDefaults(ctx context.Context, owner salary.Owner) (salary.Defaults, error)
	RenderSlip(ctx context.Context, owner salary.Owner, id string) ([]byte, string, error)
	SendSlip(ctx context.Context, owner salary.Owner, id, to string) (string, error)
	AccountsSummary(ctx context.Context, companyID, departmentID string, month, year int) (salary.Summary, error)
	RenderAccountsSummary(ctx context.Context, companyID, departmentID string, month, year int) ([]byte, string, error)
	SendAccountsSummary(ctx context.Context, companyID, departmentID string, month, year int, to string) (string, error)
	SendDepartmentSlips(ctx context.Context, companyID, departmentID string, month, year int) (salary.DispatchReport, error)
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

// RegisterRoutes mounts the salary routes on a router already scoped to
// /companies/{companyID}/departments/{departmentID}.
func (h *Handler) RegisterRoutes(r chi.Router) {
	perm := func(p string) func(http.Handler) http.Handler {
		return middleware.RequirePermission(p, h.Perms)
	}
	r.Route("/employees/{employeeID}", func(r chi.Router) {
		r.With(perm(auth.PermSalaryWrite)).Get("/salary-defaults", h.handleDefaults)
		r.Route("/salaries", func(r chi.Router) {
			r.With(perm(auth.PermSalaryRead)).Get("/", h.handleList)
			r.With(perm(auth.PermSalaryWrite)).Post("/", h.handleCreate)
			r.Route("/{salaryID}", func(r chi.Router) {
				r.With(perm(auth.PermSalaryRead)).Get("/", h.handleGet)
				r.With(perm(auth.PermSalaryWrite)).Patch("/", h.handleUpdate)
				r.With(perm(auth.PermSalaryWrite)).Delete("/", h.handleDelete)
				r.With(perm(auth.PermSalaryReveal)).Get("/slip", h.handleSlip)
				r.With(perm(auth.PermSalaryDispatch)).Post("/slip/email", h.handleSlipEmail)
			})
		})
	})
	r.With(perm(auth.PermAccountsSummary)).Get("/accounts-summary", h.handleGetSummary)
	r.With(perm(auth.PermAccountsSummary)).Post("/accounts-summary", h.handleSendSummary)
	r.With(perm(auth.PermSalaryDispatch)).Post("/salary-slips/email", h.handleSendDepartmentSlips)
}

type componentsPayload struct {
	BasicSalary      *salary.Amount `json:"basicSalary"`
	HRA              *salary.Amount `json:"hra"`
	TrAllowance      *salary.Amount `json:"trAllowance"`
	SpecialAllowance *salary.Amount `json:"specialAllowance"`
	VDA              *salary.Amount `json:"vda"`
	FoodAllowance    *salary.Amount `json:"foodAllowance"`
	UniformRefund    *salary.Amount `json:"uniformRefund"`
	EPF              *salary.Amount `json:"epf"`
	ESIC             *salary.Amount `json:"esic"`
	ProfessionalTax  *salary.Amount `json:"professionalTax"`
	UniformDeduction *salary.Amount `json:"uniformDeduction"`
	LateLogin        *salary.Amount `json:"lateLogin"`
	Others           *salary.Amount `json:"others"`
	LOP              *salary.Amount `json:"lop"`

	TotalWorkingDays *salary.Amount `json:"totalWorkingDays"`
	PaidDays         *salary.Amount `json:"paidDays"`
	LOPDays          *salary.Amount `json:"lopDays"`
	LeavesTaken      *salary.Amount `json:"leavesTaken"`
}

// recordPayload is the body of create and update. Aggregates sent by the
// client (advance, totals, net pay) are not decoded: the server computes them.
type recordPayload struct {
	componentsPayload
	PayMonth         any     `json:"payMonth"`
	PayYear          any     `json:"payYear"`
	SalarySlipNumber *string `json:"salarySlipNumber"`
	Notes            *string `json:"notes"`
}

func (p componentsPayload) patch() (salary.ComponentsPatch, salary.AttendancePatch) {
	return salary.ComponentsPatch{
			BasicSalary:      p.BasicSalary.Ptr(),
			HRA:              p.HRA.Ptr(),
			TrAllowance:      p.TrAllowance.Ptr(),
			SpecialAllowance: p.SpecialAllowance.Ptr(),
			VDA:              p.VDA.Ptr(),
			FoodAllowance:    p.FoodAllowance.Ptr(),
			UniformRefund:    p.UniformRefund.Ptr(),
			EPF:              p.EPF.Ptr(),
			ESIC:             p.ESIC.Ptr(),
			ProfessionalTax:  p.ProfessionalTax.Ptr(),
			UniformDeduction: p.UniformDeduction.Ptr(),
			LateLogin:        p.LateLogin.Ptr(),
			Others:           p.Others.Ptr(),
			LOP:              p.LOP.Ptr(),
		}, salary.AttendancePatch{
			TotalWorkingDays: p.TotalWorkingDays.Ptr(),
			PaidDays:         p.PaidDays.Ptr(),
			LOPDays:          p.LOPDays.Ptr(),
			LeavesTaken:      p.LeavesTaken.Ptr(),
		}
}

func (p recordPayload) input(month, year int) salary.Input {
	comps, att := p.patch()
	in := salary.Input{
		PayMonth:   month,
		PayYear:    year,
		Components: comps.Apply(salary.Components{}),
		Attendance: att.Apply(salary.Attendance{}),
	}
	if p.SalarySlipNumber != nil {
		in.SalarySlipNumber = *p.SalarySlipNumber
	}
	if p.Notes != nil {
		in.Notes = *p.Notes
	}
	return in
}

// period reads payMonth/payYear, accepting numbers or numeric strings. A
// missing field is reported only when required.
func period(v *shared.Validator, month, year any, required bool) (*int, *int) {
	read := func(field string, raw any) *int {
		if raw == nil {
			if required {
				v.Add(field, "is required")
			}
			return nil
		}
		n, ok := salary.ToInteger(raw)
		if !ok {
			v.Add(field, "must be an integer")
			return nil
		}
		return &n
	}
	return read("payMonth", month), read("payYear", year)
}

func owner(r *http.Request) salary.Owner {
	return salary.Owner{
		CompanyID:    chi.URLParam(r, "companyID"),
		DepartmentID: chi.URLParam(r, "departmentID"),
		EmployeeID:   chi.URLParam(r, "employeeID"),
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return false
	}
	return true
}

// reveal is true only when the caller asked for it and may see plaintext.
func (h *Handler) reveal(r *http.Request) bool {
	return shared.ParseBool(r, "reveal") && middleware.Allowed(r, auth.PermSalaryReveal, h.Perms)
}

func statusForKind(k salary.Kind) int {
	switch k {
	case salary.KindValidation:
		return http.StatusBadRequest
	case salary.KindNotFound:
		return http.StatusNotFound
	case salary.KindDuplicate, salary.KindConflict:
		return http.StatusConflict
	case salary.KindDecryption:
		return http.StatusUnprocessableEntity
	case salary.KindCipherUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	kind := salary.KindOf(err)
	status := statusForKind(kind)
	if status >= http.StatusInternalServerError {
		h.Log.WithFields(logrus.Fields{"requestId": reqID, "path": r.URL.Path}).Errorf("%+v", err)
		api.Fail(w, status, kind.String(), "internal server error", reqID)
		return
	}

	message := err.Error()
	var e *salary.Error
	if errors.As(err, &e) && e.Msg != "" {
		message = e.Msg
	}
	if kind == salary.KindValidation && e != nil && e.Field != "" {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: e.Field, Reason: message}})
		return
	}
	api.Fail(w, status, kind.String(), message, reqID)
}

func (h *Handler) handleDefaults(w http.ResponseWriter, r *http.Request) {
	defaults, err := h.Service.SalaryDefaults(r.Context(), owner(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, defaults, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	page, err := h.Service.ListProjected(r.Context(), owner(r), shared.ParsePage(r), h.reveal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, page, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload recordPayload
	if !decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	month, year := period(v, payload.PayMonth, payload.PayYear, true)
	if v.Reject(w, reqID) {
		return
	}

	rec, err := h.Service.Create(r.Context(), owner(r), payload.input(*month, *year))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Created(w, rec, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	view, err := h.Service.Project(r.Context(), owner(r), chi.URLParam(r, "salaryID"), h.reveal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, view, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload recordPayload
	if !decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	month, year := period(v, payload.PayMonth, payload.PayYear, false)
	if v.Reject(w, reqID) {
		return
	}

	comps, att := payload.patch()
	rec, err := h.Service.Update(r.Context(), owner(r), chi.URLParam(r, "salaryID"), salary.Patch{
		PayMonth:         month,
		PayYear:          year,
		SalarySlipNumber: payload.SalarySlipNumber,
		Notes:            payload.Notes,
		Components:       comps,
		Attendance:       att,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, rec, reqID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "salaryID")
	if err := h.Service.Delete(r.Context(), owner(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSlip(w http.ResponseWriter, r *http.Request) {
	doc, filename, err := h.Service.RenderSlip(r.Context(), owner(r), chi.URLParam(r, "salaryID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Attachment(w, "application/pdf", filename, doc)
}

type emailPayload struct {
	Email string `json:"email"`
}

// decodeOptional accepts an empty body as the zero payload.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.ContentLength == 0 {
		return true
	}
	return decode(w, r, dst)
}

func (h *Handler) handleSlipEmail(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload emailPayload
	if !decodeOptional(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Email("email", payload.Email)
	if v.Reject(w, reqID) {
		return
	}

	to, err := h.Service.SendSlip(r.Context(), owner(r), chi.URLParam(r, "salaryID"), payload.Email)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, map[string]string{"sentTo": to}, reqID)
}

func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}

func (h *Handler) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	month, year := queryInt(r, "month"), queryInt(r, "year")
	v := shared.NewValidator()
	v.Period("month", month, "year", year)
	if v.Reject(w, reqID) {
		return
	}
	companyID, departmentID := chi.URLParam(r, "companyID"), chi.URLParam(r, "departmentID")

	if r.URL.Query().Get("format") == "pdf" {
		doc, filename, err := h.Service.RenderAccountsSummary(r.Context(), companyID, departmentID, month, year)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		api.Attachment(w, "application/pdf", filename, doc)
		return
	}
	summary, err := h.Service.AccountsSummary(r.Context(), companyID, departmentID, month, year)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, summary, reqID)
}

type periodPayload struct {
	Month any    `json:"month"`
	Year  any    `json:"year"`
	Email string `json:"email"`
}

func (p periodPayload) validate(v *shared.Validator) (int, int) {
	month, okMonth := salary.ToInteger(p.Month)
	year, okYear := salary.ToInteger(p.Year)
	if !okMonth {
		v.Add("month", "must be an integer")
	}
	if !okYear {
		v.Add("year", "must be an integer")
	}
	if okMonth && okYear {
		v.Period("month", month, "year", year)
	}
	v.Email("email", p.Email)
	return month, year
}

func (h *Handler) handleSendSummary(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload periodPayload
	if !decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	month, year := payload.validate(v)
	if v.Reject(w, reqID) {
		return
	}

	to, err := h.Service.SendAccountsSummary(r.Context(), chi.URLParam(r, "companyID"), chi.URLParam(r, "departmentID"), month, year, payload.Email)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, map[string]string{"sentTo": to}, reqID)
}

func (h *Handler) handleSendDepartmentSlips(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload periodPayload
	if !decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	month, year := payload.validate(v)
	if v.Reject(w, reqID) {
		return
	}

	report, err := h.Service.SendDepartmentSlips(r.Context(), chi.URLParam(r, "companyID"), chi.URLParam(r, "departmentID"), month, year)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, report, reqID)
}
