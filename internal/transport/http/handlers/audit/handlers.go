package audithandler

import (
	"context"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"hrpay/internal/domain/audit"
	"hrpay/internal/domain/auth"
	"hrpay/internal/platform/logger"
	"hrpay/internal/transport/http/api"
	"hrpay/internal/transport/http/middleware"
	"hrpay/internal/transport/http/shared"
)

type Service interface {
	Count(ctx context.Context, filter audit.Filter) (int, error)
	List(ctx context.Context, filter audit.Filter, limit, offset int) ([]audit.Event, error)
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

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermAuditRead, h.Perms))
		r.Get("/events", h.handleListEvents)
		r.Get("/events/export", h.handleExportEvents)
	})
}

func filterOf(r *http.Request) audit.Filter {
	q := r.URL.Query()
	return audit.Filter{Action: q.Get("action"), EntityType: q.Get("entityType"), ActorID: q.Get("actorId")}
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	page := shared.ParsePagination(r, 100, 500)
	filter := filterOf(r)

	total, err := h.Service.Count(r.Context(), filter)
	if err != nil {
		h.Log.Warnf("audit count failed: %v", err)
	}
	events, err := h.Service.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		h.Log.WithField("requestId", reqID).Errorf("%v", err)
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", reqID)
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, events, reqID)
}

func (h *Handler) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Service.List(r.Context(), filterOf(r), 0, 0)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_export_failed", "failed to export audit events", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=audit-events.csv")
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "actor_id", "action", "entity_type", "entity_id", "request_id", "ip", "created_at"}); err != nil {
		h.Log.Warnf("audit export header failed: %v", err)
	}
	for _, evt := range events {
		row := []string{
			strconv.FormatInt(evt.ID, 10), evt.ActorID, evt.Action, evt.EntityType,
			evt.EntityID, evt.RequestID, evt.IP, evt.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			h.Log.Warnf("audit export row failed: %v", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.Log.Warnf("audit export flush failed: %v", err)
	}
}
