package authhandler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"hrpay/internal/domain/auth"
	"hrpay/internal/platform/logger"
	"hrpay/internal/requestctx"
	"hrpay/internal/transport/http/api"
	"hrpay/internal/transport/http/middleware"
	"hrpay/internal/transport/http/shared"
)

type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, auth.Admin, error)
}

type Recorder interface {
	Record(ctx context.Context, action, entityType, entityID string) error
}

type Handler struct {
	Auth  Authenticator
	Audit Recorder
	Log   logger.Logger
}

func NewHandler(a Authenticator, audit Recorder, log logger.Logger) *Handler {
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{Auth: a, Audit: audit, Log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.HandleLogin)
		r.Get("/me", h.HandleMe)
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("email", payload.Email, "is required")
	v.Required("password", payload.Password, "is required")
	if v.Reject(w, reqID) {
		return
	}

	token, admin, err := h.Auth.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", reqID)
			return
		}
		h.Log.WithField("requestId", reqID).Errorf("login: %v", err)
		api.Fail(w, http.StatusInternalServerError, "login_failed", "login failed", reqID)
		return
	}

	if h.Audit != nil {
		ctx := requestctx.WithActor(r.Context(), admin.ID)
		if err := h.Audit.Record(ctx, "auth.login", "admin", admin.ID); err != nil {
			h.Log.Warnf("audit login for %s: %v", admin.ID, err)
		}
	}

	api.Success(w, map[string]any{
		"token": token,
		"user":  map[string]string{"id": admin.ID, "email": admin.Email, "role": admin.RoleName},
	}, reqID)
}

// HandleMe echoes the caller resolved from the bearer token.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"id": user.UserID, "email": user.Email, "role": user.RoleName}, middleware.GetRequestID(r.Context()))
}
