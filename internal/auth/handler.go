package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pharmapos/pharmapos/internal/platform/httpx"
	"github.com/pharmapos/pharmapos/internal/shared"
)

// Handler exposes login and logout.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	sessions *shared.SessionManager
	validate *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager) *Handler {
	return &Handler{logger: logger, service: service, sessions: sessions, validate: validator.New()}
}

// Routes mounts the auth endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
	r.Get("/me", h.me)
	return r
}

type loginPayload struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var payload loginPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.service.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			httpx.Problem(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrInvalidCredentials):
			httpx.Problem(w, r, http.StatusUnauthorized, "invalid credentials")
		default:
			h.logger.Error("login failed", slog.String("error", err.Error()))
			httpx.Problem(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		var err error
		sess, err = h.sessions.Load(r.Context(), r)
		if err != nil {
			h.logger.Error("session load failed", slog.String("error", err.Error()))
			httpx.Problem(w, r, http.StatusInternalServerError, "internal error")
			return
		}
	}
	sess.SetUser(user.ID, user.FullName)
	if err := h.sessions.Commit(r.Context(), w, sess); err != nil {
		h.logger.Error("session commit failed", slog.String("error", err.Error()))
		httpx.Problem(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		h.sessions.Destroy(sess)
		if err := h.sessions.Commit(r.Context(), w, sess); err != nil {
			h.logger.Error("session destroy failed", slog.String("error", err.Error()))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.UserID() == 0 {
		httpx.Problem(w, r, http.StatusUnauthorized, "not signed in")
		return
	}
	user, err := h.service.Get(r.Context(), sess.UserID())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, r, http.StatusUnauthorized, "not signed in")
			return
		}
		h.logger.Error("load current user failed", slog.String("error", err.Error()))
		httpx.Problem(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}
