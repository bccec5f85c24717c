package shellhandler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"managerhr/internal/domain/access"
	"managerhr/internal/domain/session"
	"managerhr/internal/transport/http/api"
	"managerhr/internal/transport/http/middleware"
	"managerhr/internal/transport/http/shared"
)

// Handler serves what the dashboard frame needs before any page loads.
type Handler struct {
	Table *access.Table
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/session", h.handleSession)
	r.Get("/menu", h.handleMenu)
	r.Get("/routes/check", h.handleCheck)
}

type sessionView struct {
	Authenticated        bool         `json:"authenticated"`
	UserID               string       `json:"userId,omitempty"`
	Role                 session.Role `json:"role,omitempty"`
	Home                 string       `json:"home"`
	ExpiresAt            *time.Time   `json:"expiresAt,omitempty"`
	AccessTokenExpiresAt *time.Time   `json:"accessTokenExpiresAt,omitempty"`
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSession(r.Context())
	if !ok || !sess.Authenticated() {
		api.Success(w, sessionView{Home: h.Table.LoginURL()}, shared.RequestID(r))
		return
	}
	view := sessionView{
		Authenticated: true,
		UserID:        sess.UserID,
		Role:          sess.Role,
		Home:          h.Table.Home(sess.Role, sess.UserID),
		ExpiresAt:     &sess.ExpiresAt,
	}
	if exp, err := session.AccessTokenExpiry(sess.AccessToken); err == nil && !exp.IsZero() {
		view.AccessTokenExpiresAt = &exp
	}
	api.Success(w, view, shared.RequestID(r))
}

func (h *Handler) handleMenu(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSession(r.Context())
	if !ok || !sess.Authenticated() {
		api.Success(w, []access.MenuItem{}, shared.RequestID(r))
		return
	}
	api.Success(w, h.Table.Menu(sess.Role, sess.UserID), shared.RequestID(r))
}

// handleCheck answers the SPA router: may this session open path?
func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if path == "" {
		v := shared.NewValidator()
		v.Add("path", "không được để trống")
		v.Reject(w, shared.RequestID(r))
		return
	}
	sess, _ := middleware.GetSession(r.Context())
	decision, found := h.Table.DecidePath(sess, h.Table.Relative(path))
	if !found {
		api.Fail(w, http.StatusNotFound, "not_found", "no such page", shared.RequestID(r))
		return
	}
	api.Success(w, decision, shared.RequestID(r))
}
