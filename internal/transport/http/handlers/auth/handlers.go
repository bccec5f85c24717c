package authhandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"managerhr/internal/domain/access"
	"managerhr/internal/domain/core"
	"managerhr/internal/domain/session"
	"managerhr/internal/platform/upstream"
	"managerhr/internal/transport/http/api"
	"managerhr/internal/transport/http/middleware"
	"managerhr/internal/transport/http/shared"
)

// Upstream is the raw client; login needs the response cookies.
type Upstream interface {
	Do(ctx context.Context, req upstream.Request) (*upstream.Response, error)
}

type Sessions interface {
	Establish(ctx context.Context, grant session.Grant, cookies []session.Cookie) (session.Session, error)
	Clear(ctx context.Context, id string) error
}

type Cookies interface {
	Issue(w http.ResponseWriter, sess session.Session) error
	Expire(w http.ResponseWriter)
}

type Registrar interface {
	Register(ctx context.Context, form core.Registration, avatar *upstream.File) (map[string]any, error)
}

type Handler struct {
	API       Upstream
	Sessions  Sessions
	Cookies   Cookies
	Registrar Registrar
	Table     *access.Table
	Forms     *shared.Forms
	Respond   shared.Responder
	Limit     func(http.Handler) http.Handler
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	login := r
	if h.Limit != nil {
		login = r.With(h.Limit)
	}
	login.Post("/auth/login", h.handleLogin)
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/logout", h.handleLogout)
}

type loginRequest struct {
	Phone    string `json:"phone" validate:"required,len=10,numeric"`
	Password string `json:"password" validate:"required,min=3"`
}

type loginResponse struct {
	UserID string       `json:"userId"`
	Role   session.Role `json:"role"`
	Home   string       `json:"home"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	payload.Phone = strings.TrimSpace(payload.Phone)
	if h.Forms.Check(payload).Reject(w, shared.RequestID(r)) {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal_error", "could not encode login", shared.RequestID(r))
		return
	}
	// A login never acts for the session the browser may still carry.
	ctx := upstream.WithSession(r.Context(), "")
	resp, err := h.API.Do(ctx, upstream.Request{Method: http.MethodPost, Path: "/auth/login", Body: body})
	if err != nil {
		var statusErr *upstream.StatusError
		if errors.As(err, &statusErr) && statusErr.Status < http.StatusInternalServerError {
			message := "Số điện thoại hoặc mật khẩu không đúng"
			if statusErr.Message != "" {
				message = statusErr.Message
			}
			api.FailWithNotice(w, http.StatusUnauthorized, "invalid_credentials", message,
				api.Transient(api.NoticeError, message), shared.RequestID(r))
			return
		}
		h.Respond.MutationFailed(w, r, err, "login_failed", "Đăng nhập thất bại")
		return
	}

	var grant session.Grant
	if err := resp.Decode(&grant); err != nil || !grant.Valid() {
		slog.Warn("login response carried no usable grant", "requestId", shared.RequestID(r), "err", err)
		api.Fail(w, http.StatusBadGateway, "login_failed", "unexpected login response", shared.RequestID(r))
		return
	}

	if previous, ok := middleware.GetSession(r.Context()); ok {
		if err := h.Sessions.Clear(r.Context(), previous.ID); err != nil {
			slog.Warn("previous session clear failed", "sessionId", previous.ID, "err", err)
		}
	}
	sess, err := h.Sessions.Establish(r.Context(), grant, session.CookiesFromHTTP(resp.Cookies))
	if err != nil {
		slog.Warn("session establish failed", "userId", grant.UserID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "session_error", "could not start session", shared.RequestID(r))
		return
	}
	if err := h.Cookies.Issue(w, sess); err != nil {
		slog.Warn("session cookie issue failed", "sessionId", sess.ID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "session_error", "could not start session", shared.RequestID(r))
		return
	}

	api.Done(w, http.StatusOK, loginResponse{
		UserID: sess.UserID,
		Role:   sess.Role,
		Home:   h.Table.Home(sess.Role, sess.UserID),
	}, "Đăng nhập thành công", shared.RequestID(r))
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if _, ok := shared.ParseMultipart(w, r); !ok {
		return
	}
	form := core.Registration{
		FullName:   strings.TrimSpace(r.FormValue("fullName")),
		Dob:        strings.TrimSpace(r.FormValue("dob")),
		Gender:     strings.TrimSpace(r.FormValue("gender")),
		Address:    strings.TrimSpace(r.FormValue("address")),
		Phone:      strings.TrimSpace(r.FormValue("phone")),
		Department: strings.TrimSpace(r.FormValue("department")),
		Position:   strings.TrimSpace(r.FormValue("position")),
		StartDate:  strings.TrimSpace(r.FormValue("startDate")),
	}
	issues := shared.NewValidator()
	if raw := strings.TrimSpace(r.FormValue("base_salary")); raw != "" {
		salary, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			issues.Add("base_salary", "phải là số")
		}
		form.BaseSalary = salary
	}
	for _, issue := range h.Forms.Check(form).Issues() {
		issues.Add(issue.Field, issue.Reason)
	}
	if issues.Reject(w, shared.RequestID(r)) {
		return
	}

	avatar, err := shared.FormFile(r, "avatar")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_upload", "avatar could not be read", shared.RequestID(r))
		return
	}
	created, err := h.Registrar.Register(r.Context(), form, avatar)
	if err != nil {
		h.Respond.MutationFailed(w, r, err, "register_failed", "Đăng ký thất bại")
		return
	}
	api.Done(w, http.StatusCreated, created, "Đăng ký thành công", shared.RequestID(r))
}

// handleLogout tells the backend first, then forgets the session whatever
// the backend said.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSession(r.Context())
	if ok {
		if _, err := h.API.Do(r.Context(), upstream.Request{Method: http.MethodPost, Path: "/auth/logout", Body: []byte("{}")}); err != nil {
			slog.Warn("upstream logout failed", "sessionId", sess.ID, "err", err)
		}
		if err := h.Sessions.Clear(context.WithoutCancel(r.Context()), sess.ID); err != nil {
			slog.Warn("session clear failed", "sessionId", sess.ID, "err", err)
		}
	}
	h.Cookies.Expire(w)
	api.WriteJSON(w, http.StatusOK, api.Envelope{
		Success:   true,
		Notice:    api.Transient(api.NoticeSuccess, "Đã đăng xuất"),
		Redirect:  h.Table.LoginURL(),
		RequestID: shared.RequestID(r),
	})
}
