package audithandler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"managerhr/internal/domain/access"
	"managerhr/internal/domain/audit"
	"managerhr/internal/domain/listing"
	"managerhr/internal/platform/upstream"
	"managerhr/internal/transport/http/api"
	"managerhr/internal/transport/http/middleware"
	"managerhr/internal/transport/http/shared"
)

const listLogs = "activity-logs"

type Logs interface {
	List(ctx context.Context) ([]audit.Log, error)
	Download(ctx context.Context, r audit.DownloadRange) (*upstream.Binary, error)
}

type Handler struct {
	Logs    Logs
	Table   *access.Table
	Lists   shared.Lists
	Respond shared.Responder
	Loc     *time.Location
	Now     func() time.Time

	spec listing.Spec[audit.Log]
}

func NewHandler(logs Logs, table *access.Table, lists shared.Lists, respond shared.Responder, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{Logs: logs, Table: table, Lists: lists, Respond: respond, Loc: loc, Now: time.Now, spec: logSpec(loc)}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/activity-logs", func(r chi.Router) {
		r.Use(middleware.RequirePage(h.Table, "activity-logs"))
		r.Get("/", h.handleList)
		r.Post("/download", h.handleDownload)
	})
}

func logSpec(loc *time.Location) listing.Spec[audit.Log] {
	return listing.Spec[audit.Log]{
		Search: func(l audit.Log) []string {
			return []string{l.UserPhone, l.Action, l.Timestamp, l.AffectedUserPhone}
		},
		Selects: map[string]func(audit.Log) string{
			"roleName": func(l audit.Log) string { return l.RoleName },
		},
		Sorts: map[string]listing.SortKey[audit.Log]{
			"timestamp":          listing.ByTime(func(l audit.Log) time.Time { return l.Time(loc) }),
			"userPhone":          listing.ByString(func(l audit.Log) string { return l.UserPhone }),
			"affected_userPhone": listing.ByString(func(l audit.Log) string { return l.AffectedUserPhone }),
			"action":             listing.ByString(func(l audit.Log) string { return l.Action }),
			"roleName":           listing.ByString(func(l audit.Log) string { return l.RoleName }),
		},
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	view, ok := shared.LoadView(h.Lists, w, r, listLogs, h.spec, listing.NewView(10, "timestamp", listing.Desc))
	if !ok {
		return
	}
	logs, err := h.Logs.List(r.Context())
	if err != nil {
		h.Respond.ReadFailed(w, r, err, shared.FailedList[audit.Log](view))
		return
	}
	api.Success(w, shared.Build(h.Lists, r, listLogs, logs, h.spec, view), shared.RequestID(r))
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req audit.DownloadRange
	if !shared.DecodeJSON(w, r, &req) {
		return
	}
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	span, err := audit.ValidateDownload(req.StartDate, req.EndDate, now, h.Loc)
	if err != nil {
		issues := shared.NewValidator()
		var fieldErr *audit.FieldError
		if errors.As(err, &fieldErr) {
			issues.Add(fieldErr.Field, fieldErr.Err.Error())
		} else {
			issues.Add("startDate", err.Error())
		}
		issues.Reject(w, shared.RequestID(r))
		return
	}
	bin, err := h.Logs.Download(r.Context(), span)
	if err != nil {
		h.Respond.MutationFailed(w, r, err, "activity_log_download_failed", "Tải nhật ký hoạt động thất bại")
		return
	}
	shared.Attachment(w, bin.ContentType, bin.Filename, bin.Data)
}
