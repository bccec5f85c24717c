package leavehandler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"managerhr/internal/domain/access"
	"managerhr/internal/domain/leave"
	"managerhr/internal/domain/listing"
	"managerhr/internal/transport/http/api"
	"managerhr/internal/transport/http/middleware"
	"managerhr/internal/transport/http/shared"
)

const (
	listHistory = "leave-history"
	listManage  = "leave-manage"
	pendingOnly = "pendingOnly"
)

type Handler struct {
	Service *leave.Service
	Table   *access.Table
	Forms   *shared.Forms
	Lists   shared.Lists
	Respond shared.Responder
}

func NewHandler(service *leave.Service, table *access.Table, forms *shared.Forms, lists shared.Lists, respond shared.Responder) *Handler {
	return &Handler{Service: service, Table: table, Forms: forms, Lists: lists, Respond: respond}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		self := r.With(middleware.RequirePage(h.Table, "leave-requests"))
		self.Get("/history", h.handleHistory)
		self.Get("/remaining", h.handleRemaining)
		self.Post("/", h.handleCreate)

		manage := r.With(middleware.RequirePage(h.Table, "leave-management"))
		manage.Get("/manage", h.handleManaged)
		manage.Put("/{requestID}/status", h.handleDecide)
	})
}

var historySpec = listing.Spec[leave.Request]{
	Selects: map[string]func(leave.Request) string{
		"reason": func(req leave.Request) string { return req.Reason },
	},
	Sorts: map[string]listing.SortKey[leave.Request]{
		"start_date": listing.ByTime(func(req leave.Request) time.Time { return req.StartDate }),
		"createdAt":  listing.ByTime(func(req leave.Request) time.Time { return req.CreatedAt }),
	},
}

var historyDefaults = listing.NewView(5, "", listing.Asc)

type historyPage struct {
	shared.List[leave.Request]
	Remaining int      `json:"remainingLeaveDays"`
	CanCreate bool     `json:"canCreate"`
	Reasons   []string `json:"reasons"`
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	view, ok := shared.LoadView(h.Lists, w, r, listHistory, historySpec, historyDefaults)
	if !ok {
		return
	}
	sess, _ := middleware.GetSession(r.Context())
	overview, err := h.Service.Overview(r.Context(), sess.UserID)
	if err != nil {
		h.Respond.ReadFailed(w, r, err, historyPage{List: shared.FailedList[leave.Request](view), Reasons: leave.Reasons})
		return
	}
	api.Success(w, historyPage{
		List:      shared.Build(h.Lists, r, listHistory, overview.Requests, historySpec, view),
		Remaining: overview.Remaining,
		CanCreate: overview.CanCreate,
		Reasons:   leave.Reasons,
	}, shared.RequestID(r))
}

func (h *Handler) handleRemaining(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSession(r.Context())
	overview, err := h.Service.Overview(r.Context(), sess.UserID)
	if err != nil {
		h.Respond.ReadFailed(w, r, err, map[string]any{"remainingLeaveDays": 0, "canCreate": false, "loadFailed": true})
		return
	}
	api.Success(w, overview, shared.RequestID(r))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var form leave.Create
	if !shared.DecodeJSON(w, r, &form) {
		return
	}
	sess, _ := middleware.GetSession(r.Context())
	form.EmployeeID = sess.UserID
	if h.Forms.Check(form).Reject(w, shared.RequestID(r)) {
		return
	}
	created, err := h.Service.Create(r.Context(), sess.UserID, form)
	if errors.Is(err, leave.ErrNoDaysLeft) {
		h.Respond.Rejected(w, r, http.StatusConflict, "no_leave_days_left", "Bạn đã hết ngày nghỉ phép trong tháng")
		return
	}
	if err != nil {
		h.Respond.MutationFailed(w, r, err, "leave_create_failed", "Tạo đơn nghỉ phép thất bại")
		return
	}
	api.Done(w, http.StatusCreated, created, "Tạo đơn nghỉ phép thành công", shared.RequestID(r))
}

var manageSpec = listing.Spec[leave.Request]{
	Search: func(req leave.Request) []string { return []string{req.Employee.FullName} },
	Selects: map[string]func(leave.Request) string{
		"status": func(req leave.Request) string { return string(req.Status) },
	},
	Sorts: map[string]listing.SortKey[leave.Request]{
		"createdAt":  listing.ByTime(func(req leave.Request) time.Time { return req.CreatedAt }),
		"start_date": listing.ByTime(func(req leave.Request) time.Time { return req.StartDate }),
		"fullName":   listing.ByString(func(req leave.Request) string { return req.Employee.FullName }),
	},
}

var manageDefaults = listing.NewView(5, "createdAt", listing.Desc)

// handleManaged lists the manager's requests; the pendingOnly toggle
// switches to the backend's pending-only source.
func (h *Handler) handleManaged(w http.ResponseWriter, r *http.Request) {
	view, ok := shared.LoadView(h.Lists, w, r, listManage, manageSpec, manageDefaults, pendingOnly)
	if !ok {
		return
	}
	sess, _ := middleware.GetSession(r.Context())
	requests, err := h.Service.Managed(r.Context(), sess.UserID, view.Toggle(pendingOnly))
	if err != nil {
		h.Respond.ReadFailed(w, r, err, shared.FailedList[leave.Request](view))
		return
	}
	api.Success(w, shared.Build(h.Lists, r, listManage, requests, manageSpec, view), shared.RequestID(r))
}

func (h *Handler) handleDecide(w http.ResponseWriter, r *http.Request) {
	var decision leave.Decision
	if !shared.DecodeJSON(w, r, &decision) {
		return
	}
	decision.ID = chi.URLParam(r, "requestID")
	if h.Forms.Check(decision).Reject(w, shared.RequestID(r)) {
		return
	}
	updated, err := h.Service.Store().Decide(r.Context(), decision)
	if err != nil {
		h.Respond.MutationFailed(w, r, err, "leave_decision_failed", "Cập nhật trạng thái đơn thất bại")
		return
	}
	message := "Đã duyệt đơn nghỉ phép"
	if decision.Status == leave.StatusDenied {
		message = "Đã từ chối đơn nghỉ phép"
	}
	api.Done(w, http.StatusOK, updated, message, shared.RequestID(r))
}
