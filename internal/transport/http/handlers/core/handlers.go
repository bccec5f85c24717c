package corehandler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"managerhr/internal/domain/access"
	"managerhr/internal/domain/core"
	"managerhr/internal/domain/listing"
	"managerhr/internal/platform/export"
	"managerhr/internal/platform/upstream"
	"managerhr/internal/transport/http/api"
	"managerhr/internal/transport/http/middleware"
	"managerhr/internal/transport/http/shared"
)

const (
	pageEmployees   = "employees"
	pageDepartments = "departments"
	pageInfo        = "employee-info"
)

type Handler struct {
	Service *core.Service
	Table   *access.Table
	Forms   *shared.Forms
	Lists   shared.Lists
	Respond shared.Responder
	Loc     *time.Location
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	admin := r.With(middleware.RequirePage(h.Table, pageEmployees))
	admin.Get("/employees", h.handleListEmployees)
	admin.Get("/employees/backup", h.handleBackup)
	admin.Post("/employees/restore", h.handleRestore)
	admin.Put("/employees/{employeeID}", h.handleAdminUpdate)
	admin.Delete("/employees/{employeeID}", h.handleDelete)

	r.With(middleware.RequireSession(h.Table)).Get("/employees/{employeeID}", h.handleGetEmployee)
	r.With(middleware.RequireSession(h.Table)).Post("/employees/{employeeID}/profile", h.handleUpdateProfile)

	departments := r.With(middleware.RequirePage(h.Table, pageDepartments))
	departments.Get("/departments", h.handleListDepartments)
	departments.Post("/departments", h.handleCreateDepartment)
	departments.Put("/departments/{departmentID}", h.handleUpdateDepartment)

	// The public registration form needs the lookup lists too.
	r.Get("/positions", h.handleListPositions)
	r.Get("/departments/options", h.handleDepartmentOptions)
}

var employeeSpec = listing.Spec[core.Employee]{
	Search: func(e core.Employee) []string { return []string{e.FullName, e.Phone} },
	Selects: map[string]func(core.Employee) string{
		"department": func(e core.Employee) string { return e.Department.ID },
		"position":   func(e core.Employee) string { return e.Position.ID },
		"gender":     func(e core.Employee) string { return e.Gender },
	},
	Minimums: map[string]func(core.Employee) float64{
		"minSalary": func(e core.Employee) float64 { return e.BaseSalary },
	},
	Since: map[string]func(core.Employee) time.Time{
		"startedAfter": func(e core.Employee) time.Time { return e.StartDate },
	},
	Sorts: map[string]listing.SortKey[core.Employee]{
		"fullName":    listing.ByString(func(e core.Employee) string { return e.FullName }),
		"base_salary": listing.ByNumber(func(e core.Employee) float64 { return e.BaseSalary }),
		"startDate":   listing.ByTime(func(e core.Employee) time.Time { return e.StartDate }),
		"dob":         listing.ByTime(func(e core.Employee) time.Time { return e.Dob }),
	},
}

var employeeDefaults = listing.NewView(10, "fullName", listing.Asc)

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	view, ok := shared.LoadView(h.Lists, w, r, pageEmployees, employeeSpec, employeeDefaults)
	if !ok {
		return
	}
	employees, err := h.Service.Directory(r.Context())
	if err != nil {
		h.Respond.ReadFailed(w, r, err, shared.FailedList[core.Employee](view))
		return
	}
	api.Success(w, shared.Build(h.Lists, r, pageEmployees, employees, employeeSpec, view), shared.RequestID(r))
}

// selfOrAdmin admits admins and the employee opening their own record.
func (h *Handler) selfOrAdmin(w http.ResponseWriter, r *http.Request, id string) bool {
	sess, _ := middleware.GetSession(r.Context())
	if h.Table.Decide(sess, pageEmployees).Outcome == access.Allow {
		return true
	}
	return h.self(w, r, id)
}

func (h *Handler) self(w http.ResponseWriter, r *http.Request, id string) bool {
	sess, _ := middleware.GetSession(r.Context())
	decision, found := h.Table.DecidePath(sess, "/info/"+id)
	if found && decision.Outcome == access.Allow {
		return true
	}
	location := h.Table.ForbiddenURL()
	if found {
		location = decision.Location
	}
	api.Redirect(w, http.StatusForbidden, "forbidden", "insufficient permissions", location, shared.RequestID(r))
	return false
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "employeeID")
	if !h.selfOrAdmin(w, r, id) {
		return
	}
	emp, err := h.Service.Store().GetEmployee(r.Context(), id)
	if err != nil {
		var statusErr *upstream.StatusError
		if errors.Is(err, core.ErrNotFound) || (errors.As(err, &statusErr) && statusErr.Status == http.StatusNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", shared.RequestID(r))
			return
		}
		h.Respond.ReadFailed(w, r, err, map[string]any{"loadFailed": true})
		return
	}
	api.Success(w, map[string]any{
		"employee": emp,
		"form":     core.ProfileFrom(emp, h.Loc),
	}, shared.RequestID(r))
}

// handleUpdateProfile is the info page's edit in place. Only the fields the
// employee changed are validated and an untouched form is refused.
func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "employeeID")
	if !h.self(w, r, id) {
		return
	}

	var form core.ProfileEdit
	var avatar *upstream.File
	multipart, ok := shared.ParseMultipart(w, r)
	if !ok {
		return
	}
	if multipart {
		form = core.ProfileEdit{
			FullName: strings.TrimSpace(r.FormValue("fullName")),
			Dob:      strings.TrimSpace(r.FormValue("dob")),
			Gender:   strings.TrimSpace(r.FormValue("gender")),
			Address:  strings.TrimSpace(r.FormValue("address")),
			Phone:    strings.TrimSpace(r.FormValue("phone")),
		}
		file, err := shared.FormFile(r, "avatar")
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_upload", "avatar could not be read", shared.RequestID(r))
			return
		}
		avatar = file
	} else if !shared.DecodeJSON(w, r, &form) {
		return
	}

	changed, err := h.Service.ProfileChanges(r.Context(), id, form)
	if err != nil {
		h.Respond.MutationFailed(w, r, err, "profile_update_failed", "Cập nhật thông tin thất bại")
		return
	}
	if len(changed) == 0 && avatar == nil {
		h.Respond.Rejected(w, r, http.StatusUnprocessableEntity, "unchanged", "Không có thay đổi nào để lưu")
		return
	}
	if h.Forms.CheckFields(form, changed...).Reject(w, shared.RequestID(r)) {
		return
	}
	emp, err := h.Service.Store().UpdateProfile(r.Context(), id, form, avatar)
	if err != nil {
		h.Respond.MutationFailed(w, r, err, "profile_update_failed", "Cập nhật thông tin thất bại")
		return
	}
	api.Done(w, http.StatusOK, emp, "Cập nhật thông tin thành công", shared.RequestID(r))
}

func (h *Handler) handleAdminUpdate(w http.ResponseWriter, r *http.Request) {
	var edit core.AdminEdit
	if !shared.DecodeJSON(w, r, &edit) {
		return
	}
	issues := h.Forms.Check(edit)
	if edit.Department.Empty() {
		issues.Add("departmentId", "không được để trống")
	}
	if edit.Position.Empty() {
		issues.Add("positionId", "không được để trống")
	}
	if issues.Reject(w, shared.RequestID(r)) {
		return
	}
	emp, err := h.Service.AdminUpdate(r.Context(), chi.URLParam(r, "employeeID"), edit)
	if err != nil {
		h.Respond.MutationFailed(w, r, err, "employee_update_failed", "Cập nhật nhân viên thất bại")
		return
	}
	api.Done(w, http.StatusOK, emp, "Cập nhật nhân viên thành công", shared.RequestID(r))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "employeeID")
	if err := h.Service.Store().DeleteEmployee(r.Context(), id); err != nil {
		h.Respond.MutationFailed(w, r, err, "employee_delete_failed", "Xóa nhân viên thất bại")
		return
	}
	api.Done(w, http.StatusOK, map[string]string{"id": id}, "Đã xóa nhân viên", shared.RequestID(r))
}

func (h *Handler) handleBackup(w http.ResponseWriter, r *http.Request) {
	bin, err := h.Service.Store().Backup(r.Context())
	if err != nil {
		h.Respond.MutationFailed(w, r, err, "backup_failed", "Sao lưu dữ liệu thất bại")
		return
	}
	filename := bin.Filename
	if filename == "" {
		filename = "employees_backup.xlsx"
	}
	contentType := bin.ContentType
	if contentType == "" || strings.HasPrefix(contentType, "application/json") {
		contentType = export.ContentTypeXLSX
	}
	shared.Attachment(w, contentType, filename, bin.Data)
}

// handleRestore refuses anything that is not a workbook with data before
// the backend sees it.
func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	multipart, ok := shared.ParseMultipart(w, r)
	if !ok {
		return
	}
	issues := shared.NewValidator()
	var file *upstream.File
	if multipart {
		var err error
		if file, err = shared.FormFile(r, "file"); err != nil {
			issues.Add("file", "không đọc được tệp tải lên")
		}
	}
	if file == nil && !issues.HasIssues() {
		issues.Add("file", "không được để trống")
	}
	if issues.Reject(w, shared.RequestID(r)) {
		return
	}
	sheet, err := export.Inspect(file.Data)
	if err != nil {
		issues.Add("file", restoreReason(err))
		issues.Reject(w, shared.RequestID(r))
		return
	}
	result, err := h.Service.Store().Restore(r.Context(), *file)
	if err != nil {
		h.Respond.MutationFailed(w, r, err, "restore_failed", "Khôi phục dữ liệu thất bại")
		return
	}
	api.Done(w, http.StatusOK, map[string]any{"sheet": sheet, "result": result}, "Khôi phục dữ liệu thành công", shared.RequestID(r))
}

func restoreReason(err error) string {
	switch {
	case errors.Is(err, export.ErrEmptySheet):
		return "trang tính đầu tiên không có dòng tiêu đề"
	case errors.Is(err, export.ErrNoDataRows):
		return "trang tính đầu tiên không có dữ liệu"
	}
	return "tệp không phải bảng tính xlsx hợp lệ"
}

var departmentSpec = listing.Spec[core.Department]{
	Search: func(d core.Department) []string { return []string{d.Name, d.Description} },
	Sorts: map[string]listing.SortKey[core.Department]{
		"name":              listing.ByString(func(d core.Department) string { return d.Name }),
		"numberOfEmployees": listing.ByNumber(func(d core.Department) float64 { return float64(d.NumberOfEmployees) }),
	},
}

var departmentDefaults = listing.NewView(3, "name", listing.Asc)

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	view, ok := shared.LoadView(h.Lists, w, r, pageDepartments, departmentSpec, departmentDefaults)
	if !ok {
		return
	}
	departments, err := h.Service.Departments(r.Context())
	if err != nil {
		h.Respond.ReadFailed(w, r, err, shared.FailedList[core.Department](view))
		return
	}
	api.Success(w, shared.Build(h.Lists, r, pageDepartments, departments, departmentSpec, view), shared.RequestID(r))
}

func (h *Handler) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	var form core.DepartmentForm
	if !shared.DecodeJSON(w, r, &form) {
		return
	}
	form.Name = strings.TrimSpace(form.Name)
	form.Description = strings.TrimSpace(form.Description)
	if h.Forms.Check(form).Reject(w, shared.RequestID(r)) {
		return
	}
	dept, err := h.Service.Store().CreateDepartment(r.Context(), form)
	if err != nil {
		h.Respond.MutationFailed(w, r, err, "department_create_failed", "Thêm phòng ban thất bại")
		return
	}
	api.Done(w, http.StatusCreated, dept, "Thêm phòng ban thành công", shared.RequestID(r))
}

func (h *Handler) handleUpdateDepartment(w http.ResponseWriter, r *http.Request) {
	var form core.DepartmentForm
	if !shared.DecodeJSON(w, r, &form) {
		return
	}
	form.Name = strings.TrimSpace(form.Name)
	form.Description = strings.TrimSpace(form.Description)
	if h.Forms.Check(form).Reject(w, shared.RequestID(r)) {
		return
	}
	dept, err := h.Service.UpdateDepartment(r.Context(), chi.URLParam(r, "departmentID"), form)
	switch {
	case errors.Is(err, core.ErrUnchanged):
		h.Respond.Rejected(w, r, http.StatusUnprocessableEntity, "unchanged", "Không có thay đổi nào để lưu")
		return
	case errors.Is(err, core.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "department not found", shared.RequestID(r))
		return
	case err != nil:
		h.Respond.MutationFailed(w, r, err, "department_update_failed", "Cập nhật phòng ban thất bại")
		return
	}
	api.Done(w, http.StatusOK, dept, "Cập nhật phòng ban thành công", shared.RequestID(r))
}

func (h *Handler) handleListPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.Service.Store().ListPositions(r.Context())
	if err != nil {
		h.Respond.ReadFailed(w, r, err, []core.Position{})
		return
	}
	api.Success(w, positions, shared.RequestID(r))
}

func (h *Handler) handleDepartmentOptions(w http.ResponseWriter, r *http.Request) {
	departments, err := h.Service.Store().ListDepartments(r.Context())
	if err != nil {
		h.Respond.ReadFailed(w, r, err, []core.Department{})
		return
	}
	api.Success(w, departments, shared.RequestID(r))
}
