package payrollhandler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"managerhr/internal/domain/access"
	"managerhr/internal/domain/attendance"
	"managerhr/internal/domain/listing"
	"managerhr/internal/domain/payroll"
	"managerhr/internal/platform/export"
	"managerhr/internal/transport/http/api"
	"managerhr/internal/transport/http/middleware"
	"managerhr/internal/transport/http/shared"
)

const (
	listMine    = "salary-history"
	listReport  = "salary-report"
	listBonuses = "bonus-salary"
)

// DepartmentResolver finds the department an admin manages.
type DepartmentResolver interface {
	DepartmentOf(ctx context.Context, userID string) (attendance.Department, error)
}

type Handler struct {
	Service     *payroll.Service
	Departments DepartmentResolver
	Idempotency middleware.IdempotencyStore
	Table       *access.Table
	Forms       *shared.Forms
	Lists       shared.Lists
	Respond     shared.Responder
	Loc         *time.Location
	Now         func() time.Time

	mineSpec listing.Spec[payroll.Payment]
}

func NewHandler(service *payroll.Service, departments DepartmentResolver, idem middleware.IdempotencyStore, table *access.Table, forms *shared.Forms, lists shared.Lists, respond shared.Responder, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		Service:     service,
		Departments: departments,
		Idempotency: idem,
		Table:       table,
		Forms:       forms,
		Lists:       lists,
		Respond:     respond,
		Loc:         loc,
		Now:         time.Now,
		mineSpec:    paymentSpec(loc),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePage(h.Table, "salary")).Get("/salaries/mine", h.handleMine)

	manage := r.With(middleware.RequirePage(h.Table, "salary-management"))
	manage.Get("/salaries/report", h.handleReport)
	manage.With(middleware.Idempotent(h.Idempotency)).Post("/salaries/pay", h.handlePay)

	bonus := r.With(middleware.RequirePage(h.Table, "bonus-salary"))
	bonus.Get("/bonuses", h.handleBonuses)
	bonus.Post("/bonuses", h.handleAddBonus)
}

func (h *Handler) now() time.Time {
	return h.Now().In(h.Loc)
}

// paymentSpec filters the salary history by the year and month of the
// payment date as seen in loc; months are two digits.
func paymentSpec(loc *time.Location) listing.Spec[payroll.Payment] {
	return listing.Spec[payroll.Payment]{
		Search: func(p payroll.Payment) []string { return []string{p.Description} },
		Selects: map[string]func(payroll.Payment) string{
			"year":  func(p payroll.Payment) string { return p.PaymentDate.In(loc).Format("2006") },
			"month": func(p payroll.Payment) string { return p.PaymentDate.In(loc).Format("01") },
		},
		Sorts: map[string]listing.SortKey[payroll.Payment]{
			"payment_date": listing.ByTime(func(p payroll.Payment) time.Time { return p.PaymentDate }),
			"total_salary": listing.ByNumber(func(p payroll.Payment) float64 { return p.TotalSalary }),
		},
	}
}

func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	view, ok := shared.LoadView(h.Lists, w, r, listMine, h.mineSpec, listing.NewView(5, "payment_date", listing.Desc))
	if !ok {
		return
	}
	sess, _ := middleware.GetSession(r.Context())
	payments, err := h.Service.Store().Payments(r.Context(), sess.UserID)
	if err != nil {
		h.Respond.ReadFailed(w, r, err, shared.FailedList[payroll.Payment](view))
		return
	}
	api.Success(w, shared.Build(h.Lists, r, listMine, payments, h.mineSpec, view), shared.RequestID(r))
}

// period reads reportType, year, month and quarter. Missing year and month
// default to the current ones.
func (h *Handler) period(r *http.Request, issues *shared.Validator) (payroll.Period, bool) {
	q := r.URL.Query()
	kind := payroll.ReportKind(q.Get("reportType"))
	now := h.now()
	year := q.Get("year")
	if year == "" {
		year = strconv.Itoa(now.Year())
	}
	month := q.Get("month")
	if month == "" && kind != payroll.Quarterly {
		month = strconv.Itoa(int(now.Month()))
	}
	p, err := payroll.ParsePeriod(kind, year, month, q.Get("quarter"))
	if err != nil {
		issues.Add("period", err.Error())
		return payroll.Period{}, false
	}
	return p, true
}

// usePeriod keeps the selected period in the view so switching it starts
// the list at page 1.
func (h *Handler) usePeriod(r *http.Request, name string, view *listing.View, p payroll.Period) {
	changed := view.SetSelect("reportType", string(p.Kind))
	changed = view.SetSelect("year", p.Year) || changed
	changed = view.SetSelect("month", p.Month) || changed
	changed = view.SetSelect("quarter", p.Quarter) || changed
	if changed {
		h.Lists.Save(r, name, *view)
	}
}

func (h *Handler) department(ctx context.Context) (attendance.Department, error) {
	sess, _ := middleware.GetSession(ctx)
	return h.Departments.DepartmentOf(ctx, sess.UserID)
}

var reportSpec = listing.Spec[payroll.ReportRow]{
	Search: func(row payroll.ReportRow) []string { return []string{row.FullName} },
	Sorts: map[string]listing.SortKey[payroll.ReportRow]{
		"fullName":    listing.ByString(func(row payroll.ReportRow) string { return row.FullName }),
		"totalSalary": listing.ByNumber(func(row payroll.ReportRow) float64 { return row.TotalSalary }),
		"workDays":    listing.ByNumber(func(row payroll.ReportRow) float64 { return row.WorkDays }),
	},
}

type reportPage struct {
	shared.List[payroll.ReportRow]
	Period     payroll.Period `json:"period"`
	Department string         `json:"departmentName,omitempty"`
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	issues := shared.NewValidator()
	p, _ := h.period(r, issues)
	format, ok := export.ParseFormat(r.URL.Query().Get("format"))
	if !ok {
		issues.Add("format", "phải là json, pdf hoặc xlsx")
	}
	if issues.Reject(w, shared.RequestID(r)) {
		return
	}
	view, ok := shared.LoadView(h.Lists, w, r, listReport, reportSpec, listing.NewView(5, "fullName", listing.Asc))
	if !ok {
		return
	}
	h.usePeriod(r, listReport, &view, p)

	dept, err := h.department(r.Context())
	var rows []payroll.ReportRow
	if err == nil {
		rows, err = h.Service.Store().Report(r.Context(), dept.ID, p)
	}
	if err != nil {
		if format != export.FormatJSON {
			h.Respond.MutationFailed(w, r, err, "salary_export_failed", "Không tải được bảng lương")
			return
		}
		h.Respond.ReadFailed(w, r, err, reportPage{List: shared.FailedList[payroll.ReportRow](view), Period: p})
		return
	}
	if format != export.FormatJSON {
		filtered := reportSpec.Filter(rows, view)
		reportSpec.Sort(filtered, view, h.Lists.Locale)
		h.render(w, r, salaryTable(filtered, p, dept.Name), format, "salary-"+periodSlug(p))
		return
	}
	api.Success(w, reportPage{
		List:       shared.Build(h.Lists, r, listReport, rows, reportSpec, view),
		Period:     p,
		Department: dept.Name,
	}, shared.RequestID(r))
}

func periodSlug(p payroll.Period) string {
	if p.Kind == payroll.Quarterly {
		return p.Year + "-q" + p.Quarter
	}
	return p.Year + "-" + p.Month
}

func salaryTable(rows []payroll.ReportRow, p payroll.Period, department string) export.Table {
	subtitle := "Tháng " + p.Month + "/" + p.Year
	headers := []string{"STT", "Họ tên", "Giới tính", "Ngày công", "Giờ OT", "Lương cơ bản", "Trợ cấp", "Phép còn lại", "Lương ngày"}
	if p.Kind == payroll.Quarterly {
		subtitle = "Quý " + p.Quarter + "/" + p.Year
		headers = append(headers, "Tháng 1", "Tháng 2", "Tháng 3")
	}
	headers = append(headers, "Tổng lương")
	t := export.Table{
		Title:    "Bảng lương " + department,
		Subtitle: subtitle,
		Sheet:    "Bảng lương",
		Headers:  headers,
		Rows:     make([][]any, 0, len(rows)),
	}
	var total float64
	for i, row := range rows {
		cells := []any{i + 1, row.FullName, row.Gender, row.WorkDays, row.TotalOTHours, row.BaseSalary, row.BonusSalary, row.RemainingLeaveDays, row.DailyWage}
		if p.Kind == payroll.Quarterly {
			var m payroll.MonthlySalaries
			if row.MonthlySalaries != nil {
				m = *row.MonthlySalaries
			}
			cells = append(cells, m.Month1, m.Month2, m.Month3)
		}
		t.Rows = append(t.Rows, append(cells, row.TotalSalary))
		total += row.TotalSalary
	}
	t.Footer = make([]any, len(headers))
	t.Footer[0] = "Tổng"
	t.Footer[len(headers)-1] = total
	return t
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, t export.Table, format export.Format, basename string) {
	file, err := export.Render(t, format, basename)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "export_failed", "could not render report", shared.RequestID(r))
		return
	}
	shared.Attachment(w, file.ContentType, file.Filename, file.Data)
}

type payRequest struct {
	Year        string   `json:"year" validate:"required"`
	Month       string   `json:"month" validate:"required"`
	EmployeeIDs []string `json:"employeeIds"`
}

func (h *Handler) handlePay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if !shared.DecodeJSON(w, r, &req) {
		return
	}
	issues := h.Forms.Check(req)
	if issues.Reject(w, shared.RequestID(r)) {
		return
	}
	p, err := payroll.ParsePeriod(payroll.Monthly, req.Year, req.Month, "")
	if err != nil {
		issues.Add("month", err.Error())
		issues.Reject(w, shared.RequestID(r))
		return
	}
	dept, err := h.department(r.Context())
	if err != nil {
		h.Respond.MutationFailed(w, r, err, "salary_payment_failed", "Thanh toán lương thất bại")
		return
	}
	result, err := h.Service.PayMonth(r.Context(), dept.ID, p, req.EmployeeIDs)
	switch {
	case errors.Is(err, payroll.ErrNothingSelected):
		h.Respond.Rejected(w, r, http.StatusUnprocessableEntity, "nothing_selected", "Vui lòng chọn nhân viên cần thanh toán")
		return
	case errors.Is(err, payroll.ErrNotInReport):
		h.Respond.Rejected(w, r, http.StatusUnprocessableEntity, "not_in_report", "Nhân viên được chọn không có trong bảng lương")
		return
	case err != nil:
		h.Respond.MutationFailed(w, r, err, "salary_payment_failed", "Thanh toán lương thất bại")
		return
	}
	api.Done(w, http.StatusOK, result, fmt.Sprintf("Đã thanh toán lương tháng %s cho %d nhân viên", p.Month, result.Paid), shared.RequestID(r))
}

var bonusSpec = listing.Spec[payroll.BonusRow]{
	Search: func(row payroll.BonusRow) []string { return []string{row.FullName} },
	Selects: map[string]func(payroll.BonusRow) string{
		"gender": func(row payroll.BonusRow) string { return row.Gender },
	},
	Sorts: map[string]listing.SortKey[payroll.BonusRow]{
		"fullName":   listing.ByString(func(row payroll.BonusRow) string { return row.FullName }),
		"totalBonus": listing.ByNumber(func(row payroll.BonusRow) float64 { return row.Total }),
	},
}

type bonusPage struct {
	shared.List[payroll.BonusRow]
	Period payroll.Period `json:"period"`
}

func (h *Handler) handleBonuses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, month, err := shared.ParseYearMonth(q.Get("year"), q.Get("month"), h.now())
	if err != nil {
		issues := shared.NewValidator()
		issues.Add("month", err.Error())
		issues.Reject(w, shared.RequestID(r))
		return
	}
	p := payroll.MonthPeriod(year, month)
	view, ok := shared.LoadView(h.Lists, w, r, listBonuses, bonusSpec, listing.NewView(5, "fullName", listing.Asc))
	if !ok {
		return
	}
	h.usePeriod(r, listBonuses, &view, p)

	dept, err := h.department(r.Context())
	var rows []payroll.BonusRow
	if err == nil {
		rows, err = h.Service.BonusRows(r.Context(), dept.ID, p)
	}
	if err != nil {
		h.Respond.ReadFailed(w, r, err, bonusPage{List: shared.FailedList[payroll.BonusRow](view), Period: p})
		return
	}
	api.Success(w, bonusPage{List: shared.Build(h.Lists, r, listBonuses, rows, bonusSpec, view), Period: p}, shared.RequestID(r))
}

func (h *Handler) handleAddBonus(w http.ResponseWriter, r *http.Request) {
	var form payroll.NewBonus
	if !shared.DecodeJSON(w, r, &form) {
		return
	}
	if h.Forms.Check(form).Reject(w, shared.RequestID(r)) {
		return
	}
	if err := h.Service.Store().AddBonus(r.Context(), form); err != nil {
		h.Respond.MutationFailed(w, r, err, "bonus_create_failed", "Thêm trợ cấp thất bại")
		return
	}
	api.Done(w, http.StatusCreated, form, "Thêm trợ cấp thành công", shared.RequestID(r))
}
