package attendancehandler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"managerhr/internal/domain/access"
	"managerhr/internal/domain/attendance"
	"managerhr/internal/domain/session"
	"managerhr/internal/platform/export"
	"managerhr/internal/transport/http/api"
	"managerhr/internal/transport/http/middleware"
	"managerhr/internal/transport/http/shared"
)

// Attendance is the backend surface the pages use.
type Attendance interface {
	CheckIn(ctx context.Context, userID string) (string, error)
	CheckOut(ctx context.Context, userID string) (string, error)
	Current(ctx context.Context, userID string) (*attendance.Record, error)
	Range(ctx context.Context, userID string, r attendance.Range) (attendance.RangeResult, error)
	DepartmentOf(ctx context.Context, userID string) (attendance.Department, error)
	DepartmentReport(ctx context.Context, departmentID, year, month string) ([]attendance.DepartmentRow, error)
}

type Handler struct {
	Store   Attendance
	Table   *access.Table
	Respond shared.Responder
	Loc     *time.Location
	Now     func() time.Time
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	card := r.With(middleware.RequirePage(h.Table, "attendance"))
	card.Get("/attendance/today", h.handleToday)
	card.Post("/attendance/check-in", h.handleCheckIn)
	card.Post("/attendance/check-out", h.handleCheckOut)

	r.With(middleware.RequirePage(h.Table, "time-checking")).Get("/attendance/range", h.handleRange)
	r.With(middleware.RequirePage(h.Table, "attendance-management")).Get("/attendance/department-report", h.handleDepartmentReport)
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now().In(h.Loc)
	}
	return time.Now().In(h.Loc)
}

func (h *Handler) today(ctx context.Context, sess session.Session) (attendance.Today, error) {
	rec, err := h.Store.Current(ctx, sess.UserID)
	if err != nil {
		return attendance.Today{}, err
	}
	return attendance.TodayFrom(rec, attendance.LunchBucketed, h.Loc), nil
}

func (h *Handler) handleToday(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSession(r.Context())
	card, err := h.today(r.Context(), sess)
	if err != nil {
		h.Respond.ReadFailed(w, r, err, map[string]any{"rule": attendance.LunchBucketed.Name, "loadFailed": true})
		return
	}
	api.Success(w, card, shared.RequestID(r))
}

func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	h.mark(w, r, h.Store.CheckIn, "check_in_failed", "Chấm công vào thất bại", "Chấm công vào thành công")
}

func (h *Handler) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	h.mark(w, r, h.Store.CheckOut, "check_out_failed", "Chấm công ra thất bại", "Chấm công ra thành công")
}

// mark posts the action and answers with the card as it now stands.
func (h *Handler) mark(w http.ResponseWriter, r *http.Request, action func(context.Context, string) (string, error), code, failed, done string) {
	sess, _ := middleware.GetSession(r.Context())
	message, err := action(r.Context(), sess.UserID)
	if err != nil {
		h.Respond.MutationFailed(w, r, err, code, failed)
		return
	}
	if message == "" {
		message = done
	}
	card, err := h.today(r.Context(), sess)
	if err != nil {
		h.Respond.ReadFailed(w, r, err, map[string]any{"rule": attendance.LunchBucketed.Name, "loadFailed": true})
		return
	}
	api.Done(w, http.StatusOK, card, message, shared.RequestID(r))
}

func (h *Handler) handleRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	issues := shared.NewValidator()
	issues.Required("start", q.Get("start"), "không được để trống")
	issues.Required("end", q.Get("end"), "không được để trống")

	rule := attendance.RangeCeiling
	if name := q.Get("rule"); name != "" {
		var ok bool
		if rule, ok = attendance.RuleByName(name); !ok {
			issues.Add("rule", "phải là lunch-bucketed hoặc range-ceiling")
		}
	}
	format, ok := export.ParseFormat(q.Get("format"))
	if !ok {
		issues.Add("format", "phải là json, pdf hoặc xlsx")
	}
	if issues.Reject(w, shared.RequestID(r)) {
		return
	}

	span, err := attendance.ParseRange(q.Get("start"), q.Get("end"), h.Loc)
	if err != nil {
		field := "start"
		switch {
		case errors.Is(err, attendance.ErrInvalidRange), errors.Is(err, attendance.ErrRangeTooLong):
			field = "end"
		case q.Get("start") != "" && validDate(q.Get("start"), h.Loc):
			field = "end"
		}
		issues.Add(field, err.Error())
		issues.Reject(w, shared.RequestID(r))
		return
	}

	sess, _ := middleware.GetSession(r.Context())
	result, err := h.Store.Range(r.Context(), sess.UserID, span)
	workingDaysOnly := q.Get("workingDaysOnly") == "true" || q.Get("workingDaysOnly") == "1"
	if err != nil {
		if format != export.FormatJSON {
			h.Respond.MutationFailed(w, r, err, "attendance_export_failed", "Không tải được dữ liệu chấm công")
			return
		}
		empty := attendance.BuildReport(nil, span, rule, h.Loc, workingDaysOnly)
		h.Respond.ReadFailed(w, r, err, map[string]any{"report": empty, "loadFailed": true})
		return
	}
	report := attendance.BuildReport(result.Details, span, rule, h.Loc, workingDaysOnly)
	if format == export.FormatJSON {
		api.Success(w, map[string]any{"report": report}, shared.RequestID(r))
		return
	}
	h.render(w, r, rangeTable(report), format, fmt.Sprintf("attendance-%s-%s", report.StartDate, report.EndDate))
}

func validDate(raw string, loc *time.Location) bool {
	_, err := time.ParseInLocation(time.DateOnly, raw, loc)
	return err == nil
}

func rangeTable(rep attendance.Report) export.Table {
	t := export.Table{
		Title:    "Bảng chấm công",
		Subtitle: rep.StartDate + " - " + rep.EndDate,
		Sheet:    "Chấm công",
		Headers:  []string{"Ngày", "Thứ", "Trạng thái", "Giờ vào", "Giờ ra", "Giờ làm", "Giờ OT"},
		Rows:     make([][]any, 0, len(rep.Days)),
		Footer:   []any{"Tổng", "", rep.WorkedDays, "", "", float64(rep.TotalWorkHours), rep.TotalOTHours},
	}
	for _, d := range rep.Days {
		t.Rows = append(t.Rows, []any{d.Date, d.Weekday, string(d.Status), d.CheckIn, d.CheckOut, float64(d.WorkHours), d.OTHours})
	}
	return t
}

func (h *Handler) handleDepartmentReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	issues := shared.NewValidator()
	year, month, err := shared.ParseYearMonth(q.Get("year"), q.Get("month"), h.now())
	if err != nil {
		issues.Add("month", err.Error())
	}
	format, ok := export.ParseFormat(q.Get("format"))
	if !ok {
		issues.Add("format", "phải là json, pdf hoặc xlsx")
	}
	if issues.Reject(w, shared.RequestID(r)) {
		return
	}

	sess, _ := middleware.GetSession(r.Context())
	report := attendance.DepartmentReport{
		Year:  fmt.Sprintf("%04d", year),
		Month: fmt.Sprintf("%02d", month),
		Rows:  []attendance.DepartmentRow{},
	}
	dept, err := h.Store.DepartmentOf(r.Context(), sess.UserID)
	if err == nil {
		report.DepartmentID, report.DepartmentName = dept.ID, dept.Name
		report.Rows, err = h.Store.DepartmentReport(r.Context(), dept.ID, report.Year, report.Month)
	}
	if err != nil {
		if format != export.FormatJSON {
			h.Respond.MutationFailed(w, r, err, "attendance_export_failed", "Không tải được báo cáo chấm công")
			return
		}
		h.Respond.ReadFailed(w, r, err, map[string]any{"report": report, "loadFailed": true})
		return
	}
	if format == export.FormatJSON {
		api.Success(w, map[string]any{"report": report}, shared.RequestID(r))
		return
	}
	h.render(w, r, departmentTable(report), format, fmt.Sprintf("attendance-%s-%s", report.Year, report.Month))
}

func departmentTable(rep attendance.DepartmentReport) export.Table {
	t := export.Table{
		Title:    "Báo cáo chấm công " + rep.DepartmentName,
		Subtitle: "Tháng " + rep.Month + "/" + rep.Year,
		Sheet:    "Báo cáo",
		Headers:  []string{"STT", "Họ tên", "Chức vụ", "Ngày công", "Giờ OT"},
		Rows:     make([][]any, 0, len(rep.Rows)),
	}
	for i, row := range rep.Rows {
		t.Rows = append(t.Rows, []any{i + 1, row.FullName, row.PositionName, row.WorkDays, float64(row.TotalOTHours.Round())})
	}
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
