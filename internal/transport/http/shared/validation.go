package shared

import (
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"managerhr/internal/transport/http/api"
)

const validationNotice = "Vui lòng kiểm tra lại thông tin đã nhập."

type ValidationIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type Validator struct {
	issues []ValidationIssue
}

func NewValidator() *Validator {
	return &Validator{issues: make([]ValidationIssue, 0, 4)}
}

func (v *Validator) Add(field, reason string) {
	if v == nil {
		return
	}
	field = strings.TrimSpace(field)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return
	}
	v.issues = append(v.issues, ValidationIssue{
		Field:  field,
		Reason: reason,
	})
}

func (v *Validator) Required(field, value, reason string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, reason)
	}
}

func (v *Validator) HasIssues() bool {
	return v != nil && len(v.issues) > 0
}

func (v *Validator) Issues() []ValidationIssue {
	if v == nil || len(v.issues) == 0 {
		return nil
	}
	out := make([]ValidationIssue, len(v.issues))
	copy(out, v.issues)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Field == out[j].Field {
			return out[i].Reason < out[j].Reason
		}
		return out[i].Field < out[j].Field
	})
	return out
}

func (v *Validator) Reject(w http.ResponseWriter, requestID string) bool {
	if !v.HasIssues() {
		return false
	}
	FailValidation(w, requestID, v.Issues())
	return true
}

// FailValidation keeps its notice on screen until the user fixes the form.
func FailValidation(w http.ResponseWriter, requestID string, issues []ValidationIssue) {
	api.WriteJSON(w, http.StatusBadRequest, api.Envelope{
		Success: false,
		Error: &api.Error{
			Code:    "validation_error",
			Message: "payload validation failed",
			Details: map[string]any{"fields": issues},
		},
		Notice:    api.Persistent(api.NoticeError, validationNotice),
		RequestID: requestID,
	})
}

// Forms runs struct-tag validation. Besides the stock tags it knows
// isodate, pastdate and futuredate (relative to today in loc) and
// gtedatefield=Other for ISO date strings.
type Forms struct {
	validate *validator.Validate
	now      func() time.Time
	loc      *time.Location
}

func NewForms(loc *time.Location, now func() time.Time) *Forms {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	f := &Forms{validate: validator.New(validator.WithRequiredStructEnabled()), now: now, loc: loc}
	f.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	must(f.validate.RegisterValidation("isodate", f.isoDate))
	must(f.validate.RegisterValidation("pastdate", f.pastDate))
	must(f.validate.RegisterValidation("futuredate", f.futureDate))
	must(f.validate.RegisterValidation("gtedatefield", f.gteDateField))
	return f
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Check validates every field of form.
func (f *Forms) Check(form any) *Validator {
	return f.collect(f.validate.Struct(form))
}

// CheckFields validates only the named struct fields, so untouched invalid
// values do not block an edit.
func (f *Forms) CheckFields(form any, fields ...string) *Validator {
	if len(fields) == 0 {
		return NewValidator()
	}
	return f.collect(f.validate.StructPartial(form, fields...))
}

func (f *Forms) collect(err error) *Validator {
	v := NewValidator()
	if err == nil {
		return v
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		v.Add("", err.Error())
		return v
	}
	for _, fe := range errs {
		v.Add(fe.Field(), Reason(fe))
	}
	return v
}

// Reason renders a failed rule as an end-user message.
func Reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "không được để trống"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("phải có ít nhất %s ký tự", fe.Param())
		}
		return fmt.Sprintf("phải lớn hơn hoặc bằng %s", fe.Param())
	case "len":
		return fmt.Sprintf("phải gồm đúng %s ký tự", fe.Param())
	case "numeric":
		return "chỉ được chứa chữ số"
	case "gt":
		return fmt.Sprintf("phải lớn hơn %s", fe.Param())
	case "gte":
		return fmt.Sprintf("phải lớn hơn hoặc bằng %s", fe.Param())
	case "oneof":
		return "phải là một trong: " + strings.ReplaceAll(fe.Param(), "'", "")
	case "isodate":
		return "không phải ngày hợp lệ (YYYY-MM-DD)"
	case "pastdate":
		return "phải là ngày trong quá khứ"
	case "futuredate":
		return "phải là ngày trong tương lai"
	case "gtedatefield":
		return "không được trước ngày bắt đầu"
	}
	return "không hợp lệ"
}

func (f *Forms) today() time.Time {
	now := f.now().In(f.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, f.loc)
}

func (f *Forms) date(raw string) (time.Time, bool) {
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(raw), f.loc)
	return t, err == nil
}

func (f *Forms) isoDate(fl validator.FieldLevel) bool {
	_, ok := f.date(fl.Field().String())
	return ok
}

// pastDate accepts today: a birth date chosen today is not in the future.
func (f *Forms) pastDate(fl validator.FieldLevel) bool {
	t, ok := f.date(fl.Field().String())
	return ok && !t.After(f.today())
}

func (f *Forms) futureDate(fl validator.FieldLevel) bool {
	t, ok := f.date(fl.Field().String())
	return ok && t.After(f.today())
}

// gteDateField passes when either side is unparsable; isodate reports that.
func (f *Forms) gteDateField(fl validator.FieldLevel) bool {
	parent := reflect.Indirect(fl.Parent())
	if parent.Kind() != reflect.Struct {
		return false
	}
	other := parent.FieldByName(fl.Param())
	if !other.IsValid() || other.Kind() != reflect.String {
		return false
	}
	end, ok := f.date(fl.Field().String())
	if !ok {
		return true
	}
	start, ok := f.date(other.String())
	if !ok {
		return true
	}
	return !end.Before(start)
}
