package core

import (
	"strings"
	"time"
)

// Registration is the admin "add employee" form. Every field is validated.
type Registration struct {
	FullName   string  `json:"fullName" form:"fullName" validate:"required,min=3"`
	Dob        string  `json:"dob" form:"dob" validate:"required,isodate,pastdate"`
	Gender     string  `json:"gender" form:"gender" validate:"required,oneof=Nam Nữ"`
	Address    string  `json:"address" form:"address" validate:"required,min=5"`
	Phone      string  `json:"phone" form:"phone" validate:"required,len=10,numeric"`
	Department string  `json:"department" form:"department" validate:"required"`
	Position   string  `json:"position" form:"position" validate:"required"`
	BaseSalary float64 `json:"base_salary" form:"base_salary" validate:"required,gt=0"`
	StartDate  string  `json:"startDate" form:"startDate" validate:"required,isodate,futuredate"`
}

// ProfileEdit is the employee's edit-in-place form on the info page. Only
// fields that differ from the stored record are validated.
type ProfileEdit struct {
	FullName string `json:"fullName" form:"fullName" validate:"required,min=3"`
	Dob      string `json:"dob" form:"dob" validate:"required,isodate,pastdate"`
	Gender   string `json:"gender" form:"gender" validate:"required,oneof=Nam Nữ"`
	Address  string `json:"address" form:"address" validate:"required,min=5"`
	Phone    string `json:"phone" form:"phone" validate:"required,len=10,numeric"`
}

// ProfileFrom is the form as first rendered for emp.
func ProfileFrom(emp Employee, loc *time.Location) ProfileEdit {
	return ProfileEdit{
		FullName: emp.FullName,
		Dob:      dateText(emp.Dob, loc),
		Gender:   emp.Gender,
		Address:  emp.Address,
		Phone:    emp.Phone,
	}
}

// Changed lists the struct fields of p that differ from current.
func (p ProfileEdit) Changed(current ProfileEdit) []string {
	var fields []string
	if strings.TrimSpace(p.FullName) != current.FullName {
		fields = append(fields, "FullName")
	}
	if strings.TrimSpace(p.Dob) != current.Dob {
		fields = append(fields, "Dob")
	}
	if p.Gender != current.Gender {
		fields = append(fields, "Gender")
	}
	if strings.TrimSpace(p.Address) != current.Address {
		fields = append(fields, "Address")
	}
	if strings.TrimSpace(p.Phone) != current.Phone {
		fields = append(fields, "Phone")
	}
	return fields
}

// AdminEdit is the directory's edit dialog. Department and position may be
// posted as objects or ids.
type AdminEdit struct {
	FullName   string  `json:"fullName" validate:"required,min=3"`
	Dob        string  `json:"dob,omitempty" validate:"omitempty,isodate,pastdate"`
	Gender     string  `json:"gender" validate:"required,oneof=Nam Nữ"`
	Address    string  `json:"address" validate:"required,min=5"`
	Phone      string  `json:"phone" validate:"required,len=10,numeric"`
	Department Ref     `json:"departmentId"`
	Position   Ref     `json:"positionId"`
	BaseSalary float64 `json:"base_salary" validate:"gte=0"`
	StartDate  string  `json:"startDate,omitempty" validate:"omitempty,isodate"`
}

// Dispatch is the payload sent upstream: references reduced to ids.
func (e AdminEdit) Dispatch() map[string]any {
	out := map[string]any{
		"fullName":     strings.TrimSpace(e.FullName),
		"gender":       e.Gender,
		"address":      strings.TrimSpace(e.Address),
		"phone":        strings.TrimSpace(e.Phone),
		"departmentId": e.Department.ID,
		"positionId":   e.Position.ID,
		"base_salary":  e.BaseSalary,
	}
	if e.Dob != "" {
		out["dob"] = e.Dob
	}
	if e.StartDate != "" {
		out["startDate"] = e.StartDate
	}
	return out
}

type DepartmentForm struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// DepartmentEdit holds the update dialog state against the values it opened with.
type DepartmentEdit struct {
	Initial DepartmentForm
	Current DepartmentForm
}

// CanSubmit is false exactly when name and description both still equal
// their initial values.
func (e DepartmentEdit) CanSubmit() bool {
	return e.Current.Name != e.Initial.Name || e.Current.Description != e.Initial.Description
}

func dateText(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(time.DateOnly)
}
