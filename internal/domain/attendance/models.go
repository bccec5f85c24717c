package attendance

import (
	"time"
)

// Record is one day of attendance as the backend returns it.
type Record struct {
	ID      string     `json:"_id,omitempty"`
	Status  string     `json:"status,omitempty"`
	TimeIn  time.Time  `json:"timeIn"`
	TimeOut *time.Time `json:"timeOut,omitempty"`
}

func (r Record) CheckedOut() bool {
	return r.TimeOut != nil && !r.TimeOut.IsZero()
}

// Today is the employee's check-in card.
type Today struct {
	CheckedIn bool    `json:"checkedIn"`
	Record    *Record `json:"record,omitempty"`
	Date      string  `json:"date,omitempty"`
	CheckIn   string  `json:"checkIn,omitempty"`
	CheckOut  string  `json:"checkOut,omitempty"`
	Rule      string  `json:"rule"`
	Result
}

// TodayFrom derives the card state. An open record means checked in; a closed
// record shows its hours with both actions done.
func TodayFrom(rec *Record, rule Rule, loc *time.Location) Today {
	today := Today{Rule: rule.Name}
	if rec == nil || rec.TimeIn.IsZero() {
		return today
	}
	today.Record = rec
	today.CheckedIn = !rec.CheckedOut()
	today.Date = rec.TimeIn.In(loc).Format(time.DateOnly)
	today.CheckIn = rec.TimeIn.In(loc).Format(time.TimeOnly)
	if rec.CheckedOut() {
		today.CheckOut = rec.TimeOut.In(loc).Format(time.TimeOnly)
	}
	today.Result = rule.Compute(rec.TimeIn, rec.TimeOut, loc)
	return today
}

// RangeResult is the backend answer to an employee range query.
type RangeResult struct {
	Details        []Record `json:"details"`
	TotalWorkHours float64  `json:"totalWorkHours"`
	TotalOTHours   float64  `json:"totalOTHours"`
}

// DepartmentRow is one employee line of the monthly department report.
type DepartmentRow struct {
	ID           string `json:"_id,omitempty"`
	FullName     string `json:"fullName"`
	PositionName string `json:"positionName"`
	WorkDays     int    `json:"workDays"`
	TotalOTHours Hours  `json:"totalOTHours"`
}

type DepartmentReport struct {
	DepartmentID   string          `json:"departmentId"`
	DepartmentName string          `json:"departmentName"`
	Year           string          `json:"year"`
	Month          string          `json:"month"`
	Rows           []DepartmentRow `json:"rows"`
}
