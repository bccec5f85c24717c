package attendance

import (
	"errors"
	"fmt"
	"time"
)

// MaxRangeDays bounds one range report.
const MaxRangeDays = 366

var (
	ErrInvalidRange = errors.New("end date must not be before start date")
	ErrRangeTooLong = fmt.Errorf("range must not exceed %d days", MaxRangeDays)
)

type DayStatus string

const (
	DayWorked  DayStatus = "worked"
	DayWeekend DayStatus = "weekend"
	DayAbsent  DayStatus = "absent"
)

// Range is an inclusive span of calendar days in one zone.
type Range struct {
	Start time.Time
	End   time.Time
}

func NewRange(start, end time.Time) (Range, error) {
	start = midnight(start)
	end = midnight(end)
	if end.Before(start) {
		return Range{}, ErrInvalidRange
	}
	if len(days(start, end)) > MaxRangeDays {
		return Range{}, ErrRangeTooLong
	}
	return Range{Start: start, End: end}, nil
}

// ParseRange reads YYYY-MM-DD dates in loc.
func ParseRange(start, end string, loc *time.Location) (Range, error) {
	s, err := time.ParseInLocation(time.DateOnly, start, loc)
	if err != nil {
		return Range{}, fmt.Errorf("invalid start date %q", start)
	}
	e, err := time.ParseInLocation(time.DateOnly, end, loc)
	if err != nil {
		return Range{}, fmt.Errorf("invalid end date %q", end)
	}
	return NewRange(s, e)
}

type Day struct {
	Date      string    `json:"date"`
	Weekday   string    `json:"weekday"`
	Status    DayStatus `json:"status"`
	CheckIn   string    `json:"checkIn,omitempty"`
	CheckOut  string    `json:"checkOut,omitempty"`
	WorkHours Hours     `json:"workHours"`
	OTHours   int       `json:"otHours"`
}

type Report struct {
	StartDate       string `json:"startDate"`
	EndDate         string `json:"endDate"`
	Rule            string `json:"rule"`
	WorkingDaysOnly bool   `json:"workingDaysOnly"`
	Days            []Day  `json:"days"`
	WorkedDays      int    `json:"workedDays"`
	TotalWorkHours  Hours  `json:"totalWorkHours"`
	TotalOTHours    int    `json:"totalOTHours"`
}

// BuildReport lists every day of r. A record belongs to the day of its
// check-in in loc; the first one wins. With workingDaysOnly, days without a
// record are dropped.
func BuildReport(records []Record, r Range, rule Rule, loc *time.Location, workingDaysOnly bool) Report {
	if loc == nil {
		loc = time.UTC
	}
	byDate := make(map[string]Record, len(records))
	for _, rec := range records {
		if rec.TimeIn.IsZero() {
			continue
		}
		key := rec.TimeIn.In(loc).Format(time.DateOnly)
		if _, seen := byDate[key]; !seen {
			byDate[key] = rec
		}
	}

	rep := Report{
		StartDate:       r.Start.Format(time.DateOnly),
		EndDate:         r.End.Format(time.DateOnly),
		Rule:            rule.Name,
		WorkingDaysOnly: workingDaysOnly,
		Days:            []Day{},
	}
	var total Hours
	for _, date := range days(r.Start, r.End) {
		key := date.Format(time.DateOnly)
		rec, worked := byDate[key]
		if workingDaysOnly && !worked {
			continue
		}
		day := Day{Date: key, Weekday: date.Weekday().String(), Status: DayAbsent}
		switch {
		case worked:
			day.Status = DayWorked
			day.CheckIn = rec.TimeIn.In(loc).Format(time.TimeOnly)
			if rec.CheckedOut() {
				day.CheckOut = rec.TimeOut.In(loc).Format(time.TimeOnly)
			}
			res := rule.Compute(rec.TimeIn, rec.TimeOut, loc)
			day.WorkHours, day.OTHours = res.WorkHours, res.OTHours
			total += res.WorkHours
			rep.TotalOTHours += res.OTHours
			rep.WorkedDays++
		case isWeekend(date):
			day.Status = DayWeekend
		}
		rep.Days = append(rep.Days, day)
	}
	rep.TotalWorkHours = total.Round()
	return rep
}

func days(start, end time.Time) []time.Time {
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
		if len(out) > MaxRangeDays {
			break
		}
	}
	return out
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}
