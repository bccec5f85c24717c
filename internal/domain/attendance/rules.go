package attendance

import (
	"math"
	"strconv"
	"time"
)

const (
	fullDayMinutes = 8 * 60
	maxOTHours     = 2
	lunchStartHour = 12
	lunchEndHour   = 13
)

// Hours is a duration in hours, rendered with two decimals.
type Hours float64

func (h Hours) MarshalJSON() ([]byte, error) {
	return strconv.AppendFloat(nil, float64(h), 'f', 2, 64), nil
}

func (h Hours) String() string {
	return strconv.FormatFloat(float64(h), 'f', 2, 64)
}

func (h Hours) Round() Hours {
	return Hours(math.Round(float64(h)*100) / 100)
}

type Result struct {
	WorkHours Hours `json:"workHours"`
	OTHours   int   `json:"otHours"`
}

// Rule derives work and overtime hours from one day's check-in/check-out.
// Both variants are kept because the dashboard shows them on different pages.
type Rule struct {
	Name    string
	compute func(in, out time.Time, loc *time.Location) Result
}

// Compute yields zero hours while the employee is still checked in.
func (r Rule) Compute(in time.Time, out *time.Time, loc *time.Location) Result {
	if in.IsZero() || out == nil || out.IsZero() || r.compute == nil {
		return Result{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return r.compute(in, *out, loc)
}

var (
	// LunchBucketed is the today view rule: lunch normalization, an hour off
	// for shifts spanning the break, 8h cap and overtime in 30 minute buckets.
	LunchBucketed = Rule{Name: "lunch-bucketed", compute: lunchBucketed}

	// RangeCeiling is the range report rule: elapsed hours minus one, and
	// overtime rounded up past 8.5h.
	RangeCeiling = Rule{Name: "range-ceiling", compute: rangeCeiling}
)

func RuleByName(name string) (Rule, bool) {
	switch name {
	case LunchBucketed.Name:
		return LunchBucketed, true
	case RangeCeiling.Name:
		return RangeCeiling, true
	}
	return Rule{}, false
}

func lunchBucketed(in, out time.Time, loc *time.Location) Result {
	in, out = in.In(loc), out.In(loc)
	if in.Hour() == lunchStartHour {
		in = atClock(in, lunchEndHour)
	}
	if out.Hour() == lunchStartHour {
		out = atClock(out, lunchStartHour)
	}

	minutes := int(out.Sub(in) / time.Minute)
	if in.Hour() < lunchStartHour && afterClock(out, lunchEndHour) {
		minutes -= 60
	}

	work := math.Min(8, math.Max(0, float64(minutes)/60))
	ot := int(math.Floor(float64(minutes-fullDayMinutes) / 30))
	return Result{
		WorkHours: Hours(work).Round(),
		OTHours:   min(maxOTHours, max(0, ot)),
	}
}

func rangeCeiling(in, out time.Time, _ *time.Location) Result {
	hours := max(0, out.Sub(in).Hours())
	if hours > 1 {
		hours--
	}
	ot := 0
	if hours > 8.5 {
		ot = int(math.Ceil(hours - 8.5))
	}
	return Result{WorkHours: Hours(hours), OTHours: ot}
}

func atClock(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, t.Location())
}

func afterClock(t time.Time, hour int) bool {
	return t.After(atClock(t, hour))
}
