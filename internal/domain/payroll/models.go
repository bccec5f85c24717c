package payroll

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

var (
	ErrNothingSelected = errors.New("no employees selected")
	ErrNotInReport     = errors.New("employee is not in the report")
)

type ReportKind string

const (
	Monthly   ReportKind = "monthly"
	Quarterly ReportKind = "quarterly"
)

// Period names a month or quarter of a year, as the backend expects it:
// a two-digit month or a quarter digit, plus a four-digit year.
type Period struct {
	Kind    ReportKind `json:"reportType"`
	Year    string     `json:"year"`
	Month   string     `json:"month,omitempty"`
	Quarter string     `json:"quarter,omitempty"`
}

func MonthPeriod(year, month int) Period {
	return Period{Kind: Monthly, Year: strconv.Itoa(year), Month: fmt.Sprintf("%02d", month)}
}

func QuarterPeriod(year, quarter int) Period {
	return Period{Kind: Quarterly, Year: strconv.Itoa(year), Quarter: strconv.Itoa(quarter)}
}

// ParsePeriod validates a year with either a month (1-12) or a quarter (1-4).
func ParsePeriod(kind ReportKind, year, month, quarter string) (Period, error) {
	y, err := strconv.Atoi(year)
	if err != nil || y < 1970 || y > 9999 {
		return Period{}, fmt.Errorf("invalid year %q", year)
	}
	switch kind {
	case "", Monthly:
		m, err := strconv.Atoi(month)
		if err != nil || m < 1 || m > 12 {
			return Period{}, fmt.Errorf("invalid month %q", month)
		}
		return MonthPeriod(y, m), nil
	case Quarterly:
		q, err := strconv.Atoi(quarter)
		if err != nil || q < 1 || q > 4 {
			return Period{}, fmt.Errorf("invalid quarter %q", quarter)
		}
		return QuarterPeriod(y, q), nil
	}
	return Period{}, fmt.Errorf("unknown report type %q", kind)
}

// Contains reports whether t falls in a monthly period, in t's zone.
func (p Period) Contains(t time.Time) bool {
	return t.Format("2006") == p.Year && t.Format("01") == p.Month
}

type MonthlySalaries struct {
	Month1 float64 `json:"month1"`
	Month2 float64 `json:"month2"`
	Month3 float64 `json:"month3"`
}

// ReportRow is a server-computed salary line; monthly or quarterly.
type ReportRow struct {
	ID                 string           `json:"id"`
	FullName           string           `json:"fullName"`
	Gender             string           `json:"gender"`
	WorkDays           float64          `json:"workDays"`
	TotalOTHours       float64          `json:"totalOTHours"`
	BaseSalary         float64          `json:"baseSalary"`
	BonusSalary        float64          `json:"bonus_salary"`
	RemainingLeaveDays float64          `json:"remainingLeaveDays"`
	DailyWage          float64          `json:"dailyWage"`
	TotalSalary        float64          `json:"totalSalary"`
	MonthlySalaries    *MonthlySalaries `json:"monthlySalaries,omitempty"`
}

// Payee is the populated employee on salary and bonus records.
type Payee struct {
	ID       string `json:"_id,omitempty"`
	FullName string `json:"fullName"`
	Gender   string `json:"gender,omitempty"`
}

// Payment is one salary transfer on an employee's history.
type Payment struct {
	ID          string    `json:"_id"`
	Employee    Payee     `json:"employeeId"`
	TotalSalary float64   `json:"total_salary"`
	PaymentDate time.Time `json:"payment_date"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
}

// NewPayment is the body of POST /salaries/add.
type NewPayment struct {
	EmployeeID  string `json:"employeeId"`
	TotalSalary int64  `json:"total_salary"`
	PaymentDate string `json:"payment_date"`
	Description string `json:"description"`
}

// PaymentFor builds the transfer of one report row: the total rounded to a
// whole amount, dated today and described as the month's salary.
func PaymentFor(row ReportRow, period Period, today time.Time) NewPayment {
	return NewPayment{
		EmployeeID:  row.ID,
		TotalSalary: int64(math.Round(row.TotalSalary)),
		PaymentDate: today.Format(time.DateOnly),
		Description: "lương tháng " + period.Month,
	}
}

type Bonus struct {
	ID          string    `json:"_id"`
	EmployeeID  string    `json:"employeeId"`
	Amount      float64   `json:"bonus_salary"`
	Description string    `json:"description"`
	PaymentDate time.Time `json:"payment_date,omitzero"`
	CreatedAt   time.Time `json:"createdAt"`
}

// BonusSummary groups one employee's bonuses.
type BonusSummary struct {
	FullName      string    `json:"fullName"`
	Gender        string    `json:"gender"`
	DateOfBirth   time.Time `json:"dateOfBirth,omitzero"`
	BonusSalaries []Bonus   `json:"bonusSalaries"`
}

// TotalIn sums the bonuses created in a monthly period, read in loc.
func (b BonusSummary) TotalIn(p Period, loc *time.Location) float64 {
	var total float64
	for _, bonus := range b.BonusSalaries {
		if p.Contains(bonus.CreatedAt.In(loc)) {
			total += bonus.Amount
		}
	}
	return total
}

// NewBonus is the "add allowance" form.
type NewBonus struct {
	EmployeeID  string  `json:"employeeId" validate:"required"`
	Amount      float64 `json:"bonus_salary" validate:"required,gt=0"`
	Description string  `json:"description" validate:"required"`
}
