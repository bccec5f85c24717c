package payroll

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const payConcurrency = 4

type Service struct {
	store *Store
	now   func() time.Time
	loc   *time.Location
}

func NewService(store *Store, now func() time.Time, loc *time.Location) *Service {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, now: now, loc: loc}
}

func (s *Service) Store() *Store {
	return s.store
}

type PayResult struct {
	Paid  int   `json:"paid"`
	Total int64 `json:"total"`
}

// PayMonth posts one salary payment per selected employee of the monthly
// report. Every selected id must be a row of the report.
func (s *Service) PayMonth(ctx context.Context, departmentID string, period Period, selected []string) (PayResult, error) {
	if period.Kind != Monthly {
		return PayResult{}, fmt.Errorf("salaries are paid per month, not per %s", period.Kind)
	}
	ids := make([]string, 0, len(selected))
	for _, id := range selected {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)
	if len(ids) == 0 {
		return PayResult{}, ErrNothingSelected
	}

	rows, err := s.store.Report(ctx, departmentID, period)
	if err != nil {
		return PayResult{}, err
	}
	byID := make(map[string]ReportRow, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	today := s.now().In(s.loc)
	payments := make([]NewPayment, 0, len(ids))
	var total int64
	for _, id := range ids {
		row, ok := byID[id]
		if !ok {
			return PayResult{}, fmt.Errorf("%w: %s", ErrNotInReport, id)
		}
		p := PaymentFor(row, period, today)
		total += p.TotalSalary
		payments = append(payments, p)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(payConcurrency)
	for _, p := range payments {
		g.Go(func() error {
			if err := s.store.AddPayment(gctx, p); err != nil {
				return fmt.Errorf("pay %s: %w", p.EmployeeID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return PayResult{}, err
	}
	return PayResult{Paid: len(payments), Total: total}, nil
}

// BonusRow is one line of the allowance page.
type BonusRow struct {
	FullName    string    `json:"fullName"`
	Gender      string    `json:"gender"`
	DateOfBirth time.Time `json:"dateOfBirth,omitzero"`
	Total       float64   `json:"totalBonus"`
	Bonuses     []Bonus   `json:"bonusSalaries"`
}

// BonusRows totals each employee's bonuses created within the period.
func (s *Service) BonusRows(ctx context.Context, departmentID string, period Period) ([]BonusRow, error) {
	summaries, err := s.store.Bonuses(ctx, departmentID, period)
	if err != nil {
		return nil, err
	}
	rows := make([]BonusRow, 0, len(summaries))
	for _, sum := range summaries {
		inPeriod := make([]Bonus, 0, len(sum.BonusSalaries))
		for _, b := range sum.BonusSalaries {
			if period.Contains(b.CreatedAt.In(s.loc)) {
				inPeriod = append(inPeriod, b)
			}
		}
		rows = append(rows, BonusRow{
			FullName:    sum.FullName,
			Gender:      sum.Gender,
			DateOfBirth: sum.DateOfBirth,
			Total:       sum.TotalIn(period, s.loc),
			Bonuses:     inPeriod,
		})
	}
	return rows, nil
}
