package payroll

import (
	"context"
	"net/http"
	"net/url"
)

// Backend is the part of the upstream client the store uses.
type Backend interface {
	GetJSON(ctx context.Context, path string, query url.Values, out any) error
	SendJSON(ctx context.Context, method, path string, in, out any) error
}

type Store struct {
	api Backend
}

func NewStore(api Backend) *Store {
	return &Store{api: api}
}

func (s *Store) Report(ctx context.Context, departmentID string, p Period) ([]ReportRow, error) {
	path := "/salaries/department/report"
	body := map[string]string{"departmentId": departmentID, "year": p.Year}
	if p.Kind == Quarterly {
		path = "/salaries/department/quarterly-report"
		body["quarter"] = p.Quarter
	} else {
		body["month"] = p.Month
	}
	var rows []ReportRow
	if err := s.api.SendJSON(ctx, http.MethodPost, path, body, &rows); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []ReportRow{}
	}
	return rows, nil
}

func (s *Store) AddPayment(ctx context.Context, p NewPayment) error {
	return s.api.SendJSON(ctx, http.MethodPost, "/salaries/add", p, nil)
}

func (s *Store) Payments(ctx context.Context, employeeID string) ([]Payment, error) {
	var out []Payment
	if err := s.api.GetJSON(ctx, "/salaries/employee/"+url.PathEscape(employeeID), nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Payment{}
	}
	return out, nil
}

func (s *Store) Bonuses(ctx context.Context, departmentID string, p Period) ([]BonusSummary, error) {
	body := map[string]string{"year": p.Year, "month": p.Month}
	var out []BonusSummary
	if err := s.api.SendJSON(ctx, http.MethodPost, "/bonus_salaries/department/"+url.PathEscape(departmentID), body, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []BonusSummary{}
	}
	return out, nil
}

func (s *Store) AddBonus(ctx context.Context, b NewBonus) error {
	return s.api.SendJSON(ctx, http.MethodPost, "/bonus_salaries/add", b, nil)
}
