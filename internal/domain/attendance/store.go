package attendance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
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

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Store) CheckIn(ctx context.Context, userID string) (string, error) {
	var out messageResponse
	if err := s.api.SendJSON(ctx, http.MethodPost, "/attendances/check-in/"+url.PathEscape(userID), nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (s *Store) CheckOut(ctx context.Context, userID string) (string, error) {
	var out messageResponse
	if err := s.api.SendJSON(ctx, http.MethodPost, "/attendances/check-out/"+url.PathEscape(userID), nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Current returns today's record, or nil when the backend answers with a
// message because the employee has not checked in.
func (s *Store) Current(ctx context.Context, userID string) (*Record, error) {
	var raw json.RawMessage
	if err := s.api.GetJSON(ctx, "/attendances/getCheckIn/"+url.PathEscape(userID), nil, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var probe struct {
		Message string     `json:"message"`
		TimeIn  *time.Time `json:"timeIn"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("decode check-in: %w", err)
	}
	if probe.TimeIn == nil {
		return nil, nil
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode check-in: %w", err)
	}
	return &rec, nil
}

func (s *Store) Range(ctx context.Context, userID string, r Range) (RangeResult, error) {
	body := map[string]string{
		"startDate": r.Start.Format(time.DateOnly),
		"endDate":   r.End.Format(time.DateOnly),
	}
	var out RangeResult
	if err := s.api.SendJSON(ctx, http.MethodPost, "/attendances/employee/"+url.PathEscape(userID), body, &out); err != nil {
		return RangeResult{}, err
	}
	return out, nil
}

type Department struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// DepartmentOf resolves the department a user manages or belongs to.
func (s *Store) DepartmentOf(ctx context.Context, userID string) (Department, error) {
	var out struct {
		DepartmentID Department `json:"departmentId"`
	}
	if err := s.api.GetJSON(ctx, "/attendances/getDepartmentId/"+url.PathEscape(userID), nil, &out); err != nil {
		return Department{}, err
	}
	return out.DepartmentID, nil
}

func (s *Store) DepartmentReport(ctx context.Context, departmentID, year, month string) ([]DepartmentRow, error) {
	body := map[string]string{"year": year, "month": month}
	var rows []DepartmentRow
	path := "/attendances/department/" + url.PathEscape(departmentID) + "/report"
	if err := s.api.SendJSON(ctx, http.MethodPost, path, body, &rows); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []DepartmentRow{}
	}
	return rows, nil
}
