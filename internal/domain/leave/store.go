package leave

import (
	"context"
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

// History lists an employee's own requests.
func (s *Store) History(ctx context.Context, employeeID string) ([]Request, error) {
	var out struct {
		LeaveRequests []Request `json:"leaveRequests"`
	}
	if err := s.api.GetJSON(ctx, "/leave_requests/history/employee/"+url.PathEscape(employeeID), nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out.LeaveRequests), nil
}

// Managed lists every request a manager decides on.
func (s *Store) Managed(ctx context.Context, managerID string) ([]Request, error) {
	var out struct {
		LeaveRequests []Request `json:"leaveRequests"`
	}
	if err := s.api.GetJSON(ctx, "/leave_requests/history/manager/"+url.PathEscape(managerID), nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out.LeaveRequests), nil
}

func (s *Store) Pending(ctx context.Context, managerID string) ([]Request, error) {
	var out struct {
		PendingLeaveRequests []Request `json:"pendingLeaveRequests"`
	}
	if err := s.api.GetJSON(ctx, "/leave_requests/pending-requests/"+url.PathEscape(managerID), nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out.PendingLeaveRequests), nil
}

// Remaining reports leave days left in the month of at.
func (s *Store) Remaining(ctx context.Context, employeeID string, at time.Time) (int, error) {
	body := map[string]string{
		"month": fmt.Sprintf("%02d", int(at.Month())),
		"year":  fmt.Sprintf("%d", at.Year()),
	}
	var out struct {
		RemainingLeaveDays int `json:"remainingLeaveDays"`
	}
	if err := s.api.SendJSON(ctx, http.MethodPost, "/leave_requests/remaining-leave-days/"+url.PathEscape(employeeID), body, &out); err != nil {
		return 0, err
	}
	return out.RemainingLeaveDays, nil
}

func (s *Store) Create(ctx context.Context, form Create) (map[string]any, error) {
	var out map[string]any
	if err := s.api.SendJSON(ctx, http.MethodPost, "/leave_requests/create", form, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Decide(ctx context.Context, d Decision) (map[string]any, error) {
	var out map[string]any
	if err := s.api.SendJSON(ctx, http.MethodPut, "/leave_requests/update", d, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func nonNil(in []Request) []Request {
	if in == nil {
		return []Request{}
	}
	return in
}
