package leave

import (
	"context"
	"time"
)

type Service struct {
	store *Store
	now   func() time.Time
}

func NewService(store *Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}
}

func (s *Service) Store() *Store {
	return s.store
}

// Overview is the employee leave page: history plus this month's balance.
type Overview struct {
	Requests  []Request `json:"-"`
	Remaining int       `json:"remainingLeaveDays"`
	CanCreate bool      `json:"canCreate"`
}

func (s *Service) Overview(ctx context.Context, employeeID string) (Overview, error) {
	requests, err := s.store.History(ctx, employeeID)
	if err != nil {
		return Overview{}, err
	}
	remaining, err := s.store.Remaining(ctx, employeeID, s.now())
	if err != nil {
		return Overview{}, err
	}
	return Overview{Requests: requests, Remaining: remaining, CanCreate: remaining > 0}, nil
}

// Create files a request for employeeID. The form's id is always the caller.
func (s *Service) Create(ctx context.Context, employeeID string, form Create) (map[string]any, error) {
	remaining, err := s.store.Remaining(ctx, employeeID, s.now())
	if err != nil {
		return nil, err
	}
	if remaining <= 0 {
		return nil, ErrNoDaysLeft
	}
	form.EmployeeID = employeeID
	return s.store.Create(ctx, form)
}

// Managed returns either every request of the manager or only pending ones.
func (s *Service) Managed(ctx context.Context, managerID string, pendingOnly bool) ([]Request, error) {
	if pendingOnly {
		return s.store.Pending(ctx, managerID)
	}
	return s.store.Managed(ctx, managerID)
}
