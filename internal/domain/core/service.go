package core

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

const rosterConcurrency = 4

type Service struct {
	store *Store
	loc   *time.Location
}

func NewService(store *Store, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, loc: loc}
}

func (s *Service) Store() *Store {
	return s.store
}

// Directory loads employees with their reference names resolved.
func (s *Service) Directory(ctx context.Context) ([]Employee, error) {
	var (
		employees   []Employee
		departments []Department
		positions   []Position
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		employees, err = s.store.ListEmployees(gctx)
		return err
	})
	g.Go(func() (err error) {
		departments, err = s.store.ListDepartments(gctx)
		return err
	})
	g.Go(func() (err error) {
		positions, err = s.store.ListPositions(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i := range employees {
		ResolveRefs(&employees[i], departments, positions)
	}
	return employees, nil
}

// Departments loads departments and counts each one's staff, at most
// rosterConcurrency rosters at a time.
func (s *Service) Departments(ctx context.Context) ([]Department, error) {
	departments, err := s.store.ListDepartments(ctx)
	if err != nil {
		return nil, err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rosterConcurrency)
	for i := range departments {
		g.Go(func() error {
			roster, err := s.store.DepartmentRoster(gctx, departments[i].ID)
			if err != nil {
				return fmt.Errorf("roster of department %s: %w", departments[i].ID, err)
			}
			departments[i].NumberOfEmployees = roster.NumberOfEmployees
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return departments, nil
}

func (s *Service) findDepartment(ctx context.Context, id string) (Department, error) {
	departments, err := s.store.ListDepartments(ctx)
	if err != nil {
		return Department{}, err
	}
	for _, d := range departments {
		if d.ID == id {
			return d, nil
		}
	}
	return Department{}, ErrNotFound
}

// UpdateDepartment refuses an edit that leaves name and description as they were.
func (s *Service) UpdateDepartment(ctx context.Context, id string, form DepartmentForm) (Department, error) {
	current, err := s.findDepartment(ctx, id)
	if err != nil {
		return Department{}, err
	}
	edit := DepartmentEdit{
		Initial: DepartmentForm{Name: current.Name, Description: current.Description},
		Current: form,
	}
	if !edit.CanSubmit() {
		return Department{}, ErrUnchanged
	}
	return s.store.UpdateDepartment(ctx, id, form)
}

// ProfileChanges compares a submitted profile with the stored employee.
func (s *Service) ProfileChanges(ctx context.Context, id string, form ProfileEdit) ([]string, error) {
	emp, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	return form.Changed(ProfileFrom(emp, s.loc)), nil
}

// AdminUpdate dispatches ids upstream and answers with populated references.
func (s *Service) AdminUpdate(ctx context.Context, id string, edit AdminEdit) (Employee, error) {
	emp, err := s.store.AdminUpdate(ctx, id, edit)
	if err != nil {
		return Employee{}, err
	}
	if emp.ID == "" {
		emp.ID = id
	}
	if emp.Department.Empty() {
		emp.Department = edit.Department
	}
	if emp.Position.Empty() {
		emp.Position = edit.Position
	}
	if emp.Department.Name != "" && emp.Position.Name != "" {
		return emp, nil
	}
	departments, err := s.store.ListDepartments(ctx)
	if err != nil {
		return emp, nil
	}
	positions, err := s.store.ListPositions(ctx)
	if err != nil {
		return emp, nil
	}
	ResolveRefs(&emp, departments, positions)
	return emp, nil
}
