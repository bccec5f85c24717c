package core

import (
	"context"
	"net/http"
	"net/url"

	"managerhr/internal/platform/upstream"
)

// Backend is the part of the upstream client the store uses.
type Backend interface {
	GetJSON(ctx context.Context, path string, query url.Values, out any) error
	SendJSON(ctx context.Context, method, path string, in, out any) error
	SendMultipart(ctx context.Context, method, path string, form any, files []upstream.File, out any) error
	Download(ctx context.Context, method, path string, in any) (*upstream.Binary, error)
}

// Store reaches employees, departments and positions on the HR backend.
type Store struct {
	api Backend
}

func NewStore(api Backend) *Store {
	return &Store{api: api}
}

func (s *Store) ListEmployees(ctx context.Context) ([]Employee, error) {
	var out []Employee
	if err := s.api.GetJSON(ctx, "/employees", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) GetEmployee(ctx context.Context, id string) (Employee, error) {
	var out Employee
	if err := s.api.GetJSON(ctx, "/employees/"+url.PathEscape(id), nil, &out); err != nil {
		return Employee{}, err
	}
	if out.ID == "" {
		return Employee{}, ErrNotFound
	}
	return out, nil
}

func (s *Store) Register(ctx context.Context, form Registration, avatar *upstream.File) (map[string]any, error) {
	var out map[string]any
	if err := s.api.SendMultipart(ctx, http.MethodPost, "/auth/register", form, files(avatar), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) UpdateProfile(ctx context.Context, id string, form ProfileEdit, avatar *upstream.File) (Employee, error) {
	var out Employee
	if err := s.api.SendMultipart(ctx, http.MethodPost, "/employees/"+url.PathEscape(id), form, files(avatar), &out); err != nil {
		return Employee{}, err
	}
	return out, nil
}

func (s *Store) AdminUpdate(ctx context.Context, id string, edit AdminEdit) (Employee, error) {
	var out Employee
	if err := s.api.SendJSON(ctx, http.MethodPost, "/employees/admin/"+url.PathEscape(id), edit.Dispatch(), &out); err != nil {
		return Employee{}, err
	}
	return out, nil
}

func (s *Store) DeleteEmployee(ctx context.Context, id string) error {
	return s.api.SendJSON(ctx, http.MethodDelete, "/employees/admin/"+url.PathEscape(id), nil, nil)
}

func (s *Store) Backup(ctx context.Context) (*upstream.Binary, error) {
	return s.api.Download(ctx, http.MethodGet, "/employees/backupEmployee", nil)
}

func (s *Store) Restore(ctx context.Context, file upstream.File) (map[string]any, error) {
	file.Field = "file"
	var out map[string]any
	if err := s.api.SendMultipart(ctx, http.MethodPost, "/employees/restoreEmployee", nil, []upstream.File{file}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListDepartments(ctx context.Context) ([]Department, error) {
	var out []Department
	if err := s.api.GetJSON(ctx, "/departments", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) DepartmentRoster(ctx context.Context, id string) (Roster, error) {
	var out Roster
	if err := s.api.GetJSON(ctx, "/departments/employees/"+url.PathEscape(id), nil, &out); err != nil {
		return Roster{}, err
	}
	if out.Employees == nil {
		out.Employees = []Employee{}
	}
	return out, nil
}

func (s *Store) CreateDepartment(ctx context.Context, form DepartmentForm) (Department, error) {
	var out Department
	if err := s.api.SendJSON(ctx, http.MethodPost, "/departments", form, &out); err != nil {
		return Department{}, err
	}
	return out, nil
}

func (s *Store) UpdateDepartment(ctx context.Context, id string, form DepartmentForm) (Department, error) {
	var out Department
	if err := s.api.SendJSON(ctx, http.MethodPut, "/departments/"+url.PathEscape(id), form, &out); err != nil {
		return Department{}, err
	}
	return out, nil
}

func (s *Store) ListPositions(ctx context.Context) ([]Position, error) {
	var out []Position
	if err := s.api.GetJSON(ctx, "/positions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func files(avatar *upstream.File) []upstream.File {
	if avatar == nil || len(avatar.Data) == 0 {
		return nil
	}
	f := *avatar
	f.Field = "avatar"
	return []upstream.File{f}
}
