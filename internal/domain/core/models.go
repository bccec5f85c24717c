package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnchanged = errors.New("nothing changed")
	ErrNotFound  = errors.New("not found")
)

const (
	GenderMale   = "Nam"
	GenderFemale = "Nữ"
)

// Ref points at a department, position or role. The backend sends it either
// populated ({_id, name}) or as a bare id; both decode into a Ref and it is
// always encoded object-shaped.
type Ref struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Ref{}
		return nil
	}
	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Ref{ID: id}
		return nil
	}
	var obj struct {
		ID    string `json:"_id"`
		AltID string `json:"id"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("reference must be an id or {_id, name}: %w", err)
	}
	if obj.ID == "" {
		obj.ID = obj.AltID
	}
	*r = Ref{ID: obj.ID, Name: obj.Name}
	return nil
}

func (r Ref) Empty() bool {
	return r.ID == ""
}

type Employee struct {
	ID         string    `json:"_id"`
	FullName   string    `json:"fullName"`
	Dob        time.Time `json:"dob,omitzero"`
	Gender     string    `json:"gender"`
	Address    string    `json:"address"`
	Phone      string    `json:"phone"`
	Department Ref       `json:"departmentId"`
	Position   Ref       `json:"positionId"`
	Role       Ref       `json:"roleId"`
	BaseSalary float64   `json:"base_salary"`
	StartDate  time.Time `json:"startDate,omitzero"`
	AvatarURL  string    `json:"avatarUrl,omitempty"`
}

type Department struct {
	ID                string `json:"_id"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	NumberOfEmployees int    `json:"numberOfEmployees"`
}

type Position struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// Roster is the backend answer for one department's staff.
type Roster struct {
	NumberOfEmployees int        `json:"NumberOfEmployees"`
	Employees         []Employee `json:"employees"`
}

// ResolveRefs fills missing names of id-only references from the lookup
// lists so the dashboard always renders names.
func ResolveRefs(emp *Employee, departments []Department, positions []Position) {
	if emp.Department.Name == "" && emp.Department.ID != "" {
		for _, d := range departments {
			if d.ID == emp.Department.ID {
				emp.Department.Name = d.Name
				break
			}
		}
	}
	if emp.Position.Name == "" && emp.Position.ID != "" {
		for _, p := range positions {
			if p.ID == emp.Position.ID {
				emp.Position.Name = p.Name
				break
			}
		}
	}
}
