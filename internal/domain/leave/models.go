package leave

import (
	"errors"
	"time"
)

var ErrNoDaysLeft = errors.New("no leave days left this month")

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

// Reasons are the fixed leave categories the backend accepts.
var Reasons = []string{
	"Nghỉ ốm",
	"Nghỉ phép",
	"Nghỉ thai sản",
	"Nghỉ cưới",
	"Nghỉ không lương",
}

// Requester is the populated employee on a leave request.
type Requester struct {
	ID       string `json:"_id,omitempty"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone,omitempty"`
	Gender   string `json:"gender,omitempty"`
}

type Request struct {
	ID        string    `json:"_id"`
	Employee  Requester `json:"employeeId"`
	Reason    string    `json:"leave_reason"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createAt,omitzero"`
}

func (r Request) Pending() bool {
	return r.Status == StatusPending
}

// Days counts calendar days covered, both ends included.
func (r Request) Days() int {
	if r.StartDate.IsZero() || r.EndDate.IsZero() || r.EndDate.Before(r.StartDate) {
		return 0
	}
	return int(r.EndDate.Sub(r.StartDate).Hours()/24) + 1
}

// Create is the new leave request form.
type Create struct {
	EmployeeID string `json:"id" validate:"required"`
	Reason     string `json:"leave_reason" validate:"required,oneof='Nghỉ ốm' 'Nghỉ phép' 'Nghỉ thai sản' 'Nghỉ cưới' 'Nghỉ không lương'"`
	StartDate  string `json:"start_date" validate:"required,isodate"`
	EndDate    string `json:"end_date" validate:"required,isodate,gtedatefield=StartDate"`
}

// Decision approves or denies a pending request.
type Decision struct {
	ID     string `json:"id" validate:"required"`
	Status Status `json:"status" validate:"required,oneof=approved denied"`
}
