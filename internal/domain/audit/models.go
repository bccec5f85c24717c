package audit

import (
	"encoding/json"
	"errors"
	"time"
)

// TimestampLayout is how the backend renders log times.
const TimestampLayout = "02/01/2006, 15:04:05"

// Log is an append-only activity entry written by the backend.
type Log struct {
	ID                string          `json:"_id"`
	UserID            string          `json:"userId"`
	UserPhone         string          `json:"userPhone"`
	Action            string          `json:"action"`
	AffectedUserID    *string         `json:"affected_userId"`
	AffectedUserPhone string          `json:"affected_userPhone"`
	OldData           json.RawMessage `json:"old_data,omitempty"`
	NewData           json.RawMessage `json:"new_data,omitempty"`
	Timestamp         string          `json:"timestamp"`
	RoleName          string          `json:"roleName"`
}

// Time parses the display timestamp in loc; unparsable values sort first.
func (l Log) Time(loc *time.Location) time.Time {
	t, err := time.ParseInLocation(TimestampLayout, l.Timestamp, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

var (
	ErrDatesRequired  = errors.New("Both dates are required.")
	ErrStartInFuture  = errors.New("Start date cannot be in the future.")
	ErrEndInFuture    = errors.New("End date cannot be in the future.")
	ErrStartTooOld    = errors.New("Start date cannot be more than 2 months ago.")
	ErrEndBeforeStart = errors.New("End date cannot be earlier than start date.")
)

// FieldError ties a download range violation to its form field.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Err.Error() }
func (e *FieldError) Unwrap() error { return e.Err }

type DownloadRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// MaxLookbackMonths bounds how far back an export may start.
const MaxLookbackMonths = 2

// ValidateDownload checks an export range: both dates present, neither in
// the future, start at most two months back and end not before start.
func ValidateDownload(start, end string, now time.Time, loc *time.Location) (DownloadRange, error) {
	if loc == nil {
		loc = time.UTC
	}
	if start == "" || end == "" {
		field := "startDate"
		if start != "" {
			field = "endDate"
		}
		return DownloadRange{}, &FieldError{Field: field, Err: ErrDatesRequired}
	}
	s, err := time.ParseInLocation(time.DateOnly, start, loc)
	if err != nil {
		return DownloadRange{}, &FieldError{Field: "startDate", Err: err}
	}
	e, err := time.ParseInLocation(time.DateOnly, end, loc)
	if err != nil {
		return DownloadRange{}, &FieldError{Field: "endDate", Err: err}
	}
	now = now.In(loc)
	switch {
	case s.After(now):
		return DownloadRange{}, &FieldError{Field: "startDate", Err: ErrStartInFuture}
	case e.After(now):
		return DownloadRange{}, &FieldError{Field: "endDate", Err: ErrEndInFuture}
	case s.Before(now.AddDate(0, -MaxLookbackMonths, 0)):
		return DownloadRange{}, &FieldError{Field: "startDate", Err: ErrStartTooOld}
	case e.Before(s):
		return DownloadRange{}, &FieldError{Field: "endDate", Err: ErrEndBeforeStart}
	}
	return DownloadRange{StartDate: start, EndDate: end}, nil
}
