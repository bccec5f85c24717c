package shared

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDate accepts RFC3339 or YYYY-MM-DD; plain dates are read in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.ParseInLocation(time.DateOnly, value, loc)
}

// ParseYearMonth reads the year/month selectors of the salary and report
// pages. Missing values fall back to now.
func ParseYearMonth(year, month string, now time.Time) (int, int, error) {
	y, m := now.Year(), int(now.Month())
	if strings.TrimSpace(year) != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(year))
		if err != nil || parsed < 1970 || parsed > 9999 {
			return 0, 0, fmt.Errorf("invalid year %q", year)
		}
		y = parsed
	}
	if strings.TrimSpace(month) != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(month))
		if err != nil || parsed < 1 || parsed > 12 {
			return 0, 0, fmt.Errorf("invalid month %q", month)
		}
		m = parsed
	}
	return y, m, nil
}
