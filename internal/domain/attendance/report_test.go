package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d, hour, minute int) time.Time {
	return time.Date(2025, 3, d, hour, minute, 0, 0, ict)
}

func marchRecords() []Record {
	return []Record{
		{TimeIn: day(3, 8, 0), TimeOut: ptr(day(3, 18, 0))},
		{TimeIn: day(4, 8, 0), TimeOut: ptr(day(4, 20, 0))},
		{TimeIn: day(4, 21, 0), TimeOut: ptr(day(4, 22, 0))},
		{TimeIn: day(8, 9, 0)},
	}
}

func TestBuildReportListsEveryDayInclusive(t *testing.T) {
	r, err := ParseRange("2025-03-01", "2025-03-09", ict)
	require.NoError(t, err)

	rep := BuildReport(marchRecords(), r, RangeCeiling, ict, false)
	require.Len(t, rep.Days, 9)
	assert.Equal(t, "2025-03-01", rep.Days[0].Date)
	assert.Equal(t, "2025-03-09", rep.Days[8].Date)

	statuses := make([]DayStatus, 0, len(rep.Days))
	for _, d := range rep.Days {
		statuses = append(statuses, d.Status)
	}
	assert.Equal(t, []DayStatus{
		DayWeekend, DayWeekend, DayWorked, DayWorked, DayAbsent, DayAbsent, DayAbsent, DayWorked, DayWeekend,
	}, statuses)

	// 10h-1 and 12h-1 with the later evening record on the 4th ignored.
	assert.InDelta(t, 20.0, float64(rep.TotalWorkHours), 1e-9)
	assert.Equal(t, 1+3, rep.TotalOTHours)
	assert.Equal(t, 3, rep.WorkedDays)
	assert.Equal(t, "09:00:00", rep.Days[7].CheckIn)
	assert.Empty(t, rep.Days[7].CheckOut)
}

func TestBuildReportWorkingDaysOnly(t *testing.T) {
	r, err := ParseRange("2025-03-01", "2025-03-09", ict)
	require.NoError(t, err)

	rep := BuildReport(marchRecords(), r, LunchBucketed, ict, true)
	require.Len(t, rep.Days, 3)
	for _, d := range rep.Days {
		assert.Equal(t, DayWorked, d.Status)
	}
	assert.Equal(t, Hours(16), rep.TotalWorkHours)
	assert.Equal(t, 2+2, rep.TotalOTHours)
	assert.Equal(t, "lunch-bucketed", rep.Rule)
}

func TestBuildReportMatchesByZoneDate(t *testing.T) {
	// 18:00Z on the 2nd is 01:00 on the 3rd in ICT.
	rec := Record{TimeIn: time.Date(2025, 3, 2, 18, 0, 0, 0, time.UTC)}
	r, err := ParseRange("2025-03-02", "2025-03-03", ict)
	require.NoError(t, err)

	rep := BuildReport([]Record{rec}, r, RangeCeiling, ict, false)
	assert.Equal(t, DayWeekend, rep.Days[0].Status)
	assert.Equal(t, DayWorked, rep.Days[1].Status)
}

func TestRangeValidation(t *testing.T) {
	_, err := ParseRange("2025-03-10", "2025-03-01", ict)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = ParseRange("2024-01-01", "2025-03-01", ict)
	assert.ErrorIs(t, err, ErrRangeTooLong)

	_, err = ParseRange("2025-13-01", "2025-03-01", ict)
	assert.Error(t, err)

	single, err := ParseRange("2025-03-05", "2025-03-05", ict)
	require.NoError(t, err)
	assert.Len(t, BuildReport(nil, single, RangeCeiling, ict, false).Days, 1)
}
