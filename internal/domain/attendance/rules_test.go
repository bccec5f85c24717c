package attendance

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var ict = time.FixedZone("ICT", 7*3600)

func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 10, hour, minute, 0, 0, ict)
}

func ptr(t time.Time) *time.Time { return &t }

func TestLunchBucketed(t *testing.T) {
	tests := []struct {
		name      string
		in, out   time.Time
		workHours Hours
		otHours   int
	}{
		{name: "full day", in: at(9, 0), out: at(18, 0), workHours: 8, otHours: 0},
		{name: "overtime capped", in: at(8, 0), out: at(20, 0), workHours: 8, otHours: 2},
		{name: "one bucket", in: at(8, 0), out: at(17, 45), workHours: 8, otHours: 1},
		{name: "morning only", in: at(8, 0), out: at(11, 30), workHours: 3.5, otHours: 0},
		{name: "check-in at noon shifts to one", in: at(12, 20), out: at(17, 0), workHours: 4, otHours: 0},
		{name: "check-out at noon is noon", in: at(8, 0), out: at(12, 40), workHours: 4, otHours: 0},
		{name: "check-out exactly one keeps lunch", in: at(9, 0), out: at(13, 0), workHours: 4, otHours: 0},
		{name: "check-out just after one drops lunch", in: at(9, 0), out: at(13, 30), workHours: 3.5, otHours: 0},
		{name: "partial minutes truncate", in: at(9, 0), out: at(9, 0).Add(100 * time.Second), workHours: 0.02, otHours: 0},
		{name: "inverted clamps to zero", in: at(15, 0), out: at(9, 0), workHours: 0, otHours: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := LunchBucketed.Compute(tc.in, ptr(tc.out), ict)
			assert.Equal(t, tc.workHours, got.WorkHours)
			assert.Equal(t, tc.otHours, got.OTHours)
		})
	}
}

func TestLunchBucketedUsesZoneClock(t *testing.T) {
	// 02:00Z and 11:00Z are 09:00 and 18:00 in ICT.
	in := time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC)
	out := time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)
	assert.Equal(t, Hours(8), LunchBucketed.Compute(in, &out, ict).WorkHours)
	assert.Equal(t, Hours(8), LunchBucketed.Compute(in, &out, time.UTC).WorkHours, "02:00 to 11:00 UTC spans no lunch but still 9h capped")
}

func TestRangeCeiling(t *testing.T) {
	tests := []struct {
		name      string
		in, out   time.Time
		workHours Hours
		otHours   int
	}{
		{name: "nine hours", in: at(9, 0), out: at(18, 0), workHours: 8, otHours: 0},
		{name: "just past threshold", in: at(8, 0), out: at(17, 36), workHours: 8.6, otHours: 1},
		{name: "long day", in: at(8, 0), out: at(20, 0), workHours: 11, otHours: 3},
		{name: "under an hour", in: at(9, 0), out: at(9, 30), workHours: 0.5, otHours: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := RangeCeiling.Compute(tc.in, ptr(tc.out), ict)
			assert.InDelta(t, float64(tc.workHours), float64(got.WorkHours), 1e-9)
			assert.Equal(t, tc.otHours, got.OTHours)
		})
	}
}

func TestMissingCheckOutYieldsZero(t *testing.T) {
	for _, rule := range []Rule{LunchBucketed, RangeCeiling} {
		assert.Equal(t, Result{}, rule.Compute(at(9, 0), nil, ict), rule.Name)
	}
}

func TestRuleByName(t *testing.T) {
	rule, ok := RuleByName("range-ceiling")
	assert.True(t, ok)
	assert.Equal(t, RangeCeiling.Name, rule.Name)
	_, ok = RuleByName("fastest")
	assert.False(t, ok)
}

func TestHoursMarshalTwoDecimals(t *testing.T) {
	out, err := json.Marshal(Result{WorkHours: 8, OTHours: 1})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"workHours":8.00,"otHours":1}`, string(out))
	assert.Equal(t, "7.33", Hours(22.0/3).String())
}

func TestTodayFrom(t *testing.T) {
	open := TodayFrom(&Record{TimeIn: at(8, 5)}, LunchBucketed, ict)
	assert.True(t, open.CheckedIn)
	assert.Equal(t, "08:05:00", open.CheckIn)
	assert.Equal(t, Hours(0), open.WorkHours)

	closed := TodayFrom(&Record{TimeIn: at(9, 0), TimeOut: ptr(at(18, 0))}, LunchBucketed, ict)
	assert.False(t, closed.CheckedIn)
	assert.Equal(t, "18:00:00", closed.CheckOut)
	assert.Equal(t, Hours(8), closed.WorkHours)

	none := TodayFrom(nil, LunchBucketed, ict)
	assert.False(t, none.CheckedIn)
	assert.Nil(t, none.Record)
}
