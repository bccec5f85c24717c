package leave

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	responses map[string]string
	sent      map[string]any
}

func (f *fakeBackend) answer(key string, out any) error {
	if raw, ok := f.responses[key]; ok && out != nil {
		return json.Unmarshal([]byte(raw), out)
	}
	return nil
}

func (f *fakeBackend) GetJSON(_ context.Context, path string, _ url.Values, out any) error {
	return f.answer("GET "+path, out)
}

func (f *fakeBackend) SendJSON(_ context.Context, method, path string, in, out any) error {
	if f.sent == nil {
		f.sent = map[string]any{}
	}
	f.sent[method+" "+path] = in
	return f.answer(method+" "+path, out)
}

func fixedNow() time.Time {
	return time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)
}

func TestOverviewCombinesHistoryAndBalance(t *testing.T) {
	backend := &fakeBackend{responses: map[string]string{
		"GET /leave_requests/history/employee/u1": `{"leaveRequests":[
			{"_id":"l1","employeeId":{"fullName":"An"},"leave_reason":"Nghỉ ốm","start_date":"2025-03-03T00:00:00Z","end_date":"2025-03-04T00:00:00Z","status":"approved"}
		]}`,
		"POST /leave_requests/remaining-leave-days/u1": `{"remainingLeaveDays":2}`,
	}}
	overview, err := NewService(NewStore(backend), fixedNow).Overview(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, overview.Requests, 1)
	assert.Equal(t, 2, overview.Requests[0].Days())
	assert.True(t, overview.CanCreate)
	assert.Equal(t, map[string]string{"month": "03", "year": "2025"}, backend.sent["POST /leave_requests/remaining-leave-days/u1"])
}

func TestCreateRequiresRemainingDaysAndForcesCaller(t *testing.T) {
	backend := &fakeBackend{responses: map[string]string{
		"POST /leave_requests/remaining-leave-days/u1": `{"remainingLeaveDays":0}`,
		"POST /leave_requests/remaining-leave-days/u2": `{"remainingLeaveDays":1}`,
		"POST /leave_requests/create":                  `{"message":"created"}`,
	}}
	svc := NewService(NewStore(backend), fixedNow)
	form := Create{EmployeeID: "someone-else", Reason: "Nghỉ phép", StartDate: "2025-03-20", EndDate: "2025-03-20"}

	_, err := svc.Create(context.Background(), "u1", form)
	assert.ErrorIs(t, err, ErrNoDaysLeft)

	_, err = svc.Create(context.Background(), "u2", form)
	require.NoError(t, err)
	sent := backend.sent["POST /leave_requests/create"].(Create)
	assert.Equal(t, "u2", sent.EmployeeID)

	encoded, err := json.Marshal(sent)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"u2","leave_reason":"Nghỉ phép","start_date":"2025-03-20","end_date":"2025-03-20"}`, string(encoded))
}

func TestManagedSwitchesSource(t *testing.T) {
	backend := &fakeBackend{responses: map[string]string{
		"GET /leave_requests/history/manager/m1":  `{"leaveRequests":[{"_id":"a","status":"approved"},{"_id":"b","status":"pending"}]}`,
		"GET /leave_requests/pending-requests/m1": `{"pendingLeaveRequests":[{"_id":"b","status":"pending"}]}`,
	}}
	svc := NewService(NewStore(backend), fixedNow)

	all, err := svc.Managed(context.Background(), "m1", false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := svc.Managed(context.Background(), "m1", true)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].Pending())
}

func TestEmptyHistoryIsNotNil(t *testing.T) {
	backend := &fakeBackend{responses: map[string]string{
		"GET /leave_requests/history/employee/u1": `{}`,
	}}
	requests, err := NewStore(backend).History(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, requests)
}

func TestDaysOfInvertedRange(t *testing.T) {
	r := Request{StartDate: fixedNow(), EndDate: fixedNow().AddDate(0, 0, -1)}
	assert.Equal(t, 0, r.Days())
}
