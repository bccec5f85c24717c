package attendance

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	responses map[string]string
	calls     []string
	bodies    map[string]any
}

func (f *fakeBackend) reply(key string, out any) error {
	f.calls = append(f.calls, key)
	raw, ok := f.responses[key]
	if !ok || out == nil {
		return nil
	}
	return json.Unmarshal([]byte(raw), out)
}

func (f *fakeBackend) GetJSON(_ context.Context, path string, _ url.Values, out any) error {
	return f.reply("GET "+path, out)
}

func (f *fakeBackend) SendJSON(_ context.Context, method, path string, in, out any) error {
	if f.bodies == nil {
		f.bodies = map[string]any{}
	}
	f.bodies[method+" "+path] = in
	return f.reply(method+" "+path, out)
}

func TestCurrentDistinguishesMessageFromRecord(t *testing.T) {
	backend := &fakeBackend{responses: map[string]string{
		"GET /attendances/getCheckIn/u1": `{"message":"Chưa check-in"}`,
		"GET /attendances/getCheckIn/u2": `{"_id":"a1","timeIn":"2025-03-10T01:00:00.000Z","timeOut":null}`,
	}}
	store := NewStore(backend)

	rec, err := store.Current(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = store.Current(context.Background(), "u2")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "a1", rec.ID)
	assert.False(t, rec.CheckedOut())
}

func TestRangeSendsDates(t *testing.T) {
	backend := &fakeBackend{responses: map[string]string{
		"POST /attendances/employee/u1": `{"details":[{"timeIn":"2025-03-03T01:00:00Z","timeOut":"2025-03-03T11:00:00Z"}],"totalWorkHours":9,"totalOTHours":1}`,
	}}
	r, err := ParseRange("2025-03-01", "2025-03-31", ict)
	require.NoError(t, err)

	out, err := NewStore(backend).Range(context.Background(), "u1", r)
	require.NoError(t, err)
	require.Len(t, out.Details, 1)
	assert.Equal(t, map[string]string{"startDate": "2025-03-01", "endDate": "2025-03-31"}, backend.bodies["POST /attendances/employee/u1"])
}

func TestDepartmentReport(t *testing.T) {
	backend := &fakeBackend{responses: map[string]string{
		"GET /attendances/getDepartmentId/u1":    `{"departmentId":{"_id":"d1","name":"Kỹ thuật"}}`,
		"POST /attendances/department/d1/report": `[{"fullName":"An","positionName":"Dev","workDays":20,"totalOTHours":3.456}]`,
		"POST /attendances/check-in/u1":          `{"message":"Check-in thành công"}`,
	}}
	store := NewStore(backend)

	dept, err := store.DepartmentOf(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "d1", dept.ID)

	rows, err := store.DepartmentReport(context.Background(), dept.ID, "2025", "03")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	encoded, err := json.Marshal(rows[0])
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"totalOTHours":3.46`)

	msg, err := store.CheckIn(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Check-in thành công", msg)
}
