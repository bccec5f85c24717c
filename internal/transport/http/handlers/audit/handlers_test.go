package audithandler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"managerhr/internal/domain/audit"
	"managerhr/internal/domain/session"
	"managerhr/internal/platform/export"
	"managerhr/internal/transport/http/handlers/handlertest"
)

var now = time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)

func newHandler(t *testing.T) (*handlertest.Env, http.Handler) {
	t.Helper()
	env := handlertest.New(t, now)
	h := NewHandler(audit.NewStore(env.Client), env.Table, env.Lists, env.Respond, env.Loc)
	h.Now = func() time.Time { return now }
	return env, handlertest.Router(h)
}

func TestListNewestFirst(t *testing.T) {
	env, h := newHandler(t)
	env.Backend.JSON(http.MethodGet, "/activity_logs", http.StatusOK, []map[string]any{
		{"_id": "1", "userPhone": "0900000001", "action": "login", "timestamp": "02/05/2025, 08:00:00", "roleName": "Admin"},
		{"_id": "2", "userPhone": "0900000002", "action": "update", "timestamp": "15/05/2025, 17:30:00", "roleName": "Employee"},
		{"_id": "3", "userPhone": "0900000001", "action": "logout", "timestamp": "10/05/2025, 12:00:00", "roleName": "Admin"},
	})
	req := env.As(t, httptest.NewRequest(http.MethodGet, "/activity-logs/", nil), session.RoleAdmin, "admin-1")
	rec := handlertest.Serve(h, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var page struct {
		Items []audit.Log `json:"items"`
	}
	_ = json.Unmarshal(handlertest.Decode(t, rec).Data, &page)
	var ids []string
	for _, l := range page.Items {
		ids = append(ids, l.ID)
	}
	if strings.Join(ids, ",") != "2,3,1" {
		t.Fatalf("expected newest first, got %v", ids)
	}
}

func TestDownloadRangeErrorsNameTheirField(t *testing.T) {
	env, h := newHandler(t)
	cases := map[string]struct {
		body  string
		field string
	}{
		"missing end":  {`{"startDate":"2025-05-01"}`, "endDate"},
		"future start": {`{"startDate":"2025-06-01","endDate":"2025-06-02"}`, "startDate"},
		"future end":   {`{"startDate":"2025-05-01","endDate":"2025-05-21"}`, "endDate"},
		"too old":      {`{"startDate":"2025-03-01","endDate":"2025-05-01"}`, "startDate"},
		"reversed":     {`{"startDate":"2025-05-10","endDate":"2025-05-01"}`, "endDate"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := env.As(t, httptest.NewRequest(http.MethodPost, "/activity-logs/download", strings.NewReader(tc.body)), session.RoleAdmin, "admin-1")
			rec := handlertest.Serve(h, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if fields := handlertest.Decode(t, rec).Fields(); len(fields) != 1 || fields[0] != tc.field {
				t.Fatalf("expected %s, got %v", tc.field, fields)
			}
		})
	}
	if env.Backend.Called(http.MethodPost, "/activity_logs/download") != 0 {
		t.Fatal("expected no download to reach the backend")
	}
}

func TestDownloadPassesWorkbookThrough(t *testing.T) {
	env, h := newHandler(t)
	env.Backend.Handle(http.MethodPost, "/activity_logs/download", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", export.ContentTypeXLSX)
		_, _ = w.Write([]byte("PK-workbook"))
	})
	req := env.As(t, httptest.NewRequest(http.MethodPost, "/activity-logs/download", strings.NewReader(`{"startDate":"2025-04-01","endDate":"2025-05-01"}`)), session.RoleAdmin, "admin-1")
	rec := handlertest.Serve(h, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "PK-workbook" {
		t.Fatalf("expected workbook bytes, got %q", rec.Body.String())
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "activity_logs_2025-04-01_2025-05-01.xlsx") {
		t.Fatalf("unexpected disposition %q", got)
	}
	calls := env.Backend.Calls()
	if body := calls[len(calls)-1].Body; !strings.Contains(body, `"data":{"startDate":"2025-04-01","endDate":"2025-05-01"}`) {
		t.Fatalf("unexpected upstream body %s", body)
	}
}

func TestLogsAreAdminOnly(t *testing.T) {
	env, h := newHandler(t)
	req := env.As(t, httptest.NewRequest(http.MethodGet, "/activity-logs/", nil), session.RoleEmployee, "e1")
	if rec := handlertest.Serve(h, req); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
