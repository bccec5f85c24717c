package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"managerhr/internal/domain/access"
	"managerhr/internal/domain/session"
	"managerhr/internal/platform/upstream"
)

func TestRequestIDMiddleware(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) == "" {
			t.Fatal("expected request id in context")
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") != "abc-123" {
		t.Fatalf("expected caller id kept, got %q", rec.Header().Get("X-Request-ID"))
	}
}

type fakeCookies struct {
	sid     string
	expired bool
}

func (f *fakeCookies) SessionID(*http.Request) (string, bool) { return f.sid, f.sid != "" }
func (f *fakeCookies) Expire(http.ResponseWriter)             { f.expired = true }

type fakeSessions map[string]session.Session

func (f fakeSessions) Get(_ context.Context, id string) (session.Session, error) {
	sess, ok := f[id]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	return sess, nil
}

func TestSessionLoader(t *testing.T) {
	sessions := fakeSessions{"s1": {ID: "s1", UserID: "u1", Role: session.RoleAdmin, AccessToken: "tok"}}

	var seen session.Session
	var sid string
	handler := Session(&fakeCookies{sid: "s1"}, sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetSession(r.Context())
		sid, _ = upstream.SessionFrom(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if seen.UserID != "u1" || sid != "s1" {
		t.Fatalf("expected session in context, got %+v sid=%q", seen, sid)
	}

	gone := &fakeCookies{sid: "missing"}
	handler = Session(gone, sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetSession(r.Context()); ok {
			t.Fatal("did not expect a session")
		}
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !gone.expired {
		t.Fatal("expected stale cookie to be expired")
	}
}

func TestRequirePage(t *testing.T) {
	table, err := access.Load("/managerHR")
	if err != nil {
		t.Fatalf("load table: %v", err)
	}
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	guarded := RequirePage(table, "employees")(ok)

	tests := []struct {
		name     string
		sess     *session.Session
		status   int
		redirect string
	}{
		{name: "anonymous", status: http.StatusUnauthorized, redirect: "/managerHR/login"},
		{name: "employee", sess: &session.Session{ID: "s", UserID: "u", Role: session.RoleEmployee, AccessToken: "t"}, status: http.StatusForbidden, redirect: "/managerHR/forbidden"},
		{name: "admin", sess: &session.Session{ID: "s", UserID: "u", Role: session.RoleAdmin, AccessToken: "t"}, status: http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/managerHR/api/employees", nil)
			if tc.sess != nil {
				req = req.WithContext(WithSession(req.Context(), *tc.sess))
			}
			rec := httptest.NewRecorder()
			guarded.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if tc.redirect != "" && !strings.Contains(rec.Body.String(), `"redirect":"`+tc.redirect+`"`) {
				t.Fatalf("expected redirect %s, got %s", tc.redirect, rec.Body.String())
			}
		})
	}
}

func TestRecovererAnswers500(t *testing.T) {
	handler := Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), "internal_error") {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestRequestHashDeterministic(t *testing.T) {
	if RequestHash([]byte("payload")) != RequestHash([]byte("payload")) {
		t.Fatal("expected deterministic hash")
	}
	if RequestHash([]byte("payload")) == RequestHash([]byte("other")) {
		t.Fatal("expected different hash for different payload")
	}
}

func idempotentRequest(ctx context.Context, key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/managerHR/api/salaries/pay", bytes.NewBufferString(body)).WithContext(ctx)
	req.Header.Set(IdempotencyHeader, key)
	return req
}

func TestIdempotentReplaysAndRejectsConflicts(t *testing.T) {
	var calls atomic.Int32
	handler := Idempotent(NewMemoryIdempotencyStore())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]int{"paid": 3})
	}))
	ctx := WithSession(context.Background(), session.Session{ID: "s1", UserID: "u1", Role: session.RoleAdmin, AccessToken: "t"})

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, idempotentRequest(ctx, "k1", `{"ids":["a"]}`))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, idempotentRequest(ctx, "k1", `{"ids":["a"]}`))

	if calls.Load() != 1 {
		t.Fatalf("expected one execution, got %d", calls.Load())
	}
	if second.Code != http.StatusCreated || second.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replayed 201, got %d", second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("expected identical bodies, got %q and %q", first.Body.String(), second.Body.String())
	}

	conflict := httptest.NewRecorder()
	handler.ServeHTTP(conflict, idempotentRequest(ctx, "k1", `{"ids":["b"]}`))
	if conflict.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", conflict.Code)
	}
}

func TestIdempotentCollapsesConcurrentDuplicates(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	handler := Idempotent(NewMemoryIdempotencyStore())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	ctx := WithSession(context.Background(), session.Session{ID: "s1", UserID: "u1", Role: session.RoleAdmin, AccessToken: "t"})

	var wg sync.WaitGroup
	codes := make([]int, 4)
	for i := range codes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, idempotentRequest(ctx, "k2", `{}`))
			codes[i] = rec.Code
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("expected one execution for concurrent duplicates, got %d", calls.Load())
	}
	for _, code := range codes {
		if code != http.StatusOK {
			t.Fatalf("expected every caller to get 200, got %v", codes)
		}
	}
}

func TestMemoryIdempotencyExpiry(t *testing.T) {
	store := NewMemoryIdempotencyStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }
	if err := store.Save(context.Background(), "s", "POST /x", "k", IdempotentResponse{RequestHash: "h", Status: 200, Body: []byte(`{}`)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	removed, err := store.DeleteBefore(context.Background(), base.Add(time.Hour))
	if err != nil || removed != 1 {
		t.Fatalf("expected one removal, got %d %v", removed, err)
	}
}
