package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"managerhr/internal/domain/session"
)

func newSession(t *testing.T, cookies ...session.Cookie) (*session.Manager, context.Context, string) {
	t.Helper()
	manager := session.NewManager(session.NewMemoryStore(), time.Hour)
	sess, err := manager.Establish(context.Background(), session.Grant{AccessToken: "old", UserID: "u1", Role: session.RoleAdmin}, cookies)
	if err != nil {
		t.Fatalf("establish: %v", err)
	}
	return manager, WithSession(context.Background(), sess.ID), sess.ID
}

func TestDoAttachesCookiesAndMergesSetCookie(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("accessToken")
		if err != nil || cookie.Value != "a1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "accessToken", Value: "a2"})
		_, _ = w.Write([]byte(`[{"_id":"e1"}]`))
	}))
	defer server.Close()

	manager, ctx, sid := newSession(t, session.Cookie{Name: "accessToken", Value: "a1"})
	client := New(server.URL, time.Second, manager)

	var out []map[string]string
	if err := client.GetJSON(ctx, "/employees", nil, &out); err != nil {
		t.Fatalf("get json: %v", err)
	}
	if len(out) != 1 || out[0]["_id"] != "e1" {
		t.Fatalf("unexpected body %v", out)
	}

	sess, _ := manager.Get(context.Background(), sid)
	if len(sess.Cookies) != 1 || sess.Cookies[0].Value != "a2" {
		t.Fatalf("expected rotated cookie stored, got %+v", sess.Cookies)
	}
}

func TestNonUnauthorizedErrorsPassThrough(t *testing.T) {
	var refreshes atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh-token" {
			refreshes.Add(1)
		}
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"not allowed"}`))
	}))
	defer server.Close()

	manager, ctx, _ := newSession(t)
	client := New(server.URL, time.Second, manager)

	err := client.GetJSON(ctx, "/activity_logs", nil, nil)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusForbidden || statusErr.Message != "not allowed" {
		t.Fatalf("expected 403 status error, got %v", err)
	}
	if refreshes.Load() != 0 {
		t.Fatal("403 must not trigger a refresh")
	}
}

func TestTransportErrorPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	manager, ctx, _ := newSession(t)
	client := New(url, time.Second, manager)
	err := client.GetJSON(ctx, "/employees", nil, nil)
	if err == nil {
		t.Fatal("expected transport error")
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) || errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected raw transport error, got %v", err)
	}
}

// concurrentUnauthorized answers 401 to stale credentials only once all n
// first attempts have arrived, so every caller observes a 401 before any
// refresh completes.
type concurrentUnauthorized struct {
	n          int32
	arrived    atomic.Int32
	gate       chan struct{}
	refreshes  atomic.Int32
	refreshOK  bool
	mu         sync.Mutex
	hits       map[string]int
	lastBodies map[string]string
}

func newConcurrentUnauthorized(n int, refreshOK bool) *concurrentUnauthorized {
	return &concurrentUnauthorized{
		n:          int32(n),
		gate:       make(chan struct{}),
		refreshOK:  refreshOK,
		hits:       map[string]int{},
		lastBodies: map[string]string{},
	}
}

func (s *concurrentUnauthorized) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/auth/refresh-token" {
		s.refreshes.Add(1)
		time.Sleep(20 * time.Millisecond)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if !s.refreshOK || body["userId"] != "u1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "accessToken", Value: "fresh"})
		_ = json.NewEncoder(w).Encode(map[string]string{"accessToken": "new", "userId": "u1", "role": "admin"})
		return
	}

	seq := r.URL.Query().Get("seq")
	payload, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.hits[seq]++
	s.lastBodies[seq] = string(payload)
	s.mu.Unlock()

	if cookie, err := r.Cookie("accessToken"); err == nil && cookie.Value == "fresh" {
		_, _ = w.Write([]byte(`{"ok":true}`))
		return
	}
	if s.arrived.Add(1) == s.n {
		close(s.gate)
	}
	<-s.gate
	w.WriteHeader(http.StatusUnauthorized)
}

func TestConcurrentUnauthorizedTriggersExactlyOneRefresh(t *testing.T) {
	const n = 8
	fake := newConcurrentUnauthorized(n, true)
	server := httptest.NewServer(fake)
	defer server.Close()

	manager, ctx, sid := newSession(t, session.Cookie{Name: "accessToken", Value: "stale"})
	client := New(server.URL, 5*time.Second, manager)

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seq := strconv.Itoa(i)
			resp, err := client.Do(ctx, Request{
				Method: http.MethodPost,
				Path:   "/salaries/add",
				Query:  map[string][]string{"seq": {seq}},
				Body:   []byte(`{"employeeId":"` + seq + `"}`),
			})
			if err == nil && resp.Status != http.StatusOK {
				err = errors.New("unexpected status " + strconv.Itoa(resp.Status))
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	if got := fake.refreshes.Load(); got != 1 {
		t.Fatalf("expected exactly one refresh call, got %d", got)
	}
	for i, err := range errs {
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	for i := range n {
		seq := strconv.Itoa(i)
		if fake.hits[seq] != 2 {
			t.Fatalf("request %s sent %d times, want original plus one replay", seq, fake.hits[seq])
		}
		if fake.lastBodies[seq] != `{"employeeId":"`+seq+`"}` {
			t.Fatalf("request %s replayed with body %q", seq, fake.lastBodies[seq])
		}
	}

	sess, err := manager.Get(context.Background(), sid)
	if err != nil {
		t.Fatalf("session should survive a successful refresh: %v", err)
	}
	if sess.AccessToken != "new" {
		t.Fatalf("expected refreshed access token, got %q", sess.AccessToken)
	}
}

func TestRefreshFailureRejectsAllAndClearsSession(t *testing.T) {
	const n = 5
	fake := newConcurrentUnauthorized(n, false)
	server := httptest.NewServer(fake)
	defer server.Close()

	manager, ctx, sid := newSession(t, session.Cookie{Name: "accessToken", Value: "stale"})
	var cleared atomic.Int32
	manager.Subscribe(func(e session.Event) {
		if e.Kind == session.EventCleared {
			cleared.Add(1)
		}
	})
	client := New(server.URL, 5*time.Second, manager)

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.Do(ctx, Request{Method: http.MethodGet, Path: "/employees", Query: map[string][]string{"seq": {strconv.Itoa(i)}}})
		}(i)
	}
	wg.Wait()

	if got := fake.refreshes.Load(); got != 1 {
		t.Fatalf("expected exactly one refresh call, got %d", got)
	}
	for i, err := range errs {
		if !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("request %d: expected ErrSessionExpired, got %v", i, err)
		}
	}
	if _, err := manager.Get(context.Background(), sid); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected session cleared, got %v", err)
	}
	if cleared.Load() != 1 {
		t.Fatalf("expected one cleared event, got %d", cleared.Load())
	}
}

func TestReplayIsNotRetriedTwice(t *testing.T) {
	var refreshes, calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh-token" {
			refreshes.Add(1)
			_ = json.NewEncoder(w).Encode(map[string]string{"accessToken": "new", "userId": "u1", "role": "admin"})
			return
		}
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	manager, ctx, _ := newSession(t)
	client := New(server.URL, time.Second, manager)

	_, err := client.Do(ctx, Request{Method: http.MethodGet, Path: "/employees"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 status error after single replay, got %v", err)
	}
	if refreshes.Load() != 1 || calls.Load() != 2 {
		t.Fatalf("expected 1 refresh and 2 calls, got %d and %d", refreshes.Load(), calls.Load())
	}
}

func TestAnonymousUnauthorizedDoesNotRefresh(t *testing.T) {
	var refreshes atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh-token" {
			refreshes.Add(1)
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Sai mật khẩu"}`))
	}))
	defer server.Close()

	client := New(server.URL, time.Second, session.NewManager(session.NewMemoryStore(), time.Hour))
	err := client.SendJSON(context.Background(), http.MethodPost, "/auth/login", map[string]string{"phone": "0123456789"}, nil)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 status error, got %v", err)
	}
	if refreshes.Load() != 0 {
		t.Fatal("anonymous request must not refresh")
	}
}

func TestClearedSessionFailsWithoutNetwork(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	manager, ctx, sid := newSession(t)
	if err := manager.Clear(context.Background(), sid); err != nil {
		t.Fatalf("clear: %v", err)
	}
	client := New(server.URL, time.Second, manager)
	if err := client.GetJSON(ctx, "/employees", nil, nil); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatal("expected no upstream call for a cleared session")
	}
}

func TestDownloadReportsFilename(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="employees.xlsx"`)
		_, _ = w.Write([]byte("PK"))
	}))
	defer server.Close()

	manager, ctx, _ := newSession(t)
	client := New(server.URL, time.Second, manager)
	bin, err := client.Download(ctx, http.MethodGet, "/employees/backupEmployee", nil)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if bin.Filename != "employees.xlsx" || string(bin.Data) != "PK" {
		t.Fatalf("unexpected binary %+v", bin)
	}
}
