package authhandler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"managerhr/internal/domain/core"
	"managerhr/internal/domain/session"
	"managerhr/internal/transport/http/handlers/handlertest"
)

var now = time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)

func newHandler(t *testing.T) (*handlertest.Env, http.Handler) {
	t.Helper()
	env := handlertest.New(t, now)
	h := &Handler{
		API:       env.Client,
		Sessions:  env.Sessions,
		Cookies:   session.NewCookieSigner([]byte("test-secret"), "hr_session", handlertest.BasePath, time.Hour, false),
		Registrar: core.NewStore(env.Client),
		Table:     env.Table,
		Forms:     env.Forms,
		Respond:   env.Respond,
	}
	return env, handlertest.Router(h)
}

func TestLoginReplacesPreviousSession(t *testing.T) {
	env, h := newHandler(t)
	env.Backend.Handle(http.MethodPost, "/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if len(r.Cookies()) != 0 {
			t.Errorf("login must not replay old credentials, got %v", r.Cookies())
		}
		http.SetCookie(w, &http.Cookie{Name: "refreshToken", Value: "r1"})
		_, _ = w.Write([]byte(`{"accessToken":"a1","userId":"e1","role":"employee"}`))
	})
	old, err := env.Sessions.Establish(t.Context(), session.Grant{AccessToken: "old", UserID: "e9", Role: session.RoleEmployee}, []session.Cookie{{Name: "refreshToken", Value: "stale"}})
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"phone":"0900000001","password":"secret"}`))
	rec := handlertest.Serve(h, env.With(req, old))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("Set-Cookie"), "hr_session=") {
		t.Fatal("expected a session cookie")
	}
	if _, err := env.Sessions.Get(t.Context(), old.ID); err == nil {
		t.Fatal("expected the previous session to be cleared")
	}
	if !strings.Contains(rec.Body.String(), `"home":"/managerHR/dashboard"`) {
		t.Fatalf("expected the dashboard home, got %s", rec.Body.String())
	}
}

func TestLoginValidationAndRejection(t *testing.T) {
	env, h := newHandler(t)
	env.Backend.JSON(http.MethodPost, "/auth/login", http.StatusBadRequest, map[string]string{"message": "Sai số điện thoại hoặc mật khẩu"})

	rec := handlertest.Serve(h, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"phone":"12","password":""}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := strings.Join(handlertest.Decode(t, rec).Fields(), ","); got != "password,phone" {
		t.Fatalf("unexpected fields %s", got)
	}
	if env.Backend.Called(http.MethodPost, "/auth/login") != 0 {
		t.Fatal("expected invalid input not to reach the backend")
	}

	rec = handlertest.Serve(h, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"phone":"0900000001","password":"wrong"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if got := handlertest.Decode(t, rec).Notice; got == nil || got.Message != "Sai số điện thoại hoặc mật khẩu" {
		t.Fatalf("expected the backend message, got %+v", got)
	}
}

func registration(fields map[string]string) (*bytes.Buffer, string) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	_ = mw.Close()
	return &body, mw.FormDataContentType()
}

func TestRegisterRules(t *testing.T) {
	env, h := newHandler(t)
	env.Backend.JSON(http.MethodPost, "/auth/register", http.StatusCreated, map[string]string{"message": "ok"})
	valid := map[string]string{
		"fullName": "Lê Thị An", "dob": "1995-02-01", "gender": "Nữ", "address": "12 Lê Lợi",
		"phone": "0900000001", "department": "d1", "position": "p1", "base_salary": "1500", "startDate": "2025-06-01",
	}

	body, ct := registration(valid)
	req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
	req.Header.Set("Content-Type", ct)
	if rec := handlertest.Serve(h, req); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rec.Code, rec.Body.String())
	}

	bad := map[string]string{}
	for k, v := range valid {
		bad[k] = v
	}
	bad["startDate"] = "2025-05-20"
	bad["base_salary"] = "abc"
	body, ct = registration(bad)
	req = httptest.NewRequest(http.MethodPost, "/auth/register", body)
	req.Header.Set("Content-Type", ct)
	rec := handlertest.Serve(h, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	fields := handlertest.Decode(t, rec).Fields()
	if !contains(fields, "startDate") || !contains(fields, "base_salary") {
		t.Fatalf("expected startDate and base_salary issues, got %v", fields)
	}
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func TestLogoutForgetsSession(t *testing.T) {
	env, h := newHandler(t)
	env.Backend.JSON(http.MethodPost, "/auth/logout", http.StatusInternalServerError, map[string]string{"message": "boom"})
	sess, err := env.Sessions.Establish(t.Context(), session.Grant{AccessToken: "a1", UserID: "e1", Role: session.RoleEmployee}, nil)
	if err != nil {
		t.Fatal(err)
	}

	rec := handlertest.Serve(h, env.With(httptest.NewRequest(http.MethodPost, "/auth/logout", nil), sess))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := handlertest.Decode(t, rec).Redirect; got != "/managerHR/login" {
		t.Fatalf("expected login redirect, got %q", got)
	}
	if _, err := env.Sessions.Get(t.Context(), sess.ID); err == nil {
		t.Fatal("expected session to be cleared despite the backend failure")
	}
	if !strings.Contains(rec.Header().Get("Set-Cookie"), "Max-Age=0") {
		t.Fatalf("expected the cookie to be expired, got %q", rec.Header().Get("Set-Cookie"))
	}
}
