package session

import (
	"net/http"
	"testing"
	"time"
)

func TestMergeCookies(t *testing.T) {
	now := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	current := []Cookie{{Name: "accessToken", Value: "a1"}, {Name: "refreshToken", Value: "r1"}}

	tests := []struct {
		name     string
		incoming []Cookie
		want     map[string]string
	}{
		{
			name:     "replace by name",
			incoming: []Cookie{{Name: "accessToken", Value: "a2"}},
			want:     map[string]string{"accessToken": "a2", "refreshToken": "r1"},
		},
		{
			name:     "append new",
			incoming: []Cookie{{Name: "csrf", Value: "x"}},
			want:     map[string]string{"accessToken": "a1", "refreshToken": "r1", "csrf": "x"},
		},
		{
			name:     "empty value deletes",
			incoming: []Cookie{{Name: "refreshToken", Value: ""}},
			want:     map[string]string{"accessToken": "a1"},
		},
		{
			name:     "past expiry deletes",
			incoming: []Cookie{{Name: "accessToken", Value: "gone", Expires: now.Add(-time.Second)}},
			want:     map[string]string{"refreshToken": "r1"},
		},
		{
			name:     "deleting unknown is a no-op",
			incoming: []Cookie{{Name: "other", Value: ""}},
			want:     map[string]string{"accessToken": "a1", "refreshToken": "r1"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := append([]Cookie(nil), current...)
			got := mergeCookies(in, tc.incoming, now)
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d cookies, got %+v", len(tc.want), got)
			}
			for _, c := range got {
				if tc.want[c.Name] != c.Value {
					t.Fatalf("cookie %s = %q, want %q", c.Name, c.Value, tc.want[c.Name])
				}
			}
		})
	}
}

func TestCookiesFromHTTP(t *testing.T) {
	got := CookiesFromHTTP([]*http.Cookie{
		{Name: "refreshToken", Value: "r"},
		{Name: "accessToken", Value: "stale", MaxAge: -1},
		nil,
		{Name: "", Value: "ignored"},
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 cookies, got %+v", got)
	}
	if got[1].Value != "" {
		t.Fatal("expected MaxAge<0 cookie to be marked for deletion")
	}
}

func TestAuthenticated(t *testing.T) {
	if (Session{Role: RoleAdmin}).Authenticated() {
		t.Fatal("role without token marker must not be authenticated")
	}
	if (Session{AccessToken: "t"}).Authenticated() {
		t.Fatal("token without role must not be authenticated")
	}
	if !(Session{AccessToken: "t", Role: RoleEmployee}).Authenticated() {
		t.Fatal("expected authenticated session")
	}
}
