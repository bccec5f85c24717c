package session

import (
	"errors"
	"net/http"
	"time"
)

var (
	ErrNotFound     = errors.New("session not found")
	ErrInvalidGrant = errors.New("grant must carry a user id and a role")
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// Cookie is an upstream credential cookie held on behalf of the browser.
type Cookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Expires time.Time `json:"expires,omitzero"`
}

// Session mirrors what the browser app kept in local storage, plus the
// upstream cookies the gateway replays for it.
type Session struct {
	ID          string
	UserID      string
	Role        Role
	AccessToken string
	Cookies     []Cookie
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ExpiresAt   time.Time
}

func (s Session) AccessTokenPresent() bool {
	return s.AccessToken != ""
}

func (s Session) Authenticated() bool {
	return s.AccessTokenPresent() && s.Role != ""
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Grant is the body of a login or refresh-token response.
type Grant struct {
	AccessToken string `json:"accessToken"`
	UserID      string `json:"userId"`
	Role        Role   `json:"role"`
}

func (g Grant) Valid() bool {
	return g.UserID != "" && g.Role != ""
}

type EventKind string

const (
	EventEstablished EventKind = "established"
	EventRefreshed   EventKind = "refreshed"
	EventCleared     EventKind = "cleared"
)

type Event struct {
	Kind      EventKind
	SessionID string
	UserID    string
	Role      Role
	At        time.Time
}

func CookiesFromHTTP(in []*http.Cookie) []Cookie {
	out := make([]Cookie, 0, len(in))
	for _, c := range in {
		if c == nil || c.Name == "" {
			continue
		}
		cookie := Cookie{Name: c.Name, Value: c.Value, Expires: c.Expires}
		if c.MaxAge < 0 {
			cookie.Value = ""
		}
		out = append(out, cookie)
	}
	return out
}

func (c Cookie) HTTP() *http.Cookie {
	return &http.Cookie{Name: c.Name, Value: c.Value}
}

// mergeCookies applies incoming Set-Cookie values by name. An empty value or
// a past expiry removes the cookie.
func mergeCookies(current, incoming []Cookie, now time.Time) []Cookie {
	byName := make(map[string]int, len(current))
	out := make([]Cookie, 0, len(current)+len(incoming))
	for _, c := range current {
		byName[c.Name] = len(out)
		out = append(out, c)
	}
	for _, c := range incoming {
		removed := c.Value == "" || (!c.Expires.IsZero() && !c.Expires.After(now))
		idx, exists := byName[c.Name]
		switch {
		case removed && exists:
			out[idx].Name = ""
		case removed:
		case exists:
			out[idx] = c
		default:
			byName[c.Name] = len(out)
			out = append(out, c)
		}
	}
	kept := out[:0]
	for _, c := range out {
		if c.Name != "" {
			kept = append(kept, c)
		}
	}
	return kept
}
