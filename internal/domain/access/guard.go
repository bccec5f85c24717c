package access

import (
	"slices"

	"managerhr/internal/domain/session"
)

type Outcome int

const (
	Allow Outcome = iota
	RedirectLogin
	RedirectForbidden
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "login"
	case RedirectForbidden:
		return "forbidden"
	}
	return "unknown"
}

// Guard evaluates nested role guards outermost first: no role sends the
// visitor to login, a role missing from any set sends them to forbidden.
func Guard(role session.Role, chain [][]session.Role) Outcome {
	if len(chain) == 0 {
		return Allow
	}
	if role == "" {
		return RedirectLogin
	}
	for _, allowed := range chain {
		if !slices.Contains(allowed, role) {
			return RedirectForbidden
		}
	}
	return Allow
}

type Decision struct {
	Outcome  Outcome `json:"-"`
	Result   string  `json:"result"`
	Page     string  `json:"page,omitempty"`
	Location string  `json:"location,omitempty"`
}

// Decide applies the guard of page for sess. Unknown pages are forbidden.
func (t *Table) Decide(sess session.Session, page string) Decision {
	e, ok := t.Page(page)
	if !ok {
		return t.decision(page, RedirectForbidden)
	}
	return t.decideEntry(sess, e, nil)
}

// DecidePath resolves a relative path and applies its guard. Pages keyed by
// {id} additionally require the id to be the session user.
func (t *Table) DecidePath(sess session.Session, path string) (Decision, bool) {
	e, params, ok := t.Match(path)
	if !ok {
		return Decision{}, false
	}
	return t.decideEntry(sess, e, params), true
}

func (t *Table) decideEntry(sess session.Session, e Entry, params map[string]string) Decision {
	role := sess.Role
	if !sess.Authenticated() {
		role = ""
	}
	outcome := Guard(role, e.Chain)
	if outcome == Allow {
		if id, scoped := params["id"]; scoped && id != sess.UserID {
			outcome = RedirectForbidden
		}
	}
	return t.decision(e.Page, outcome)
}

func (t *Table) decision(page string, outcome Outcome) Decision {
	d := Decision{Outcome: outcome, Result: outcome.String(), Page: page}
	switch outcome {
	case RedirectLogin:
		d.Location = t.LoginURL()
	case RedirectForbidden:
		d.Location = t.ForbiddenURL()
	}
	return d
}
