package middleware

import (
	"net/http"

	"managerhr/internal/domain/access"
	"managerhr/internal/transport/http/api"
)

// RequirePage admits a request only when the session may open page. The
// API answers with the redirect the SPA would have performed.
func RequirePage(table *access.Table, page string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, _ := GetSession(r.Context())
			decision := table.Decide(sess, page)
			switch decision.Outcome {
			case access.Allow:
				next.ServeHTTP(w, r)
			case access.RedirectLogin:
				api.Redirect(w, http.StatusUnauthorized, "unauthorized", "authentication required", decision.Location, GetRequestID(r.Context()))
			default:
				api.Redirect(w, http.StatusForbidden, "forbidden", "insufficient permissions", decision.Location, GetRequestID(r.Context()))
			}
		})
	}
}

// RequireSession admits any authenticated session.
func RequireSession(table *access.Table) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := GetSession(r.Context())
			if !ok || !sess.Authenticated() {
				api.Redirect(w, http.StatusUnauthorized, "unauthorized", "authentication required", table.LoginURL(), GetRequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
