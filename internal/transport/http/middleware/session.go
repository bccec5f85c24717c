package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"managerhr/internal/domain/session"
	"managerhr/internal/platform/upstream"
)

type ctxKey string

const ctxKeySession ctxKey = "session"

type SessionReader interface {
	Get(ctx context.Context, id string) (session.Session, error)
}

type CookieReader interface {
	SessionID(r *http.Request) (string, bool)
	Expire(w http.ResponseWriter)
}

// Session resolves the browser cookie to a stored session. Requests without
// a valid one continue anonymously; a cookie whose session is gone is
// expired on the way.
func Session(cookies CookieReader, sessions SessionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid, ok := cookies.SessionID(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			sess, err := sessions.Get(r.Context(), sid)
			if err != nil {
				if !errors.Is(err, session.ErrNotFound) {
					slog.Warn("session lookup failed", "sessionId", sid, "requestId", GetRequestID(r.Context()), "err", err)
				}
				cookies.Expire(w)
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeySession, sess)
			ctx = upstream.WithSession(ctx, sess.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetSession(ctx context.Context) (session.Session, bool) {
	sess, ok := ctx.Value(ctxKeySession).(session.Session)
	return sess, ok
}

// WithSession is used by tests and by login, which acts for the session it
// just created.
func WithSession(ctx context.Context, sess session.Session) context.Context {
	ctx = context.WithValue(ctx, ctxKeySession, sess)
	return upstream.WithSession(ctx, sess.ID)
}
