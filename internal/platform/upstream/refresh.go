package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"managerhr/internal/domain/session"
	"managerhr/internal/requestctx"
)

// WithSession scopes upstream calls made with ctx to a browser session.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return requestctx.WithSessionID(ctx, sessionID)
}

func SessionFrom(ctx context.Context) (string, bool) {
	sid := requestctx.GetSessionID(ctx)
	return sid, sid != ""
}

// refresh renews the session's upstream credentials unless another request
// already did so after seen was read. Concurrent callers for one session
// share a single refresh call and its outcome.
func (c *Client) refresh(ctx context.Context, sid string, seen uint64) error {
	_, err, _ := c.flight.Do(sid, func() (any, error) {
		if c.generation(sid) > seen {
			return nil, nil
		}

		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		sess, err := c.sessions.Get(rctx, sid)
		if err != nil {
			return nil, ErrSessionExpired
		}

		grant, err := c.callRefresh(rctx, sid, sess)
		if err != nil {
			c.observeRefresh("failure")
			slog.Warn("token refresh failed", "sessionId", sid, "userId", sess.UserID, "err", err)
			if clearErr := c.sessions.Clear(rctx, sid); clearErr != nil {
				slog.Warn("session clear after refresh failure failed", "sessionId", sid, "err", clearErr)
			}
			c.Forget(sid)
			return nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
		}

		if _, err := c.sessions.Refreshed(rctx, sid, grant); err != nil {
			c.observeRefresh("failure")
			if errors.Is(err, session.ErrNotFound) {
				return nil, ErrSessionExpired
			}
			return nil, err
		}
		c.bump(sid)
		c.observeRefresh("success")
		return nil, nil
	})
	return err
}

func (c *Client) callRefresh(ctx context.Context, sid string, sess session.Session) (session.Grant, error) {
	body, err := json.Marshal(map[string]string{"userId": sess.UserID})
	if err != nil {
		return session.Grant{}, err
	}
	req := Request{Method: http.MethodPost, Path: c.refreshPath, Body: body}
	resp, err := c.sendForSession(ctx, sid, req)
	if err != nil {
		return session.Grant{}, err
	}
	if statusErr := c.statusErr(req, resp); statusErr != nil {
		return session.Grant{}, statusErr
	}

	var grant session.Grant
	if err := resp.Decode(&grant); err != nil {
		return session.Grant{}, err
	}
	if grant.UserID == "" {
		grant.UserID = sess.UserID
	}
	if grant.Role == "" {
		grant.Role = sess.Role
	}
	if grant.AccessToken == "" {
		return session.Grant{}, errors.New("refresh response carried no access token")
	}
	return grant, nil
}
