package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"managerhr/internal/platform/upstream"
	"managerhr/internal/requestctx"
	"managerhr/internal/transport/http/api"
)

// CookieExpirer ends the browser half of a session.
type CookieExpirer interface {
	Expire(w http.ResponseWriter)
}

// Responder maps upstream and domain failures onto the envelope the
// dashboard understands.
type Responder struct {
	LoginURL string
	Cookies  CookieExpirer
}

func RequestID(r *http.Request) string {
	return requestctx.GetRequestID(r.Context())
}

// Expired sends the browser back to login and drops its cookie.
func (rs Responder) Expired(w http.ResponseWriter, r *http.Request) {
	if rs.Cookies != nil {
		rs.Cookies.Expire(w)
	}
	api.Redirect(w, http.StatusUnauthorized, "session_expired", "phiên đăng nhập đã hết hạn", rs.LoginURL, RequestID(r))
}

// terminal handles the failures every endpoint answers the same way.
func (rs Responder) terminal(w http.ResponseWriter, r *http.Request, err error) bool {
	if errors.Is(err, upstream.ErrSessionExpired) {
		rs.Expired(w, r)
		return true
	}
	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) && statusErr.Status == http.StatusForbidden {
		api.Fail(w, http.StatusForbidden, "forbidden", "không có quyền thực hiện thao tác này", RequestID(r))
		return true
	}
	return false
}

// ReadFailed answers a failed page load with an empty page flagged as
// failed, except for expiry and permission errors.
func (rs Responder) ReadFailed(w http.ResponseWriter, r *http.Request, err error, empty any) {
	if rs.terminal(w, r, err) {
		return
	}
	slog.Warn("upstream read failed", "path", r.URL.Path, "requestId", RequestID(r), "err", err)
	api.Success(w, empty, RequestID(r))
}

// MutationFailed reports a rejected write with an auto-dismissing notice.
// message is the user-facing fallback when the backend gave none.
func (rs Responder) MutationFailed(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	if rs.terminal(w, r, err) {
		return
	}
	status := http.StatusBadGateway
	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Message != "" {
			message = statusErr.Message
		}
		if statusErr.Status >= 400 && statusErr.Status < 500 {
			status = statusErr.Status
		}
	}
	slog.Warn("upstream mutation failed", "path", r.URL.Path, "code", code, "requestId", RequestID(r), "err", err)
	api.FailWithNotice(w, status, code, message, api.Transient(api.NoticeError, message), RequestID(r))
}

// Rejected is a locally refused mutation (no data left, nothing selected).
func (rs Responder) Rejected(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	api.FailWithNotice(w, status, code, message, api.Transient(api.NoticeWarning, message), RequestID(r))
}

// DecodeJSON reads a JSON body into dst. Any failure has already been
// answered when it returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", RequestID(r))
	case errors.Is(err, io.EOF):
		api.Fail(w, http.StatusBadRequest, "invalid_json", "request body is empty", RequestID(r))
	default:
		api.Fail(w, http.StatusBadRequest, "invalid_json", describeJSONError(err), RequestID(r))
	}
	return false
}

func describeJSONError(err error) string {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Sprintf("invalid JSON at byte offset %d", syntaxErr.Offset)
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("field '%s' should be of type %s", typeErr.Field, typeErr.Type.String())
	}
	return strings.TrimPrefix(err.Error(), "json: ")
}
