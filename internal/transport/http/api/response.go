package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
	NoticeWarning NoticeLevel = "warning"
)

// Notice is the toast the dashboard shows after a mutation. Auto-dismissing
// notices vanish on their own; persistent ones wait for the user.
type Notice struct {
	Level       NoticeLevel `json:"level"`
	Message     string      `json:"message"`
	AutoDismiss bool        `json:"autoDismiss"`
}

func Transient(level NoticeLevel, message string) *Notice {
	return &Notice{Level: level, Message: message, AutoDismiss: true}
}

func Persistent(level NoticeLevel, message string) *Notice {
	return &Notice{Level: level, Message: message}
}

type Envelope struct {
	Success   bool    `json:"success"`
	Data      any     `json:"data,omitempty"`
	Error     *Error  `json:"error,omitempty"`
	Notice    *Notice `json:"notice,omitempty"`
	Redirect  string  `json:"redirect,omitempty"`
	RequestID string  `json:"requestId,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("write json failed", "err", err)
	}
}

func Success(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Created(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusCreated, Envelope{Success: true, Data: data, RequestID: requestID})
}

// Done answers a successful mutation with a transient success notice.
func Done(w http.ResponseWriter, status int, data any, message, requestID string) {
	WriteJSON(w, status, Envelope{
		Success:   true,
		Data:      data,
		Notice:    Transient(NoticeSuccess, message),
		RequestID: requestID,
	})
}

func Fail(w http.ResponseWriter, status int, code, message, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message}, RequestID: requestID})
}

func FailWithDetails(w http.ResponseWriter, status int, code, message string, details any, requestID string) {
	WriteJSON(w, status, Envelope{
		Success:   false,
		Error:     &Error{Code: code, Message: message, Details: details},
		RequestID: requestID,
	})
}

// FailWithNotice is Fail plus the toast that explains it.
func FailWithNotice(w http.ResponseWriter, status int, code, message string, notice *Notice, requestID string) {
	WriteJSON(w, status, Envelope{
		Success:   false,
		Error:     &Error{Code: code, Message: message},
		Notice:    notice,
		RequestID: requestID,
	})
}

// Redirect tells the SPA to navigate, e.g. to the login page once the
// session is gone.
func Redirect(w http.ResponseWriter, status int, code, message, location, requestID string) {
	WriteJSON(w, status, Envelope{
		Success:   false,
		Error:     &Error{Code: code, Message: message},
		Redirect:  location,
		RequestID: requestID,
	})
}
