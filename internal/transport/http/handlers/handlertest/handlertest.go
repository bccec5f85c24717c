// Package handlertest runs handlers against a fake HR backend with real
// sessions and upstream client.
package handlertest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"

	"managerhr/internal/domain/access"
	"managerhr/internal/domain/listing"
	"managerhr/internal/domain/session"
	"managerhr/internal/platform/upstream"
	"managerhr/internal/requestctx"
	"managerhr/internal/transport/http/middleware"
	"managerhr/internal/transport/http/shared"
)

const BasePath = "/managerHR"

// Call is one request the backend received.
type Call struct {
	Method string
	Path   string
	Body   string
}

type Backend struct {
	Server *httptest.Server

	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	calls  []Call
}

func newBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{routes: map[string]http.HandlerFunc{}}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Server.Close)
	return b
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(strings.NewReader(string(body)))
	b.mu.Lock()
	b.calls = append(b.calls, Call{Method: r.Method, Path: r.URL.Path, Body: string(body)})
	fn, ok := b.routes[r.Method+" "+r.URL.Path]
	b.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"not found"}`))
		return
	}
	fn(w, r)
}

// Handle serves method and path, e.g. ("GET", "/employees").
func (b *Backend) Handle(method, path string, fn http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[method+" "+path] = fn
}

// JSON answers method and path with a fixed status and body.
func (b *Backend) JSON(method, path string, status int, body any) {
	payload, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}
	b.Handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(payload)
	})
}

func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// Called reports how often method and path were requested.
func (b *Backend) Called(method, path string) int {
	n := 0
	for _, c := range b.Calls() {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

// Env bundles what handlers are built from.
type Env struct {
	Backend  *Backend
	Sessions *session.Manager
	Client   *upstream.Client
	Table    *access.Table
	Forms    *shared.Forms
	Lists    shared.Lists
	Respond  shared.Responder
	Loc      *time.Location
}

// New starts an environment whose clock for date validation is now.
func New(t *testing.T, now time.Time) *Env {
	t.Helper()
	table, err := access.Load(BasePath)
	if err != nil {
		t.Fatalf("load table: %v", err)
	}
	cache, err := listing.NewStateCache(128)
	if err != nil {
		t.Fatalf("state cache: %v", err)
	}
	backend := newBackend(t)
	manager := session.NewManager(session.NewMemoryStore(), time.Hour)
	loc := time.UTC
	return &Env{
		Backend:  backend,
		Sessions: manager,
		Client:   upstream.New(backend.Server.URL, 2*time.Second, manager),
		Table:    table,
		Forms:    shared.NewForms(loc, func() time.Time { return now }),
		Lists:    shared.Lists{Cache: cache, Locale: language.Vietnamese, Loc: loc},
		Respond:  shared.Responder{LoginURL: table.LoginURL()},
		Loc:      loc,
	}
}

// As attaches a fresh session for userID in role to r.
func (e *Env) As(t *testing.T, r *http.Request, role session.Role, userID string) *http.Request {
	t.Helper()
	sess, err := e.Sessions.Establish(r.Context(), session.Grant{AccessToken: "token-" + userID, UserID: userID, Role: role}, nil)
	if err != nil {
		t.Fatalf("establish session: %v", err)
	}
	return e.With(r, sess)
}

// With attaches an existing session to r.
func (e *Env) With(r *http.Request, sess session.Session) *http.Request {
	ctx := middleware.WithSession(r.Context(), sess)
	ctx = requestctx.WithRequestID(ctx, "req-test")
	return r.WithContext(ctx)
}

// Router mounts h the way the gateway does under /api.
func Router(h interface{ RegisterRoutes(chi.Router) }) http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// Envelope is the decoded gateway answer.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			Fields []shared.ValidationIssue `json:"fields"`
		} `json:"details"`
	} `json:"error"`
	Notice *struct {
		Level       string `json:"level"`
		Message     string `json:"message"`
		AutoDismiss bool   `json:"autoDismiss"`
	} `json:"notice"`
	Redirect string `json:"redirect"`
}

func Decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope %q: %v", rec.Body.String(), err)
	}
	return env
}

// Fields lists the field names of a validation failure.
func (e Envelope) Fields() []string {
	if e.Error == nil {
		return nil
	}
	out := make([]string, 0, len(e.Error.Details.Fields))
	for _, f := range e.Error.Details.Fields {
		out = append(out, f.Field)
	}
	return out
}

// Serve runs one request carrying ctx values from req.
func Serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
