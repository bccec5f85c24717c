package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"managerhr/internal/domain/session"
	"managerhr/internal/requestctx"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultRefreshPath = "/auth/refresh-token"
	maxResponseBytes   = 32 << 20
)

var ErrSessionExpired = errors.New("session expired")

// Sessions is the slice of the session manager the client needs.
type Sessions interface {
	Get(ctx context.Context, id string) (session.Session, error)
	MergeCookies(ctx context.Context, id string, cookies []session.Cookie) error
	Refreshed(ctx context.Context, id string, grant session.Grant) (session.Session, error)
	Clear(ctx context.Context, id string) error
}

type Observer interface {
	ObserveUpstream(method string, status int, elapsed time.Duration)
	ObserveRefresh(outcome string)
}

type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        []byte
	ContentType string
	Accept      string
}

type Response struct {
	Status  int
	Header  http.Header
	Body    []byte
	Cookies []*http.Cookie
}

func (r *Response) Decode(target any) error {
	if target == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, target); err != nil {
		return fmt.Errorf("decode upstream response: %w", err)
	}
	return nil
}

// Filename reports the attachment name from Content-Disposition, if any.
func (r *Response) Filename() string {
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Disposition"))
	if err != nil {
		return ""
	}
	return params["filename"]
}

type StatusError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream %s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("upstream %s %s: %d", e.Method, e.Path, e.Status)
}

// Client talks to the HR REST backend on behalf of a browser session. Every
// request carries the session's upstream cookies; a 401 triggers at most one
// refresh per session at a time and the request is replayed once.
type Client struct {
	baseURL     string
	timeout     time.Duration
	http        *http.Client
	sessions    Sessions
	observer    Observer
	refreshPath string

	flight      singleflight.Group
	genMu       sync.Mutex
	generations map[string]uint64
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

func New(baseURL string, timeout time.Duration, sessions Sessions, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		timeout:     timeout,
		http:        &http.Client{Timeout: timeout},
		sessions:    sessions,
		refreshPath: defaultRefreshPath,
		generations: map[string]uint64{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends req. Without a session in ctx the request goes out bare and a 401
// is returned as a *StatusError.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	sid, ok := SessionFrom(ctx)
	if !ok {
		resp, err := c.send(ctx, req, nil)
		if err != nil {
			return nil, err
		}
		return resp, c.statusErr(req, resp)
	}

	seen := c.generation(sid)
	resp, err := c.sendForSession(ctx, sid, req)
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusUnauthorized {
		return resp, c.statusErr(req, resp)
	}

	if err := c.refresh(ctx, sid, seen); err != nil {
		return nil, err
	}

	resp, err = c.sendForSession(ctx, sid, req)
	if err != nil {
		return nil, err
	}
	return resp, c.statusErr(req, resp)
}

// Forget drops refresh bookkeeping for a session that no longer exists.
func (c *Client) Forget(sid string) {
	c.genMu.Lock()
	delete(c.generations, sid)
	c.genMu.Unlock()
}

func (c *Client) sendForSession(ctx context.Context, sid string, req Request) (*Response, error) {
	sess, err := c.sessions.Get(ctx, sid)
	if errors.Is(err, session.ErrNotFound) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, err
	}
	resp, err := c.send(ctx, req, sess.Cookies)
	if err != nil {
		return nil, err
	}
	if len(resp.Cookies) > 0 {
		if err := c.sessions.MergeCookies(ctx, sid, session.CookiesFromHTTP(resp.Cookies)); err != nil {
			slog.Warn("upstream cookie merge failed", "sessionId", sid, "err", err)
		}
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, req Request, cookies []session.Cookie) (*Response, error) {
	target := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if req.Body != nil {
		contentType := req.ContentType
		if contentType == "" {
			contentType = "application/json"
		}
		httpReq.Header.Set("Content-Type", contentType)
	}
	accept := req.Accept
	if accept == "" {
		accept = "application/json"
	}
	httpReq.Header.Set("Accept", accept)
	if reqID := requestctx.GetRequestID(ctx); reqID != "" {
		httpReq.Header.Set("X-Request-ID", reqID)
	}
	for _, cookie := range cookies {
		httpReq.AddCookie(cookie.HTTP())
	}

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		c.observeUpstream(method, 0, time.Since(start))
		return nil, err
	}
	defer httpResp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	c.observeUpstream(method, httpResp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("read upstream response: %w", err)
	}
	return &Response{
		Status:  httpResp.StatusCode,
		Header:  httpResp.Header,
		Body:    payload,
		Cookies: httpResp.Cookies(),
	}, nil
}

func (c *Client) statusErr(req Request, resp *Response) error {
	if resp.Status >= 200 && resp.Status < 300 {
		return nil
	}
	return &StatusError{
		Method:  req.Method,
		Path:    req.Path,
		Status:  resp.Status,
		Message: upstreamMessage(resp.Body),
	}
}

func upstreamMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

func (c *Client) generation(sid string) uint64 {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	return c.generations[sid]
}

func (c *Client) bump(sid string) {
	c.genMu.Lock()
	c.generations[sid]++
	c.genMu.Unlock()
}

func (c *Client) observeUpstream(method string, status int, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveUpstream(method, status, elapsed)
	}
}

func (c *Client) observeRefresh(outcome string) {
	if c.observer != nil {
		c.observer.ObserveRefresh(outcome)
	}
}
