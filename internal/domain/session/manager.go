package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager is the only writer of sessions. Login, refresh success and
// logout/refresh failure go through it; everything else reads.
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time

	mu sync.Mutex

	subsMu      sync.RWMutex
	subscribers []func(Event)
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func NewManager(store Store, ttl time.Duration, opts ...Option) *Manager {
	m := &Manager{store: store, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe registers fn for every lifecycle transition. Callbacks run
// synchronously after the write is stored.
func (m *Manager) Subscribe(fn func(Event)) {
	if fn == nil {
		return
	}
	m.subsMu.Lock()
	m.subscribers = append(m.subscribers, fn)
	m.subsMu.Unlock()
}

func (m *Manager) Establish(ctx context.Context, grant Grant, cookies []Cookie) (Session, error) {
	if !grant.Valid() {
		return Session{}, ErrInvalidGrant
	}
	now := m.now().UTC()
	sess := Session{
		ID:          uuid.NewString(),
		UserID:      grant.UserID,
		Role:        grant.Role,
		AccessToken: grant.AccessToken,
		Cookies:     mergeCookies(nil, cookies, now),
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(m.ttl),
	}
	if err := m.store.Put(ctx, sess); err != nil {
		return Session{}, fmt.Errorf("store session: %w", err)
	}
	m.publish(EventEstablished, sess)
	return sess, nil
}

// Get returns ErrNotFound for unknown, malformed or expired ids.
func (m *Manager) Get(ctx context.Context, id string) (Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Session{}, ErrNotFound
	}
	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if sess.Expired(m.now()) {
		if err := m.store.Delete(ctx, id); err != nil {
			slog.Warn("expired session delete failed", "sessionId", id, "err", err)
		}
		return Session{}, ErrNotFound
	}
	return sess, nil
}

// Refreshed adopts the identity returned by the refresh endpoint.
func (m *Manager) Refreshed(ctx context.Context, id string, grant Grant) (Session, error) {
	if !grant.Valid() {
		return Session{}, ErrInvalidGrant
	}
	m.mu.Lock()
	sess, err := m.Get(ctx, id)
	if err != nil {
		m.mu.Unlock()
		return Session{}, err
	}
	now := m.now().UTC()
	sess.AccessToken = grant.AccessToken
	sess.UserID = grant.UserID
	sess.Role = grant.Role
	sess.UpdatedAt = now
	sess.ExpiresAt = now.Add(m.ttl)
	err = m.store.Put(ctx, sess)
	m.mu.Unlock()
	if err != nil {
		return Session{}, fmt.Errorf("store session: %w", err)
	}
	m.publish(EventRefreshed, sess)
	return sess, nil
}

// MergeCookies folds Set-Cookie values from an upstream response into the
// session. Unknown sessions are ignored.
func (m *Manager) MergeCookies(ctx context.Context, id string, cookies []Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, err := m.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	now := m.now().UTC()
	sess.Cookies = mergeCookies(sess.Cookies, cookies, now)
	sess.UpdatedAt = now
	return m.store.Put(ctx, sess)
}

// Clear removes the session. Clearing an unknown session is not an error.
func (m *Manager) Clear(ctx context.Context, id string) error {
	m.mu.Lock()
	sess, err := m.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		m.mu.Unlock()
		return nil
	}
	if err == nil {
		err = m.store.Delete(ctx, id)
	}
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.publish(EventCleared, sess)
	return nil
}

func (m *Manager) PurgeExpired(ctx context.Context) (int, error) {
	return m.store.DeleteExpired(ctx, m.now())
}

func (m *Manager) publish(kind EventKind, sess Session) {
	m.subsMu.RLock()
	subs := m.subscribers
	m.subsMu.RUnlock()
	event := Event{Kind: kind, SessionID: sess.ID, UserID: sess.UserID, Role: sess.Role, At: m.now()}
	for _, fn := range subs {
		fn(event)
	}
}
