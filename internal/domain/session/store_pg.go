package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"managerhr/internal/platform/crypto"
)

// PgStore persists sessions in console_sessions. The access-token marker and
// the upstream cookies are sealed before they reach the table.
type PgStore struct {
	DB     *pgxpool.Pool
	Sealer *crypto.Sealer
}

func NewPgStore(db *pgxpool.Pool, sealer *crypto.Sealer) *PgStore {
	return &PgStore{DB: db, Sealer: sealer}
}

func (s *PgStore) Get(ctx context.Context, id string) (Session, error) {
	var (
		sess          Session
		role          string
		sealedToken   []byte
		sealedCookies []byte
	)
	err := s.DB.QueryRow(ctx, `
    SELECT id::text, user_id, role, access_token, upstream_cookies, created_at, updated_at, expires_at
    FROM console_sessions
    WHERE id = $1
  `, id).Scan(&sess.ID, &sess.UserID, &role, &sealedToken, &sealedCookies, &sess.CreatedAt, &sess.UpdatedAt, &sess.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	sess.Role = Role(role)

	token, err := s.Sealer.Open(sealedToken)
	if err != nil {
		return Session{}, fmt.Errorf("open access token: %w", err)
	}
	sess.AccessToken = string(token)
	if err := s.Sealer.OpenJSON(sealedCookies, &sess.Cookies); err != nil {
		return Session{}, fmt.Errorf("open upstream cookies: %w", err)
	}
	return sess, nil
}

func (s *PgStore) Put(ctx context.Context, sess Session) error {
	sealedToken, err := s.Sealer.Seal([]byte(sess.AccessToken))
	if err != nil {
		return fmt.Errorf("seal access token: %w", err)
	}
	cookies := sess.Cookies
	if cookies == nil {
		cookies = []Cookie{}
	}
	sealedCookies, err := s.Sealer.SealJSON(cookies)
	if err != nil {
		return fmt.Errorf("seal upstream cookies: %w", err)
	}
	_, err = s.DB.Exec(ctx, `
    INSERT INTO console_sessions (id, user_id, role, access_token, upstream_cookies, created_at, updated_at, expires_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    ON CONFLICT (id) DO UPDATE SET
      user_id = EXCLUDED.user_id,
      role = EXCLUDED.role,
      access_token = EXCLUDED.access_token,
      upstream_cookies = EXCLUDED.upstream_cookies,
      updated_at = EXCLUDED.updated_at,
      expires_at = EXCLUDED.expires_at
  `, sess.ID, sess.UserID, string(sess.Role), sealedToken, sealedCookies, sess.CreatedAt, sess.UpdatedAt, sess.ExpiresAt)
	return err
}

func (s *PgStore) Delete(ctx context.Context, id string) error {
	_, err := s.DB.Exec(ctx, `DELETE FROM console_sessions WHERE id = $1`, id)
	return err
}

func (s *PgStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.DB.Exec(ctx, `DELETE FROM console_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
