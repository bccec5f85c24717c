package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/singleflight"

	"managerhr/internal/transport/http/api"
)

const IdempotencyHeader = "Idempotency-Key"

var ErrIdempotencyConflict = errors.New("idempotency key conflicts with existing request")

// IdempotentResponse is a stored answer replayed for a repeated key.
type IdempotentResponse struct {
	RequestHash string
	Status      int
	Body        json.RawMessage
}

type IdempotencyStore interface {
	Lookup(ctx context.Context, sessionID, endpoint, key string) (IdempotentResponse, bool, error)
	Save(ctx context.Context, sessionID, endpoint, key string, resp IdempotentResponse) error
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}

func RequestHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Idempotent replays the stored response when a session repeats an
// Idempotency-Key with the same body, and refuses the key with a different
// body. Concurrent duplicates wait for the first execution.
func Idempotent(store IdempotencyStore) func(http.Handler) http.Handler {
	var flight singleflight.Group
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			sess, ok := GetSession(r.Context())
			if key == "" || !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			payload, err := io.ReadAll(r.Body)
			if err != nil {
				api.Fail(w, http.StatusBadRequest, "invalid_body", "request body could not be read", GetRequestID(r.Context()))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(payload))
			hash := RequestHash(append([]byte(r.Method+" "+r.URL.Path+"\n"), payload...))
			endpoint := r.Method + " " + r.URL.Path

			v, err, _ := flight.Do(sess.ID+"\x00"+endpoint+"\x00"+key, func() (any, error) {
				stored, found, err := store.Lookup(r.Context(), sess.ID, endpoint, key)
				if err != nil {
					return nil, err
				}
				if found {
					return replay{resp: stored, replayed: true}, nil
				}
				buf := &bufferedWriter{header: http.Header{}, status: http.StatusOK}
				next.ServeHTTP(buf, r)
				resp := IdempotentResponse{RequestHash: hash, Status: buf.status, Body: buf.body.Bytes()}
				if buf.status < http.StatusInternalServerError && json.Valid(resp.Body) {
					if err := store.Save(context.WithoutCancel(r.Context()), sess.ID, endpoint, key, resp); err != nil {
						slog.Warn("idempotency save failed", "endpoint", endpoint, "requestId", GetRequestID(r.Context()), "err", err)
					}
				}
				return replay{resp: resp, header: buf.header}, nil
			})
			if err != nil {
				slog.Warn("idempotency lookup failed", "endpoint", endpoint, "requestId", GetRequestID(r.Context()), "err", err)
				api.Fail(w, http.StatusInternalServerError, "idempotency_error", "idempotency check failed", GetRequestID(r.Context()))
				return
			}
			out := v.(replay)
			if out.resp.RequestHash != hash {
				api.Fail(w, http.StatusConflict, "idempotency_conflict", ErrIdempotencyConflict.Error(), GetRequestID(r.Context()))
				return
			}
			for name, values := range out.header {
				w.Header()[name] = values
			}
			if out.replayed {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Idempotent-Replayed", "true")
			}
			w.WriteHeader(out.resp.Status)
			_, _ = w.Write(out.resp.Body)
		})
	}
}

type replay struct {
	resp     IdempotentResponse
	header   http.Header
	replayed bool
}

type bufferedWriter struct {
	header      http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (b *bufferedWriter) Header() http.Header { return b.header }

func (b *bufferedWriter) WriteHeader(code int) {
	if b.wroteHeader {
		return
	}
	b.status = code
	b.wroteHeader = true
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	b.wroteHeader = true
	return b.body.Write(p)
}

type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	resp    IdempotentResponse
	created time.Time
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{now: time.Now, entries: map[string]memoryEntry{}}
}

func memoryKey(sessionID, endpoint, key string) string {
	return sessionID + "\x00" + endpoint + "\x00" + key
}

func (s *MemoryIdempotencyStore) Lookup(_ context.Context, sessionID, endpoint, key string) (IdempotentResponse, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[memoryKey(sessionID, endpoint, key)]
	return entry.resp, ok, nil
}

func (s *MemoryIdempotencyStore) Save(_ context.Context, sessionID, endpoint, key string, resp IdempotentResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memoryKey(sessionID, endpoint, key)
	if existing, ok := s.entries[k]; ok && existing.resp.RequestHash != resp.RequestHash {
		return ErrIdempotencyConflict
	}
	s.entries[k] = memoryEntry{resp: resp, created: s.now()}
	return nil
}

func (s *MemoryIdempotencyStore) DeleteBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, entry := range s.entries {
		if entry.created.Before(cutoff) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed, nil
}

type PgIdempotencyStore struct {
	db *pgxpool.Pool
}

func NewPgIdempotencyStore(db *pgxpool.Pool) *PgIdempotencyStore {
	return &PgIdempotencyStore{db: db}
}

func (s *PgIdempotencyStore) Lookup(ctx context.Context, sessionID, endpoint, key string) (IdempotentResponse, bool, error) {
	var resp IdempotentResponse
	err := s.db.QueryRow(ctx, `
    SELECT request_hash, status, response_json
    FROM idempotency_keys
    WHERE session_id = $1 AND endpoint = $2 AND key = $3
  `, sessionID, endpoint, key).Scan(&resp.RequestHash, &resp.Status, &resp.Body)
	if errors.Is(err, pgx.ErrNoRows) {
		return IdempotentResponse{}, false, nil
	}
	if err != nil {
		return IdempotentResponse{}, false, err
	}
	return resp, true, nil
}

func (s *PgIdempotencyStore) Save(ctx context.Context, sessionID, endpoint, key string, resp IdempotentResponse) error {
	tag, err := s.db.Exec(ctx, `
    INSERT INTO idempotency_keys (session_id, endpoint, key, request_hash, status, response_json)
    VALUES ($1, $2, $3, $4, $5, $6)
    ON CONFLICT (session_id, endpoint, key)
    DO UPDATE SET status = EXCLUDED.status, response_json = EXCLUDED.response_json
    WHERE idempotency_keys.request_hash = EXCLUDED.request_hash
  `, sessionID, endpoint, key, resp.RequestHash, resp.Status, resp.Body)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrIdempotencyConflict
	}
	return nil
}

func (s *PgIdempotencyStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
