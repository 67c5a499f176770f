package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tendant/simple-accounts/pkg/domain"
	"github.com/tendant/simple-accounts/pkg/session"
)

// SessionsRepository stores sessions in the sessions table. It implements
// session.Store for deployments that already share a database.
type SessionsRepository struct {
	db      *sql.DB
	dialect Dialect
	ttl     time.Duration
	now     func() time.Time
}

var _ session.Store = (*SessionsRepository)(nil)

// NewSessionsRepository creates a new sessions repository. Sessions expire
// ttl after their last save.
func NewSessionsRepository(db *sql.DB, dialect Dialect, ttl time.Duration) *SessionsRepository {
	return &SessionsRepository{db: db, dialect: dialect, ttl: ttl, now: time.Now}
}

// Load retrieves a live session by ID.
func (r *SessionsRepository) Load(ctx context.Context, id string) (*session.Session, error) {
	query := r.dialect.Rebind(`
		SELECT data, created_at
		FROM sessions
		WHERE id = ? AND expires_at > ?
	`)
	var (
		data      string
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx, query, id, r.now().Unix()).Scan(&data, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	s := &session.Session{
		ID:        id,
		Values:    map[string]json.RawMessage{},
		CreatedAt: time.Unix(createdAt, 0),
	}
	if err := json.Unmarshal([]byte(data), &s.Values); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}

// Save creates or replaces a session and restarts its TTL.
func (r *SessionsRepository) Save(ctx context.Context, s *session.Session) error {
	data, err := json.Marshal(s.Values)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	now := r.now()
	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	err = Tx(ctx, r.db, func(tx *sql.Tx) error {
		query := r.dialect.Rebind(`
			INSERT INTO sessions (id, data, created_at, expires_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at
		`)
		_, err := tx.ExecContext(ctx, query, s.ID, string(data), createdAt.Unix(), now.Add(r.ttl).Unix())
		return err
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.MarkClean()
	return nil
}

// Destroy deletes a session. Unknown IDs are not an error.
func (r *SessionsRepository) Destroy(ctx context.Context, id string) error {
	err := Tx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM sessions WHERE id = ?`), id)
		return err
	})
	if err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// DeleteExpired removes expired sessions and returns how many were deleted.
func (r *SessionsRepository) DeleteExpired(ctx context.Context) (int64, error) {
	var deleted int64
	err := Tx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM sessions WHERE expires_at <= ?`), r.now().Unix())
		if err != nil {
			return err
		}
		deleted, err = result.RowsAffected()
		return err
	})
	return deleted, err
}
