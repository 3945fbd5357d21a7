package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nodesight/nodesight/internal/store"
)

// SessionStore persists sessions so logins survive gateway restarts.
type SessionStore struct {
	db *store.SQLiteStore
}

// NewSessionStore creates the store and applies its migrations.
func NewSessionStore(ctx context.Context, db *store.SQLiteStore) (*SessionStore, error) {
	s := &SessionStore{db: db}
	if err := db.Migrate(ctx, "auth", migrations()); err != nil {
		return nil, fmt.Errorf("migrate auth schema: %w", err)
	}
	return s, nil
}

func migrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "create sessions table",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE sessions (
						id         TEXT     PRIMARY KEY,
						user_json  TEXT     NOT NULL,
						created_at DATETIME NOT NULL,
						expires_at DATETIME NOT NULL
					)
				`)
				return err
			},
		},
		{
			Version:     2,
			Description: "index sessions by expiry for the sweeper",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec("CREATE INDEX idx_sessions_expires ON sessions(expires_at)")
				return err
			},
		},
	}
}

// Save inserts or replaces a session row.
func (s *SessionStore) Save(ctx context.Context, sess *Session) error {
	userJSON, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("marshal session user: %w", err)
	}
	_, err = s.db.DB().ExecContext(ctx,
		"INSERT OR REPLACE INTO sessions (id, user_json, created_at, expires_at) VALUES (?, ?, ?, ?)",
		sess.ID, string(userJSON), sess.CreatedAt.UTC(), sess.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Get loads a session by identifier.
func (s *SessionStore) Get(ctx context.Context, id string) (*Session, error) {
	var (
		userJSON  string
		createdAt time.Time
		expiresAt time.Time
	)
	err := s.db.DB().QueryRowContext(ctx,
		"SELECT user_json, created_at, expires_at FROM sessions WHERE id = ?", id,
	).Scan(&userJSON, &createdAt, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	sess := &Session{ID: id, CreatedAt: createdAt, ExpiresAt: expiresAt}
	if err := json.Unmarshal([]byte(userJSON), &sess.User); err != nil {
		return nil, fmt.Errorf("unmarshal session user: %w", err)
	}
	return sess, nil
}

// All returns every stored session, expired or not.
func (s *SessionStore) All(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.DB().QueryContext(ctx,
		"SELECT id, user_json, created_at, expires_at FROM sessions",
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		var (
			sess     Session
			userJSON string
		)
		if err := rows.Scan(&sess.ID, &userJSON, &sess.CreatedAt, &sess.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if err := json.Unmarshal([]byte(userJSON), &sess.User); err != nil {
			return nil, fmt.Errorf("unmarshal session user: %w", err)
		}
		out = append(out, &sess)
	}
	return out, rows.Err()
}

// Delete removes a session row.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.DB().ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// DeleteExpired removes all sessions past their expiry and returns their IDs.
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := s.db.DB().QueryContext(ctx,
		"SELECT id FROM sessions WHERE expires_at < ?", now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query expired sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) > 0 {
		_, err = s.db.DB().ExecContext(ctx,
			"DELETE FROM sessions WHERE expires_at < ?", now.UTC(),
		)
		if err != nil {
			return nil, fmt.Errorf("delete expired sessions: %w", err)
		}
	}
	return ids, nil
}
