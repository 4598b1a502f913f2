package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/theponti/rocco-api/internal/dbx"
	"github.com/theponti/rocco-api/internal/model"
)

const sessionTTL = 90 * 24 * time.Hour

type SessionStore struct {
	db dbx.Querier
}

func NewSessionStore(db dbx.Querier) *SessionStore {
	return &SessionStore{db: db}
}

func generateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func joinRoles(roles []string) string {
	return strings.Join(roles, ",")
}

func splitRoles(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func scanSession(scanner interface{ Scan(...any) error }) (*model.Session, error) {
	var sess model.Session
	var roles string
	err := scanner.Scan(
		&sess.ID, &sess.Token, &sess.UserID, &sess.Email, &sess.Name,
		&sess.IsAdmin, &roles, &sess.ExpiresAt, &sess.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	sess.Roles = splitRoles(roles)
	return &sess, nil
}

const sessionCols = `id, token, user_id, email, name, is_admin, roles, expires_at, created_at`

// Create stores a principal snapshot under a fresh random token.
func (s *SessionStore) Create(ctx context.Context, userID, email, name string, isAdmin bool, roles []string) (*model.Session, error) {
	token, err := generateSessionToken()
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().UTC().Add(sessionTTL)

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, email, name, is_admin, roles, expires_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		token, userID, email, name, isAdmin, joinRoles(roles), expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionCols+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// GetByToken returns the unexpired session for a cookie token, or nil.
func (s *SessionStore) GetByToken(ctx context.Context, token string) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionCols+` FROM sessions WHERE token = ? AND expires_at > datetime('now')`,
		token,
	)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session by token: %w", err)
	}
	return sess, nil
}

// UpdateIdentity backfills the email and name fields of a session whose
// principal was materialized before they were known.
func (s *SessionStore) UpdateIdentity(ctx context.Context, id int64, email, name string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET email = ?, name = ? WHERE id = ?`,
		email, name, id,
	)
	if err != nil {
		return fmt.Errorf("update session identity: %w", err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete sessions for user: %w", err)
	}
	return nil
}

func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= datetime('now')`)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
