package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/theponti/rocco-api/internal/dbx"
	"github.com/theponti/rocco-api/internal/model"
)

// TokenStore persists both token variants in the shared tokens table. The
// variant split (EmailToken vs APIToken) exists only above this boundary;
// rows are mapped to the right type on the way out.
type TokenStore struct {
	db dbx.Querier
}

func NewTokenStore(db dbx.Querier) *TokenStore {
	return &TokenStore{db: db}
}

func scanEmailToken(scanner interface{ Scan(...any) error }) (*model.EmailToken, error) {
	var t model.EmailToken
	err := scanner.Scan(&t.ID, &t.UserID, &t.Token, &t.Valid, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const emailTokenCols = `id, user_id, email_token, valid, expires_at, created_at`

func (s *TokenStore) CreateEmailToken(ctx context.Context, userID, token string, expiresAt time.Time) (*model.EmailToken, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO tokens (type, user_id, email_token, expires_at) VALUES (?, ?, ?, ?)`,
		model.TokenTypeEmail, userID, token, expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert email token: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetEmailTokenByID(ctx, id)
}

func (s *TokenStore) GetEmailTokenByID(ctx context.Context, id int64) (*model.EmailToken, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+emailTokenCols+` FROM tokens WHERE id = ? AND type = ?`,
		id, model.TokenTypeEmail,
	)
	t, err := scanEmailToken(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get email token: %w", err)
	}
	return t, nil
}

// GetEmailTokenWithUser returns the EMAIL row matching the code (the code
// column is unique, so at most one), left-joined with its owning user. The
// user is nil when the row exists but the join finds no owner. Validity and
// expiry are NOT filtered here; the exchanger checks them in order so each
// failure gets its own reason.
func (s *TokenStore) GetEmailTokenWithUser(ctx context.Context, token string) (*model.EmailToken, *model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT t.`+"id, t.user_id, t.email_token, t.valid, t.expires_at, t.created_at"+`,
		        u.id, u.email, u.name, u.is_admin, u.email_verified_at, u.created_at, u.updated_at
		 FROM tokens t
		 LEFT JOIN users u ON u.id = t.user_id
		 WHERE t.email_token = ? AND t.type = ?`,
		token, model.TokenTypeEmail,
	)

	var t model.EmailToken
	var uID, uEmail, uName sql.NullString
	var uAdmin sql.NullBool
	var uVerified, uCreated, uUpdated sql.NullTime
	err := row.Scan(
		&t.ID, &t.UserID, &t.Token, &t.Valid, &t.ExpiresAt, &t.CreatedAt,
		&uID, &uEmail, &uName, &uAdmin, &uVerified, &uCreated, &uUpdated,
	)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get email token with user: %w", err)
	}

	if !uID.Valid {
		return &t, nil, nil
	}
	u := &model.User{
		ID:      uID.String,
		Email:   uEmail.String,
		Name:    uName.String,
		IsAdmin: uAdmin.Bool,
	}
	if uVerified.Valid {
		u.EmailVerifiedAt = &uVerified.Time
	}
	if uCreated.Valid {
		u.CreatedAt = uCreated.Time
	}
	if uUpdated.Valid {
		u.UpdatedAt = uUpdated.Time
	}
	return &t, u, nil
}

func (s *TokenStore) CreateAPIToken(ctx context.Context, userID, accessToken, refreshToken string, expiresAt time.Time) (*model.APIToken, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO tokens (type, user_id, access_token, refresh_token, expires_at) VALUES (?, ?, ?, ?, ?)`,
		model.TokenTypeAPI, userID, accessToken, refreshToken, expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert api token: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, access_token, refresh_token, valid, expires_at, created_at
		 FROM tokens WHERE id = ? AND type = ?`,
		id, model.TokenTypeAPI,
	)
	var t model.APIToken
	if err := row.Scan(&t.ID, &t.UserID, &t.AccessToken, &t.RefreshToken, &t.Valid, &t.ExpiresAt, &t.CreatedAt); err != nil {
		return nil, fmt.Errorf("get api token: %w", err)
	}
	return &t, nil
}

// InvalidateEmailToken flips valid to false for the EMAIL row with this id.
// The type guard keeps an API row with a colliding id untouched, and the
// valid guard makes redemption at-most-once: the returned count is zero when
// another exchange already claimed the row.
func (s *TokenStore) InvalidateEmailToken(ctx context.Context, id int64) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE tokens SET valid = 0, updated_at = datetime('now') WHERE id = ? AND type = ? AND valid = 1`,
		id, model.TokenTypeEmail,
	)
	if err != nil {
		return 0, fmt.Errorf("invalidate email token: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}

func (s *TokenStore) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete tokens for user: %w", err)
	}
	return nil
}

// DeleteExpiredEmailTokens removes EMAIL rows past their expiry. API rows are
// kept for audit; only the short-lived codes get swept.
func (s *TokenStore) DeleteExpiredEmailTokens(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM tokens WHERE type = ? AND expires_at <= datetime('now')`,
		model.TokenTypeEmail,
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired email tokens: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
