package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/theponti/rocco-api/internal/dbx"
	"github.com/theponti/rocco-api/internal/model"
)

type ListStore struct {
	db dbx.Querier
}

func NewListStore(db dbx.Querier) *ListStore {
	return &ListStore{db: db}
}

func scanList(scanner interface{ Scan(...any) error }) (*model.List, error) {
	var l model.List
	err := scanner.Scan(&l.ID, &l.Name, &l.Description, &l.UserID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

const listCols = `id, name, description, user_id, created_at, updated_at`

func (s *ListStore) Create(ctx context.Context, userID, name, description string) (*model.List, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lists (id, name, description, user_id) VALUES (?, ?, ?, ?)`,
		id, name, description, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert list: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ListStore) GetByID(ctx context.Context, id string) (*model.List, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+listCols+` FROM lists WHERE id = ?`, id)
	l, err := scanList(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get list: %w", err)
	}
	return l, nil
}

// ListForUser returns lists the user owns plus lists shared with them through
// accepted invites, newest first.
func (s *ListStore) ListForUser(ctx context.Context, userID string) ([]*model.List, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+listCols+` FROM lists WHERE user_id = ?
		 UNION
		 SELECT l.id, l.name, l.description, l.user_id, l.created_at, l.updated_at
		 FROM lists l JOIN user_lists ul ON ul.list_id = l.id
		 WHERE ul.user_id = ?
		 ORDER BY created_at DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list lists for user: %w", err)
	}
	defer rows.Close()

	var lists []*model.List
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		lists = append(lists, l)
	}
	return lists, rows.Err()
}

// CountOwnedBy returns how many lists the user owns outright.
func (s *ListStore) CountOwnedBy(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lists WHERE user_id = ?`,
		userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count lists for user: %w", err)
	}
	return n, nil
}

// HasAccess reports whether the user owns the list or has accepted an invite
// to it.
func (s *ListStore) HasAccess(ctx context.Context, listID, userID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lists WHERE id = ? AND user_id = ?`,
		listID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check list ownership: %w", err)
	}
	if n > 0 {
		return true, nil
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_lists WHERE list_id = ? AND user_id = ?`,
		listID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check list access: %w", err)
	}
	return n > 0, nil
}

func (s *ListStore) Update(ctx context.Context, id, name, description string) (*model.List, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE lists SET name = ?, description = ?, updated_at = datetime('now') WHERE id = ?`,
		name, description, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update list: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ListStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM lists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	return nil
}

func (s *ListStore) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM lists WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete lists for user: %w", err)
	}
	return nil
}

func scanListInvite(scanner interface{ Scan(...any) error }) (*model.ListInvite, error) {
	var inv model.ListInvite
	var invitedID sql.NullString
	err := scanner.Scan(&inv.ListID, &inv.InvitedUserEmail, &invitedID, &inv.UserID, &inv.Accepted, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	if invitedID.Valid {
		inv.InvitedUserID = &invitedID.String
	}
	return &inv, nil
}

const listInviteCols = `list_id, invited_user_email, invited_user_id, user_id, accepted, created_at`

func (s *ListStore) CreateInvite(ctx context.Context, listID, invitedEmail, userID string) (*model.ListInvite, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO list_invites (list_id, invited_user_email, user_id) VALUES (?, ?, ?)`,
		listID, invitedEmail, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert list invite: %w", err)
	}
	return s.GetInvite(ctx, listID, invitedEmail)
}

func (s *ListStore) GetInvite(ctx context.Context, listID, invitedEmail string) (*model.ListInvite, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+listInviteCols+` FROM list_invites WHERE list_id = ? AND invited_user_email = ?`,
		listID, invitedEmail,
	)
	inv, err := scanListInvite(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get list invite: %w", err)
	}
	return inv, nil
}

// PendingInvitesForEmail returns invites addressed to this email that have
// not been accepted yet.
func (s *ListStore) PendingInvitesForEmail(ctx context.Context, email string) ([]*model.ListInvite, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+listInviteCols+` FROM list_invites WHERE invited_user_email = ? AND accepted = 0 ORDER BY created_at DESC`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending invites: %w", err)
	}
	defer rows.Close()

	var invites []*model.ListInvite
	for rows.Next() {
		inv, err := scanListInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan list invite: %w", err)
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}

// AcceptInvite marks the invite accepted and records shared access for the
// accepting user.
func (s *ListStore) AcceptInvite(ctx context.Context, listID, invitedEmail, userID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE list_invites SET accepted = 1, invited_user_id = ? WHERE list_id = ? AND invited_user_email = ? AND accepted = 0`,
		userID, listID, invitedEmail,
	)
	if err != nil {
		return fmt.Errorf("accept list invite: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if count == 0 {
		return sql.ErrNoRows
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO user_lists (list_id, user_id) VALUES (?, ?)
		 ON CONFLICT (list_id, user_id) DO NOTHING`,
		listID, userID,
	)
	if err != nil {
		return fmt.Errorf("record shared list: %w", err)
	}
	return nil
}
