package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/theponti/rocco-api/internal/dbx"
	"github.com/theponti/rocco-api/internal/model"
)

type BookmarkStore struct {
	db dbx.Querier
}

func NewBookmarkStore(db dbx.Querier) *BookmarkStore {
	return &BookmarkStore{db: db}
}

func scanBookmark(scanner interface{ Scan(...any) error }) (*model.Bookmark, error) {
	var b model.Bookmark
	err := scanner.Scan(&b.ID, &b.URL, &b.Title, &b.Description, &b.Image, &b.SiteName, &b.UserID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

const bookmarkCols = `id, url, title, description, image, site_name, user_id, created_at, updated_at`

func (s *BookmarkStore) Create(ctx context.Context, userID string, b model.Bookmark) (*model.Bookmark, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bookmarks (id, url, title, description, image, site_name, user_id) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, b.URL, b.Title, b.Description, b.Image, b.SiteName, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert bookmark: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *BookmarkStore) GetByID(ctx context.Context, id string) (*model.Bookmark, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookmarkCols+` FROM bookmarks WHERE id = ?`, id)
	b, err := scanBookmark(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get bookmark: %w", err)
	}
	return b, nil
}

func (s *BookmarkStore) ListForUser(ctx context.Context, userID string) ([]*model.Bookmark, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookmarkCols+` FROM bookmarks WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()

	var bookmarks []*model.Bookmark
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, rows.Err()
}

func (s *BookmarkStore) Update(ctx context.Context, id, userID string, b model.Bookmark) (*model.Bookmark, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE bookmarks SET url = ?, title = ?, description = ?, image = ?, site_name = ?, updated_at = datetime('now')
		 WHERE id = ? AND user_id = ?`,
		b.URL, b.Title, b.Description, b.Image, b.SiteName, id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update bookmark: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if count == 0 {
		return nil, sql.ErrNoRows
	}
	return s.GetByID(ctx, id)
}

func (s *BookmarkStore) Delete(ctx context.Context, id, userID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if count == 0 {
		return sql.ErrNoRows
	}
	return nil
}
