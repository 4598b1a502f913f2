package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/theponti/rocco-api/internal/dbx"
	"github.com/theponti/rocco-api/internal/model"
)

type IdeaStore struct {
	db dbx.Querier
}

func NewIdeaStore(db dbx.Querier) *IdeaStore {
	return &IdeaStore{db: db}
}

func scanIdea(scanner interface{ Scan(...any) error }) (*model.Idea, error) {
	var i model.Idea
	err := scanner.Scan(&i.ID, &i.Description, &i.UserID, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

const ideaCols = `id, description, user_id, created_at, updated_at`

func (s *IdeaStore) Create(ctx context.Context, userID, description string) (*model.Idea, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ideas (id, description, user_id) VALUES (?, ?, ?)`,
		id, description, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert idea: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+ideaCols+` FROM ideas WHERE id = ?`, id)
	return scanIdea(row)
}

func (s *IdeaStore) ListForUser(ctx context.Context, userID string) ([]*model.Idea, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ideaCols+` FROM ideas WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list ideas: %w", err)
	}
	defer rows.Close()

	var ideas []*model.Idea
	for rows.Next() {
		i, err := scanIdea(rows)
		if err != nil {
			return nil, fmt.Errorf("scan idea: %w", err)
		}
		ideas = append(ideas, i)
	}
	return ideas, rows.Err()
}

// Delete removes the idea only when it belongs to the user.
func (s *IdeaStore) Delete(ctx context.Context, id, userID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM ideas WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("delete idea: %w", err)
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
