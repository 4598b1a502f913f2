package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/theponti/rocco-api/internal/database"
	"github.com/theponti/rocco-api/internal/model"
)

func setupBookmarkTestDB(t *testing.T) (*BookmarkStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewBookmarkStore(db), NewUserStore(db)
}

func TestBookmarkCreate(t *testing.T) {
	bs, us := setupBookmarkTestDB(t)
	ctx := context.Background()

	u, err := us.Create(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	b, err := bs.Create(ctx, u.ID, model.Bookmark{
		URL:      "https://example.com/post",
		Title:    "A post",
		SiteName: "example.com",
	})
	if err != nil {
		t.Fatalf("create bookmark: %v", err)
	}
	if b.URL != "https://example.com/post" {
		t.Errorf("url = %q, want %q", b.URL, "https://example.com/post")
	}
	if b.UserID != u.ID {
		t.Errorf("user_id = %q, want %q", b.UserID, u.ID)
	}
}

func TestBookmarkUpdateOwnerOnly(t *testing.T) {
	bs, us := setupBookmarkTestDB(t)
	ctx := context.Background()

	alice, _ := us.Create(ctx, "alice@example.com")
	bob, _ := us.Create(ctx, "bob@example.com")
	b, _ := bs.Create(ctx, alice.ID, model.Bookmark{URL: "https://example.com", Title: "Before"})

	_, err := bs.Update(ctx, b.ID, bob.ID, model.Bookmark{URL: "https://example.com", Title: "Hijacked"})
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("update as non-owner err = %v, want sql.ErrNoRows", err)
	}

	updated, err := bs.Update(ctx, b.ID, alice.ID, model.Bookmark{URL: "https://example.com", Title: "After"})
	if err != nil {
		t.Fatalf("update as owner: %v", err)
	}
	if updated.Title != "After" {
		t.Errorf("title = %q, want %q", updated.Title, "After")
	}
}

func TestBookmarkDelete(t *testing.T) {
	bs, us := setupBookmarkTestDB(t)
	ctx := context.Background()

	alice, _ := us.Create(ctx, "alice@example.com")
	b, _ := bs.Create(ctx, alice.ID, model.Bookmark{URL: "https://example.com", Title: "Post"})

	if err := bs.Delete(ctx, b.ID, alice.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := bs.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}

	err = bs.Delete(ctx, b.ID, alice.ID)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("second delete err = %v, want sql.ErrNoRows", err)
	}
}
