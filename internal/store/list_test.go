package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/theponti/rocco-api/internal/database"
)

func setupListTestDB(t *testing.T) (*ListStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewListStore(db), NewUserStore(db)
}

func TestListCreate(t *testing.T) {
	ls, us := setupListTestDB(t)
	ctx := context.Background()

	u, err := us.Create(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	l, err := ls.Create(ctx, u.ID, "Groceries", "weekly shop")
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	if l.Name != "Groceries" {
		t.Errorf("name = %q, want %q", l.Name, "Groceries")
	}
	if l.UserID != u.ID {
		t.Errorf("user_id = %q, want %q", l.UserID, u.ID)
	}
}

func TestListForUserIncludesShared(t *testing.T) {
	ls, us := setupListTestDB(t)
	ctx := context.Background()

	owner, _ := us.Create(ctx, "alice@example.com")
	guest, _ := us.Create(ctx, "bob@example.com")

	owned, _ := ls.Create(ctx, owner.ID, "Owned", "")
	shared, _ := ls.Create(ctx, owner.ID, "Shared", "")

	if _, err := ls.CreateInvite(ctx, shared.ID, guest.Email, owner.ID); err != nil {
		t.Fatalf("create invite: %v", err)
	}
	if err := ls.AcceptInvite(ctx, shared.ID, guest.Email, guest.ID); err != nil {
		t.Fatalf("accept invite: %v", err)
	}

	ownerLists, err := ls.ListForUser(ctx, owner.ID)
	if err != nil {
		t.Fatalf("list for owner: %v", err)
	}
	if len(ownerLists) != 2 {
		t.Errorf("owner lists = %d, want 2", len(ownerLists))
	}

	guestLists, err := ls.ListForUser(ctx, guest.ID)
	if err != nil {
		t.Fatalf("list for guest: %v", err)
	}
	if len(guestLists) != 1 {
		t.Fatalf("guest lists = %d, want 1", len(guestLists))
	}
	if guestLists[0].ID != shared.ID {
		t.Errorf("guest sees %q, want shared list %q", guestLists[0].ID, shared.ID)
	}
	_ = owned
}

func TestListHasAccess(t *testing.T) {
	ls, us := setupListTestDB(t)
	ctx := context.Background()

	owner, _ := us.Create(ctx, "alice@example.com")
	guest, _ := us.Create(ctx, "bob@example.com")
	stranger, _ := us.Create(ctx, "carol@example.com")

	l, _ := ls.Create(ctx, owner.ID, "Shared", "")
	ls.CreateInvite(ctx, l.ID, guest.Email, owner.ID)
	ls.AcceptInvite(ctx, l.ID, guest.Email, guest.ID)

	for _, tc := range []struct {
		userID string
		want   bool
	}{
		{owner.ID, true},
		{guest.ID, true},
		{stranger.ID, false},
	} {
		got, err := ls.HasAccess(ctx, l.ID, tc.userID)
		if err != nil {
			t.Fatalf("has access: %v", err)
		}
		if got != tc.want {
			t.Errorf("access for %q = %v, want %v", tc.userID, got, tc.want)
		}
	}
}

func TestAcceptInviteTwice(t *testing.T) {
	ls, us := setupListTestDB(t)
	ctx := context.Background()

	owner, _ := us.Create(ctx, "alice@example.com")
	guest, _ := us.Create(ctx, "bob@example.com")
	l, _ := ls.Create(ctx, owner.ID, "Shared", "")

	ls.CreateInvite(ctx, l.ID, guest.Email, owner.ID)
	if err := ls.AcceptInvite(ctx, l.ID, guest.Email, guest.ID); err != nil {
		t.Fatalf("accept invite: %v", err)
	}

	err := ls.AcceptInvite(ctx, l.ID, guest.Email, guest.ID)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("second accept err = %v, want sql.ErrNoRows", err)
	}
}

func TestAcceptInviteNotFound(t *testing.T) {
	ls, us := setupListTestDB(t)
	ctx := context.Background()

	guest, _ := us.Create(ctx, "bob@example.com")

	err := ls.AcceptInvite(ctx, "no-such-list", guest.Email, guest.ID)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestPendingInvitesForEmail(t *testing.T) {
	ls, us := setupListTestDB(t)
	ctx := context.Background()

	owner, _ := us.Create(ctx, "alice@example.com")
	first, _ := ls.Create(ctx, owner.ID, "First", "")
	second, _ := ls.Create(ctx, owner.ID, "Second", "")

	ls.CreateInvite(ctx, first.ID, "bob@example.com", owner.ID)
	ls.CreateInvite(ctx, second.ID, "bob@example.com", owner.ID)

	guest, _ := us.Create(ctx, "bob@example.com")
	if err := ls.AcceptInvite(ctx, first.ID, guest.Email, guest.ID); err != nil {
		t.Fatalf("accept invite: %v", err)
	}

	pending, err := ls.PendingInvitesForEmail(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("pending invites: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	if pending[0].ListID != second.ID {
		t.Errorf("pending list = %q, want %q", pending[0].ListID, second.ID)
	}
}

func TestListUpdateAndDelete(t *testing.T) {
	ls, us := setupListTestDB(t)
	ctx := context.Background()

	owner, _ := us.Create(ctx, "alice@example.com")
	l, _ := ls.Create(ctx, owner.ID, "Before", "")

	updated, err := ls.Update(ctx, l.ID, "After", "renamed")
	if err != nil {
		t.Fatalf("update list: %v", err)
	}
	if updated.Name != "After" {
		t.Errorf("name = %q, want %q", updated.Name, "After")
	}

	if err := ls.Delete(ctx, l.ID); err != nil {
		t.Fatalf("delete list: %v", err)
	}
	got, err := ls.GetByID(ctx, l.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}
