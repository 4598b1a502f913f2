package auth

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/theponti/rocco-api/internal/database"
	"github.com/theponti/rocco-api/internal/store"
)

type fakeMailer struct {
	emails []string
	codes  []string
	err    error
}

func (m *fakeMailer) SendLoginToken(ctx context.Context, email, code string) error {
	if m.err != nil {
		return m.err
	}
	m.emails = append(m.emails, email)
	m.codes = append(m.codes, code)
	return nil
}

func (m *fakeMailer) lastCode(t *testing.T) string {
	t.Helper()
	if len(m.codes) == 0 {
		t.Fatal("no login codes were sent")
	}
	return m.codes[len(m.codes)-1]
}

func setupService(t *testing.T) (*Service, *fakeMailer, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mailer := &fakeMailer{}
	svc := NewService(db, NewSigner([]byte("test-secret")), mailer, slog.Default())
	return svc, mailer, db
}

func TestGenerateLoginCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateLoginCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != 8 {
			t.Fatalf("code %q has %d digits, want 8", code, len(code))
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Fatalf("code %q contains non-digit %q", code, c)
			}
		}
	}
}

func TestIssueLoginToken(t *testing.T) {
	svc, mailer, db := setupService(t)
	ctx := context.Background()

	if err := svc.IssueLoginToken(ctx, "alice@example.com"); err != nil {
		t.Fatalf("issue: %v", err)
	}

	if len(mailer.emails) != 1 || mailer.emails[0] != "alice@example.com" {
		t.Errorf("mailed to %v, want [alice@example.com]", mailer.emails)
	}

	users := store.NewUserStore(db)
	u, err := users.GetByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u == nil {
		t.Fatal("expected user to be created")
	}

	tokens := store.NewTokenStore(db)
	tok, owner, err := tokens.GetEmailTokenWithUser(ctx, mailer.lastCode(t))
	if err != nil {
		t.Fatalf("get token: %v", err)
	}
	if tok == nil {
		t.Fatal("expected token row")
	}
	if !tok.Valid {
		t.Error("new token should be valid")
	}
	if owner == nil || owner.ID != u.ID {
		t.Error("token should be bound to the created user")
	}
}

func TestIssueLoginTokenReusesUser(t *testing.T) {
	svc, _, db := setupService(t)
	ctx := context.Background()

	svc.IssueLoginToken(ctx, "alice@example.com")
	svc.IssueLoginToken(ctx, "alice@example.com")

	users, err := store.NewUserStore(db).List(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("users = %d, want 1", len(users))
	}
}

func TestIssueLoginTokenDeliveryFailure(t *testing.T) {
	svc, mailer, db := setupService(t)
	ctx := context.Background()

	mailer.err = errors.New("smtp down")
	err := svc.IssueLoginToken(ctx, "alice@example.com")
	if !errors.Is(err, ErrDelivery) {
		t.Fatalf("err = %v, want ErrDelivery", err)
	}

	// The persisted token outlives the failed send and stays valid.
	var count int
	db.QueryRow(`SELECT COUNT(*) FROM tokens WHERE type = 'EMAIL' AND valid = 1`).Scan(&count)
	if count != 1 {
		t.Errorf("valid email tokens = %d, want 1", count)
	}
}

func TestExchange(t *testing.T) {
	svc, mailer, db := setupService(t)
	ctx := context.Background()

	if err := svc.IssueLoginToken(ctx, "alice@example.com"); err != nil {
		t.Fatalf("issue: %v", err)
	}

	res, err := svc.Exchange(ctx, "alice@example.com", mailer.lastCode(t))
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if res.AccessToken == "" {
		t.Error("expected access token")
	}
	if res.Principal.UserID == "" {
		t.Error("expected principal user id")
	}
	if res.Principal.IsAdmin {
		t.Error("fresh user should not be admin")
	}
	if len(res.Principal.Roles) != 1 || res.Principal.Roles[0] != "user" {
		t.Errorf("roles = %v, want [user]", res.Principal.Roles)
	}

	// The bearer token embeds the same user id.
	claims, err := NewSigner([]byte("test-secret")).Verify(res.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != res.Principal.UserID {
		t.Errorf("claims userId = %q, want %q", claims.UserID, res.Principal.UserID)
	}

	// First exchange provisions the default list.
	owned, err := store.NewListStore(db).CountOwnedBy(ctx, res.Principal.UserID)
	if err != nil {
		t.Fatalf("count lists: %v", err)
	}
	if owned != 1 {
		t.Errorf("owned lists = %d, want 1", owned)
	}
	lists, _ := store.NewListStore(db).ListForUser(ctx, res.Principal.UserID)
	if len(lists) != 1 || lists[0].Name != "General" {
		t.Errorf("lists = %v, want one named General", lists)
	}
}

func TestExchangeSecondUseFails(t *testing.T) {
	svc, mailer, _ := setupService(t)
	ctx := context.Background()

	svc.IssueLoginToken(ctx, "alice@example.com")
	code := mailer.lastCode(t)

	if _, err := svc.Exchange(ctx, "alice@example.com", code); err != nil {
		t.Fatalf("first exchange: %v", err)
	}

	_, err := svc.Exchange(ctx, "alice@example.com", code)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("second exchange err = %v, want ErrTokenInvalid", err)
	}
}

func TestExchangeConcurrentRedemption(t *testing.T) {
	svc, mailer, db := setupService(t)
	ctx := context.Background()

	// The in-memory fixture gives every pool connection its own database, so
	// pin the pool to one connection before racing.
	db.SetMaxOpenConns(1)

	svc.IssueLoginToken(ctx, "alice@example.com")
	code := mailer.lastCode(t)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Exchange(ctx, "alice@example.com", code)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var wins, losses int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrTokenInvalid):
			losses++
		default:
			t.Errorf("unexpected exchange error: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Errorf("wins = %d, losses = %d, want exactly one of each", wins, losses)
	}

	// Only the winner minted an API token, and the code is spent.
	var apiCount int
	db.QueryRow(`SELECT COUNT(*) FROM tokens WHERE type = 'API'`).Scan(&apiCount)
	if apiCount != 1 {
		t.Errorf("api tokens = %d, want 1", apiCount)
	}
	var valid bool
	db.QueryRow(`SELECT valid FROM tokens WHERE email_token = ?`, code).Scan(&valid)
	if valid {
		t.Error("email token should be spent after the race")
	}
}

func TestExchangeUnknownToken(t *testing.T) {
	svc, _, _ := setupService(t)

	_, err := svc.Exchange(context.Background(), "alice@example.com", "00000000")
	if !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("err = %v, want ErrTokenNotFound", err)
	}
}

func TestExchangeInvalidatedToken(t *testing.T) {
	svc, mailer, db := setupService(t)
	ctx := context.Background()

	svc.IssueLoginToken(ctx, "alice@example.com")
	code := mailer.lastCode(t)

	tokens := store.NewTokenStore(db)
	tok, _, _ := tokens.GetEmailTokenWithUser(ctx, code)
	if _, err := tokens.InvalidateEmailToken(ctx, tok.ID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	_, err := svc.Exchange(ctx, "alice@example.com", code)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestExchangeExpiredToken(t *testing.T) {
	svc, _, db := setupService(t)
	ctx := context.Background()

	users := store.NewUserStore(db)
	tokens := store.NewTokenStore(db)
	u, _ := users.Create(ctx, "alice@example.com")
	tokens.CreateEmailToken(ctx, u.ID, "12345678", time.Now().UTC().Add(-time.Minute))

	_, err := svc.Exchange(ctx, "alice@example.com", "12345678")
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("err = %v, want ErrTokenExpired", err)
	}
}

func TestExchangeExpiryBoundary(t *testing.T) {
	svc, _, db := setupService(t)
	ctx := context.Background()

	users := store.NewUserStore(db)
	tokens := store.NewTokenStore(db)
	u, _ := users.Create(ctx, "alice@example.com")

	// Expiry strictly in the future, however close, is still redeemable.
	tokens.CreateEmailToken(ctx, u.ID, "12345678", time.Now().UTC().Add(5*time.Second))
	if _, err := svc.Exchange(ctx, "alice@example.com", "12345678"); err != nil {
		t.Errorf("exchange near expiry: %v", err)
	}
}

func TestExchangeEmailMismatch(t *testing.T) {
	svc, mailer, _ := setupService(t)
	ctx := context.Background()

	svc.IssueLoginToken(ctx, "alice@example.com")

	_, err := svc.Exchange(ctx, "mallory@example.com", mailer.lastCode(t))
	if !errors.Is(err, ErrEmailMismatch) {
		t.Errorf("err = %v, want ErrEmailMismatch", err)
	}
}

func TestExchangeOlderTokenStillRedeemable(t *testing.T) {
	svc, mailer, _ := setupService(t)
	ctx := context.Background()

	svc.IssueLoginToken(ctx, "alice@example.com")
	older := mailer.lastCode(t)
	svc.IssueLoginToken(ctx, "alice@example.com")
	newer := mailer.lastCode(t)
	if older == newer {
		t.Skip("codes collided")
	}

	// Issuing a newer code does not invalidate its siblings.
	if _, err := svc.Exchange(ctx, "alice@example.com", older); err != nil {
		t.Errorf("exchange with older code: %v", err)
	}
}

func TestExchangeAdminRoles(t *testing.T) {
	svc, mailer, db := setupService(t)
	ctx := context.Background()

	svc.IssueLoginToken(ctx, "root@example.com")
	if _, err := db.Exec(`UPDATE users SET is_admin = 1 WHERE email = ?`, "root@example.com"); err != nil {
		t.Fatalf("promote user: %v", err)
	}

	res, err := svc.Exchange(ctx, "root@example.com", mailer.lastCode(t))
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if !res.Principal.IsAdmin {
		t.Error("expected admin principal")
	}
	if len(res.Principal.Roles) != 2 || res.Principal.Roles[1] != "admin" {
		t.Errorf("roles = %v, want [user admin]", res.Principal.Roles)
	}
}
