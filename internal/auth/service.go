package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/theponti/rocco-api/internal/dbx"
	"github.com/theponti/rocco-api/internal/model"
	"github.com/theponti/rocco-api/internal/store"
)

const (
	emailTokenTTL   = 10 * time.Minute
	apiTokenTTL     = 12 * time.Hour
	defaultListName = "General"
)

// TokenMailer delivers a login token to an email address. A send failure must
// surface as a login failure.
type TokenMailer interface {
	SendLoginToken(ctx context.Context, email, token string) error
}

// Service owns login-token issuance and redemption.
type Service struct {
	db     *sql.DB
	users  *store.UserStore
	tokens *store.TokenStore
	signer *Signer
	mailer TokenMailer
	logger *slog.Logger
}

func NewService(db *sql.DB, signer *Signer, mailer TokenMailer, logger *slog.Logger) *Service {
	return &Service{
		db:     db,
		users:  store.NewUserStore(db),
		tokens: store.NewTokenStore(db),
		signer: signer,
		mailer: mailer,
		logger: logger,
	}
}

// generateLoginCode returns an 8-digit numeric code (10000000-99999999).
// The lower bound keeps the code at exactly eight digits.
func generateLoginCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(90000000))
	if err != nil {
		return "", fmt.Errorf("generate login code: %w", err)
	}
	return fmt.Sprintf("%08d", n.Int64()+10000000), nil
}

// IssueLoginToken creates (or finds) the user for this email, persists a
// short-lived EMAIL token, and mails the code. The token row is persisted
// before the send is attempted; a send failure leaves the row valid and
// returns ErrDelivery.
func (s *Service) IssueLoginToken(ctx context.Context, email string) error {
	code, err := generateLoginCode()
	if err != nil {
		return err
	}
	expiresAt := time.Now().UTC().Add(emailTokenTTL)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		user, err = s.users.Create(ctx, email)
		if err != nil {
			return err
		}
	}

	if _, err := s.tokens.CreateEmailToken(ctx, user.ID, code, expiresAt); err != nil {
		return err
	}

	if err := s.mailer.SendLoginToken(ctx, email, code); err != nil {
		s.logger.Error("send login token", "error", err)
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	return nil
}

// ExchangeResult is what a successful redemption yields: the signed bearer
// token and the principal it embeds.
type ExchangeResult struct {
	AccessToken string
	Principal   Principal
	User        *model.User
}

// Exchange redeems an EMAIL token for an API token. The validation checks run
// in a fixed order and mutate nothing on failure; the mutating steps run in
// one transaction so a failure rolls back the whole issuance, including the
// one-way invalidation of the EMAIL token.
func (s *Service) Exchange(ctx context.Context, email, emailToken string) (*ExchangeResult, error) {
	tok, owner, err := s.tokens.GetEmailTokenWithUser(ctx, emailToken)
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, ErrTokenNotFound
	}
	if !tok.Valid {
		return nil, ErrTokenInvalid
	}
	// Strict comparison: a token expiring exactly now is still redeemable.
	if tok.ExpiresAt.Before(time.Now()) {
		return nil, ErrTokenExpired
	}
	if owner == nil {
		return nil, ErrUserNotFound
	}
	if owner.Email != email {
		return nil, ErrEmailMismatch
	}

	roles := []string{"user"}
	if owner.IsAdmin {
		roles = append(roles, "admin")
	}

	accessToken, err := s.signer.Sign(owner.ID, owner.IsAdmin, roles, apiTokenTTL)
	if err != nil {
		return nil, err
	}
	refreshToken := uuid.NewString()

	actingUser := owner
	err = dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.Querier) error {
		users := store.NewUserStore(tx)
		tokens := store.NewTokenStore(tx)
		lists := store.NewListStore(tx)

		// Re-check inside the transaction: the user may have been created
		// between the join above and now.
		existing, err := users.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			actingUser = existing
		} else {
			created, err := users.Create(ctx, email)
			if err != nil {
				return err
			}
			actingUser = created
		}

		// Every user owns at least one list after their first exchange.
		// Issuance creates the user row, so "new user" here means a user
		// who has never been provisioned, not one created in this
		// transaction.
		owned, err := lists.CountOwnedBy(ctx, actingUser.ID)
		if err != nil {
			return err
		}
		if owned == 0 {
			if _, err := lists.Create(ctx, actingUser.ID, defaultListName, ""); err != nil {
				return err
			}
		}

		expiresAt := time.Now().UTC().Add(apiTokenTTL)
		if _, err := tokens.CreateAPIToken(ctx, actingUser.ID, accessToken, refreshToken, expiresAt); err != nil {
			return err
		}

		// At-most-once redemption: a concurrent exchange that already claimed
		// this row makes the update a no-op, and this transaction loses.
		count, err := tokens.InvalidateEmailToken(ctx, tok.ID)
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrTokenInvalid
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ExchangeResult{
		AccessToken: accessToken,
		Principal: Principal{
			UserID:  actingUser.ID,
			Email:   actingUser.Email,
			Name:    actingUser.Name,
			IsAdmin: owner.IsAdmin,
			Roles:   roles,
		},
		User: actingUser,
	}, nil
}
