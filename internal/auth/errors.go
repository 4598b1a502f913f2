package auth

import "errors"

// Exchange failures, in the order the checks run. Each validation error is
// terminal: the exchange mutates nothing when any of them fires.
var (
	ErrTokenNotFound = errors.New("login token does not exist")
	ErrTokenInvalid  = errors.New("login token is not valid")
	ErrTokenExpired  = errors.New("login token has expired")
	ErrUserNotFound  = errors.New("token owner does not exist")
	ErrEmailMismatch = errors.New("token email does not match")
)

// ErrDelivery wraps email dispatch failures during login-token issuance.
// The persisted token row is left in place when this fires.
var ErrDelivery = errors.New("could not deliver login token")
