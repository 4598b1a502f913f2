package analytics

// AppUserID attributes events that fire before a user identity exists,
// like registration and token-validation failures.
const AppUserID = "app_user_id"

// User lifecycle events, tracked from the auth flow.
const (
	EventLoginSuccess              = "login_success"
	EventLogout                    = "logout"
	EventRegisterSuccess           = "register_success"
	EventRegisterFailure           = "register_failure"
	EventEmailTokenValidatedFail   = "email_token_validated_failure"
	EventListCreated               = "list_created"
)

// Failure reasons attached to EventEmailTokenValidatedFail.
const (
	ReasonNotFound      = "token_not_found"
	ReasonInvalid       = "token_invalid"
	ReasonExpired       = "expired"
	ReasonEmailMismatch = "email_mismatch"
)
