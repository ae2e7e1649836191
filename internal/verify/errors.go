package verify

import "errors"

var (
	// ErrValidation covers malformed or inconsistent input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials is returned for unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidCode is returned when a submitted code does not match the
	// latest issued code, or the code is expired where expiry applies.
	ErrInvalidCode = errors.New("invalid verification code")
	// ErrRateLimited is returned when code issuance for an address is
	// requested too frequently.
	ErrRateLimited = errors.New("too many code requests")
	// ErrNotificationFailed means the code email could not be delivered.
	ErrNotificationFailed = errors.New("could not send verification email")
)
