package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// the response never reveals whether the account exists.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrAccountDisabled is returned when the password checks out but the
	// account has is_active = false.
	ErrAccountDisabled = errors.New("account_disabled")

	// ErrAmbiguousIdentity means more than one account matched the email
	// case-insensitively. We fail closed rather than guess.
	ErrAmbiguousIdentity = errors.New("ambiguous_identity")

	// ErrSecondFactorMisconfigured: the account demands a second factor but
	// has no confirmed device to check it against.
	ErrSecondFactorMisconfigured = errors.New("second_factor_misconfigured")

	// ErrInvalidSecondFactor: the submitted OTP did not validate.
	ErrInvalidSecondFactor = errors.New("invalid_second_factor")

	// ErrSecondFactorAlreadyEnabled: enrollment attempted after confirmation.
	ErrSecondFactorAlreadyEnabled = errors.New("second_factor_already_enabled")

	// ErrSecondFactorNotEnabled: disable attempted with nothing enabled.
	ErrSecondFactorNotEnabled = errors.New("second_factor_not_enabled")

	// ErrPermissionDenied is the gate's terminal answer.
	ErrPermissionDenied = errors.New("permission_denied")

	// ErrNotFound is the service-level not-found, mapped from the store.
	ErrNotFound = errors.New("not_found")

	// ErrInvalidRefresh covers malformed, expired, forged, and wrong-use
	// tokens presented to the refresh endpoint.
	ErrInvalidRefresh = errors.New("invalid_refresh_token")
)

// SecondFactorRequiredError is a recoverable login outcome, not a terminal
// failure: the password was correct, the client just needs to resubmit with
// an OTP. Transport layers surface the RequiresSecondFactor flag.
type SecondFactorRequiredError struct{}

func (e *SecondFactorRequiredError) Error() string { return "second_factor_required" }

// IsSecondFactorRequired reports whether err is the recoverable 2FA prompt.
func IsSecondFactorRequired(err error) bool {
	var sfr *SecondFactorRequiredError
	return errors.As(err, &sfr)
}

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}
