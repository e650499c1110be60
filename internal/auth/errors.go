package auth

import "errors"

// FailureReason categorizes why a forwarded identity produced no claims
type FailureReason string

const (
	ReasonMissingHeader    FailureReason = "missing_header"
	ReasonMalformedToken   FailureReason = "malformed_token"
	ReasonInvalidKeyID     FailureReason = "invalid_key_id"
	ReasonKeyFetchFailed   FailureReason = "key_fetch_failed"
	ReasonInvalidSignature FailureReason = "invalid_signature"
	ReasonTokenExpired     FailureReason = "token_expired"
	ReasonInvalidSigner    FailureReason = "invalid_signer"
	ReasonUnknown          FailureReason = "unknown"
)

// ErrKeyNotFound is returned when the key endpoint has no key for a kid
var ErrKeyNotFound = errors.New("public key not found")

// AuthError represents a categorized extraction failure
type AuthError struct {
	Reason  FailureReason
	Message string
	Err     error
}

// Error implements the error interface
func (e *AuthError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap implements error unwrapping
func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError creates a new AuthError
func NewAuthError(reason FailureReason, message string, err error) *AuthError {
	return &AuthError{
		Reason:  reason,
		Message: message,
		Err:     err,
	}
}

// IsAuthError checks if an error is an AuthError and returns it
func IsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

// reasonOf returns the categorized reason of err, or ReasonUnknown
func reasonOf(err error) FailureReason {
	if authErr, ok := IsAuthError(err); ok {
		return authErr.Reason
	}
	return ReasonUnknown
}

// maskToken masks a token for safe logging.
// Shows only the first 12 characters followed by "..."
func maskToken(token string) string {
	if len(token) <= 12 {
		return "***"
	}
	return token[:12] + "..."
}
