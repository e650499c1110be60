package auth

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ALB tokens are always ES256
const signingAlgorithm = "ES256"

// ES256Validator verifies ALB tokens against keys from a KeyProvider
type ES256Validator struct {
	keys      KeyProvider
	clockSkew time.Duration
}

// NewES256Validator creates a new ES256 validator
func NewES256Validator(keys KeyProvider, clockSkew time.Duration) *ES256Validator {
	return &ES256Validator{
		keys:      keys,
		clockSkew: clockSkew,
	}
}

// Validate checks the signature of tokenString with the key for kid and
// returns the verified claims. tokenString may carry segment padding: the
// signature is checked over the padding-free segments first, then over the
// segments exactly as received.
func (v *ES256Validator) Validate(ctx context.Context, tokenString string, kid string) (Claims, error) {
	publicKey, err := v.keys.PublicKey(ctx, kid)
	if err != nil {
		return nil, NewAuthError(ReasonKeyFetchFailed, fmt.Sprintf("public key unavailable for kid %s", kid), err)
	}

	raw := strings.TrimSpace(tokenString)
	trimmed, err := TrimPadding(raw)
	if err != nil {
		return nil, err
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(trimmed, claims, func(token *jwt.Token) (interface{}, error) {
		return publicKey, nil
	}, jwt.WithValidMethods([]string{signingAlgorithm}), jwt.WithLeeway(v.clockSkew))

	if errors.Is(err, jwt.ErrTokenSignatureInvalid) && raw != trimmed {
		if verifyErr := verifyAsReceived(raw, publicKey); verifyErr == nil {
			return v.checkClaims(trimmed)
		}
	}
	if err != nil {
		return nil, parseError(err)
	}

	if !token.Valid {
		return nil, NewAuthError(ReasonUnknown, "invalid token", nil)
	}

	return Claims(claims), nil
}

// verifyAsReceived checks the signature over the padded header and payload
func verifyAsReceived(raw string, publicKey *ecdsa.PublicKey) error {
	parts := strings.Split(raw, ".")
	sig, err := DecodeSegment(parts[2])
	if err != nil {
		return err
	}
	return jwt.SigningMethodES256.Verify(parts[0]+"."+parts[1], sig, publicKey)
}

// checkClaims applies the algorithm and time checks to a token whose
// signature was already verified
func (v *ES256Validator) checkClaims(trimmed string) (Claims, error) {
	claims := jwt.MapClaims{}
	token, _, err := jwt.NewParser().ParseUnverified(trimmed, claims)
	if err != nil {
		return nil, parseError(err)
	}
	if token.Method.Alg() != signingAlgorithm {
		return nil, NewAuthError(ReasonUnknown, fmt.Sprintf("unexpected signing method %s", token.Method.Alg()), nil)
	}
	if err := jwt.NewValidator(jwt.WithLeeway(v.clockSkew)).Validate(claims); err != nil {
		return nil, parseError(err)
	}
	return Claims(claims), nil
}

func parseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return NewAuthError(ReasonTokenExpired, "token expired", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return NewAuthError(ReasonInvalidSignature, "invalid signature", err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return NewAuthError(ReasonMalformedToken, "malformed token", err)
	default:
		return NewAuthError(ReasonUnknown, "failed to parse token", err)
	}
}
