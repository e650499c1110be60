package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// SetResultForTesting injects a Result into a context for testing purposes.
// This should only be used in tests to simulate forwarded identities.
func SetResultForTesting(ctx context.Context, result Result) context.Context {
	return context.WithValue(ctx, identityContextKey, result)
}

// NewTestToken signs claims with key the way the ALB does, with kid and
// signer in the header. The result carries no padding; see PadSegments.
func NewTestToken(key *ecdsa.PrivateKey, kid, signer string, claims map[string]any) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims(claims))
	token.Header["kid"] = kid
	if signer != "" {
		token.Header["signer"] = signer
	}
	return token.SignedString(key)
}

// PadSegments appends n '=' characters to every segment of token
func PadSegments(token string, n int) string {
	parts := strings.Split(token, ".")
	pad := strings.Repeat("=", n)
	for i := range parts {
		parts[i] += pad
	}
	return strings.Join(parts, ".")
}

// EncodePublicKeyPEM encodes pub as a PKIX "PUBLIC KEY" PEM block, the format
// served by the ALB key endpoint
func EncodePublicKeyPEM(pub *ecdsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}
