package auth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Claims is the decoded payload of a forwarded identity token. Values are
// whatever encoding/json produces: string, float64, bool, nested maps/slices.
type Claims map[string]any

// Header is the subset of the ALB token header this service reads
type Header struct {
	Alg    string `json:"alg"`
	Kid    string `json:"kid"`
	Signer string `json:"signer"`
	Issuer string `json:"iss"`
	Client string `json:"client"`
}

var keyIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// TrimPadding strips trailing '=' from each of the three dot-separated
// segments. The ALB pads every segment, which strict JWT decoders reject.
func TrimPadding(token string) (string, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 {
		return "", NewAuthError(ReasonMalformedToken, fmt.Sprintf("expected 3 segments, got %d", len(parts)), nil)
	}

	for i, part := range parts {
		parts[i] = strings.TrimRight(part, "=")
		if parts[i] == "" && i < 2 {
			return "", NewAuthError(ReasonMalformedToken, fmt.Sprintf("segment %d is empty", i), nil)
		}
	}

	return strings.Join(parts, "."), nil
}

// DecodeSegment decodes one token segment. Padding is tolerated and the
// standard alphabet is accepted when the URL-safe one fails.
func DecodeSegment(seg string) ([]byte, error) {
	seg = strings.TrimRight(seg, "=")

	b, err := base64.RawURLEncoding.DecodeString(seg)
	if err == nil {
		return b, nil
	}
	if b, stdErr := base64.RawStdEncoding.DecodeString(seg); stdErr == nil {
		return b, nil
	}
	return nil, err
}

// DecodeUnverified decodes the header and payload of token without checking
// its signature. token may still carry padding.
func DecodeUnverified(token string) (Header, Claims, error) {
	trimmed, err := TrimPadding(token)
	if err != nil {
		return Header{}, nil, err
	}
	parts := strings.Split(trimmed, ".")

	headerBytes, err := DecodeSegment(parts[0])
	if err != nil {
		return Header{}, nil, NewAuthError(ReasonMalformedToken, "failed to decode header", err)
	}

	var header Header
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return Header{}, nil, NewAuthError(ReasonMalformedToken, "failed to unmarshal header", err)
	}

	payloadBytes, err := DecodeSegment(parts[1])
	if err != nil {
		return header, nil, NewAuthError(ReasonMalformedToken, "failed to decode payload", err)
	}

	var claims Claims
	if err := json.Unmarshal(payloadBytes, &claims); err != nil {
		return header, nil, NewAuthError(ReasonMalformedToken, "failed to unmarshal payload", err)
	}
	if claims == nil {
		claims = Claims{}
	}

	return header, claims, nil
}

// validKeyID rejects kids that would escape the key endpoint path
func validKeyID(kid string) bool {
	return keyIDPattern.MatchString(kid) && kid != "." && kid != ".."
}

// String returns the claim as a string if present and of string type
func (c Claims) String(name string) string {
	if v, ok := c[name].(string); ok {
		return v
	}
	return ""
}
