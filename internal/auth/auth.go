// internal/auth/auth.go
// Package auth verifies bearer tokens and extracts the user id.
// Tokens are issued elsewhere; the sub claim is the user id and must be a ULID.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

// Errors returned by verifiers. Every one of them means "not authenticated".
var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrBadSubject   = errors.New("missing or invalid sub claim")
)

// Verifier validates a raw JWT and returns the user id it names.
type Verifier interface {
	Verify(ctx context.Context, token string) (userID string, err error)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: expected Bearer scheme", ErrInvalidToken)
	}
	return strings.TrimSpace(token), nil
}

// parserOptions builds the registered-claim checks shared by all verifiers.
func parserOptions(method, issuer, audience string) []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{method}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return opts
}

// subject maps a parse result onto the package errors and validates sub.
func subject(token *jwt.Token, err error) (string, error) {
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrBadSubject
	}
	id, err := ulid.ParseStrict(sub)
	if err != nil {
		return "", ErrBadSubject
	}
	return id.String(), nil
}

// HMAC verifies HS256 tokens signed with a shared secret.
type HMAC struct {
	secret []byte
	parser *jwt.Parser
}

// NewHMAC creates an HS256 verifier. Empty issuer or audience disables that check.
func NewHMAC(secret, issuer, audience string) *HMAC {
	return &HMAC{
		secret: []byte(secret),
		parser: jwt.NewParser(parserOptions(jwt.SigningMethodHS256.Alg(), issuer, audience)...),
	}
}

func (h *HMAC) Verify(ctx context.Context, raw string) (string, error) {
	token, err := h.parser.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(*jwt.Token) (interface{}, error) {
		return h.secret, nil
	})
	return subject(token, err)
}
