// internal/auth/auth_test.go
package auth

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

func claims(sub string, exp time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   sub,
		Issuer:    "test-issuer",
		Audience:  jwt.ClaimStrings{"vidshare"},
		ExpiresAt: jwt.NewNumericDate(exp),
	}
}

func signHS256(t *testing.T, secret string, c jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestBearerToken(t *testing.T) {
	if _, err := BearerToken(""); !errors.Is(err, ErrMissingToken) {
		t.Errorf("empty header: got %v", err)
	}
	if _, err := BearerToken("Basic abc"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("basic scheme: got %v", err)
	}
	if tok, err := BearerToken("Bearer abc"); err != nil || tok != "abc" {
		t.Errorf("BearerToken = %q, %v", tok, err)
	}
}

func TestHMACVerify(t *testing.T) {
	v := NewHMAC("s3cret", "test-issuer", "vidshare")
	user := ulid.Make().String()
	ctx := context.Background()

	got, err := v.Verify(ctx, signHS256(t, "s3cret", claims(user, time.Now().Add(time.Hour))))
	if err != nil || got != user {
		t.Fatalf("Verify = %q, %v; want %q", got, err, user)
	}

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"wrong secret", signHS256(t, "other", claims(user, time.Now().Add(time.Hour))), ErrInvalidToken},
		{"expired", signHS256(t, "s3cret", claims(user, time.Now().Add(-time.Hour))), ErrExpiredToken},
		{"non-ulid subject", signHS256(t, "s3cret", claims("alice", time.Now().Add(time.Hour))), ErrBadSubject},
		{"garbage", "not.a.jwt", ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Verify(ctx, tt.token); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestJWKSVerify(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	fetches := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		_ = json.NewEncoder(w).Encode(JWKS{Keys: []JWK{{
			Kty: "OKP", Kid: "k1", Use: "sig", Alg: "EdDSA", Crv: "Ed25519",
			X: base64.RawURLEncoding.EncodeToString(pub),
		}}})
	}))
	defer srv.Close()

	v := NewJWKSVerifier(srv.URL, "test-issuer", "vidshare")
	user := ulid.Make().String()

	sign := func(kid string) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims(user, time.Now().Add(time.Hour)))
		tok.Header["kid"] = kid
		s, err := tok.SignedString(priv)
		if err != nil {
			t.Fatal(err)
		}
		return s
	}

	for i := 0; i < 2; i++ {
		got, err := v.Verify(context.Background(), sign("k1"))
		if err != nil || got != user {
			t.Fatalf("Verify = %q, %v", got, err)
		}
	}
	if fetches != 1 {
		t.Errorf("JWKS fetched %d times, want 1 (cached)", fetches)
	}

	if _, err := v.Verify(context.Background(), sign("unknown")); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("unknown kid: got %v, want ErrInvalidToken", err)
	}
}
