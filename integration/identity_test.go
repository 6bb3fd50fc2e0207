// Package integration exercises the API together with an external identity
// provider: EdDSA tokens checked against a JWKS endpoint and user lookups
// against the identity user service.
package integration

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vidshare/vidshare-api-go/internal/auth"
	"github.com/vidshare/vidshare-api-go/internal/identity"
	"github.com/vidshare/vidshare-api-go/internal/server"
	"github.com/vidshare/vidshare-api-go/internal/service"
	"github.com/vidshare/vidshare-api-go/internal/storage"
)

const (
	testIssuer   = "https://id.vidshare.test"
	testAudience = "vidshare-api"
	testKeyID    = "test-key-123"

	alice = "01HZX3Q7N8J6W2K4M5P9R0S1T2"
	// carol is known to the identity service but has never called the API.
	carol   = "01HZX3Q7N8J6W2K4M5P9R0S1T4"
	unknown = "01HZX3Q7N8J6W2K4M5P9R0S1T9"
)

type provider struct {
	priv ed25519.PrivateKey
	srv  *httptest.Server
}

// newProvider serves a JWKS document and a /users/{id} lookup.
func newProvider(t *testing.T, users ...string) *provider {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate test key: %v", err)
	}
	known := make(map[string]bool, len(users))
	for _, u := range users {
		known[u] = true
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/jwks.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(auth.JWKS{Keys: []auth.JWK{{
			Kty: "OKP",
			Kid: testKeyID,
			Use: "sig",
			Alg: "EdDSA",
			Crv: "Ed25519",
			X:   base64.RawURLEncoding.EncodeToString(pub),
		}}})
	})
	mux.HandleFunc("GET /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !known[r.PathValue("id")] {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	p := &provider{priv: priv, srv: httptest.NewServer(mux)}
	t.Cleanup(p.srv.Close)
	return p
}

// token signs a token for subject with the given issuer and audience.
func (p *provider) token(t *testing.T, issuer, audience, subject string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"iss": issuer,
		"aud": audience,
		"sub": subject,
		"exp": float64(time.Now().Add(time.Hour).Unix()),
		"iat": float64(time.Now().Unix()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["kid"] = testKeyID

	s, err := token.SignedString(p.priv)
	if err != nil {
		t.Fatalf("failed to sign JWT: %v", err)
	}
	return s
}

func newAPI(t *testing.T, p *provider) http.Handler {
	t.Helper()
	store := storage.NewMemory()
	h, err := server.New(server.Options{
		Services: service.New(service.Deps{
			Store: store,
			Users: identity.New(p.srv.URL),
		}),
		Store:    store,
		Verifier: auth.NewJWKSVerifier(p.srv.URL+"/.well-known/jwks.json", testIssuer, testAudience),
	})
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	return h
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
	Code       string          `json:"code"`
}

func call(t *testing.T, h http.Handler, method, path, token, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return rr.Code, env
}

func TestJWTValidation(t *testing.T) {
	p := newProvider(t, alice)
	api := newAPI(t, p)

	t.Run("ValidJWT", func(t *testing.T) {
		status, env := call(t, api, http.MethodPost, "/api/v1/tweets", p.token(t, testIssuer, testAudience, alice), `{"content":"hello"}`)
		if status != http.StatusCreated || !env.Success {
			t.Fatalf("status = %d (%s), want 201", status, env.Message)
		}
	})

	rejected := []struct {
		name  string
		token string
	}{
		{"InvalidIssuer", p.token(t, "https://evil.test", testAudience, alice)},
		{"InvalidAudience", p.token(t, testIssuer, "someone-else", alice)},
		{"ForeignKey", func() string {
			other := newProvider(t)
			return other.token(t, testIssuer, testAudience, alice)
		}()},
		{"Malformed", "not.a.jwt"},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			status, env := call(t, api, http.MethodPost, "/api/v1/tweets", tt.token, `{"content":"hello"}`)
			if status != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", status)
			}
			if env.Code != "VS_AUTHN" || env.Success {
				t.Errorf("envelope = %+v, want VS_AUTHN failure", env)
			}
		})
	}
}

func TestTweetListingUsesIdentityService(t *testing.T) {
	p := newProvider(t, alice, carol)
	api := newAPI(t, p)
	tok := p.token(t, testIssuer, testAudience, alice)

	status, env := call(t, api, http.MethodGet, "/api/v1/tweets/user/"+carol, tok, "")
	if status != http.StatusOK {
		t.Fatalf("known user: status = %d (%s), want 200", status, env.Message)
	}
	var page struct {
		Tweets []json.RawMessage `json:"tweets"`
		Count  int64             `json:"count"`
	}
	if err := json.Unmarshal(env.Data, &page); err != nil {
		t.Fatal(err)
	}
	if page.Count != 0 || len(page.Tweets) != 0 {
		t.Errorf("page = %+v, want empty", page)
	}

	status, env = call(t, api, http.MethodGet, "/api/v1/tweets/user/"+unknown, tok, "")
	if status != http.StatusNotFound || env.Message != "User not found." {
		t.Errorf("unknown user: status = %d message %q, want 404 User not found.", status, env.Message)
	}
}

func TestIdentityServiceDown(t *testing.T) {
	p := newProvider(t, alice)
	api := newAPI(t, p)
	tok := p.token(t, testIssuer, testAudience, alice)

	// Prime the key cache so authentication survives the outage.
	if status, _ := call(t, api, http.MethodGet, "/api/v1/tweets/user/"+alice, tok, ""); status != http.StatusOK {
		t.Fatalf("warm-up status = %d, want 200", status)
	}
	p.srv.Close()

	status, env := call(t, api, http.MethodGet, "/api/v1/tweets/user/"+carol, tok, "")
	if status != http.StatusServiceUnavailable || env.Code != "VS_UNAVAILABLE" {
		t.Errorf("status = %d code %s, want 503 VS_UNAVAILABLE", status, env.Code)
	}
}
