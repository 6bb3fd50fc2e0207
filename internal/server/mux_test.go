// internal/server/mux_test.go
// Package server provides unit tests for the HTTP handlers and routing.
package server

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/vidshare/vidshare-api-go/internal/auth"
	"github.com/vidshare/vidshare-api-go/internal/media"
	"github.com/vidshare/vidshare-api-go/internal/service"
	"github.com/vidshare/vidshare-api-go/internal/storage"
)

const (
	testSecret = "test-secret"
	alice      = "01HZX3Q7N8J6W2K4M5P9R0S1T2"
	bob        = "01HZX3Q7N8J6W2K4M5P9R0S1T3"
)

// countingHost is a media.Host that only counts calls.
type countingHost struct{ uploads, deletes int }

func (h *countingHost) Upload(ctx context.Context, localPath string) (*media.Asset, error) {
	h.uploads++
	return &media.Asset{URL: "https://media.example/x/a.bin", PublicID: "a"}, nil
}

func (h *countingHost) Delete(ctx context.Context, publicID string) (bool, error) {
	h.deletes++
	return true, nil
}

type testServer struct {
	handler http.Handler
	host    *countingHost
	dir     string
}

func newTestServer(t *testing.T, mutate func(*Options)) *testServer {
	t.Helper()
	store := storage.NewMemory()
	host := &countingHost{}
	opts := Options{
		Services:  service.New(service.Deps{Store: store, Media: host}),
		Store:     store,
		Verifier:  auth.NewHMAC(testSecret, "", ""),
		UploadDir: t.TempDir(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	h, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &testServer{handler: h, host: host, dir: opts.UploadDir}
}

func token(t *testing.T, sub string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// envelope mirrors the response body for decoding in tests.
type envelope struct {
	StatusCode    int             `json:"statusCode"`
	Data          json.RawMessage `json:"data"`
	Message       string          `json:"message"`
	Success       bool            `json:"success"`
	Code          string          `json:"code"`
	CorrelationID string          `json:"correlationId"`
}

func (s *testServer) do(t *testing.T, method, path, user string, body string, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, user))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)

	var env envelope
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope: %v: %s", err, rr.Body.String())
		}
	}
	return rr, env
}

func dataField(t *testing.T, env envelope, field string) string {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(env.Data, &m); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	s, _ := m[field].(string)
	return s
}

// TestHealthEndpoints tests the liveness and readiness endpoints.
func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr, env := s.do(t, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK || !env.Success || env.StatusCode != http.StatusOK {
			t.Errorf("%s: status %d, envelope %+v", path, rr.Code, env)
		}
	}
}

// TestAuthenticationRequired verifies every API route rejects anonymous requests.
func TestAuthenticationRequired(t *testing.T) {
	s := newTestServer(t, nil)

	rr, env := s.do(t, http.MethodGet, "/api/v1/videos", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	if env.Success || env.StatusCode != 401 || env.Code != "VS_AUTHN" {
		t.Errorf("envelope = %+v", env)
	}
	if rr.Header().Get("X-Correlation-Id") == "" || env.CorrelationID != rr.Header().Get("X-Correlation-Id") {
		t.Errorf("correlation id header %q, body %q", rr.Header().Get("X-Correlation-Id"), env.CorrelationID)
	}

	// A token whose subject is not a user id is rejected too.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "not-a-user"))
	rr = httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("bad subject: status = %d, want 401", rr.Code)
	}
}

// TestTweetOwnership tests that only the author can modify a tweet.
func TestTweetOwnership(t *testing.T) {
	s := newTestServer(t, nil)

	rr, env := s.do(t, http.MethodPost, "/api/v1/tweets", alice, `{"content":"first"}`)
	if rr.Code != http.StatusCreated || env.StatusCode != http.StatusCreated || !env.Success {
		t.Fatalf("create: status %d, envelope %+v", rr.Code, env)
	}
	id := dataField(t, env, "id")

	rr, env = s.do(t, http.MethodPatch, "/api/v1/tweets/"+id, bob, `{"content":"hijack"}`)
	if rr.Code != http.StatusUnauthorized || env.Message != "You are not authorized to update this tweet." {
		t.Errorf("non-owner update: status %d, message %q", rr.Code, env.Message)
	}
	rr, env = s.do(t, http.MethodDelete, "/api/v1/tweets/"+id, bob, "")
	if rr.Code != http.StatusUnauthorized || env.Code != "VS_NOT_OWNER" {
		t.Errorf("non-owner delete: status %d, envelope %+v", rr.Code, env)
	}

	rr, env = s.do(t, http.MethodPatch, "/api/v1/tweets/"+id, alice, `{"content":"edited"}`)
	if rr.Code != http.StatusOK || dataField(t, env, "content") != "edited" {
		t.Errorf("owner update: status %d, envelope %+v", rr.Code, env)
	}

	rr, _ = s.do(t, http.MethodPatch, "/api/v1/tweets/"+id, alice, `{"content":"   "}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("blank content: status %d, want 400", rr.Code)
	}
}

// TestPaginationValidation tests that bad page parameters are rejected.
func TestPaginationValidation(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodPost, "/api/v1/tweets", alice, `{"content":"hi"}`)

	for _, q := range []string{"page=0", "limit=-1", "page=abc", "limit=10abc"} {
		rr, env := s.do(t, http.MethodGet, "/api/v1/tweets/user/"+alice+"?"+q, alice, "")
		if rr.Code != http.StatusBadRequest || env.Code != "VS_VALIDATION" {
			t.Errorf("%s: status %d, envelope %+v", q, rr.Code, env)
		}
	}

	rr, env := s.do(t, http.MethodGet, "/api/v1/tweets/user/"+alice+"?page=1&limit=1", alice, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d, envelope %+v", rr.Code, env)
	}
	var page struct {
		Count      int64 `json:"count"`
		Pagination struct {
			CurrentPage int64 `json:"currentPage"`
			TotalPages  int64 `json:"totalPages"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(env.Data, &page); err != nil {
		t.Fatal(err)
	}
	if page.Count != 1 || page.Pagination.CurrentPage != 1 || page.Pagination.TotalPages != 1 {
		t.Errorf("page = %+v", page)
	}

	rr, env = s.do(t, http.MethodGet, "/api/v1/tweets/user/01HZX3Q7N8J6W2K4M5P9R0S1ZZ", alice, "")
	if rr.Code != http.StatusNotFound || env.Message != "User not found." {
		t.Errorf("unknown user: status %d, message %q", rr.Code, env.Message)
	}
}

// TestPlaylistLifecycle exercises playlist CRUD over HTTP.
func TestPlaylistLifecycle(t *testing.T) {
	s := newTestServer(t, nil)

	rr, env := s.do(t, http.MethodPost, "/api/v1/playlist", alice, `{"name":"mix","description":"songs"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: status %d, envelope %+v", rr.Code, env)
	}
	id := dataField(t, env, "id")

	rr, env = s.do(t, http.MethodGet, "/api/v1/playlist/user/"+alice, bob, "")
	if rr.Code != http.StatusOK || !bytes.Contains(env.Data, []byte(id)) {
		t.Errorf("list: status %d, data %s", rr.Code, env.Data)
	}

	rr, env = s.do(t, http.MethodPatch, "/api/v1/playlist/"+id, bob, `{"name":"x","description":"y"}`)
	if rr.Code != http.StatusUnauthorized || env.Message != "You are not authorized to update the playlist." {
		t.Errorf("non-owner update: status %d, message %q", rr.Code, env.Message)
	}

	rr, _ = s.do(t, http.MethodPatch, "/api/v1/playlist/add/01HZX3Q7N8J6W2K4M5P9R0S1ZZ/"+id, alice, "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("add missing video: status %d, want 404", rr.Code)
	}

	rr, _ = s.do(t, http.MethodDelete, "/api/v1/playlist/"+id, alice, "")
	if rr.Code != http.StatusOK {
		t.Errorf("delete: status %d", rr.Code)
	}
	rr, _ = s.do(t, http.MethodGet, "/api/v1/playlist/"+id, alice, "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("get after delete: status %d, want 404", rr.Code)
	}
}

// TestLikeToggleMessages tests that both toggle outcomes are 200 with distinct messages.
func TestLikeToggleMessages(t *testing.T) {
	s := newTestServer(t, nil)
	_, env := s.do(t, http.MethodPost, "/api/v1/tweets", alice, `{"content":"like me"}`)
	id := dataField(t, env, "id")

	want := []string{"Tweet liked successfully.", "Tweet unliked successfully."}
	for i, msg := range want {
		rr, env := s.do(t, http.MethodPost, "/api/v1/likes/toggle/t/"+id, bob, "")
		if rr.Code != http.StatusOK || env.Message != msg {
			t.Errorf("toggle %d: status %d, message %q, want %q", i, rr.Code, env.Message, msg)
		}
	}

	rr, env := s.do(t, http.MethodPost, "/api/v1/likes/toggle/c/nope", bob, "")
	if rr.Code != http.StatusBadRequest || env.Message != "Invalid comment ID" {
		t.Errorf("bad id: status %d, message %q", rr.Code, env.Message)
	}
}

// TestIdempotencyKey tests replay and conflict handling on create endpoints.
func TestIdempotencyKey(t *testing.T) {
	s := newTestServer(t, nil)

	rr1, env1 := s.do(t, http.MethodPost, "/api/v1/tweets", alice, `{"content":"once"}`, "Idempotency-Key", "k1")
	rr2, env2 := s.do(t, http.MethodPost, "/api/v1/tweets", alice, `{"content":"once"}`, "Idempotency-Key", "k1")
	if rr1.Code != http.StatusCreated || rr2.Code != http.StatusCreated {
		t.Fatalf("status %d then %d", rr1.Code, rr2.Code)
	}
	if dataField(t, env1, "id") != dataField(t, env2, "id") || rr2.Header().Get("Idempotent-Replayed") != "true" {
		t.Error("replay did not return the cached response")
	}

	rr, env := s.do(t, http.MethodPost, "/api/v1/tweets", alice, `{"content":"twice"}`, "Idempotency-Key", "k1")
	if rr.Code != http.StatusConflict || env.Code != "VS_CONFLICT" {
		t.Errorf("conflict: status %d, envelope %+v", rr.Code, env)
	}

	// Keys are scoped per user.
	rr, _ = s.do(t, http.MethodPost, "/api/v1/tweets", bob, `{"content":"twice"}`, "Idempotency-Key", "k1")
	if rr.Code != http.StatusCreated {
		t.Errorf("other user with same key: status %d", rr.Code)
	}
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for name, data := range files {
		fw, err := mw.CreateFormFile(name, name+".bin")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(data)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

// TestPublishWithoutThumbnail tests that no upload happens and no temp file survives.
func TestPublishWithoutThumbnail(t *testing.T) {
	s := newTestServer(t, nil)
	body, ct := multipartBody(t,
		map[string]string{"title": "t", "description": "d"},
		map[string][]byte{"videoFile": []byte("\x00\x00\x00\x18ftypisom\x00\x00\x02\x00isommp41")})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer "+token(t, alice))
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "Thumbnail is required") {
		t.Errorf("status %d, body %s", rr.Code, rr.Body.String())
	}
	if s.host.uploads != 0 {
		t.Errorf("uploads = %d, want 0", s.host.uploads)
	}
	entries, _ := os.ReadDir(s.dir)
	if len(entries) != 0 {
		t.Errorf("upload dir not empty: %v", entries)
	}
}

// TestUploadTooLarge tests the multipart size limit.
func TestUploadTooLarge(t *testing.T) {
	s := newTestServer(t, func(o *Options) { o.MaxUploadSize = 1024 })
	body, ct := multipartBody(t,
		map[string]string{"title": "t", "description": "d"},
		map[string][]byte{"videoFile": bytes.Repeat([]byte{1}, 4096)})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer "+token(t, alice))
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status %d, want 413: %s", rr.Code, rr.Body.String())
	}
	entries, _ := os.ReadDir(s.dir)
	if len(entries) != 0 {
		t.Errorf("upload dir not empty: %v", entries)
	}
}

// TestRateLimit tests that the limiter answers with the error envelope.
func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(o *Options) { o.RateLimitPerMinute = 1 })
	s.do(t, http.MethodGet, "/healthz", "", "")
	rr, env := s.do(t, http.MethodGet, "/healthz", "", "")
	if rr.Code != http.StatusTooManyRequests || env.Code != "VS_RATE_LIMIT" || env.Success {
		t.Errorf("status %d, envelope %+v", rr.Code, env)
	}
}

// TestUnknownRoute tests the catch-all handler.
func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, nil)
	rr, env := s.do(t, http.MethodGet, "/api/v1/nothing/here", alice, "")
	if rr.Code != http.StatusNotFound || env.Code != "VS_NOT_FOUND" {
		t.Errorf("status %d, envelope %+v", rr.Code, env)
	}
}
