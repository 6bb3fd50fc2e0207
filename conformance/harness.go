// Package conformance provides a test harness that drives a running vidshare
// API over real HTTP and checks the behaviour every deployment must show.
package conformance

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/vidshare/vidshare-api-go/internal/auth"
	"github.com/vidshare/vidshare-api-go/internal/event"
	"github.com/vidshare/vidshare-api-go/internal/media"
	"github.com/vidshare/vidshare-api-go/internal/server"
	"github.com/vidshare/vidshare-api-go/internal/service"
	"github.com/vidshare/vidshare-api-go/internal/storage"
)

// Users the harness signs tokens for.
const (
	Alice = "01HZX3Q7N8J6W2K4M5P9R0S1T2"
	Bob   = "01HZX3Q7N8J6W2K4M5P9R0S1T3"
)

// Sample media that content sniffing recognises.
var (
	SampleMP4 = []byte("\x00\x00\x00\x18ftypisom\x00\x00\x02\x00isommp41\x00\x00\x00\x08free")
	SamplePNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
)

// Config holds configuration for the conformance test harness.
type Config struct {
	// DatabaseDSN selects PostgreSQL; empty uses the in-memory store
	DatabaseDSN string

	// NATSURL enables JetStream event publishing; empty uses the no-op publisher
	NATSURL string

	// Secret signs the HS256 tokens the harness sends
	Secret string
}

// Harness provides a test harness for vidshare conformance testing.
type Harness struct {
	server *httptest.Server
	store  storage.Store
	pub    event.Publisher
	host   *RecordingHost
	secret string
}

// RecordingHost is an in-process media.Host that remembers every call.
type RecordingHost struct {
	mu      sync.Mutex
	n       int
	Uploads []string
	Deletes []string
}

func (h *RecordingHost) Upload(ctx context.Context, localPath string) (*media.Asset, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.n++
	h.Uploads = append(h.Uploads, localPath)
	id := fmt.Sprintf("asset%d", h.n)
	return &media.Asset{URL: "https://media.example/vidshare/" + id, PublicID: id}, nil
}

func (h *RecordingHost) Delete(ctx context.Context, publicID string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Deletes = append(h.Deletes, publicID)
	return true, nil
}

func (h *RecordingHost) counts() (uploads, deletes int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.Uploads), len(h.Deletes)
}

// NewHarness creates a new conformance test harness.
func NewHarness(cfg Config) (*Harness, error) {
	if cfg.Secret == "" {
		cfg.Secret = "conformance-secret"
	}

	var store storage.Store = storage.NewMemory()
	if cfg.DatabaseDSN != "" {
		pg, err := storage.NewPostgres(cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		store = pg
	}

	pub := event.NewNoop()
	if cfg.NATSURL != "" {
		pub = event.NewPublisher(cfg.NATSURL)
	}

	host := &RecordingHost{}
	handler, err := server.New(server.Options{
		Services: service.New(service.Deps{Store: store, Events: pub, Media: host}),
		Store:    store,
		Verifier: auth.NewHMAC(cfg.Secret, "", ""),
	})
	if err != nil {
		return nil, err
	}

	return &Harness{
		server: httptest.NewServer(handler),
		store:  store,
		pub:    pub,
		host:   host,
		secret: cfg.Secret,
	}, nil
}

// URL returns the base URL of the test server.
func (h *Harness) URL() string {
	return h.server.URL
}

// Close shuts down the test server and cleans up resources.
func (h *Harness) Close() {
	h.server.Close()
	h.pub.Close()
	if c, ok := h.store.(interface{ Close() }); ok {
		c.Close()
	}
}

// Response is a decoded envelope plus the HTTP status.
type Response struct {
	HTTPStatus int
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
	Code       string          `json:"code"`
}

// Field returns a top-level string field of the data payload.
func (r *Response) Field(name string) string {
	var m map[string]interface{}
	_ = json.Unmarshal(r.Data, &m)
	s, _ := m[name].(string)
	return s
}

func (h *Harness) token(t *testing.T, user string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(h.secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return s
}

// Do sends a request as user (anonymous when empty) and decodes the envelope.
func (h *Harness) Do(t *testing.T, method, path, user, contentType string, body io.Reader) *Response {
	t.Helper()
	req, err := http.NewRequest(method, h.URL()+path, body)
	if err != nil {
		t.Fatal(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+h.token(t, user))
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := &Response{HTTPStatus: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("%s %s: undecodable body: %v", method, path, err)
	}
	return out
}

// JSON sends a JSON body.
func (h *Harness) JSON(t *testing.T, method, path, user, body string) *Response {
	t.Helper()
	return h.Do(t, method, path, user, "application/json", bytes.NewBufferString(body))
}

// Publish uploads a video through the multipart endpoint.
func (h *Harness) Publish(t *testing.T, user string, withThumbnail bool) *Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("title", "Conformance")
	_ = mw.WriteField("description", "Uploaded by the harness")
	fw, _ := mw.CreateFormFile("videoFile", "clip.mp4")
	fw.Write(SampleMP4)
	if withThumbnail {
		fw, _ = mw.CreateFormFile("thumbnail", "thumb.png")
		fw.Write(SamplePNG)
	}
	mw.Close()
	return h.Do(t, http.MethodPost, "/api/v1/videos", user, mw.FormDataContentType(), &buf)
}

func expect(t *testing.T, r *Response, status int) {
	t.Helper()
	if r.HTTPStatus != status {
		t.Fatalf("status = %d, want %d (message %q, code %s)", r.HTTPStatus, status, r.Message, r.Code)
	}
	if r.StatusCode != r.HTTPStatus || r.Success != (status < 400) {
		t.Fatalf("envelope disagrees with HTTP status: %+v", r)
	}
}

// RunConformanceTests runs all conformance tests against the API.
func (h *Harness) RunConformanceTests(t *testing.T) {
	t.Run("HealthEndpoints", h.testHealthEndpoints)
	t.Run("Authentication", h.testAuthentication)
	t.Run("Ownership", h.testOwnership)
	t.Run("Pagination", h.testPagination)
	t.Run("MediaLifecycle", h.testMediaLifecycle)
	t.Run("Likes", h.testLikes)
	t.Run("Playlists", h.testPlaylists)
}

func (h *Harness) testHealthEndpoints(t *testing.T) {
	expect(t, h.Do(t, http.MethodGet, "/healthz", "", "", nil), http.StatusOK)
	expect(t, h.Do(t, http.MethodGet, "/readyz", "", "", nil), http.StatusOK)
}

func (h *Harness) testAuthentication(t *testing.T) {
	r := h.Do(t, http.MethodGet, "/api/v1/videos", "", "", nil)
	expect(t, r, http.StatusUnauthorized)
	if r.Code != "VS_AUTHN" {
		t.Errorf("code = %s, want VS_AUTHN", r.Code)
	}
}

func (h *Harness) testOwnership(t *testing.T) {
	c := h.JSON(t, http.MethodPost, "/api/v1/tweets", Alice, `{"content":"mine"}`)
	expect(t, c, http.StatusCreated)
	id := c.Field("id")

	expect(t, h.JSON(t, http.MethodPatch, "/api/v1/tweets/"+id, Bob, `{"content":"theirs"}`), http.StatusUnauthorized)
	list := h.Do(t, http.MethodGet, "/api/v1/tweets/user/"+Alice, Alice, "", nil)
	expect(t, list, http.StatusOK)
	if !bytes.Contains(list.Data, []byte(`"mine"`)) || bytes.Contains(list.Data, []byte(`"theirs"`)) {
		t.Errorf("non-owner update changed the tweet: %s", list.Data)
	}
	expect(t, h.Do(t, http.MethodDelete, "/api/v1/tweets/"+id, Bob, "", nil), http.StatusUnauthorized)
	expect(t, h.Do(t, http.MethodDelete, "/api/v1/tweets/bogus", Alice, "", nil), http.StatusBadRequest)
	expect(t, h.Do(t, http.MethodDelete, "/api/v1/tweets/"+id, Alice, "", nil), http.StatusOK)
	expect(t, h.Do(t, http.MethodDelete, "/api/v1/tweets/"+id, Alice, "", nil), http.StatusNotFound)
}

func (h *Harness) testPagination(t *testing.T) {
	for i := 0; i < 3; i++ {
		expect(t, h.JSON(t, http.MethodPost, "/api/v1/tweets", Bob, fmt.Sprintf(`{"content":"t%d"}`, i)), http.StatusCreated)
	}
	r := h.Do(t, http.MethodGet, "/api/v1/tweets/user/"+Bob+"?page=2&limit=2", Bob, "", nil)
	expect(t, r, http.StatusOK)
	var page struct {
		Tweets     []struct{ Content string } `json:"tweets"`
		Count      int64                      `json:"count"`
		Pagination struct {
			CurrentPage int64 `json:"currentPage"`
			TotalPages  int64 `json:"totalPages"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(r.Data, &page); err != nil {
		t.Fatal(err)
	}
	if len(page.Tweets) != 1 || page.Tweets[0].Content != "t0" || page.Pagination.TotalPages != 2 {
		t.Errorf("page 2 = %+v, want the oldest tweet alone", page)
	}
	for _, q := range []string{"page=0", "limit=0", "page=-3", "limit=x"} {
		expect(t, h.Do(t, http.MethodGet, "/api/v1/tweets/user/"+Bob+"?"+q, Bob, "", nil), http.StatusBadRequest)
	}
}

func (h *Harness) testMediaLifecycle(t *testing.T) {
	up0, del0 := h.host.counts()
	expect(t, h.Publish(t, Alice, false), http.StatusBadRequest)
	if up, _ := h.host.counts(); up != up0 {
		t.Fatalf("publish without thumbnail uploaded %d files", up-up0)
	}

	r := h.Publish(t, Alice, true)
	expect(t, r, http.StatusCreated)
	id := r.Field("id")
	if up, _ := h.host.counts(); up != up0+2 {
		t.Fatalf("publish made %d uploads, want 2", up-up0)
	}

	expect(t, h.Do(t, http.MethodPatch, "/api/v1/videos/toggle/publish/"+id, Bob, "", nil), http.StatusUnauthorized)
	toggled := h.Do(t, http.MethodPatch, "/api/v1/videos/toggle/publish/"+id, Alice, "", nil)
	expect(t, toggled, http.StatusOK)
	if bytes.Contains(toggled.Data, []byte(`"isPublished":true`)) {
		t.Error("toggle did not unpublish the video")
	}

	expect(t, h.Do(t, http.MethodDelete, "/api/v1/videos/"+id, Alice, "", nil), http.StatusOK)
	if _, del := h.host.counts(); del != del0+2 {
		t.Errorf("delete made %d remote calls, want 2", del-del0)
	}
	expect(t, h.Do(t, http.MethodGet, "/api/v1/videos/"+id, Alice, "", nil), http.StatusNotFound)
}

func (h *Harness) testLikes(t *testing.T) {
	c := h.JSON(t, http.MethodPost, "/api/v1/tweets", Alice, `{"content":"likeable"}`)
	expect(t, c, http.StatusCreated)
	path := "/api/v1/likes/toggle/t/" + c.Field("id")

	for i, want := range []bool{true, false, true} {
		r := h.Do(t, http.MethodPost, path, Bob, "", nil)
		expect(t, r, http.StatusOK)
		liked := bytes.Contains(r.Data, []byte(`"liked":true`))
		if liked != want {
			t.Errorf("toggle %d: liked = %v, want %v", i, liked, want)
		}
	}
}

func (h *Harness) testPlaylists(t *testing.T) {
	v := h.Publish(t, Alice, true)
	expect(t, v, http.StatusCreated)
	videoID := v.Field("id")

	p := h.JSON(t, http.MethodPost, "/api/v1/playlist", Alice, `{"name":"favs","description":"best"}`)
	expect(t, p, http.StatusCreated)
	pid := p.Field("id")

	add := "/api/v1/playlist/add/" + videoID + "/" + pid
	expect(t, h.Do(t, http.MethodPatch, add, Alice, "", nil), http.StatusOK)
	r := h.Do(t, http.MethodPatch, add, Alice, "", nil)
	expect(t, r, http.StatusOK)
	if n := bytes.Count(r.Data, []byte(videoID)); n != 2 {
		t.Errorf("video appears %d times after two adds, want 2", n)
	}
	expect(t, h.Do(t, http.MethodPatch, add, Bob, "", nil), http.StatusUnauthorized)

	r = h.Do(t, http.MethodPatch, "/api/v1/playlist/remove/"+videoID+"/"+pid, Alice, "", nil)
	expect(t, r, http.StatusOK)
	if bytes.Contains(r.Data, []byte(videoID)) {
		t.Error("remove left an occurrence behind")
	}
}
