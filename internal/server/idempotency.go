// internal/server/idempotency.go
package server

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	errordefs "github.com/vidshare/vidshare-api-go/internal/errors"
	"github.com/vidshare/vidshare-api-go/internal/reqctx"
	"github.com/vidshare/vidshare-api-go/internal/storage"
)

// captureWriter tees the response into a buffer so it can be cached.
type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *captureWriter) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

// idempotent honours the Idempotency-Key header on JSON create endpoints.
// A replay with the same key and body returns the cached response; the same
// key with a different body is a conflict. Keys are scoped per user.
func (m *Mux) idempotent(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("Idempotency-Key")
		if key == "" {
			next(w, r)
			return
		}
		ctx := r.Context()

		body, err := readBody(w, r, maxJSONBody)
		if err != nil {
			m.writeError(w, r, err)
			return
		}
		keyHash := fmt.Sprintf("%x", sha256.Sum256([]byte(reqctx.UserID(ctx)+"\x00"+r.URL.Path+"\x00"+key)))
		requestHash := fmt.Sprintf("%x", sha256.Sum256(body))

		cached, err := m.opts.Store.GetIdempotentResponse(ctx, keyHash)
		switch {
		case err == nil && cached.RequestHash != requestHash:
			m.writeErrorDef(w, r, errordefs.New(errordefs.VS_CONFLICT, "Idempotency key reused with a different request body"))
			return
		case err == nil:
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(cached.StatusCode)
			_, _ = w.Write(cached.ResponseBody)
			return
		case !errors.Is(err, storage.ErrNotFound):
			m.writeError(w, r, errordefs.Wrap(errordefs.VS_INTERNAL, "Internal server error", err))
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		cw := &captureWriter{ResponseWriter: w}
		next(cw, r)

		// Server failures are not cached so the client may retry them.
		if cw.status >= http.StatusInternalServerError {
			return
		}
		expiresAt := time.Now().UTC().Add(m.opts.IdempotencyTTL)
		if err := m.opts.Store.StoreIdempotentResponse(ctx, keyHash, requestHash, cw.body.Bytes(), cw.status, expiresAt); err != nil {
			m.log.WarnContext(ctx, "Failed to store idempotent response", "error", err)
		}
	}
}
