// internal/identity/client_test.go
package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/KNOWN":
			w.WriteHeader(http.StatusOK)
		case "/users/BROKEN":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	ctx := context.Background()

	if ok, err := c.Exists(ctx, "KNOWN"); err != nil || !ok {
		t.Errorf("KNOWN: got %v, %v", ok, err)
	}
	if ok, err := c.Exists(ctx, "MISSING"); err != nil || ok {
		t.Errorf("MISSING: got %v, %v", ok, err)
	}
	if _, err := c.Exists(ctx, "BROKEN"); err == nil {
		t.Error("BROKEN: expected error")
	}
}
