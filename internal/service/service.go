// internal/service/service.go
// Package service holds the vidshare operations: validation, ownership
// checks, store calls and the media saga. Handlers in package server only
// translate HTTP to these calls and back.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	errordefs "github.com/vidshare/vidshare-api-go/internal/errors"
	"github.com/vidshare/vidshare-api-go/internal/event"
	"github.com/vidshare/vidshare-api-go/internal/lock"
	"github.com/vidshare/vidshare-api-go/internal/media"
	"github.com/vidshare/vidshare-api-go/internal/metrics"
	"github.com/vidshare/vidshare-api-go/internal/storage"
)

// UserDirectory answers whether a user id is known.
// *identity.Client satisfies it; so does the store-backed default.
type UserDirectory interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

// storeUsers looks users up in the local accounts table.
type storeUsers struct{ store storage.Store }

func (u storeUsers) Exists(ctx context.Context, userID string) (bool, error) {
	return u.store.AccountExists(ctx, userID)
}

// Deps are the collaborators shared by every service.
type Deps struct {
	Store  storage.Store
	Events event.Publisher // Defaults to a no-op publisher
	Media  media.Host      // Defaults to media.Disabled
	Locker lock.Locker     // Defaults to an in-process keyed mutex
	Users  UserDirectory   // Defaults to the store's accounts table
	Logger *slog.Logger    // Defaults to slog.Default()
	Now    func() time.Time

	// AllowedMimeTypes restricts sniffed upload types; empty allows any video or image.
	AllowedMimeTypes []string
}

func (d *Deps) setDefaults() {
	if d.Events == nil {
		d.Events = event.NewNoop()
	}
	if d.Media == nil {
		d.Media = media.Disabled{}
	}
	if d.Locker == nil {
		d.Locker = lock.NewLocal()
	}
	if d.Users == nil {
		d.Users = storeUsers{store: d.Store}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
}

// Services bundles every resource service over one set of Deps.
type Services struct {
	Videos    *Videos
	Comments  *Comments
	Tweets    *Tweets
	Playlists *Playlists
	Likes     *Likes
}

// New builds all services.
func New(d Deps) *Services {
	d.setDefaults()
	return &Services{
		Videos:    &Videos{Deps: d, metrics: metrics.NewMetrics()},
		Comments:  &Comments{Deps: d},
		Tweets:    &Tweets{Deps: d},
		Playlists: &Playlists{Deps: d},
		Likes:     &Likes{Deps: d, metrics: metrics.NewMetrics()},
	}
}

// newID returns a fresh resource id.
func newID() string {
	return ulid.Make().String()
}

// parseID validates a resource id from a path or query parameter and
// returns it in canonical form. message is the client-facing 400 text.
func parseID(raw, message string) (string, error) {
	id, err := ulid.ParseStrict(strings.TrimSpace(raw))
	if err != nil {
		return "", errordefs.Wrap(errordefs.VS_VALIDATION, message, err)
	}
	return id.String(), nil
}

// requireUser rejects calls without an authenticated requester.
func requireUser(requester string) error {
	if strings.TrimSpace(requester) == "" {
		return errordefs.New(errordefs.VS_AUTHN, "Unauthorized request")
	}
	return nil
}

// blank reports whether any of the values is empty after trimming.
func blank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}

// storeErr maps a storage failure onto the error taxonomy.
func storeErr(err error, notFound string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return errordefs.Wrap(errordefs.VS_NOT_FOUND, notFound, err)
	case errors.Is(err, storage.ErrConflict):
		return errordefs.Wrap(errordefs.VS_CONFLICT, "Resource already exists", err)
	}
	return errordefs.Wrap(errordefs.VS_INTERNAL, "Internal server error", err)
}

// publish sends a resource event. Event delivery never fails the request.
func (d *Deps) publish(ctx context.Context, kind, action, id string, payload interface{}) {
	if err := d.Events.PublishResourceEvent(ctx, kind, action, id, payload); err != nil {
		d.Logger.WarnContext(ctx, "Failed to publish resource event",
			"kind", kind, "action", action, "id", id, "error", err)
	}
}
