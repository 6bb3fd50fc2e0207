//go:build integration

// internal/storage/postgres_integration_test.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vidshare/vidshare-api-go/internal/model"
)

// startPostgres runs a throwaway PostgreSQL container and returns a Store on it.
func startPostgres(t *testing.T) Store {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "vidshare",
				"POSTGRES_PASSWORD": "vidshare",
				"POSTGRES_DB":       "vidshare",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatal(err)
	}

	dsn := fmt.Sprintf("postgres://vidshare:vidshare@%s:%s/vidshare?sslmode=disable", host, port.Port())
	store, err := NewPostgres(dsn)
	if err != nil {
		t.Fatalf("NewPostgres: %v", err)
	}
	t.Cleanup(store.(*postgres).Close)
	return store
}

func TestPostgresLikeToggle(t *testing.T) {
	store := startPostgres(t)
	ctx := context.Background()
	like := model.Like{ID: "L1", LikedBy: "U1", Kind: model.LikeComment, TargetID: "C1", CreatedAt: time.Now()}

	for i, want := range []bool{true, false, true} {
		like.ID = fmt.Sprintf("L%d", i)
		liked, err := store.ToggleLike(ctx, like)
		if err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
		if liked != want {
			t.Errorf("toggle %d: liked = %v, want %v", i, liked, want)
		}
	}
}

func TestPostgresPlaylistMembership(t *testing.T) {
	store := startPostgres(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := store.CreatePlaylist(ctx, model.Playlist{ID: "P1", Owner: "U1", Name: "n", Description: "d", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatal(err)
	}
	for _, v := range []string{"V1", "V1", "V2"} {
		if _, err := store.PushPlaylistVideo(ctx, "P1", v); err != nil {
			t.Fatal(err)
		}
	}
	pl, err := store.PullPlaylistVideo(ctx, "P1", "V1")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(pl.Videos, []string{"V2"}) {
		t.Errorf("videos = %v, want [V2]", pl.Videos)
	}
	if err := store.DeletePlaylist(ctx, "P1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetPlaylist(ctx, "P1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestPostgresVideoListing(t *testing.T) {
	store := startPostgres(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	for i, title := range []string{"alpha 100%", "beta", "gamma"} {
		v := model.Video{
			ID: fmt.Sprintf("V%d", i), Owner: "U1", Title: title, Description: "d",
			VideoFile: "http://x/v.mp4", Thumbnail: "http://x/t.png", IsPublished: i != 2,
			CreatedAt: base.Add(time.Duration(i) * time.Second), UpdatedAt: base,
		}
		if err := store.CreateVideo(ctx, v); err != nil {
			t.Fatal(err)
		}
	}

	stranger := model.ListVideosQuery{Viewer: "U2", Limit: 10}
	got, err := store.ListVideos(ctx, stranger)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "V1" {
		t.Errorf("stranger listing = %+v", got)
	}

	// A literal percent sign must not act as a wildcard.
	n, err := store.CountVideos(ctx, model.ListVideosQuery{Viewer: "U1", Search: "0%"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("search count = %d, want 1", n)
	}
}
