// Package storage provides implementations of the Store interface
// for both in-memory and PostgreSQL storage backends.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vidshare/vidshare-api-go/internal/model"
)

// Standard errors returned by the storage layer
var (
	ErrNotFound = errors.New("not found") // Returned when a record is not found
	ErrConflict = errors.New("conflict")  // Returned when a record already exists
)

// VideoPatch lists the video fields an update may change. Nil fields are left alone.
type VideoPatch struct {
	Title       *string
	Description *string
	Thumbnail   *string
	IsPublished *bool
}

// Store interface defines the storage operations required by the vidshare API.
// This interface is implemented by both in-memory and PostgreSQL storage backends.
// Update methods return the record as it is after the change.
type Store interface {
	// Account operations
	EnsureAccount(ctx context.Context, id string) error          // Record that a user id exists
	AccountExists(ctx context.Context, id string) (bool, error) // Check a user id

	// Video operations
	CreateVideo(ctx context.Context, video model.Video) error
	GetVideo(ctx context.Context, id string) (*model.Video, error)
	ListVideos(ctx context.Context, query model.ListVideosQuery) ([]model.Video, error)
	CountVideos(ctx context.Context, query model.ListVideosQuery) (int64, error)
	UpdateVideo(ctx context.Context, id string, patch VideoPatch) (*model.Video, error)
	DeleteVideo(ctx context.Context, id string) error

	// Comment operations, listed newest first per video
	CreateComment(ctx context.Context, comment model.Comment) error
	GetComment(ctx context.Context, id string) (*model.Comment, error)
	ListComments(ctx context.Context, videoID string, query model.ListQuery) ([]model.Comment, error)
	CountComments(ctx context.Context, videoID string) (int64, error)
	UpdateComment(ctx context.Context, id, content string) (*model.Comment, error)
	DeleteComment(ctx context.Context, id string) error

	// Tweet operations, listed newest first per owner
	CreateTweet(ctx context.Context, tweet model.Tweet) error
	GetTweet(ctx context.Context, id string) (*model.Tweet, error)
	ListTweets(ctx context.Context, ownerID string, query model.ListQuery) ([]model.Tweet, error)
	CountTweets(ctx context.Context, ownerID string) (int64, error)
	UpdateTweet(ctx context.Context, id, content string) (*model.Tweet, error)
	DeleteTweet(ctx context.Context, id string) error

	// Playlist operations
	CreatePlaylist(ctx context.Context, playlist model.Playlist) error
	GetPlaylist(ctx context.Context, id string) (*model.Playlist, error)
	ListPlaylists(ctx context.Context, ownerID string) ([]model.Playlist, error)
	UpdatePlaylist(ctx context.Context, id, name, description string) (*model.Playlist, error)
	DeletePlaylist(ctx context.Context, id string) error
	PushPlaylistVideo(ctx context.Context, id, videoID string) (*model.Playlist, error) // Append, duplicates kept
	PullPlaylistVideo(ctx context.Context, id, videoID string) (*model.Playlist, error) // Remove every occurrence

	// Like operations
	ToggleLike(ctx context.Context, like model.Like) (bool, error) // Delete if present, else insert; reports liked
	ListLikedVideos(ctx context.Context, userID string) ([]model.Video, error)

	// Idempotency operations
	StoreIdempotentResponse(ctx context.Context, keyHash, requestHash string, responseBody []byte, statusCode int, expiresAt time.Time) error
	GetIdempotentResponse(ctx context.Context, keyHash string) (*IdempotentResponse, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}

// IdempotentResponse represents a cached idempotent response
type IdempotentResponse struct {
	RequestHash  string    // Hash of the request body that produced the response
	ResponseBody []byte    // Cached response body
	StatusCode   int       // HTTP status code
	ExpiresAt    time.Time // When the entry expires
}

// videoSortColumn maps a sort field onto a column name; unknown fields sort by creation time.
func videoSortColumn(s model.VideoSort) string {
	switch s {
	case model.SortUpdatedAt:
		return "updated_at"
	case model.SortTitle:
		return "title"
	case model.SortDuration:
		return "duration"
	default:
		return "created_at"
	}
}
