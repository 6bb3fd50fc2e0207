// internal/model/vidshare.go
// Package model defines the data structures used throughout the vidshare API.
// These structures represent the core domain objects: accounts, videos,
// comments, tweets, playlists and likes.
package model

import (
	"time"

	"github.com/goccy/go-json"
)

// Account represents a user the service has seen.
// Authentication is external; an account only records that an id exists.
// This corresponds to the accounts table in storage.
type Account struct {
	ID        string    `json:"id" db:"id"`                // User id (ULID)
	CreatedAt time.Time `json:"createdAt" db:"created_at"` // When the account was first seen
}

// Video represents a published video and its hosted media.
// VideoFile and Thumbnail are URLs on the media host whose lifecycle
// is tied to this record.
type Video struct {
	ID          string    `json:"id" db:"id"`
	Owner       string    `json:"owner" db:"owner_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	VideoFile   string    `json:"videoFile" db:"video_file"` // Remote video URL
	Thumbnail   string    `json:"thumbnail" db:"thumbnail"`  // Remote thumbnail URL
	Duration    float64   `json:"duration" db:"duration"`    // Seconds, as reported by the media host
	IsPublished bool      `json:"isPublished" db:"is_published"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// OwnerID implements ownership.Owned.
func (v Video) OwnerID() string { return v.Owner }

// Comment represents a comment left on a video.
type Comment struct {
	ID        string    `json:"id" db:"id"`
	Owner     string    `json:"owner" db:"owner_id"`
	Video     string    `json:"video" db:"video_id"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// OwnerID implements ownership.Owned.
func (c Comment) OwnerID() string { return c.Owner }

// Tweet represents a short text post.
type Tweet struct {
	ID        string    `json:"id" db:"id"`
	Owner     string    `json:"owner" db:"owner_id"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// OwnerID implements ownership.Owned.
func (t Tweet) OwnerID() string { return t.Owner }

// Playlist is an ordered list of video ids curated by its owner.
// Videos may contain the same id more than once.
type Playlist struct {
	ID          string    `json:"id" db:"id"`
	Owner       string    `json:"owner" db:"owner_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Videos      []string  `json:"videos" db:"videos"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// OwnerID implements ownership.Owned.
func (p Playlist) OwnerID() string { return p.Owner }

// LikeKind names the kind of resource a Like points at.
type LikeKind string

const (
	LikeVideo   LikeKind = "video"
	LikeComment LikeKind = "comment"
	LikeTweet   LikeKind = "tweet"
)

// Valid reports whether k is one of the known like targets.
func (k LikeKind) Valid() bool {
	switch k {
	case LikeVideo, LikeComment, LikeTweet:
		return true
	}
	return false
}

// Like records that LikedBy likes exactly one target.
// Its existence is the like state; there is no boolean flag.
type Like struct {
	ID        string    `db:"id"`
	LikedBy   string    `db:"liked_by"`
	Kind      LikeKind  `db:"target_kind"`
	TargetID  string    `db:"target_id"`
	CreatedAt time.Time `db:"created_at"`
}

// MarshalJSON renders the target under its own field name so that exactly
// one of video, comment or tweet is present.
func (l Like) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"id":        l.ID,
		"likedBy":   l.LikedBy,
		"createdAt": l.CreatedAt,
	}
	out[string(l.Kind)] = l.TargetID
	return json.Marshal(out)
}

// LikeState is the outcome of a like toggle.
type LikeState struct {
	Liked bool `json:"liked"`
}

// VideoSort names the columns a video listing may be ordered by.
type VideoSort string

const (
	SortCreatedAt VideoSort = "createdAt"
	SortUpdatedAt VideoSort = "updatedAt"
	SortTitle     VideoSort = "title"
	SortDuration  VideoSort = "duration"
)

// ListVideosQuery represents the filters for listing videos.
// Unpublished videos are only returned when their owner is the Viewer.
type ListVideosQuery struct {
	Viewer    string    // Requesting user
	OwnerID   string    // Optional owner filter
	Search    string    // Case-insensitive match on title or description
	SortBy    VideoSort // Defaults to createdAt
	Ascending bool      // Defaults to newest first
	Skip      int64
	Limit     int64
}

// ListQuery is the page window for listings with fixed newest-first order.
type ListQuery struct {
	Skip  int64
	Limit int64
}

// Pagination is the page block returned with every paginated listing.
type Pagination struct {
	CurrentPage int64 `json:"currentPage"`
	TotalPages  int64 `json:"totalPages"`
}

// CommentPage is the data payload of a comment listing.
type CommentPage struct {
	Comments   []Comment  `json:"comments"`
	Count      int64      `json:"count"`
	Pagination Pagination `json:"pagination"`
}

// TweetPage is the data payload of a tweet listing.
type TweetPage struct {
	Tweets     []Tweet    `json:"tweets"`
	Count      int64      `json:"count"`
	Pagination Pagination `json:"pagination"`
}

// VideoPage is the data payload of a video listing.
type VideoPage struct {
	Videos     []Video    `json:"videos"`
	Count      int64      `json:"count"`
	Pagination Pagination `json:"pagination"`
}

// OrphanedAsset describes a remote media asset that the service could not
// delete after its record was changed or removed. Operators reconcile these.
type OrphanedAsset struct {
	VideoID string    `json:"videoId"`
	Owner   string    `json:"owner"`
	URL     string    `json:"url"`
	Role    string    `json:"role"`  // "video" or "thumbnail"
	Stage   string    `json:"stage"` // Which step left it behind
	Reason  string    `json:"reason"`
	LostAt  time.Time `json:"lostAt"`
}

// APIResponse is the envelope every endpoint answers with.
// Success is true exactly when StatusCode is below 400.
type APIResponse struct {
	StatusCode    int         `json:"statusCode"`
	Data          interface{} `json:"data"`
	Message       string      `json:"message"`
	Success       bool        `json:"success"`
	Code          string      `json:"code,omitempty"`          // Error code, failures only
	CorrelationID string      `json:"correlationId,omitempty"` // Failures only
}

// NewAPIResponse builds an envelope, deriving Success from the status.
func NewAPIResponse(statusCode int, data interface{}, message string) APIResponse {
	if data == nil {
		data = struct{}{}
	}
	return APIResponse{
		StatusCode: statusCode,
		Data:       data,
		Message:    message,
		Success:    statusCode < 400,
	}
}

// Content request bodies. Fields are validated by the schema package
// before they reach the services.

// TextBody is the body of comment and tweet create/update requests.
type TextBody struct {
	Content string `json:"content"`
}

// VideoDetails is the body of a video update and the text fields of a publish.
type VideoDetails struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// PlaylistDetails is the body of playlist create/update requests.
type PlaylistDetails struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
