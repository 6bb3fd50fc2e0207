// internal/storage/memory.go
package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vidshare/vidshare-api-go/internal/model"
)

// memory implements the Store interface using in-memory storage.
// It's intended for development and testing purposes.
type memory struct {
	mu          sync.RWMutex                   // Protects concurrent access to maps
	accounts    map[string]*model.Account      // Map of user id to account
	videos      map[string]*model.Video        // Map of video id to video
	comments    map[string]*model.Comment      // Map of comment id to comment
	tweets      map[string]*model.Tweet        // Map of tweet id to tweet
	playlists   map[string]*model.Playlist     // Map of playlist id to playlist
	likes       map[likeKey]*model.Like        // Unique per (user, kind, target)
	idempotency map[string]*IdempotentResponse // Map of key hash to idempotent responses
}

type likeKey struct {
	user   string
	kind   model.LikeKind
	target string
}

// NewMemory creates a new in-memory storage implementation.
// Returns a Store interface that can be used for testing or development.
func NewMemory() Store {
	return &memory{
		accounts:    make(map[string]*model.Account),
		videos:      make(map[string]*model.Video),
		comments:    make(map[string]*model.Comment),
		tweets:      make(map[string]*model.Tweet),
		playlists:   make(map[string]*model.Playlist),
		likes:       make(map[likeKey]*model.Like),
		idempotency: make(map[string]*IdempotentResponse),
	}
}

func (m *memory) Ping(ctx context.Context) error { return ctx.Err() }

func (m *memory) EnsureAccount(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accounts[id]; !exists {
		m.accounts[id] = &model.Account{ID: id, CreatedAt: time.Now().UTC()}
	}
	return nil
}

func (m *memory) AccountExists(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.accounts[id]
	return exists, nil
}

// newestFirst orders by creation time descending, then id descending.
func newestFirst(ai, aj time.Time, idi, idj string) bool {
	if ai.Equal(aj) {
		return idi > idj
	}
	return ai.After(aj)
}

// window applies skip/limit to n items and returns the slice bounds.
func window(n int, skip, limit int64) (int, int) {
	if skip >= int64(n) {
		return n, n
	}
	end := skip + limit
	if limit <= 0 || end > int64(n) {
		end = int64(n)
	}
	return int(skip), int(end)
}

// Video operations

func (m *memory) CreateVideo(ctx context.Context, video model.Video) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.videos[video.ID]; exists {
		return ErrConflict
	}
	videoCopy := video
	m.videos[video.ID] = &videoCopy
	return nil
}

func (m *memory) GetVideo(ctx context.Context, id string) (*model.Video, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	video, exists := m.videos[id]
	if !exists {
		return nil, ErrNotFound
	}
	videoCopy := *video
	return &videoCopy, nil
}

func (m *memory) filterVideos(query model.ListVideosQuery) []model.Video {
	search := strings.ToLower(query.Search)
	out := make([]model.Video, 0)
	for _, v := range m.videos {
		if !v.IsPublished && v.Owner != query.Viewer {
			continue
		}
		if query.OwnerID != "" && v.Owner != query.OwnerID {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(v.Title), search) &&
			!strings.Contains(strings.ToLower(v.Description), search) {
			continue
		}
		out = append(out, *v)
	}
	return out
}

func (m *memory) ListVideos(ctx context.Context, query model.ListVideosQuery) ([]model.Video, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	videos := m.filterVideos(query)
	sort.Slice(videos, func(i, j int) bool {
		c := compareVideos(videos[i], videos[j], query.SortBy)
		if query.Ascending {
			return c < 0
		}
		return c > 0
	})
	start, end := window(len(videos), query.Skip, query.Limit)
	return videos[start:end], nil
}

// compareVideos orders two videos by field, falling back to id so the order is total.
func compareVideos(a, b model.Video, by model.VideoSort) int {
	c := 0
	switch by {
	case model.SortTitle:
		c = strings.Compare(a.Title, b.Title)
	case model.SortDuration:
		c = compareFloat(a.Duration, b.Duration)
	case model.SortUpdatedAt:
		c = a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		c = a.CreatedAt.Compare(b.CreatedAt)
	}
	if c == 0 {
		c = strings.Compare(a.ID, b.ID)
	}
	return c
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (m *memory) CountVideos(ctx context.Context, query model.ListVideosQuery) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(m.filterVideos(query))), nil
}

func (m *memory) UpdateVideo(ctx context.Context, id string, patch VideoPatch) (*model.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	video, exists := m.videos[id]
	if !exists {
		return nil, ErrNotFound
	}
	if patch.Title != nil {
		video.Title = *patch.Title
	}
	if patch.Description != nil {
		video.Description = *patch.Description
	}
	if patch.Thumbnail != nil {
		video.Thumbnail = *patch.Thumbnail
	}
	if patch.IsPublished != nil {
		video.IsPublished = *patch.IsPublished
	}
	video.UpdatedAt = time.Now().UTC()
	videoCopy := *video
	return &videoCopy, nil
}

func (m *memory) DeleteVideo(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.videos[id]; !exists {
		return ErrNotFound
	}
	delete(m.videos, id)
	return nil
}

// Comment operations

func (m *memory) CreateComment(ctx context.Context, comment model.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.comments[comment.ID]; exists {
		return ErrConflict
	}
	commentCopy := comment
	m.comments[comment.ID] = &commentCopy
	return nil
}

func (m *memory) GetComment(ctx context.Context, id string) (*model.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	comment, exists := m.comments[id]
	if !exists {
		return nil, ErrNotFound
	}
	commentCopy := *comment
	return &commentCopy, nil
}

func (m *memory) ListComments(ctx context.Context, videoID string, query model.ListQuery) ([]model.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	comments := make([]model.Comment, 0)
	for _, c := range m.comments {
		if c.Video == videoID {
			comments = append(comments, *c)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		return newestFirst(comments[i].CreatedAt, comments[j].CreatedAt, comments[i].ID, comments[j].ID)
	})
	start, end := window(len(comments), query.Skip, query.Limit)
	return comments[start:end], nil
}

func (m *memory) CountComments(ctx context.Context, videoID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, c := range m.comments {
		if c.Video == videoID {
			n++
		}
	}
	return n, nil
}

func (m *memory) UpdateComment(ctx context.Context, id, content string) (*model.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	comment, exists := m.comments[id]
	if !exists {
		return nil, ErrNotFound
	}
	comment.Content = content
	comment.UpdatedAt = time.Now().UTC()
	commentCopy := *comment
	return &commentCopy, nil
}

func (m *memory) DeleteComment(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.comments[id]; !exists {
		return ErrNotFound
	}
	delete(m.comments, id)
	return nil
}

// Tweet operations

func (m *memory) CreateTweet(ctx context.Context, tweet model.Tweet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tweets[tweet.ID]; exists {
		return ErrConflict
	}
	tweetCopy := tweet
	m.tweets[tweet.ID] = &tweetCopy
	return nil
}

func (m *memory) GetTweet(ctx context.Context, id string) (*model.Tweet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tweet, exists := m.tweets[id]
	if !exists {
		return nil, ErrNotFound
	}
	tweetCopy := *tweet
	return &tweetCopy, nil
}

func (m *memory) ListTweets(ctx context.Context, ownerID string, query model.ListQuery) ([]model.Tweet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tweets := make([]model.Tweet, 0)
	for _, t := range m.tweets {
		if t.Owner == ownerID {
			tweets = append(tweets, *t)
		}
	}
	sort.Slice(tweets, func(i, j int) bool {
		return newestFirst(tweets[i].CreatedAt, tweets[j].CreatedAt, tweets[i].ID, tweets[j].ID)
	})
	start, end := window(len(tweets), query.Skip, query.Limit)
	return tweets[start:end], nil
}

func (m *memory) CountTweets(ctx context.Context, ownerID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, t := range m.tweets {
		if t.Owner == ownerID {
			n++
		}
	}
	return n, nil
}

func (m *memory) UpdateTweet(ctx context.Context, id, content string) (*model.Tweet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tweet, exists := m.tweets[id]
	if !exists {
		return nil, ErrNotFound
	}
	tweet.Content = content
	tweet.UpdatedAt = time.Now().UTC()
	tweetCopy := *tweet
	return &tweetCopy, nil
}

func (m *memory) DeleteTweet(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tweets[id]; !exists {
		return ErrNotFound
	}
	delete(m.tweets, id)
	return nil
}

// Playlist operations

func copyPlaylist(p *model.Playlist) *model.Playlist {
	playlistCopy := *p
	playlistCopy.Videos = append(make([]string, 0, len(p.Videos)), p.Videos...)
	return &playlistCopy
}

func (m *memory) CreatePlaylist(ctx context.Context, playlist model.Playlist) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.playlists[playlist.ID]; exists {
		return ErrConflict
	}
	m.playlists[playlist.ID] = copyPlaylist(&playlist)
	return nil
}

func (m *memory) GetPlaylist(ctx context.Context, id string) (*model.Playlist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	playlist, exists := m.playlists[id]
	if !exists {
		return nil, ErrNotFound
	}
	return copyPlaylist(playlist), nil
}

func (m *memory) ListPlaylists(ctx context.Context, ownerID string) ([]model.Playlist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	playlists := make([]model.Playlist, 0)
	for _, p := range m.playlists {
		if p.Owner == ownerID {
			playlists = append(playlists, *copyPlaylist(p))
		}
	}
	sort.Slice(playlists, func(i, j int) bool {
		return newestFirst(playlists[i].CreatedAt, playlists[j].CreatedAt, playlists[i].ID, playlists[j].ID)
	})
	return playlists, nil
}

func (m *memory) UpdatePlaylist(ctx context.Context, id, name, description string) (*model.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	playlist, exists := m.playlists[id]
	if !exists {
		return nil, ErrNotFound
	}
	playlist.Name = name
	playlist.Description = description
	playlist.UpdatedAt = time.Now().UTC()
	return copyPlaylist(playlist), nil
}

func (m *memory) DeletePlaylist(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.playlists[id]; !exists {
		return ErrNotFound
	}
	delete(m.playlists, id)
	return nil
}

func (m *memory) PushPlaylistVideo(ctx context.Context, id, videoID string) (*model.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	playlist, exists := m.playlists[id]
	if !exists {
		return nil, ErrNotFound
	}
	playlist.Videos = append(playlist.Videos, videoID)
	playlist.UpdatedAt = time.Now().UTC()
	return copyPlaylist(playlist), nil
}

func (m *memory) PullPlaylistVideo(ctx context.Context, id, videoID string) (*model.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	playlist, exists := m.playlists[id]
	if !exists {
		return nil, ErrNotFound
	}
	kept := playlist.Videos[:0]
	for _, v := range playlist.Videos {
		if v != videoID {
			kept = append(kept, v)
		}
	}
	playlist.Videos = kept
	playlist.UpdatedAt = time.Now().UTC()
	return copyPlaylist(playlist), nil
}

// Like operations

func (m *memory) ToggleLike(ctx context.Context, like model.Like) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := likeKey{user: like.LikedBy, kind: like.Kind, target: like.TargetID}
	if _, exists := m.likes[key]; exists {
		delete(m.likes, key)
		return false, nil
	}
	likeCopy := like
	m.likes[key] = &likeCopy
	return true, nil
}

func (m *memory) ListLikedVideos(ctx context.Context, userID string) ([]model.Video, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	liked := make([]*model.Like, 0)
	for key, l := range m.likes {
		if key.user == userID && key.kind == model.LikeVideo {
			liked = append(liked, l)
		}
	}
	sort.Slice(liked, func(i, j int) bool {
		return newestFirst(liked[i].CreatedAt, liked[j].CreatedAt, liked[i].ID, liked[j].ID)
	})
	videos := make([]model.Video, 0, len(liked))
	for _, l := range liked {
		if v, exists := m.videos[l.TargetID]; exists {
			videos = append(videos, *v)
		}
	}
	return videos, nil
}

// Idempotency operations

// StoreIdempotentResponse stores an idempotent response in memory.
// A live entry for the same key but another request body is a conflict.
func (m *memory) StoreIdempotentResponse(ctx context.Context, keyHash, requestHash string, responseBody []byte, statusCode int, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, exists := m.idempotency[keyHash]; exists &&
		existing.RequestHash != requestHash && time.Now().UTC().Before(existing.ExpiresAt) {
		return ErrConflict
	}

	responseCopy := make([]byte, len(responseBody))
	copy(responseCopy, responseBody)

	m.idempotency[keyHash] = &IdempotentResponse{
		RequestHash:  requestHash,
		ResponseBody: responseCopy,
		StatusCode:   statusCode,
		ExpiresAt:    expiresAt,
	}
	return nil
}

// GetIdempotentResponse retrieves a cached idempotent response from memory
func (m *memory) GetIdempotentResponse(ctx context.Context, keyHash string) (*IdempotentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	response, exists := m.idempotency[keyHash]
	if !exists {
		return nil, ErrNotFound
	}

	// Check if the response has expired
	if time.Now().UTC().After(response.ExpiresAt) {
		delete(m.idempotency, keyHash)
		return nil, ErrNotFound
	}

	responseCopy := *response
	responseCopy.ResponseBody = append([]byte(nil), response.ResponseBody...)
	return &responseCopy, nil
}
