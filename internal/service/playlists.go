// internal/service/playlists.go
package service

import (
	"context"
	"strings"

	errordefs "github.com/vidshare/vidshare-api-go/internal/errors"
	"github.com/vidshare/vidshare-api-go/internal/event"
	"github.com/vidshare/vidshare-api-go/internal/model"
)

// Playlists manages user playlists.
//
// Membership is deliberately asymmetric: AddVideo appends even when the
// video is already present, RemoveVideo drops every occurrence.
type Playlists struct {
	Deps
}

func (s *Playlists) owned() owned[model.Playlist] {
	return owned[model.Playlist]{load: s.Store.GetPlaylist, notFound: "Playlist not found"}
}

// Create makes an empty playlist owned by requester.
func (s *Playlists) Create(ctx context.Context, requester string, in model.PlaylistDetails) (*model.Playlist, error) {
	if err := requireUser(requester); err != nil {
		return nil, err
	}
	if blank(in.Name, in.Description) {
		return nil, errordefs.New(errordefs.VS_VALIDATION, "Name and description are required")
	}
	now := s.Now()
	p := model.Playlist{
		ID:          newID(),
		Owner:       requester,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Videos:      []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Store.CreatePlaylist(ctx, p); err != nil {
		return nil, storeErr(err, "Playlist not found")
	}
	s.publish(ctx, event.KindPlaylist, event.ActionCreated, p.ID, p)
	return &p, nil
}

// ListByUser returns every playlist of a user.
func (s *Playlists) ListByUser(ctx context.Context, rawUserID string) ([]model.Playlist, error) {
	userID, err := parseID(rawUserID, "Invalid user id")
	if err != nil {
		return nil, err
	}
	lists, err := s.Store.ListPlaylists(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "Playlist not found")
	}
	if lists == nil {
		lists = []model.Playlist{}
	}
	return lists, nil
}

// Get returns one playlist.
func (s *Playlists) Get(ctx context.Context, rawID string) (*model.Playlist, error) {
	id, err := parseID(rawID, "Invalid playlist id")
	if err != nil {
		return nil, err
	}
	p, err := s.Store.GetPlaylist(ctx, id)
	if err != nil {
		return nil, storeErr(err, "Playlist not found")
	}
	return p, nil
}

// AddVideo appends an existing video to the playlist.
func (s *Playlists) AddVideo(ctx context.Context, requester, rawVideoID, rawPlaylistID string) (*model.Playlist, error) {
	playlistID, videoID, err := parseMembership(rawVideoID, rawPlaylistID)
	if err != nil {
		return nil, err
	}
	if _, err := s.owned().authorize(ctx, playlistID, requester, "You are not authorized to add video to playlist."); err != nil {
		return nil, err
	}
	if _, err := s.Store.GetVideo(ctx, videoID); err != nil {
		return nil, storeErr(err, "Video not found")
	}
	p, err := s.Store.PushPlaylistVideo(ctx, playlistID, videoID)
	if err != nil {
		return nil, storeErr(err, "Playlist not found")
	}
	s.publish(ctx, event.KindPlaylist, event.ActionUpdated, p.ID, p)
	return p, nil
}

// RemoveVideo removes every occurrence of the video. The video itself need
// not exist any more.
func (s *Playlists) RemoveVideo(ctx context.Context, requester, rawVideoID, rawPlaylistID string) (*model.Playlist, error) {
	playlistID, videoID, err := parseMembership(rawVideoID, rawPlaylistID)
	if err != nil {
		return nil, err
	}
	if _, err := s.owned().authorize(ctx, playlistID, requester, "You are not authorized to remove video from playlist."); err != nil {
		return nil, err
	}
	p, err := s.Store.PullPlaylistVideo(ctx, playlistID, videoID)
	if err != nil {
		return nil, storeErr(err, "Playlist not found")
	}
	s.publish(ctx, event.KindPlaylist, event.ActionUpdated, p.ID, p)
	return p, nil
}

func parseMembership(rawVideoID, rawPlaylistID string) (playlistID, videoID string, err error) {
	if playlistID, err = parseID(rawPlaylistID, "Invalid playlist id"); err != nil {
		return "", "", err
	}
	if videoID, err = parseID(rawVideoID, "Invalid video id"); err != nil {
		return "", "", err
	}
	return playlistID, videoID, nil
}

// Update changes name and description.
func (s *Playlists) Update(ctx context.Context, requester, rawID string, in model.PlaylistDetails) (*model.Playlist, error) {
	id, err := parseID(rawID, "Invalid playlist id")
	if err != nil {
		return nil, err
	}
	if blank(in.Name, in.Description) {
		return nil, errordefs.New(errordefs.VS_VALIDATION, "Name and description are required")
	}
	if _, err := s.owned().authorize(ctx, id, requester, "You are not authorized to update the playlist."); err != nil {
		return nil, err
	}
	p, err := s.Store.UpdatePlaylist(ctx, id, strings.TrimSpace(in.Name), strings.TrimSpace(in.Description))
	if err != nil {
		return nil, storeErr(err, "Playlist not found")
	}
	s.publish(ctx, event.KindPlaylist, event.ActionUpdated, p.ID, p)
	return p, nil
}

// Delete removes a playlist.
func (s *Playlists) Delete(ctx context.Context, requester, rawID string) (*model.Playlist, error) {
	id, err := parseID(rawID, "Invalid playlist id")
	if err != nil {
		return nil, err
	}
	p, err := s.owned().authorize(ctx, id, requester, "You are not authorized to delete the playlist.")
	if err != nil {
		return nil, err
	}
	if err := s.Store.DeletePlaylist(ctx, id); err != nil {
		return nil, storeErr(err, "Playlist not found")
	}
	s.publish(ctx, event.KindPlaylist, event.ActionDeleted, id, p)
	return p, nil
}
