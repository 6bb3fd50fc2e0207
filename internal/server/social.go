// internal/server/social.go
package server

import (
	"net/http"

	"github.com/vidshare/vidshare-api-go/internal/model"
	"github.com/vidshare/vidshare-api-go/internal/reqctx"
	"github.com/vidshare/vidshare-api-go/internal/schema"
)

// Comments

func (m *Mux) handleListComments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := m.svc.Comments.List(r.Context(), r.PathValue("videoId"), q.Get("page"), q.Get("limit"))
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, page, "Comments fetched successfully.")
}

func (m *Mux) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var body model.TextBody
	if err := m.decodeBody(w, r, schema.CommentContent, &body); err != nil {
		m.writeError(w, r, err)
		return
	}
	c, err := m.svc.Comments.Add(r.Context(), reqctx.UserID(r.Context()), r.PathValue("videoId"), body.Content)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, c, "Comment added successfully.")
}

func (m *Mux) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	var body model.TextBody
	if err := m.decodeBody(w, r, schema.CommentContent, &body); err != nil {
		m.writeError(w, r, err)
		return
	}
	c, err := m.svc.Comments.Update(r.Context(), reqctx.UserID(r.Context()), r.PathValue("commentId"), body.Content)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, c, "Comment updated successfully.")
}

func (m *Mux) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	if _, err := m.svc.Comments.Delete(r.Context(), reqctx.UserID(r.Context()), r.PathValue("commentId")); err != nil {
		m.writeError(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, nil, "Comment deleted successfully.")
}

// Tweets

func (m *Mux) handleCreateTweet(w http.ResponseWriter, r *http.Request) {
	var body model.TextBody
	if err := m.decodeBody(w, r, schema.TweetContent, &body); err != nil {
		m.writeError(w, r, err)
		return
	}
	t, err := m.svc.Tweets.Create(r.Context(), reqctx.UserID(r.Context()), body.Content)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusCreated, t, "Tweet created successfully.")
}

func (m *Mux) handleListTweets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := m.svc.Tweets.ListByUser(r.Context(), r.PathValue("userId"), q.Get("page"), q.Get("limit"))
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, page, "User tweets fetched successfully.")
}

func (m *Mux) handleUpdateTweet(w http.ResponseWriter, r *http.Request) {
	var body model.TextBody
	if err := m.decodeBody(w, r, schema.TweetContent, &body); err != nil {
		m.writeError(w, r, err)
		return
	}
	t, err := m.svc.Tweets.Update(r.Context(), reqctx.UserID(r.Context()), r.PathValue("tweetId"), body.Content)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, t, "Tweet updated successfully.")
}

func (m *Mux) handleDeleteTweet(w http.ResponseWriter, r *http.Request) {
	if _, err := m.svc.Tweets.Delete(r.Context(), reqctx.UserID(r.Context()), r.PathValue("tweetId")); err != nil {
		m.writeError(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, nil, "Tweet deleted successfully.")
}

// Playlists

func (m *Mux) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var body model.PlaylistDetails
	if err := m.decodeBody(w, r, schema.PlaylistBody, &body); err != nil {
		m.writeError(w, r, err)
		return
	}
	p, err := m.svc.Playlists.Create(r.Context(), reqctx.UserID(r.Context()), body)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusCreated, p, "Playlist is created successfully")
}

func (m *Mux) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	lists, err := m.svc.Playlists.ListByUser(r.Context(), r.PathValue("userId"))
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, lists, "User playlists are fetched successfully")
}

func (m *Mux) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	p, err := m.svc.Playlists.Get(r.Context(), r.PathValue("playlistId"))
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, p, "Playlist is fetched successfully")
}

func (m *Mux) handleUpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	var body model.PlaylistDetails
	if err := m.decodeBody(w, r, schema.PlaylistBody, &body); err != nil {
		m.writeError(w, r, err)
		return
	}
	p, err := m.svc.Playlists.Update(r.Context(), reqctx.UserID(r.Context()), r.PathValue("playlistId"), body)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, p, "Playlist is updated successfully")
}

func (m *Mux) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	if _, err := m.svc.Playlists.Delete(r.Context(), reqctx.UserID(r.Context()), r.PathValue("playlistId")); err != nil {
		m.writeError(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, nil, "Playlist is deleted successfully")
}

func (m *Mux) handleAddToPlaylist(w http.ResponseWriter, r *http.Request) {
	p, err := m.svc.Playlists.AddVideo(r.Context(), reqctx.UserID(r.Context()), r.PathValue("videoId"), r.PathValue("playlistId"))
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, p, "Video is added to playlist successfully")
}

func (m *Mux) handleRemoveFromPlaylist(w http.ResponseWriter, r *http.Request) {
	p, err := m.svc.Playlists.RemoveVideo(r.Context(), reqctx.UserID(r.Context()), r.PathValue("videoId"), r.PathValue("playlistId"))
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, p, "Video is removed from playlist successfully")
}

// Likes

var likeMessages = map[model.LikeKind][2]string{
	model.LikeVideo:   {"Video unliked successfully", "Video liked successfully"},
	model.LikeComment: {"Comment unliked successfully.", "Comment liked successfully."},
	model.LikeTweet:   {"Tweet unliked successfully.", "Tweet liked successfully."},
}

// handleToggleLike handles POST /likes/toggle/{v|c|t}/{id}. Both outcomes are 200.
func (m *Mux) handleToggleLike(kind model.LikeKind, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := m.svc.Likes.Toggle(r.Context(), reqctx.UserID(r.Context()), kind, r.PathValue(param))
		if err != nil {
			m.writeError(w, r, err)
			return
		}
		msg := likeMessages[kind][0]
		if state.Liked {
			msg = likeMessages[kind][1]
		}
		m.writeSuccess(w, http.StatusOK, state, msg)
	}
}

func (m *Mux) handleLikedVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := m.svc.Likes.LikedVideos(r.Context(), reqctx.UserID(r.Context()))
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, videos, "Liked videos are fetched successfully")
}
