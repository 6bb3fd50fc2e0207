// internal/server/videos.go
package server

import (
	"net/http"

	"github.com/vidshare/vidshare-api-go/internal/model"
	"github.com/vidshare/vidshare-api-go/internal/reqctx"
	"github.com/vidshare/vidshare-api-go/internal/schema"
	"github.com/vidshare/vidshare-api-go/internal/service"
)

// handleListVideos handles GET /videos
func (m *Mux) handleListVideos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := m.svc.Videos.List(r.Context(), reqctx.UserID(r.Context()), service.ListVideosInput{
		Page:     q.Get("page"),
		Limit:    q.Get("limit"),
		Query:    q.Get("query"),
		SortBy:   q.Get("sortBy"),
		SortType: q.Get("sortType"),
		UserID:   q.Get("userId"),
	})
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, page, "Videos are fetched successfully")
}

// handlePublishVideo handles POST /videos (multipart: videoFile, thumbnail, title, description)
func (m *Mux) handlePublishVideo(w http.ResponseWriter, r *http.Request) {
	up, err := m.readUpload(w, r, "videoFile", "thumbnail")
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	// Publish removes the files itself; this only covers a panic on the way.
	defer up.cleanup()

	video, err := m.svc.Videos.Publish(r.Context(), reqctx.UserID(r.Context()), service.PublishInput{
		Title:         up.fields["title"],
		Description:   up.fields["description"],
		VideoPath:     up.files["videoFile"],
		ThumbnailPath: up.files["thumbnail"],
	})
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusCreated, video, "Video is published successfully")
}

// handleGetVideo handles GET /videos/{videoId}
func (m *Mux) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	video, err := m.svc.Videos.Get(r.Context(), r.PathValue("videoId"))
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, video, "Video is fetched successfully")
}

// handleUpdateVideo handles PATCH /videos/{videoId}
func (m *Mux) handleUpdateVideo(w http.ResponseWriter, r *http.Request) {
	var body model.VideoDetails
	if err := m.decodeBody(w, r, schema.VideoUpdate, &body); err != nil {
		m.writeError(w, r, err)
		return
	}
	video, err := m.svc.Videos.Update(r.Context(), reqctx.UserID(r.Context()), r.PathValue("videoId"), body)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, video, "Video details are updated successfully")
}

// handleReplaceThumbnail handles PATCH /videos/{videoId}/thumbnail (multipart: thumbnail)
func (m *Mux) handleReplaceThumbnail(w http.ResponseWriter, r *http.Request) {
	up, err := m.readUpload(w, r, "thumbnail")
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	defer up.cleanup()

	video, err := m.svc.Videos.ReplaceThumbnail(r.Context(), reqctx.UserID(r.Context()), r.PathValue("videoId"), up.files["thumbnail"])
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, video, "Video thumbnail updated successfully")
}

// handleDeleteVideo handles DELETE /videos/{videoId}
func (m *Mux) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	if err := m.svc.Videos.Delete(r.Context(), reqctx.UserID(r.Context()), r.PathValue("videoId")); err != nil {
		m.writeError(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, nil, "Video is deleted successfully")
}

// handleTogglePublish handles PATCH /videos/toggle/publish/{videoId}
func (m *Mux) handleTogglePublish(w http.ResponseWriter, r *http.Request) {
	video, err := m.svc.Videos.TogglePublish(r.Context(), reqctx.UserID(r.Context()), r.PathValue("videoId"))
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, video, "Video publish status is toggled successfully")
}
