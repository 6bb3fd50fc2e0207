// internal/service/videos.go
package service

import (
	"context"
	"errors"
	"os"
	"strings"

	errordefs "github.com/vidshare/vidshare-api-go/internal/errors"
	"github.com/vidshare/vidshare-api-go/internal/event"
	"github.com/vidshare/vidshare-api-go/internal/media"
	"github.com/vidshare/vidshare-api-go/internal/metrics"
	"github.com/vidshare/vidshare-api-go/internal/model"
	"github.com/vidshare/vidshare-api-go/internal/pagination"
	"github.com/vidshare/vidshare-api-go/internal/storage"
	"github.com/vidshare/vidshare-api-go/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Asset roles, as recorded on orphaned-asset reports.
const (
	roleVideo     = "video"
	roleThumbnail = "thumbnail"
)

// Saga stages that can leave an asset behind on the media host.
const (
	stagePublishCompensation = "publish-compensation"
	stageReplaceThumbnail    = "replace-thumbnail"
	stageDeleteVideo         = "delete-video"
)

// Videos manages video records and the remote media tied to them.
type Videos struct {
	Deps
	metrics *metrics.Metrics
}

func (s *Videos) owned() owned[model.Video] {
	return owned[model.Video]{load: s.Store.GetVideo, notFound: "Video not found"}
}

// PublishInput carries a publish request. The paths point at local temp
// files which are removed before Publish returns, whatever the outcome.
type PublishInput struct {
	Title         string
	Description   string
	VideoPath     string
	ThumbnailPath string
}

// ListVideosInput carries the raw query parameters of a video listing.
type ListVideosInput struct {
	Page     string
	Limit    string
	Query    string
	SortBy   string
	SortType string
	UserID   string
}

// removeTemp deletes local upload files. Empty and already-removed paths are ignored.
func (s *Videos) removeTemp(ctx context.Context, paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.Logger.WarnContext(ctx, "Failed to remove temp upload", "path", p, "error", err)
		}
	}
}

// checkType sniffs a local file and rejects it unless it is of the wanted
// top-level type and allowed by configuration.
func (s *Videos) checkType(localPath, want, message string) error {
	file, err := media.Inspect(localPath)
	if err != nil {
		if errors.Is(err, media.ErrMissingFile) {
			return errordefs.Wrap(errordefs.VS_VALIDATION, message, err)
		}
		return errordefs.Wrap(errordefs.VS_INTERNAL, "Internal server error", err)
	}
	ok := strings.HasPrefix(file.ContentType, want+"/")
	if ok && len(s.AllowedMimeTypes) > 0 {
		ok = media.Allowed(file.ContentType, s.AllowedMimeTypes)
	}
	if !ok {
		return errordefs.NewWithDetails(errordefs.VS_MEDIA_TYPE,
			"Unsupported "+want+" file type", map[string]string{"contentType": file.ContentType})
	}
	return nil
}

// uploadErr maps a host failure onto the taxonomy. message names the asset.
func uploadErr(err error, message string) error {
	if errors.Is(err, media.ErrUnavailable) {
		return errordefs.Wrap(errordefs.VS_UNAVAILABLE, "Media host is unavailable", err)
	}
	return errordefs.Wrap(errordefs.VS_UPLOAD, message, err)
}

// Publish uploads the video file and thumbnail and creates the record.
// The record is only created once both uploads succeeded.
func (s *Videos) Publish(ctx context.Context, requester string, in PublishInput) (_ *model.Video, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "videos.Publish")
	defer endSpan(span, &err)
	defer s.removeTemp(ctx, in.VideoPath, in.ThumbnailPath)

	if err := requireUser(requester); err != nil {
		return nil, err
	}
	if blank(in.Title, in.Description) {
		return nil, errordefs.New(errordefs.VS_VALIDATION, "All fields are required")
	}
	if in.VideoPath == "" {
		return nil, errordefs.New(errordefs.VS_VALIDATION, "Video is required.")
	}
	if in.ThumbnailPath == "" {
		return nil, errordefs.New(errordefs.VS_VALIDATION, "Thumbnail is required")
	}
	if err := s.checkType(in.VideoPath, "video", "Video is required."); err != nil {
		return nil, err
	}
	if err := s.checkType(in.ThumbnailPath, "image", "Thumbnail is required"); err != nil {
		return nil, err
	}

	videoAsset, err := s.Media.Upload(ctx, in.VideoPath)
	s.removeTemp(ctx, in.VideoPath)
	if err != nil {
		s.Logger.ErrorContext(ctx, "Video upload failed", "error", err)
		return nil, uploadErr(err, "There was an error uploading video")
	}

	thumbAsset, err := s.Media.Upload(ctx, in.ThumbnailPath)
	s.removeTemp(ctx, in.ThumbnailPath)
	if err != nil {
		s.Logger.ErrorContext(ctx, "Thumbnail upload failed", "error", err)
		s.compensate(ctx, model.Video{Owner: requester}, roleVideo, videoAsset.URL)
		return nil, uploadErr(err, "There was an error uploading thumbnail")
	}

	now := s.Now()
	video := model.Video{
		ID:          newID(),
		Owner:       requester,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		VideoFile:   videoAsset.URL,
		Thumbnail:   thumbAsset.URL,
		Duration:    videoAsset.Duration,
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Store.CreateVideo(ctx, video); err != nil {
		s.compensate(ctx, video, roleVideo, video.VideoFile)
		s.compensate(ctx, video, roleThumbnail, video.Thumbnail)
		return nil, storeErr(err, "Video not found")
	}

	span.SetAttributes(attribute.String("video.id", video.ID))
	s.publish(ctx, event.KindVideo, event.ActionCreated, video.ID, video)
	return &video, nil
}

// compensate removes an asset uploaded by a step that did not complete.
// Failure only leaves an orphan behind; it never changes the caller's error.
func (s *Videos) compensate(ctx context.Context, video model.Video, role, assetURL string) {
	_ = s.removeRemote(ctx, video, role, assetURL, stagePublishCompensation)
}

// removeRemote deletes one remote asset. A host that no longer has the asset
// counts as success. On failure the asset is reported as orphaned.
func (s *Videos) removeRemote(ctx context.Context, video model.Video, role, assetURL, stage string) error {
	key := media.AssetKey(assetURL)
	if key == "" {
		return nil
	}
	found, err := s.Media.Delete(ctx, key)
	if err == nil {
		if !found {
			s.Logger.InfoContext(ctx, "Remote asset already gone", "role", role, "key", key, "video_id", video.ID)
		}
		return nil
	}

	s.Logger.ErrorContext(ctx, "Failed to delete remote asset",
		"role", role, "key", key, "video_id", video.ID, "stage", stage, "error", err)
	s.metrics.OrphanedAssetTotal.WithLabelValues(role, stage).Inc()
	orphan := model.OrphanedAsset{
		VideoID: video.ID,
		Owner:   video.Owner,
		URL:     assetURL,
		Role:    role,
		Stage:   stage,
		Reason:  err.Error(),
		LostAt:  s.Now(),
	}
	if perr := s.Events.PublishOrphanedAsset(ctx, orphan); perr != nil {
		s.Logger.ErrorContext(ctx, "Failed to report orphaned asset", "url", assetURL, "error", perr)
	}
	return err
}

// Get returns one video.
func (s *Videos) Get(ctx context.Context, rawID string) (*model.Video, error) {
	id, err := parseID(rawID, "Invalid video id")
	if err != nil {
		return nil, err
	}
	v, err := s.Store.GetVideo(ctx, id)
	if err != nil {
		return nil, storeErr(err, "Video not found")
	}
	return v, nil
}

// List returns a page of videos visible to requester.
// A malformed userId filter is ignored rather than rejected.
func (s *Videos) List(ctx context.Context, requester string, in ListVideosInput) (*model.VideoPage, error) {
	page, err := pagination.Parse(in.Page, in.Limit)
	if err != nil {
		return nil, err
	}
	q := model.ListVideosQuery{
		Viewer:    requester,
		Search:    strings.TrimSpace(in.Query),
		SortBy:    model.VideoSort(in.SortBy),
		Ascending: strings.EqualFold(in.SortType, "asc"),
		Skip:      page.Skip,
		Limit:     page.Limit,
	}
	if in.UserID != "" {
		if owner, err := parseID(in.UserID, ""); err == nil {
			q.OwnerID = owner
		}
	}

	total, err := s.Store.CountVideos(ctx, q)
	if err != nil {
		return nil, storeErr(err, "Videos not found")
	}
	videos, err := s.Store.ListVideos(ctx, q)
	if err != nil {
		return nil, storeErr(err, "Videos not found")
	}
	if videos == nil {
		videos = []model.Video{}
	}
	return &model.VideoPage{Videos: videos, Count: total, Pagination: page.Result(total)}, nil
}

// Update changes title and description. Both are required.
func (s *Videos) Update(ctx context.Context, requester, rawID string, in model.VideoDetails) (*model.Video, error) {
	id, err := parseID(rawID, "Invalid video id")
	if err != nil {
		return nil, err
	}
	if _, err := s.owned().authorize(ctx, id, requester, "You are not authorised to update video."); err != nil {
		return nil, err
	}
	if blank(in.Title, in.Description) {
		return nil, errordefs.New(errordefs.VS_VALIDATION, "All fields are required")
	}
	title, desc := strings.TrimSpace(in.Title), strings.TrimSpace(in.Description)
	v, err := s.Store.UpdateVideo(ctx, id, storage.VideoPatch{Title: &title, Description: &desc})
	if err != nil {
		return nil, storeErr(err, "Video not found")
	}
	s.publish(ctx, event.KindVideo, event.ActionUpdated, v.ID, v)
	return v, nil
}

// ReplaceThumbnail uploads a new thumbnail, points the record at it and
// then deletes the previous one from the media host. If that last delete
// fails the record keeps the new thumbnail and a VS_REMOTE_DELETE error is
// returned.
func (s *Videos) ReplaceThumbnail(ctx context.Context, requester, rawID, localPath string) (_ *model.Video, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "videos.ReplaceThumbnail")
	defer endSpan(span, &err)
	defer s.removeTemp(ctx, localPath)

	id, err := parseID(rawID, "Invalid video id")
	if err != nil {
		return nil, err
	}
	current, err := s.owned().authorize(ctx, id, requester, "You are not authorised to update video thumbnail.")
	if err != nil {
		return nil, err
	}
	if localPath == "" {
		return nil, errordefs.New(errordefs.VS_VALIDATION, "Thumbnail is required")
	}
	if err := s.checkType(localPath, "image", "Thumbnail is required"); err != nil {
		return nil, err
	}

	asset, err := s.Media.Upload(ctx, localPath)
	s.removeTemp(ctx, localPath)
	if err != nil {
		s.Logger.ErrorContext(ctx, "Thumbnail upload failed", "video_id", id, "error", err)
		return nil, uploadErr(err, "There was an error uploading thumbnail")
	}

	updated, err := s.Store.UpdateVideo(ctx, id, storage.VideoPatch{Thumbnail: &asset.URL})
	if err != nil {
		s.compensate(ctx, *current, roleThumbnail, asset.URL)
		return nil, storeErr(err, "Video not found")
	}
	s.publish(ctx, event.KindVideo, event.ActionUpdated, updated.ID, updated)

	if err := s.removeRemote(context.WithoutCancel(ctx), *current, roleThumbnail, current.Thumbnail, stageReplaceThumbnail); err != nil {
		return nil, errordefs.Wrap(errordefs.VS_REMOTE_DELETE,
			"Something went wrong while deleting previous thumbnail on media host.", err)
	}
	return updated, nil
}

// Delete removes the record first and then both remote assets. Both remote
// deletes are always attempted; any failure is reported after the fact
// since the record is already gone.
func (s *Videos) Delete(ctx context.Context, requester, rawID string) (err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "videos.Delete")
	defer endSpan(span, &err)

	id, err := parseID(rawID, "Invalid video id")
	if err != nil {
		return err
	}
	video, err := s.owned().authorize(ctx, id, requester, "You are not authorised to delete video.")
	if err != nil {
		return err
	}
	if err := s.Store.DeleteVideo(ctx, id); err != nil {
		return storeErr(err, "Video not found")
	}
	s.publish(ctx, event.KindVideo, event.ActionDeleted, id, video)

	// The record is gone; a client disconnect must not abandon the remote cleanup.
	remoteCtx := context.WithoutCancel(ctx)
	var failed []string
	if err := s.removeRemote(remoteCtx, *video, roleVideo, video.VideoFile, stageDeleteVideo); err != nil {
		failed = append(failed, roleVideo)
	}
	if err := s.removeRemote(remoteCtx, *video, roleThumbnail, video.Thumbnail, stageDeleteVideo); err != nil {
		failed = append(failed, roleThumbnail)
	}
	if len(failed) == 0 {
		return nil
	}

	message := "Something went wrong while deleting previous video on media host."
	if failed[0] == roleThumbnail {
		message = "Something went wrong while deleting previous thumbnail on media host."
	}
	return errordefs.NewWithDetails(errordefs.VS_REMOTE_DELETE, message, map[string]interface{}{
		"videoId": id,
		"failed":  failed,
	})
}

// TogglePublish flips the published flag. Concurrent toggles of one video
// are serialized so that two requests always flip twice.
func (s *Videos) TogglePublish(ctx context.Context, requester, rawID string) (*model.Video, error) {
	id, err := parseID(rawID, "Invalid video id")
	if err != nil {
		return nil, err
	}
	unlock, err := s.Locker.Lock(ctx, "video-publish:"+id)
	if err != nil {
		return nil, errordefs.Wrap(errordefs.VS_UNAVAILABLE, "Service temporarily unavailable", err)
	}
	defer unlock()

	video, err := s.owned().authorize(ctx, id, requester, "You are not authorised to toggle publish status for video.")
	if err != nil {
		return nil, err
	}
	flipped := !video.IsPublished
	updated, err := s.Store.UpdateVideo(ctx, id, storage.VideoPatch{IsPublished: &flipped})
	if err != nil {
		return nil, storeErr(err, "Video not found")
	}
	s.publish(ctx, event.KindVideo, event.ActionUpdated, updated.ID, updated)
	return updated, nil
}

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err *error) {
	if *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
		if e := errordefs.As(*err); e != nil {
			span.SetAttributes(attribute.String("error.code", string(e.Code)))
		}
	}
	span.End()
}
