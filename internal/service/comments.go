// internal/service/comments.go
package service

import (
	"context"
	"strings"

	errordefs "github.com/vidshare/vidshare-api-go/internal/errors"
	"github.com/vidshare/vidshare-api-go/internal/event"
	"github.com/vidshare/vidshare-api-go/internal/model"
	"github.com/vidshare/vidshare-api-go/internal/pagination"
)

// Comments manages comments on videos.
type Comments struct {
	Deps
}

func (s *Comments) owned() owned[model.Comment] {
	return owned[model.Comment]{load: s.Store.GetComment, notFound: "Comment not found."}
}

// List returns one page of a video's comments, newest first.
// An empty page is reported as not found.
func (s *Comments) List(ctx context.Context, rawVideoID, pageParam, limitParam string) (*model.CommentPage, error) {
	videoID, err := parseID(rawVideoID, "Invalid video id.")
	if err != nil {
		return nil, err
	}
	page, err := pagination.Parse(pageParam, limitParam)
	if err != nil {
		return nil, err
	}
	total, err := s.Store.CountComments(ctx, videoID)
	if err != nil {
		return nil, storeErr(err, "Video not found")
	}
	comments, err := s.Store.ListComments(ctx, videoID, page.Query())
	if err != nil {
		return nil, storeErr(err, "Video not found")
	}
	if len(comments) == 0 {
		return nil, errordefs.New(errordefs.VS_NOT_FOUND, "No comments found for video with id "+videoID)
	}
	return &model.CommentPage{Comments: comments, Count: total, Pagination: page.Result(total)}, nil
}

// Add comments on an existing video.
func (s *Comments) Add(ctx context.Context, requester, rawVideoID, content string) (*model.Comment, error) {
	if err := requireUser(requester); err != nil {
		return nil, err
	}
	videoID, err := parseID(rawVideoID, "Invalid video id.")
	if err != nil {
		return nil, err
	}
	if blank(content) {
		return nil, errordefs.New(errordefs.VS_VALIDATION, "Content is required.")
	}
	if _, err := s.Store.GetVideo(ctx, videoID); err != nil {
		return nil, storeErr(err, "Video not found")
	}

	now := s.Now()
	c := model.Comment{
		ID:        newID(),
		Owner:     requester,
		Video:     videoID,
		Content:   strings.TrimSpace(content),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.CreateComment(ctx, c); err != nil {
		return nil, storeErr(err, "Comment not found.")
	}
	s.publish(ctx, event.KindComment, event.ActionCreated, c.ID, c)
	return &c, nil
}

// Update replaces the content of a comment.
func (s *Comments) Update(ctx context.Context, requester, rawID, content string) (*model.Comment, error) {
	id, err := parseID(rawID, "Invalid comment id.")
	if err != nil {
		return nil, err
	}
	if blank(content) {
		return nil, errordefs.New(errordefs.VS_VALIDATION, "Content is required.")
	}
	if _, err := s.owned().authorize(ctx, id, requester, "You are not authorized to update the comment."); err != nil {
		return nil, err
	}
	c, err := s.Store.UpdateComment(ctx, id, strings.TrimSpace(content))
	if err != nil {
		return nil, storeErr(err, "Comment not found.")
	}
	s.publish(ctx, event.KindComment, event.ActionUpdated, c.ID, c)
	return c, nil
}

// Delete removes a comment. Likes on it are left in place.
func (s *Comments) Delete(ctx context.Context, requester, rawID string) (*model.Comment, error) {
	id, err := parseID(rawID, "Invalid comment id.")
	if err != nil {
		return nil, err
	}
	c, err := s.owned().authorize(ctx, id, requester, "You are not authorized to delete the comment.")
	if err != nil {
		return nil, err
	}
	if err := s.Store.DeleteComment(ctx, id); err != nil {
		return nil, storeErr(err, "Comment not found.")
	}
	s.publish(ctx, event.KindComment, event.ActionDeleted, id, c)
	return c, nil
}
