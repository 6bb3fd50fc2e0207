// internal/service/likes.go
package service

import (
	"context"

	errordefs "github.com/vidshare/vidshare-api-go/internal/errors"
	"github.com/vidshare/vidshare-api-go/internal/event"
	"github.com/vidshare/vidshare-api-go/internal/metrics"
	"github.com/vidshare/vidshare-api-go/internal/model"
)

// Likes toggles likes on videos, comments and tweets.
type Likes struct {
	Deps
	metrics *metrics.Metrics
}

type likeTarget struct {
	invalid  string // 400 message
	notFound string // 404 message
}

var likeTargets = map[model.LikeKind]likeTarget{
	model.LikeVideo:   {invalid: "Invalid video ID", notFound: "Video not found"},
	model.LikeComment: {invalid: "Invalid comment ID", notFound: "Comment not found."},
	model.LikeTweet:   {invalid: "Invalid tweet ID", notFound: "Tweet not found."},
}

// exists loads the target to make sure it is there.
func (s *Likes) exists(ctx context.Context, kind model.LikeKind, id string) error {
	var err error
	switch kind {
	case model.LikeVideo:
		_, err = s.Store.GetVideo(ctx, id)
	case model.LikeComment:
		_, err = s.Store.GetComment(ctx, id)
	case model.LikeTweet:
		_, err = s.Store.GetTweet(ctx, id)
	}
	return err
}

// Toggle likes the target if requester does not like it yet and unlikes it
// otherwise. Toggles by one user on one target are serialized.
func (s *Likes) Toggle(ctx context.Context, requester string, kind model.LikeKind, rawID string) (model.LikeState, error) {
	target, ok := likeTargets[kind]
	if !ok {
		return model.LikeState{}, errordefs.Newf(errordefs.VS_VALIDATION, "Unknown like target %q", kind)
	}
	if err := requireUser(requester); err != nil {
		return model.LikeState{}, err
	}
	id, err := parseID(rawID, target.invalid)
	if err != nil {
		return model.LikeState{}, err
	}
	if err := s.exists(ctx, kind, id); err != nil {
		return model.LikeState{}, storeErr(err, target.notFound)
	}

	unlock, err := s.Locker.Lock(ctx, "like:"+requester+":"+string(kind)+":"+id)
	if err != nil {
		return model.LikeState{}, errordefs.Wrap(errordefs.VS_UNAVAILABLE, "Service temporarily unavailable", err)
	}
	defer unlock()

	like := model.Like{
		ID:        newID(),
		LikedBy:   requester,
		Kind:      kind,
		TargetID:  id,
		CreatedAt: s.Now(),
	}
	liked, err := s.Store.ToggleLike(ctx, like)
	if err != nil {
		return model.LikeState{}, storeErr(err, target.notFound)
	}

	result, action := "unliked", event.ActionDeleted
	if liked {
		result, action = "liked", event.ActionCreated
	}
	s.metrics.LikeToggleTotal.WithLabelValues(string(kind), result).Inc()
	s.publish(ctx, event.KindLike, action, like.ID, like)
	return model.LikeState{Liked: liked}, nil
}

// LikedVideos returns the videos requester liked, most recent like first.
func (s *Likes) LikedVideos(ctx context.Context, requester string) ([]model.Video, error) {
	if err := requireUser(requester); err != nil {
		return nil, err
	}
	videos, err := s.Store.ListLikedVideos(ctx, requester)
	if err != nil {
		return nil, storeErr(err, "Video not found")
	}
	if videos == nil {
		videos = []model.Video{}
	}
	return videos, nil
}
