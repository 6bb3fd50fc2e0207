// internal/service/tweets.go
package service

import (
	"context"
	"strings"

	errordefs "github.com/vidshare/vidshare-api-go/internal/errors"
	"github.com/vidshare/vidshare-api-go/internal/event"
	"github.com/vidshare/vidshare-api-go/internal/model"
	"github.com/vidshare/vidshare-api-go/internal/pagination"
)

// Tweets manages short text posts.
type Tweets struct {
	Deps
}

func (s *Tweets) owned() owned[model.Tweet] {
	return owned[model.Tweet]{load: s.Store.GetTweet, notFound: "Tweet not found."}
}

// Create posts a tweet as requester.
func (s *Tweets) Create(ctx context.Context, requester, content string) (*model.Tweet, error) {
	if err := requireUser(requester); err != nil {
		return nil, err
	}
	if blank(content) {
		return nil, errordefs.New(errordefs.VS_VALIDATION, "Content is required.")
	}
	now := s.Now()
	t := model.Tweet{
		ID:        newID(),
		Owner:     requester,
		Content:   strings.TrimSpace(content),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.CreateTweet(ctx, t); err != nil {
		return nil, storeErr(err, "Tweet not found.")
	}
	s.publish(ctx, event.KindTweet, event.ActionCreated, t.ID, t)
	return &t, nil
}

// ListByUser returns one page of a user's tweets, newest first.
// Unlike comments, an empty page is a normal result.
func (s *Tweets) ListByUser(ctx context.Context, rawUserID, pageParam, limitParam string) (*model.TweetPage, error) {
	userID, err := parseID(rawUserID, "Invalid user ID.")
	if err != nil {
		return nil, err
	}
	page, err := pagination.Parse(pageParam, limitParam)
	if err != nil {
		return nil, err
	}
	known, err := s.Users.Exists(ctx, userID)
	if err != nil {
		return nil, errordefs.Wrap(errordefs.VS_UNAVAILABLE, "Unable to look up user", err)
	}
	if !known {
		return nil, errordefs.New(errordefs.VS_NOT_FOUND, "User not found.")
	}

	total, err := s.Store.CountTweets(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "User not found.")
	}
	tweets, err := s.Store.ListTweets(ctx, userID, page.Query())
	if err != nil {
		return nil, storeErr(err, "User not found.")
	}
	if tweets == nil {
		tweets = []model.Tweet{}
	}
	return &model.TweetPage{Tweets: tweets, Count: total, Pagination: page.Result(total)}, nil
}

// Update replaces the content of a tweet.
func (s *Tweets) Update(ctx context.Context, requester, rawID, content string) (*model.Tweet, error) {
	id, err := parseID(rawID, "Invalid tweet id.")
	if err != nil {
		return nil, err
	}
	if blank(content) {
		return nil, errordefs.New(errordefs.VS_VALIDATION, "Content is required.")
	}
	if _, err := s.owned().authorize(ctx, id, requester, "You are not authorized to update this tweet."); err != nil {
		return nil, err
	}
	t, err := s.Store.UpdateTweet(ctx, id, strings.TrimSpace(content))
	if err != nil {
		return nil, storeErr(err, "Tweet not found.")
	}
	s.publish(ctx, event.KindTweet, event.ActionUpdated, t.ID, t)
	return t, nil
}

// Delete removes a tweet.
func (s *Tweets) Delete(ctx context.Context, requester, rawID string) (*model.Tweet, error) {
	id, err := parseID(rawID, "Invalid tweet id.")
	if err != nil {
		return nil, err
	}
	t, err := s.owned().authorize(ctx, id, requester, "You are not authorized to delete this tweet.")
	if err != nil {
		return nil, err
	}
	if err := s.Store.DeleteTweet(ctx, id); err != nil {
		return nil, storeErr(err, "Tweet not found.")
	}
	s.publish(ctx, event.KindTweet, event.ActionDeleted, id, t)
	return t, nil
}
