package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix      = "user:%d"
	PostKeyPrefix      = "post:%d"
	PostsListKeyName   = "posts:recent"
	CommunityKeyPrefix = "community:%s"
	DonationSummaryKey = "donations:summary"
)

const (
	UserTTL            = 5 * time.Minute
	PostTTL            = 30 * time.Minute
	ListTTL            = 30 * time.Second
	CommunityTTL       = 10 * time.Minute
	DonationSummaryTTL = time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func PostsListKey() string {
	return PostsListKeyName
}

func CommunityKey(slug string) string {
	return fmt.Sprintf(CommunityKeyPrefix, slug)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
}

func InvalidatePostsList(ctx context.Context) {
	Invalidate(ctx, PostsListKey())
}

func InvalidateCommunity(ctx context.Context, slug string) {
	Invalidate(ctx, CommunityKey(slug))
}
