package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix       = "user:%d"
	LikedIDsKeyPrefix   = "likes:user:%d"
	LikeCountKeyPrefix  = "likes:count:%d"
	FollowCountKeyFmt   = "follows:%s:%d"
	TokenBlacklistKeyFn = "blacklist:%s"
)

const (
	UserTTL        = 5 * time.Minute
	LikedIDsTTL    = 2 * time.Minute
	LikeCountTTL   = 2 * time.Minute
	FollowCountTTL = 5 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

// LikedIDsKey holds the ids of messages a user has liked.
func LikedIDsKey(userID uint) string {
	return fmt.Sprintf(LikedIDsKeyPrefix, userID)
}

func LikeCountKey(userID uint) string {
	return fmt.Sprintf(LikeCountKeyPrefix, userID)
}

// FollowCountKey is keyed by direction ("following" or "followers").
func FollowCountKey(direction string, userID uint) string {
	return fmt.Sprintf(FollowCountKeyFmt, direction, userID)
}

func BlacklistKey(jti string) string {
	return fmt.Sprintf(TokenBlacklistKeyFn, jti)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx,
		UserKey(userID),
		LikedIDsKey(userID),
		LikeCountKey(userID),
		FollowCountKey("following", userID),
		FollowCountKey("followers", userID),
	)
}

// InvalidateLikes drops the like caches after a toggle.
func InvalidateLikes(ctx context.Context, userID uint) {
	Invalidate(ctx, LikedIDsKey(userID), LikeCountKey(userID))
}

// InvalidateFollow drops both sides' follow counters.
func InvalidateFollow(ctx context.Context, followerID, followedID uint) {
	Invalidate(ctx, FollowCountKey("following", followerID), FollowCountKey("followers", followedID))
}
