package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = Close() })
	return mr
}

type cachedThing struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func TestAside_FetchesOnceThenHits(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *cachedThing) func() error {
		return func() error {
			calls++
			*dest = cachedThing{ID: 7, Name: "seven"}
			return nil
		}
	}

	var first cachedThing
	require.NoError(t, Aside(ctx, UserKey(7), &first, time.Minute, fetch(&first)))
	var second cachedThing
	require.NoError(t, Aside(ctx, UserKey(7), &second, time.Minute, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, "seven", second.Name)
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	var dest cachedThing
	err := Aside(ctx, UserKey(1), &dest, time.Minute, func() error { return errors.New("boom") })
	require.Error(t, err)
	assert.False(t, mr.Exists(UserKey(1)))
}

func TestAside_WithoutRedis(t *testing.T) {
	SetClient(nil)
	var dest cachedThing
	calls := 0
	for i := 0; i < 2; i++ {
		require.NoError(t, Aside(context.Background(), UserKey(1), &dest, time.Minute, func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
}

func TestInvalidateUser(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, UserKey(3), cachedThing{ID: 3}, time.Minute))
	require.NoError(t, SetJSON(ctx, LikedIDsKey(3), []uint{1, 2}, time.Minute))
	require.NoError(t, SetJSON(ctx, FollowCountKey("followers", 3), 4, time.Minute))

	InvalidateUser(ctx, 3)

	assert.False(t, mr.Exists(UserKey(3)))
	assert.False(t, mr.Exists(LikedIDsKey(3)))
	assert.False(t, mr.Exists(FollowCountKey("followers", 3)))
}

func TestInvalidateFollow(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, FollowCountKey("following", 1), 1, time.Minute))
	require.NoError(t, SetJSON(ctx, FollowCountKey("followers", 2), 1, time.Minute))
	require.NoError(t, SetJSON(ctx, FollowCountKey("followers", 1), 9, time.Minute))

	InvalidateFollow(ctx, 1, 2)

	assert.False(t, mr.Exists(FollowCountKey("following", 1)))
	assert.False(t, mr.Exists(FollowCountKey("followers", 2)))
	assert.True(t, mr.Exists(FollowCountKey("followers", 1)))
}

func TestGetJSON_Miss(t *testing.T) {
	setupMiniredis(t)
	var dest cachedThing
	found, err := GetJSON(context.Background(), "nope", &dest)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "user:5", UserKey(5))
	assert.Equal(t, "likes:user:5", LikedIDsKey(5))
	assert.Equal(t, "likes:count:5", LikeCountKey(5))
	assert.Equal(t, "follows:followers:5", FollowCountKey("followers", 5))
	assert.Equal(t, "blacklist:abc", BlacklistKey("abc"))
}
