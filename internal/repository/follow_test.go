package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	a := createUser(t, db, "a")
	b := createUser(t, db, "b")
	c := createUser(t, db, "c")

	t.Run("Follow is idempotent", func(t *testing.T) {
		created, err := repo.Follow(ctx, a.ID, b.ID)
		require.NoError(t, err)
		assert.True(t, created)

		created, err = repo.Follow(ctx, a.ID, b.ID)
		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("Exists is directed", func(t *testing.T) {
		ok, err := repo.Exists(ctx, a.ID, b.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.Exists(ctx, b.ID, a.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Lists and counts", func(t *testing.T) {
		_, err := repo.Follow(ctx, a.ID, c.ID)
		require.NoError(t, err)
		_, err = repo.Follow(ctx, c.ID, b.ID)
		require.NoError(t, err)

		ids, err := repo.FollowingIDs(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, []uint{b.ID, c.ID}, ids)

		following, err := repo.Following(ctx, a.ID)
		require.NoError(t, err)
		assert.Len(t, following, 2)

		followers, err := repo.Followers(ctx, b.ID)
		require.NoError(t, err)
		require.Len(t, followers, 2)
		assert.Equal(t, "a", followers[0].Username)

		counts, err := repo.Counts(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, FollowCounts{Following: 2, Followers: 0}, counts)
	})

	t.Run("Unfollow", func(t *testing.T) {
		removed, err := repo.Unfollow(ctx, a.ID, b.ID)
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = repo.Unfollow(ctx, a.ID, b.ID)
		require.NoError(t, err)
		assert.False(t, removed, "unfollowing twice is a no-op")

		ok, err := repo.Exists(ctx, a.ID, b.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
