package service

import (
	"context"
	"testing"

	"warbler/internal/models"
	"warbler/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_ProfileAnonymous(t *testing.T) {
	likes := noopLikeRepo()
	likes.countByUserFn = func(_ context.Context, _ uint) (int64, error) { return 3, nil }
	likes.likedIDsFn = func(_ context.Context, _ uint) ([]uint, error) {
		t.Fatal("anonymous viewers have no liked set")
		return nil, nil
	}
	follows := noopFollowRepo()
	follows.countsFn = func(_ context.Context, _ uint) (repository.FollowCounts, error) {
		return repository.FollowCounts{Following: 1, Followers: 2}, nil
	}
	s := NewUserService(noopUserRepo(), follows, likes, noopMessageRepo(), nil)

	p, err := s.Profile(context.Background(), 4, 0)
	require.NoError(t, err)
	assert.Equal(t, uint(4), p.User.ID)
	assert.Equal(t, int64(3), p.LikeCount)
	assert.Equal(t, int64(2), p.Counts.Followers)
	assert.Empty(t, p.LikedIDs)
	assert.False(t, p.IsFollowing)
}

func TestUserService_ProfileWithViewer(t *testing.T) {
	likes := noopLikeRepo()
	likes.likedIDsFn = func(_ context.Context, viewer uint) ([]uint, error) {
		assert.Equal(t, uint(9), viewer)
		return []uint{11, 12}, nil
	}
	follows := noopFollowRepo()
	follows.existsFn = func(_ context.Context, a, b uint) (bool, error) { return a == 9 && b == 4, nil }
	s := NewUserService(noopUserRepo(), follows, likes, noopMessageRepo(), nil)

	p, err := s.Profile(context.Background(), 4, 9)
	require.NoError(t, err)
	assert.Equal(t, []uint{11, 12}, p.LikedIDs)
	assert.True(t, p.IsFollowing)
}

func TestUserService_UpdateProfile(t *testing.T) {
	repo, _ := memUserRepo()
	var got repository.ProfileUpdate
	repo.updateProfileFn = func(_ context.Context, id uint, f repository.ProfileUpdate) (*models.User, error) {
		got = f
		return &models.User{ID: id, Username: f.Username}, nil
	}
	auth := newTestAuthService(repo)
	ctx := context.Background()
	user, err := auth.Signup(ctx, SignupInput{Username: "alice", Password: "secret1", Email: "a@example.com"})
	require.NoError(t, err)

	s := NewUserService(repo, noopFollowRepo(), noopLikeRepo(), noopMessageRepo(), auth)

	_, err = s.UpdateProfile(ctx, user.ID, ProfileInput{Password: "wrong-pw", Username: "alice2"})
	assertAppErrorCode(t, err, models.CodeUnauthorized)

	updated, err := s.UpdateProfile(ctx, user.ID, ProfileInput{Password: "secret1", Username: "alice2", Bio: " hi "})
	require.NoError(t, err)
	assert.Equal(t, "alice2", updated.Username)
	assert.Equal(t, "a@example.com", got.Email)
	assert.Equal(t, "hi", got.Bio)
	assert.Equal(t, models.DefaultImageURL, got.ImageURL)
	assert.Equal(t, models.DefaultHeaderImageURL, got.HeaderImageURL)

	_, err = s.UpdateProfile(ctx, user.ID, ProfileInput{Password: "secret1", ImageURL: "javascript:alert(1)"})
	assertAppErrorCode(t, err, models.CodeValidation)
}

func TestUserService_SearchCapped(t *testing.T) {
	users := noopUserRepo()
	var gotLimit int
	users.searchFn = func(_ context.Context, _ string, limit int) ([]models.User, error) {
		gotLimit = limit
		return nil, nil
	}
	s := NewUserService(users, noopFollowRepo(), noopLikeRepo(), noopMessageRepo(), nil)

	_, err := s.Search(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 100, gotLimit)
}
