package repository

import (
	"context"
	"testing"
	"time"

	"warbler/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateAndLookup(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := &models.User{Username: "alice", Email: "alice@example.com", Password: "hash"}
	require.NoError(t, repo.Create(ctx, u))
	assert.NotZero(t, u.ID)

	byID, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)
	assert.Equal(t, models.DefaultImageURL, byID.ImageURL)

	byName, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, "hash", byName.Password)

	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)

	missing, err := repo.GetByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = repo.GetByID(ctx, 999)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Username: "bob", Email: "bob@example.com", Password: "x"}))

	err := repo.Create(ctx, &models.User{Username: "bob", Email: "other@example.com", Password: "x"})
	assert.Equal(t, models.CodeConflict, models.ErrorCode(err))

	err = repo.Create(ctx, &models.User{Username: "bobby", Email: "bob@example.com", Password: "x"})
	assert.Equal(t, models.CodeConflict, models.ErrorCode(err))
}

func TestUserRepository_UpdateProfileKeepsPassword(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := createUser(t, db, "carol")
	createUser(t, db, "dave")

	updated, err := repo.UpdateProfile(ctx, u.ID, ProfileUpdate{
		Username:       "carol2",
		Email:          "carol2@example.com",
		ImageURL:       "/img/c.png",
		HeaderImageURL: models.DefaultHeaderImageURL,
		Bio:            "hello",
		Location:       "Lisbon",
	})
	require.NoError(t, err)
	assert.Equal(t, "carol2", updated.Username)
	assert.Equal(t, "Lisbon", updated.Location)

	withPw, err := repo.GetWithPassword(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Password, withPw.Password)

	_, err = repo.UpdateProfile(ctx, u.ID, ProfileUpdate{Username: "dave", Email: "carol2@example.com"})
	assert.Equal(t, models.CodeConflict, models.ErrorCode(err))
}

func TestUserRepository_DeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	follows := NewFollowRepository(db)
	likes := NewLikeRepository(db)
	convs := NewConversationRepository(db)
	ctx := context.Background()

	a := createUser(t, db, "a")
	b := createUser(t, db, "b")

	_, err := follows.Follow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = follows.Follow(ctx, b.ID, a.ID)
	require.NoError(t, err)

	bMsg := createMessage(t, db, b.ID, "from b", time.Now())
	aMsg := createMessage(t, db, a.ID, "from a", time.Now())
	_, err = likes.Toggle(ctx, a.ID, bMsg.ID)
	require.NoError(t, err)
	_, err = likes.Toggle(ctx, b.ID, aMsg.ID)
	require.NoError(t, err)

	conv, _, err := convs.FindOrCreate(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = convs.AddDM(ctx, &models.DirectMessage{ConversationID: conv.ID, AuthorID: a.ID, Text: "hi"})
	require.NoError(t, err)

	require.NoError(t, users.Delete(ctx, b.ID))

	following, err := follows.Exists(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, following, "follow edge to a deleted user must be gone")

	var n int64
	db.Model(&models.Follow{}).Count(&n)
	assert.Zero(t, n)
	db.Model(&models.Like{}).Count(&n)
	assert.Zero(t, n)
	db.Model(&models.Message{}).Where("user_id = ?", b.ID).Count(&n)
	assert.Zero(t, n)
	db.Model(&models.Conversation{}).Count(&n)
	assert.Zero(t, n)
	db.Model(&models.DirectMessage{}).Count(&n)
	assert.Zero(t, n)

	_, err = users.GetByID(ctx, b.ID)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(users.Delete(ctx, b.ID)))
}

func TestUserRepository_Search(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	createUser(t, db, "warbler_fan")
	createUser(t, db, "birdwatcher")
	createUser(t, db, "fanatic")

	all, err := repo.Search(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	fans, err := repo.Search(ctx, "fan", 10)
	require.NoError(t, err)
	require.Len(t, fans, 2)
	assert.Equal(t, "fanatic", fans[0].Username)

	none, err := repo.Search(ctx, "%", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
