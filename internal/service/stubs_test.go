package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"warbler/internal/models"
	"warbler/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn         func(context.Context, uint) (*models.User, error)
	getWithPasswordFn func(context.Context, uint) (*models.User, error)
	getByEmailFn      func(context.Context, string) (*models.User, error)
	getByUsernameFn   func(context.Context, string) (*models.User, error)
	createFn          func(context.Context, *models.User) error
	updateProfileFn   func(context.Context, uint, repository.ProfileUpdate) (*models.User, error)
	deleteFn          func(context.Context, uint) error
	searchFn          func(context.Context, string, int) ([]models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetWithPassword(ctx context.Context, id uint) (*models.User, error) {
	return s.getWithPasswordFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) UpdateProfile(ctx context.Context, id uint, fields repository.ProfileUpdate) (*models.User, error) {
	return s.updateProfileFn(ctx, id, fields)
}
func (s *userRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *userRepoStub) Search(ctx context.Context, query string, limit int) ([]models.User, error) {
	return s.searchFn(ctx, query, limit)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Username: "user"}, nil
		},
		getWithPasswordFn: func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id}, nil },
		getByEmailFn:      func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		getByUsernameFn:   func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		createFn:          func(_ context.Context, _ *models.User) error { return nil },
		updateProfileFn: func(_ context.Context, id uint, _ repository.ProfileUpdate) (*models.User, error) {
			return &models.User{ID: id}, nil
		},
		deleteFn: func(_ context.Context, _ uint) error { return nil },
		searchFn: func(_ context.Context, _ string, _ int) ([]models.User, error) { return nil, nil },
	}
}

// followRepoStub is a stub for repository.FollowRepository.
type followRepoStub struct {
	followFn       func(context.Context, uint, uint) (bool, error)
	unfollowFn     func(context.Context, uint, uint) (bool, error)
	existsFn       func(context.Context, uint, uint) (bool, error)
	followingIDsFn func(context.Context, uint) ([]uint, error)
	followingFn    func(context.Context, uint) ([]models.User, error)
	followersFn    func(context.Context, uint) ([]models.User, error)
	countsFn       func(context.Context, uint) (repository.FollowCounts, error)
}

func (s *followRepoStub) Follow(ctx context.Context, a, b uint) (bool, error) {
	return s.followFn(ctx, a, b)
}
func (s *followRepoStub) Unfollow(ctx context.Context, a, b uint) (bool, error) {
	return s.unfollowFn(ctx, a, b)
}
func (s *followRepoStub) Exists(ctx context.Context, a, b uint) (bool, error) {
	return s.existsFn(ctx, a, b)
}
func (s *followRepoStub) FollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.followingIDsFn(ctx, userID)
}
func (s *followRepoStub) Following(ctx context.Context, userID uint) ([]models.User, error) {
	return s.followingFn(ctx, userID)
}
func (s *followRepoStub) Followers(ctx context.Context, userID uint) ([]models.User, error) {
	return s.followersFn(ctx, userID)
}
func (s *followRepoStub) Counts(ctx context.Context, userID uint) (repository.FollowCounts, error) {
	return s.countsFn(ctx, userID)
}

func noopFollowRepo() *followRepoStub {
	return &followRepoStub{
		followFn:       func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		unfollowFn:     func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		existsFn:       func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		followingIDsFn: func(_ context.Context, _ uint) ([]uint, error) { return nil, nil },
		followingFn:    func(_ context.Context, _ uint) ([]models.User, error) { return nil, nil },
		followersFn:    func(_ context.Context, _ uint) ([]models.User, error) { return nil, nil },
		countsFn: func(_ context.Context, _ uint) (repository.FollowCounts, error) {
			return repository.FollowCounts{}, nil
		},
	}
}

// likeRepoStub is a stub for repository.LikeRepository.
type likeRepoStub struct {
	toggleFn          func(context.Context, uint, uint) (bool, error)
	existsFn          func(context.Context, uint, uint) (bool, error)
	countByUserFn     func(context.Context, uint) (int64, error)
	countForMessageFn func(context.Context, uint) (int64, error)
	likedIDsFn        func(context.Context, uint) ([]uint, error)
	likedMessagesFn   func(context.Context, uint, int) ([]models.Message, error)
}

func (s *likeRepoStub) Toggle(ctx context.Context, userID, messageID uint) (bool, error) {
	return s.toggleFn(ctx, userID, messageID)
}
func (s *likeRepoStub) Exists(ctx context.Context, userID, messageID uint) (bool, error) {
	return s.existsFn(ctx, userID, messageID)
}
func (s *likeRepoStub) CountByUser(ctx context.Context, userID uint) (int64, error) {
	return s.countByUserFn(ctx, userID)
}
func (s *likeRepoStub) CountForMessage(ctx context.Context, messageID uint) (int64, error) {
	return s.countForMessageFn(ctx, messageID)
}
func (s *likeRepoStub) LikedMessageIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.likedIDsFn(ctx, userID)
}
func (s *likeRepoStub) LikedMessages(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	return s.likedMessagesFn(ctx, userID, limit)
}

func noopLikeRepo() *likeRepoStub {
	return &likeRepoStub{
		toggleFn:          func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		existsFn:          func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		countByUserFn:     func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		countForMessageFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		likedIDsFn:        func(_ context.Context, _ uint) ([]uint, error) { return nil, nil },
		likedMessagesFn:   func(_ context.Context, _ uint, _ int) ([]models.Message, error) { return nil, nil },
	}
}

// messageRepoStub is a stub for repository.MessageRepository.
type messageRepoStub struct {
	createFn          func(context.Context, *models.Message) error
	getByIDFn         func(context.Context, uint) (*models.Message, error)
	deleteFn          func(context.Context, uint, uint) error
	recentByAuthorsFn func(context.Context, []uint, int) ([]models.Message, error)
	recentByUserFn    func(context.Context, uint, int) ([]models.Message, error)
}

func (s *messageRepoStub) Create(ctx context.Context, msg *models.Message) error {
	return s.createFn(ctx, msg)
}
func (s *messageRepoStub) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	return s.getByIDFn(ctx, id)
}
func (s *messageRepoStub) Delete(ctx context.Context, id, ownerID uint) error {
	return s.deleteFn(ctx, id, ownerID)
}
func (s *messageRepoStub) RecentByAuthors(ctx context.Context, ids []uint, limit int) ([]models.Message, error) {
	return s.recentByAuthorsFn(ctx, ids, limit)
}
func (s *messageRepoStub) RecentByUser(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	return s.recentByUserFn(ctx, userID, limit)
}

func noopMessageRepo() *messageRepoStub {
	return &messageRepoStub{
		createFn: func(_ context.Context, _ *models.Message) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Message, error) {
			return &models.Message{ID: id}, nil
		},
		deleteFn:          func(_ context.Context, _, _ uint) error { return nil },
		recentByAuthorsFn: func(_ context.Context, _ []uint, _ int) ([]models.Message, error) { return nil, nil },
		recentByUserFn:    func(_ context.Context, _ uint, _ int) ([]models.Message, error) { return nil, nil },
	}
}

// conversationRepoStub is a stub for repository.ConversationRepository.
type conversationRepoStub struct {
	findOrCreateFn func(context.Context, uint, uint) (*models.Conversation, bool, error)
	findByPairFn   func(context.Context, uint, uint) (*models.Conversation, error)
	getByIDFn      func(context.Context, uint) (*models.Conversation, error)
	listForUserFn  func(context.Context, uint) ([]models.Conversation, error)
	addDMFn        func(context.Context, *models.DirectMessage) ([]models.DirectMessage, error)
	listDMsFn      func(context.Context, uint) ([]models.DirectMessage, error)
}

func (s *conversationRepoStub) FindOrCreate(ctx context.Context, a, b uint) (*models.Conversation, bool, error) {
	return s.findOrCreateFn(ctx, a, b)
}
func (s *conversationRepoStub) FindByPair(ctx context.Context, a, b uint) (*models.Conversation, error) {
	return s.findByPairFn(ctx, a, b)
}
func (s *conversationRepoStub) GetByID(ctx context.Context, id uint) (*models.Conversation, error) {
	return s.getByIDFn(ctx, id)
}
func (s *conversationRepoStub) ListForUser(ctx context.Context, userID uint) ([]models.Conversation, error) {
	return s.listForUserFn(ctx, userID)
}
func (s *conversationRepoStub) AddDM(ctx context.Context, dm *models.DirectMessage) ([]models.DirectMessage, error) {
	return s.addDMFn(ctx, dm)
}
func (s *conversationRepoStub) ListDMs(ctx context.Context, convID uint) ([]models.DirectMessage, error) {
	return s.listDMsFn(ctx, convID)
}

func noopConversationRepo() *conversationRepoStub {
	return &conversationRepoStub{
		findOrCreateFn: func(_ context.Context, a, b uint) (*models.Conversation, bool, error) {
			lo, hi := models.NormalizePair(a, b)
			return &models.Conversation{ID: 1, User1ID: lo, User2ID: hi}, true, nil
		},
		findByPairFn: func(_ context.Context, _, _ uint) (*models.Conversation, error) { return nil, nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Conversation, error) {
			return nil, models.NewNotFoundError("Conversation", id)
		},
		listForUserFn: func(_ context.Context, _ uint) ([]models.Conversation, error) { return nil, nil },
		addDMFn: func(_ context.Context, dm *models.DirectMessage) ([]models.DirectMessage, error) {
			return []models.DirectMessage{*dm}, nil
		},
		listDMsFn: func(_ context.Context, _ uint) ([]models.DirectMessage, error) { return nil, nil },
	}
}

type published struct {
	userID         uint
	conversationID uint
	payload        string
}

// publisherStub records every publish call.
type publisherStub struct {
	mu    sync.Mutex
	calls []published
	err   error
}

func (p *publisherStub) PublishUser(_ context.Context, userID uint, payload string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, published{userID: userID, payload: payload})
	return p.err
}

func (p *publisherStub) PublishConversation(_ context.Context, convID uint, payload string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, published{conversationID: convID, payload: payload})
	return p.err
}

func (p *publisherStub) snapshot() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.calls...)
}

// assertAppErrorCode asserts that err is an AppError carrying code.
func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}
