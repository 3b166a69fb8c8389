package service

import (
	"context"
	"strings"

	"warbler/internal/models"
	"warbler/internal/repository"
	"warbler/internal/validation"
)

// UserService serves profile pages and account maintenance.
type UserService struct {
	userRepo    repository.UserRepository
	followRepo  repository.FollowRepository
	likeRepo    repository.LikeRepository
	messageRepo repository.MessageRepository
	auth        *AuthService
}

// NewUserService returns a UserService. auth re-checks the password on
// profile edits.
func NewUserService(
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	likeRepo repository.LikeRepository,
	messageRepo repository.MessageRepository,
	auth *AuthService,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		followRepo:  followRepo,
		likeRepo:    likeRepo,
		messageRepo: messageRepo,
		auth:        auth,
	}
}

// Profile is everything the profile page shows.
type Profile struct {
	User        *models.User            `json:"user"`
	Messages    []models.Message        `json:"messages"`
	LikeCount   int64                   `json:"like_count"`
	Counts      repository.FollowCounts `json:"counts"`
	LikedIDs    []uint                  `json:"liked_ids"`
	IsFollowing bool                    `json:"is_following"`
}

// ProfileInput is the edit-profile form. Password is the current password.
type ProfileInput struct {
	Password       string
	Username       string
	Email          string
	ImageURL       string
	HeaderImageURL string
	Bio            string
	Location       string
}

// Get returns the user or a not-found error.
func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// Search lists users whose username contains q. Empty q lists everyone.
func (s *UserService) Search(ctx context.Context, q string) ([]models.User, error) {
	return s.userRepo.Search(ctx, q, repository.MaxRows)
}

// Profile assembles userID's page. viewerID 0 means anonymous, in which case
// LikedIDs is empty and IsFollowing is false.
func (s *UserService) Profile(ctx context.Context, userID, viewerID uint) (*Profile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messageRepo.RecentByUser(ctx, userID, repository.MaxRows)
	if err != nil {
		return nil, err
	}
	likeCount, err := s.likeRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	counts, err := s.followRepo.Counts(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := &Profile{
		User:      user,
		Messages:  msgs,
		LikeCount: likeCount,
		Counts:    counts,
		LikedIDs:  []uint{},
	}
	if viewerID == 0 {
		return p, nil
	}
	if p.LikedIDs, err = s.likeRepo.LikedMessageIDs(ctx, viewerID); err != nil {
		return nil, err
	}
	if p.IsFollowing, err = s.followRepo.Exists(ctx, viewerID, userID); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProfile re-authenticates with the current password and then writes
// the editable columns. Blank image fields fall back to the defaults and a
// blank username or email keeps the current value.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (*models.User, error) {
	current, err := s.auth.VerifyPassword(ctx, userID, in.Password)
	if err != nil {
		return nil, err
	}

	fields := repository.ProfileUpdate{
		Username:       strings.TrimSpace(in.Username),
		Email:          strings.TrimSpace(in.Email),
		ImageURL:       strings.TrimSpace(in.ImageURL),
		HeaderImageURL: strings.TrimSpace(in.HeaderImageURL),
		Bio:            strings.TrimSpace(in.Bio),
		Location:       strings.TrimSpace(in.Location),
	}
	if fields.Username == "" {
		fields.Username = current.Username
	}
	if fields.Email == "" {
		fields.Email = current.Email
	}

	checks := []error{
		validation.ValidateUsername(fields.Username),
		validation.ValidateEmail(fields.Email),
		validation.ValidateImageURL(fields.ImageURL),
		validation.ValidateImageURL(fields.HeaderImageURL),
		validation.ValidateBio(fields.Bio),
		validation.ValidateLocation(fields.Location),
	}
	for _, err := range checks {
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}

	if fields.ImageURL == "" {
		fields.ImageURL = models.DefaultImageURL
	}
	if fields.HeaderImageURL == "" {
		fields.HeaderImageURL = models.DefaultHeaderImageURL
	}
	return s.userRepo.UpdateProfile(ctx, userID, fields)
}

// DeleteAccount removes the user with every message, like, follow edge and
// conversation that references it.
func (s *UserService) DeleteAccount(ctx context.Context, userID uint) error {
	return s.userRepo.Delete(ctx, userID)
}
