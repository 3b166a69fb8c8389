package service

import (
	"context"
	"strings"

	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"
	"warbler/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// AuthService owns signup and password verification.
type AuthService struct {
	userRepo repository.UserRepository
	cost     int
}

// SignupInput is the signup form.
type SignupInput struct {
	Username string
	Password string
	Email    string
	ImageURL string
}

// NewAuthService returns an AuthService hashing with bcrypt.DefaultCost.
func NewAuthService(userRepo repository.UserRepository) *AuthService {
	return &AuthService{userRepo: userRepo, cost: bcrypt.DefaultCost}
}

// Signup validates the form, hashes the password and stores the user.
// A taken username or email is a conflict error.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.ImageURL = strings.TrimSpace(in.ImageURL)

	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateImageURL(in.ImageURL); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	imageURL := in.ImageURL
	if imageURL == "" {
		imageURL = models.DefaultImageURL
	}
	user := &models.User{
		Username:       in.Username,
		Email:          in.Email,
		Password:       string(hash),
		ImageURL:       imageURL,
		HeaderImageURL: models.DefaultHeaderImageURL,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	observability.SignupsTotal.Inc()
	return user, nil
}

// Authenticate returns the user when username and password match. An unknown
// username and a wrong password both yield (nil, nil).
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil || !checkPassword(user.Password, password) {
		observability.LoginAttempts.WithLabelValues("failure").Inc()
		return nil, nil
	}
	observability.LoginAttempts.WithLabelValues("success").Inc()
	return user, nil
}

// VerifyPassword re-authenticates a signed-in user. A mismatch is an
// unauthorized error.
func (s *AuthService) VerifyPassword(ctx context.Context, userID uint, password string) (*models.User, error) {
	user, err := s.userRepo.GetWithPassword(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !checkPassword(user.Password, password) {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	return user, nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
