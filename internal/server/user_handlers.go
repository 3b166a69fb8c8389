package server

import (
	"log/slog"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/service"

	"github.com/gofiber/fiber/v2"
)

type profileRequest struct {
	Password       string `json:"password"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	ImageURL       string `json:"image_url"`
	HeaderImageURL string `json:"header_image_url"`
	Bio            string `json:"bio"`
	Location       string `json:"location"`
}

func summaries(users []models.User) []models.UserSummary {
	out := make([]models.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, u.Summary())
	}
	return out
}

// ListUsers handles GET /users
// @Summary List users
// @Description Lists users, filtered by a username substring when q is given
// @Tags users
// @Produce json
// @Param q query string false "Username search"
// @Success 200 {array} models.UserSummary
// @Router /users [get]
func (s *Server) ListUsers(c *fiber.Ctx) error {
	users, err := s.userSvc.Search(c.UserContext(), c.Query("q"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(summaries(users))
}

// ShowUser handles GET /users/:id
// @Summary User profile
// @Description Profile with the user's recent messages. With a session the
// @Description response also carries the viewer's liked message IDs.
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} service.Profile
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) ShowUser(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	profile, err := s.userSvc.Profile(c.UserContext(), userID, currentUserID(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(profile)
}

// ShowFollowing handles GET /users/:id/following
// @Summary Followed users
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {array} models.UserSummary
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/{id}/following [get]
func (s *Server) ShowFollowing(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	users, err := s.socialSvc.Following(c.UserContext(), userID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(summaries(users))
}

// ShowFollowers handles GET /users/:id/followers
// @Summary Followers
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {array} models.UserSummary
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/{id}/followers [get]
func (s *Server) ShowFollowers(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	users, err := s.socialSvc.Followers(c.UserContext(), userID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(summaries(users))
}

// ShowLikes handles GET /users/:id/likes
// @Summary Liked messages
// @Description Messages the user has liked, newest first
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{user=models.UserSummary,messages=[]models.Message}
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/likes [get]
func (s *Server) ShowLikes(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.userSvc.Get(c.UserContext(), userID)
	if err != nil {
		return mapServiceError(c, err)
	}
	msgs, err := s.socialSvc.LikedMessages(c.UserContext(), userID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"user":     user.Summary(),
		"messages": msgs,
	})
}

// Follow handles POST /users/follow/:id
// @Summary Follow a user
// @Tags users
// @Produce json
// @Param id path int true "User to follow"
// @Success 200 {object} object{following=bool}
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/follow/{id} [post]
func (s *Server) Follow(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.socialSvc.Follow(c.UserContext(), currentUserID(c), targetID); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"following": true})
}

// StopFollowing handles POST /users/stop-following/:id
// @Summary Unfollow a user
// @Tags users
// @Produce json
// @Param id path int true "User to unfollow"
// @Success 200 {object} object{following=bool}
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/stop-following/{id} [post]
func (s *Server) StopFollowing(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.socialSvc.Unfollow(c.UserContext(), currentUserID(c), targetID); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"following": false})
}

// UpdateProfile handles POST /users/profile
// @Summary Edit profile
// @Description Updates the signed-in user's profile after re-checking the password
// @Tags users
// @Accept json
// @Produce json
// @Param request body profileRequest true "Profile fields and current password"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/profile [post]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req profileRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userSvc.UpdateProfile(c.UserContext(), currentUserID(c), service.ProfileInput{
		Password:       req.Password,
		Username:       req.Username,
		Email:          req.Email,
		ImageURL:       req.ImageURL,
		HeaderImageURL: req.HeaderImageURL,
		Bio:            req.Bio,
		Location:       req.Location,
	})
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(user)
}

// DeleteUser handles POST /users/delete
// @Summary Delete account
// @Description Deletes the signed-in user and everything they own, then ends the session
// @Tags users
// @Produce json
// @Success 200 {object} object{message=string}
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/delete [post]
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	userID := currentUserID(c)
	if err := s.userSvc.DeleteAccount(c.UserContext(), userID); err != nil {
		return mapServiceError(c, err)
	}

	if token := middleware.TokenFromRequest(c, s.config.SessionCookieName); token != "" {
		if err := s.sessions.RevokeToken(c.UserContext(), token); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "failed to revoke session of deleted user",
				slog.Any("user_id", userID),
				slog.String("error", err.Error()))
		}
	}
	s.clearSessionCookie(c)
	return c.JSON(fiber.Map{"message": "Account deleted"})
}
