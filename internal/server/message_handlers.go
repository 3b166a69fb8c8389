package server

import (
	"warbler/internal/models"

	"github.com/gofiber/fiber/v2"
)

type messageRequest struct {
	Text string `json:"text"`
}

// Homepage handles GET /
// @Summary Home timeline
// @Description With a session: up to 100 newest messages by the viewer and the
// @Description users they follow, plus the viewer's liked message IDs.
// @Description Without a session: a landing payload pointing at signup and login.
// @Tags messages
// @Produce json
// @Success 200 {object} object{messages=[]models.Message,liked_ids=[]int}
// @Router / [get]
func (s *Server) Homepage(c *fiber.Ctx) error {
	viewerID := currentUserID(c)
	if viewerID == 0 {
		return c.JSON(fiber.Map{
			"message": "What's happening?",
			"signup":  "/signup",
			"login":   "/login",
		})
	}

	msgs, err := s.messageSvc.Feed(c.UserContext(), viewerID)
	if err != nil {
		return mapServiceError(c, err)
	}
	liked, err := s.socialSvc.LikedMessageIDs(c.UserContext(), viewerID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"messages":  msgs,
		"liked_ids": liked,
	})
}

// AddMessage handles POST /messages/new
// @Summary Post a message
// @Tags messages
// @Accept json
// @Produce json
// @Param request body messageRequest true "Message text, at most 140 characters"
// @Success 201 {object} models.Message
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /messages/new [post]
func (s *Server) AddMessage(c *fiber.Ctx) error {
	var req messageRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	msg, err := s.messageSvc.Post(c.UserContext(), currentUserID(c), req.Text)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// ShowMessage handles GET /messages/:id
// @Summary Show a message
// @Tags messages
// @Produce json
// @Param id path int true "Message ID"
// @Success 200 {object} models.Message
// @Failure 404 {object} models.ErrorResponse
// @Router /messages/{id} [get]
func (s *Server) ShowMessage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	msg, err := s.messageSvc.Get(c.UserContext(), id)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(msg)
}

// DeleteMessage handles POST /messages/:id/delete
// @Summary Delete a message
// @Description Only the author may delete a message
// @Tags messages
// @Produce json
// @Param id path int true "Message ID"
// @Success 200 {object} object{message=string}
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /messages/{id}/delete [post]
func (s *Server) DeleteMessage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.messageSvc.Delete(c.UserContext(), id, currentUserID(c)); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Message deleted"})
}

// ToggleLike handles POST /messages/:id/like
// @Summary Like or unlike a message
// @Tags messages
// @Produce json
// @Param id path int true "Message ID"
// @Success 200 {object} object{liked=bool,likes=int}
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /messages/{id}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID := currentUserID(c)
	liked, err := s.socialSvc.ToggleLike(c.UserContext(), userID, id)
	if err != nil {
		return mapServiceError(c, err)
	}
	count, err := s.socialSvc.LikeCount(c.UserContext(), userID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"liked": liked,
		"likes": count,
	})
}
