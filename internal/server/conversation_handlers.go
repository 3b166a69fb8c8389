package server

import (
	"time"

	"warbler/internal/models"

	"github.com/gofiber/fiber/v2"
)

type dmRequest struct {
	Text string `json:"text"`
}

// conversationView is a conversation as seen by one of its participants.
type conversationView struct {
	ID        uint                `json:"id"`
	With      *models.UserSummary `json:"with,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

func viewConversation(conv *models.Conversation, viewerID uint) conversationView {
	v := conversationView{ID: conv.ID, CreatedAt: conv.CreatedAt}
	other := conv.User1
	if conv.OtherParticipant(viewerID) == conv.User2ID {
		other = conv.User2
	}
	if other != nil {
		sum := other.Summary()
		v.With = &sum
	}
	return v
}

// ListConversations handles GET /conversations
// @Summary My conversations
// @Tags conversations
// @Produce json
// @Success 200 {array} conversationView
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /conversations [get]
func (s *Server) ListConversations(c *fiber.Ctx) error {
	userID := currentUserID(c)
	convs, err := s.convSvc.ListForUser(c.UserContext(), userID)
	if err != nil {
		return mapServiceError(c, err)
	}
	out := make([]conversationView, 0, len(convs))
	for i := range convs {
		out = append(out, viewConversation(&convs[i], userID))
	}
	return c.JSON(out)
}

// AddConversation handles POST /conversations/add/:userID
// @Summary Open a conversation
// @Description Returns the single conversation between the signed-in user and
// @Description userID, creating it on first contact (201) or returning it (200).
// @Tags conversations
// @Produce json
// @Param userID path int true "Other participant"
// @Success 200 {object} conversationView
// @Success 201 {object} conversationView
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /conversations/add/{userID} [post]
func (s *Server) AddConversation(c *fiber.Ctx) error {
	otherID, err := s.parseID(c, "userID")
	if err != nil {
		return nil
	}
	userID := currentUserID(c)
	conv, created, err := s.convSvc.FindOrCreate(c.UserContext(), userID, otherID)
	if err != nil {
		return mapServiceError(c, err)
	}
	// FindOrCreate does not preload participants.
	if conv.User1 == nil || conv.User2 == nil {
		if loaded, lerr := s.convSvc.Get(c.UserContext(), conv.ID); lerr == nil {
			conv = loaded
		}
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(viewConversation(conv, userID))
}

// ShowConversation handles GET /conversations/:id
// @Summary Conversation transcript
// @Description Transcript entries are [text, author_id] pairs in the order they were sent
// @Tags conversations
// @Produce json
// @Param id path int true "Conversation ID"
// @Success 200 {object} object{conversation=conversationView,transcript=[][]any,active_users=[]int}
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /conversations/{id} [get]
func (s *Server) ShowConversation(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID := currentUserID(c)
	conv, dms, err := s.convSvc.Transcript(c.UserContext(), id, userID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"conversation": viewConversation(conv, userID),
		"transcript":   models.Transcript(dms),
		"active_users": s.convHub.ActiveUsers(conv.ID),
	})
}

// AddDM handles POST /conversations/:id/dm/add
// @Summary Send a direct message
// @Description Appends a DM and returns the full transcript as [text, author_id] pairs
// @Tags conversations
// @Accept json
// @Produce json
// @Param id path int true "Conversation ID"
// @Param request body dmRequest true "DM text"
// @Success 200 {array} models.TranscriptEntry
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /conversations/{id}/dm/add [post]
func (s *Server) AddDM(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req dmRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	dms, err := s.convSvc.AddDM(c.UserContext(), id, currentUserID(c), req.Text)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(models.Transcript(dms))
}
