package service

import (
	"context"
	"log/slog"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/notifications"
	"warbler/internal/observability"
	"warbler/internal/repository"
	"warbler/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// ConversationService owns two-party conversations and their DMs.
type ConversationService struct {
	convRepo  repository.ConversationRepository
	userRepo  repository.UserRepository
	publisher Publisher
}

// NewConversationService returns a ConversationService. publisher may be nil.
func NewConversationService(
	convRepo repository.ConversationRepository,
	userRepo repository.UserRepository,
	publisher Publisher,
) *ConversationService {
	return &ConversationService{convRepo: convRepo, userRepo: userRepo, publisher: publisher}
}

// FindOrCreate returns the single conversation between actor and other,
// creating it on first contact. Argument order does not matter.
func (s *ConversationService) FindOrCreate(ctx context.Context, actorID, otherID uint) (conv *models.Conversation, created bool, err error) {
	ctx, span := observability.StartSpan(ctx, "ConversationService", "FindOrCreate",
		attribute.Int64("user.id", int64(actorID)),
		attribute.Int64("other.id", int64(otherID)),
	)
	defer func() { span.End(err) }()

	if _, err = s.userRepo.GetByID(ctx, otherID); err != nil {
		return nil, false, err
	}
	conv, created, err = s.convRepo.FindOrCreate(ctx, actorID, otherID)
	if err != nil {
		return nil, false, err
	}
	if created {
		observability.ConversationsCreated.Inc()
	}
	span.AddAttributes(attribute.Bool("created", created))
	return conv, created, nil
}

// ListForUser returns every conversation userID takes part in.
func (s *ConversationService) ListForUser(ctx context.Context, userID uint) ([]models.Conversation, error) {
	return s.convRepo.ListForUser(ctx, userID)
}

// Get returns the conversation or a not-found error.
func (s *ConversationService) Get(ctx context.Context, id uint) (*models.Conversation, error) {
	return s.convRepo.GetByID(ctx, id)
}

// AuthorizeParticipant reports whether userID is one of conv's two members.
func (s *ConversationService) AuthorizeParticipant(conv *models.Conversation, userID uint) bool {
	return conv.HasParticipant(userID)
}

// GetForParticipant loads the conversation and rejects non-members with a
// forbidden error.
func (s *ConversationService) GetForParticipant(ctx context.Context, id, userID uint) (*models.Conversation, error) {
	conv, err := s.convRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.AuthorizeParticipant(conv, userID) {
		return nil, models.NewForbiddenError("You are not a participant in this conversation")
	}
	return conv, nil
}

// Transcript returns the conversation and its DMs in insertion order.
func (s *ConversationService) Transcript(ctx context.Context, id, viewerID uint) (*models.Conversation, []models.DirectMessage, error) {
	conv, err := s.GetForParticipant(ctx, id, viewerID)
	if err != nil {
		return nil, nil, err
	}
	dms, err := s.convRepo.ListDMs(ctx, conv.ID)
	if err != nil {
		return nil, nil, err
	}
	return conv, dms, nil
}

// AddDM appends a DM from authorID and returns the full transcript.
// Participation is checked before anything is written.
func (s *ConversationService) AddDM(ctx context.Context, conversationID, authorID uint, text string) (dms []models.DirectMessage, err error) {
	ctx, span := observability.StartSpan(ctx, "ConversationService", "AddDM",
		attribute.Int64("conversation.id", int64(conversationID)),
		attribute.Int64("user.id", int64(authorID)),
	)
	defer func() { span.End(err) }()

	conv, err := s.GetForParticipant(ctx, conversationID, authorID)
	if err != nil {
		return nil, err
	}
	if err = validation.ValidateDMText(text); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	dm := &models.DirectMessage{ConversationID: conv.ID, AuthorID: authorID, Text: text}
	dms, err = s.convRepo.AddDM(ctx, dm)
	if err != nil {
		return nil, err
	}
	observability.DirectMessagesSent.Inc()
	s.publishDM(ctx, conv, dm)
	return dms, nil
}

func (s *ConversationService) publishDM(ctx context.Context, conv *models.Conversation, dm *models.DirectMessage) {
	if s.publisher == nil {
		return
	}
	author := ""
	for _, u := range []*models.User{conv.User1, conv.User2} {
		if u != nil && u.ID == dm.AuthorID {
			author = u.Username
		}
	}
	payload, err := notifications.Event{
		Type:           notifications.EventDirectMessage,
		ConversationID: conv.ID,
		UserID:         dm.AuthorID,
		Payload: notifications.DirectMessagePayload{
			ID:       dm.ID,
			Text:     dm.Text,
			AuthorID: dm.AuthorID,
			Author:   author,
			SentAt:   dm.CreatedAt,
		},
	}.Encode()
	if err == nil {
		err = s.publisher.PublishConversation(ctx, conv.ID, payload)
	}
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish direct message",
			slog.Any("conversation_id", conv.ID),
			slog.String("error", err.Error()),
		)
	}
}
