package service

import (
	"context"

	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"
	"warbler/internal/validation"
)

// MessageService owns public messages and timelines.
type MessageService struct {
	messageRepo repository.MessageRepository
	followRepo  repository.FollowRepository
	userRepo    repository.UserRepository
}

// NewMessageService returns a MessageService.
func NewMessageService(
	messageRepo repository.MessageRepository,
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
) *MessageService {
	return &MessageService{messageRepo: messageRepo, followRepo: followRepo, userRepo: userRepo}
}

// Post stores a new message by authorID.
func (s *MessageService) Post(ctx context.Context, authorID uint, text string) (*models.Message, error) {
	if err := validation.ValidateMessageText(text); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if _, err := s.userRepo.GetByID(ctx, authorID); err != nil {
		return nil, err
	}
	msg := &models.Message{UserID: authorID, Text: text}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}
	observability.MessagesPosted.Inc()
	return msg, nil
}

// Get returns a message with its author.
func (s *MessageService) Get(ctx context.Context, id uint) (*models.Message, error) {
	return s.messageRepo.GetByID(ctx, id)
}

// Delete removes the message if requesterID owns it.
func (s *MessageService) Delete(ctx context.Context, id, requesterID uint) error {
	return s.messageRepo.Delete(ctx, id, requesterID)
}

// RecentByAuthors returns the newest messages written by any of authorIDs.
func (s *MessageService) RecentByAuthors(ctx context.Context, authorIDs []uint, limit int) ([]models.Message, error) {
	return s.messageRepo.RecentByAuthors(ctx, authorIDs, limit)
}

// RecentByUser returns userID's newest messages.
func (s *MessageService) RecentByUser(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	return s.messageRepo.RecentByUser(ctx, userID, limit)
}

// Feed is the home timeline: messages by the users viewerID follows, newest
// first, capped at 100. The viewer's own messages are not included.
func (s *MessageService) Feed(ctx context.Context, viewerID uint) ([]models.Message, error) {
	ids, err := s.followRepo.FollowingIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return s.messageRepo.RecentByAuthors(ctx, ids, repository.MaxRows)
}
