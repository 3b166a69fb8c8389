package service

import (
	"context"
	"log/slog"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/notifications"
	"warbler/internal/observability"
	"warbler/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// SocialService manages follow edges and likes.
type SocialService struct {
	userRepo    repository.UserRepository
	followRepo  repository.FollowRepository
	likeRepo    repository.LikeRepository
	messageRepo repository.MessageRepository
	publisher   Publisher
	notifyOn    func(targetID uint) bool
}

// NewSocialService wires the graph repositories. publisher may be nil;
// notifyOn decides per target whether a follow event is published (nil = always).
func NewSocialService(
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	likeRepo repository.LikeRepository,
	messageRepo repository.MessageRepository,
	publisher Publisher,
	notifyOn func(targetID uint) bool,
) *SocialService {
	return &SocialService{
		userRepo:    userRepo,
		followRepo:  followRepo,
		likeRepo:    likeRepo,
		messageRepo: messageRepo,
		publisher:   publisher,
		notifyOn:    notifyOn,
	}
}

// Follow makes actor follow target. Following twice is a no-op.
func (s *SocialService) Follow(ctx context.Context, actorID, targetID uint) error {
	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	created, err := s.followRepo.Follow(ctx, actorID, targetID)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}
	observability.FollowEvents.WithLabelValues("follow").Inc()
	s.notifyFollow(ctx, actorID, target)
	return nil
}

func (s *SocialService) notifyFollow(ctx context.Context, actorID uint, target *models.User) {
	if s.publisher == nil || actorID == target.ID {
		return
	}
	if s.notifyOn != nil && !s.notifyOn(target.ID) {
		return
	}
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return
	}
	payload, err := notifications.Event{
		Type:    notifications.EventFollow,
		UserID:  target.ID,
		Payload: notifications.FollowPayload{FollowerID: actor.ID, Follower: actor.Username},
	}.Encode()
	if err == nil {
		err = s.publisher.PublishUser(ctx, target.ID, payload)
	}
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish follow event",
			slog.Any("target_id", target.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Unfollow removes the edge if present.
func (s *SocialService) Unfollow(ctx context.Context, actorID, targetID uint) error {
	removed, err := s.followRepo.Unfollow(ctx, actorID, targetID)
	if err != nil {
		return err
	}
	if removed {
		observability.FollowEvents.WithLabelValues("unfollow").Inc()
	}
	return nil
}

// IsFollowing reports whether a follows b.
func (s *SocialService) IsFollowing(ctx context.Context, a, b uint) (bool, error) {
	return s.followRepo.Exists(ctx, a, b)
}

// IsFollowedBy reports whether b follows a.
func (s *SocialService) IsFollowedBy(ctx context.Context, a, b uint) (bool, error) {
	return s.followRepo.Exists(ctx, b, a)
}

// Following lists the users userID follows.
func (s *SocialService) Following(ctx context.Context, userID uint) ([]models.User, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.followRepo.Following(ctx, userID)
}

// Followers lists the users following userID.
func (s *SocialService) Followers(ctx context.Context, userID uint) ([]models.User, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.followRepo.Followers(ctx, userID)
}

// ToggleLike flips actor's like on the message and returns the new state.
// A concurrent toggle that inserted first is absorbed: the result is liked.
func (s *SocialService) ToggleLike(ctx context.Context, actorID, messageID uint) (liked bool, err error) {
	ctx, span := observability.StartSpan(ctx, "SocialService", "ToggleLike",
		attribute.Int64("user.id", int64(actorID)),
		attribute.Int64("message.id", int64(messageID)),
	)
	defer func() { span.End(err) }()

	if _, err = s.messageRepo.GetByID(ctx, messageID); err != nil {
		return false, err
	}
	liked, err = s.likeRepo.Toggle(ctx, actorID, messageID)
	if err != nil {
		return false, err
	}
	state := "unliked"
	if liked {
		state = "liked"
	}
	observability.LikeToggles.WithLabelValues(state).Inc()
	span.AddAttributes(attribute.Bool("liked", liked))
	return liked, nil
}

// LikeCount is the number of messages userID has liked.
func (s *SocialService) LikeCount(ctx context.Context, userID uint) (int64, error) {
	return s.likeRepo.CountByUser(ctx, userID)
}

// LikedMessageIDs returns the IDs of messages userID has liked.
func (s *SocialService) LikedMessageIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.likeRepo.LikedMessageIDs(ctx, userID)
}

// LikedMessages returns up to 100 messages userID has liked, newest first.
func (s *SocialService) LikedMessages(ctx context.Context, userID uint) ([]models.Message, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.likeRepo.LikedMessages(ctx, userID, repository.MaxRows)
}
