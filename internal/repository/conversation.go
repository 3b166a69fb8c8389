package repository

import (
	"context"
	"errors"
	"fmt"

	"warbler/internal/models"
	"warbler/internal/observability"

	"gorm.io/gorm"
)

// ConversationRepository stores two-party conversations and their direct messages.
type ConversationRepository interface {
	FindOrCreate(ctx context.Context, userA, userB uint) (*models.Conversation, bool, error)
	FindByPair(ctx context.Context, userA, userB uint) (*models.Conversation, error)
	GetByID(ctx context.Context, id uint) (*models.Conversation, error)
	ListForUser(ctx context.Context, userID uint) ([]models.Conversation, error)
	AddDM(ctx context.Context, dm *models.DirectMessage) ([]models.DirectMessage, error)
	ListDMs(ctx context.Context, conversationID uint) ([]models.DirectMessage, error)
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func findByPair(ctx context.Context, db *gorm.DB, lo, hi uint) (*models.Conversation, error) {
	var conv models.Conversation
	res := db.WithContext(ctx).Where("user1_id = ? AND user2_id = ?", lo, hi).Limit(1).Find(&conv)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &conv, nil
}

// FindOrCreate returns the conversation for the unordered pair, creating it on
// first contact. The bool reports whether this call created it. Losing an
// insert race to a concurrent caller rolls back and returns the winner's row.
func (r *conversationRepository) FindOrCreate(ctx context.Context, userA, userB uint) (*models.Conversation, bool, error) {
	lo, hi := models.NormalizePair(userA, userB)

	existing, err := findByPair(ctx, r.db, lo, hi)
	if err != nil {
		return nil, false, models.NewInternalError(err)
	}
	if existing != nil {
		return existing, false, nil
	}

	conv := &models.Conversation{User1ID: lo, User2ID: hi}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(conv).Error
	})
	if err == nil {
		return conv, true, nil
	}
	if !isUniqueConstraintError(err) {
		return nil, false, models.NewInternalError(err)
	}
	observability.ConstraintRaces.WithLabelValues("conversation").Inc()

	winner, err := findByPair(ctx, r.db, lo, hi)
	if err != nil {
		return nil, false, models.NewInternalError(err)
	}
	if winner == nil {
		return nil, false, models.NewInternalError(fmt.Errorf("conversation (%d, %d) missing after unique violation", lo, hi))
	}
	return winner, false, nil
}

// FindByPair returns nil, nil when the pair has no conversation yet.
func (r *conversationRepository) FindByPair(ctx context.Context, userA, userB uint) (*models.Conversation, error) {
	lo, hi := models.NormalizePair(userA, userB)
	conv, err := findByPair(ctx, readDB(r.db), lo, hi)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return conv, nil
}

func (r *conversationRepository) GetByID(ctx context.Context, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.db.WithContext(ctx).Preload("User1").Preload("User2").First(&conv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Conversation", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &conv, nil
}

// ListForUser returns every conversation the user takes part in, oldest first.
// A self-conversation matches both predicates but is still a single row.
func (r *conversationRepository) ListForUser(ctx context.Context, userID uint) ([]models.Conversation, error) {
	convs := []models.Conversation{}
	if err := readDB(r.db).WithContext(ctx).
		Preload("User1").
		Preload("User2").
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("id ASC").
		Limit(MaxRows).
		Find(&convs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return convs, nil
}

// AddDM appends dm and returns the full transcript in insertion order.
func (r *conversationRepository) AddDM(ctx context.Context, dm *models.DirectMessage) ([]models.DirectMessage, error) {
	var dms []models.DirectMessage
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(dm).Error; err != nil {
			return err
		}
		return tx.Where("conversation_id = ?", dm.ConversationID).Order("id ASC").Find(&dms).Error
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return dms, nil
}

func (r *conversationRepository) ListDMs(ctx context.Context, conversationID uint) ([]models.DirectMessage, error) {
	dms := []models.DirectMessage{}
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id ASC").
		Find(&dms).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return dms, nil
}
