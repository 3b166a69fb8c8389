package repository

import (
	"context"
	"errors"

	"warbler/internal/cache"
	"warbler/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MessageRepository stores public posts.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id uint) (*models.Message, error)
	Delete(ctx context.Context, id, ownerID uint) error
	RecentByAuthors(ctx context.Context, authorIDs []uint, limit int) ([]models.Message, error)
	RecentByUser(ctx context.Context, userID uint, limit int) ([]models.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// newestFirst orders by timestamp then id, both descending.
func newestFirst(db *gorm.DB) *gorm.DB {
	return db.
		Order(clause.OrderByColumn{Column: clause.Column{Table: "messages", Name: "timestamp"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Table: "messages", Name: "id"}, Desc: true})
}

func (r *messageRepository) Create(ctx context.Context, msg *models.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var msg models.Message
	if err := readDB(r.db).WithContext(ctx).Preload("User").First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Message", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &msg, nil
}

// Delete removes the message and its likes. Only the author may delete it.
func (r *messageRepository) Delete(ctx context.Context, id, ownerID uint) error {
	var likers []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var msg models.Message
		if err := tx.Select("id", "user_id").First(&msg, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Message", id)
			}
			return err
		}
		if msg.UserID != ownerID {
			return models.NewForbiddenError("You can only delete your own messages")
		}

		if err := tx.Model(&models.Like{}).Where("message_id = ?", id).Pluck("user_id", &likers).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND user_id = ?", id, ownerID).Delete(&models.Message{}).Error
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return models.NewInternalError(err)
	}

	for _, uid := range likers {
		cache.InvalidateLikes(ctx, uid)
	}
	return nil
}

func (r *messageRepository) RecentByAuthors(ctx context.Context, authorIDs []uint, limit int) ([]models.Message, error) {
	msgs := []models.Message{}
	if len(authorIDs) == 0 {
		return msgs, nil
	}
	q := readDB(r.db).WithContext(ctx).
		Preload("User").
		Where("user_id IN ?", authorIDs).
		Limit(clampLimit(limit))
	if err := newestFirst(q).Find(&msgs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return msgs, nil
}

func (r *messageRepository) RecentByUser(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	msgs := []models.Message{}
	q := readDB(r.db).WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		Limit(clampLimit(limit))
	if err := newestFirst(q).Find(&msgs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return msgs, nil
}
