package repository

import (
	"context"

	"warbler/internal/cache"
	"warbler/internal/models"
	"warbler/internal/observability"

	"gorm.io/gorm"
)

// LikeRepository stores (user, message) likes.
type LikeRepository interface {
	Toggle(ctx context.Context, userID, messageID uint) (bool, error)
	Exists(ctx context.Context, userID, messageID uint) (bool, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
	CountForMessage(ctx context.Context, messageID uint) (int64, error)
	LikedMessageIDs(ctx context.Context, userID uint) ([]uint, error)
	LikedMessages(ctx context.Context, userID uint, limit int) ([]models.Message, error)
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new like repository
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

// Toggle flips the like for (userID, messageID) and returns the resulting state.
// If a concurrent toggle inserts the same pair first, our insert fails on the
// unique index, the transaction rolls back and the committed state is re-read.
func (r *likeRepository) Toggle(ctx context.Context, userID, messageID uint) (bool, error) {
	var liked bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Like
		res := tx.Where("user_id = ? AND message_id = ?", userID, messageID).Limit(1).Find(&existing)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			liked = false
			return tx.Delete(&existing).Error
		}
		liked = true
		return tx.Create(&models.Like{UserID: userID, MessageID: messageID}).Error
	})
	if err != nil {
		if !isUniqueConstraintError(err) {
			return false, models.NewInternalError(err)
		}
		observability.ConstraintRaces.WithLabelValues("like").Inc()
		liked, err = r.exists(ctx, r.db, userID, messageID)
		if err != nil {
			return false, models.NewInternalError(err)
		}
	}

	cache.InvalidateLikes(ctx, userID)
	return liked, nil
}

func (r *likeRepository) Exists(ctx context.Context, userID, messageID uint) (bool, error) {
	ok, err := r.exists(ctx, readDB(r.db), userID, messageID)
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return ok, nil
}

func (r *likeRepository) exists(ctx context.Context, db *gorm.DB, userID, messageID uint) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Count(&n).Error
	return n > 0, err
}

func (r *likeRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := cache.Aside(ctx, cache.LikeCountKey(userID), &n, cache.LikeCountTTL, func() error {
		return readDB(r.db).WithContext(ctx).Model(&models.Like{}).Where("user_id = ?", userID).Count(&n).Error
	})
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *likeRepository) CountForMessage(ctx context.Context, messageID uint) (int64, error) {
	var n int64
	if err := readDB(r.db).WithContext(ctx).Model(&models.Like{}).Where("message_id = ?", messageID).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *likeRepository) LikedMessageIDs(ctx context.Context, userID uint) ([]uint, error) {
	ids := []uint{}
	err := cache.Aside(ctx, cache.LikedIDsKey(userID), &ids, cache.LikedIDsTTL, func() error {
		return readDB(r.db).WithContext(ctx).Model(&models.Like{}).
			Where("user_id = ?", userID).
			Order("message_id ASC").
			Pluck("message_id", &ids).Error
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

// LikedMessages lists the messages the user liked, newest message first.
func (r *likeRepository) LikedMessages(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	msgs := []models.Message{}
	q := readDB(r.db).WithContext(ctx).
		Preload("User").
		Joins("JOIN likes l ON l.message_id = messages.id").
		Where("l.user_id = ?", userID).
		Limit(clampLimit(limit))
	if err := newestFirst(q).Find(&msgs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return msgs, nil
}
