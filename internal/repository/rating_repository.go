//go:generate mockery --name RatingRepository --output ./mocks --outpkg mocks --case=underscore
package repository

import (
	"context"
	"errors"
	"fmt"

	"flashdeck/internal/middleware"
	"flashdeck/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RatingRepository インターフェース
type RatingRepository interface {
	Create(ctx context.Context, tx *gorm.DB, rating *model.DeckRating) error
	FindByDeckAndUser(ctx context.Context, db *gorm.DB, deckID, userID uuid.UUID) (*model.DeckRating, error)
	FindByDeck(ctx context.Context, db *gorm.DB, deckID uuid.UUID) ([]*model.DeckRating, error)
	Update(ctx context.Context, tx *gorm.DB, ratingID uuid.UUID, isLike bool) error
	Delete(ctx context.Context, tx *gorm.DB, deckID, userID uuid.UUID) error
}

type gormRatingRepository struct{}

func NewGormRatingRepository() RatingRepository {
	return &gormRatingRepository{}
}

func (r *gormRatingRepository) Create(ctx context.Context, tx *gorm.DB, rating *model.DeckRating) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Create(rating)
	if result.Error != nil {
		logger.Error("Error creating deck rating in DB",
			"error", result.Error,
			"deck_id", rating.DeckID.String(),
			"user_id", rating.UserID.String(),
		)
		return fmt.Errorf("gormRatingRepository.Create: %w", result.Error)
	}
	return nil
}

func (r *gormRatingRepository) FindByDeckAndUser(ctx context.Context, db *gorm.DB, deckID, userID uuid.UUID) (*model.DeckRating, error) {
	logger := middleware.GetLogger(ctx)
	var rating model.DeckRating
	result := db.WithContext(ctx).Where("deck_id = ? AND user_id = ?", deckID, userID).First(&rating)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding deck rating in DB",
			"error", result.Error,
			"deck_id", deckID.String(),
			"user_id", userID.String(),
		)
		return nil, fmt.Errorf("gormRatingRepository.FindByDeckAndUser: %w", result.Error)
	}
	return &rating, nil
}

func (r *gormRatingRepository) FindByDeck(ctx context.Context, db *gorm.DB, deckID uuid.UUID) ([]*model.DeckRating, error) {
	logger := middleware.GetLogger(ctx)
	var ratings []*model.DeckRating
	result := db.WithContext(ctx).
		Preload("User").
		Where("deck_id = ?", deckID).
		Order("created_at DESC").
		Find(&ratings)
	if result.Error != nil {
		logger.Error("Error finding deck ratings in DB",
			"error", result.Error,
			"deck_id", deckID.String(),
		)
		return nil, fmt.Errorf("gormRatingRepository.FindByDeck: %w", result.Error)
	}
	return ratings, nil
}

func (r *gormRatingRepository) Update(ctx context.Context, tx *gorm.DB, ratingID uuid.UUID, isLike bool) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Model(&model.DeckRating{}).
		Where("rating_id = ?", ratingID).
		Update("is_like", isLike)
	if result.Error != nil {
		logger.Error("Error updating deck rating in DB",
			"error", result.Error,
			"rating_id", ratingID.String(),
		)
		return fmt.Errorf("gormRatingRepository.Update: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *gormRatingRepository) Delete(ctx context.Context, tx *gorm.DB, deckID, userID uuid.UUID) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).
		Where("deck_id = ? AND user_id = ?", deckID, userID).
		Delete(&model.DeckRating{})
	if result.Error != nil {
		logger.Error("Error deleting deck rating in DB",
			"error", result.Error,
			"deck_id", deckID.String(),
			"user_id", userID.String(),
		)
		return fmt.Errorf("gormRatingRepository.Delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}
