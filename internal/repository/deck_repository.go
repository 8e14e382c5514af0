//go:generate mockery --name DeckRepository --output ./mocks --outpkg mocks --case=underscore
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

// DeckRepository インターフェース
type DeckRepository interface {
	Create(ctx context.Context, tx *gorm.DB, deck *model.Deck) error
	FindByID(ctx context.Context, db *gorm.DB, deckID uuid.UUID) (*model.Deck, error)
	FindOwned(ctx context.Context, db *gorm.DB, userID, deckID uuid.UUID) (*model.Deck, error)
	FindByUser(ctx context.Context, db *gorm.DB, userID uuid.UUID) ([]*model.Deck, error)
	FindVisible(ctx context.Context, db *gorm.DB, userID uuid.UUID) ([]*model.Deck, error)
	FindRecent(ctx context.Context, db *gorm.DB, userID uuid.UUID, limit int) ([]*model.Deck, error)
	Update(ctx context.Context, tx *gorm.DB, userID, deckID uuid.UUID, updates map[string]interface{}) error
	Delete(ctx context.Context, tx *gorm.DB, userID, deckID uuid.UUID) error
	CountCards(ctx context.Context, db *gorm.DB, deckID uuid.UUID) (int64, error)
}

type gormDeckRepository struct{}

func NewGormDeckRepository() DeckRepository {
	return &gormDeckRepository{}
}

func (r *gormDeckRepository) Create(ctx context.Context, tx *gorm.DB, deck *model.Deck) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Create(deck)
	if result.Error != nil {
		logger.Error("Error creating deck in DB",
			"error", result.Error,
			"user_id", deck.UserID.String(),
			"title", deck.Title,
		)
		return fmt.Errorf("gormDeckRepository.Create: %w", result.Error)
	}
	return nil
}

func (r *gormDeckRepository) FindByID(ctx context.Context, db *gorm.DB, deckID uuid.UUID) (*model.Deck, error) {
	logger := middleware.GetLogger(ctx)
	var deck model.Deck
	result := db.WithContext(ctx).Where("deck_id = ?", deckID).First(&deck)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding deck by ID in DB",
			"error", result.Error,
			"deck_id", deckID.String(),
		)
		return nil, fmt.Errorf("gormDeckRepository.FindByID: %w", result.Error)
	}
	return &deck, nil
}

// FindOwned は所有者チェック込みでデッキを取得します。
func (r *gormDeckRepository) FindOwned(ctx context.Context, db *gorm.DB, userID, deckID uuid.UUID) (*model.Deck, error) {
	logger := middleware.GetLogger(ctx)
	var deck model.Deck
	result := db.WithContext(ctx).Where("user_id = ? AND deck_id = ?", userID, deckID).First(&deck)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding owned deck in DB",
			"error", result.Error,
			"user_id", userID.String(),
			"deck_id", deckID.String(),
		)
		return nil, fmt.Errorf("gormDeckRepository.FindOwned: %w", result.Error)
	}
	return &deck, nil
}

func (r *gormDeckRepository) FindByUser(ctx context.Context, db *gorm.DB, userID uuid.UUID) ([]*model.Deck, error) {
	logger := middleware.GetLogger(ctx)
	var decks []*model.Deck
	result := db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&decks)
	if result.Error != nil {
		logger.Error("Error finding decks by user in DB",
			"error", result.Error,
			"user_id", userID.String(),
		)
		return nil, fmt.Errorf("gormDeckRepository.FindByUser: %w", result.Error)
	}
	return decks, nil
}

// FindVisible はユーザーが閲覧可能なデッキ（自分のデッキ＋公開デッキ）を返します。
func (r *gormDeckRepository) FindVisible(ctx context.Context, db *gorm.DB, userID uuid.UUID) ([]*model.Deck, error) {
	logger := middleware.GetLogger(ctx)
	var decks []*model.Deck
	result := db.WithContext(ctx).
		Where("user_id = ? OR is_public = ?", userID, true).
		Order("created_at DESC").
		Find(&decks)
	if result.Error != nil {
		logger.Error("Error finding visible decks in DB",
			"error", result.Error,
			"user_id", userID.String(),
		)
		return nil, fmt.Errorf("gormDeckRepository.FindVisible: %w", result.Error)
	}
	return decks, nil
}

// FindRecent は deck_progress の最終学習日時が新しい順に自分のデッキを返します。
func (r *gormDeckRepository) FindRecent(ctx context.Context, db *gorm.DB, userID uuid.UUID, limit int) ([]*model.Deck, error) {
	logger := middleware.GetLogger(ctx)
	var decks []*model.Deck
	result := db.WithContext(ctx).
		Joins("JOIN deck_progress ON deck_progress.deck_id = decks.deck_id AND deck_progress.user_id = ?", userID).
		Where("deck_progress.last_studied_at IS NOT NULL").
		Order("deck_progress.last_studied_at DESC").
		Limit(limit).
		Find(&decks)
	if result.Error != nil {
		logger.Error("Error finding recent decks in DB",
			"error", result.Error,
			"user_id", userID.String(),
		)
		return nil, fmt.Errorf("gormDeckRepository.FindRecent: %w", result.Error)
	}
	return decks, nil
}

func (r *gormDeckRepository) Update(ctx context.Context, tx *gorm.DB, userID, deckID uuid.UUID, updates map[string]interface{}) error {
	logger := middleware.GetLogger(ctx)
	if len(updates) == 0 {
		return nil
	}
	result := tx.WithContext(ctx).Model(&model.Deck{}).
		Where("user_id = ? AND deck_id = ?", userID, deckID).
		Updates(updates)
	if result.Error != nil {
		logger.Error("Error updating deck in DB",
			"error", result.Error,
			"user_id", userID.String(),
			"deck_id", deckID.String(),
		)
		return fmt.Errorf("gormDeckRepository.Update: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *gormDeckRepository) Delete(ctx context.Context, tx *gorm.DB, userID, deckID uuid.UUID) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).
		Where("user_id = ? AND deck_id = ?", userID, deckID).
		Delete(&model.Deck{})
	if result.Error != nil {
		logger.Error("Error deleting deck in DB",
			"error", result.Error,
			"user_id", userID.String(),
			"deck_id", deckID.String(),
		)
		return fmt.Errorf("gormDeckRepository.Delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *gormDeckRepository) CountCards(ctx context.Context, db *gorm.DB, deckID uuid.UUID) (int64, error) {
	logger := middleware.GetLogger(ctx)
	var count int64
	result := db.WithContext(ctx).Model(&model.Card{}).Where("deck_id = ?", deckID).Count(&count)
	if result.Error != nil {
		logger.Error("Error counting cards in DB",
			"error", result.Error,
			"deck_id", deckID.String(),
		)
		return 0, fmt.Errorf("gormDeckRepository.CountCards: %w", result.Error)
	}
	return count, nil
}
