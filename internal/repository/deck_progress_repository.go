//go:generate mockery --name DeckProgressRepository --output ./mocks --outpkg mocks --case=underscore
package repository

import (
	"context"
	"errors"
	"fmt"

	"flashdeck/internal/middleware"
	"flashdeck/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeckProgressRepository インターフェース
type DeckProgressRepository interface {
	Create(ctx context.Context, tx *gorm.DB, progress *model.DeckProgress) error
	Find(ctx context.Context, db *gorm.DB, userID, deckID uuid.UUID) (*model.DeckProgress, error)
	FindForUpdate(ctx context.Context, tx *gorm.DB, userID, deckID uuid.UUID) (*model.DeckProgress, error)
	FindByUser(ctx context.Context, db *gorm.DB, userID uuid.UUID) ([]*model.DeckProgress, error)
	Update(ctx context.Context, tx *gorm.DB, progress *model.DeckProgress) error
}

type gormDeckProgressRepository struct{}

func NewGormDeckProgressRepository() DeckProgressRepository {
	return &gormDeckProgressRepository{}
}

func (r *gormDeckProgressRepository) Create(ctx context.Context, tx *gorm.DB, progress *model.DeckProgress) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Create(progress)
	if result.Error != nil {
		logger.Error("Error creating deck progress in DB",
			"error", result.Error,
			"user_id", progress.UserID.String(),
			"deck_id", progress.DeckID.String(),
		)
		return fmt.Errorf("gormDeckProgressRepository.Create: %w", result.Error)
	}
	return nil
}

func (r *gormDeckProgressRepository) Find(ctx context.Context, db *gorm.DB, userID, deckID uuid.UUID) (*model.DeckProgress, error) {
	logger := middleware.GetLogger(ctx)
	var progress model.DeckProgress
	result := db.WithContext(ctx).Where("user_id = ? AND deck_id = ?", userID, deckID).First(&progress)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding deck progress in DB",
			"error", result.Error,
			"user_id", userID.String(),
			"deck_id", deckID.String(),
		)
		return nil, fmt.Errorf("gormDeckProgressRepository.Find: %w", result.Error)
	}
	return &progress, nil
}

// FindForUpdate は行ロック付きで進捗を取得します。ロールアップ更新はこちらを使う。
func (r *gormDeckProgressRepository) FindForUpdate(ctx context.Context, tx *gorm.DB, userID, deckID uuid.UUID) (*model.DeckProgress, error) {
	logger := middleware.GetLogger(ctx)
	var progress model.DeckProgress
	query := tx.WithContext(ctx)
	// SQLite は FOR UPDATE 非対応のためスキップ
	if tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	result := query.
		Where("user_id = ? AND deck_id = ?", userID, deckID).
		First(&progress)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error locking deck progress in DB",
			"error", result.Error,
			"user_id", userID.String(),
			"deck_id", deckID.String(),
		)
		return nil, fmt.Errorf("gormDeckProgressRepository.FindForUpdate: %w", result.Error)
	}
	return &progress, nil
}

func (r *gormDeckProgressRepository) FindByUser(ctx context.Context, db *gorm.DB, userID uuid.UUID) ([]*model.DeckProgress, error) {
	logger := middleware.GetLogger(ctx)
	var progresses []*model.DeckProgress
	result := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&progresses)
	if result.Error != nil {
		logger.Error("Error finding deck progresses by user in DB",
			"error", result.Error,
			"user_id", userID.String(),
		)
		return nil, fmt.Errorf("gormDeckProgressRepository.FindByUser: %w", result.Error)
	}
	return progresses, nil
}

func (r *gormDeckProgressRepository) Update(ctx context.Context, tx *gorm.DB, progress *model.DeckProgress) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Save(progress)
	if result.Error != nil {
		logger.Error("Error updating deck progress in DB",
			"error", result.Error,
			"progress_id", progress.ProgressID.String(),
		)
		return fmt.Errorf("gormDeckProgressRepository.Update: %w", result.Error)
	}
	return nil
}
