//go:generate mockery --name AnswerRepository --output ./mocks --outpkg mocks --case=underscore
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

// AnswerRepository インターフェース。
// 単発回答（セッションなし、カードごとに1行）とセッション内回答（追記）の両方を扱います。
type AnswerRepository interface {
	Create(ctx context.Context, tx *gorm.DB, answer *model.UserCardAnswer) error
	FindByCardAndUser(ctx context.Context, db *gorm.DB, cardID, userID uuid.UUID) (*model.UserCardAnswer, error)
	Update(ctx context.Context, tx *gorm.DB, answerID uuid.UUID, updates map[string]interface{}) error
	FindByDeckAndUser(ctx context.Context, db *gorm.DB, deckID, userID uuid.UUID) ([]*model.UserCardAnswer, error)
	CountByUser(ctx context.Context, db *gorm.DB, userID uuid.UUID) (total int64, correct int64, err error)
}

type gormAnswerRepository struct{}

func NewGormAnswerRepository() AnswerRepository {
	return &gormAnswerRepository{}
}

func (r *gormAnswerRepository) Create(ctx context.Context, tx *gorm.DB, answer *model.UserCardAnswer) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Create(answer)
	if result.Error != nil {
		logger.Error("Error creating card answer in DB",
			"error", result.Error,
			"card_id", answer.CardID.String(),
			"user_id", answer.UserID.String(),
		)
		return fmt.Errorf("gormAnswerRepository.Create: %w", result.Error)
	}
	return nil
}

// FindByCardAndUser は単発回答フローの既存行（セッションに紐付かない行）を取得します。
func (r *gormAnswerRepository) FindByCardAndUser(ctx context.Context, db *gorm.DB, cardID, userID uuid.UUID) (*model.UserCardAnswer, error) {
	logger := middleware.GetLogger(ctx)
	var answer model.UserCardAnswer
	result := db.WithContext(ctx).
		Where("card_id = ? AND user_id = ? AND study_session_id IS NULL", cardID, userID).
		First(&answer)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding card answer in DB",
			"error", result.Error,
			"card_id", cardID.String(),
			"user_id", userID.String(),
		)
		return nil, fmt.Errorf("gormAnswerRepository.FindByCardAndUser: %w", result.Error)
	}
	return &answer, nil
}

func (r *gormAnswerRepository) Update(ctx context.Context, tx *gorm.DB, answerID uuid.UUID, updates map[string]interface{}) error {
	logger := middleware.GetLogger(ctx)
	if len(updates) == 0 {
		return nil
	}
	result := tx.WithContext(ctx).Model(&model.UserCardAnswer{}).
		Where("answer_id = ?", answerID).
		Updates(updates)
	if result.Error != nil {
		logger.Error("Error updating card answer in DB",
			"error", result.Error,
			"answer_id", answerID.String(),
		)
		return fmt.Errorf("gormAnswerRepository.Update: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// FindByDeckAndUser はデッキ内カードに対するユーザーの単発回答を返します。
func (r *gormAnswerRepository) FindByDeckAndUser(ctx context.Context, db *gorm.DB, deckID, userID uuid.UUID) ([]*model.UserCardAnswer, error) {
	logger := middleware.GetLogger(ctx)
	var answers []*model.UserCardAnswer
	result := db.WithContext(ctx).
		Joins("JOIN cards ON cards.card_id = user_card_answers.card_id").
		Where("cards.deck_id = ? AND user_card_answers.user_id = ? AND user_card_answers.study_session_id IS NULL", deckID, userID).
		Find(&answers)
	if result.Error != nil {
		logger.Error("Error finding deck answers in DB",
			"error", result.Error,
			"deck_id", deckID.String(),
			"user_id", userID.String(),
		)
		return nil, fmt.Errorf("gormAnswerRepository.FindByDeckAndUser: %w", result.Error)
	}
	return answers, nil
}

// CountByUser はユーザー全体の回答数と正解数を返します。
func (r *gormAnswerRepository) CountByUser(ctx context.Context, db *gorm.DB, userID uuid.UUID) (int64, int64, error) {
	logger := middleware.GetLogger(ctx)
	var total, correct int64

	if err := db.WithContext(ctx).Model(&model.UserCardAnswer{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		logger.Error("Error counting answers in DB", "error", err, "user_id", userID.String())
		return 0, 0, fmt.Errorf("gormAnswerRepository.CountByUser: %w", err)
	}

	if err := db.WithContext(ctx).Model(&model.UserCardAnswer{}).
		Where("user_id = ? AND is_correct = ?", userID, true).
		Count(&correct).Error; err != nil {
		logger.Error("Error counting correct answers in DB", "error", err, "user_id", userID.String())
		return 0, 0, fmt.Errorf("gormAnswerRepository.CountByUser: %w", err)
	}

	return total, correct, nil
}
