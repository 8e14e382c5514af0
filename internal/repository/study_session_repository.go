//go:generate mockery --name StudySessionRepository --output ./mocks --outpkg mocks --case=underscore
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

// StudySessionRepository インターフェース
type StudySessionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, session *model.StudySession) error
	FindActiveByDeck(ctx context.Context, db *gorm.DB, userID, deckID uuid.UUID) (*model.StudySession, error)
	FindActiveByID(ctx context.Context, db *gorm.DB, userID, sessionID uuid.UUID) (*model.StudySession, error)
	FindActiveByIDForUpdate(ctx context.Context, tx *gorm.DB, userID, sessionID uuid.UUID) (*model.StudySession, error)
	FindActiveByDeckWithAnswers(ctx context.Context, db *gorm.DB, userID, deckID uuid.UUID) (*model.StudySession, error)
	Update(ctx context.Context, tx *gorm.DB, session *model.StudySession) error
}

type gormStudySessionRepository struct{}

func NewGormStudySessionRepository() StudySessionRepository {
	return &gormStudySessionRepository{}
}

func (r *gormStudySessionRepository) Create(ctx context.Context, tx *gorm.DB, session *model.StudySession) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Create(session)
	if result.Error != nil {
		logger.Error("Error creating study session in DB",
			"error", result.Error,
			"user_id", session.UserID.String(),
			"deck_id", session.DeckID.String(),
		)
		return fmt.Errorf("gormStudySessionRepository.Create: %w", result.Error)
	}
	return nil
}

// FindActiveByDeck は (user, deck) の未完了セッションを取得します。
func (r *gormStudySessionRepository) FindActiveByDeck(ctx context.Context, db *gorm.DB, userID, deckID uuid.UUID) (*model.StudySession, error) {
	logger := middleware.GetLogger(ctx)
	var session model.StudySession
	result := db.WithContext(ctx).
		Where("user_id = ? AND deck_id = ? AND is_completed = ?", userID, deckID, false).
		First(&session)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding active study session in DB",
			"error", result.Error,
			"user_id", userID.String(),
			"deck_id", deckID.String(),
		)
		return nil, fmt.Errorf("gormStudySessionRepository.FindActiveByDeck: %w", result.Error)
	}
	return &session, nil
}

func (r *gormStudySessionRepository) FindActiveByID(ctx context.Context, db *gorm.DB, userID, sessionID uuid.UUID) (*model.StudySession, error) {
	logger := middleware.GetLogger(ctx)
	var session model.StudySession
	result := db.WithContext(ctx).
		Where("session_id = ? AND user_id = ? AND is_completed = ?", sessionID, userID, false).
		First(&session)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding study session by ID in DB",
			"error", result.Error,
			"session_id", sessionID.String(),
		)
		return nil, fmt.Errorf("gormStudySessionRepository.FindActiveByID: %w", result.Error)
	}
	return &session, nil
}

// FindActiveByIDForUpdate は行ロック付きで未完了セッションを取得します。
// 同一セッションへの並行更新でカウンタが欠損しないよう、更新系はこちらを使う。
func (r *gormStudySessionRepository) FindActiveByIDForUpdate(ctx context.Context, tx *gorm.DB, userID, sessionID uuid.UUID) (*model.StudySession, error) {
	logger := middleware.GetLogger(ctx)
	var session model.StudySession
	query := tx.WithContext(ctx)
	// SQLite は FOR UPDATE 非対応のためスキップ
	if tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	result := query.
		Where("session_id = ? AND user_id = ? AND is_completed = ?", sessionID, userID, false).
		First(&session)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error locking study session in DB",
			"error", result.Error,
			"session_id", sessionID.String(),
		)
		return nil, fmt.Errorf("gormStudySessionRepository.FindActiveByIDForUpdate: %w", result.Error)
	}
	return &session, nil
}

// FindActiveByDeckWithAnswers は未完了セッションを回答履歴付きで取得します。
func (r *gormStudySessionRepository) FindActiveByDeckWithAnswers(ctx context.Context, db *gorm.DB, userID, deckID uuid.UUID) (*model.StudySession, error) {
	logger := middleware.GetLogger(ctx)
	var session model.StudySession
	result := db.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("user_id = ? AND deck_id = ? AND is_completed = ?", userID, deckID, false).
		First(&session)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding active study session with answers in DB",
			"error", result.Error,
			"user_id", userID.String(),
			"deck_id", deckID.String(),
		)
		return nil, fmt.Errorf("gormStudySessionRepository.FindActiveByDeckWithAnswers: %w", result.Error)
	}
	return &session, nil
}

func (r *gormStudySessionRepository) Update(ctx context.Context, tx *gorm.DB, session *model.StudySession) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Save(session)
	if result.Error != nil {
		logger.Error("Error updating study session in DB",
			"error", result.Error,
			"session_id", session.SessionID.String(),
		)
		return fmt.Errorf("gormStudySessionRepository.Update: %w", result.Error)
	}
	return nil
}
