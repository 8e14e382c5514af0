//go:generate mockery --name UserSessionRepository --output ./mocks --outpkg mocks --case=underscore
package repository

import (
	"context"
	"fmt"
	"time"

	"flashdeck/internal/middleware"
	"flashdeck/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserSessionRepository はログインセッション（発行済みトークン）の永続化を担います。
type UserSessionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, session *model.UserSession) error
	DeactivateByToken(ctx context.Context, tx *gorm.DB, userID uuid.UUID, token string) error
	DeactivateAllForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type gormUserSessionRepository struct{}

func NewGormUserSessionRepository() UserSessionRepository {
	return &gormUserSessionRepository{}
}

func (r *gormUserSessionRepository) Create(ctx context.Context, tx *gorm.DB, session *model.UserSession) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Create(session)
	if result.Error != nil {
		logger.Error("Error creating user session in DB",
			"error", result.Error,
			"user_id", session.UserID.String(),
		)
		return fmt.Errorf("gormUserSessionRepository.Create: %w", result.Error)
	}
	return nil
}

// DeactivateByToken は指定トークンのセッションを無効化します（ログアウト）。
// 該当セッションが無くてもエラーにはしません。
func (r *gormUserSessionRepository) DeactivateByToken(ctx context.Context, tx *gorm.DB, userID uuid.UUID, token string) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Model(&model.UserSession{}).
		Where("user_id = ? AND token = ? AND is_active = ?", userID, token, true).
		Updates(map[string]interface{}{
			"is_active":        false,
			"last_activity_at": time.Now(),
		})
	if result.Error != nil {
		logger.Error("Error deactivating user session in DB",
			"error", result.Error,
			"user_id", userID.String(),
		)
		return fmt.Errorf("gormUserSessionRepository.DeactivateByToken: %w", result.Error)
	}
	return nil
}

// DeactivateAllForUser はユーザーの全セッションを無効化します（パスワード変更時）。
func (r *gormUserSessionRepository) DeactivateAllForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Model(&model.UserSession{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Updates(map[string]interface{}{
			"is_active":        false,
			"last_activity_at": time.Now(),
		})
	if result.Error != nil {
		logger.Error("Error deactivating all user sessions in DB",
			"error", result.Error,
			"user_id", userID.String(),
		)
		return fmt.Errorf("gormUserSessionRepository.DeactivateAllForUser: %w", result.Error)
	}
	return nil
}
