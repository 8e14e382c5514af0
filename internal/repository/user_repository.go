//go:generate mockery --name UserRepository --output ./mocks --outpkg mocks --case=underscore
package repository

import (
	"context"
	"errors"
	"fmt"

	"flashdeck/internal/middleware"
	"flashdeck/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// UserRepository インターフェース
type UserRepository interface {
	Create(ctx context.Context, tx *gorm.DB, user *model.User) error
	FindByID(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*model.User, error)
	FindByUserName(ctx context.Context, db *gorm.DB, userName string) (*model.User, error)
	CheckDuplicate(ctx context.Context, db *gorm.DB, email, userName string, excludeUserID *uuid.UUID) (bool, error)
	Update(ctx context.Context, tx *gorm.DB, userID uuid.UUID, updates map[string]interface{}) error
	Search(ctx context.Context, db *gorm.DB, query string, page, limit int) ([]*model.User, int64, error)
}

type gormUserRepository struct{}

func NewGormUserRepository() UserRepository {
	return &gormUserRepository{}
}

func (r *gormUserRepository) Create(ctx context.Context, tx *gorm.DB, user *model.User) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Create(user)
	if result.Error != nil {
		// 一意制約違反 (email / user_name) は Conflict として返す
		var pgErr *pgconn.PgError
		if errors.As(result.Error, &pgErr) && pgErr.Code == "23505" {
			return model.ErrConflict
		}
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return model.ErrConflict
		}
		logger.Error("Error creating user in DB",
			"error", result.Error,
			"email", user.Email,
		)
		return fmt.Errorf("gormUserRepository.Create: %w", result.Error)
	}
	return nil
}

func (r *gormUserRepository) FindByID(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*model.User, error) {
	logger := middleware.GetLogger(ctx)
	var user model.User
	result := db.WithContext(ctx).Where("user_id = ?", userID).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding user by ID in DB",
			"error", result.Error,
			"user_id", userID.String(),
		)
		return nil, fmt.Errorf("gormUserRepository.FindByID: %w", result.Error)
	}
	return &user, nil
}

func (r *gormUserRepository) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*model.User, error) {
	logger := middleware.GetLogger(ctx)
	var user model.User
	result := db.WithContext(ctx).Where("email = ?", email).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding user by email in DB", "error", result.Error)
		return nil, fmt.Errorf("gormUserRepository.FindByEmail: %w", result.Error)
	}
	return &user, nil
}

func (r *gormUserRepository) FindByUserName(ctx context.Context, db *gorm.DB, userName string) (*model.User, error) {
	logger := middleware.GetLogger(ctx)
	var user model.User
	result := db.WithContext(ctx).Where("user_name = ?", userName).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding user by user name in DB",
			"error", result.Error,
			"user_name", userName,
		)
		return nil, fmt.Errorf("gormUserRepository.FindByUserName: %w", result.Error)
	}
	return &user, nil
}

// CheckDuplicate は email または user_name が既に使われているかを確認します。
// excludeUserID を指定するとそのユーザー自身は除外されます（プロフィール更新時用）。
func (r *gormUserRepository) CheckDuplicate(ctx context.Context, db *gorm.DB, email, userName string, excludeUserID *uuid.UUID) (bool, error) {
	logger := middleware.GetLogger(ctx)
	var count int64
	query := db.WithContext(ctx).Model(&model.User{}).Where("email = ? OR user_name = ?", email, userName)
	if excludeUserID != nil {
		query = query.Where("user_id != ?", *excludeUserID)
	}
	result := query.Count(&count)
	if result.Error != nil {
		logger.Error("Error checking user duplication in DB", "error", result.Error)
		return false, fmt.Errorf("gormUserRepository.CheckDuplicate: %w", result.Error)
	}
	return count > 0, nil
}

func (r *gormUserRepository) Update(ctx context.Context, tx *gorm.DB, userID uuid.UUID, updates map[string]interface{}) error {
	logger := middleware.GetLogger(ctx)
	if len(updates) == 0 {
		return nil
	}
	result := tx.WithContext(ctx).Model(&model.User{}).Where("user_id = ?", userID).Updates(updates)
	if result.Error != nil {
		var pgErr *pgconn.PgError
		if errors.As(result.Error, &pgErr) && pgErr.Code == "23505" {
			return model.ErrConflict
		}
		logger.Error("Error updating user in DB",
			"error", result.Error,
			"user_id", userID.String(),
		)
		return fmt.Errorf("gormUserRepository.Update: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Search はユーザー名・氏名の部分一致検索（大文字小文字を区別しない）をページング付きで行います。
func (r *gormUserRepository) Search(ctx context.Context, db *gorm.DB, query string, page, limit int) ([]*model.User, int64, error) {
	logger := middleware.GetLogger(ctx)
	var users []*model.User
	var total int64

	base := db.WithContext(ctx).Model(&model.User{}).Where("is_active = ?", true)
	if query != "" {
		pattern := "%" + query + "%"
		base = base.Where("LOWER(user_name) LIKE LOWER(?) OR LOWER(full_name) LIKE LOWER(?)", pattern, pattern)
	}

	if err := base.Count(&total).Error; err != nil {
		logger.Error("Error counting users in DB", "error", err)
		return nil, 0, fmt.Errorf("gormUserRepository.Search: %w", err)
	}

	offset := (page - 1) * limit
	result := base.Order("user_name ASC").Limit(limit).Offset(offset).Find(&users)
	if result.Error != nil {
		logger.Error("Error searching users in DB", "error", result.Error)
		return nil, 0, fmt.Errorf("gormUserRepository.Search: %w", result.Error)
	}
	return users, total, nil
}
