// internal/service/user_service.go
package service

import (
	"context"
	"errors"

	"flashdeck/internal/config"
	"flashdeck/internal/model"
	"flashdeck/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserService は他ユーザーのプロフィール参照と検索を担います。
type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*model.UserResponse, error)
	SearchUsers(ctx context.Context, query string, page int) (*model.UserListResponse, error)
}

type userService struct {
	db       *gorm.DB
	userRepo repository.UserRepository
	cfg      *config.Config
}

func NewUserService(db *gorm.DB, userRepo repository.UserRepository, cfg *config.Config) UserService {
	return &userService{
		db:       db,
		userRepo: userRepo,
		cfg:      cfg,
	}
}

func (s *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*model.UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, s.db, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewAppError("USER_NOT_FOUND", "ユーザーが見つかりません。", "", model.ErrNotFound)
		}
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "サーバー内部エラー", "", err)
	}
	return model.NewUserResponse(user), nil
}

// SearchUsers はユーザー名・氏名の部分一致でユーザーを検索します。
func (s *userService) SearchUsers(ctx context.Context, query string, page int) (*model.UserListResponse, error) {
	if page < 1 {
		page = 1
	}
	limit := s.cfg.App.UsersPageLimit

	users, total, err := s.userRepo.Search(ctx, s.db, query, page, limit)
	if err != nil {
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "ユーザー検索に失敗しました。", "", err)
	}

	responses := make([]*model.UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, model.NewUserResponse(u))
	}

	pages := int((total + int64(limit) - 1) / int64(limit))
	return &model.UserListResponse{
		Users: responses,
		Pagination: model.Pagination{
			Total: total,
			Page:  page,
			Pages: pages,
		},
	}, nil
}
