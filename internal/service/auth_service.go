package service

import (
	"context"
	"errors"
	"time"

	"flashdeck/internal/config"
	"flashdeck/internal/middleware"
	"flashdeck/internal/model"
	"flashdeck/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ClientInfo はセッション記録用のリクエスト元情報です。
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

// AuthService インターフェース
type AuthService interface {
	Register(ctx context.Context, req *model.RegisterRequest, client ClientInfo) (*model.LoginResponse, error)
	Login(ctx context.Context, req *model.LoginRequest, client ClientInfo) (*model.LoginResponse, error)
	Logout(ctx context.Context, userID uuid.UUID, token string) error
	GetCurrentUser(ctx context.Context, userID uuid.UUID) (*model.UserResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req *model.UpdateProfileRequest) (*model.UserResponse, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, req *model.ChangePasswordRequest) error
}

type authService struct {
	db          *gorm.DB
	userRepo    repository.UserRepository
	sessionRepo repository.UserSessionRepository
	cfg         *config.Config
}

// NewAuthService は AuthService の新しいインスタンスを生成します
func NewAuthService(db *gorm.DB, userRepo repository.UserRepository, sessionRepo repository.UserSessionRepository, cfg *config.Config) AuthService {
	return &authService{
		db:          db,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		cfg:         cfg,
	}
}

// Register は新しいユーザーを登録し、ログイン済み状態のトークンを返します
func (s *authService) Register(ctx context.Context, req *model.RegisterRequest, client ClientInfo) (*model.LoginResponse, error) {
	logger := middleware.GetLogger(ctx)
	var newUser *model.User

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Email / ユーザー名での重複チェック
		exists, err := s.userRepo.CheckDuplicate(ctx, tx, req.Email, req.UserName, nil)
		if err != nil {
			logger.Error("Failed to check user duplication", "error", err)
			return model.NewAppError("INTERNAL_SERVER_ERROR", "サーバー内部でエラーが発生しました。", "", err)
		}
		if exists {
			logger.Warn("Registration rejected: email or user name already exists", "email", req.Email, "user_name", req.UserName)
			return model.NewAppError("DUPLICATE_ENTRY", "このメールアドレスまたはユーザー名は既に使用されています。", "email,user_name", model.ErrConflict)
		}

		// パスワードのハッシュ化
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			logger.Error("Failed to hash password", "error", err)
			return model.NewAppError("INTERNAL_SERVER_ERROR", "パスワードの処理中にエラーが発生しました。", "", err)
		}

		user := &model.User{
			UserID:         uuid.New(),
			FullName:       req.FullName,
			UserName:       req.UserName,
			Email:          req.Email,
			HashedPassword: string(hashedPassword),
			IsActive:       true,
		}

		if err := s.userRepo.Create(ctx, tx, user); err != nil {
			// Create内で重複エラーが検知された場合 (レースコンディション対策)
			if errors.Is(err, model.ErrConflict) {
				logger.Warn("Conflict during user creation (race condition)", "error", err)
				return model.NewAppError("DUPLICATE_ENTRY", "このメールアドレスまたはユーザー名は既に使用されています。", "email,user_name", model.ErrConflict)
			}
			logger.Error("Failed to create user in DB", "error", err)
			return model.NewAppError("INTERNAL_SERVER_ERROR", "ユーザーの作成に失敗しました。", "", err)
		}
		newUser = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp, err := s.issueToken(ctx, newUser, client)
	if err != nil {
		return nil, err
	}

	logger.Info("User registered", "user_id", newUser.UserID, "email", newUser.Email)
	return resp, nil
}

// Login はユーザーを認証し、JWTを返します
func (s *authService) Login(ctx context.Context, req *model.LoginRequest, client ClientInfo) (*model.LoginResponse, error) {
	logger := middleware.GetLogger(ctx).With("email", req.Email)

	user, err := s.userRepo.FindByEmail(ctx, s.db, req.Email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			logger.Warn("Login failed: user not found")
			return nil, model.NewAppError("AUTHENTICATION_FAILED", "メールアドレスまたはパスワードが正しくありません。", "", model.ErrInvalidInput)
		}
		logger.Error("Login failed: db error on FindByEmail", "error", err)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "サーバー内部エラー", "", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		logger.Warn("Login failed: password mismatch", "user_id", user.UserID)
		return nil, model.NewAppError("AUTHENTICATION_FAILED", "メールアドレスまたはパスワードが正しくありません。", "", model.ErrInvalidInput)
	}

	if !user.IsActive {
		logger.Warn("Login failed: account not active", "user_id", user.UserID)
		return nil, model.NewAppError("ACCOUNT_NOT_ACTIVE", "このアカウントは無効化されています。", "", model.ErrForbidden)
	}

	resp, err := s.issueToken(ctx, user, client)
	if err != nil {
		return nil, err
	}

	logger.Info("Login successful", "user_id", user.UserID)
	return resp, nil
}

// Logout は現在のトークンに対応するセッションを無効化します
func (s *authService) Logout(ctx context.Context, userID uuid.UUID, token string) error {
	logger := middleware.GetLogger(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.sessionRepo.DeactivateByToken(ctx, tx, userID, token)
	})
	if err != nil {
		logger.Error("Failed to deactivate session on logout", "error", err, "user_id", userID)
		return model.NewAppError("INTERNAL_SERVER_ERROR", "ログアウト処理に失敗しました。", "", err)
	}

	logger.Info("Logout successful", "user_id", userID)
	return nil
}

// GetCurrentUser は認証済みユーザー自身の情報を返します
func (s *authService) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*model.UserResponse, error) {
	logger := middleware.GetLogger(ctx)

	user, err := s.userRepo.FindByID(ctx, s.db, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			logger.Warn("Current user not found", "user_id", userID.String())
			return nil, model.NewAppError("USER_NOT_FOUND", "ユーザーが見つかりません。", "", model.ErrNotFound)
		}
		logger.Error("Error finding current user", "error", err)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "サーバー内部エラー", "", err)
	}
	return model.NewUserResponse(user), nil
}

// UpdateProfile はプロフィールを部分更新します
func (s *authService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *model.UpdateProfileRequest) (*model.UserResponse, error) {
	logger := middleware.GetLogger(ctx)
	var updated *model.User

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.userRepo.FindByID(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewAppError("USER_NOT_FOUND", "ユーザーが見つかりません。", "", model.ErrNotFound)
			}
			return model.NewAppError("INTERNAL_SERVER_ERROR", "サーバー内部エラー", "", err)
		}

		updates := make(map[string]interface{})
		checkEmail := user.Email
		checkUserName := user.UserName
		if req.FullName != nil && *req.FullName != user.FullName {
			updates["full_name"] = *req.FullName
		}
		if req.UserName != nil && *req.UserName != user.UserName {
			updates["user_name"] = *req.UserName
			checkUserName = *req.UserName
		}
		if req.Email != nil && *req.Email != user.Email {
			updates["email"] = *req.Email
			checkEmail = *req.Email
		}
		if req.AvatarURL != nil {
			updates["avatar_url"] = *req.AvatarURL
		}
		if len(updates) == 0 {
			updated = user
			return nil
		}

		// Email / ユーザー名を変更する場合は他ユーザーとの重複チェック
		_, emailChanged := updates["email"]
		_, userNameChanged := updates["user_name"]
		if emailChanged || userNameChanged {
			exists, err := s.userRepo.CheckDuplicate(ctx, tx, checkEmail, checkUserName, &userID)
			if err != nil {
				return model.NewAppError("INTERNAL_SERVER_ERROR", "サーバー内部エラー", "", err)
			}
			if exists {
				return model.NewAppError("DUPLICATE_ENTRY", "このメールアドレスまたはユーザー名は既に使用されています。", "email,user_name", model.ErrConflict)
			}
		}

		if err := s.userRepo.Update(ctx, tx, userID, updates); err != nil {
			if errors.Is(err, model.ErrConflict) {
				return model.NewAppError("DUPLICATE_ENTRY", "このメールアドレスまたはユーザー名は既に使用されています。", "email,user_name", model.ErrConflict)
			}
			return model.NewAppError("INTERNAL_SERVER_ERROR", "プロフィールの更新に失敗しました。", "", err)
		}

		updated, err = s.userRepo.FindByID(ctx, tx, userID)
		if err != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "サーバー内部エラー", "", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Profile updated", "user_id", userID)
	return model.NewUserResponse(updated), nil
}

// ChangePassword はパスワードを変更し、全セッションを無効化します
func (s *authService) ChangePassword(ctx context.Context, userID uuid.UUID, req *model.ChangePasswordRequest) error {
	logger := middleware.GetLogger(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.userRepo.FindByID(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewAppError("USER_NOT_FOUND", "ユーザーが見つかりません。", "", model.ErrNotFound)
			}
			return model.NewAppError("INTERNAL_SERVER_ERROR", "サーバー内部エラー", "", err)
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.CurrentPassword)); err != nil {
			logger.Warn("Password change failed: current password mismatch", "user_id", userID)
			return model.NewAppError("AUTHENTICATION_FAILED", "現在のパスワードが正しくありません。", "current_password", model.ErrInvalidInput)
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "パスワードの処理中にエラーが発生しました。", "", err)
		}

		if err := s.userRepo.Update(ctx, tx, userID, map[string]interface{}{
			"hashed_password": string(hashedPassword),
		}); err != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "パスワードの更新に失敗しました。", "", err)
		}

		// パスワード変更後は全セッションを無効化し、再ログインを強制する
		if err := s.sessionRepo.DeactivateAllForUser(ctx, tx, userID); err != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "セッションの無効化に失敗しました。", "", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Password changed", "user_id", userID)
	return nil
}

// --- ヘルパー関数 ---

// issueToken はJWTを発行し、セッション行を記録します。
func (s *authService) issueToken(ctx context.Context, user *model.User, client ClientInfo) (*model.LoginResponse, error) {
	logger := middleware.GetLogger(ctx)

	now := time.Now()
	expiresAt := now.Add(s.cfg.JWT.AccessTokenTTL)
	claims := &model.JWTCustomClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    config.AppName,
			Subject:   user.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(s.cfg.JWT.SecretKey))
	if err != nil {
		logger.Error("Failed to sign JWT", "error", err, "user_id", user.UserID)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "トークンの生成に失敗しました。", "", err)
	}

	session := &model.UserSession{
		SessionID:      uuid.New(),
		UserID:         user.UserID,
		Token:          signedToken,
		ExpiresAt:      expiresAt,
		IsActive:       true,
		LastActivityAt: now,
		UserAgent:      client.UserAgent,
		IPAddress:      client.IPAddress,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.sessionRepo.Create(ctx, tx, session)
	})
	if err != nil {
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "セッションの保存に失敗しました。", "", err)
	}

	return &model.LoginResponse{
		AccessToken: signedToken,
		User:        model.NewUserResponse(user),
	}, nil
}
