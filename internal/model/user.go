// internal/model/user.go
package model

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// User はアカウントの基本情報を表します
type User struct {
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	FullName       string    `gorm:"not null" json:"full_name"`
	UserName       string    `gorm:"not null;uniqueIndex" json:"user_name"`
	Email          string    `gorm:"not null;uniqueIndex" json:"email"`
	HashedPassword string    `gorm:"not null" json:"-"`
	AvatarURL      string    `json:"avatar_url,omitempty"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// 関連 (Preload用)
	Decks []Deck `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// UserSession は発行済みアクセストークンの記録（ログアウトで無効化される）
type UserSession struct {
	SessionID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"session_id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Token          string    `gorm:"not null;index" json:"-"`
	ExpiresAt      time.Time `gorm:"not null" json:"expires_at"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	LastActivityAt time.Time `gorm:"not null" json:"last_activity_at"`
	UserAgent      string    `json:"user_agent,omitempty"`
	IPAddress      string    `json:"ip_address,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (UserSession) TableName() string {
	return "user_sessions"
}

type ContextKey string

const (
	UserIDKey ContextKey = "userID"
)

// RegisterRequest は新規登録APIのリクエストボディの構造体 (DTO)
type RegisterRequest struct {
	FullName string `json:"full_name" validate:"required,min=1,max=100"`
	UserName string `json:"user_name" validate:"required,min=1,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest はログインAPIのリクエストボディ
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest はプロフィール更新のリクエストボディ
type UpdateProfileRequest struct {
	FullName  *string `json:"full_name,omitempty" validate:"omitempty,min=1,max=100"`
	UserName  *string `json:"user_name,omitempty" validate:"omitempty,min=1,max=50"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	AvatarURL *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

// ChangePasswordRequest はパスワード変更のリクエストボディ
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// UserResponse はクライアントに返すユーザー情報の構造体
type UserResponse struct {
	UserID    uuid.UUID `json:"user_id"`
	FullName  string    `json:"full_name"`
	UserName  string    `json:"user_name"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserResponse は User から公開用DTOを生成します
func NewUserResponse(u *User) *UserResponse {
	return &UserResponse{
		UserID:    u.UserID,
		FullName:  u.FullName,
		UserName:  u.UserName,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt,
	}
}

// LoginResponse はログイン成功時のレスポンス
type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	User        *UserResponse `json:"user"`
}

// JWTCustomClaims はJWTに含めるカスタムクレーム（ペイロード）
type JWTCustomClaims struct {
	Email                string `json:"email,omitempty"`
	jwt.RegisteredClaims        // 標準クレーム (iss, sub, exp など)
}

// UserListResponse はユーザー一覧（ページネーション付き）のレスポンスDTO
type UserListResponse struct {
	Users      []*UserResponse `json:"users"`
	Pagination Pagination      `json:"pagination"`
}

type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
}
