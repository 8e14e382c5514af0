// internal/service/auth_service_test.go
package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"flashdeck/internal/config"
	"flashdeck/internal/model"
	"flashdeck/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to connect database for testing")

	err = db.AutoMigrate(&model.User{}, &model.UserSession{})
	require.NoError(t, err, "failed to migrate database for testing")
	return db
}

func newAuthServiceForTest(db *gorm.DB) (AuthService, *config.Config) {
	cfg := &config.Config{}
	cfg.JWT.SecretKey = "test-secret-key"
	cfg.JWT.AccessTokenTTL = time.Hour
	svc := NewAuthService(db, repository.NewGormUserRepository(), repository.NewGormUserSessionRepository(), cfg)
	return svc, cfg
}

func testRegisterRequest(email, userName string) *model.RegisterRequest {
	return &model.RegisterRequest{
		FullName: "テスト 太郎",
		UserName: userName,
		Email:    email,
		Password: "password123",
	}
}

func testClientInfo() ClientInfo {
	return ClientInfo{UserAgent: "test-agent", IPAddress: "127.0.0.1"}
}

func Test_authService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: 登録するとトークンとセッションが発行される", func(t *testing.T) {
		db := setupAuthTestDB(t)
		svc, cfg := newAuthServiceForTest(db)

		resp, err := svc.Register(ctx, testRegisterRequest("taro@example.com", "taro"), testClientInfo())
		require.NoError(t, err)
		require.NotEmpty(t, resp.AccessToken)
		assert.Equal(t, "taro@example.com", resp.User.Email)
		assert.Equal(t, "taro", resp.User.UserName)

		// トークンが正しい鍵で署名され、subjectにユーザーIDが入っている
		claims := &model.JWTCustomClaims{}
		token, err := jwt.ParseWithClaims(resp.AccessToken, claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(cfg.JWT.SecretKey), nil
		})
		require.NoError(t, err)
		assert.True(t, token.Valid)
		assert.Equal(t, resp.User.UserID.String(), claims.Subject)
		assert.Equal(t, "taro@example.com", claims.Email)

		// セッション行が記録されている
		var session model.UserSession
		require.NoError(t, db.First(&session, "user_id = ?", resp.User.UserID).Error)
		assert.True(t, session.IsActive)
		assert.Equal(t, "test-agent", session.UserAgent)
		assert.Equal(t, "127.0.0.1", session.IPAddress)

		// パスワードは平文で保存されない
		var user model.User
		require.NoError(t, db.First(&user, "user_id = ?", resp.User.UserID).Error)
		assert.NotEqual(t, "password123", user.HashedPassword)
	})

	t.Run("異常系: メールアドレスの重複", func(t *testing.T) {
		db := setupAuthTestDB(t)
		svc, _ := newAuthServiceForTest(db)

		_, err := svc.Register(ctx, testRegisterRequest("dup@example.com", "user1"), testClientInfo())
		require.NoError(t, err)

		_, err = svc.Register(ctx, testRegisterRequest("dup@example.com", "user2"), testClientInfo())
		assert.ErrorIs(t, err, model.ErrConflict)
	})

	t.Run("異常系: ユーザー名の重複", func(t *testing.T) {
		db := setupAuthTestDB(t)
		svc, _ := newAuthServiceForTest(db)

		_, err := svc.Register(ctx, testRegisterRequest("a@example.com", "samename"), testClientInfo())
		require.NoError(t, err)

		_, err = svc.Register(ctx, testRegisterRequest("b@example.com", "samename"), testClientInfo())
		assert.ErrorIs(t, err, model.ErrConflict)
	})
}

func Test_authService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: 正しい資格情報でログインできる", func(t *testing.T) {
		db := setupAuthTestDB(t)
		svc, _ := newAuthServiceForTest(db)
		_, err := svc.Register(ctx, testRegisterRequest("login@example.com", "loginuser"), testClientInfo())
		require.NoError(t, err)

		resp, err := svc.Login(ctx, &model.LoginRequest{
			Email:    "login@example.com",
			Password: "password123",
		}, testClientInfo())
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
		assert.Equal(t, "loginuser", resp.User.UserName)
	})

	t.Run("異常系: パスワードが違う", func(t *testing.T) {
		db := setupAuthTestDB(t)
		svc, _ := newAuthServiceForTest(db)
		_, err := svc.Register(ctx, testRegisterRequest("login@example.com", "loginuser"), testClientInfo())
		require.NoError(t, err)

		_, err = svc.Login(ctx, &model.LoginRequest{
			Email:    "login@example.com",
			Password: "wrong-password",
		}, testClientInfo())
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	})

	t.Run("異常系: 存在しないメールアドレス", func(t *testing.T) {
		db := setupAuthTestDB(t)
		svc, _ := newAuthServiceForTest(db)

		_, err := svc.Login(ctx, &model.LoginRequest{
			Email:    "nobody@example.com",
			Password: "password123",
		}, testClientInfo())
		// ユーザーの存在有無は区別せず同じ認証エラーを返す
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	})

	t.Run("異常系: 無効化されたアカウント", func(t *testing.T) {
		db := setupAuthTestDB(t)
		svc, _ := newAuthServiceForTest(db)
		reg, err := svc.Register(ctx, testRegisterRequest("inactive@example.com", "inactive"), testClientInfo())
		require.NoError(t, err)

		require.NoError(t, db.Model(&model.User{}).
			Where("user_id = ?", reg.User.UserID).
			Update("is_active", false).Error)

		_, err = svc.Login(ctx, &model.LoginRequest{
			Email:    "inactive@example.com",
			Password: "password123",
		}, testClientInfo())
		assert.ErrorIs(t, err, model.ErrForbidden)
	})
}

func Test_authService_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: トークンに対応するセッションだけ無効化される", func(t *testing.T) {
		db := setupAuthTestDB(t)
		svc, _ := newAuthServiceForTest(db)
		reg, err := svc.Register(ctx, testRegisterRequest("logout@example.com", "logoutuser"), testClientInfo())
		require.NoError(t, err)

		// 別トークンの2本目のセッションを用意
		other := &model.UserSession{
			SessionID:      uuid.New(),
			UserID:         reg.User.UserID,
			Token:          "other-device-token",
			ExpiresAt:      time.Now().Add(time.Hour),
			IsActive:       true,
			LastActivityAt: time.Now(),
		}
		require.NoError(t, db.Create(other).Error)

		require.NoError(t, svc.Logout(ctx, reg.User.UserID, reg.AccessToken))

		var count int64
		require.NoError(t, db.Model(&model.UserSession{}).
			Where("user_id = ? AND is_active = ?", reg.User.UserID, true).
			Count(&count).Error)
		assert.Equal(t, int64(1), count)

		var active model.UserSession
		require.NoError(t, db.First(&active, "user_id = ? AND is_active = ?", reg.User.UserID, true).Error)
		assert.Equal(t, "other-device-token", active.Token)
	})

	t.Run("正常系: 存在しないトークンでもエラーにしない", func(t *testing.T) {
		db := setupAuthTestDB(t)
		svc, _ := newAuthServiceForTest(db)
		reg, err := svc.Register(ctx, testRegisterRequest("logout2@example.com", "logoutuser2"), testClientInfo())
		require.NoError(t, err)

		err = svc.Logout(ctx, reg.User.UserID, "unknown-token")
		assert.NoError(t, err)
	})
}

func Test_authService_UpdateProfile(t *testing.T) {
	ctx := context.Background()

	strPtr := func(s string) *string { return &s }

	t.Run("正常系: 名前とアバターURLを部分更新できる", func(t *testing.T) {
		db := setupAuthTestDB(t)
		svc, _ := newAuthServiceForTest(db)
		reg, err := svc.Register(ctx, testRegisterRequest("profile@example.com", "profileuser"), testClientInfo())
		require.NoError(t, err)

		updated, err := svc.UpdateProfile(ctx, reg.User.UserID, &model.UpdateProfileRequest{
			FullName:  strPtr("テスト 次郎"),
			AvatarURL: strPtr("https://example.com/avatar.png"),
		})
		require.NoError(t, err)
		assert.Equal(t, "テスト 次郎", updated.FullName)
		assert.Equal(t, "https://example.com/avatar.png", updated.AvatarURL)
		// 指定しなかった項目は変わらない
		assert.Equal(t, "profileuser", updated.UserName)
	})

	t.Run("正常系: 変更が無ければそのまま返す", func(t *testing.T) {
		db := setupAuthTestDB(t)
		svc, _ := newAuthServiceForTest(db)
		reg, err := svc.Register(ctx, testRegisterRequest("noop@example.com", "noopuser"), testClientInfo())
		require.NoError(t, err)

		updated, err := svc.UpdateProfile(ctx, reg.User.UserID, &model.UpdateProfileRequest{})
		require.NoError(t, err)
		assert.Equal(t, "noopuser", updated.UserName)
	})

	t.Run("異常系: 他ユーザーのユーザー名に変更しようとすると競合", func(t *testing.T) {
		db := setupAuthTestDB(t)
		svc, _ := newAuthServiceForTest(db)
		_, err := svc.Register(ctx, testRegisterRequest("first@example.com", "firstuser"), testClientInfo())
		require.NoError(t, err)
		second, err := svc.Register(ctx, testRegisterRequest("second@example.com", "seconduser"), testClientInfo())
		require.NoError(t, err)

		_, err = svc.UpdateProfile(ctx, second.User.UserID, &model.UpdateProfileRequest{
			UserName: strPtr("firstuser"),
		})
		assert.ErrorIs(t, err, model.ErrConflict)
	})
}

func Test_authService_ChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: 変更後は全セッションが無効化され新パスワードでログインできる", func(t *testing.T) {
		db := setupAuthTestDB(t)
		svc, _ := newAuthServiceForTest(db)
		reg, err := svc.Register(ctx, testRegisterRequest("pw@example.com", "pwuser"), testClientInfo())
		require.NoError(t, err)

		err = svc.ChangePassword(ctx, reg.User.UserID, &model.ChangePasswordRequest{
			CurrentPassword: "password123",
			NewPassword:     "new-password456",
		})
		require.NoError(t, err)

		var count int64
		require.NoError(t, db.Model(&model.UserSession{}).
			Where("user_id = ? AND is_active = ?", reg.User.UserID, true).
			Count(&count).Error)
		assert.Equal(t, int64(0), count)

		_, err = svc.Login(ctx, &model.LoginRequest{
			Email:    "pw@example.com",
			Password: "new-password456",
		}, testClientInfo())
		assert.NoError(t, err)
	})

	t.Run("異常系: 現在のパスワードが違う", func(t *testing.T) {
		db := setupAuthTestDB(t)
		svc, _ := newAuthServiceForTest(db)
		reg, err := svc.Register(ctx, testRegisterRequest("pw2@example.com", "pwuser2"), testClientInfo())
		require.NoError(t, err)

		err = svc.ChangePassword(ctx, reg.User.UserID, &model.ChangePasswordRequest{
			CurrentPassword: "wrong-password",
			NewPassword:     "new-password456",
		})
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	})
}
