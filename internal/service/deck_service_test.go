// internal/service/deck_service_test.go
package service

import (
	"context"
	"fmt"
	"testing"

	"flashdeck/internal/config"
	"flashdeck/internal/model"
	"flashdeck/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupDeckTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to connect database for testing")
	require.NoError(t, db.AutoMigrate(&model.Deck{}, &model.Card{}, &model.DeckProgress{}))
	return db
}

func newDeckServiceForTest(db *gorm.DB) DeckService {
	cfg := &config.Config{}
	cfg.App.RecentDecksLimit = 5
	return NewDeckService(db, repository.NewGormDeckRepository(), cfg)
}

func Test_deckService_CreateAndGet(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: デッキを作成して取得できる", func(t *testing.T) {
		db := setupDeckTestDB(t)
		svc := newDeckServiceForTest(db)
		userID := uuid.New()

		created, err := svc.CreateDeck(ctx, userID, &model.CreateDeckRequest{
			Title:       "英単語",
			Description: "基本の英単語",
		})
		require.NoError(t, err)
		assert.Equal(t, userID, created.UserID)
		assert.False(t, created.IsPublic)

		got, err := svc.GetDeck(ctx, userID, created.DeckID)
		require.NoError(t, err)
		assert.Equal(t, "英単語", got.Title)
	})

	t.Run("正常系: 公開デッキは他ユーザーも閲覧できる", func(t *testing.T) {
		db := setupDeckTestDB(t)
		svc := newDeckServiceForTest(db)
		owner := uuid.New()

		created, err := svc.CreateDeck(ctx, owner, &model.CreateDeckRequest{
			Title:       "公開デッキ",
			Description: "みんなの単語帳",
			IsPublic:    true,
		})
		require.NoError(t, err)

		got, err := svc.GetDeck(ctx, uuid.New(), created.DeckID)
		require.NoError(t, err)
		assert.Equal(t, created.DeckID, got.DeckID)
	})

	t.Run("異常系: 非公開デッキは他ユーザーから閲覧不可", func(t *testing.T) {
		db := setupDeckTestDB(t)
		svc := newDeckServiceForTest(db)
		owner := uuid.New()

		created, err := svc.CreateDeck(ctx, owner, &model.CreateDeckRequest{
			Title:       "非公開デッキ",
			Description: "自分用",
		})
		require.NoError(t, err)

		_, err = svc.GetDeck(ctx, uuid.New(), created.DeckID)
		assert.ErrorIs(t, err, model.ErrForbidden)
	})

	t.Run("異常系: 存在しないデッキ", func(t *testing.T) {
		db := setupDeckTestDB(t)
		svc := newDeckServiceForTest(db)

		_, err := svc.GetDeck(ctx, uuid.New(), uuid.New())
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("正常系: カードは表示順で読み込まれる", func(t *testing.T) {
		db := setupDeckTestDB(t)
		svc := newDeckServiceForTest(db)
		userID := uuid.New()

		created, err := svc.CreateDeck(ctx, userID, &model.CreateDeckRequest{
			Title:       "順序テスト",
			Description: "order順",
		})
		require.NoError(t, err)

		// order を逆順で登録する
		for i := 2; i >= 0; i-- {
			require.NoError(t, db.Create(&model.Card{
				CardID:   uuid.New(),
				DeckID:   created.DeckID,
				Question: fmt.Sprintf("Q%d", i),
				Answer:   fmt.Sprintf("A%d", i),
				Order:    i,
			}).Error)
		}

		got, err := svc.GetDeck(ctx, userID, created.DeckID)
		require.NoError(t, err)
		require.Len(t, got.Cards, 3)
		assert.Equal(t, 0, got.Cards[0].Order)
		assert.Equal(t, 2, got.Cards[2].Order)
	})
}

func Test_deckService_ListDecks(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: 自分のデッキと公開デッキだけが見える", func(t *testing.T) {
		db := setupDeckTestDB(t)
		svc := newDeckServiceForTest(db)
		me := uuid.New()
		other := uuid.New()

		mine, err := svc.CreateDeck(ctx, me, &model.CreateDeckRequest{Title: "自分の", Description: "d"})
		require.NoError(t, err)
		public, err := svc.CreateDeck(ctx, other, &model.CreateDeckRequest{Title: "公開", Description: "d", IsPublic: true})
		require.NoError(t, err)
		_, err = svc.CreateDeck(ctx, other, &model.CreateDeckRequest{Title: "他人の非公開", Description: "d"})
		require.NoError(t, err)

		decks, err := svc.ListDecks(ctx, me)
		require.NoError(t, err)
		require.Len(t, decks, 2)

		ids := []uuid.UUID{decks[0].DeckID, decks[1].DeckID}
		assert.Contains(t, ids, mine.DeckID)
		assert.Contains(t, ids, public.DeckID)
	})

	t.Run("正常系: 自分のデッキ一覧はカード数付き", func(t *testing.T) {
		db := setupDeckTestDB(t)
		svc := newDeckServiceForTest(db)
		me := uuid.New()

		deck, err := svc.CreateDeck(ctx, me, &model.CreateDeckRequest{Title: "カード数", Description: "d"})
		require.NoError(t, err)
		for i := 0; i < 4; i++ {
			require.NoError(t, db.Create(&model.Card{
				CardID: uuid.New(), DeckID: deck.DeckID,
				Question: "Q", Answer: "A", Order: i,
			}).Error)
		}

		decks, err := svc.ListMyDecks(ctx, me)
		require.NoError(t, err)
		require.Len(t, decks, 1)
		assert.Equal(t, int64(4), decks[0].CardCount)
	})
}

func Test_deckService_UpdateDeck(t *testing.T) {
	ctx := context.Background()
	strPtr := func(s string) *string { return &s }
	boolP := func(b bool) *bool { return &b }

	t.Run("正常系: タイトルと公開設定を部分更新できる", func(t *testing.T) {
		db := setupDeckTestDB(t)
		svc := newDeckServiceForTest(db)
		userID := uuid.New()

		created, err := svc.CreateDeck(ctx, userID, &model.CreateDeckRequest{Title: "旧タイトル", Description: "d"})
		require.NoError(t, err)

		updated, err := svc.UpdateDeck(ctx, userID, created.DeckID, &model.UpdateDeckRequest{
			Title:    strPtr("新タイトル"),
			IsPublic: boolP(true),
		})
		require.NoError(t, err)
		assert.Equal(t, "新タイトル", updated.Title)
		assert.True(t, updated.IsPublic)
		assert.Equal(t, "d", updated.Description)
	})

	t.Run("異常系: 他ユーザーのデッキは更新できない", func(t *testing.T) {
		db := setupDeckTestDB(t)
		svc := newDeckServiceForTest(db)
		owner := uuid.New()

		created, err := svc.CreateDeck(ctx, owner, &model.CreateDeckRequest{Title: "t", Description: "d", IsPublic: true})
		require.NoError(t, err)

		// 公開デッキでも所有者以外は編集不可
		_, err = svc.UpdateDeck(ctx, uuid.New(), created.DeckID, &model.UpdateDeckRequest{
			Title: strPtr("書き換え"),
		})
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func Test_deckService_DeleteDeck(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: デッキと配下のカードが一緒に削除される", func(t *testing.T) {
		db := setupDeckTestDB(t)
		svc := newDeckServiceForTest(db)
		userID := uuid.New()

		created, err := svc.CreateDeck(ctx, userID, &model.CreateDeckRequest{Title: "削除対象", Description: "d"})
		require.NoError(t, err)
		require.NoError(t, db.Create(&model.Card{
			CardID: uuid.New(), DeckID: created.DeckID, Question: "Q", Answer: "A",
		}).Error)

		require.NoError(t, svc.DeleteDeck(ctx, userID, created.DeckID))

		var deckCount, cardCount int64
		require.NoError(t, db.Model(&model.Deck{}).Where("deck_id = ?", created.DeckID).Count(&deckCount).Error)
		require.NoError(t, db.Model(&model.Card{}).Where("deck_id = ?", created.DeckID).Count(&cardCount).Error)
		assert.Equal(t, int64(0), deckCount)
		assert.Equal(t, int64(0), cardCount)
	})

	t.Run("異常系: 他ユーザーのデッキは削除できない", func(t *testing.T) {
		db := setupDeckTestDB(t)
		svc := newDeckServiceForTest(db)
		owner := uuid.New()

		created, err := svc.CreateDeck(ctx, owner, &model.CreateDeckRequest{Title: "t", Description: "d"})
		require.NoError(t, err)

		err = svc.DeleteDeck(ctx, uuid.New(), created.DeckID)
		assert.ErrorIs(t, err, model.ErrNotFound)

		var count int64
		require.NoError(t, db.Model(&model.Deck{}).Where("deck_id = ?", created.DeckID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}
