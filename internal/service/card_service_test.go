// internal/service/card_service_test.go
package service

import (
	"context"
	"fmt"
	"testing"

	"flashdeck/internal/model"
	"flashdeck/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupCardTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to connect database for testing")
	require.NoError(t, db.AutoMigrate(&model.Deck{}, &model.Card{}))
	return db
}

func newCardServiceForTest(db *gorm.DB) CardService {
	return NewCardService(db, repository.NewGormDeckRepository(), repository.NewGormCardRepository())
}

func seedCardTestDeck(t *testing.T, db *gorm.DB, userID uuid.UUID, isPublic bool) *model.Deck {
	t.Helper()
	deck := &model.Deck{
		DeckID:      uuid.New(),
		UserID:      userID,
		Title:       "カードテスト用デッキ",
		Description: "d",
		IsPublic:    isPublic,
	}
	require.NoError(t, db.Create(deck).Error)
	return deck
}

func Test_cardService_CreateCard(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: 自分のデッキにカードを追加できる", func(t *testing.T) {
		db := setupCardTestDB(t)
		svc := newCardServiceForTest(db)
		userID := uuid.New()
		deck := seedCardTestDeck(t, db, userID, false)

		card, err := svc.CreateCard(ctx, userID, deck.DeckID, &model.CreateCardRequest{
			Question: "フランスの首都は？",
			Answer:   "パリ",
			Order:    1,
		})
		require.NoError(t, err)
		assert.Equal(t, deck.DeckID, card.DeckID)
		assert.Equal(t, "パリ", card.Answer)
	})

	t.Run("異常系: 他ユーザーのデッキには追加できない", func(t *testing.T) {
		db := setupCardTestDB(t)
		svc := newCardServiceForTest(db)
		owner := uuid.New()
		// 公開デッキでも書き込みは所有者のみ
		deck := seedCardTestDeck(t, db, owner, true)

		_, err := svc.CreateCard(ctx, uuid.New(), deck.DeckID, &model.CreateCardRequest{
			Question: "Q", Answer: "A",
		})
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func Test_cardService_ListCards(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: カードは order 順で返る", func(t *testing.T) {
		db := setupCardTestDB(t)
		svc := newCardServiceForTest(db)
		userID := uuid.New()
		deck := seedCardTestDeck(t, db, userID, false)

		for i := 2; i >= 0; i-- {
			_, err := svc.CreateCard(ctx, userID, deck.DeckID, &model.CreateCardRequest{
				Question: fmt.Sprintf("Q%d", i),
				Answer:   fmt.Sprintf("A%d", i),
				Order:    i,
			})
			require.NoError(t, err)
		}

		cards, err := svc.ListCards(ctx, userID, deck.DeckID)
		require.NoError(t, err)
		require.Len(t, cards, 3)
		assert.Equal(t, "Q0", cards[0].Question)
		assert.Equal(t, "Q2", cards[2].Question)
	})

	t.Run("正常系: 公開デッキのカードは他ユーザーも読める", func(t *testing.T) {
		db := setupCardTestDB(t)
		svc := newCardServiceForTest(db)
		owner := uuid.New()
		deck := seedCardTestDeck(t, db, owner, true)
		_, err := svc.CreateCard(ctx, owner, deck.DeckID, &model.CreateCardRequest{Question: "Q", Answer: "A"})
		require.NoError(t, err)

		cards, err := svc.ListCards(ctx, uuid.New(), deck.DeckID)
		require.NoError(t, err)
		assert.Len(t, cards, 1)
	})

	t.Run("異常系: 非公開デッキのカードは他ユーザーから読めない", func(t *testing.T) {
		db := setupCardTestDB(t)
		svc := newCardServiceForTest(db)
		owner := uuid.New()
		deck := seedCardTestDeck(t, db, owner, false)

		_, err := svc.ListCards(ctx, uuid.New(), deck.DeckID)
		assert.ErrorIs(t, err, model.ErrForbidden)
	})
}

func Test_cardService_UpdateCard(t *testing.T) {
	ctx := context.Background()
	strPtr := func(s string) *string { return &s }

	t.Run("正常系: 問題文だけを部分更新できる", func(t *testing.T) {
		db := setupCardTestDB(t)
		svc := newCardServiceForTest(db)
		userID := uuid.New()
		deck := seedCardTestDeck(t, db, userID, false)
		card, err := svc.CreateCard(ctx, userID, deck.DeckID, &model.CreateCardRequest{
			Question: "旧問題", Answer: "答え",
		})
		require.NoError(t, err)

		updated, err := svc.UpdateCard(ctx, userID, deck.DeckID, card.CardID, &model.UpdateCardRequest{
			Question: strPtr("新問題"),
		})
		require.NoError(t, err)
		assert.Equal(t, "新問題", updated.Question)
		assert.Equal(t, "答え", updated.Answer)
	})

	t.Run("異常系: 存在しないカード", func(t *testing.T) {
		db := setupCardTestDB(t)
		svc := newCardServiceForTest(db)
		userID := uuid.New()
		deck := seedCardTestDeck(t, db, userID, false)

		_, err := svc.UpdateCard(ctx, userID, deck.DeckID, uuid.New(), &model.UpdateCardRequest{
			Question: strPtr("新問題"),
		})
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func Test_cardService_DeleteCard(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: カードを削除できる", func(t *testing.T) {
		db := setupCardTestDB(t)
		svc := newCardServiceForTest(db)
		userID := uuid.New()
		deck := seedCardTestDeck(t, db, userID, false)
		card, err := svc.CreateCard(ctx, userID, deck.DeckID, &model.CreateCardRequest{
			Question: "Q", Answer: "A",
		})
		require.NoError(t, err)

		require.NoError(t, svc.DeleteCard(ctx, userID, deck.DeckID, card.CardID))

		var count int64
		require.NoError(t, db.Model(&model.Card{}).Where("card_id = ?", card.CardID).Count(&count).Error)
		assert.Equal(t, int64(0), count)
	})

	t.Run("異常系: 削除済みカードの再削除", func(t *testing.T) {
		db := setupCardTestDB(t)
		svc := newCardServiceForTest(db)
		userID := uuid.New()
		deck := seedCardTestDeck(t, db, userID, false)
		card, err := svc.CreateCard(ctx, userID, deck.DeckID, &model.CreateCardRequest{
			Question: "Q", Answer: "A",
		})
		require.NoError(t, err)

		require.NoError(t, svc.DeleteCard(ctx, userID, deck.DeckID, card.CardID))
		err = svc.DeleteCard(ctx, userID, deck.DeckID, card.CardID)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}
