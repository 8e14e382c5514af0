// internal/service/answer_service_test.go
package service

import (
	"context"
	"testing"

	"flashdeck/internal/model"
	"flashdeck/internal/repository/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// トランザクション用のDBハンドル。リポジトリはモックなのでテーブルは不要。
func setupAnswerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to connect database for testing")
	return db
}

func Test_checkAnswer(t *testing.T) {
	tests := []struct {
		name          string
		userAnswer    string
		correctAnswer string
		want          bool
	}{
		{name: "完全一致", userAnswer: "Paris", correctAnswer: "Paris", want: true},
		{name: "大文字小文字の違いは無視", userAnswer: "paris", correctAnswer: "Paris", want: true},
		{name: "前後の空白は無視", userAnswer: "  Paris ", correctAnswer: "Paris", want: true},
		{name: "不一致", userAnswer: "London", correctAnswer: "Paris", want: false},
		{name: "空文字と空白のみは一致", userAnswer: "   ", correctAnswer: "", want: true},
		{name: "日本語の回答", userAnswer: "りんご", correctAnswer: "りんご", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, checkAnswer(tt.userAnswer, tt.correctAnswer))
		})
	}
}

func Test_answerService_SubmitAnswer(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	deckID := uuid.New()
	cardID := uuid.New()
	deck := &model.Deck{DeckID: deckID, UserID: userID, Title: "デッキ"}
	card := &model.Card{CardID: cardID, DeckID: deckID, Question: "フランスの首都は？", Answer: "Paris"}

	t.Run("正常系: 初回回答は新規作成され正誤判定される", func(t *testing.T) {
		db := setupAnswerTestDB(t)
		mockDeckRepo := new(mocks.DeckRepository)
		mockCardRepo := new(mocks.CardRepository)
		mockAnswerRepo := new(mocks.AnswerRepository)
		svc := NewAnswerService(db, mockDeckRepo, mockCardRepo, mockAnswerRepo)

		mockDeckRepo.On("FindOwned", ctx, mock.Anything, userID, deckID).Return(deck, nil).Once()
		mockCardRepo.On("FindByID", ctx, mock.Anything, deckID, cardID).Return(card, nil).Once()
		mockAnswerRepo.On("FindByCardAndUser", ctx, mock.Anything, cardID, userID).Return(nil, model.ErrNotFound).Once()
		mockAnswerRepo.On("Create", ctx, mock.Anything, mock.MatchedBy(func(a *model.UserCardAnswer) bool {
			return a.CardID == cardID && a.UserID == userID && a.IsCorrect && a.StudySessionID == nil
		})).Return(nil).Once()

		resp, err := svc.SubmitAnswer(ctx, userID, deckID, cardID, &model.SubmitAnswerRequest{UserAnswer: " paris "})
		require.NoError(t, err)
		assert.True(t, resp.Answer.IsCorrect)
		assert.Equal(t, "Paris", resp.CorrectAnswer)
		mockAnswerRepo.AssertExpectations(t)
	})

	t.Run("正常系: 再回答は既存行を上書きする", func(t *testing.T) {
		db := setupAnswerTestDB(t)
		mockDeckRepo := new(mocks.DeckRepository)
		mockCardRepo := new(mocks.CardRepository)
		mockAnswerRepo := new(mocks.AnswerRepository)
		svc := NewAnswerService(db, mockDeckRepo, mockCardRepo, mockAnswerRepo)

		existing := &model.UserCardAnswer{
			AnswerID:   uuid.New(),
			CardID:     cardID,
			UserID:     userID,
			UserAnswer: "London",
			IsCorrect:  false,
		}
		mockDeckRepo.On("FindOwned", ctx, mock.Anything, userID, deckID).Return(deck, nil).Once()
		mockCardRepo.On("FindByID", ctx, mock.Anything, deckID, cardID).Return(card, nil).Once()
		mockAnswerRepo.On("FindByCardAndUser", ctx, mock.Anything, cardID, userID).Return(existing, nil).Once()
		mockAnswerRepo.On("Update", ctx, mock.Anything, existing.AnswerID, map[string]interface{}{
			"user_answer": "Paris",
			"is_correct":  true,
		}).Return(nil).Once()

		resp, err := svc.SubmitAnswer(ctx, userID, deckID, cardID, &model.SubmitAnswerRequest{UserAnswer: "Paris"})
		require.NoError(t, err)
		assert.True(t, resp.Answer.IsCorrect)
		assert.Equal(t, existing.AnswerID, resp.Answer.AnswerID)
		mockAnswerRepo.AssertExpectations(t)
		mockAnswerRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("正常系: 不正解でも記録され正答が返る", func(t *testing.T) {
		db := setupAnswerTestDB(t)
		mockDeckRepo := new(mocks.DeckRepository)
		mockCardRepo := new(mocks.CardRepository)
		mockAnswerRepo := new(mocks.AnswerRepository)
		svc := NewAnswerService(db, mockDeckRepo, mockCardRepo, mockAnswerRepo)

		mockDeckRepo.On("FindOwned", ctx, mock.Anything, userID, deckID).Return(deck, nil).Once()
		mockCardRepo.On("FindByID", ctx, mock.Anything, deckID, cardID).Return(card, nil).Once()
		mockAnswerRepo.On("FindByCardAndUser", ctx, mock.Anything, cardID, userID).Return(nil, model.ErrNotFound).Once()
		mockAnswerRepo.On("Create", ctx, mock.Anything, mock.MatchedBy(func(a *model.UserCardAnswer) bool {
			return !a.IsCorrect
		})).Return(nil).Once()

		resp, err := svc.SubmitAnswer(ctx, userID, deckID, cardID, &model.SubmitAnswerRequest{UserAnswer: "London"})
		require.NoError(t, err)
		assert.False(t, resp.Answer.IsCorrect)
		assert.Equal(t, "Paris", resp.CorrectAnswer)
	})

	t.Run("異常系: デッキが見つからない", func(t *testing.T) {
		db := setupAnswerTestDB(t)
		mockDeckRepo := new(mocks.DeckRepository)
		mockCardRepo := new(mocks.CardRepository)
		mockAnswerRepo := new(mocks.AnswerRepository)
		svc := NewAnswerService(db, mockDeckRepo, mockCardRepo, mockAnswerRepo)

		mockDeckRepo.On("FindOwned", ctx, mock.Anything, userID, deckID).Return(nil, model.ErrNotFound).Once()

		_, err := svc.SubmitAnswer(ctx, userID, deckID, cardID, &model.SubmitAnswerRequest{UserAnswer: "Paris"})
		assert.ErrorIs(t, err, model.ErrNotFound)
		mockCardRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("異常系: カードがデッキに属していない", func(t *testing.T) {
		db := setupAnswerTestDB(t)
		mockDeckRepo := new(mocks.DeckRepository)
		mockCardRepo := new(mocks.CardRepository)
		mockAnswerRepo := new(mocks.AnswerRepository)
		svc := NewAnswerService(db, mockDeckRepo, mockCardRepo, mockAnswerRepo)

		mockDeckRepo.On("FindOwned", ctx, mock.Anything, userID, deckID).Return(deck, nil).Once()
		mockCardRepo.On("FindByID", ctx, mock.Anything, deckID, cardID).Return(nil, model.ErrNotFound).Once()

		_, err := svc.SubmitAnswer(ctx, userID, deckID, cardID, &model.SubmitAnswerRequest{UserAnswer: "Paris"})
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func Test_answerService_GetDeckAnswers(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	deckID := uuid.New()
	deck := &model.Deck{DeckID: deckID, UserID: userID, Title: "デッキ"}

	t.Run("正常系: 回答状況と統計を集計する", func(t *testing.T) {
		db := setupAnswerTestDB(t)
		mockDeckRepo := new(mocks.DeckRepository)
		mockCardRepo := new(mocks.CardRepository)
		mockAnswerRepo := new(mocks.AnswerRepository)
		svc := NewAnswerService(db, mockDeckRepo, mockCardRepo, mockAnswerRepo)

		card1 := &model.Card{CardID: uuid.New(), DeckID: deckID, Question: "Q1", Answer: "A1"}
		card2 := &model.Card{CardID: uuid.New(), DeckID: deckID, Question: "Q2", Answer: "A2"}
		card3 := &model.Card{CardID: uuid.New(), DeckID: deckID, Question: "Q3", Answer: "A3"}
		answers := []*model.UserCardAnswer{
			{AnswerID: uuid.New(), CardID: card1.CardID, UserID: userID, IsCorrect: true},
			{AnswerID: uuid.New(), CardID: card2.CardID, UserID: userID, IsCorrect: false},
		}

		mockDeckRepo.On("FindOwned", ctx, db, userID, deckID).Return(deck, nil).Once()
		mockCardRepo.On("FindByDeck", ctx, db, deckID).Return([]*model.Card{card1, card2, card3}, nil).Once()
		mockAnswerRepo.On("FindByDeckAndUser", ctx, db, deckID, userID).Return(answers, nil).Once()

		resp, err := svc.GetDeckAnswers(ctx, userID, deckID)
		require.NoError(t, err)
		require.Len(t, resp.Cards, 3)
		assert.NotNil(t, resp.Cards[0].Answer)
		assert.Nil(t, resp.Cards[2].Answer)
		assert.Equal(t, 3, resp.Statistics.TotalCards)
		assert.Equal(t, 2, resp.Statistics.AnsweredCards)
		assert.Equal(t, 1, resp.Statistics.CorrectAnswers)
		// 正答率は回答済みカードに対する割合
		assert.InDelta(t, 50.0, resp.Statistics.Accuracy, 0.001)
	})

	t.Run("正常系: 回答が1件も無ければ正答率は0", func(t *testing.T) {
		db := setupAnswerTestDB(t)
		mockDeckRepo := new(mocks.DeckRepository)
		mockCardRepo := new(mocks.CardRepository)
		mockAnswerRepo := new(mocks.AnswerRepository)
		svc := NewAnswerService(db, mockDeckRepo, mockCardRepo, mockAnswerRepo)

		card1 := &model.Card{CardID: uuid.New(), DeckID: deckID, Question: "Q1", Answer: "A1"}
		mockDeckRepo.On("FindOwned", ctx, db, userID, deckID).Return(deck, nil).Once()
		mockCardRepo.On("FindByDeck", ctx, db, deckID).Return([]*model.Card{card1}, nil).Once()
		mockAnswerRepo.On("FindByDeckAndUser", ctx, db, deckID, userID).Return([]*model.UserCardAnswer{}, nil).Once()

		resp, err := svc.GetDeckAnswers(ctx, userID, deckID)
		require.NoError(t, err)
		assert.Equal(t, 0, resp.Statistics.AnsweredCards)
		assert.InDelta(t, 0.0, resp.Statistics.Accuracy, 0.001)
	})
}

func Test_answerService_GetAnswerStats(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	tests := []struct {
		name         string
		total        int64
		correct      int64
		wantAccuracy float64
	}{
		{name: "正常系: 通常の正答率", total: 10, correct: 7, wantAccuracy: 70.0},
		{name: "正常系: 回答ゼロならゼロ除算にならない", total: 0, correct: 0, wantAccuracy: 0.0},
		{name: "正常系: 全問正解", total: 4, correct: 4, wantAccuracy: 100.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupAnswerTestDB(t)
			mockAnswerRepo := new(mocks.AnswerRepository)
			svc := NewAnswerService(db, new(mocks.DeckRepository), new(mocks.CardRepository), mockAnswerRepo)

			mockAnswerRepo.On("CountByUser", ctx, db, userID).Return(tt.total, tt.correct, nil).Once()

			stats, err := svc.GetAnswerStats(ctx, userID)
			require.NoError(t, err)
			assert.Equal(t, tt.total, stats.TotalAnswers)
			assert.Equal(t, tt.correct, stats.CorrectAnswers)
			assert.InDelta(t, tt.wantAccuracy, stats.Accuracy, 0.001)
		})
	}
}
