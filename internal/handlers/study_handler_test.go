// internal/handlers/study_handler_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"flashdeck/internal/config"
	"flashdeck/internal/middleware"
	"flashdeck/internal/model"
	"flashdeck/internal/repository"
	"flashdeck/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// --- テストヘルパー関数 ---

// setupStudyHandlerTest はインメモリDBと実サービスを組んだルーターを返します。
// 認証はテスト用の X-User-ID ヘッダー方式で行います。
func setupStudyHandlerTest(t *testing.T) (*chi.Mux, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to connect database for testing")
	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Deck{},
		&model.Card{},
		&model.UserCardAnswer{},
		&model.StudySession{},
		&model.DeckProgress{},
	))

	cfg := &config.Config{}
	svc := service.NewStudyService(
		db,
		repository.NewGormDeckRepository(),
		repository.NewGormCardRepository(),
		repository.NewGormStudySessionRepository(),
		repository.NewGormDeckProgressRepository(),
		repository.NewGormAnswerRepository(),
		cfg,
	)
	h := NewStudyHandler(svc, nil)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.DevUserContextMiddleware)
		r.Route("/study", func(r chi.Router) {
			r.Post("/sessions", h.StartSession)
			r.Post("/sessions/{sessionID}/answers", h.PostSessionAnswer)
			r.Post("/sessions/{sessionID}/end", h.EndSession)
			r.Get("/progress", h.ListDeckProgress)
		})
		r.Get("/decks/{deckID}/progress", h.GetDeckProgress)
		r.Get("/decks/{deckID}/study-session", h.GetCurrentSession)
	})
	return r, db
}

func seedDeckWithCards(t *testing.T, db *gorm.DB, userID uuid.UUID, cardCount int) (*model.Deck, []*model.Card) {
	t.Helper()
	deck := &model.Deck{
		DeckID:      uuid.New(),
		UserID:      userID,
		Title:       "テスト用デッキ",
		Description: "テスト用",
	}
	require.NoError(t, db.Create(deck).Error)

	cards := make([]*model.Card, 0, cardCount)
	for i := 0; i < cardCount; i++ {
		card := &model.Card{
			CardID:   uuid.New(),
			DeckID:   deck.DeckID,
			Question: fmt.Sprintf("問題%d", i+1),
			Answer:   fmt.Sprintf("答え%d", i+1),
			Order:    i,
		}
		require.NoError(t, db.Create(card).Error)
		cards = append(cards, card)
	}
	return deck, cards
}

func doJSONRequest(t *testing.T, router *chi.Mux, method, path string, userID *uuid.UUID, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != nil {
		req.Header.Set("X-User-ID", userID.String())
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// --- Test StartSession ---

func TestStudyHandler_StartSession(t *testing.T) {
	t.Run("正常系: 新規作成は201、再開は200", func(t *testing.T) {
		router, db := setupStudyHandlerTest(t)
		userID := uuid.New()
		deck, _ := seedDeckWithCards(t, db, userID, 2)

		body := map[string]interface{}{"deck_id": deck.DeckID.String()}

		rec := doJSONRequest(t, router, http.MethodPost, "/study/sessions", &userID, body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var first model.StartSessionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
		assert.False(t, first.Resumed)
		assert.Equal(t, 2, first.Session.TotalCards)

		rec = doJSONRequest(t, router, http.MethodPost, "/study/sessions", &userID, body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var second model.StartSessionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
		assert.True(t, second.Resumed)
		assert.Equal(t, first.Session.SessionID, second.Session.SessionID)
	})

	t.Run("異常系: deck_id が無いと400", func(t *testing.T) {
		router, _ := setupStudyHandlerTest(t)
		userID := uuid.New()

		rec := doJSONRequest(t, router, http.MethodPost, "/study/sessions", &userID, map[string]interface{}{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("異常系: 存在しないデッキは404", func(t *testing.T) {
		router, _ := setupStudyHandlerTest(t)
		userID := uuid.New()

		body := map[string]interface{}{"deck_id": uuid.New().String()}
		rec := doJSONRequest(t, router, http.MethodPost, "/study/sessions", &userID, body)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("異常系: 認証ヘッダーが無いと403", func(t *testing.T) {
		router, _ := setupStudyHandlerTest(t)

		rec := doJSONRequest(t, router, http.MethodPost, "/study/sessions", nil, map[string]interface{}{})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

// --- Test PostSessionAnswer / EndSession ---

func TestStudyHandler_SessionFlow(t *testing.T) {
	t.Run("正常系: 回答記録から完了までの一連のフロー", func(t *testing.T) {
		router, db := setupStudyHandlerTest(t)
		userID := uuid.New()
		deck, cards := seedDeckWithCards(t, db, userID, 2)

		rec := doJSONRequest(t, router, http.MethodPost, "/study/sessions", &userID,
			map[string]interface{}{"deck_id": deck.DeckID.String()})
		require.Equal(t, http.StatusCreated, rec.Code)
		var started model.StartSessionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
		sessionID := started.Session.SessionID

		// 1枚目: 正解
		rec = doJSONRequest(t, router, http.MethodPost,
			fmt.Sprintf("/study/sessions/%s/answers", sessionID), &userID,
			map[string]interface{}{"card_id": cards[0].CardID.String(), "is_correct": true})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var answered model.RecordAnswerResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &answered))
		assert.Equal(t, 1, answered.Session.CorrectAnswers)
		assert.InDelta(t, 50.0, answered.Session.SessionProgress, 0.001)

		// 2枚目: 不正解
		rec = doJSONRequest(t, router, http.MethodPost,
			fmt.Sprintf("/study/sessions/%s/answers", sessionID), &userID,
			map[string]interface{}{"card_id": cards[1].CardID.String(), "is_correct": false})
		require.Equal(t, http.StatusOK, rec.Code)

		// 進行中セッションは回答履歴付きで取得できる
		rec = doJSONRequest(t, router, http.MethodGet,
			fmt.Sprintf("/decks/%s/study-session", deck.DeckID), &userID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var current model.StudySession
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &current))
		assert.Len(t, current.Answers, 2)

		// 完了
		rec = doJSONRequest(t, router, http.MethodPost,
			fmt.Sprintf("/study/sessions/%s/end", sessionID), &userID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var stats model.SessionStats
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
		assert.Equal(t, 1, stats.CorrectAnswers)
		assert.InDelta(t, 50.0, stats.Accuracy, 0.001)

		// 完了済みセッションの再終了は404
		rec = doJSONRequest(t, router, http.MethodPost,
			fmt.Sprintf("/study/sessions/%s/end", sessionID), &userID, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("異常系: is_correct が無いと400", func(t *testing.T) {
		router, db := setupStudyHandlerTest(t)
		userID := uuid.New()
		deck, cards := seedDeckWithCards(t, db, userID, 1)

		rec := doJSONRequest(t, router, http.MethodPost, "/study/sessions", &userID,
			map[string]interface{}{"deck_id": deck.DeckID.String()})
		require.Equal(t, http.StatusCreated, rec.Code)
		var started model.StartSessionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))

		rec = doJSONRequest(t, router, http.MethodPost,
			fmt.Sprintf("/study/sessions/%s/answers", started.Session.SessionID), &userID,
			map[string]interface{}{"card_id": cards[0].CardID.String()})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("異常系: セッションIDの形式が不正だと400", func(t *testing.T) {
		router, _ := setupStudyHandlerTest(t)
		userID := uuid.New()

		rec := doJSONRequest(t, router, http.MethodPost, "/study/sessions/not-a-uuid/end", &userID, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

// --- Test 進捗取得 ---

func TestStudyHandler_Progress(t *testing.T) {
	t.Run("正常系: デッキ進捗と一覧を取得できる", func(t *testing.T) {
		router, db := setupStudyHandlerTest(t)
		userID := uuid.New()
		deck, _ := seedDeckWithCards(t, db, userID, 3)

		rec := doJSONRequest(t, router, http.MethodPost, "/study/sessions", &userID,
			map[string]interface{}{"deck_id": deck.DeckID.String()})
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = doJSONRequest(t, router, http.MethodGet,
			fmt.Sprintf("/decks/%s/progress", deck.DeckID), &userID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var progress model.DeckProgress
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &progress))
		assert.Equal(t, 3, progress.TotalCards)

		rec = doJSONRequest(t, router, http.MethodGet, "/study/progress", &userID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var list []*model.DeckProgress
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		assert.Len(t, list, 1)
	})

	t.Run("正常系: 進捗が無ければ空配列を返す", func(t *testing.T) {
		router, _ := setupStudyHandlerTest(t)
		userID := uuid.New()

		rec := doJSONRequest(t, router, http.MethodGet, "/study/progress", &userID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})

	t.Run("異常系: 学習履歴の無いデッキの進捗は404", func(t *testing.T) {
		router, db := setupStudyHandlerTest(t)
		userID := uuid.New()
		deck, _ := seedDeckWithCards(t, db, userID, 1)

		rec := doJSONRequest(t, router, http.MethodGet,
			fmt.Sprintf("/decks/%s/progress", deck.DeckID), &userID, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
