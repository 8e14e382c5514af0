// internal/service/answer_service.go
package service

import (
	"context"
	"errors"
	"strings"

	"flashdeck/internal/middleware"
	"flashdeck/internal/model"
	"flashdeck/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AnswerService は単発回答フロー（セッション外のカード回答）を担います。
type AnswerService interface {
	SubmitAnswer(ctx context.Context, userID, deckID, cardID uuid.UUID, req *model.SubmitAnswerRequest) (*model.SubmitAnswerResponse, error)
	GetUserAnswer(ctx context.Context, userID, deckID, cardID uuid.UUID) (*model.UserCardAnswer, error)
	GetDeckAnswers(ctx context.Context, userID, deckID uuid.UUID) (*model.DeckAnswersResponse, error)
	GetAnswerStats(ctx context.Context, userID uuid.UUID) (*model.UserAnswerStats, error)
}

type answerService struct {
	db         *gorm.DB
	deckRepo   repository.DeckRepository
	cardRepo   repository.CardRepository
	answerRepo repository.AnswerRepository
}

func NewAnswerService(db *gorm.DB, deckRepo repository.DeckRepository, cardRepo repository.CardRepository, answerRepo repository.AnswerRepository) AnswerService {
	return &answerService{
		db:         db,
		deckRepo:   deckRepo,
		cardRepo:   cardRepo,
		answerRepo: answerRepo,
	}
}

// SubmitAnswer は回答テキストを判定して記録します。
// 同じカードへの再回答は既存行を上書きする（カードごとに最新の1件のみ保持）。
func (s *answerService) SubmitAnswer(ctx context.Context, userID, deckID, cardID uuid.UUID, req *model.SubmitAnswerRequest) (*model.SubmitAnswerResponse, error) {
	logger := middleware.GetLogger(ctx)
	var resp *model.SubmitAnswerResponse

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. デッキの所有者チェック
		if _, err := s.deckRepo.FindOwned(ctx, tx, userID, deckID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewAppError("DECK_NOT_FOUND", "デッキが見つかりません。", "deck_id", model.ErrNotFound)
			}
			return model.NewAppError("INTERNAL_SERVER_ERROR", "デッキの取得に失敗しました。", "", err)
		}

		// 2. カードがデッキに属することを確認
		card, err := s.cardRepo.FindByID(ctx, tx, deckID, cardID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewAppError("CARD_NOT_FOUND", "カードが見つかりません。", "card_id", model.ErrNotFound)
			}
			return model.NewAppError("INTERNAL_SERVER_ERROR", "カードの取得に失敗しました。", "", err)
		}

		// 3. 前後の空白と大文字小文字を無視して判定
		isCorrect := checkAnswer(req.UserAnswer, card.Answer)

		// 4. 既存回答があれば上書き、無ければ作成
		existing, err := s.answerRepo.FindByCardAndUser(ctx, tx, cardID, userID)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "回答の取得に失敗しました。", "", err)
		}

		var answer *model.UserCardAnswer
		if existing != nil {
			if err := s.answerRepo.Update(ctx, tx, existing.AnswerID, map[string]interface{}{
				"user_answer": req.UserAnswer,
				"is_correct":  isCorrect,
			}); err != nil {
				return model.NewAppError("INTERNAL_SERVER_ERROR", "回答の更新に失敗しました。", "", err)
			}
			existing.UserAnswer = req.UserAnswer
			existing.IsCorrect = isCorrect
			answer = existing
		} else {
			answer = &model.UserCardAnswer{
				AnswerID:   uuid.New(),
				CardID:     cardID,
				UserID:     userID,
				UserAnswer: req.UserAnswer,
				IsCorrect:  isCorrect,
			}
			if err := s.answerRepo.Create(ctx, tx, answer); err != nil {
				return model.NewAppError("INTERNAL_SERVER_ERROR", "回答の記録に失敗しました。", "", err)
			}
		}

		resp = &model.SubmitAnswerResponse{
			Answer:        answer,
			CorrectAnswer: card.Answer,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Answer submitted",
		"user_id", userID,
		"card_id", cardID,
		"is_correct", resp.Answer.IsCorrect,
	)
	return resp, nil
}

// GetUserAnswer はカードに対するユーザーの単発回答を返します。
func (s *answerService) GetUserAnswer(ctx context.Context, userID, deckID, cardID uuid.UUID) (*model.UserCardAnswer, error) {
	if _, err := s.deckRepo.FindOwned(ctx, s.db, userID, deckID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewAppError("DECK_NOT_FOUND", "デッキが見つかりません。", "deck_id", model.ErrNotFound)
		}
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "デッキの取得に失敗しました。", "", err)
	}
	if _, err := s.cardRepo.FindByID(ctx, s.db, deckID, cardID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewAppError("CARD_NOT_FOUND", "カードが見つかりません。", "card_id", model.ErrNotFound)
		}
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "カードの取得に失敗しました。", "", err)
	}

	answer, err := s.answerRepo.FindByCardAndUser(ctx, s.db, cardID, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewAppError("ANSWER_NOT_FOUND", "このカードへの回答がまだありません。", "card_id", model.ErrNotFound)
		}
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "回答の取得に失敗しました。", "", err)
	}
	return answer, nil
}

// GetDeckAnswers はデッキ内の全カードと回答状況、集計統計を返します。
func (s *answerService) GetDeckAnswers(ctx context.Context, userID, deckID uuid.UUID) (*model.DeckAnswersResponse, error) {
	if _, err := s.deckRepo.FindOwned(ctx, s.db, userID, deckID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewAppError("DECK_NOT_FOUND", "デッキが見つかりません。", "deck_id", model.ErrNotFound)
		}
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "デッキの取得に失敗しました。", "", err)
	}

	cards, err := s.cardRepo.FindByDeck(ctx, s.db, deckID)
	if err != nil {
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "カードの取得に失敗しました。", "", err)
	}
	answers, err := s.answerRepo.FindByDeckAndUser(ctx, s.db, deckID, userID)
	if err != nil {
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "回答の取得に失敗しました。", "", err)
	}

	answersByCard := make(map[uuid.UUID]*model.UserCardAnswer, len(answers))
	for _, a := range answers {
		answersByCard[a.CardID] = a
	}

	resp := &model.DeckAnswersResponse{
		Cards: make([]*model.CardWithAnswer, 0, len(cards)),
	}
	var answered, correct int
	for _, c := range cards {
		entry := &model.CardWithAnswer{Card: c}
		if a, ok := answersByCard[c.CardID]; ok {
			entry.Answer = a
			answered++
			if a.IsCorrect {
				correct++
			}
		}
		resp.Cards = append(resp.Cards, entry)
	}

	resp.Statistics = model.DeckAnswerStats{
		TotalCards:     len(cards),
		AnsweredCards:  answered,
		CorrectAnswers: correct,
		Accuracy:       percentage(correct, answered),
	}
	return resp, nil
}

// GetAnswerStats はユーザー全体の回答統計を返します。
func (s *answerService) GetAnswerStats(ctx context.Context, userID uuid.UUID) (*model.UserAnswerStats, error) {
	total, correct, err := s.answerRepo.CountByUser(ctx, s.db, userID)
	if err != nil {
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "統計の取得に失敗しました。", "", err)
	}

	stats := &model.UserAnswerStats{
		TotalAnswers:   total,
		CorrectAnswers: correct,
	}
	if total > 0 {
		stats.Accuracy = float64(correct) / float64(total) * 100
	}
	return stats, nil
}

// checkAnswer は前後の空白を除去し、大文字小文字を無視して比較します。
func checkAnswer(userAnswer, correctAnswer string) bool {
	return strings.EqualFold(strings.TrimSpace(userAnswer), strings.TrimSpace(correctAnswer))
}
