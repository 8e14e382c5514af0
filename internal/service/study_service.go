// internal/service/study_service.go
package service

import (
	"context"
	"errors"
	"math"
	"time"

	"flashdeck/internal/config"
	"flashdeck/internal/middleware"
	"flashdeck/internal/model"
	"flashdeck/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StudyService は学習セッションと進捗ロールアップの管理を担います。
// セッションと進捗の更新は必ず同一トランザクション・行ロック下で行う。
type StudyService interface {
	StartSession(ctx context.Context, userID uuid.UUID, req *model.StartSessionRequest) (*model.StartSessionResponse, error)
	RecordAnswer(ctx context.Context, userID uuid.UUID, req *model.RecordAnswerRequest) (*model.RecordAnswerResponse, error)
	EndSession(ctx context.Context, userID, sessionID uuid.UUID) (*model.SessionStats, error)
	GetCurrentSession(ctx context.Context, userID, deckID uuid.UUID) (*model.StudySession, error)
	GetDeckProgress(ctx context.Context, userID, deckID uuid.UUID) (*model.DeckProgress, error)
	ListDeckProgress(ctx context.Context, userID uuid.UUID) ([]*model.DeckProgress, error)
}

type studyService struct {
	db           *gorm.DB
	deckRepo     repository.DeckRepository
	cardRepo     repository.CardRepository
	sessionRepo  repository.StudySessionRepository
	progressRepo repository.DeckProgressRepository
	answerRepo   repository.AnswerRepository
	cfg          *config.Config
}

func NewStudyService(
	db *gorm.DB,
	deckRepo repository.DeckRepository,
	cardRepo repository.CardRepository,
	sessionRepo repository.StudySessionRepository,
	progressRepo repository.DeckProgressRepository,
	answerRepo repository.AnswerRepository,
	cfg *config.Config,
) StudyService {
	return &studyService{
		db:           db,
		deckRepo:     deckRepo,
		cardRepo:     cardRepo,
		sessionRepo:  sessionRepo,
		progressRepo: progressRepo,
		answerRepo:   answerRepo,
		cfg:          cfg,
	}
}

// StartSession は学習セッションを開始します。
// 同じデッキの未完了セッションが既にあればそれを返す（冪等）。
// 新規作成時はデッキ進捗の行が無ければ併せて作成する。
func (s *studyService) StartSession(ctx context.Context, userID uuid.UUID, req *model.StartSessionRequest) (*model.StartSessionResponse, error) {
	logger := middleware.GetLogger(ctx)
	var resp *model.StartSessionResponse

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. デッキの閲覧権限チェック（自分のデッキまたは公開デッキ）
		deck, err := s.findAccessibleDeck(ctx, tx, userID, req.DeckID)
		if err != nil {
			return err
		}

		// 2. 既存の未完了セッションがあれば再開
		existing, err := s.sessionRepo.FindActiveByDeck(ctx, tx, userID, deck.DeckID)
		if err == nil {
			progress, perr := s.progressRepo.Find(ctx, tx, userID, deck.DeckID)
			if perr != nil && !errors.Is(perr, model.ErrNotFound) {
				return model.NewAppError("INTERNAL_SERVER_ERROR", "進捗の取得に失敗しました。", "", perr)
			}
			resp = &model.StartSessionResponse{
				Session:      existing,
				DeckProgress: progress,
				Resumed:      true,
			}
			return nil
		}
		if !errors.Is(err, model.ErrNotFound) {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "セッションの確認に失敗しました。", "", err)
		}

		// 3. 開始時点のカード数をスナップショット
		totalCards, err := s.deckRepo.CountCards(ctx, tx, deck.DeckID)
		if err != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "カード数の取得に失敗しました。", "", err)
		}

		session := &model.StudySession{
			SessionID:  uuid.New(),
			UserID:     userID,
			DeckID:     deck.DeckID,
			StartTime:  time.Now(),
			TotalCards: int(totalCards),
		}
		if err := s.sessionRepo.Create(ctx, tx, session); err != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "セッションの作成に失敗しました。", "", err)
		}

		// 4. 進捗行の find-or-create
		progress, err := s.progressRepo.Find(ctx, tx, userID, deck.DeckID)
		if errors.Is(err, model.ErrNotFound) {
			progress = &model.DeckProgress{
				ProgressID: uuid.New(),
				UserID:     userID,
				DeckID:     deck.DeckID,
				TotalCards: int(totalCards),
			}
			if err := s.progressRepo.Create(ctx, tx, progress); err != nil {
				return model.NewAppError("INTERNAL_SERVER_ERROR", "進捗の作成に失敗しました。", "", err)
			}
		} else if err != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "進捗の取得に失敗しました。", "", err)
		}

		resp = &model.StartSessionResponse{
			Session:      session,
			DeckProgress: progress,
			Resumed:      false,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Study session started",
		"user_id", userID,
		"deck_id", req.DeckID,
		"session_id", resp.Session.SessionID,
		"resumed", resp.Resumed,
	)
	return resp, nil
}

// RecordAnswer はセッション内の1回答を記録し、セッションと進捗の両方を更新します。
func (s *studyService) RecordAnswer(ctx context.Context, userID uuid.UUID, req *model.RecordAnswerRequest) (*model.RecordAnswerResponse, error) {
	logger := middleware.GetLogger(ctx)
	var resp *model.RecordAnswerResponse

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. 未完了セッションを行ロック付きで取得
		session, err := s.sessionRepo.FindActiveByIDForUpdate(ctx, tx, userID, req.SessionID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewAppError("SESSION_NOT_FOUND", "有効な学習セッションが見つかりません。", "session_id", model.ErrNotFound)
			}
			return model.NewAppError("INTERNAL_SERVER_ERROR", "セッションの取得に失敗しました。", "", err)
		}

		// 2. カードがセッションのデッキに属することを確認
		if _, err := s.cardRepo.FindByID(ctx, tx, session.DeckID, req.CardID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewAppError("CARD_NOT_FOUND", "カードが見つかりません。", "card_id", model.ErrNotFound)
			}
			return model.NewAppError("INTERNAL_SERVER_ERROR", "カードの取得に失敗しました。", "", err)
		}

		isCorrect := *req.IsCorrect

		// 3. 回答イベントを追記
		answer := &model.UserCardAnswer{
			AnswerID:       uuid.New(),
			CardID:         req.CardID,
			UserID:         userID,
			StudySessionID: &session.SessionID,
			IsCorrect:      isCorrect,
			ResponseTimeMs: req.ResponseTimeMs,
		}
		if err := s.answerRepo.Create(ctx, tx, answer); err != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "回答の記録に失敗しました。", "", err)
		}

		// 4. セッションのカウンタを更新
		if isCorrect {
			session.CorrectAnswers++
		} else {
			session.IncorrectAnswers++
		}
		session.CurrentCardIndex++
		session.SessionProgress = percentage(session.CorrectAnswers, session.TotalCards)
		if err := s.sessionRepo.Update(ctx, tx, session); err != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "セッションの更新に失敗しました。", "", err)
		}

		// 5. デッキ進捗のロールアップを更新
		progress, err := s.progressRepo.FindForUpdate(ctx, tx, userID, session.DeckID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				// 進捗行が無い場合は回答だけ記録して続行する
				logger.Warn("Deck progress missing on answer, skipping rollup",
					"user_id", userID,
					"deck_id", session.DeckID,
				)
				resp = &model.RecordAnswerResponse{Session: session}
				return nil
			}
			return model.NewAppError("INTERNAL_SERVER_ERROR", "進捗の取得に失敗しました。", "", err)
		}

		if isCorrect {
			progress.MasteredCards++
			if s.cfg.App.CapMasteredCards && progress.MasteredCards > progress.TotalCards {
				progress.MasteredCards = progress.TotalCards
			}
		}
		progress.CompletionPercentage = percentage(progress.MasteredCards, progress.TotalCards)
		now := time.Now()
		progress.LastStudiedAt = &now
		if err := s.progressRepo.Update(ctx, tx, progress); err != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "進捗の更新に失敗しました。", "", err)
		}

		resp = &model.RecordAnswerResponse{Session: session, DeckProgress: progress}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// EndSession はセッションを完了させ、累積統計を進捗に反映します。
// 完了済みセッションを再度終了しようとすると SESSION_NOT_FOUND になる。
func (s *studyService) EndSession(ctx context.Context, userID, sessionID uuid.UUID) (*model.SessionStats, error) {
	logger := middleware.GetLogger(ctx)
	var stats *model.SessionStats

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.sessionRepo.FindActiveByIDForUpdate(ctx, tx, userID, sessionID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewAppError("SESSION_NOT_FOUND", "有効な学習セッションが見つかりません。", "session_id", model.ErrNotFound)
			}
			return model.NewAppError("INTERNAL_SERVER_ERROR", "セッションの取得に失敗しました。", "", err)
		}

		now := time.Now()
		session.EndTime = &now
		session.IsCompleted = true
		if err := s.sessionRepo.Update(ctx, tx, session); err != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "セッションの更新に失敗しました。", "", err)
		}

		// 学習時間は分単位に丸める
		studyMinutes := int(math.Round(now.Sub(session.StartTime).Minutes()))
		accuracy := percentage(session.CorrectAnswers, session.TotalCards)

		stats = &model.SessionStats{
			TotalCards:       session.TotalCards,
			CorrectAnswers:   session.CorrectAnswers,
			IncorrectAnswers: session.IncorrectAnswers,
			Accuracy:         accuracy,
			StudyTimeMinutes: studyMinutes,
		}

		progress, err := s.progressRepo.FindForUpdate(ctx, tx, userID, session.DeckID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				logger.Warn("Deck progress missing on session end, skipping rollup",
					"user_id", userID,
					"deck_id", session.DeckID,
				)
				return nil
			}
			return model.NewAppError("INTERNAL_SERVER_ERROR", "進捗の取得に失敗しました。", "", err)
		}

		// 累積平均: avg_n = (avg_{n-1} * (n-1) + accuracy) / n
		progress.TotalStudyTime += studyMinutes
		progress.TotalSessions++
		n := float64(progress.TotalSessions)
		progress.AverageAccuracy = (progress.AverageAccuracy*(n-1) + accuracy) / n
		progress.LastStudiedAt = &now
		if err := s.progressRepo.Update(ctx, tx, progress); err != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "進捗の更新に失敗しました。", "", err)
		}

		stats.DeckProgress = progress
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Study session ended",
		"user_id", userID,
		"session_id", sessionID,
		"accuracy", stats.Accuracy,
		"study_minutes", stats.StudyTimeMinutes,
	)
	return stats, nil
}

// GetCurrentSession は指定デッキの未完了セッションを回答履歴付きで返します。
func (s *studyService) GetCurrentSession(ctx context.Context, userID, deckID uuid.UUID) (*model.StudySession, error) {
	session, err := s.sessionRepo.FindActiveByDeckWithAnswers(ctx, s.db, userID, deckID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewAppError("SESSION_NOT_FOUND", "有効な学習セッションが見つかりません。", "deck_id", model.ErrNotFound)
		}
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "セッションの取得に失敗しました。", "", err)
	}
	return session, nil
}

// GetDeckProgress は指定デッキの進捗を返します。
func (s *studyService) GetDeckProgress(ctx context.Context, userID, deckID uuid.UUID) (*model.DeckProgress, error) {
	progress, err := s.progressRepo.Find(ctx, s.db, userID, deckID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewAppError("PROGRESS_NOT_FOUND", "このデッキの学習進捗がまだありません。", "deck_id", model.ErrNotFound)
		}
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "進捗の取得に失敗しました。", "", err)
	}
	return progress, nil
}

// ListDeckProgress はユーザーの全デッキ進捗を返します。
func (s *studyService) ListDeckProgress(ctx context.Context, userID uuid.UUID) ([]*model.DeckProgress, error) {
	progresses, err := s.progressRepo.FindByUser(ctx, s.db, userID)
	if err != nil {
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "進捗の取得に失敗しました。", "", err)
	}
	return progresses, nil
}

// findAccessibleDeck はデッキを取得し、所有者または公開デッキであることを確認します。
func (s *studyService) findAccessibleDeck(ctx context.Context, db *gorm.DB, userID, deckID uuid.UUID) (*model.Deck, error) {
	deck, err := s.deckRepo.FindByID(ctx, db, deckID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewAppError("DECK_NOT_FOUND", "デッキが見つかりません。", "deck_id", model.ErrNotFound)
		}
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "デッキの取得に失敗しました。", "", err)
	}
	if deck.UserID != userID && !deck.IsPublic {
		return nil, model.NewAppError("FORBIDDEN", "このデッキにはアクセスできません。", "deck_id", model.ErrForbidden)
	}
	return deck, nil
}

// percentage はゼロ除算を避けつつ百分率を返します。
func percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
