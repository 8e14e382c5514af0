// internal/service/rating_service.go
package service

import (
	"context"
	"errors"

	"flashdeck/internal/middleware"
	"flashdeck/internal/model"
	"flashdeck/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RatingService は公開デッキの評価（高評価/低評価）を担います。
type RatingService interface {
	RateDeck(ctx context.Context, userID, deckID uuid.UUID, req *model.RateDeckRequest) (*model.DeckRating, error)
	GetDeckRatings(ctx context.Context, userID, deckID uuid.UUID) (*model.DeckRatingSummary, error)
	GetUserRating(ctx context.Context, userID, deckID uuid.UUID) (*model.DeckRating, error)
	DeleteRating(ctx context.Context, userID, deckID uuid.UUID) error
}

type ratingService struct {
	db         *gorm.DB
	deckRepo   repository.DeckRepository
	ratingRepo repository.RatingRepository
}

func NewRatingService(db *gorm.DB, deckRepo repository.DeckRepository, ratingRepo repository.RatingRepository) RatingService {
	return &ratingService{
		db:         db,
		deckRepo:   deckRepo,
		ratingRepo: ratingRepo,
	}
}

// RateDeck は評価を登録します。既に評価済みなら上書きする（ユーザーごとに1件）。
func (s *ratingService) RateDeck(ctx context.Context, userID, deckID uuid.UUID, req *model.RateDeckRequest) (*model.DeckRating, error) {
	logger := middleware.GetLogger(ctx)
	var rating *model.DeckRating

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkRatableDeck(ctx, tx, userID, deckID); err != nil {
			return err
		}

		existing, err := s.ratingRepo.FindByDeckAndUser(ctx, tx, deckID, userID)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "評価の取得に失敗しました。", "", err)
		}

		if existing != nil {
			if err := s.ratingRepo.Update(ctx, tx, existing.RatingID, *req.IsLike); err != nil {
				return model.NewAppError("INTERNAL_SERVER_ERROR", "評価の更新に失敗しました。", "", err)
			}
			existing.IsLike = *req.IsLike
			rating = existing
			return nil
		}

		rating = &model.DeckRating{
			RatingID: uuid.New(),
			DeckID:   deckID,
			UserID:   userID,
			IsLike:   *req.IsLike,
		}
		if err := s.ratingRepo.Create(ctx, tx, rating); err != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "評価の登録に失敗しました。", "", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Deck rated", "user_id", userID, "deck_id", deckID, "is_like", rating.IsLike)
	return rating, nil
}

// GetDeckRatings は評価一覧と集計を返します。
func (s *ratingService) GetDeckRatings(ctx context.Context, userID, deckID uuid.UUID) (*model.DeckRatingSummary, error) {
	if err := s.checkRatableDeck(ctx, s.db, userID, deckID); err != nil {
		return nil, err
	}

	ratings, err := s.ratingRepo.FindByDeck(ctx, s.db, deckID)
	if err != nil {
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "評価の取得に失敗しました。", "", err)
	}

	summary := &model.DeckRatingSummary{
		Ratings:      ratings,
		TotalRatings: len(ratings),
	}
	for _, r := range ratings {
		if r.IsLike {
			summary.Likes++
		} else {
			summary.Dislikes++
		}
	}
	return summary, nil
}

// GetUserRating は自分の評価を返します。未評価の場合は nil を返す（エラーではない）。
func (s *ratingService) GetUserRating(ctx context.Context, userID, deckID uuid.UUID) (*model.DeckRating, error) {
	if err := s.checkRatableDeck(ctx, s.db, userID, deckID); err != nil {
		return nil, err
	}

	rating, err := s.ratingRepo.FindByDeckAndUser(ctx, s.db, deckID, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, nil
		}
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "評価の取得に失敗しました。", "", err)
	}
	return rating, nil
}

// DeleteRating は自分の評価を取り消します。
func (s *ratingService) DeleteRating(ctx context.Context, userID, deckID uuid.UUID) error {
	logger := middleware.GetLogger(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ratingRepo.Delete(ctx, tx, deckID, userID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewAppError("RATING_NOT_FOUND", "このデッキへの評価がありません。", "deck_id", model.ErrNotFound)
			}
			return model.NewAppError("INTERNAL_SERVER_ERROR", "評価の削除に失敗しました。", "", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Deck rating deleted", "user_id", userID, "deck_id", deckID)
	return nil
}

// checkRatableDeck はデッキが存在し、評価操作が可能（所有または公開）であることを確認します。
func (s *ratingService) checkRatableDeck(ctx context.Context, db *gorm.DB, userID, deckID uuid.UUID) error {
	deck, err := s.deckRepo.FindByID(ctx, db, deckID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.NewAppError("DECK_NOT_FOUND", "デッキが見つかりません。", "deck_id", model.ErrNotFound)
		}
		return model.NewAppError("INTERNAL_SERVER_ERROR", "デッキの取得に失敗しました。", "", err)
	}
	if deck.UserID != userID && !deck.IsPublic {
		return model.NewAppError("FORBIDDEN", "このデッキにはアクセスできません。", "deck_id", model.ErrForbidden)
	}
	return nil
}
