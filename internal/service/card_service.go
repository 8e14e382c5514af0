// internal/service/card_service.go
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

// CardService インターフェース
type CardService interface {
	CreateCard(ctx context.Context, userID, deckID uuid.UUID, req *model.CreateCardRequest) (*model.Card, error)
	GetCard(ctx context.Context, userID, deckID, cardID uuid.UUID) (*model.Card, error)
	ListCards(ctx context.Context, userID, deckID uuid.UUID) ([]*model.Card, error)
	UpdateCard(ctx context.Context, userID, deckID, cardID uuid.UUID, req *model.UpdateCardRequest) (*model.Card, error)
	DeleteCard(ctx context.Context, userID, deckID, cardID uuid.UUID) error
}

type cardService struct {
	db       *gorm.DB
	deckRepo repository.DeckRepository
	cardRepo repository.CardRepository
}

func NewCardService(db *gorm.DB, deckRepo repository.DeckRepository, cardRepo repository.CardRepository) CardService {
	return &cardService{
		db:       db,
		deckRepo: deckRepo,
		cardRepo: cardRepo,
	}
}

func (s *cardService) CreateCard(ctx context.Context, userID, deckID uuid.UUID, req *model.CreateCardRequest) (*model.Card, error) {
	logger := middleware.GetLogger(ctx)
	var card *model.Card

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.deckRepo.FindOwned(ctx, tx, userID, deckID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewAppError("DECK_NOT_FOUND", "デッキが見つかりません。", "deck_id", model.ErrNotFound)
			}
			return model.NewAppError("INTERNAL_SERVER_ERROR", "デッキの取得に失敗しました。", "", err)
		}

		card = &model.Card{
			CardID:   uuid.New(),
			DeckID:   deckID,
			Question: req.Question,
			Answer:   req.Answer,
			Order:    req.Order,
		}
		if err := s.cardRepo.Create(ctx, tx, card); err != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "カードの作成に失敗しました。", "", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Card created", "user_id", userID, "deck_id", deckID, "card_id", card.CardID)
	return card, nil
}

func (s *cardService) GetCard(ctx context.Context, userID, deckID, cardID uuid.UUID) (*model.Card, error) {
	if err := s.checkDeckAccess(ctx, userID, deckID); err != nil {
		return nil, err
	}

	card, err := s.cardRepo.FindByID(ctx, s.db, deckID, cardID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewAppError("CARD_NOT_FOUND", "カードが見つかりません。", "card_id", model.ErrNotFound)
		}
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "カードの取得に失敗しました。", "", err)
	}
	return card, nil
}

func (s *cardService) ListCards(ctx context.Context, userID, deckID uuid.UUID) ([]*model.Card, error) {
	if err := s.checkDeckAccess(ctx, userID, deckID); err != nil {
		return nil, err
	}

	cards, err := s.cardRepo.FindByDeck(ctx, s.db, deckID)
	if err != nil {
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "カード一覧の取得に失敗しました。", "", err)
	}
	return cards, nil
}

func (s *cardService) UpdateCard(ctx context.Context, userID, deckID, cardID uuid.UUID, req *model.UpdateCardRequest) (*model.Card, error) {
	logger := middleware.GetLogger(ctx)
	var updated *model.Card

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.deckRepo.FindOwned(ctx, tx, userID, deckID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewAppError("DECK_NOT_FOUND", "デッキが見つかりません。", "deck_id", model.ErrNotFound)
			}
			return model.NewAppError("INTERNAL_SERVER_ERROR", "デッキの取得に失敗しました。", "", err)
		}

		card, err := s.cardRepo.FindByID(ctx, tx, deckID, cardID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewAppError("CARD_NOT_FOUND", "カードが見つかりません。", "card_id", model.ErrNotFound)
			}
			return model.NewAppError("INTERNAL_SERVER_ERROR", "カードの取得に失敗しました。", "", err)
		}

		updates := make(map[string]interface{})
		if req.Question != nil && *req.Question != card.Question {
			updates["question"] = *req.Question
		}
		if req.Answer != nil && *req.Answer != card.Answer {
			updates["answer"] = *req.Answer
		}
		if req.Order != nil && *req.Order != card.Order {
			updates["order"] = *req.Order
		}
		if len(updates) == 0 {
			updated = card
			return nil
		}

		if err := s.cardRepo.Update(ctx, tx, deckID, cardID, updates); err != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "カードの更新に失敗しました。", "", err)
		}
		updated, err = s.cardRepo.FindByID(ctx, tx, deckID, cardID)
		if err != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "カードの取得に失敗しました。", "", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Card updated", "user_id", userID, "deck_id", deckID, "card_id", cardID)
	return updated, nil
}

func (s *cardService) DeleteCard(ctx context.Context, userID, deckID, cardID uuid.UUID) error {
	logger := middleware.GetLogger(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.deckRepo.FindOwned(ctx, tx, userID, deckID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewAppError("DECK_NOT_FOUND", "デッキが見つかりません。", "deck_id", model.ErrNotFound)
			}
			return model.NewAppError("INTERNAL_SERVER_ERROR", "デッキの取得に失敗しました。", "", err)
		}
		if err := s.cardRepo.Delete(ctx, tx, deckID, cardID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewAppError("CARD_NOT_FOUND", "カードが見つかりません。", "card_id", model.ErrNotFound)
			}
			return model.NewAppError("INTERNAL_SERVER_ERROR", "カードの削除に失敗しました。", "", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Card deleted", "user_id", userID, "deck_id", deckID, "card_id", cardID)
	return nil
}

// checkDeckAccess は読み取り系操作のアクセス権（所有または公開）を確認します。
func (s *cardService) checkDeckAccess(ctx context.Context, userID, deckID uuid.UUID) error {
	deck, err := s.deckRepo.FindByID(ctx, s.db, deckID)
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
