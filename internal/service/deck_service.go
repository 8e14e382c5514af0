// internal/service/deck_service.go
package service

import (
	"context"
	"errors"

	"flashdeck/internal/config"
	"flashdeck/internal/middleware"
	"flashdeck/internal/model"
	"flashdeck/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeckService インターフェース
type DeckService interface {
	CreateDeck(ctx context.Context, userID uuid.UUID, req *model.CreateDeckRequest) (*model.Deck, error)
	GetDeck(ctx context.Context, userID, deckID uuid.UUID) (*model.Deck, error)
	ListDecks(ctx context.Context, userID uuid.UUID) ([]*model.DeckResponse, error)
	ListMyDecks(ctx context.Context, userID uuid.UUID) ([]*model.DeckResponse, error)
	ListRecentDecks(ctx context.Context, userID uuid.UUID) ([]*model.DeckResponse, error)
	UpdateDeck(ctx context.Context, userID, deckID uuid.UUID, req *model.UpdateDeckRequest) (*model.Deck, error)
	DeleteDeck(ctx context.Context, userID, deckID uuid.UUID) error
}

type deckService struct {
	db       *gorm.DB
	deckRepo repository.DeckRepository
	cfg      *config.Config
}

func NewDeckService(db *gorm.DB, deckRepo repository.DeckRepository, cfg *config.Config) DeckService {
	return &deckService{
		db:       db,
		deckRepo: deckRepo,
		cfg:      cfg,
	}
}

func (s *deckService) CreateDeck(ctx context.Context, userID uuid.UUID, req *model.CreateDeckRequest) (*model.Deck, error) {
	logger := middleware.GetLogger(ctx)

	deck := &model.Deck{
		DeckID:      uuid.New(),
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.deckRepo.Create(ctx, tx, deck); err != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "デッキの作成に失敗しました。", "", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Deck created", "user_id", userID, "deck_id", deck.DeckID)
	return deck, nil
}

// GetDeck はデッキをカード付きで返します。自分のデッキまたは公開デッキのみ閲覧可。
func (s *deckService) GetDeck(ctx context.Context, userID, deckID uuid.UUID) (*model.Deck, error) {
	deck, err := s.deckRepo.FindByID(ctx, s.db, deckID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewAppError("DECK_NOT_FOUND", "デッキが見つかりません。", "deck_id", model.ErrNotFound)
		}
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "デッキの取得に失敗しました。", "", err)
	}
	if deck.UserID != userID && !deck.IsPublic {
		return nil, model.NewAppError("FORBIDDEN", "このデッキにはアクセスできません。", "deck_id", model.ErrForbidden)
	}

	// カードを表示順で読み込む
	if err := s.db.WithContext(ctx).
		Where("deck_id = ?", deckID).
		Order(`"order" ASC, created_at ASC`).
		Find(&deck.Cards).Error; err != nil {
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "カードの取得に失敗しました。", "", err)
	}
	return deck, nil
}

// ListDecks は閲覧可能なデッキ（自分の＋公開）をカード数付きで返します。
func (s *deckService) ListDecks(ctx context.Context, userID uuid.UUID) ([]*model.DeckResponse, error) {
	decks, err := s.deckRepo.FindVisible(ctx, s.db, userID)
	if err != nil {
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "デッキ一覧の取得に失敗しました。", "", err)
	}
	return s.toDeckResponses(ctx, decks)
}

// ListMyDecks は自分のデッキのみを返します。
func (s *deckService) ListMyDecks(ctx context.Context, userID uuid.UUID) ([]*model.DeckResponse, error) {
	decks, err := s.deckRepo.FindByUser(ctx, s.db, userID)
	if err != nil {
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "デッキ一覧の取得に失敗しました。", "", err)
	}
	return s.toDeckResponses(ctx, decks)
}

// ListRecentDecks は最近学習したデッキを返します。
func (s *deckService) ListRecentDecks(ctx context.Context, userID uuid.UUID) ([]*model.DeckResponse, error) {
	decks, err := s.deckRepo.FindRecent(ctx, s.db, userID, s.cfg.App.RecentDecksLimit)
	if err != nil {
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "デッキ一覧の取得に失敗しました。", "", err)
	}
	return s.toDeckResponses(ctx, decks)
}

func (s *deckService) UpdateDeck(ctx context.Context, userID, deckID uuid.UUID, req *model.UpdateDeckRequest) (*model.Deck, error) {
	logger := middleware.GetLogger(ctx)
	var updated *model.Deck

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deck, err := s.deckRepo.FindOwned(ctx, tx, userID, deckID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewAppError("DECK_NOT_FOUND", "デッキが見つかりません。", "deck_id", model.ErrNotFound)
			}
			return model.NewAppError("INTERNAL_SERVER_ERROR", "デッキの取得に失敗しました。", "", err)
		}

		updates := make(map[string]interface{})
		if req.Title != nil && *req.Title != deck.Title {
			updates["title"] = *req.Title
		}
		if req.Description != nil && *req.Description != deck.Description {
			updates["description"] = *req.Description
		}
		if req.IsPublic != nil && *req.IsPublic != deck.IsPublic {
			updates["is_public"] = *req.IsPublic
		}
		if len(updates) == 0 {
			updated = deck
			return nil
		}

		if err := s.deckRepo.Update(ctx, tx, userID, deckID, updates); err != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "デッキの更新に失敗しました。", "", err)
		}
		updated, err = s.deckRepo.FindOwned(ctx, tx, userID, deckID)
		if err != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "デッキの取得に失敗しました。", "", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Deck updated", "user_id", userID, "deck_id", deckID)
	return updated, nil
}

func (s *deckService) DeleteDeck(ctx context.Context, userID, deckID uuid.UUID) error {
	logger := middleware.GetLogger(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// デッキ配下のカードも同一トランザクションで削除する
		if err := tx.WithContext(ctx).Where("deck_id = ?", deckID).Delete(&model.Card{}).Error; err != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "カードの削除に失敗しました。", "", err)
		}
		if err := s.deckRepo.Delete(ctx, tx, userID, deckID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewAppError("DECK_NOT_FOUND", "デッキが見つかりません。", "deck_id", model.ErrNotFound)
			}
			return model.NewAppError("INTERNAL_SERVER_ERROR", "デッキの削除に失敗しました。", "", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Deck deleted", "user_id", userID, "deck_id", deckID)
	return nil
}

func (s *deckService) toDeckResponses(ctx context.Context, decks []*model.Deck) ([]*model.DeckResponse, error) {
	responses := make([]*model.DeckResponse, 0, len(decks))
	for _, d := range decks {
		count, err := s.deckRepo.CountCards(ctx, s.db, d.DeckID)
		if err != nil {
			return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "カード数の取得に失敗しました。", "", err)
		}
		responses = append(responses, &model.DeckResponse{
			DeckID:      d.DeckID,
			UserID:      d.UserID,
			Title:       d.Title,
			Description: d.Description,
			IsPublic:    d.IsPublic,
			CardCount:   count,
			CreatedAt:   d.CreatedAt,
			UpdatedAt:   d.UpdatedAt,
		})
	}
	return responses, nil
}
