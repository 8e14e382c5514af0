// internal/handlers/deck_handler.go
package handlers

import (
	"log/slog"
	"net/http"

	"flashdeck/internal/middleware"
	"flashdeck/internal/model"
	"flashdeck/internal/service"
	"flashdeck/internal/webutil"
)

type DeckHandler struct {
	service service.DeckService
	logger  *slog.Logger
}

func NewDeckHandler(s service.DeckService, logger *slog.Logger) *DeckHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeckHandler{
		service: s,
		logger:  logger,
	}
}

// PostDeck は新しいデッキを作成するハンドラ
func (h *DeckHandler) PostDeck(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PostDeck"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, err)
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	var req model.CreateDeckRequest
	if !decodeAndValidate(w, r, logger, &req) {
		return
	}

	deck, err := h.service.CreateDeck(r.Context(), userID, &req)
	if err != nil {
		logger.Error("Error creating deck in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Deck created successfully", slog.String("deck_id", deck.DeckID.String()))
	webutil.RespondWithJSON(w, http.StatusCreated, deck, logger)
}

// GetDecks は閲覧可能なデッキ一覧を返すハンドラ。?scope=mine で自分のデッキのみに絞る。
func (h *DeckHandler) GetDecks(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetDecks"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, err)
		return
	}

	var decks []*model.DeckResponse
	if r.URL.Query().Get("scope") == "mine" {
		decks, err = h.service.ListMyDecks(r.Context(), userID)
	} else {
		decks, err = h.service.ListDecks(r.Context(), userID)
	}
	if err != nil {
		logger.Error("Error listing decks in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	if decks == nil {
		decks = []*model.DeckResponse{}
	}
	webutil.RespondWithJSON(w, http.StatusOK, decks, logger)
}

// GetRecentDecks は最近学習したデッキ一覧を返すハンドラ
func (h *DeckHandler) GetRecentDecks(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetRecentDecks"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, err)
		return
	}

	decks, err := h.service.ListRecentDecks(r.Context(), userID)
	if err != nil {
		logger.Error("Error listing recent decks in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	if decks == nil {
		decks = []*model.DeckResponse{}
	}
	webutil.RespondWithJSON(w, http.StatusOK, decks, logger)
}

// GetDeck はデッキをカード付きで返すハンドラ
func (h *DeckHandler) GetDeck(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetDeck"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, err)
		return
	}
	deckID, ok := parseUUIDParam(w, r, logger, "deckID")
	if !ok {
		return
	}

	deck, err := h.service.GetDeck(r.Context(), userID, deckID)
	if err != nil {
		logger.Warn("Error getting deck in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, deck, logger)
}

// PutDeck はデッキを部分更新するハンドラ
func (h *DeckHandler) PutDeck(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PutDeck"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, err)
		return
	}
	deckID, ok := parseUUIDParam(w, r, logger, "deckID")
	if !ok {
		return
	}

	var req model.UpdateDeckRequest
	if !decodeAndValidate(w, r, logger, &req) {
		return
	}

	deck, err := h.service.UpdateDeck(r.Context(), userID, deckID, &req)
	if err != nil {
		logger.Warn("Error updating deck in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Deck updated successfully", slog.String("deck_id", deckID.String()))
	webutil.RespondWithJSON(w, http.StatusOK, deck, logger)
}

// DeleteDeck はデッキを削除するハンドラ
func (h *DeckHandler) DeleteDeck(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "DeleteDeck"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, err)
		return
	}
	deckID, ok := parseUUIDParam(w, r, logger, "deckID")
	if !ok {
		return
	}

	if err := h.service.DeleteDeck(r.Context(), userID, deckID); err != nil {
		logger.Warn("Error deleting deck in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Deck deleted successfully", slog.String("deck_id", deckID.String()))
	w.WriteHeader(http.StatusNoContent)
}
