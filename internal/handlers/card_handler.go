// internal/handlers/card_handler.go
package handlers

import (
	"log/slog"
	"net/http"

	"flashdeck/internal/middleware"
	"flashdeck/internal/model"
	"flashdeck/internal/service"
	"flashdeck/internal/webutil"
)

type CardHandler struct {
	service service.CardService
	logger  *slog.Logger
}

func NewCardHandler(s service.CardService, logger *slog.Logger) *CardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CardHandler{
		service: s,
		logger:  logger,
	}
}

// PostCard はデッキに新しいカードを追加するハンドラ
func (h *CardHandler) PostCard(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PostCard"))

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

	var req model.CreateCardRequest
	if !decodeAndValidate(w, r, logger, &req) {
		return
	}

	card, err := h.service.CreateCard(r.Context(), userID, deckID, &req)
	if err != nil {
		logger.Warn("Error creating card in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Card created successfully", slog.String("card_id", card.CardID.String()))
	webutil.RespondWithJSON(w, http.StatusCreated, card, logger)
}

// GetCards はデッキ内のカード一覧を返すハンドラ
func (h *CardHandler) GetCards(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetCards"))

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

	cards, err := h.service.ListCards(r.Context(), userID, deckID)
	if err != nil {
		logger.Warn("Error listing cards in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	if cards == nil {
		cards = []*model.Card{}
	}
	webutil.RespondWithJSON(w, http.StatusOK, cards, logger)
}

// GetCard は特定のカードを返すハンドラ
func (h *CardHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetCard"))

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
	cardID, ok := parseUUIDParam(w, r, logger, "cardID")
	if !ok {
		return
	}

	card, err := h.service.GetCard(r.Context(), userID, deckID, cardID)
	if err != nil {
		logger.Warn("Error getting card in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, card, logger)
}

// PutCard はカードを部分更新するハンドラ
func (h *CardHandler) PutCard(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PutCard"))

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
	cardID, ok := parseUUIDParam(w, r, logger, "cardID")
	if !ok {
		return
	}

	var req model.UpdateCardRequest
	if !decodeAndValidate(w, r, logger, &req) {
		return
	}

	card, err := h.service.UpdateCard(r.Context(), userID, deckID, cardID, &req)
	if err != nil {
		logger.Warn("Error updating card in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Card updated successfully", slog.String("card_id", cardID.String()))
	webutil.RespondWithJSON(w, http.StatusOK, card, logger)
}

// DeleteCard はカードを削除するハンドラ
func (h *CardHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "DeleteCard"))

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
	cardID, ok := parseUUIDParam(w, r, logger, "cardID")
	if !ok {
		return
	}

	if err := h.service.DeleteCard(r.Context(), userID, deckID, cardID); err != nil {
		logger.Warn("Error deleting card in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Card deleted successfully", slog.String("card_id", cardID.String()))
	w.WriteHeader(http.StatusNoContent)
}
