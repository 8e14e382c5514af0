// internal/handlers/rating_handler.go
package handlers

import (
	"log/slog"
	"net/http"

	"flashdeck/internal/middleware"
	"flashdeck/internal/model"
	"flashdeck/internal/service"
	"flashdeck/internal/webutil"
)

type RatingHandler struct {
	service service.RatingService
	logger  *slog.Logger
}

func NewRatingHandler(s service.RatingService, logger *slog.Logger) *RatingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RatingHandler{
		service: s,
		logger:  logger,
	}
}

// PostRating はデッキを評価するハンドラ（再評価は上書き）
func (h *RatingHandler) PostRating(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PostRating"))

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

	var req model.RateDeckRequest
	if !decodeAndValidate(w, r, logger, &req) {
		return
	}

	rating, err := h.service.RateDeck(r.Context(), userID, deckID, &req)
	if err != nil {
		logger.Warn("Error rating deck in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Deck rated successfully", slog.String("deck_id", deckID.String()))
	webutil.RespondWithJSON(w, http.StatusOK, rating, logger)
}

// GetRatings はデッキの評価一覧と集計を返すハンドラ
func (h *RatingHandler) GetRatings(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetRatings"))

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

	summary, err := h.service.GetDeckRatings(r.Context(), userID, deckID)
	if err != nil {
		logger.Warn("Error getting deck ratings in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, summary, logger)
}

// GetMyRating は自分の評価を返すハンドラ。未評価なら null を返す。
func (h *RatingHandler) GetMyRating(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetMyRating"))

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

	rating, err := h.service.GetUserRating(r.Context(), userID, deckID)
	if err != nil {
		logger.Warn("Error getting user rating in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, rating, logger)
}

// DeleteRating は自分の評価を取り消すハンドラ
func (h *RatingHandler) DeleteRating(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "DeleteRating"))

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

	if err := h.service.DeleteRating(r.Context(), userID, deckID); err != nil {
		logger.Warn("Error deleting rating in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Rating deleted successfully", slog.String("deck_id", deckID.String()))
	w.WriteHeader(http.StatusNoContent)
}
