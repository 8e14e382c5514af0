// internal/handlers/answer_handler.go
package handlers

import (
	"log/slog"
	"net/http"

	"flashdeck/internal/middleware"
	"flashdeck/internal/model"
	"flashdeck/internal/service"
	"flashdeck/internal/webutil"
)

type AnswerHandler struct {
	service service.AnswerService
	logger  *slog.Logger
}

func NewAnswerHandler(s service.AnswerService, logger *slog.Logger) *AnswerHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnswerHandler{
		service: s,
		logger:  logger,
	}
}

// PostAnswer はカードへの回答を提出するハンドラ（正解テキスト付きで判定結果を返す）
func (h *AnswerHandler) PostAnswer(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PostAnswer"))

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

	var req model.SubmitAnswerRequest
	if !decodeAndValidate(w, r, logger, &req) {
		return
	}

	resp, err := h.service.SubmitAnswer(r.Context(), userID, deckID, cardID, &req)
	if err != nil {
		logger.Warn("Error submitting answer in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Answer submitted successfully",
		slog.String("card_id", cardID.String()),
		slog.Bool("is_correct", resp.Answer.IsCorrect),
	)
	webutil.RespondWithJSON(w, http.StatusOK, resp, logger)
}

// GetAnswer はカードに対する自分の回答を返すハンドラ
func (h *AnswerHandler) GetAnswer(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetAnswer"))

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

	answer, err := h.service.GetUserAnswer(r.Context(), userID, deckID, cardID)
	if err != nil {
		logger.Warn("Error getting answer in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, answer, logger)
}

// GetDeckAnswers はデッキ内の回答状況と統計を返すハンドラ
func (h *AnswerHandler) GetDeckAnswers(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetDeckAnswers"))

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

	resp, err := h.service.GetDeckAnswers(r.Context(), userID, deckID)
	if err != nil {
		logger.Warn("Error getting deck answers in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, resp, logger)
}

// GetAnswerStats はユーザー全体の回答統計を返すハンドラ
func (h *AnswerHandler) GetAnswerStats(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetAnswerStats"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, err)
		return
	}

	stats, err := h.service.GetAnswerStats(r.Context(), userID)
	if err != nil {
		logger.Error("Error getting answer stats in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, stats, logger)
}
