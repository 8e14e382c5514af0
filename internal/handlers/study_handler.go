// internal/handlers/study_handler.go
package handlers

import (
	"log/slog"
	"net/http"

	"flashdeck/internal/middleware"
	"flashdeck/internal/model"
	"flashdeck/internal/service"
	"flashdeck/internal/webutil"
)

type StudyHandler struct {
	service service.StudyService
	logger  *slog.Logger
}

func NewStudyHandler(s service.StudyService, logger *slog.Logger) *StudyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StudyHandler{
		service: s,
		logger:  logger,
	}
}

// StartSession は学習セッションを開始（または再開）するハンドラ
func (h *StudyHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "StartSession"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, err)
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	var req model.StartSessionRequest
	if !decodeAndValidate(w, r, logger, &req) {
		return
	}

	resp, err := h.service.StartSession(r.Context(), userID, &req)
	if err != nil {
		logger.Warn("Error starting study session in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	// 再開は200、新規作成は201を返す
	status := http.StatusCreated
	if resp.Resumed {
		status = http.StatusOK
	}
	logger.Info("Study session started",
		slog.String("session_id", resp.Session.SessionID.String()),
		slog.Bool("resumed", resp.Resumed),
	)
	webutil.RespondWithJSON(w, status, resp, logger)
}

// PostSessionAnswer はセッション内の回答を記録するハンドラ
func (h *StudyHandler) PostSessionAnswer(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PostSessionAnswer"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, err)
		return
	}

	sessionID, ok := parseUUIDParam(w, r, logger, "sessionID")
	if !ok {
		return
	}

	var req model.RecordAnswerRequest
	if !decodeAndValidate(w, r, logger, &req) {
		return
	}
	// パスのセッションIDを優先する
	req.SessionID = sessionID

	resp, err := h.service.RecordAnswer(r.Context(), userID, &req)
	if err != nil {
		logger.Warn("Error recording answer in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, resp, logger)
}

// EndSession はセッションを完了させて統計を返すハンドラ
func (h *StudyHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "EndSession"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, err)
		return
	}
	sessionID, ok := parseUUIDParam(w, r, logger, "sessionID")
	if !ok {
		return
	}

	stats, err := h.service.EndSession(r.Context(), userID, sessionID)
	if err != nil {
		logger.Warn("Error ending study session in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Study session ended", slog.String("session_id", sessionID.String()))
	webutil.RespondWithJSON(w, http.StatusOK, stats, logger)
}

// GetCurrentSession は指定デッキの進行中セッションを回答履歴付きで返すハンドラ
func (h *StudyHandler) GetCurrentSession(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetCurrentSession"))

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

	session, err := h.service.GetCurrentSession(r.Context(), userID, deckID)
	if err != nil {
		logger.Warn("Error getting current session in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, session, logger)
}

// GetDeckProgress は指定デッキの進捗を返すハンドラ
func (h *StudyHandler) GetDeckProgress(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetDeckProgress"))

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

	progress, err := h.service.GetDeckProgress(r.Context(), userID, deckID)
	if err != nil {
		logger.Warn("Error getting deck progress in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, progress, logger)
}

// ListDeckProgress はユーザーの全デッキ進捗を返すハンドラ
func (h *StudyHandler) ListDeckProgress(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "ListDeckProgress"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, err)
		return
	}

	progresses, err := h.service.ListDeckProgress(r.Context(), userID)
	if err != nil {
		logger.Error("Error listing deck progress in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	if progresses == nil {
		progresses = []*model.DeckProgress{}
	}
	webutil.RespondWithJSON(w, http.StatusOK, progresses, logger)
}
