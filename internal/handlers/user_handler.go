// internal/handlers/user_handler.go
package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"flashdeck/internal/middleware"
	"flashdeck/internal/service"
	"flashdeck/internal/webutil"
)

type UserHandler struct {
	service service.UserService
	logger  *slog.Logger
}

func NewUserHandler(s service.UserService, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{
		service: s,
		logger:  logger,
	}
}

// GetUser は他ユーザーの公開プロフィールを返すハンドラ
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetUser"))

	if _, err := middleware.GetUserIDFromContext(r.Context()); err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, err)
		return
	}
	targetID, ok := parseUUIDParam(w, r, logger, "userID")
	if !ok {
		return
	}

	user, err := h.service.GetProfile(r.Context(), targetID)
	if err != nil {
		logger.Warn("Error getting user profile in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, user, logger)
}

// SearchUsers はユーザー検索のハンドラ。?q=検索語&page=ページ番号
func (h *UserHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "SearchUsers"))

	if _, err := middleware.GetUserIDFromContext(r.Context()); err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, err)
		return
	}

	query := r.URL.Query().Get("q")
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	result, err := h.service.SearchUsers(r.Context(), query, page)
	if err != nil {
		logger.Error("Error searching users in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, result, logger)
}
