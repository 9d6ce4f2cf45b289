package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/noobsquad/chatcore/internal/domain"
	"github.com/noobsquad/chatcore/internal/service"
	"github.com/noobsquad/chatcore/internal/transport/http/middleware"
)

// ChatReader is the read side of the chat service.
type ChatReader interface {
	ListConversations(ctx context.Context, viewer int64) ([]domain.ConversationSummary, error)
	History(ctx context.Context, viewer, counterpart int64) ([]domain.Message, error)
}

type ChatHandler struct {
	chat   ChatReader
	logger *slog.Logger
}

func NewChatHandler(chat ChatReader, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	convs, err := h.chat.ListConversations(r.Context(), userID)
	if err != nil {
		h.logger.Error("list conversations", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, convs)
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	otherID, err := strconv.ParseInt(r.PathValue("userID"), 10, 64)
	if err != nil || otherID <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	msgs, err := h.chat.History(r.Context(), userID, otherID)
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error())
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
		default:
			h.logger.Error("chat history", "user_id", userID, "other_id", otherID, "error", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, msgs)
}
