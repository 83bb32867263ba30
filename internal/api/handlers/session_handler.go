package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/research-analyst/backend/pkg/logger"
)

type SessionHandler struct {
	chat *Chat
}

func NewSessionHandler(chat *Chat) *SessionHandler {
	return &SessionHandler{chat: chat}
}

func (h *SessionHandler) GetHistory(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	if sessionID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Session id is required")
	}

	entries, err := h.chat.History(c.UserContext(), sessionID)
	if err != nil {
		logger.Error("Failed to read session history", zap.String("session_id", sessionID), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to read session history")
	}

	return c.JSON(fiber.Map{
		"session_id": sessionID,
		"messages":   entries,
	})
}
