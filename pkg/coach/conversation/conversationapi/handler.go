package conversationapi

import (
	"github.com/Abraxas-365/certcoach/pkg/coach/conversation"
	"github.com/Abraxas-365/certcoach/pkg/coach/conversation/conversationsrv"
	"github.com/gofiber/fiber/v2"
)

type ChatHandlers struct {
	service *conversationsrv.ConversationService
}

func NewChatHandlers(service *conversationsrv.ConversationService) *ChatHandlers {
	return &ChatHandlers{service: service}
}

func (h *ChatHandlers) RegisterRoutes(router fiber.Router, limiter fiber.Handler) {
	chat := router.Group("/chat")
	if limiter != nil {
		chat.Use(limiter)
	}

	chat.Post("/", h.SubmitMessage)
	chat.Get("/sessions/:key/transcript", h.GetTranscript)
	chat.Delete("/sessions/:key", h.ClearSession)
}

func (h *ChatHandlers) SubmitMessage(c *fiber.Ctx) error {
	var req conversation.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	response, err := h.service.SubmitMessage(c.Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(response)
}

func (h *ChatHandlers) GetTranscript(c *fiber.Ctx) error {
	key := conversation.SessionKey(c.Params("key"))
	limit := c.QueryInt("limit", 50)

	response, err := h.service.Transcript(c.Context(), key, limit)
	if err != nil {
		return err
	}

	return c.JSON(response)
}

func (h *ChatHandlers) ClearSession(c *fiber.Ctx) error {
	key := conversation.SessionKey(c.Params("key"))

	if err := h.service.ClearSession(c.Context(), key); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "Session cleared successfully"})
}
