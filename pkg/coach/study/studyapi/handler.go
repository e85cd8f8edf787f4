package studyapi

import (
	"github.com/Abraxas-365/certcoach/pkg/coach/study"
	"github.com/Abraxas-365/certcoach/pkg/coach/study/studysrv"
	"github.com/gofiber/fiber/v2"
)

type StudyHandlers struct {
	service *studysrv.StudyService
}

func NewStudyHandlers(service *studysrv.StudyService) *StudyHandlers {
	return &StudyHandlers{service: service}
}

func (h *StudyHandlers) RegisterRoutes(router fiber.Router, limiter fiber.Handler) {
	aids := router.Group("/study")
	if limiter != nil {
		aids.Use(limiter)
	}

	aids.Post("/tricks", h.GenerateTricks)
	aids.Post("/evaluations", h.EvaluateAnswer)
}

func (h *StudyHandlers) GenerateTricks(c *fiber.Ctx) error {
	var req study.TricksRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	tricks, err := h.service.GenerateTricks(c.Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(tricks)
}

func (h *StudyHandlers) EvaluateAnswer(c *fiber.Ctx) error {
	var req study.EvaluationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	evaluation, err := h.service.EvaluateAnswer(c.Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(evaluation)
}
