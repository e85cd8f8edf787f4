package examapi

import (
	"github.com/Abraxas-365/certcoach/pkg/coach/exam"
	"github.com/Abraxas-365/certcoach/pkg/coach/exam/examsrv"
	"github.com/gofiber/fiber/v2"
)

type ExamHandlers struct {
	service *examsrv.ExamService
}

func NewExamHandlers(service *examsrv.ExamService) *ExamHandlers {
	return &ExamHandlers{service: service}
}

func (h *ExamHandlers) RegisterRoutes(router fiber.Router, limiter fiber.Handler) {
	exams := router.Group("/exam")
	if limiter != nil {
		exams.Use(limiter)
	}

	exams.Post("/sessions", h.StartSession)
	exams.Get("/sessions/:id", h.GetSession)
	exams.Get("/sessions/:id/questions/next", h.NextQuestion)
	exams.Post("/sessions/:id/answers", h.SubmitAnswer)
	exams.Post("/sessions/:id/finish", h.FinishSession)
	exams.Delete("/sessions/:id", h.QuitSession)
	exams.Get("/results/:userKey", h.GetResults)
}

func (h *ExamHandlers) StartSession(c *fiber.Ctx) error {
	var req exam.StartSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	response, err := h.service.StartSession(c.Context(), req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(response)
}

func (h *ExamHandlers) GetSession(c *fiber.Ctx) error {
	summary, err := h.service.Summary(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(summary)
}

func (h *ExamHandlers) NextQuestion(c *fiber.Ctx) error {
	response, err := h.service.NextQuestion(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(response)
}

func (h *ExamHandlers) SubmitAnswer(c *fiber.Ctx) error {
	var req exam.AnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	response, err := h.service.SubmitAnswer(c.Context(), c.Params("id"), req)
	if err != nil {
		return err
	}

	return c.JSON(response)
}

func (h *ExamHandlers) FinishSession(c *fiber.Ctx) error {
	result, err := h.service.FinishSession(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(result)
}

func (h *ExamHandlers) QuitSession(c *fiber.Ctx) error {
	if err := h.service.QuitSession(c.Context(), c.Params("id")); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "Exam session discarded"})
}

func (h *ExamHandlers) GetResults(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)

	response, err := h.service.Results(c.Context(), c.Params("userKey"), limit)
	if err != nil {
		return err
	}

	return c.JSON(response)
}
