package examinfra

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Abraxas-365/certcoach/pkg/ai/llm"
	"github.com/Abraxas-365/certcoach/pkg/coach/exam"
	"github.com/Abraxas-365/certcoach/pkg/config"
	"github.com/Abraxas-365/certcoach/pkg/errx"
)

const generatorSystemPrompt = `You write practice exam questions for AWS certifications.
Reply with a single JSON object and nothing else, using exactly this shape:
{
  "text": "the question",
  "kind": "single" or "multiple",
  "options": ["option A", "option B", "option C", "option D"],
  "correct_answers": ["the correct option(s), copied verbatim from options"],
  "explanation": "why the correct answer is correct",
  "reference": "URL of the relevant AWS documentation page"
}
Questions must reflect the real exam style of the requested certification.`

// LLMQuestionGenerator genera preguntas de examen usando el modelo de lenguaje
type LLMQuestionGenerator struct {
	client *llm.Client
	model  string
}

// NewLLMQuestionGenerator crea el generador de preguntas
func NewLLMQuestionGenerator(client *llm.Client, cfg *config.OpenAIConfig) exam.QuestionGenerator {
	return &LLMQuestionGenerator{
		client: client,
		model:  cfg.Model,
	}
}

// Generate pide al modelo una pregunta nueva y valida su estructura
func (g *LLMQuestionGenerator) Generate(ctx context.Context, certification string, difficulty exam.Difficulty, topic string) (*exam.Question, error) {
	response, err := g.client.Chat(ctx,
		[]llm.Message{
			llm.NewSystemMessage(generatorSystemPrompt),
			llm.NewUserMessage(buildQuestionPrompt(certification, difficulty, topic)),
		},
		llm.WithModel(g.model),
		llm.WithTemperature(0.3),
		llm.WithJSONMode(),
	)
	if err != nil {
		return nil, errx.Wrap(err, "question generation request failed", errx.TypeExternal).
			WithDetail("certification", certification)
	}

	var question exam.Question
	reply := llm.CleanJSONReply(response.Message.Content)
	if err := json.Unmarshal([]byte(reply), &question); err != nil {
		return nil, errx.Wrap(err, "model reply was not a valid question", errx.TypeExternal).
			WithDetail("certification", certification)
	}

	if err := question.Validate(); err != nil {
		return nil, err
	}

	return &question, nil
}

func buildQuestionPrompt(certification string, difficulty exam.Difficulty, topic string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write one %s question for the %s certification exam.", difficulty, certification)
	if topic != "" {
		fmt.Fprintf(&b, " Focus on: %s.", topic)
	}
	return b.String()
}
