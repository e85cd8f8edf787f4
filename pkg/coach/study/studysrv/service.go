package studysrv

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Abraxas-365/certcoach/pkg/ai/llm"
	"github.com/Abraxas-365/certcoach/pkg/coach/study"
	"github.com/Abraxas-365/certcoach/pkg/config"
	"github.com/Abraxas-365/certcoach/pkg/logx"
)

const tricksSystemPrompt = `You create memorable study aids for AWS certification topics.
Reply with a single JSON object and nothing else, using exactly this shape:
{
  "mnemonic": "a short mnemonic phrase",
  "analogy": "an everyday analogy for the concept",
  "visualization": "a mental image to hold on to",
  "key_points": ["fact worth memorizing", "..."]
}`

const evaluationSystemPrompt = `You grade free-form answers for AWS certification study questions.
Score from 0 to 100 the technical accuracy and completeness of the student's answer.
Reply with a single JSON object and nothing else, using exactly this shape:
{
  "score": 0,
  "strengths": ["what the answer got right"],
  "weaknesses": ["what is wrong or missing"],
  "suggestions": ["what to study next"],
  "model_answer": "a concise correct answer"
}`

// StudyService genera ayudas de memoria y corrige respuestas libres
type StudyService struct {
	client *llm.Client
	model  string
}

// NewStudyService crea una nueva instancia del servicio de estudio
func NewStudyService(client *llm.Client, cfg *config.OpenAIConfig) *StudyService {
	return &StudyService{
		client: client,
		model:  cfg.Model,
	}
}

// GenerateTricks produce ayudas de memoria para un tema. If the model reply
// cannot be parsed, the raw text is still returned as a single key point.
func (s *StudyService) GenerateTricks(ctx context.Context, req study.TricksRequest) (*study.TrickSet, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, study.ErrInvalidRequest().WithDetail("reason", "topic is required")
	}

	userPrompt := fmt.Sprintf("Create study aids for the topic: %s.", topic)
	if cert := strings.TrimSpace(req.Certification); cert != "" {
		userPrompt += fmt.Sprintf(" The student is preparing for the %s certification.", cert)
	}

	response, err := s.client.Chat(ctx,
		[]llm.Message{
			llm.NewSystemMessage(tricksSystemPrompt),
			llm.NewUserMessage(userPrompt),
		},
		llm.WithModel(s.model),
		llm.WithTemperature(0.3),
		llm.WithJSONMode(),
	)
	if err != nil {
		return nil, study.ErrRegistry.NewWithErr(study.CodeGenerationFailed, err).
			WithDetail("topic", topic)
	}

	reply := llm.CleanJSONReply(response.Message.Content)

	var tricks study.TrickSet
	if err := json.Unmarshal([]byte(reply), &tricks); err != nil {
		// Entregar algo sigue siendo mejor que fallar: el texto crudo va
		// como único punto clave.
		logx.WithFields(logx.Fields{
			"topic": topic,
			"error": err.Error(),
		}).Warn("study aids reply was not structured, returning raw text")
		return &study.TrickSet{KeyPoints: []string{strings.TrimSpace(response.Message.Content)}}, nil
	}

	return &tricks, nil
}

// EvaluateAnswer corrige una respuesta libre del estudiante. Unlike tricks,
// grading without structure is useless, so unparseable replies fail.
func (s *StudyService) EvaluateAnswer(ctx context.Context, req study.EvaluationRequest) (*study.Evaluation, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, study.ErrInvalidRequest().WithDetail("reason", "question is required")
	}
	answer := strings.TrimSpace(req.Answer)
	if answer == "" {
		return nil, study.ErrInvalidRequest().WithDetail("reason", "answer is required")
	}

	userPrompt := fmt.Sprintf("Question: %s\n\nStudent's answer: %s", question, answer)
	if cert := strings.TrimSpace(req.Certification); cert != "" {
		userPrompt += fmt.Sprintf("\n\nCertification context: %s", cert)
	}

	response, err := s.client.Chat(ctx,
		[]llm.Message{
			llm.NewSystemMessage(evaluationSystemPrompt),
			llm.NewUserMessage(userPrompt),
		},
		llm.WithModel(s.model),
		llm.WithTemperature(0.2),
		llm.WithJSONMode(),
	)
	if err != nil {
		return nil, study.ErrRegistry.NewWithErr(study.CodeEvaluationFailed, err)
	}

	reply := llm.CleanJSONReply(response.Message.Content)

	var evaluation study.Evaluation
	if err := json.Unmarshal([]byte(reply), &evaluation); err != nil {
		return nil, study.ErrRegistry.NewWithErr(study.CodeEvaluationFailed, err).
			WithDetail("reason", "model reply was not structured")
	}

	evaluation.Normalize()

	return &evaluation, nil
}
