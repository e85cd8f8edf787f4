package conversationinfra

import (
	"context"
	"time"

	"github.com/Abraxas-365/certcoach/pkg/ai/llm"
	"github.com/Abraxas-365/certcoach/pkg/coach/conversation"
	"github.com/Abraxas-365/certcoach/pkg/config"
	"github.com/Abraxas-365/certcoach/pkg/errx"
)

// LLMCompletionService adapta el cliente LLM al contrato CompletionService.
// One attempt per call, no retries; the configured timeout bounds the only
// long-blocking operation of a chat turn.
type LLMCompletionService struct {
	client      *llm.Client
	model       string
	temperature float32
	timeout     time.Duration
}

// NewLLMCompletionService crea el servicio de completado sobre el cliente LLM
func NewLLMCompletionService(client *llm.Client, cfg *config.OpenAIConfig) conversation.CompletionService {
	return &LLMCompletionService{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}
}

// Complete envía el prompt ensamblado al modelo y devuelve el texto de respuesta
func (s *LLMCompletionService) Complete(ctx context.Context, prompt []conversation.Message) (string, error) {
	messages := make([]llm.Message, 0, len(prompt))
	for _, m := range prompt {
		messages = append(messages, llm.Message{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	response, err := s.client.Chat(ctx, messages,
		llm.WithModel(s.model),
		llm.WithTemperature(s.temperature),
	)
	if err != nil {
		return "", errx.Wrap(err, "chat completion request failed", errx.TypeExternal).
			WithDetail("model", s.model)
	}

	return response.Message.Content, nil
}
