package conversationsrv

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Abraxas-365/certcoach/pkg/coach/conversation"
	"github.com/Abraxas-365/certcoach/pkg/config"
	"github.com/Abraxas-365/certcoach/pkg/logx"
	"github.com/google/uuid"
)

// ConversationService orquesta un turno completo de conversación con el tutor:
// carga la historia, arma el prompt, pide la respuesta al modelo y persiste el
// intercambio. Storage problems degrade the session memory, never the answer.
type ConversationService struct {
	store       conversation.SessionStore
	completions conversation.CompletionService
	transcripts conversation.TranscriptRepository
	cfg         *config.ChatConfig
}

// NewConversationService crea una nueva instancia del servicio de conversación.
// transcripts may be nil; exchanges are then not recorded.
func NewConversationService(
	store conversation.SessionStore,
	completions conversation.CompletionService,
	transcripts conversation.TranscriptRepository,
	cfg *config.ChatConfig,
) *ConversationService {
	return &ConversationService{
		store:       store,
		completions: completions,
		transcripts: transcripts,
		cfg:         cfg,
	}
}

// LoadHistory carga la historia almacenada de una sesión. Every failure past
// key validation is absorbed: a broken or unreadable payload yields an empty
// history and LoadRecovered, so one bad session never takes a request down.
func (s *ConversationService) LoadHistory(ctx context.Context, key conversation.SessionKey) (conversation.History, conversation.LoadOutcome, error) {
	if key.IsEmpty() {
		return nil, "", conversation.ErrInvalidSessionKey()
	}

	payload, found, err := s.store.Get(ctx, key)
	if err != nil {
		logx.WithFields(logx.Fields{
			"session_key": key.String(),
			"error":       err.Error(),
		}).Error("session store unavailable, continuing with empty history")
		return conversation.History{}, conversation.LoadRecovered, nil
	}
	if !found {
		return conversation.History{}, conversation.LoadMiss, nil
	}

	var history conversation.History
	if err := json.Unmarshal(payload, &history); err != nil {
		logx.WithFields(logx.Fields{
			"session_key": key.String(),
			"error":       err.Error(),
		}).Warn("stored history is unreadable, starting over")
		return conversation.History{}, conversation.LoadRecovered, nil
	}

	if err := history.Validate(); err != nil {
		logx.WithFields(logx.Fields{
			"session_key": key.String(),
			"error":       err.Error(),
		}).Warn("stored history failed validation, starting over")
		return conversation.History{}, conversation.LoadRecovered, nil
	}

	// Una historia escrita bajo un límite anterior más alto puede venir
	// sobredimensionada; se recorta al cargar.
	return history.TrimToBound(s.cfg.HistoryLimit), conversation.LoadHit, nil
}

// SubmitMessage ejecuta un turno completo de conversación y retorna la
// respuesta del tutor junto con el tamaño de la historia resultante.
//
// Si el modelo falla no se escribe nada: la sesión queda exactamente como
// estaba y el cliente puede reintentar el mismo mensaje.
//
// Dos turnos concurrentes sobre la misma sesión no se serializan: el ciclo
// leer-modificar-guardar no es atómico, el último save gana y el intercambio
// del turno perdedor se pierde.
func (s *ConversationService) SubmitMessage(ctx context.Context, req conversation.ChatRequest) (*conversation.ChatResponse, error) {
	// Validar la petición antes de tocar cualquier dependencia
	key := conversation.SessionKey(req.SessionKey)
	if key.IsEmpty() {
		return nil, conversation.ErrInvalidSessionKey()
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, conversation.ErrInvalidMessage().WithDetail("reason", "empty message")
	}
	if s.cfg.MaxMessageLen > 0 && len(req.Message) > s.cfg.MaxMessageLen {
		return nil, conversation.ErrMessageTooLong().
			WithDetail("length", len(req.Message)).
			WithDetail("max_length", s.cfg.MaxMessageLen)
	}

	// Cargar la historia de la sesión
	history, outcome, err := s.LoadHistory(ctx, key)
	if err != nil {
		return nil, err
	}
	if outcome == conversation.LoadRecovered {
		logx.WithFields(logx.Fields{
			"session_key": key.String(),
		}).Warn("conversation continues without prior context")
	}

	// Armar el prompt con el system prompt vigente, nunca el almacenado
	systemPrompt := strings.TrimSpace(req.SystemPrompt)
	if systemPrompt == "" {
		systemPrompt = s.cfg.SystemPrompt
	}
	prompt := conversation.AssemblePrompt(systemPrompt, history, s.cfg.PromptWindow, req.Message)

	// Un solo intento contra el modelo, sin reintentos
	answer, err := s.completions.Complete(ctx, prompt)
	if err != nil {
		return nil, conversation.ErrRegistry.NewWithErr(conversation.CodeCompletionUnavailable, err).
			WithDetail("session_key", key.String())
	}
	if strings.TrimSpace(answer) == "" {
		return nil, conversation.ErrCompletionUnavailable().
			WithDetail("session_key", key.String()).
			WithDetail("reason", "empty completion")
	}

	// Registrar el intercambio y recortar al límite
	updated, err := history.AppendExchange(req.Message, answer, s.cfg.HistoryLimit)
	if err != nil {
		return nil, err
	}

	// Persistir la historia actualizada. A failed write costs future context,
	// not the answer the model already produced.
	if err := s.SaveHistory(ctx, key, updated); err != nil {
		logx.WithFields(logx.Fields{
			"session_key": key.String(),
			"error":       err.Error(),
		}).Error("answer returned but history was not persisted")
	}

	s.recordTranscript(ctx, key, req.Message, answer)

	return &conversation.ChatResponse{
		Answer:        answer,
		HistoryLength: len(updated),
	}, nil
}

// SaveHistory serializa y guarda la historia de una sesión, renovando su TTL
func (s *ConversationService) SaveHistory(ctx context.Context, key conversation.SessionKey, history conversation.History) error {
	if key.IsEmpty() {
		return conversation.ErrInvalidSessionKey()
	}

	payload, err := json.Marshal(history)
	if err != nil {
		return conversation.ErrRegistry.NewWithErr(conversation.CodeHistoryCorrupt, err).
			WithDetail("session_key", key.String())
	}

	return s.store.Set(ctx, key, payload, s.cfg.SessionTTL)
}

// ClearSession borra la memoria de una sesión
func (s *ConversationService) ClearSession(ctx context.Context, key conversation.SessionKey) error {
	if key.IsEmpty() {
		return conversation.ErrInvalidSessionKey()
	}
	return s.store.Delete(ctx, key)
}

// Transcript lista los intercambios registrados de una sesión
func (s *ConversationService) Transcript(ctx context.Context, key conversation.SessionKey, limit int) (*conversation.TranscriptListResponse, error) {
	if key.IsEmpty() {
		return nil, conversation.ErrInvalidSessionKey()
	}

	if s.transcripts == nil {
		return &conversation.TranscriptListResponse{Entries: []conversation.TranscriptEntry{}}, nil
	}

	entries, err := s.transcripts.FindBySessionKey(ctx, key, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []conversation.TranscriptEntry{}
	}

	return &conversation.TranscriptListResponse{
		Entries: entries,
		Total:   len(entries),
	}, nil
}

// recordTranscript guarda el intercambio en el registro de auditoría.
// Best-effort: the answer already went out, so failures are only logged.
func (s *ConversationService) recordTranscript(ctx context.Context, key conversation.SessionKey, question, answer string) {
	if s.transcripts == nil {
		return
	}

	entry := conversation.TranscriptEntry{
		ID:         uuid.NewString(),
		SessionKey: key.String(),
		Question:   question,
		Answer:     answer,
		CreatedAt:  time.Now(),
	}

	if err := s.transcripts.Save(ctx, entry); err != nil {
		logx.WithFields(logx.Fields{
			"session_key": key.String(),
			"error":       err.Error(),
		}).Warn("transcript entry was not recorded")
	}
}
