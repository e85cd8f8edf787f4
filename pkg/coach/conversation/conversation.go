package conversation

import (
	"net/http"
	"strings"
	"time"

	"github.com/Abraxas-365/certcoach/pkg/errx"
)

// ============================================================================
// Session Memory Entities
// ============================================================================

// SessionKey identifica la conversación de un usuario
type SessionKey string

func (k SessionKey) String() string {
	return string(k)
}

func (k SessionKey) IsEmpty() bool {
	return strings.TrimSpace(string(k)) == ""
}

// Role es el emisor de un mensaje. Closed set: system, user, assistant.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message es un turno de la conversación
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Validate verifica que el mensaje tenga rol conocido y contenido no vacío
func (m Message) Validate() error {
	if !m.Role.Valid() {
		return ErrInvalidMessage().WithDetail("role", string(m.Role))
	}
	if strings.TrimSpace(m.Content) == "" {
		return ErrInvalidMessage().WithDetail("reason", "empty content")
	}
	return nil
}

// ============================================================================
// History
// ============================================================================

// History es la memoria acotada de una sesión, ordenada del mensaje más
// antiguo al más reciente. Only user/assistant turns are ever stored; the
// system prompt gets injected at assembly time.
type History []Message

// Validate rejects anything that should never have been persisted
func (h History) Validate() error {
	for i, m := range h {
		if err := m.Validate(); err != nil {
			return err
		}
		if m.Role == RoleSystem {
			return ErrHistoryCorrupt().WithDetail("index", i).
				WithDetail("reason", "system message in stored history")
		}
	}
	return nil
}

// TrimToBound drops the oldest messages until the history fits the bound.
// The newest messages always survive. If the cut would leave an assistant
// reply without its question, that reply is dropped too.
func (h History) TrimToBound(bound int) History {
	if bound <= 0 {
		return History{}
	}
	if len(h) <= bound {
		return h
	}

	start := len(h) - bound
	if h[start].Role == RoleAssistant {
		start++
	}
	return h[start:]
}

// AppendExchange agrega un intercambio completo (pregunta y respuesta) y
// recorta los mensajes más antiguos para respetar el límite. Trimming a full
// exchange at a time keeps question/answer pairs intact.
func (h History) AppendExchange(question, answer string, bound int) (History, error) {
	userMsg := NewUserMessage(question)
	if err := userMsg.Validate(); err != nil {
		return nil, err
	}
	assistantMsg := NewAssistantMessage(answer)
	if err := assistantMsg.Validate(); err != nil {
		return nil, err
	}

	updated := make(History, 0, len(h)+2)
	updated = append(updated, h...)
	updated = append(updated, userMsg, assistantMsg)

	return updated.TrimToBound(bound), nil
}

// AssemblePrompt construye la secuencia que se envía al modelo:
// [system] + últimos mensajes de la historia + [nueva pregunta].
// The system message is synthesized fresh on every call, never read back
// from storage, so prompt changes take effect immediately for old sessions.
func AssemblePrompt(systemPrompt string, h History, window int, userMessage string) []Message {
	recent := h.TrimToBound(window)

	prompt := make([]Message, 0, len(recent)+2)
	prompt = append(prompt, NewSystemMessage(systemPrompt))
	prompt = append(prompt, recent...)
	prompt = append(prompt, NewUserMessage(userMessage))
	return prompt
}

// ============================================================================
// Load Outcome
// ============================================================================

// LoadOutcome dice por cuál rama pasó la carga de la historia. Recovered
// means the stored payload was unusable and an empty history took its place.
type LoadOutcome string

const (
	LoadHit       LoadOutcome = "hit"
	LoadMiss      LoadOutcome = "miss"
	LoadRecovered LoadOutcome = "recovered"
)

// ============================================================================
// Transcript
// ============================================================================

// TranscriptEntry es un intercambio registrado para auditoría y analítica.
// Se escribe best-effort: perderlo nunca afecta la respuesta al usuario.
type TranscriptEntry struct {
	ID         string    `db:"id" json:"id"`
	SessionKey string    `db:"session_key" json:"session_key"`
	Question   string    `db:"question" json:"question"`
	Answer     string    `db:"answer" json:"answer"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ============================================================================
// Service DTOs
// ============================================================================

// ChatRequest representa la petición de un turno de conversación
type ChatRequest struct {
	SessionKey   string `json:"session_key"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	Message      string `json:"message"`
}

// ChatResponse es la respuesta de un turno
type ChatResponse struct {
	Answer        string `json:"answer"`
	HistoryLength int    `json:"history_length"`
}

// TranscriptListResponse lista los intercambios registrados de una sesión
type TranscriptListResponse struct {
	Entries []TranscriptEntry `json:"entries"`
	Total   int               `json:"total"`
}

// ============================================================================
// Error Registry - Errores específicos de Chat
// ============================================================================

var ErrRegistry = errx.NewRegistry("CHAT")

// Códigos de error
var (
	CodeInvalidSessionKey     = ErrRegistry.Register("INVALID_SESSION_KEY", errx.TypeValidation, http.StatusBadRequest, "Clave de sesión inválida")
	CodeInvalidMessage        = ErrRegistry.Register("INVALID_MESSAGE", errx.TypeValidation, http.StatusBadRequest, "Mensaje inválido")
	CodeMessageTooLong        = ErrRegistry.Register("MESSAGE_TOO_LONG", errx.TypeValidation, http.StatusBadRequest, "El mensaje excede la longitud máxima permitida")
	CodeCompletionUnavailable = ErrRegistry.Register("COMPLETION_UNAVAILABLE", errx.TypeExternal, http.StatusBadGateway, "El servicio de respuestas no está disponible")
	CodeHistoryCorrupt        = ErrRegistry.Register("HISTORY_CORRUPT", errx.TypeInternal, http.StatusInternalServerError, "Historial de conversación corrupto")
)

// Helper functions para crear errores
func ErrInvalidSessionKey() *errx.Error {
	return ErrRegistry.New(CodeInvalidSessionKey)
}

func ErrInvalidMessage() *errx.Error {
	return ErrRegistry.New(CodeInvalidMessage)
}

func ErrMessageTooLong() *errx.Error {
	return ErrRegistry.New(CodeMessageTooLong)
}

func ErrCompletionUnavailable() *errx.Error {
	return ErrRegistry.New(CodeCompletionUnavailable)
}

func ErrHistoryCorrupt() *errx.Error {
	return ErrRegistry.New(CodeHistoryCorrupt)
}
