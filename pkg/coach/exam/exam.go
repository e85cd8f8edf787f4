package exam

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Abraxas-365/certcoach/pkg/errx"
)

// PassingScore es el porcentaje mínimo para aprobar un examen de práctica
const PassingScore = 70

// ============================================================================
// Exam Entities
// ============================================================================

// Difficulty es la dificultad solicitada para las preguntas
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// QuestionKind distingue preguntas de respuesta única y de selección múltiple
type QuestionKind string

const (
	KindSingle   QuestionKind = "single"
	KindMultiple QuestionKind = "multiple"
)

// Question es una pregunta de examen generada por el modelo
type Question struct {
	Text           string       `json:"text"`
	Kind           QuestionKind `json:"kind"`
	Options        []string     `json:"options"`
	CorrectAnswers []string     `json:"correct_answers"`
	Explanation    string       `json:"explanation"`
	Reference      string       `json:"reference,omitempty"`
}

// Validate verifica que la pregunta generada sea usable
func (q *Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return errx.New("generated question has no text", errx.TypeExternal)
	}
	if len(q.Options) < 2 {
		return errx.New("generated question needs at least two options", errx.TypeExternal)
	}
	if len(q.CorrectAnswers) == 0 {
		return errx.New("generated question has no correct answer", errx.TypeExternal)
	}
	if q.Kind == "" {
		if len(q.CorrectAnswers) > 1 {
			q.Kind = KindMultiple
		} else {
			q.Kind = KindSingle
		}
	}
	return nil
}

// Check compara las respuestas del estudiante con las correctas.
// Comparison is order-insensitive and ignores case and surrounding spaces.
func (q *Question) Check(answers []string) bool {
	if len(answers) == 0 || len(answers) != len(q.CorrectAnswers) {
		return false
	}

	given := normalizeAnswers(answers)
	correct := normalizeAnswers(q.CorrectAnswers)

	for i := range correct {
		if given[i] != correct[i] {
			return false
		}
	}
	return true
}

func normalizeAnswers(answers []string) []string {
	normalized := make([]string, 0, len(answers))
	for _, a := range answers {
		normalized = append(normalized, strings.ToLower(strings.TrimSpace(a)))
	}
	sort.Strings(normalized)
	return normalized
}

// View retorna la pregunta sin las respuestas correctas ni la explicación
func (q *Question) View() QuestionView {
	return QuestionView{
		Text:      q.Text,
		Kind:      q.Kind,
		Options:   q.Options,
		Reference: q.Reference,
	}
}

// QuestionView es la pregunta tal como la ve el estudiante
type QuestionView struct {
	Text      string       `json:"text"`
	Kind      QuestionKind `json:"kind"`
	Options   []string     `json:"options"`
	Reference string       `json:"reference,omitempty"`
}

// Session es un examen de práctica en curso. Current is the question handed
// out and not yet answered; questions still in the queue do not appear here.
type Session struct {
	ID             string     `json:"id"`
	UserKey        string     `json:"user_key"`
	Certification  string     `json:"certification"`
	Difficulty     Difficulty `json:"difficulty"`
	Topic          string     `json:"topic,omitempty"`
	TotalQuestions int        `json:"total_questions"`
	Answered       int        `json:"answered"`
	Correct        int        `json:"correct"`
	StartedAt      time.Time  `json:"started_at"`
	Current        *Question  `json:"current,omitempty"`
}

// RecordAnswer registra el resultado de la pregunta activa
func (s *Session) RecordAnswer(correct bool) {
	s.Answered++
	if correct {
		s.Correct++
	}
}

// Finished indica si ya se respondieron todas las preguntas
func (s *Session) Finished() bool {
	return s.Answered >= s.TotalQuestions
}

// Percentage calcula el porcentaje de respuestas correctas sobre el total del
// examen. Unanswered questions count as wrong.
func (s *Session) Percentage() int {
	if s.TotalQuestions == 0 {
		return 0
	}
	return s.Correct * 100 / s.TotalQuestions
}

// Passed indica si la sesión alcanza el umbral de aprobación
func (s *Session) Passed() bool {
	return s.Percentage() >= PassingScore
}

// Result es el resultado final de un examen, persistido para seguimiento
type Result struct {
	ID             string    `db:"id" json:"id"`
	SessionID      string    `db:"session_id" json:"session_id"`
	UserKey        string    `db:"user_key" json:"user_key"`
	Certification  string    `db:"certification" json:"certification"`
	Difficulty     string    `db:"difficulty" json:"difficulty"`
	Topic          string    `db:"topic" json:"topic,omitempty"`
	TotalQuestions int       `db:"total_questions" json:"total_questions"`
	CorrectAnswers int       `db:"correct_answers" json:"correct_answers"`
	Percentage     int       `db:"percentage" json:"percentage"`
	Passed         bool      `db:"passed" json:"passed"`
	StartedAt      time.Time `db:"started_at" json:"started_at"`
	CompletedAt    time.Time `db:"completed_at" json:"completed_at"`
}

// ============================================================================
// Service DTOs
// ============================================================================

// StartSessionRequest inicia un examen de práctica
type StartSessionRequest struct {
	UserKey       string `json:"user_key"`
	Certification string `json:"certification"`
	Difficulty    string `json:"difficulty,omitempty"`
	Topic         string `json:"topic,omitempty"`
	Questions     int    `json:"questions,omitempty"`
}

// StartSessionResponse entrega la sesión creada junto con la primera pregunta
type StartSessionResponse struct {
	SessionID      string       `json:"session_id"`
	Certification  string       `json:"certification"`
	Difficulty     Difficulty   `json:"difficulty"`
	TotalQuestions int          `json:"total_questions"`
	Question       QuestionView `json:"question"`
}

// NextQuestionResponse entrega la siguiente pregunta del examen
type NextQuestionResponse struct {
	Number   int          `json:"number"`
	Total    int          `json:"total"`
	Question QuestionView `json:"question"`
}

// AnswerRequest son las respuestas del estudiante a la pregunta activa
type AnswerRequest struct {
	Answers []string `json:"answers"`
}

// AnswerResponse revela el resultado con la corrección y explicación
type AnswerResponse struct {
	Correct        bool     `json:"correct"`
	CorrectAnswers []string `json:"correct_answers"`
	Explanation    string   `json:"explanation,omitempty"`
	Answered       int      `json:"answered"`
	Remaining      int      `json:"remaining"`
}

// SessionSummary es el estado observable de una sesión
type SessionSummary struct {
	SessionID      string     `json:"session_id"`
	UserKey        string     `json:"user_key"`
	Certification  string     `json:"certification"`
	Difficulty     Difficulty `json:"difficulty"`
	Topic          string     `json:"topic,omitempty"`
	TotalQuestions int        `json:"total_questions"`
	Answered       int        `json:"answered"`
	Correct        int        `json:"correct"`
	Percentage     int        `json:"percentage"`
	Passed         bool       `json:"passed"`
	StartedAt      time.Time  `json:"started_at"`
}

// ResultListResponse lista los resultados históricos de un usuario
type ResultListResponse struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
}

// ============================================================================
// Error Registry - Errores específicos de Exam
// ============================================================================

var ErrRegistry = errx.NewRegistry("EXAM")

// Códigos de error
var (
	CodeSessionNotFound  = ErrRegistry.Register("SESSION_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Sesión de examen no encontrada")
	CodeInvalidRequest   = ErrRegistry.Register("INVALID_REQUEST", errx.TypeValidation, http.StatusBadRequest, "Solicitud de examen inválida")
	CodeGenerationFailed = ErrRegistry.Register("GENERATION_FAILED", errx.TypeExternal, http.StatusBadGateway, "No se pudo generar la pregunta")
	CodeQuestionNotReady = ErrRegistry.Register("QUESTION_NOT_READY", errx.TypeBusiness, http.StatusTooEarly, "La siguiente pregunta aún no está lista")
	CodeNoActiveQuestion = ErrRegistry.Register("NO_ACTIVE_QUESTION", errx.TypeBusiness, http.StatusConflict, "No hay pregunta activa para responder")
	CodeExamComplete     = ErrRegistry.Register("EXAM_COMPLETE", errx.TypeBusiness, http.StatusConflict, "El examen ya fue completado")
)

// Helper functions para crear errores
func ErrSessionNotFound() *errx.Error {
	return ErrRegistry.New(CodeSessionNotFound)
}

func ErrInvalidRequest() *errx.Error {
	return ErrRegistry.New(CodeInvalidRequest)
}

func ErrGenerationFailed() *errx.Error {
	return ErrRegistry.New(CodeGenerationFailed)
}

func ErrQuestionNotReady() *errx.Error {
	return ErrRegistry.New(CodeQuestionNotReady)
}

func ErrNoActiveQuestion() *errx.Error {
	return ErrRegistry.New(CodeNoActiveQuestion)
}

func ErrExamComplete() *errx.Error {
	return ErrRegistry.New(CodeExamComplete)
}
