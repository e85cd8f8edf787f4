package study

import (
	"net/http"

	"github.com/Abraxas-365/certcoach/pkg/errx"
)

// passingScore es el puntaje mínimo para dar una respuesta por aprobada
const passingScore = 70

// ============================================================================
// Study Aid Entities
// ============================================================================

// TrickSet son ayudas de memoria generadas para un tema.
// Si el modelo no entrega la estructura completa, KeyPoints puede llevar el
// texto crudo como respaldo.
type TrickSet struct {
	Mnemonic      string   `json:"mnemonic,omitempty"`
	Analogy       string   `json:"analogy,omitempty"`
	Visualization string   `json:"visualization,omitempty"`
	KeyPoints     []string `json:"key_points,omitempty"`
}

// Evaluation es la corrección de una respuesta libre del estudiante
type Evaluation struct {
	Score       int      `json:"score"`
	Grade       string   `json:"grade"`
	Strengths   []string `json:"strengths,omitempty"`
	Weaknesses  []string `json:"weaknesses,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	ModelAnswer string   `json:"model_answer,omitempty"`
	Passed      bool     `json:"passed"`
}

// Normalize acota el puntaje a 0-100 y deriva la calificación y el aprobado.
// The model fills score; grade and passed are always derived here.
func (e *Evaluation) Normalize() {
	if e.Score < 0 {
		e.Score = 0
	}
	if e.Score > 100 {
		e.Score = 100
	}
	e.Grade = GradeForScore(e.Score)
	e.Passed = e.Score >= passingScore
}

// GradeForScore convierte un puntaje 0-100 en una calificación de letra
func GradeForScore(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// ============================================================================
// Service DTOs
// ============================================================================

// TricksRequest pide ayudas de memoria para un tema
type TricksRequest struct {
	Certification string `json:"certification,omitempty"`
	Topic         string `json:"topic"`
}

// EvaluationRequest pide la corrección de una respuesta libre
type EvaluationRequest struct {
	Certification string `json:"certification,omitempty"`
	Question      string `json:"question"`
	Answer        string `json:"answer"`
}

// ============================================================================
// Error Registry - Errores específicos de Study
// ============================================================================

var ErrRegistry = errx.NewRegistry("STUDY")

// Códigos de error
var (
	CodeInvalidRequest   = ErrRegistry.Register("INVALID_REQUEST", errx.TypeValidation, http.StatusBadRequest, "Solicitud de estudio inválida")
	CodeGenerationFailed = ErrRegistry.Register("GENERATION_FAILED", errx.TypeExternal, http.StatusBadGateway, "No se pudieron generar las ayudas de estudio")
	CodeEvaluationFailed = ErrRegistry.Register("EVALUATION_FAILED", errx.TypeExternal, http.StatusBadGateway, "No se pudo evaluar la respuesta")
)

// Helper functions para crear errores
func ErrInvalidRequest() *errx.Error {
	return ErrRegistry.New(CodeInvalidRequest)
}

func ErrGenerationFailed() *errx.Error {
	return ErrRegistry.New(CodeGenerationFailed)
}

func ErrEvaluationFailed() *errx.Error {
	return ErrRegistry.New(CodeEvaluationFailed)
}
