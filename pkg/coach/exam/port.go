package exam

import "context"

// SessionRepository define el contrato para el estado de exámenes en curso
type SessionRepository interface {
	Save(ctx context.Context, session *Session) error
	Find(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// QuestionQueue define el contrato para la cola de preguntas pre-generadas.
// Pop returns ok=false when the queue is empty; the generator may still be
// filling it in the background.
type QuestionQueue interface {
	Push(ctx context.Context, sessionID string, question *Question) error
	Pop(ctx context.Context, sessionID string) (*Question, bool, error)
	Clear(ctx context.Context, sessionID string) error
}

// QuestionGenerator define el contrato con el modelo que redacta preguntas
type QuestionGenerator interface {
	Generate(ctx context.Context, certification string, difficulty Difficulty, topic string) (*Question, error)
}

// ResultRepository define el contrato para los resultados históricos
type ResultRepository interface {
	Save(ctx context.Context, result Result) error
	FindByUserKey(ctx context.Context, userKey string, limit int) ([]Result, error)
}
