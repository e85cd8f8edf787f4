package examsrv

import (
	"context"
	"strings"
	"time"

	"github.com/Abraxas-365/certcoach/pkg/coach/exam"
	"github.com/Abraxas-365/certcoach/pkg/config"
	"github.com/Abraxas-365/certcoach/pkg/logx"
	"github.com/google/uuid"
)

// generationAttempts es cuántas veces se intenta generar cada pregunta de
// fondo antes de dejar el hueco y seguir con la siguiente
const generationAttempts = 2

// ExamService orquesta los exámenes de práctica. La primera pregunta se
// genera de forma síncrona para que el examen arranque con algo en pantalla;
// el resto se genera en segundo plano y se va encolando.
type ExamService struct {
	sessions  exam.SessionRepository
	queue     exam.QuestionQueue
	generator exam.QuestionGenerator
	results   exam.ResultRepository
	cfg       *config.ExamConfig
	bg        context.Context
}

// NewExamService crea una nueva instancia del servicio de exámenes.
// results may be nil; finished exams are then not persisted.
func NewExamService(
	sessions exam.SessionRepository,
	queue exam.QuestionQueue,
	generator exam.QuestionGenerator,
	results exam.ResultRepository,
	cfg *config.ExamConfig,
) *ExamService {
	return &ExamService{
		sessions:  sessions,
		queue:     queue,
		generator: generator,
		results:   results,
		cfg:       cfg,
		bg:        context.Background(),
	}
}

// Start engancha la generación de fondo al ciclo de vida de la aplicación.
// Must be called before traffic arrives; shutting down the context stops
// in-flight background generation.
func (s *ExamService) Start(ctx context.Context) {
	s.bg = ctx
}

// StartSession inicia un examen de práctica y entrega la primera pregunta.
// If the first question cannot be generated no session is created at all.
func (s *ExamService) StartSession(ctx context.Context, req exam.StartSessionRequest) (*exam.StartSessionResponse, error) {
	userKey := strings.TrimSpace(req.UserKey)
	if userKey == "" {
		return nil, exam.ErrInvalidRequest().WithDetail("reason", "user_key is required")
	}

	certification := strings.TrimSpace(req.Certification)
	if certification == "" {
		return nil, exam.ErrInvalidRequest().WithDetail("reason", "certification is required")
	}

	difficulty := exam.DifficultyMedium
	if req.Difficulty != "" {
		difficulty = exam.Difficulty(strings.ToLower(strings.TrimSpace(req.Difficulty)))
		if !difficulty.Valid() {
			return nil, exam.ErrInvalidRequest().WithDetail("difficulty", req.Difficulty)
		}
	}

	total := req.Questions
	if total == 0 {
		total = s.cfg.DefaultQuestions
	}
	if total < 1 {
		return nil, exam.ErrInvalidRequest().WithDetail("questions", req.Questions)
	}
	if total > s.cfg.MaxQuestions {
		return nil, exam.ErrInvalidRequest().
			WithDetail("questions", req.Questions).
			WithDetail("max_questions", s.cfg.MaxQuestions)
	}

	sessionID := uuid.NewString()

	// Primera pregunta síncrona: sin ella no hay examen
	genCtx, cancel := context.WithTimeout(ctx, s.cfg.GenerationTimeout)
	defer cancel()

	first, err := s.generator.Generate(genCtx, certification, difficulty, req.Topic)
	if err != nil {
		return nil, exam.ErrRegistry.NewWithErr(exam.CodeGenerationFailed, err).
			WithDetail("certification", certification)
	}

	session := &exam.Session{
		ID:             sessionID,
		UserKey:        userKey,
		Certification:  certification,
		Difficulty:     difficulty,
		Topic:          strings.TrimSpace(req.Topic),
		TotalQuestions: total,
		StartedAt:      time.Now(),
		Current:        first,
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	logx.WithFields(logx.Fields{
		"session_id":    sessionID,
		"certification": certification,
		"difficulty":    string(difficulty),
		"questions":     total,
	}).Info("exam session started")

	if total > 1 {
		go s.generateRemaining(session, total-1)
	}

	return &exam.StartSessionResponse{
		SessionID:      sessionID,
		Certification:  certification,
		Difficulty:     difficulty,
		TotalQuestions: total,
		Question:       first.View(),
	}, nil
}

// generateRemaining produce el resto de las preguntas en segundo plano.
// It never writes the session itself: answers own that record, the queue is
// the only thing this goroutine touches.
func (s *ExamService) generateRemaining(session *exam.Session, remaining int) {
	for i := 0; i < remaining; i++ {
		// Si el examen ya no existe (quit, finish o TTL), parar
		if _, err := s.sessions.Find(s.bg, session.ID); err != nil {
			logx.WithFields(logx.Fields{
				"session_id": session.ID,
			}).Debug("exam session gone, stopping question generation")
			return
		}

		question, err := s.generateWithRetry(session)
		if err != nil {
			logx.WithFields(logx.Fields{
				"session_id": session.ID,
				"error":      err.Error(),
			}).Error("giving up on a background question, exam will run short")
			continue
		}

		if err := s.queue.Push(s.bg, session.ID, question); err != nil {
			logx.WithFields(logx.Fields{
				"session_id": session.ID,
				"error":      err.Error(),
			}).Warn("generated question could not be enqueued")
		}
	}
}

func (s *ExamService) generateWithRetry(session *exam.Session) (*exam.Question, error) {
	var lastErr error
	for attempt := 0; attempt < generationAttempts; attempt++ {
		genCtx, cancel := context.WithTimeout(s.bg, s.cfg.GenerationTimeout)
		question, err := s.generator.Generate(genCtx, session.Certification, session.Difficulty, session.Topic)
		cancel()
		if err == nil {
			return question, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// NextQuestion entrega la siguiente pregunta del examen. Volver a pedirla
// sin haber respondido devuelve la misma pregunta activa.
func (s *ExamService) NextQuestion(ctx context.Context, sessionID string) (*exam.NextQuestionResponse, error) {
	session, err := s.sessions.Find(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Current != nil {
		return &exam.NextQuestionResponse{
			Number:   session.Answered + 1,
			Total:    session.TotalQuestions,
			Question: session.Current.View(),
		}, nil
	}

	if session.Finished() {
		return nil, exam.ErrExamComplete().WithDetail("session_id", sessionID)
	}

	question, ok, err := s.queue.Pop(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// El generador de fondo todavía no alcanzó esta pregunta
		return nil, exam.ErrQuestionNotReady().
			WithDetail("session_id", sessionID).
			WithDetail("answered", session.Answered)
	}

	session.Current = question
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	return &exam.NextQuestionResponse{
		Number:   session.Answered + 1,
		Total:    session.TotalQuestions,
		Question: question.View(),
	}, nil
}

// SubmitAnswer corrige la pregunta activa y revela la respuesta correcta.
// Envíos concurrentes para la misma sesión no se serializan: el último save
// gana.
func (s *ExamService) SubmitAnswer(ctx context.Context, sessionID string, req exam.AnswerRequest) (*exam.AnswerResponse, error) {
	session, err := s.sessions.Find(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Current == nil {
		if session.Finished() {
			return nil, exam.ErrExamComplete().WithDetail("session_id", sessionID)
		}
		return nil, exam.ErrNoActiveQuestion().WithDetail("session_id", sessionID)
	}

	answered := session.Current
	correct := answered.Check(req.Answers)

	session.RecordAnswer(correct)
	session.Current = nil
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	return &exam.AnswerResponse{
		Correct:        correct,
		CorrectAnswers: answered.CorrectAnswers,
		Explanation:    answered.Explanation,
		Answered:       session.Answered,
		Remaining:      session.TotalQuestions - session.Answered,
	}, nil
}

// Summary retorna el estado observable de una sesión en curso
func (s *ExamService) Summary(ctx context.Context, sessionID string) (*exam.SessionSummary, error) {
	session, err := s.sessions.Find(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &exam.SessionSummary{
		SessionID:      session.ID,
		UserKey:        session.UserKey,
		Certification:  session.Certification,
		Difficulty:     session.Difficulty,
		Topic:          session.Topic,
		TotalQuestions: session.TotalQuestions,
		Answered:       session.Answered,
		Correct:        session.Correct,
		Percentage:     session.Percentage(),
		Passed:         session.Passed(),
		StartedAt:      session.StartedAt,
	}, nil
}

// FinishSession cierra el examen, persiste el resultado y limpia la sesión.
// Finishing early is allowed; unanswered questions count as wrong.
func (s *ExamService) FinishSession(ctx context.Context, sessionID string) (*exam.Result, error) {
	session, err := s.sessions.Find(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	result := exam.Result{
		ID:             uuid.NewString(),
		SessionID:      session.ID,
		UserKey:        session.UserKey,
		Certification:  session.Certification,
		Difficulty:     string(session.Difficulty),
		Topic:          session.Topic,
		TotalQuestions: session.TotalQuestions,
		CorrectAnswers: session.Correct,
		Percentage:     session.Percentage(),
		Passed:         session.Passed(),
		StartedAt:      session.StartedAt,
		CompletedAt:    time.Now(),
	}

	// El resultado ya está calculado; no poder guardarlo no debe ocultárselo
	// al estudiante.
	if s.results != nil {
		if err := s.results.Save(ctx, result); err != nil {
			logx.WithFields(logx.Fields{
				"session_id": sessionID,
				"error":      err.Error(),
			}).Error("exam result was not persisted")
		}
	}

	s.discardSession(ctx, sessionID)

	logx.WithFields(logx.Fields{
		"session_id": sessionID,
		"percentage": result.Percentage,
		"passed":     result.Passed,
	}).Info("exam session finished")

	return &result, nil
}

// QuitSession abandona el examen sin registrar resultado
func (s *ExamService) QuitSession(ctx context.Context, sessionID string) error {
	if _, err := s.sessions.Find(ctx, sessionID); err != nil {
		return err
	}

	s.discardSession(ctx, sessionID)
	return nil
}

// Results lista los resultados históricos de un usuario
func (s *ExamService) Results(ctx context.Context, userKey string, limit int) (*exam.ResultListResponse, error) {
	if strings.TrimSpace(userKey) == "" {
		return nil, exam.ErrInvalidRequest().WithDetail("reason", "user_key is required")
	}

	if s.results == nil {
		return &exam.ResultListResponse{Results: []exam.Result{}}, nil
	}

	results, err := s.results.FindByUserKey(ctx, userKey, limit)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []exam.Result{}
	}

	return &exam.ResultListResponse{
		Results: results,
		Total:   len(results),
	}, nil
}

func (s *ExamService) discardSession(ctx context.Context, sessionID string) {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		logx.WithFields(logx.Fields{
			"session_id": sessionID,
			"error":      err.Error(),
		}).Warn("exam session could not be deleted")
	}
	if err := s.queue.Clear(ctx, sessionID); err != nil {
		logx.WithFields(logx.Fields{
			"session_id": sessionID,
			"error":      err.Error(),
		}).Warn("question queue could not be cleared")
	}
}
