package examinfra

import (
	"context"

	"github.com/Abraxas-365/certcoach/pkg/coach/exam"
	"github.com/Abraxas-365/certcoach/pkg/errx"
	"github.com/jmoiron/sqlx"
)

// PostgresResultRepository implementación en PostgreSQL del ResultRepository
type PostgresResultRepository struct {
	db *sqlx.DB
}

// NewPostgresResultRepository crea el repositorio de resultados de examen
func NewPostgresResultRepository(db *sqlx.DB) exam.ResultRepository {
	return &PostgresResultRepository{db: db}
}

// Save persiste el resultado final de un examen
func (r *PostgresResultRepository) Save(ctx context.Context, result exam.Result) error {
	query := `
		INSERT INTO exam_results (
			id, session_id, user_key, certification, difficulty, topic,
			total_questions, correct_answers, percentage, passed,
			started_at, completed_at
		) VALUES (
			:id, :session_id, :user_key, :certification, :difficulty, :topic,
			:total_questions, :correct_answers, :percentage, :passed,
			:started_at, :completed_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		return errx.Wrap(err, "failed to save exam result", errx.TypeInternal).
			WithDetail("session_id", result.SessionID)
	}
	return nil
}

// FindByUserKey lista los resultados de un usuario, del más reciente al más antiguo
func (r *PostgresResultRepository) FindByUserKey(ctx context.Context, userKey string, limit int) ([]exam.Result, error) {
	query := `
		SELECT id, session_id, user_key, certification, difficulty, topic,
		       total_questions, correct_answers, percentage, passed,
		       started_at, completed_at
		FROM exam_results
		WHERE user_key = $1
		ORDER BY completed_at DESC
		LIMIT $2`

	var results []exam.Result
	if err := r.db.SelectContext(ctx, &results, query, userKey, limit); err != nil {
		return nil, errx.Wrap(err, "failed to list exam results", errx.TypeInternal).
			WithDetail("user_key", userKey)
	}

	return results, nil
}
