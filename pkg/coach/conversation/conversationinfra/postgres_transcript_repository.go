package conversationinfra

import (
	"context"

	"github.com/Abraxas-365/certcoach/pkg/coach/conversation"
	"github.com/Abraxas-365/certcoach/pkg/errx"
	"github.com/jmoiron/sqlx"
)

// PostgresTranscriptRepository implementación de PostgreSQL para TranscriptRepository
type PostgresTranscriptRepository struct {
	db *sqlx.DB
}

// NewPostgresTranscriptRepository crea una nueva instancia del repositorio de transcripciones
func NewPostgresTranscriptRepository(db *sqlx.DB) conversation.TranscriptRepository {
	return &PostgresTranscriptRepository{
		db: db,
	}
}

// Save registra un intercambio pregunta/respuesta
func (r *PostgresTranscriptRepository) Save(ctx context.Context, entry conversation.TranscriptEntry) error {
	query := `
		INSERT INTO chat_history (
			id, session_key, question, answer, created_at
		) VALUES (
			:id, :session_key, :question, :answer, :created_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		return errx.Wrap(err, "failed to save transcript entry", errx.TypeInternal).
			WithDetail("session_key", entry.SessionKey)
	}

	return nil
}

// FindBySessionKey busca los intercambios más recientes de una sesión
func (r *PostgresTranscriptRepository) FindBySessionKey(ctx context.Context, key conversation.SessionKey, limit int) ([]conversation.TranscriptEntry, error) {
	query := `
		SELECT id, session_key, question, answer, created_at
		FROM chat_history
		WHERE session_key = $1
		ORDER BY created_at DESC
		LIMIT $2`

	var entries []conversation.TranscriptEntry
	err := r.db.SelectContext(ctx, &entries, query, key.String(), limit)
	if err != nil {
		return nil, errx.Wrap(err, "failed to find transcript entries", errx.TypeInternal).
			WithDetail("session_key", key.String())
	}

	return entries, nil
}
