package examinfra

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Abraxas-365/certcoach/pkg/coach/exam"
	"github.com/Abraxas-365/certcoach/pkg/errx"
	"github.com/redis/go-redis/v9"
)

// RedisSessionRepository implementación en Redis del SessionRepository.
// Sessions expire on their own; an abandoned exam just disappears.
type RedisSessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionRepository crea el repositorio de sesiones de examen
func NewRedisSessionRepository(client *redis.Client, ttl time.Duration) exam.SessionRepository {
	return &RedisSessionRepository{
		client: client,
		ttl:    ttl,
	}
}

func examSessionKey(sessionID string) string {
	return fmt.Sprintf("exam_session:%s", sessionID)
}

// Save guarda el estado de la sesión y renueva su expiración
func (r *RedisSessionRepository) Save(ctx context.Context, session *exam.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return errx.Wrap(err, "failed to serialize exam session", errx.TypeInternal).
			WithDetail("session_id", session.ID)
	}

	if err := r.client.Set(ctx, examSessionKey(session.ID), payload, r.ttl).Err(); err != nil {
		return errx.Wrap(err, "failed to write exam session to Redis", errx.TypeInternal).
			WithDetail("session_id", session.ID)
	}
	return nil
}

// Find busca una sesión de examen por ID
func (r *RedisSessionRepository) Find(ctx context.Context, sessionID string) (*exam.Session, error) {
	payload, err := r.client.Get(ctx, examSessionKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, exam.ErrSessionNotFound().WithDetail("session_id", sessionID)
		}
		return nil, errx.Wrap(err, "failed to read exam session from Redis", errx.TypeInternal).
			WithDetail("session_id", sessionID)
	}

	var session exam.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, errx.Wrap(err, "failed to deserialize exam session", errx.TypeInternal).
			WithDetail("session_id", sessionID)
	}

	return &session, nil
}

// Delete elimina la sesión de examen
func (r *RedisSessionRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, examSessionKey(sessionID)).Err(); err != nil {
		return errx.Wrap(err, "failed to delete exam session from Redis", errx.TypeInternal).
			WithDetail("session_id", sessionID)
	}
	return nil
}
