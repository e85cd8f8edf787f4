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

// RedisQuestionQueue implementación en Redis de la cola de preguntas.
// El generador empuja por la derecha y el examen consume por la izquierda,
// así las preguntas salen en el orden en que se generaron.
type RedisQuestionQueue struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisQuestionQueue crea la cola de preguntas pre-generadas
func NewRedisQuestionQueue(client *redis.Client, ttl time.Duration) exam.QuestionQueue {
	return &RedisQuestionQueue{
		client: client,
		ttl:    ttl,
	}
}

func examQueueKey(sessionID string) string {
	return fmt.Sprintf("exam_queue:%s", sessionID)
}

// Push encola una pregunta generada para la sesión
func (q *RedisQuestionQueue) Push(ctx context.Context, sessionID string, question *exam.Question) error {
	payload, err := json.Marshal(question)
	if err != nil {
		return errx.Wrap(err, "failed to serialize question", errx.TypeInternal).
			WithDetail("session_id", sessionID)
	}

	key := examQueueKey(sessionID)
	if err := q.client.RPush(ctx, key, payload).Err(); err != nil {
		return errx.Wrap(err, "failed to enqueue question", errx.TypeInternal).
			WithDetail("session_id", sessionID)
	}

	// La cola muere junto con la sesión
	if err := q.client.Expire(ctx, key, q.ttl).Err(); err != nil {
		return errx.Wrap(err, "failed to set queue expiry", errx.TypeInternal).
			WithDetail("session_id", sessionID)
	}
	return nil
}

// Pop saca la siguiente pregunta de la cola, si hay alguna lista
func (q *RedisQuestionQueue) Pop(ctx context.Context, sessionID string) (*exam.Question, bool, error) {
	payload, err := q.client.LPop(ctx, examQueueKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, errx.Wrap(err, "failed to dequeue question", errx.TypeInternal).
			WithDetail("session_id", sessionID)
	}

	var question exam.Question
	if err := json.Unmarshal(payload, &question); err != nil {
		return nil, false, errx.Wrap(err, "failed to deserialize question", errx.TypeInternal).
			WithDetail("session_id", sessionID)
	}

	return &question, true, nil
}

// Clear descarta las preguntas pendientes de la sesión
func (q *RedisQuestionQueue) Clear(ctx context.Context, sessionID string) error {
	if err := q.client.Del(ctx, examQueueKey(sessionID)).Err(); err != nil {
		return errx.Wrap(err, "failed to clear question queue", errx.TypeInternal).
			WithDetail("session_id", sessionID)
	}
	return nil
}
