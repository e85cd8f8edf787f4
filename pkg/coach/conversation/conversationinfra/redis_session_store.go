package conversationinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/Abraxas-365/certcoach/pkg/coach/conversation"
	"github.com/Abraxas-365/certcoach/pkg/errx"
	"github.com/redis/go-redis/v9"
)

// RedisSessionStore implementación en Redis del SessionStore
type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore crea el session store respaldado por Redis
func NewRedisSessionStore(client *redis.Client) conversation.SessionStore {
	return &RedisSessionStore{
		client: client,
	}
}

func sessionKey(key conversation.SessionKey) string {
	return fmt.Sprintf("chat_session:%s", key.String())
}

// Get obtiene el payload almacenado de una sesión
func (s *RedisSessionStore) Get(ctx context.Context, key conversation.SessionKey) ([]byte, bool, error) {
	payload, err := s.client.Get(ctx, sessionKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, errx.Wrap(err, "failed to read session from Redis", errx.TypeInternal).
			WithDetail("session_key", key.String())
	}

	return payload, true, nil
}

// Set reemplaza el payload de la sesión y reinicia su expiración
func (s *RedisSessionStore) Set(ctx context.Context, key conversation.SessionKey, payload []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, sessionKey(key), payload, ttl).Err(); err != nil {
		return errx.Wrap(err, "failed to write session to Redis", errx.TypeInternal).
			WithDetail("session_key", key.String())
	}
	return nil
}

// Delete elimina la memoria de la sesión
func (s *RedisSessionStore) Delete(ctx context.Context, key conversation.SessionKey) error {
	if err := s.client.Del(ctx, sessionKey(key)).Err(); err != nil {
		return errx.Wrap(err, "failed to delete session from Redis", errx.TypeInternal).
			WithDetail("session_key", key.String())
	}
	return nil
}
