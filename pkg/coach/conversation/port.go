package conversation

import (
	"context"
	"time"
)

// SessionStore define el contrato para la memoria de sesiones. It moves raw
// payloads only; serialization belongs to the conversation service, which
// owns the whole read-modify-write cycle of a history.
type SessionStore interface {
	// Get returns the stored payload and whether the key exists
	Get(ctx context.Context, key SessionKey) ([]byte, bool, error)
	// Set replaces the payload and resets the expiry clock
	Set(ctx context.Context, key SessionKey, payload []byte, ttl time.Duration) error
	Delete(ctx context.Context, key SessionKey) error
}

// CompletionService define el contrato con el modelo de lenguaje
type CompletionService interface {
	Complete(ctx context.Context, prompt []Message) (string, error)
}

// TranscriptRepository define el contrato para el registro de intercambios
type TranscriptRepository interface {
	Save(ctx context.Context, entry TranscriptEntry) error
	FindBySessionKey(ctx context.Context, key SessionKey, limit int) ([]TranscriptEntry, error)
}
