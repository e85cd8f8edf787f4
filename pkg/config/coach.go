// pkg/config/coach.go
package config

import "time"

// ChatConfig controls the conversational memory of the tutor
type ChatConfig struct {
	// HistoryLimit is the maximum number of stored messages per session.
	// Must be even: the history holds complete question/answer pairs.
	HistoryLimit int
	// PromptWindow is how many stored messages get included in a prompt
	PromptWindow  int
	SessionTTL    time.Duration
	MaxMessageLen int
	SystemPrompt  string
	// Store selects the session memory backend: "redis" or "memory"
	Store string
}

type ExamConfig struct {
	SessionTTL        time.Duration
	MaxQuestions      int
	DefaultQuestions  int
	GenerationTimeout time.Duration
}

type RateLimitConfig struct {
	Enabled   bool
	PerMinute int
	Burst     int
}

const defaultSystemPrompt = "You are an expert AWS certification tutor. " +
	"Answer questions clearly and concisely, cite the relevant AWS services, " +
	"and when useful point the student to the certification domain the topic belongs to."

func loadChatConfig() ChatConfig {
	limit := getEnvInt("CHAT_HISTORY_LIMIT", 20)
	return ChatConfig{
		HistoryLimit:  limit,
		PromptWindow:  getEnvInt("CHAT_PROMPT_WINDOW", limit),
		SessionTTL:    getEnvDuration("CHAT_SESSION_TTL", 24*time.Hour),
		MaxMessageLen: getEnvInt("CHAT_MAX_MESSAGE_LEN", 2000),
		SystemPrompt:  getEnv("CHAT_SYSTEM_PROMPT", defaultSystemPrompt),
		Store:         getEnv("CHAT_STORE", "redis"),
	}
}

func loadExamConfig() ExamConfig {
	return ExamConfig{
		SessionTTL:        getEnvDuration("EXAM_SESSION_TTL", 2*time.Hour),
		MaxQuestions:      getEnvInt("EXAM_MAX_QUESTIONS", 30),
		DefaultQuestions:  getEnvInt("EXAM_DEFAULT_QUESTIONS", 5),
		GenerationTimeout: getEnvDuration("EXAM_GENERATION_TIMEOUT", 30*time.Second),
	}
}

func loadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:   getEnvBool("RATE_LIMIT_ENABLED", true),
		PerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		Burst:     getEnvInt("RATE_LIMIT_BURST", 10),
	}
}
