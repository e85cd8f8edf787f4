// pkg/config/openai.go
package config

import "time"

type OpenAIConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

func loadOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      getEnv("OPENAI_API_KEY", ""),
		Model:       getEnv("OPENAI_MODEL", "gpt-4o"),
		Temperature: float32(getEnvFloat("OPENAI_TEMPERATURE", 0.7)),
		Timeout:     getEnvDuration("OPENAI_TIMEOUT", 30*time.Second),
	}
}
