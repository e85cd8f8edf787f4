package config

type ServerConfig struct {
	Host        string
	Port        int
	Environment string
	LogLevel    string
	CORSOrigins []string
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:        getEnv("SERVER_HOST", "0.0.0.0"),
		Port:        getEnvInt("SERVER_PORT", 8080),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: getEnvStringSlice("CORS_ORIGINS", []string{"http://localhost:3000"}),
	}
}
