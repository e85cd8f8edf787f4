// container.go
package main

import (
	"context"
	"fmt"

	"github.com/Abraxas-365/certcoach/pkg/ai/llm"
	aiopenai "github.com/Abraxas-365/certcoach/pkg/ai/providers/openai"
	"github.com/Abraxas-365/certcoach/pkg/coach/conversation"
	"github.com/Abraxas-365/certcoach/pkg/coach/conversation/conversationapi"
	"github.com/Abraxas-365/certcoach/pkg/coach/conversation/conversationinfra"
	"github.com/Abraxas-365/certcoach/pkg/coach/conversation/conversationsrv"
	"github.com/Abraxas-365/certcoach/pkg/coach/exam/examapi"
	"github.com/Abraxas-365/certcoach/pkg/coach/exam/examinfra"
	"github.com/Abraxas-365/certcoach/pkg/coach/exam/examsrv"
	"github.com/Abraxas-365/certcoach/pkg/coach/study/studyapi"
	"github.com/Abraxas-365/certcoach/pkg/coach/study/studysrv"
	"github.com/Abraxas-365/certcoach/pkg/config"
	"github.com/Abraxas-365/certcoach/pkg/logx"
	"github.com/Abraxas-365/certcoach/pkg/ratelimitx"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// memorySessionCapacity is how many sessions the in-memory store keeps
// before evicting the least recently used one
const memorySessionCapacity = 1000

// Container holds all application dependencies
type Container struct {
	// Config
	Config *config.Config

	// Infrastructure
	DB        *sqlx.DB
	Redis     *redis.Client
	LLMClient *llm.Client

	// Coach Services
	ConversationService *conversationsrv.ConversationService
	ExamService         *examsrv.ExamService
	StudyService        *studysrv.StudyService

	// API Handlers
	ChatHandlers  *conversationapi.ChatHandlers
	ExamHandlers  *examapi.ExamHandlers
	StudyHandlers *studyapi.StudyHandlers

	// Middleware
	RateLimiter *ratelimitx.Limiter
}

// NewContainer initializes the dependency injection container
func NewContainer(cfg *config.Config) *Container {
	logx.Info("🔧 Initializing dependency container...")

	c := &Container{
		Config: cfg,
	}

	c.initInfrastructure()
	c.initServices()

	logx.Info("✅ Container initialized successfully")
	return c
}

func (c *Container) initInfrastructure() {
	logx.Info("🏗️ Initializing infrastructure...")

	// 1. Database Connection
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Config.Database.Host,
		c.Config.Database.Port,
		c.Config.Database.User,
		c.Config.Database.Password,
		c.Config.Database.Name,
		c.Config.Database.SSLMode,
	)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		logx.Fatalf("Failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
	db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
	db.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
	c.DB = db
	logx.Info("✅ Database connected")

	// 2. Redis Connection
	c.Redis = redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Address(),
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
	if _, err := c.Redis.Ping(context.Background()).Result(); err != nil {
		logx.Fatalf("Failed to connect to Redis: %v (Redis is required for session memory)", err)
	} else {
		logx.Info("✅ Redis connected")
	}

	// 3. LLM Client
	provider := aiopenai.NewOpenAIProvider(c.Config.OpenAI.APIKey)
	c.LLMClient = llm.NewClient(provider)
	logx.Infof("✅ LLM client configured (model: %s)", c.Config.OpenAI.Model)

	logx.Info("✅ Infrastructure initialized")
}

func (c *Container) initServices() {
	logx.Info("🗄️  Initializing repositories and services...")

	// --- Conversation (Tutor) ---

	// Session store (use Redis in production, memory in dev)
	var sessionStore conversation.SessionStore
	if c.Config.Chat.Store == "memory" {
		sessionStore = conversationinfra.NewMemorySessionStore(memorySessionCapacity, c.Config.Chat.SessionTTL)
		logx.Warn("⚠️  Using in-memory session store (not recommended for production)")
	} else {
		sessionStore = conversationinfra.NewRedisSessionStore(c.Redis)
		logx.Info("✅ Using Redis session store")
	}

	transcriptRepo := conversationinfra.NewPostgresTranscriptRepository(c.DB)
	completionService := conversationinfra.NewLLMCompletionService(c.LLMClient, &c.Config.OpenAI)

	c.ConversationService = conversationsrv.NewConversationService(
		sessionStore,
		completionService,
		transcriptRepo,
		&c.Config.Chat,
	)

	// --- Practice Exams ---
	examSessions := examinfra.NewRedisSessionRepository(c.Redis, c.Config.Exam.SessionTTL)
	examQueue := examinfra.NewRedisQuestionQueue(c.Redis, c.Config.Exam.SessionTTL)
	questionGenerator := examinfra.NewLLMQuestionGenerator(c.LLMClient, &c.Config.OpenAI)
	examResults := examinfra.NewPostgresResultRepository(c.DB)

	c.ExamService = examsrv.NewExamService(
		examSessions,
		examQueue,
		questionGenerator,
		examResults,
		&c.Config.Exam,
	)

	// --- Study Aids ---
	c.StudyService = studysrv.NewStudyService(c.LLMClient, &c.Config.OpenAI)

	// --- API Handlers ---
	c.ChatHandlers = conversationapi.NewChatHandlers(c.ConversationService)
	c.ExamHandlers = examapi.NewExamHandlers(c.ExamService)
	c.StudyHandlers = studyapi.NewStudyHandlers(c.StudyService)

	// --- Middleware ---
	if c.Config.RateLimit.Enabled {
		c.RateLimiter = ratelimitx.New(c.Config.RateLimit.PerMinute, c.Config.RateLimit.Burst)
		logx.Infof("✅ Rate limiter configured (%d req/min, burst %d)", c.Config.RateLimit.PerMinute, c.Config.RateLimit.Burst)
	} else {
		logx.Warn("⚠️  Rate limiting disabled")
	}

	logx.Info("✅ All services and handlers initialized")
}

// StartBackgroundServices starts background workers
func (c *Container) StartBackgroundServices(ctx context.Context) {
	logx.Info("🔄 Starting background services...")

	// Exam question generation runs against this context
	c.ExamService.Start(ctx)
	logx.Info("✅ Exam question generator bound to app lifecycle")
}

// Cleanup closes all connections and stops workers
func (c *Container) Cleanup() {
	logx.Info("🧹 Cleaning up resources...")

	// Close database connection
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		} else {
			logx.Info("✅ Database connection closed")
		}
	}

	// Close Redis connection
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		} else {
			logx.Info("✅ Redis connection closed")
		}
	}

	logx.Info("✅ Cleanup completed")
}
