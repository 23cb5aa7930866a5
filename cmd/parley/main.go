package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/parleyhq/parley/api"
	appsvc "github.com/parleyhq/parley/internal/app"
	"github.com/parleyhq/parley/internal/audio"
	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/conversation"
	"github.com/parleyhq/parley/internal/database"
	"github.com/parleyhq/parley/internal/events"
	"github.com/parleyhq/parley/internal/llm"
	"github.com/parleyhq/parley/internal/message"
	"github.com/parleyhq/parley/pkg/files"
	"github.com/parleyhq/parley/pkg/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create logger
	zapLogger, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	// Connect to PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime)
	if err != nil {
		zapLogger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zapLogger.Fatal("Failed to migrate database schema", zap.Error(err))
	}

	// Connect to Redis
	redisClient, err := database.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	// Model provider
	provider := llm.NewOpenAIProvider(cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Provider.Model)

	// Feedback event publisher (optional)
	var publisher events.FeedbackPublisher
	if cfg.Kafka.Enabled {
		kafkaPublisher := events.NewKafkaFeedbackPublisher(cfg.Kafka.Brokers, cfg.Kafka.FeedbackTopic, zapLogger)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	// File URL signer
	if cfg.Files.Secret == "" {
		zapLogger.Fatal("files.secret must be configured")
	}
	signer := files.NewSigner(cfg.Files.Secret, cfg.Files.BaseURL, cfg.Files.URLTTL)

	// Create services
	appService := appsvc.NewService(zapLogger, db, redisClient)
	conversationService := conversation.NewService(zapLogger, db)
	messageService := message.NewService(zapLogger, db, conversationService, provider, publisher)
	audioService := audio.NewService(zapLogger, db, provider)

	// Create API server
	apiServer := api.NewServer(zapLogger, appService, messageService, audioService, signer)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		if err := apiServer.Start(addr); err != nil {
			zapLogger.Fatal("Failed to start API server", zap.Error(err))
		}
	}()

	// Wait for interrupt to shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down service API")
}
