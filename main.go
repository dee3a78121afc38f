package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lpernett/godotenv"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/Perceptus-Labs/sentinel-go-sdk/handlers"
	"github.com/Perceptus-Labs/sentinel-go-sdk/models"
	"github.com/Perceptus-Labs/sentinel-go-sdk/utils"
)

// Load environment variables from .env file
func init() {
	log.Info("Loading environment variables")
	err := godotenv.Load()
	if err != nil {
		log.Warn("Error loading .env file")
	}
}

func main() {
	// Set up logging
	log.SetLevel(log.DebugLevel)
	log.SetFormatter(&log.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})
	log.Info("Sentinel Monitor V1")

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Set up the optional Redis connection for the live operator feed
	var redisClient *redis.Client
	if host := os.Getenv("REDIS_HOST"); host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:        host,
			Password:    os.Getenv("REDIS_PASSWORD"),
			DB:          0,
			DialTimeout: 20 * time.Second,
		})

		redisCtx, cancelRedis := context.WithTimeout(context.Background(), 10*time.Second)
		_, err := redisClient.Ping(redisCtx).Result()
		cancelRedis()
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		log.Info("Successfully connected to Redis")
	} else {
		log.Warn("REDIS_HOST not set, live feed publishing disabled")
	}

	session := handlers.NewMonitorSession(cfg, redisClient)
	session.OnStatus(func(status models.SessionStatus) {
		log.Info("Session status: ", status)
	})

	if err := session.Start(); err != nil {
		log.Fatalf("Failed to start monitor session: %v", err)
	}

	// Set up signal handling
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	session.Stop()

	for _, entry := range session.Log().Snapshot() {
		log.Debugf("[%s] %s: %s", entry.Timestamp.Format(time.RFC3339), entry.Kind, entry.Text)
	}

	log.Info("Monitor shut down gracefully")
}
