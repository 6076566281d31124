package main

import (
	"log"
	"os"
	"strconv"
	"strings"

	"fusionx_backend/internal/database"
	"fusionx_backend/internal/hub"
	"fusionx_backend/internal/router"
	"fusionx_backend/internal/storage"
	"fusionx_backend/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	utils.InitLogger()

	// Load database configuration from environment variables
	dbHost := utils.Getenv("FX_DB_HOST", "localhost")
	dbPort := utils.Getenv("FX_DB_PORT", "5432")
	dbUser := utils.Getenv("FX_DB_USER", "fusionx")
	dbPassword := utils.Getenv("FX_DB_PASSWORD", "fusionx")
	dbName := utils.Getenv("FX_DB_NAME", "fusionx_db")
	dbSSLMode := utils.Getenv("FX_DB_SSLMODE", "disable")
	dbSchemaPath := utils.Getenv("FX_DB_SCHEMA_PATH", "")

	database.InitDB(dbHost, dbPort, dbUser, dbPassword, dbName, dbSSLMode, dbSchemaPath)
	utils.LogInfo("Database initialized", map[string]interface{}{"host": dbHost, "dbname": dbName})

	// Redis admission throttle. Optional: without it, order intake runs
	// unthrottled.
	var throttle *storage.ShiftThrottle
	if redisAddr := utils.Getenv("FX_REDIS_ADDR", ""); redisAddr != "" {
		client, err := storage.NewRedisClient(redisAddr, utils.Getenv("FX_REDIS_PASSWORD", ""))
		if err != nil {
			log.Fatalf("Error connecting to Redis: %q", err)
		}
		throttle = storage.NewShiftThrottle(client)
		utils.LogInfo("Redis throttle enabled", map[string]interface{}{"addr": redisAddr})
	}

	// Kafka notification queue. Optional: without it, notifications are
	// logged to the database but not dispatched.
	var publisher *storage.KafkaPublisher
	if broker := utils.Getenv("FX_KAFKA_BROKER", ""); broker != "" {
		topic := utils.Getenv("FX_KAFKA_TOPIC", "fusionx.notifications")
		publisher = storage.NewKafkaPublisher(storage.NewKafkaWriter(broker, topic))
		defer publisher.Writer.Close()
		utils.LogInfo("Kafka publisher enabled", map[string]interface{}{"broker": broker, "topic": topic})
	}

	taxRateBp, err := strconv.ParseInt(utils.Getenv("FX_TAX_RATE_BP", "875"), 10, 64)
	if err != nil {
		log.Fatalf("Invalid FX_TAX_RATE_BP: %q", err)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(utils.GinLogger())

	// CORS configuration
	corsAllowedOriginsEnv := os.Getenv("FX_CORS_ALLOWED_ORIGINS")
	var allowedOrigins []string
	if corsAllowedOriginsEnv != "" {
		allowedOrigins = strings.Split(corsAllowedOriginsEnv, ",")
	} else {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:3001"}
	}

	config := cors.DefaultConfig()
	config.AllowOrigins = allowedOrigins
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	config.AllowCredentials = true
	engine.Use(cors.New(config))

	router.Setup(engine, router.Dependencies{
		DB:             database.GetDB(),
		Hub:            hub.NewHub(),
		Throttle:       throttle,
		Publisher:      publisher,
		TaxRateBp:      taxRateBp,
		TrackerBaseURL: utils.Getenv("FX_TRACKER_BASE_URL", "http://localhost:8080"),
	})

	port := utils.Getenv("FX_PORT", "8080")
	utils.LogInfo("Starting server", map[string]interface{}{"port": port})
	if err := engine.Run(":" + port); err != nil {
		log.Fatalf("Error starting server: %q", err)
	}
}
