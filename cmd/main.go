package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/Vovarama1992/go-utils/logger"

	"github.com/pitchlab/salescoach/internal/ai"
	"github.com/pitchlab/salescoach/internal/archive"
	"github.com/pitchlab/salescoach/internal/delivery"
	"github.com/pitchlab/salescoach/internal/error_notificator"
	"github.com/pitchlab/salescoach/internal/scenario"
	"github.com/pitchlab/salescoach/internal/session"
	"github.com/pitchlab/salescoach/internal/speech"
	"github.com/pitchlab/salescoach/internal/transcribe"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {

	// =========================================================================
	// ENV / DB INIT
	// =========================================================================

	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("db ping failed: %v", err)
	}
	defer db.Close()

	baseLogger, _ := zap.NewProduction()
	defer baseLogger.Sync()
	zl := logger.NewZapLogger(baseLogger.Sugar())

	questionThreshold := session.DefaultQuestionThreshold
	if raw := os.Getenv("QUESTION_THRESHOLD"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			log.Fatalf("bad QUESTION_THRESHOLD: %q", raw)
		}
		questionThreshold = n
	}

	// =========================================================================
	// CLIENTS (AI / STT / TTS / ALERTS)
	// =========================================================================

	openAIClient := ai.NewOpenAIClient()
	ttsClient := speech.NewElevenLabsClient()
	sttClient := transcribe.NewDeepgramLiveClient()

	errInfra := error_notificator.NewInfra()
	errService := error_notificator.NewService(errInfra)

	// =========================================================================
	// REPOSITORIES / ARCHIVE
	// =========================================================================

	scenarioRepo := scenario.NewRepo(db)
	scenarioService := scenario.NewService(scenarioRepo)

	var archiver session.Archiver
	if os.Getenv("S3_ENDPOINT") != "" {
		s3Client, err := archive.NewS3Client()
		if err != nil {
			log.Fatalf("failed to init s3: %v", err)
		}
		archiver = archive.NewService(s3Client)
	} else {
		log.Printf("[main] S3_ENDPOINT not set, transcript archive disabled")
	}

	// =========================================================================
	// DOMAIN SERVICES
	// =========================================================================

	engine := session.NewEngine(openAIClient, questionThreshold)

	orchestrator := session.NewOrchestrator(
		engine,
		ttsClient,
		sttClient,
		archiver,
		errService,
	)

	// =========================================================================
	// HTTP ROUTER
	// =========================================================================

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	// HANDLERS
	scenarioHandler := scenario.NewHandler(scenarioService, zl)
	wsHandler := delivery.NewWSHandler(orchestrator, scenarioService, zl)

	// ROUTES
	delivery.RegisterRoutes(r, scenarioHandler, wsHandler)

	// =========================================================================
	// START SERVER
	// =========================================================================

	addr := ":" + port
	zl.Log(logger.LogEntry{
		Level:   "info",
		Message: "listening at " + addr,
		Service: "salescoach",
	})

	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
