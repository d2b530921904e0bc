package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"matchvision/sports-video-app/internal/api"
	"matchvision/sports-video-app/internal/config"
	"matchvision/sports-video-app/internal/inference"
	"matchvision/sports-video-app/internal/queue"
	"matchvision/sports-video-app/internal/repository/mongo"
	"matchvision/sports-video-app/internal/service"
	"matchvision/sports-video-app/internal/storage"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// @title Match Video Analysis API
// @version 1.0
// @description API for uploading sports match videos, running analysis jobs, and serving recommendations.
// @host localhost:8080
// @BasePath /api/v1
func main() {
	log.SetFormatter(&log.JSONFormatter{})
	log.Info("Starting match video analysis server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.WithError(err).Fatal("Could not load config")
	}
	log.Info("Configuration loaded.")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.WithError(err).Fatal("Could not connect to MongoDB")
	}
	defer func() {
		log.Info("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.WithError(err).Error("Failed to disconnect MongoDB")
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Info("Database connection established.")

	// --- Ensure Indexes ---
	// The job-slot unique index must exist before any analysis request is
	// served, so this one runs synchronously; the rest run in background.
	indexCtx, indexCancel := context.WithTimeout(context.Background(), 1*time.Minute)
	mongo.EnsureJobSlotIndexes(indexCtx, appDB.Collection("job_slots"))
	indexCancel()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureVideoIndexes(ctx, appDB.Collection("videos"))
		mongo.EnsureAnalysisIndexes(ctx, appDB.Collection("analysis_results"))
		log.Info("Index creation process completed.")
	}()

	// --- Initialize Storage ---
	log.Info("Initializing file storage service...")
	fileStorage, err := storage.NewS3Storage(cfg.S3)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize S3 storage")
	}

	// --- Initialize Intake Queue ---
	// Intake scheduling is best effort; an unreachable broker degrades the
	// service (no thumbnails) but does not stop it.
	var intake queue.IntakePublisher
	intake, err = queue.NewAMQPPublisher(cfg.Queue)
	if err != nil {
		log.WithError(err).Warn("Intake queue unavailable, uploads will not schedule intake work")
		intake = nil
	} else {
		defer intake.Close()
	}

	// --- Initialize Repositories ---
	log.Info("Initializing repositories...")
	videoRepo := mongo.NewMongoVideoRepository(appDB)
	analysisRepo := mongo.NewMongoAnalysisRepository(appDB)
	jobSlotRepo := mongo.NewMongoJobSlotRepository(appDB)

	// --- Initialize Services ---
	log.Info("Initializing services...")
	engine := inference.NewStaticEngine(0.85)
	uploadService := service.NewUploadService(videoRepo, analysisRepo, jobSlotRepo, fileStorage, intake, cfg.Upload.MaxFileSize)
	analysisService := service.NewAnalysisService(
		videoRepo, analysisRepo, jobSlotRepo, engine,
		cfg.Analysis.InferenceTimeout, cfg.Analysis.StaleSlotAge, cfg.Analysis.CompletionPolicy,
	)
	recommendationService := service.NewRecommendationService(videoRepo)

	// --- Stale Slot Recovery Sweep ---
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	go func() {
		ticker := time.NewTicker(cfg.Analysis.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if err := analysisService.ReapStaleSlots(sweepCtx); err != nil {
					log.WithError(err).Error("Stale slot sweep failed")
				}
			}
		}
	}()

	// --- Initialize Gin Engine ---
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// --- Setup Routes ---
	log.Info("Setting up API routes...")
	api.SetupRoutes(router, uploadService, analysisService, recommendationService)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // analysis requests run inference inline
		IdleTimeout:  120 * time.Second,
	}

	log.WithField("address", cfg.Server.Address).Info("Server starting")

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("ListenAndServe error")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")
	sweepCancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}

	log.Info("Server exiting.")
}
