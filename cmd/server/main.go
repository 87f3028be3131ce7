package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"readquest/internal/audio"
	"readquest/internal/config"
	"readquest/internal/database"
	"readquest/internal/handlers"
	"readquest/internal/repository"
	"readquest/internal/scheduler"
	"readquest/internal/security"
	"readquest/internal/service"
	"readquest/internal/storage"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	if err := db.SeedAchievements(); err != nil {
		log.Printf("Warning: Failed to seed achievements: %v", err)
	}

	signer := security.NewSigner(cfg.JWTSecret)
	tokens := security.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)

	// Object storage
	var (
		store      storage.ObjectStore
		localStore *storage.LocalStore
	)
	switch cfg.StorageBackend {
	case "s3":
		s3Store, err := storage.NewS3Store(context.Background(), cfg.AWSRegion, cfg.S3Bucket, cfg.S3Endpoint)
		if err != nil {
			log.Fatalf("Failed to initialize S3 storage: %v", err)
		}
		store = s3Store
		log.Printf("Storing recordings in S3 bucket %s", cfg.S3Bucket)
	default:
		localStore, err = storage.NewLocalStore(cfg.StoragePath, cfg.AppBaseURL, signer)
		if err != nil {
			log.Fatalf("Failed to initialize local storage: %v", err)
		}
		store = localStore
		log.Printf("Storing recordings under %s", cfg.StoragePath)
	}

	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}
	if !emailService.IsEnabled() {
		log.Println("Assignment completion emails will not be sent")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	streakRepo := repository.NewStreakRepository(db)
	achievementRepo := repository.NewAchievementRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	recordingRepo := repository.NewRecordingRepository(db)

	// Initialize services
	captures := audio.NewCaptureManager(filepath.Join(os.TempDir(), "readquest-captures"), cfg.UploadMaxSize)
	player := audio.NewPlayer()

	authService := service.NewAuthService(userRepo, tokens, cfg.RefreshTokenTTL, emailService)
	familyService := service.NewFamilyService(familyRepo)
	progressService := service.NewProgressService(profileRepo, streakRepo, recordingRepo, cfg.Location())
	achievementService := service.NewAchievementService(achievementRepo, profileRepo, recordingRepo, cfg.Debug)
	assignmentService := service.NewAssignmentService(assignmentRepo, recordingRepo, familyRepo, userRepo, progressService, emailService)
	recordingService := service.NewRecordingService(
		recordingRepo, familyRepo, store, captures, player,
		progressService, achievementService, assignmentService, cfg.SignedURLExpiry,
	)
	dashboardService := service.NewDashboardService(familyRepo, recordingRepo, assignmentRepo, progressService)

	oauthProviders := map[string]handlers.OAuthProvider{
		"google": {
			Name:  "google",
			Label: "Google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		},
	}

	limiter := security.NewRateLimiter(10, time.Minute)
	defer limiter.Close()

	// Initialize handlers
	middleware := handlers.NewMiddleware(authService, tokens, limiter, cfg.Debug)
	authHandler := handlers.NewAuthHandler(authService, oauthProviders, cfg.OAuthRedirectBaseURL, signer)
	progressHandler := handlers.NewProgressHandler(progressService, achievementService)
	captureHandler := handlers.NewCaptureHandler(captures, recordingService, cfg.UploadMaxSize)
	recordingHandler := handlers.NewRecordingHandler(recordingService, cfg.UploadMaxSize)
	assignmentHandler := handlers.NewAssignmentHandler(assignmentService)
	parentHandler := handlers.NewParentHandler(familyService, dashboardService)

	// Setup routes
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if localStore != nil {
		mux.HandleFunc("GET /media/{path...}", handlers.NewMediaHandler(localStore).Serve)
	}

	// Public auth routes
	mux.HandleFunc("POST /api/auth/signup", middleware.RateLimit(authHandler.SignUp))
	mux.HandleFunc("POST /api/auth/signin", middleware.RateLimit(authHandler.SignIn))
	mux.HandleFunc("POST /api/auth/refresh", middleware.RateLimit(authHandler.Refresh))
	mux.HandleFunc("POST /api/auth/signout", authHandler.SignOut)
	mux.HandleFunc("GET /auth/{provider}/start", authHandler.StartOAuth)
	mux.HandleFunc("GET /auth/{provider}/callback", authHandler.OAuthCallback)
	mux.HandleFunc("GET /api/me", middleware.RequireAuth(authHandler.Me))

	// Progress and achievements
	mux.HandleFunc("GET /api/progress", middleware.RequireAuth(progressHandler.Progress))
	mux.HandleFunc("GET /api/streak", middleware.RequireAuth(progressHandler.StreakDays))
	mux.HandleFunc("GET /api/achievements", middleware.RequireAuth(progressHandler.Achievements))
	mux.HandleFunc("POST /api/achievements/check", middleware.RequireAuth(progressHandler.CheckAchievements))

	// Capture sessions
	mux.HandleFunc("GET /api/capture", middleware.RequireStudent(captureHandler.Current))
	mux.HandleFunc("POST /api/capture/start", middleware.RequireStudent(captureHandler.Start))
	mux.HandleFunc("POST /api/capture/chunk", middleware.RequireStudent(captureHandler.Chunk))
	mux.HandleFunc("POST /api/capture/pause", middleware.RequireStudent(captureHandler.Pause))
	mux.HandleFunc("POST /api/capture/resume", middleware.RequireStudent(captureHandler.Resume))
	mux.HandleFunc("POST /api/capture/stop", middleware.RequireStudent(captureHandler.Stop))
	mux.HandleFunc("POST /api/capture/discard", middleware.RequireStudent(captureHandler.Discard))
	mux.HandleFunc("POST /api/capture/save", middleware.RequireStudent(captureHandler.Save))

	// Recordings
	mux.HandleFunc("POST /api/recordings", middleware.RequireStudent(recordingHandler.Upload))
	mux.HandleFunc("GET /api/recordings", middleware.RequireAuth(recordingHandler.List))
	mux.HandleFunc("GET /api/recordings/{id}", middleware.RequireAuth(recordingHandler.Get))
	mux.HandleFunc("PATCH /api/recordings/{id}", middleware.RequireStudent(recordingHandler.Update))
	mux.HandleFunc("DELETE /api/recordings/{id}", middleware.RequireStudent(recordingHandler.Delete))
	mux.HandleFunc("POST /api/recordings/{id}/play", middleware.RequireAuth(recordingHandler.Play))
	mux.HandleFunc("GET /api/playback", middleware.RequireAuth(recordingHandler.CurrentPlayback))
	mux.HandleFunc("POST /api/playback/stop", middleware.RequireAuth(recordingHandler.StopPlayback))

	// Assignments
	mux.HandleFunc("POST /api/assignments", middleware.RequireParent(assignmentHandler.Create))
	mux.HandleFunc("GET /api/assignments", middleware.RequireAuth(assignmentHandler.List))
	mux.HandleFunc("POST /api/assignments/{id}/complete", middleware.RequireStudent(assignmentHandler.Complete))
	mux.HandleFunc("POST /api/assignments/{id}/review", middleware.RequireParent(assignmentHandler.Review))
	mux.HandleFunc("GET /api/assignments/{id}/recording", middleware.RequireAuth(assignmentHandler.Recording))

	// Family links
	mux.HandleFunc("POST /api/parent/link-code", middleware.RequireParent(parentHandler.CreateLinkCode))
	mux.HandleFunc("GET /api/parent/children", middleware.RequireParent(parentHandler.Children))
	mux.HandleFunc("DELETE /api/parent/children/{id}", middleware.RequireParent(parentHandler.Unlink))
	mux.HandleFunc("GET /api/parent/dashboard", middleware.RequireParent(parentHandler.Dashboard))
	mux.HandleFunc("GET /api/parent/dashboard/report.xlsx", middleware.RequireParent(parentHandler.Report))
	mux.HandleFunc("POST /api/student/link", middleware.RequireStudent(middleware.RateLimit(parentHandler.Link)))
	mux.HandleFunc("GET /api/student/parents", middleware.RequireStudent(parentHandler.Parents))

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start background cleanup of sessions, link codes and orphaned audio
	cleanup := scheduler.New(authService, familyRepo, recordingService, time.Hour)
	if err := cleanup.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	cleanup.Stop()
	captures.Shutdown()
}
