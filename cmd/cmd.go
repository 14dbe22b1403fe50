package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ridemate/internal/config"
	"ridemate/internal/handlers"
	"ridemate/internal/identity"
	"ridemate/internal/localstate"
	"ridemate/internal/middleware"
	"ridemate/internal/models"
	"ridemate/internal/repository"
	"ridemate/internal/services"
	"ridemate/internal/theme"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	path := os.Getenv("RIDEMATE_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	ctx := context.Background()

	// Local state
	state, err := localstate.Open(cfg.State.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.State.Path).Msg("Failed to open local state")
	}

	// Identity provider
	provider, err := identity.NewCognito(ctx, cfg.AWS.Region, cfg.AWS.CognitoClientID, cfg.AWS.CognitoClientSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create identity provider")
	}

	// Media storage is optional; without it posts are text only
	var media services.MediaStore
	if cfg.AWS.S3Bucket != "" {
		store, err := services.NewS3MediaStore(ctx, cfg.AWS)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create media store")
		}
		media = store
	} else {
		log.Warn().Msg("No S3 bucket configured, media uploads disabled")
	}

	// Initialize repositories
	httpClient := &http.Client{Timeout: cfg.API.Timeout}
	settingsRepo := repository.NewSettingsRepository(cfg.API.SettingsURL, httpClient)
	rideRepo := repository.NewRideRepository(cfg.API.RideURL, httpClient)
	expenseRepo := repository.NewExpenseRepository(cfg.API.ExpenseURL, httpClient)
	postRepo := repository.NewPostRepository(cfg.API.FeedURL, httpClient)
	sosRepo := repository.NewSOSRepository(cfg.API.SOSURL, httpClient)

	// Initialize services
	clock := services.SystemClock{}
	hub := services.NewHub(clock)
	themeCtx := theme.New(state)
	themeCtx.Apply(hub.PublishTheme)

	session := services.NewSessionStore(provider, settingsRepo, state, themeCtx, clock)
	rideService := services.NewRideService(rideRepo, session, hub)
	expenseService := services.NewExpenseService(expenseRepo, session, hub)
	postService := services.NewPostService(postRepo, media, session, hub, clock)
	sosService := services.NewSOSService(sosRepo, session, hub, cfg.SOS.DefaultDialCode)

	services.BindCollections(session, rideService, expenseService, postService, sosService)
	session.OnIdentityChange(func(_ context.Context, id *models.Identity) {
		hub.Broadcast(services.Event{Type: services.EventIdentity, Data: id})
	})

	// Initialize handlers
	sessionHandler := handlers.NewSessionHandler(session)
	settingsHandler := handlers.NewSettingsHandler(session, themeCtx)
	rideHandler := handlers.NewRideHandler(rideService, session)
	expenseHandler := handlers.NewExpenseHandler(expenseService)
	postHandler := handlers.NewPostHandler(postService)
	sosHandler := handlers.NewSOSHandler(sosService)
	statsHandler := handlers.NewStatsHandler(session, rideService, expenseService, postService, clock)
	wsHandler := handlers.NewWebSocketHandler(hub, session, themeCtx)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/session", sessionHandler.GetSession)
		r.Post("/session/login", sessionHandler.Login)
		r.Post("/session/signup", sessionHandler.Signup)
		r.Post("/session/logout", sessionHandler.Logout)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(session))

			r.Patch("/session/profile", sessionHandler.UpdateProfile)
			r.Get("/settings", settingsHandler.GetSettings)
			r.Put("/settings", settingsHandler.UpdateSettings)

			r.Get("/rides", rideHandler.ListMine)
			r.Get("/rides/all", rideHandler.ListAll)
			r.Get("/users/{user_id}/rides", rideHandler.ListByUser)
			r.Post("/rides", rideHandler.CreateRide)
			r.Patch("/rides/{id}", rideHandler.UpdateRide)
			r.Delete("/rides/{id}", rideHandler.DeleteRide)

			r.Get("/expenses", expenseHandler.ListExpenses)
			r.Post("/expenses", expenseHandler.CreateExpense)
			r.Patch("/expenses/{id}", expenseHandler.UpdateExpense)
			r.Delete("/expenses/{id}", expenseHandler.DeleteExpense)

			r.Get("/posts", postHandler.ListPosts)
			r.Get("/users/{user_id}/posts", postHandler.ListByAuthor)
			r.Post("/posts", postHandler.CreatePost)
			r.Patch("/posts/{id}", postHandler.EditPost)
			r.Delete("/posts/{id}", postHandler.DeletePost)
			r.Post("/posts/{id}/like", postHandler.LikePost)
			r.Post("/posts/{id}/comments", postHandler.CommentPost)

			r.Get("/sos", sosHandler.ListContacts)
			r.Post("/sos", sosHandler.CreateContact)
			r.Delete("/sos/{id}", sosHandler.DeleteContact)

			r.Get("/stats/dashboard", statsHandler.GetDashboard)
			r.Get("/stats/overview", statsHandler.GetOverview)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Resolve the stored session in the background; requests needing it get 503 until then
	go func() {
		if id := session.Initialize(ctx); id != nil {
			log.Info().Str("user_id", id.ID).Msg("Restored session")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	themeCtx.Teardown()

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
