// cmd/main.go
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lmittmann/tint"
	"github.com/rs/cors"

	"flashdeck/internal/config"
	"flashdeck/internal/handlers"
	"flashdeck/internal/middleware"
	"flashdeck/internal/repository"
	"flashdeck/internal/service"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func main() {
	// 設定ファイル読み込み用の一時的なロガー設定
	tempLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(tempLogger)

	// Configを読み込み
	if err := config.LoadConfig("./configs"); err != nil {
		slog.Error("Error loading configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// === 設定に基づいて slog ロガーを初期化 ===
	logLevel := new(slog.LevelVar)
	switch strings.ToLower(config.Cfg.Log.Level) {
	case "debug":
		logLevel.Set(slog.LevelDebug)
	case "info":
		logLevel.Set(slog.LevelInfo)
	case "warn", "warning":
		logLevel.Set(slog.LevelWarn)
	case "error":
		logLevel.Set(slog.LevelError)
	default:
		logLevel.Set(slog.LevelInfo)
		slog.Warn("Unknown log level specified in config, defaulting to INFO", slog.String("level", config.Cfg.Log.Level))
	}

	var handler slog.Handler
	appEnv := os.Getenv("APP_ENV")
	if strings.ToLower(appEnv) == "dev" {
		// 開発環境はカラー付きのテキストログ
		tintOpts := &tint.Options{
			Level:      logLevel,
			TimeFormat: time.RFC3339,
		}
		handler = tint.NewHandler(os.Stderr, tintOpts)
		tempLogger.Info("Using TINT log handler", slog.String("APP_ENV", appEnv))
	} else {
		jsonOpts := &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}
		handler = slog.NewJSONHandler(os.Stderr, jsonOpts)
		tempLogger.Info("Using JSON log handler", slog.String("APP_ENV", appEnv))
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	slog.Info("Application starting...")

	// 2. Initialize Database Connection (GORM)
	db, err := repository.NewDB(config.Cfg.Database.URL, logger)
	if err != nil {
		slog.Error("Error initializing database", slog.Any("error", err))
		os.Exit(1)
	}
	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("Error getting underlying sql.DB from GORM", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			slog.Error("Error closing database connection", slog.Any("error", err))
		} else {
			slog.Info("Database connection closed.")
		}
	}()

	if err := repository.Migrate(db); err != nil {
		slog.Error("Error migrating database schema", slog.Any("error", err))
		os.Exit(1)
	}

	// 3. Dependency Injection
	userRepo := repository.NewGormUserRepository()
	userSessionRepo := repository.NewGormUserSessionRepository()
	deckRepo := repository.NewGormDeckRepository()
	cardRepo := repository.NewGormCardRepository()
	ratingRepo := repository.NewGormRatingRepository()
	answerRepo := repository.NewGormAnswerRepository()
	studySessionRepo := repository.NewGormStudySessionRepository()
	progressRepo := repository.NewGormDeckProgressRepository()

	authService := service.NewAuthService(db, userRepo, userSessionRepo, &config.Cfg)
	userService := service.NewUserService(db, userRepo, &config.Cfg)
	deckService := service.NewDeckService(db, deckRepo, &config.Cfg)
	cardService := service.NewCardService(db, deckRepo, cardRepo)
	ratingService := service.NewRatingService(db, deckRepo, ratingRepo)
	answerService := service.NewAnswerService(db, deckRepo, cardRepo, answerRepo)
	studyService := service.NewStudyService(db, deckRepo, cardRepo, studySessionRepo, progressRepo, answerRepo, &config.Cfg)

	authHandler := handlers.NewAuthHandler(authService, logger)
	userHandler := handlers.NewUserHandler(userService, logger)
	deckHandler := handlers.NewDeckHandler(deckService, logger)
	cardHandler := handlers.NewCardHandler(cardService, logger)
	ratingHandler := handlers.NewRatingHandler(ratingService, logger)
	answerHandler := handlers.NewAnswerHandler(answerService, logger)
	studyHandler := handlers.NewStudyHandler(studyService, logger)

	// 4. Setup Router
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.LoggingMiddleware(logger))

	// CORS 設定と適用
	corsOptions := cors.Options{
		AllowedOrigins:   config.Cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	corsHandler := cors.New(corsOptions)
	r.Use(corsHandler.Handler)

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// API Routes
	r.Route("/api/v1", func(r chi.Router) {
		// --- Public routes ---
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// --- Protected routes ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuthMiddleware(&config.Cfg))

			// Auth routes
			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/auth/me", authHandler.GetMe)
			r.Put("/auth/me", authHandler.UpdateProfile)
			r.Put("/auth/me/password", authHandler.ChangePassword)

			// User routes
			r.Route("/users", func(r chi.Router) {
				r.Get("/", userHandler.SearchUsers)
				r.Get("/{userID}", userHandler.GetUser)
			})

			// Deck routes
			r.Route("/decks", func(r chi.Router) {
				r.Post("/", deckHandler.PostDeck)
				r.Get("/", deckHandler.GetDecks)
				r.Get("/recent", deckHandler.GetRecentDecks)

				r.Route("/{deckID}", func(r chi.Router) {
					r.Get("/", deckHandler.GetDeck)
					r.Put("/", deckHandler.PutDeck)
					r.Delete("/", deckHandler.DeleteDeck)

					// Card routes
					r.Route("/cards", func(r chi.Router) {
						r.Post("/", cardHandler.PostCard)
						r.Get("/", cardHandler.GetCards)
						r.Get("/{cardID}", cardHandler.GetCard)
						r.Put("/{cardID}", cardHandler.PutCard)
						r.Delete("/{cardID}", cardHandler.DeleteCard)

						// 単発回答フロー
						r.Post("/{cardID}/answer", answerHandler.PostAnswer)
						r.Get("/{cardID}/answer", answerHandler.GetAnswer)
					})

					// Rating routes
					r.Route("/ratings", func(r chi.Router) {
						r.Post("/", ratingHandler.PostRating)
						r.Get("/", ratingHandler.GetRatings)
						r.Get("/me", ratingHandler.GetMyRating)
						r.Delete("/", ratingHandler.DeleteRating)
					})

					// デッキ単位の回答状況・進捗・進行中セッション
					r.Get("/answers", answerHandler.GetDeckAnswers)
					r.Get("/progress", studyHandler.GetDeckProgress)
					r.Get("/study-session", studyHandler.GetCurrentSession)
				})
			})

			// Study session routes
			r.Route("/study", func(r chi.Router) {
				r.Post("/sessions", studyHandler.StartSession)
				r.Post("/sessions/{sessionID}/answers", studyHandler.PostSessionAnswer)
				r.Post("/sessions/{sessionID}/end", studyHandler.EndSession)
				r.Get("/progress", studyHandler.ListDeckProgress)
			})

			// ユーザー全体の回答統計
			r.Get("/stats/answers", answerHandler.GetAnswerStats)
		})
	})

	// Health Check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sqlDB, err := db.DB()
		if err != nil {
			slog.ErrorContext(ctx, "Health check failed: could not get DB object", slog.Any("error", err))
			http.Error(w, "Health check failed", http.StatusInternalServerError)
			return
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			slog.ErrorContext(ctx, "Health check failed: could not ping DB", slog.Any("error", err))
			http.Error(w, "Health check failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// 5. Start Server
	server := &http.Server{
		Addr:         config.Cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Server listening", slog.String("port", config.Cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Could not listen on port", slog.String("port", config.Cfg.Server.Port), slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", slog.Any("error", err))
	}

	log.Println("Server exiting")
}
