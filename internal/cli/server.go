package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"evolv/internal/app"
	"evolv/internal/catalog"
	"evolv/internal/config"
	"evolv/internal/infra/memory"
	"evolv/internal/infra/postgres"
	rediscache "evolv/internal/infra/redis"
	transport "evolv/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret not configured")
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var (
		loader memory.QuizLoader = memory.NewStaticQuizLoader(catalog.Quizzes())
		store  app.Store         = memory.NewStore(catalog.Achievements())
	)
	if pool != nil {
		loader = postgres.NewQuizLoader(pool)
		store = postgres.NewStore(pool)
	}

	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = rediscache.NewQuizRepository(redisClient, loader, cfg.CacheTTL())
	} else {
		quizRepo = memory.NewQuizRepository(loader, cfg.CacheTTL())
	}

	sessionTTL := config.TTLDuration(cfg.Quiz.SessionTTL, 2*time.Hour)
	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = rediscache.NewSessionStore(redisClient, sessionTTL)
	} else {
		sessions = memory.NewSessionStore(sessionTTL)
	}

	leaderboard := app.NewLeaderboardService(store, cfg.Leaderboard.FeedSize)
	grace := config.TTLDuration(cfg.Quiz.Grace, 30*time.Second)
	services := transport.Services{
		Quizzes:      app.NewQuizService(quizRepo, sessions),
		Scoring:      app.NewScoringService(store, quizRepo, sessions, leaderboard, grace),
		Achievements: app.NewAchievementService(store),
		Leaderboard:  leaderboard,
		Analytics:    app.NewAnalyticsService(store),
		Progress:     app.NewProgressService(store, leaderboard),
	}
	auth := transport.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(services, auth, cfg.Server.CORSOrigins),
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	go func() {
		log.Printf("starting evolv on :%s (postgres=%t redis=%t)", finalPort, pool != nil, redisClient != nil)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
