package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"livequiz-service/internal/app"
	"livequiz-service/internal/config"
	"livequiz-service/internal/domain"
	"livequiz-service/internal/infra/memory"
	pgloader "livequiz-service/internal/infra/postgres"
	redisinfra "livequiz-service/internal/infra/redis"
	transport "livequiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the live quiz server",
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
	}
	_ = config.Duration(cfg.Redis.TTL, 2*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pgloader.NewQuizLoader(pool)
	}

	quizTTL := config.Duration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	policy := app.Policy{
		AllowEmptyStart:    cfg.Live.AllowEmptyStart,
		RemoveOnDisconnect: cfg.Live.RemoveOnDisconnect,
		QuestionTime:       config.Duration(cfg.Live.QuestionTime, 20*time.Second),
		Scoring: app.ScoringConfig{
			BasePoints:   cfg.Live.BasePoints,
			MaxTimeBonus: cfg.Live.MaxTimeBonus,
		},
	}

	sessionTTL := config.Duration(cfg.Live.SessionTTL, 2*time.Hour)
	type evictingStore interface {
		app.SessionRepository
		EvictIdle(ttl time.Duration) int
	}
	var store evictingStore
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, sessionTTL, policy.QuestionTime, policy.Scoring)
	} else {
		store = memory.NewSessionStore(policy.QuestionTime, policy.Scoring)
	}

	service := app.NewLiveService(store, quizRepo, policy)
	router := transport.NewRouter(service, transport.NewAuthenticator(cfg.Auth.JWTSecret))

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// Idle sessions only ever go away through this sweep or a restart.
	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := store.EvictIdle(sessionTTL); n > 0 {
					log.Printf("evicted %d idle sessions", n)
				}
			case <-sweepDone:
				return
			}
		}
	}()

	go func() {
		log.Printf("starting live quiz service on :%s", finalPort)
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
	close(sweepDone)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes provides demo content when no Postgres is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:               "quiz-1",
			Title:            "Warm-up",
			TimeLimitSeconds: 20,
			Questions: []domain.Question{
				{
					Text:         "What is 2 + 2?",
					Options:      []string{"3", "4", "5", "22"},
					CorrectIndex: 1,
				},
				{
					Text:         "Which planet is known as the Red Planet?",
					Options:      []string{"Venus", "Jupiter", "Mars", "Saturn"},
					CorrectIndex: 2,
				},
			},
		},
	}
}
