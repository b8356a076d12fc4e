/**
 * @description
 * This is the main entry point for the banking service. It is responsible
 * for initializing all components of the service, including configuration,
 * database connection, message broker, the in-memory session stores, the
 * core application service, and the HTTP server. It wires everything
 * together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/go-chi/chi/v5: For HTTP routing.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/finspeak/banking-service/internal/api"
	"github.com/finspeak/banking-service/internal/app"
	"github.com/finspeak/banking-service/internal/config"
	"github.com/finspeak/banking-service/internal/store"
	rmrabbit "github.com/finspeak/banking-service/pkg/rabbitmq"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}

	log.Printf("level=info component=bootstrap msg=\"starting banking-service\" port=%s home_bank=%q", cfg.ServerPort, cfg.HomeBank)
	if cfg.OTPBypassEnabled {
		log.Println("level=warn component=bootstrap msg=\"OTP bypass is enabled; do not run this configuration in production\"")
	}

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	poolConfig.MaxConns = 50
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer that mirrors audit events onto the
	// bus. The service runs without it; only the mirror degrades.
	var publisher rmrabbit.Publisher
	rabbitProducer, err := rmrabbit.NewEventProducer(cfg.RabbitMQURL, cfg.AuditEventExchange)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		publisher = &rmrabbit.EventProducerFallback{}
	} else {
		defer rabbitProducer.Close()
		publisher = rabbitProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Redis backs the optional OTP attempt limiter. Without it, retries
	// stay unlimited.
	var redisClient *redis.Client
	if strings.TrimSpace(cfg.RedisURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"redis url missing; otp attempt limiting disabled\" env=REDIS_URL")
	} else {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; otp attempt limiting disabled\" err=%v", parseErr)
		} else {
			redisClient = redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelPing()
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis ping failed; otp attempt limiting disabled\" err=%v", pingErr)
				redisClient.Close()
				redisClient = nil
			} else {
				defer redisClient.Close()
				log.Println("level=info component=bootstrap msg=\"redis connected\"")
			}
		}
	}

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	// Audit sink and risk evaluator feed the transfer flow.
	auditor := app.NewAuditor(repository, publisher)
	riskEvaluator := app.NewRiskEvaluator(repository, app.RiskThresholds{
		HighAmount:           cfg.RiskHighAmount,
		NewBeneficiaryAmount: cfg.RiskNewBeneficiary,
		VelocityCount:        cfg.RiskVelocityCount,
		VelocityWindow:       time.Duration(cfg.RiskVelocityWindow) * time.Minute,
	})

	// In-memory stores for in-flight intents and pagination sessions.
	intents := app.NewIntentStore(time.Duration(cfg.IntentTTLMinutes) * time.Minute)
	sessions := app.NewSessionStore(time.Duration(cfg.PaginationTTLMinutes) * time.Minute)

	transferFlow := app.NewTransferFlow(repository, intents, auditor, riskEvaluator, app.OTPConfig{
		BypassEnabled: cfg.OTPBypassEnabled,
		BypassCode:    cfg.OTPBypassCode,
	}, cfg.HomeBank)
	if redisClient != nil {
		transferFlow.SetOTPAttemptLimiter(app.NewRedisOTPAttemptLimiter(
			redisClient,
			cfg.RedisOTPPrefix,
			cfg.OTPMaxAttempts,
			time.Duration(cfg.OTPAttemptWindowSec)*time.Second,
		))
	}

	paginator := app.NewHistoryPaginator(repository, sessions, auditor)

	bankingService := app.NewService(repository, auditor, cfg.HomeBank)
	bankingService.SetTransferFlow(transferFlow)
	bankingService.SetHistoryPaginator(paginator)

	dispatcher := app.NewDispatcher(bankingService)

	// Reap expired intents and pagination sessions in the background.
	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	defer cancelSweep()
	go intents.RunSweeper(sweepCtx, time.Minute)
	go sessions.RunSweeper(sweepCtx, time.Minute)

	// Initialize the API handlers.
	bankingHandlers := api.NewBankingHandlers(bankingService, dispatcher)

	// Set up the HTTP router and define the API routes.
	router := chi.NewRouter()
	router.Mount("/banking", api.BankingRoutes(bankingHandlers, cfg.JWKSURL, cfg.JWTAudience, cfg.JWTIssuer))

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
