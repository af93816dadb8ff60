package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ignite/petitions-api/internal/api"
	"github.com/ignite/petitions-api/internal/auth"
	"github.com/ignite/petitions-api/internal/botcheck"
	"github.com/ignite/petitions-api/internal/config"
	"github.com/ignite/petitions-api/internal/metrics"
	"github.com/ignite/petitions-api/internal/notify"
	"github.com/ignite/petitions-api/internal/ratelimit"
	"github.com/ignite/petitions-api/internal/repository/postgres"
	"github.com/ignite/petitions-api/internal/service/signing"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func extractHost(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		return "(unknown)"
	}
	rest := dsn[at+1:]
	slash := strings.Index(rest, "/")
	if slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

func main() {
	log.Println("╔════════════════════════════════════════════════════════════╗")
	log.Println("║  IGNITE Petitions API (cmd/server/main.go)                 ║")
	log.Println("║  Signature intake, confirmation and export service         ║")
	log.Println("╚════════════════════════════════════════════════════════════╝")

	// Load configuration
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	// Pre-flight check: verify the target port is available
	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}
	log.Printf("Pre-flight check passed: port %d is available", port)

	if cfg.Database.URL == "" {
		log.Fatal("Database not configured: set DATABASE_URL or database.url in config/config.yaml")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to PostgreSQL with connection-pool limits and a statement
	// timeout, so a slow query cannot hold a connection forever.
	dbURL := cfg.Database.URL
	sep := "?"
	if strings.Contains(dbURL, "?") {
		sep = "&"
	}
	if !strings.Contains(dbURL, "connect_timeout") {
		dbURL += sep + "connect_timeout=5"
		sep = "&"
	}
	dbURL += sep + "options=-c%20statement_timeout%3D15000"
	log.Printf("DB URL host portion: ...@%s/...", extractHost(dbURL))

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute)
	db.SetConnMaxIdleTime(30 * time.Second)

	pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		pingCancel()
		log.Fatalf("Database ping failed: %v", err)
	}
	pingCancel()
	log.Println("PostgreSQL connected successfully")

	repo := postgres.NewRepo(db)
	emailLog := postgres.NewEmailLogRepo(db)

	// Rate limiter: Redis when configured, otherwise count recent rows in
	// Postgres. Both enforce the same per-identifier window.
	var limiter signing.RateLimiter
	var redisClient *redis.Client
	if cfg.Redis.Enabled && cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.URL})
		} else {
			redisClient = redis.NewClient(opts)
		}
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Printf("Warning: Redis connection failed (%s): %v — falling back to Postgres rate limiting", cfg.Redis.URL, err)
			redisClient.Close()
			redisClient = nil
		} else {
			log.Printf("Redis connected: %s (rate limiting enabled)", cfg.Redis.URL)
		}
		pingCancel()
	} else {
		log.Println("Redis not configured (REDIS_URL not set) — using Postgres for rate limiting")
	}
	if redisClient != nil {
		limiter = ratelimit.NewRedisLimiter(redisClient, cfg.RateLimit.Window(), cfg.RateLimit.MaxRequests)
	} else {
		limiter = ratelimit.NewStoreLimiter(repo, cfg.RateLimit.Window(), cfg.RateLimit.MaxRequests)
	}
	log.Printf("Rate limit policy: %d submissions per %s per identifier", cfg.RateLimit.MaxRequests, cfg.RateLimit.Window())

	// Bot verification (Cloudflare Turnstile)
	devMode := cfg.App.IsDevelopment()
	bots := botcheck.NewTurnstileClient(cfg.Turnstile, devMode)
	if devMode {
		log.Println("Turnstile running in development mode (verification bypassed)")
	} else if cfg.Turnstile.SecretKey == "" {
		log.Println("Warning: Turnstile secret key not configured — all submissions will be rejected")
	}

	// Transactional email (AWS SES), or log-only in development
	var notifier signing.Notifier
	if cfg.Email.Enabled && cfg.Email.AccessKey != "" && cfg.Email.SecretKey != "" {
		sesNotifier, err := notify.NewSESNotifier(ctx, cfg.Email, cfg.App.FrontendURL, emailLog)
		if err != nil {
			log.Fatalf("Failed to initialize SES client: %v", err)
		}
		notifier = sesNotifier
		log.Printf("AWS SES initialized (region: %s, from: %s)", cfg.Email.Region, cfg.Email.From)
	} else {
		notifier = notify.NewLogNotifier(cfg.App.FrontendURL)
		log.Println("Email sending not configured (missing AWS credentials) — logging email content instead")
	}

	// Signing service
	svc := signing.NewService(repo, bots, notifier, limiter, signing.Options{
		ConfirmTTL: cfg.Signing.ConfirmTTL(),
	})

	// Admin authentication
	if cfg.Admin.JWTSecret == "" && cfg.Admin.APIKey == "" {
		log.Println("Warning: no admin JWT secret or API key configured — admin endpoints will reject all requests")
	}
	adminAuth := auth.NewAdminAuth(cfg.Admin)

	// Prometheus metrics
	metrics.Register()

	// HTTP routes
	handlers := api.NewHandlers(svc, cfg.App.FrontendURL)
	healthChecker := api.NewHealthChecker(db, redisClient)
	router := api.SetupRoutes(handlers, healthChecker, adminAuth, cfg.App.CORSOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	log.Println("All services initialized — server is ready")

	<-done
	log.Println("Shutting down...")

	// Cancel background tasks
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	if redisClient != nil {
		redisClient.Close()
	}
	db.Close()

	log.Println("Server stopped")
}
