package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yumplee/swish-payment-service/internal/config"
	"github.com/yumplee/swish-payment-service/internal/handler"
	"github.com/yumplee/swish-payment-service/internal/logging"
	"github.com/yumplee/swish-payment-service/internal/middleware"
	"github.com/yumplee/swish-payment-service/internal/repository"
	"github.com/yumplee/swish-payment-service/internal/service"
	"github.com/yumplee/swish-payment-service/internal/swish"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logging.Init("swish-api", cfg.LogLevel, cfg.AppEnv)

	creds, err := swish.LoadCredentials(cfg)
	if err != nil {
		log.Error("failed to load swish credentials", "error", err)
		os.Exit(1)
	}
	if creds == nil {
		log.Warn("swish credentials not configured, provider calls disabled")
	} else {
		log.Info("swish credentials loaded", "source", creds.Source)
	}
	client := swish.NewClient(cfg, creds)

	var store repository.Store
	if cfg.DatabaseURL != "" {
		db, err := connectDB(cfg)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		store = repository.NewPostgresStore(db)
		log.Info("using postgres payment store")
	} else {
		store = repository.NewMemoryStore()
		log.Warn("DATABASE_URL not set, payments are held in memory only")
	}

	engine := service.NewEngine(store, client, cfg.CancelAfter(), cfg.ReferencePrefix)

	payments := handler.NewPaymentHandler(engine, cfg.IsDevelopment())
	callbacks := handler.NewCallbackHandler(engine)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /payments", payments.Create)
	mux.HandleFunc("GET /payments", payments.List)
	mux.HandleFunc("GET /payments/{token}", payments.Get)
	mux.HandleFunc("POST /payments/{token}/cancel", payments.Cancel)
	mux.HandleFunc("POST /payments/callback", callbacks.Receive)
	mux.HandleFunc("GET /health", handler.Health)
	mux.Handle("GET /metrics", promhttp.Handler())

	if cfg.IsDevelopment() {
		debug := handler.NewDebugHandler(store, engine, creds)
		mux.HandleFunc("POST /debug/payments/{token}/callback", debug.SimulateCallback)
		mux.HandleFunc("GET /debug/certs", debug.CertStatus)
		log.Info("debug routes enabled")
	}

	// Metrics sits inside Logging: Logging forwards a shallow copy of the
	// request, and ServeMux records the matched pattern on the copy.
	chained := middleware.Tracing(middleware.Logging(middleware.Metrics(middleware.Recovery(mux))))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      chained,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func connectDB(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeS) * time.Second)

	// The database may still be starting when we are; give it a few tries.
	var pingErr error
	for attempt := 1; attempt <= 5; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		pingErr = db.PingContext(ctx)
		cancel()
		if pingErr == nil {
			return db, nil
		}
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	db.Close()
	return nil, fmt.Errorf("ping database: %w", pingErr)
}
