package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/clusterdash/reporting-engine/pkg/config"
	"github.com/clusterdash/reporting-engine/pkg/database"
	"github.com/clusterdash/reporting-engine/pkg/handlers"
	"github.com/clusterdash/reporting-engine/pkg/middleware"
	"github.com/clusterdash/reporting-engine/pkg/reporting"
	"github.com/clusterdash/reporting-engine/pkg/schema"
)

// Version is set at build time via ldflags
var Version = "dev"

// catalogCacheCapacity bounds the column and week caches; distinct logical
// tables beyond this evict the least recently used entry.
const catalogCacheCapacity = 10

// sqlStore bridges the database pool to the reporting store contract; the
// stream method narrows the concrete row stream to the consumed interface.
type sqlStore struct {
	*database.DB
}

func (s sqlStore) QueryStream(ctx context.Context, query string, args ...any) (reporting.RowStream, error) {
	return s.DB.QueryStream(ctx, query, args...)
}

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("bind_addr", cfg.BindAddr),
		zap.String("port", cfg.Port),
		zap.String("database", cfg.MySQL.Database),
		zap.String("report_table", cfg.MySQL.ReportTable),
	)

	// The default table is configuration; reject a bad value at startup
	// rather than on first request.
	if _, err := schema.EnsureSafeTableName(cfg.MySQL.ReportTable); err != nil {
		logger.Fatal("Invalid report table name", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := database.NewConnection(ctx, &cfg.MySQL)
	cancel()
	if err != nil {
		logger.Fatal("Failed to connect to MySQL", zap.Error(err))
	}
	defer db.Close()

	catalog := schema.NewCatalog(db, catalogCacheCapacity, logger)
	service := reporting.NewService(sqlStore{db}, catalog, logger)

	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.RequestLogger(logger))

	handlers.NewHealthHandler(db, logger).RegisterRoutes(r)
	handlers.NewReportsHandler(service, cfg.MySQL.ReportTable, logger).RegisterRoutes(r)

	server := &http.Server{
		Addr:         cfg.BindAddr + ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("Starting reporting engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

// newLogger builds a production logger, or a development one for local runs.
func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
