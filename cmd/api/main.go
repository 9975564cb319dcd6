// cmd/api/main.go

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"casaview/internal/adapter/media"
	"casaview/internal/adapter/storage"
	"casaview/internal/config"
	"casaview/internal/server"
	"casaview/internal/server/handlers"
	"casaview/internal/service/catalog"
	"casaview/internal/service/geo"
)

func main() {
	// Load configuration
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Initialize dependencies
	db, err := initDatabase(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := applyMigrations(ctx, db); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	natsConn, err := initNATS(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer natsConn.Close()

	mediaClient, err := initMediaStore(ctx, cfg.Media)
	if err != nil {
		log.Fatalf("Failed to connect to media storage: %v", err)
	}
	defer mediaClient.Disconnect(context.Background())

	// Initialize storage adapters
	listingStore := storage.NewListingStore(db)
	mediaStore := media.NewStore(
		media.NewGridFSBackend(mediaClient, cfg.Media.Database),
		cfg.Media.BaseURL,
	)

	// Initialize the coordinate resolver with its offline fallback
	resolver := geo.NewResolver(
		geo.ResolverConfig{
			APIKey:   cfg.Geocoder.APIKey,
			Endpoint: cfg.Geocoder.Endpoint,
			Timeout:  cfg.Geocoder.Timeout,
		},
		geo.NewFallback(geo.DefaultFallbackConfig(), nil),
	)

	// Initialize the catalog service
	catalogService := catalog.NewService(
		listingStore,
		mediaStore,
		resolver,
		natsConn,
		catalog.ServiceConfig{
			ChangeSubject: cfg.NATS.ChangeSubject,
		},
	)

	// Start the live feed
	feed := catalog.NewFeed(listingStore)
	changes, stopListening, err := catalog.ListenChanges(natsConn, cfg.NATS.ChangeSubject)
	if err != nil {
		log.Fatalf("Failed to subscribe to change events: %v", err)
	}
	defer stopListening()

	go feed.Run(ctx, changes)

	// Initialize HTTP server
	authHandler := handlers.NewAuthHandler(cfg.Session, cfg.Environment)
	httpServer := server.NewServer(
		cfg.Server,
		catalogService,
		feed,
		mediaStore,
		authHandler,
	)

	// Start HTTP server
	go func() {
		log.Printf("Starting HTTP server on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-shutdown
	log.Println("Shutdown signal received")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Graceful shutdown
	log.Println("Shutting down services...")

	// Shutdown HTTP server
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Stop the feed loop
	cancel()

	log.Println("Shutdown complete")
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// applyMigrations runs any SQL files found under migrations/ in name order
func applyMigrations(ctx context.Context, db *pgxpool.Pool) error {
	files, err := filepath.Glob("migrations/*.sql")
	if err != nil {
		return fmt.Errorf("unable to list migrations: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		contents, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("unable to read migration %s: %w", file, err)
		}

		if _, err := db.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("migration %s failed: %w", file, err)
		}

		log.Printf("Applied migration %s", file)
	}

	return nil
}

// Initialize NATS connection
func initNATS(cfg config.NATSConfig) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Printf("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}

// Initialize the MongoDB client backing GridFS image storage
func initMediaStore(ctx context.Context, cfg config.MediaConfig) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("unable to connect to media storage: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("unable to ping media storage: %w", err)
	}

	return client, nil
}
