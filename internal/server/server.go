// internal/server/server.go

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"casaview/internal/adapter/media"
	"casaview/internal/config"
	"casaview/internal/server/handlers"
	"casaview/internal/service/catalog"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.ServerConfig,
	catalogService *catalog.Service,
	feed *catalog.Feed,
	mediaStore *media.Store,
	auth *handlers.AuthHandler,
) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Create handler dependencies
	listingHandler := handlers.NewListingHandler(catalogService)
	mediaHandler := handlers.NewMediaHandler(mediaStore)

	// Routes
	router.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		// API version
		r.Route("/v1", func(r chi.Router) {
			// Listings API
			r.Route("/listings", func(r chi.Router) {
				r.Get("/", listingHandler.ListListings)
				r.Get("/featured", listingHandler.GetFeatured)
				r.Get("/{id}", listingHandler.GetListing)

				// Admin-gated mutations
				r.Group(func(r chi.Router) {
					r.Use(auth.AdminOnly)
					r.Post("/", listingHandler.CreateListing)
					r.Put("/{id}", listingHandler.UpdateListing)
					r.Delete("/{id}", listingHandler.DeleteListing)
					r.Post("/batch", listingHandler.BatchUpdate)
				})
			})

			// Session API
			r.Route("/auth", func(r chi.Router) {
				r.Post("/login", auth.Login)
				r.Post("/logout", auth.Logout)
				r.Get("/session", auth.Session)
			})
		})
	})

	// Public image URLs
	router.Get("/media/*", mediaHandler.ServeObject)

	// WebSocket endpoint for the live listings feed
	router.Get("/ws/listings", handlers.ListingsFeedHandler(feed))

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
