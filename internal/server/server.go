package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ziadkadry99/pdfchat/internal/chatlog"
	"github.com/ziadkadry99/pdfchat/internal/conversation"
	"github.com/ziadkadry99/pdfchat/internal/credentials"
	"github.com/ziadkadry99/pdfchat/internal/library"
	"github.com/ziadkadry99/pdfchat/internal/logging"
	"github.com/ziadkadry99/pdfchat/internal/render"
	"github.com/ziadkadry99/pdfchat/internal/session"
)

// Config holds server configuration.
type Config struct {
	Port           int
	RequestTimeout time.Duration
	AllowedOrigins []string
	// UserHeader carries the user id set by the authenticating proxy.
	UserHeader     string
	MaxUploadBytes int64
}

// Deps are the services the handlers call.
type Deps struct {
	Credentials *credentials.Manager
	Library     *library.Service
	Engine      *conversation.Engine
	ChatLog     *chatlog.Store
	Registry    *session.Registry
	Renderer    *render.Renderer
}

// Server is the pdfchat HTTP API.
type Server struct {
	cfg        Config
	deps       Deps
	logger     *zap.Logger
	router     chi.Router
	httpServer *http.Server
}

// New creates a server with all routes registered.
func New(cfg Config, deps Deps, logger *zap.Logger) *Server {
	if cfg.UserHeader == "" {
		cfg.UserHeader = "X-User-ID"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 120 * time.Second
	}
	if deps.Renderer == nil {
		deps.Renderer = render.New()
	}
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logging.OrNop(logger),
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", s.cfg.UserHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/languages", s.handleLanguages)

	r.Group(func(r chi.Router) {
		r.Use(s.requireUser)

		// Websocket connections outlive the request timeout.
		r.Get("/ws/chat", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.cfg.RequestTimeout))

			r.Route("/api/keys", func(r chi.Router) {
				r.Get("/", s.handleListKeys)
				r.Post("/", s.handleAddKey)
				r.Post("/{id}/activate", s.handleActivateKey)
				r.Delete("/{id}", s.handleDeleteKey)
			})

			r.Post("/api/upload-pdf", s.handleUpload)
			r.Post("/api/chat", s.handleChat)
			r.Post("/api/clear-pdf", s.handleClearPDF)
			r.Post("/api/logout", s.handleLogout)

			r.Route("/api/pdfs", func(r chi.Router) {
				r.Get("/", s.handleListPDFs)
				r.Post("/{id}/select", s.handleSelectPDF)
				r.Delete("/{id}", s.handleDeletePDF)
			})

			r.Get("/api/history", s.handleHistory)
			r.Delete("/api/history/clear", s.handleClearHistory)
		})
	})

	return r
}

// Router returns the chi router.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("pdfchat server listening", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
