package server

import (
	"clipboard-sync/internal/auth"
	"clipboard-sync/internal/config"
	"clipboard-sync/internal/notify"
	"clipboard-sync/internal/service"
	"clipboard-sync/internal/storage"
	"clipboard-sync/pkg/types"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Scraper fetches link previews for the callable endpoint.
type Scraper interface {
	Scrape(ctx context.Context, rawURL string) (*types.LinkPreview, error)
}

// Deps are the components the HTTP surface exposes.
type Deps struct {
	Service   *service.ClipboardService
	Posts     storage.PostStore
	Snapshots *service.SnapshotWriter
	Scraper   Scraper
	Auth      *auth.Authenticator
	Trigger   *notify.PostTrigger
	Logger    *zap.Logger
}

type Server struct {
	Deps
	srv     *http.Server
	config  Config
	hub     *Hub
	started time.Time
	// background post notifications, awaited by Stop
	pending sync.WaitGroup
}

type Config struct {
	Port    int
	BaseURL string
	// RequestTimeout bounds every non-websocket request
	RequestTimeout time.Duration
}

func New(deps Deps, cfg Config) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Auth == nil {
		// Without credentials every dashboard request is rejected
		deps.Auth = auth.New(config.AdminConfig{})
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}

	s := &Server{
		Deps:    deps,
		config:  cfg,
		hub:     newHub(deps.Logger),
		started: time.Now(),
	}
	go s.hub.run()
	deps.Service.RegisterHandler(s.hub)
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ws", s.serveWs)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.config.RequestTimeout))

		r.Get("/status", s.handleStatus)

		r.Route("/shared/{token}", func(r chi.Router) {
			r.Get("/", s.handleOpenShare)
			r.Patch("/", s.handleEditShared)
		})

		r.Route("/api", func(r chi.Router) {
			r.Get("/items", s.handleListItems)
			r.Post("/items", s.handleCreateItem)
			r.Route("/items/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetItem)
				r.Patch("/", s.handleEditItem)
				r.Delete("/", s.handleDeleteItem)
				r.Post("/pin", s.handlePin)
				r.Delete("/pin", s.handleUnpin)
				r.Post("/trash", s.handleTrash)
				r.Post("/restore", s.handleRestore)
				r.Post("/tags", s.handleAddTags)
				r.Delete("/tags", s.handleRemoveTags)
				r.Post("/share", s.handleCreateShare)
				r.Get("/share", s.handleFetchShare)
				r.Delete("/share", s.handleDeleteShare)
			})
			r.Delete("/trash", s.handleEmptyTrash)
			r.Get("/search", s.handleSearch)

			r.Get("/clips", s.handleGetClips)
			r.Get("/clips/{index}", s.handleGetClip)
			r.Post("/clips/{index}/paste", s.handlePasteClip)

			r.Get("/snapshot", s.handleSnapshot)

			r.Post("/callable/linkPreview", s.handleLinkPreview)

			r.Post("/admin/login", s.handleLogin)
			r.Post("/admin/logout", s.handleLogout)
			r.Group(func(r chi.Router) {
				r.Use(s.Auth.Middleware)
				r.Get("/posts", s.handleListPosts)
				r.Post("/posts", s.handleCreatePost)
				r.Get("/posts/{id}", s.handleGetPost)
				r.Patch("/posts/{id}", s.handleUpdatePost)
				r.Delete("/posts/{id}", s.handleDeletePost)
			})
		})
	})

	return r
}

func (s *Server) Start() error {
	handler := s.Handler()

	// Try different addresses if one fails
	addresses := []string{
		fmt.Sprintf("localhost:%d", s.config.Port),
		fmt.Sprintf("127.0.0.1:%d", s.config.Port),
	}

	var lastErr error
	for _, addr := range addresses {
		s.srv = &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		}

		s.Logger.Debug("Attempting to start HTTP server", zap.String("addr", addr))

		// Create a channel to signal server start
		serverErr := make(chan error, 1)

		go func(srv *http.Server) {
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				serverErr <- fmt.Errorf("http server error on %s: %w", srv.Addr, err)
			}
		}(s.srv)

		// Wait a moment to see if the server starts successfully
		select {
		case err := <-serverErr:
			lastErr = err
			s.Logger.Warn("Failed to start server", zap.String("addr", addr), zap.Error(err))
			continue
		case <-time.After(100 * time.Millisecond):
			s.Logger.Info("Server started", zap.String("addr", addr))
			return nil
		}
	}

	return fmt.Errorf("failed to start server on any address: %v", lastErr)
}

func (s *Server) Stop() error {
	s.hub.stop()
	if s.srv == nil {
		s.pending.Wait()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	s.pending.Wait()

	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	addr := ""
	if s.srv != nil {
		addr = s.srv.Addr
	}
	respondSuccess(w, map[string]interface{}{
		"status":  "ok",
		"time":    time.Now().Format(time.RFC3339),
		"addr":    addr,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
		"clients": s.hub.count(),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.Snapshots == nil {
		respondError(w, http.StatusServiceUnavailable, "snapshot is not configured")
		return
	}
	snap, err := s.Snapshots.Build(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondSuccess(w, snap)
}
