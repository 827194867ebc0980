package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tasktrack/apiserver/config"
	"github.com/tasktrack/apiserver/internal/blob"
	"github.com/tasktrack/apiserver/internal/db"
	"github.com/tasktrack/apiserver/internal/handlers"
	"github.com/tasktrack/apiserver/internal/notify"
	"github.com/tasktrack/apiserver/internal/services"
	"github.com/tasktrack/apiserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     notify.Publisher
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if jwtSecret == "" {
		_ = dbConn.Close()
		return nil, errors.New("JWT_SECRET is required")
	}

	attachments, err := blob.FromConfig(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	if attachments != nil {
		if err := attachments.EnsureBucket(ctx); err != nil {
			_ = dbConn.Close()
			return nil, err
		}
	}

	events, err := notify.FromConfig(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	taskRepo := store.NewTaskRepository(dbConn)

	userService := services.NewUserService(userRepo)
	taskService := services.NewTaskService(taskRepo, userRepo, events, attachments)
	dashboardService := services.NewDashboardService(userRepo, taskRepo)

	authMiddleware := handlers.RequireAuth(jwtSecret)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	handlers.AuthRouter(router, userService, jwtSecret)
	router.Route("/dashboard", func(r chi.Router) {
		handlers.DashboardRouter(r, dashboardService, userService, authMiddleware)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userService, authMiddleware)
	})
	router.Route("/admins", func(r chi.Router) {
		handlers.AdminRouter(r, userService, authMiddleware)
	})
	router.Route("/tasks", func(r chi.Router) {
		handlers.TaskRouter(r, taskService, userService, authMiddleware)
	})
	router.Route("/user/tasks", func(r chi.Router) {
		handlers.UserTaskRouter(r, taskService, userService, authMiddleware)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		events:     events,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.events != nil {
		_ = s.events.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
