package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/TWRT/task-manager/internal/api/auth"
	"github.com/TWRT/task-manager/internal/api/handlers"
	"github.com/TWRT/task-manager/internal/repository"
	"github.com/TWRT/task-manager/internal/service"
	"github.com/TWRT/task-manager/internal/telemetry"
)

func SetupRouter(db *sql.DB, verifier *auth.Verifier, requestTimeout time.Duration, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	taskRepo := repository.NewTaskRepository(db)
	userRepo := repository.NewUserRepository(db)

	taskService := service.NewTaskService(telemetry.WrapStore(taskRepo), userRepo, logger)
	userService := service.NewUserService(userRepo, logger)

	taskHandler := handlers.NewTaskHandler(taskService, logger)
	userHandler := handlers.NewUserHandler(userService, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	if requestTimeout > 0 {
		r.Use(middleware.Timeout(requestTimeout))
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Task Manager API is running"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(verifier.Middleware)

		r.Get("/tasks", taskHandler.ListTasks)
		r.Post("/tasks", taskHandler.CreateTask)
		r.Get("/tasks/{id}", taskHandler.GetTask)
		r.Put("/tasks/{id}", taskHandler.UpdateTask)
		r.Delete("/tasks/{id}", taskHandler.DeleteTask)
		r.Post("/tasks/{id}/notes", taskHandler.AddNote)
		r.Put("/tasks/{id}/stages/{stageIndex}", taskHandler.UpdateStage)
		r.Put("/tasks/{id}/stages/{stageIndex}/approve", taskHandler.ApproveStage)

		r.Get("/users", userHandler.ListUsers)
	})

	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.InfoContext(r.Context(), "request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
