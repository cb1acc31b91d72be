package routes

import (
	"log/slog"
	"net/http"

	"github.com/klaudly/klaudly/internal/app"
	"github.com/klaudly/klaudly/internal/db"
	"github.com/klaudly/klaudly/internal/handler"
	"github.com/klaudly/klaudly/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	entries := handler.NewEntryHandler(app.EntryService, app.Cfg.MaxUploadSize)
	uploadLimit := middleware.RateLimit(app.UploadLimiter)

	mux := http.NewServeMux()

	// Health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		err := db.Ping(r.Context(), app.DB)
		if err != nil {
			slog.Error("health check failed", "error", err)
			http.Error(w, `{"status":"unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
	})

	// Entries
	mux.HandleFunc("GET /entries", middleware.RequireAuth(entries.List))
	mux.HandleFunc("POST /entries/folder", middleware.RequireAuth(entries.CreateFolder))
	mux.HandleFunc("POST /entries/upload", middleware.RequireAuth(uploadLimit(entries.Upload)))
	mux.HandleFunc("GET /entries/upload-auth", middleware.RequireAuth(uploadLimit(entries.UploadAuth)))
	mux.HandleFunc("PATCH /entries/{id}/star", middleware.RequireAuth(entries.ToggleStar))
	mux.HandleFunc("DELETE /entries/{id}", middleware.RequireAuth(entries.Delete))

	// Global middleware - executed in order (top to bottom)
	return middleware.Chain(
		mux,
		middleware.WithRequestID,
		middleware.Authenticate(app.IdentityService),
		middleware.RequestLogging,
	)
}
