package httpx

import (
	"log/slog"
	"net/http"

	"github.com/streamnotify/channel-resolver/internal/core"
	"github.com/streamnotify/channel-resolver/internal/service"
)

// RouterServices holds the services needed by the HTTP router.
type RouterServices struct {
	Intake *service.IntakeService
	Store  core.JobStore
	Logger *slog.Logger // Optional
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	submitHandlers := &SubmitHandlers{Svc: services.Intake}
	jobHandlers := &JobHandlers{Store: services.Store}

	mux.Handle("POST /submit", http.HandlerFunc(submitHandlers.Submit))
	mux.Handle("GET /jobs/{id}", http.HandlerFunc(jobHandlers.GetJob))
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	return RequestLogging(services.Logger)(mux)
}
