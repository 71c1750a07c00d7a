package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/quarry/sparc/internal/coord"
	"github.com/quarry/sparc/internal/status"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	state  *coord.State
	agg    *status.Aggregator
	logger *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(state *coord.State, agg *status.Aggregator, logger *zap.Logger) *Handler {
	return &Handler{state: state, agg: agg, logger: logger}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)

		r.Route("/workflows", func(r chi.Router) {
			r.Post("/", h.createWorkflow)
			r.Get("/", h.listWorkflows)
			r.Get("/{id}", h.getWorkflow)
			r.Put("/{id}", h.updateWorkflow)
			r.Delete("/{id}", h.deleteWorkflow)
			r.Post("/{id}/advance", h.advanceWorkflow)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", h.createTask)
			r.Get("/", h.listTasks)
			r.Get("/{id}", h.getTask)
			r.Put("/{id}", h.updateTask)
			r.Delete("/{id}", h.deleteTask)
			r.Post("/{id}/result", h.storeTaskResult)
		})

		r.Get("/agents", h.listAgents)
		r.Post("/agents", h.registerAgent)

		r.Post("/coordination", h.coordinationAction)
		r.Get("/coordination/messages", h.coordinationMessages)

		r.Get("/status", h.statusView)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "sparc-coordination"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto the HTTP status taxonomy:
// validation 400, not found 404, anything else 500 with the message
// attached.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case coord.IsValidation(err):
		code = http.StatusBadRequest
	case coord.IsNotFound(err):
		code = http.StatusNotFound
	default:
		h.logger.Error("internal error", zap.Error(err))
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}
