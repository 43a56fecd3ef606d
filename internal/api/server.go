// Package api provides the HTTP API server for Nuance.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/nuance-app/nuance/internal/access"
	"github.com/nuance-app/nuance/internal/coach"
	"github.com/nuance-app/nuance/internal/core"
	"github.com/nuance-app/nuance/internal/logging"
	"github.com/nuance-app/nuance/internal/state"
	"github.com/nuance-app/nuance/internal/storage"
)

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server

	app   *state.App
	wsHub *WebSocketHub

	stateStore   *storage.StateStore
	historyStore *storage.HistoryStore

	coachCfg coach.Config
	log      *logging.Logger
}

// Config for the server
type Config struct {
	Host string
	Port int

	App *state.App
	DB  *storage.DB

	Coach coach.Config
}

// New creates a new API server
func New(cfg Config) *Server {
	coachCfg := cfg.Coach
	if coachCfg.WindowDays == 0 {
		coachCfg = coach.DefaultConfig()
	}

	s := &Server{
		app:      cfg.App,
		wsHub:    NewWebSocketHub(),
		coachCfg: coachCfg,
		log:      logging.WithField("component", "api"),
	}
	if cfg.DB != nil {
		s.stateStore = storage.NewStateStore(cfg.DB)
		s.historyStore = storage.NewHistoryStore(cfg.DB)
	}

	s.setupRouter()

	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRouter configures all routes
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Full snapshot
		r.Get("/state", s.handleGetState)
		r.Get("/score", s.handleGetScore)

		// Working day
		r.Get("/day", s.handleGetDay)
		r.Put("/day/date", s.handleSelectDate)
		r.Put("/day/sliders/{itemID}", s.handleSetSlider)
		r.Put("/day/toggles/{itemID}", s.handleSetToggle)
		r.Put("/day/penalties/{itemID}", s.handleSetPenalty)
		r.Put("/day/context", s.handleSetContext)
		r.Put("/day/mode", s.handleSetMode)
		r.Post("/day/save", s.handleSaveDay)

		// History
		r.Get("/history", s.handleGetHistory)
		r.Delete("/history", s.handleClearHistory)

		// Analytics
		r.Get("/analytics", s.handleGetAnalytics)

		// Coach
		r.Get("/coach", s.handleGetCoach)
		r.Post("/coach/apply", s.handleApplyCoach)

		// Catalog builders
		r.Get("/catalog", s.handleGetCatalog)
		r.Post("/catalog/{kind}", s.handleAddItem)
		r.Patch("/catalog/{itemID}", s.handleUpdateItem)
		r.Delete("/catalog/{itemID}", s.handleDeleteItem)
		r.Post("/catalog/dashboard", s.handleMoveDashboard)

		// Undo
		r.Post("/undo", s.handleUndo)

		// Settings
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)

		// Access
		r.Get("/access", s.handleGetAccess)
		r.Put("/access/tier", s.handleSetTier)
		r.Post("/access/pin", s.handleSetPIN)
		r.Post("/access/unlock", s.handleUnlockOwner)
		r.Post("/access/lock", s.handleLockOwner)
	})

	// WebSocket
	r.Get("/ws", s.handleWebSocket)

	s.router = r
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go s.wsHub.Run()

	s.log.Info("API server starting on http://%s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.wsHub.Stop()
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Broadcast sends a message to all WebSocket clients
func (s *Server) Broadcast(msgType string, data interface{}) {
	s.wsHub.Broadcast(WebSocketMessage{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// --- Response helpers ---

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondDomainError maps sentinel errors onto HTTP statuses.
func (s *Server) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrItemNotFound), errors.Is(err, core.ErrRecordNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrInvalidInput), errors.Is(err, core.ErrPINFormat):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrInsufficientData):
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, core.ErrPersonalization), errors.Is(err, core.ErrNothingToUndo):
		s.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrTierLocked), errors.Is(err, core.ErrBadPIN):
		s.respondError(w, http.StatusForbidden, err.Error())
	default:
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// requireFeature enforces the tier gate, writing a 403 when locked.
func (s *Server) requireFeature(w http.ResponseWriter, f access.Feature) bool {
	if s.app.Allowed(f) {
		return true
	}
	s.respondError(w, http.StatusForbidden,
		fmt.Sprintf("%s requires the %s tier", f, access.Required(f)))
	return false
}

// persistState writes the state blob. Persistence failures are logged, not
// surfaced: the in-memory state is still authoritative for this process.
func (s *Server) persistState() {
	if s.stateStore == nil {
		return
	}
	data, err := s.app.Marshal()
	if err != nil {
		s.log.Error("failed to marshal state: %v", err)
		return
	}
	if err := s.stateStore.Save(data); err != nil {
		s.log.Error("failed to persist state: %v", err)
	}
}

// pushScore recomputes and broadcasts the live score after a mutation.
func (s *Server) pushScore() {
	s.Broadcast("score", s.app.Score())
}
