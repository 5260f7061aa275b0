// Package handler assembles the HTTP routes of the service.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/brizzai/monzo2discord/internal/auth/handlers"
	"github.com/brizzai/monzo2discord/internal/auth/middleware"
	"github.com/brizzai/monzo2discord/internal/logger"
	"github.com/brizzai/monzo2discord/internal/relay"
	"github.com/brizzai/monzo2discord/internal/utils"
	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"
)

// Handler manages HTTP request handling and middleware configuration.
type Handler struct {
	auth    *handlers.Handler
	relay   *relay.Handler
	metrics http.Handler
	doc     *openapi3.T

	// authenticate guards operator routes: /mcp and relay removal.
	authenticate func(http.Handler) http.Handler
}

// NewHandler creates a new HTTP handler.
func NewHandler(
	auth *handlers.Handler,
	relay *relay.Handler,
	metrics http.Handler,
	doc *openapi3.T,
	authenticate func(http.Handler) http.Handler,
) *Handler {
	return &Handler{
		auth:         auth,
		relay:        relay,
		metrics:      metrics,
		doc:          doc,
		authenticate: authenticate,
	}
}

// CreateHTTPHandler creates an HTTP handler with the middleware stack.
// mcpHandler is mounted on /mcp when non-nil.
func (h *Handler) CreateHTTPHandler(mcpHandler http.Handler) http.Handler {
	mux := http.NewServeMux()

	h.auth.RegisterRoutes(mux)
	h.relay.RegisterRoutes(mux, h.authenticate)
	mux.HandleFunc("GET /health", HealthHandler)
	mux.Handle("GET /metrics", h.metrics)
	mux.HandleFunc("GET /openapi.json", h.handleOpenAPI)

	if mcpHandler != nil {
		mux.Handle("/mcp", middleware.Chain(mcpHandler, middleware.CORS, h.authenticate))
		logger.Info("Registered MCP endpoint", zap.String("path", "/mcp"))
	}

	return middleware.Chain(mux, middleware.Logging, middleware.Recover)
}

// HealthHandler reports liveness.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	utils.WriteJSON(w, map[string]string{"status": "ok"})
}

func (h *Handler) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	data, err := json.Marshal(h.doc)
	if err != nil {
		logger.Error("Failed to encode OpenAPI document", zap.Error(err))
		utils.WriteError(w, "server_error", "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}
