package relay

import (
	"errors"
	"io"
	"net/http"

	"github.com/brizzai/monzo2discord/internal/utils"
	"github.com/brizzai/monzo2discord/internal/webhook"
)

// MaxMessageBytes bounds the body accepted on the ingress route.
const MaxMessageBytes = 64 << 10

// Handler serves the relay ingress routes.
type Handler struct {
	service *Service
}

// NewHandler creates a relay Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the relay routes on mux. Ingress stays open for
// the provider's pushes, removal goes through authenticate.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, authenticate func(http.Handler) http.Handler) {
	mux.HandleFunc("POST "+IngressPath+"{id}", h.HandleRelay)
	mux.Handle("DELETE "+IngressPath+"{id}", authenticate(http.HandlerFunc(h.HandleDelete)))
}

// HandleRelay forwards the request body to the relay's webhook unchanged.
func (h *Handler) HandleRelay(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxMessageBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.WriteError(w, "invalid_request", "Body too large", http.StatusRequestEntityTooLarge)
			return
		}
		utils.WriteError(w, "invalid_request", "Failed to read body", http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		utils.WriteError(w, "invalid_request", "Body is required", http.StatusBadRequest)
		return
	}

	if err := h.service.Relay(r.Context(), r.PathValue("id"), string(body)); err != nil {
		writeRelayError(w, err)
		return
	}
	utils.WriteJSON(w, map[string]string{"status": "delivered"})
}

// HandleDelete deactivates a relay.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Deactivate(r.Context(), r.PathValue("id")); err != nil {
		writeRelayError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StatusOf maps a relay error to an HTTP status.
func StatusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrRelayNotFound):
		return http.StatusNotFound
	case errors.Is(err, webhook.ErrPostFailed):
		return http.StatusFailedDependency
	case errors.Is(err, webhook.ErrUnreachable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeRelayError(w http.ResponseWriter, err error) {
	status := StatusOf(err)
	switch status {
	case http.StatusNotFound:
		utils.WriteError(w, "relay_not_found", "Unknown relay", status)
	case http.StatusFailedDependency:
		utils.WriteError(w, "webhook_not_executed", err.Error(), status)
	case http.StatusBadGateway:
		utils.WriteError(w, "webhook_unreachable", err.Error(), status)
	default:
		utils.WriteError(w, "server_error", "Internal server error", status)
	}
}
