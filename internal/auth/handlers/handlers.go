package handlers

import (
	"context"
	"net/http"

	"github.com/brizzai/monzo2discord/internal/auth"
	"github.com/brizzai/monzo2discord/internal/auth/constants"
	"github.com/brizzai/monzo2discord/internal/auth/models"
	"github.com/brizzai/monzo2discord/internal/logger"
	"github.com/brizzai/monzo2discord/internal/utils"
	"go.uber.org/zap"
)

// Flow is the part of auth.Service the handlers drive.
type Flow interface {
	BeginAuthorization(ctx context.Context, rawWebhook string) (string, error)
	CompleteAuthorization(ctx context.Context, code string, state models.StateToken) (*auth.Completion, error)
	RejectAuthorization(state models.StateToken, reason string) error
}

// Handler handles authorization HTTP requests
type Handler struct {
	flow Flow
}

// NewHandler creates a new Handler instance
func NewHandler(flow *auth.Service) *Handler {
	return newHandler(flow)
}

func newHandler(flow Flow) *Handler {
	return &Handler{flow: flow}
}

// RegisterRoutes registers the authorization routes on mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc(constants.LoginPath, h.HandleLogin)
	mux.HandleFunc(constants.CallbackPath, h.HandleCallback)
}

// CallbackResponse is returned once a webhook has been linked.
type CallbackResponse struct {
	Status  string `json:"status"`
	RelayID string `json:"relay_id"`
}

// HandleLogin validates the webhook and redirects to the provider.
// The webhook comes from the query string or a submitted form.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		utils.WriteError(w, auth.OutcomeInvalidRequest.String(), "Failed to parse form", http.StatusBadRequest)
		return
	}

	redirectURL, err := h.flow.BeginAuthorization(r.Context(), r.Form.Get(constants.WebhookParam))
	if err != nil {
		writeFlowError(w, err)
		return
	}
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// HandleCallback completes the authorization the provider redirected back for
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	state := models.StateToken(query.Get(constants.StateParam))

	if providerErr := query.Get(constants.ErrorParam); providerErr != "" {
		reason := providerReason(providerErr, query.Get(constants.ErrorDescriptionParam))
		writeFlowError(w, h.flow.RejectAuthorization(state, reason))
		return
	}

	completion, err := h.flow.CompleteAuthorization(r.Context(), query.Get(constants.CodeParam), state)
	if err != nil {
		writeFlowError(w, err)
		return
	}

	utils.WriteJSON(w, CallbackResponse{
		Status:  constants.StatusLinked,
		RelayID: completion.Relay.ID,
	})
}

// maxReasonLen bounds the provider-supplied text echoed into logs and replies.
const maxReasonLen = 200

func providerReason(code, description string) string {
	reason := code
	if description != "" {
		reason += ": " + description
	}
	if len(reason) > maxReasonLen {
		reason = reason[:maxReasonLen]
	}
	return reason
}

func writeFlowError(w http.ResponseWriter, err error) {
	outcome := auth.OutcomeOf(err)
	message := err.Error()
	if outcome == auth.OutcomeInternal {
		logger.Error("Authorization failed", zap.Error(err))
		message = "Internal server error"
	}
	utils.WriteError(w, outcome.String(), message, outcome.HTTPStatus())
}
