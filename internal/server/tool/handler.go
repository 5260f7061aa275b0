// Package tool provides the MCP tools that expose the relay service.
package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/brizzai/monzo2discord/internal/auth"
	"github.com/brizzai/monzo2discord/internal/logger"
	"github.com/brizzai/monzo2discord/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Authorizer starts authorizations.
type Authorizer interface {
	BeginAuthorization(ctx context.Context, rawWebhook string) (string, error)
}

// Relayer forwards messages and lists relays.
type Relayer interface {
	Relay(ctx context.Context, id, message string) error
	List() []models.Relay
}

// Handler builds the MCP tool handlers.
type Handler struct {
	auth   Authorizer
	relays Relayer
}

// NewHandler creates a new tool handler.
func NewHandler(auth Authorizer, relays Relayer) *Handler {
	return &Handler{auth: auth, relays: relays}
}

// RelaySummary is what list_relays reports per relay. Webhook paths carry
// credentials, so only the host is exposed.
type RelaySummary struct {
	ID          string `json:"id"`
	WebhookHost string `json:"webhook_host"`
	AccountID   string `json:"account_id,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// Register adds every tool to s.
func (h *Handler) Register(s *mcpserver.MCPServer) {
	s.AddTool(mcp.NewTool("begin_authorization",
		mcp.WithDescription("Start linking a Monzo account to a Discord webhook. Returns the URL the account owner must open."),
		mcp.WithString("webhook",
			mcp.Required(),
			mcp.Description("Discord webhook URL, e.g. https://discord.com/api/webhooks/{id}/{token}"),
		),
	), h.BeginAuthorization)

	s.AddTool(mcp.NewTool("relay_message",
		mcp.WithDescription("Post a message through an activated relay."),
		mcp.WithString("relay_id", mcp.Required(), mcp.Description("Relay id returned when the account was linked")),
		mcp.WithString("message", mcp.Required(), mcp.Description("Message content")),
	), h.RelayMessage)

	s.AddTool(mcp.NewTool("list_relays",
		mcp.WithDescription("List activated relays."),
	), h.ListRelays)
}

// BeginAuthorization handles the begin_authorization tool.
func (h *Handler) BeginAuthorization(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	webhook, err := stringArg(request, "webhook")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	redirectURL, err := h.auth.BeginAuthorization(ctx, webhook)
	if err != nil {
		outcome := auth.OutcomeOf(err)
		if outcome == auth.OutcomeInternal {
			logger.Error("Tool call failed", zap.String("tool", "begin_authorization"), zap.Error(err))
			return nil, fmt.Errorf("begin authorization: %w", err)
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(redirectURL), nil
}

// RelayMessage handles the relay_message tool.
func (h *Handler) RelayMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := stringArg(request, "relay_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	message, err := stringArg(request, "message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := h.relays.Relay(ctx, id, message); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("delivered"), nil
}

// ListRelays handles the list_relays tool.
func (h *Handler) ListRelays(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	relays := h.relays.List()
	summaries := make([]RelaySummary, 0, len(relays))
	for _, relay := range relays {
		summaries = append(summaries, RelaySummary{
			ID:          relay.ID,
			WebhookHost: relay.WebhookHost(),
			AccountID:   relay.AccountID,
			CreatedAt:   relay.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	data, err := json.Marshal(summaries)
	if err != nil {
		return nil, fmt.Errorf("marshal relays: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func stringArg(request mcp.CallToolRequest, name string) (string, error) {
	value, ok := request.GetArguments()[name].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return value, nil
}
