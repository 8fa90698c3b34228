// Package mcp exposes the pipeline as a Model Context Protocol server, so
// MCP clients can drive dialogs as tool calls.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ketram/parley/pkg/domain"
	"github.com/ketram/parley/pkg/ports"
)

// TurnResult is the structured output of the send_message tool.
type TurnResult struct {
	ContextID string `json:"context_id" jsonschema_description:"ID of the dialog context; pass it back to continue the dialog"`
	Response  string `json:"response" jsonschema_description:"The agent's reply"`
	Label     string `json:"label" jsonschema_description:"The dialog node the conversation landed on"`
	Turn      int    `json:"turn" jsonschema_description:"Number of turns taken so far"`
}

// Server wraps a turn handler and exposes it as an MCP server.
type Server struct {
	handler   ports.TurnHandler
	history   func(ctx context.Context, id string) (*domain.Context, error)
	mcpServer *server.MCPServer
}

// NewServer creates an MCP server over a turn handler. When store is
// non-nil, a get_history tool is registered as well.
func NewServer(handler ports.TurnHandler, store ports.ContextStore, version string) *Server {
	s := &Server{
		handler:   handler,
		mcpServer: server.NewMCPServer("parley-mcp", version),
	}
	if store != nil {
		s.history = store.Load
	}
	s.registerTools()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	sendTool := mcp.NewTool("send_message",
		mcp.WithDescription("Send a user message to the conversational agent and get its reply. Omit context_id to start a new dialog."),
		mcp.WithString("text", mcp.Required(), mcp.Description("The user message")),
		mcp.WithString("context_id", mcp.Description("Dialog context ID from a previous turn (optional)")),
		mcp.WithString("misc", mcp.Description("JSON object merged into the context's misc data (optional)")),
		mcp.WithOutputSchema[TurnResult](),
	)
	s.mcpServer.AddTool(sendTool, mcp.NewStructuredToolHandler(s.handleSendMessage))

	if s.history == nil {
		return
	}
	s.mcpServer.AddTool(mcp.NewTool("get_history",
		mcp.WithDescription("Get the full request/response history of a dialog context."),
		mcp.WithString("context_id", mcp.Required(), mcp.Description("Dialog context ID")),
	), s.handleGetHistory)
}

func (s *Server) handleSendMessage(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (TurnResult, error) {
	text, _ := args["text"].(string)
	if text == "" {
		return TurnResult{}, fmt.Errorf("argument 'text' is required")
	}
	ctxID, _ := args["context_id"].(string)

	var misc map[string]any
	if miscStr, ok := args["misc"].(string); ok && miscStr != "" {
		if err := json.Unmarshal([]byte(miscStr), &misc); err != nil {
			return TurnResult{}, fmt.Errorf("argument 'misc' is not a JSON object: %w", err)
		}
	}

	dc, err := s.handler(ctx, domain.NewMessage(text), ctxID, misc)
	if err != nil {
		return TurnResult{}, fmt.Errorf("turn failed: %w", err)
	}

	resp, _ := dc.LastResponse()
	return TurnResult{
		ContextID: dc.ID,
		Response:  resp.Text,
		Label:     dc.LastLabel(),
		Turn:      dc.TurnCount(),
	}, nil
}

func (s *Server) handleGetHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctxID := request.GetString("context_id", "")
	if ctxID == "" {
		return mcp.NewToolResultError("argument 'context_id' is required"), nil
	}

	dc, err := s.history(ctx, ctxID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load context: %v", err)), nil
	}

	raw, err := json.Marshal(dc)
	if err != nil {
		return nil, fmt.Errorf("marshal context: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
