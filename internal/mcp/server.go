package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"timepoint/backend/internal/services"
	"timepoint/backend/internal/temporal"
)

type Server struct {
	mcpServer *server.MCPServer
	svc       services.TimepointService
}

func NewServer(svc services.TimepointService) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Timepoint",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		svc: svc,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"generate_timepoint",
			mcp.WithDescription("Generate a historical scene from a natural-language query about a moment in time"),
			mcp.WithString("query", mcp.Required(), mcp.Description("The moment to visit, e.g. 'the signing of the Declaration of Independence'")),
		),
		s.handleGenerate,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"navigate_timepoint",
			mcp.WithDescription("Step an existing scene forward or backward in time and generate the linked scene there"),
			mcp.WithString("from_id", mcp.Required(), mcp.Description("The ID of the scene to navigate from")),
			mcp.WithString("unit", mcp.Required(), mcp.Description("Time unit: second, minute, hour, day, week, month, or year")),
			mcp.WithNumber("count", mcp.Required(), mcp.Description("Number of units to step, 1-365")),
			mcp.WithString("direction", mcp.Required(), mcp.Description("forward or backward")),
		),
		s.handleNavigate,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_sequence",
			mcp.WithDescription("Walk the chain of linked scenes from a scene, returning them in chronological order"),
			mcp.WithString("id", mcp.Required(), mcp.Description("The ID of the scene to walk from")),
			mcp.WithString("direction", mcp.Description("forward (default) or backward")),
			mcp.WithNumber("limit", mcp.Description("Maximum hops to walk, default 10")),
		),
		s.handleSequence,
	)
}

func (s *Server) handleGenerate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return mcp.NewToolResultError("Missing required parameter: query"), nil
	}

	scene, _, err := s.svc.Generate(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to generate: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(scene)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleNavigate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	fromID, ok := args["from_id"].(string)
	if !ok || fromID == "" {
		return mcp.NewToolResultError("Missing required parameter: from_id"), nil
	}
	unitStr, ok := args["unit"].(string)
	if !ok || unitStr == "" {
		return mcp.NewToolResultError("Missing required parameter: unit"), nil
	}
	count, ok := args["count"].(float64)
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: count"), nil
	}
	dirStr, ok := args["direction"].(string)
	if !ok || dirStr == "" {
		return mcp.NewToolResultError("Missing required parameter: direction"), nil
	}

	unit, err := temporal.ParseUnit(unitStr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dir, err := temporal.ParseDirection(dirStr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	scene, _, err := s.svc.Navigate(ctx, services.NavigationRequest{
		FromID:    fromID,
		Unit:      unit,
		Count:     int(count),
		Direction: dir,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to navigate: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(scene)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleSequence(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	id, ok := args["id"].(string)
	if !ok || id == "" {
		return mcp.NewToolResultError("Missing required parameter: id"), nil
	}
	dir := temporal.Forward
	if raw, ok := args["direction"].(string); ok && raw != "" {
		parsed, err := temporal.ParseDirection(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		dir = parsed
	}
	limit := 10
	if raw, ok := args["limit"].(float64); ok {
		limit = int(raw)
	}

	seq, err := s.svc.GetSequence(ctx, id, dir, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get sequence: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(seq)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	// SSE server backs both the direct POST endpoint and the event stream.
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
