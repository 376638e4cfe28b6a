package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolServer is a registry of MCP tools.
type ToolServer struct {
	name    string
	version string
	log     *slog.Logger

	mu    sync.RWMutex
	tools map[string]*tool
}

// tool holds tool metadata and handler.
type tool struct {
	tool    *mcp.Tool
	handler mcp.ToolHandler
}

// NewToolServer creates an empty tool registry.
func NewToolServer(log *slog.Logger, name, version string) *ToolServer {
	return &ToolServer{
		name:    name,
		version: version,
		log:     log.With("component", "mcp"),
		tools:   make(map[string]*tool, 4),
	}
}

// AddTool registers a tool, replacing any tool with the same name.
func (s *ToolServer) AddTool(t *mcp.Tool, handler mcp.ToolHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools[t.Name] = &tool{tool: t, handler: handler}
}

// Name returns the server name.
func (s *ToolServer) Name() string {
	return s.name
}

// Version returns the server version.
func (s *ToolServer) Version() string {
	return s.version
}

// Tools returns the registered tools sorted by name.
func (s *ToolServer) Tools() []*mcp.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*mcp.Tool, 0, len(s.tools))
	for _, t := range s.tools {
		out = append(out, t.tool)
	}

	slices.SortFunc(out, func(a, b *mcp.Tool) int {
		return strings.Compare(a.Name, b.Name)
	})

	return out
}

// CallTool executes a tool by name with the given input.
//
// An unknown tool or a handler error yields an error result and a nil error.
func (s *ToolServer) CallTool(ctx context.Context, name string, input map[string]any) (*mcp.CallToolResult, error) {
	s.mu.RLock()
	t, exists := s.tools[name]
	s.mu.RUnlock()

	if !exists {
		return ErrorResult("Tool not found: " + name), nil
	}

	inputBytes, err := json.Marshal(input)
	if err != nil {
		//nolint:nilerr // Intentionally return nil error - error is encoded in the result
		return ErrorResult("Failed to marshal input: " + err.Error()), nil
	}

	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{
			Name:      name,
			Arguments: inputBytes,
		},
	}

	result, err := t.handler(ctx, req)
	if err != nil {
		s.log.Warn("Tool execution failed", "tool", name, "error", err)

		//nolint:nilerr // Intentionally return nil error - error is encoded in the result
		return ErrorResult("Tool execution failed: " + err.Error()), nil
	}

	return result, nil
}

// Run serves the registered tools over transport until ctx is cancelled or
// the client disconnects.
func (s *ToolServer) Run(ctx context.Context, transport mcp.Transport) error {
	server := mcp.NewServer(&mcp.Implementation{Name: s.name, Version: s.version}, nil)

	s.mu.RLock()
	for _, t := range s.tools {
		server.AddTool(t.tool, t.handler)
	}
	s.mu.RUnlock()

	s.log.Info("Serving MCP tools", "name", s.name, "version", s.version, "tools", len(s.tools))

	if err := server.Run(ctx, transport); err != nil {
		return fmt.Errorf("run MCP server: %w", err)
	}

	return nil
}

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// JSONResult creates a CallToolResult holding v as indented JSON text.
func JSONResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ErrorResult("Failed to encode result: " + err.Error())
	}

	return TextResult(string(data))
}

// ErrorResult creates a CallToolResult indicating an error.
func ErrorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: message},
		},
		IsError: true,
	}
}

// NewTool creates an mcp.Tool with the given parameters.
func NewTool(name, description string, inputSchema *jsonschema.Schema) *mcp.Tool {
	return &mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: inputSchema,
	}
}

// DecodeArguments unmarshals CallToolRequest arguments into v. Missing
// arguments leave v untouched.
func DecodeArguments(req *mcp.CallToolRequest, v any) error {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return nil
	}

	if err := json.Unmarshal(req.Params.Arguments, v); err != nil {
		return fmt.Errorf("failed to unmarshal arguments: %w", err)
	}

	return nil
}
