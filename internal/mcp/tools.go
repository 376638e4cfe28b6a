package mcp

import (
	"context"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/crane-service-go/internal/codec"
	"github.com/wagiedev/crane-service-go/internal/models"
)

// Tool names.
const (
	ToolInitialize = "initialize"
	ToolChat       = "chat"
	ToolListModels = "list_models"
	ToolScanModels = "scan_models"
)

// Backend is the service surface the tools drive.
type Backend interface {
	Initialize(ctx context.Context, modelPath string) error
	Chat(ctx context.Context, req *codec.ChatRequest) (*codec.ChatResponse, error)
	ListModels(ctx context.Context) ([]string, error)
}

// Catalog lists and resolves model checkpoints on disk.
type Catalog interface {
	List() ([]models.Model, error)
	Resolve(ref string) (string, error)
}

// NewServiceTools creates a tool server exposing backend. When catalog is
// non-nil, initialize accepts model names and ids as well as paths, and
// scan_models is registered.
func NewServiceTools(log *slog.Logger, version string, backend Backend, catalog Catalog) *ToolServer {
	server := NewToolServer(log, "crane", version)
	tools := &serviceTools{backend: backend, catalog: catalog}

	server.AddTool(
		NewTool(ToolInitialize, "Load a model into the inference worker", codec.InitializeSchema()),
		tools.initialize,
	)
	server.AddTool(
		NewTool(ToolChat, "Generate one assistant reply for a conversation", codec.ChatSchema()),
		tools.chat,
	)
	server.AddTool(
		NewTool(ToolListModels, "List the models the inference worker knows", codec.ListModelsSchema()),
		tools.listModels,
	)

	if catalog != nil {
		server.AddTool(
			NewTool(ToolScanModels, "List model checkpoints found on disk", &jsonschema.Schema{
				Type:       "object",
				Properties: map[string]*jsonschema.Schema{},
			}),
			tools.scanModels,
		)
	}

	return server
}

type serviceTools struct {
	backend Backend
	catalog Catalog
}

func (t *serviceTools) initialize(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params codec.InitializeParams
	if err := DecodeArguments(req, &params); err != nil {
		return ErrorResult(err.Error()), nil
	}

	path := params.ModelPath

	if t.catalog != nil && path != "" {
		if resolved, err := t.catalog.Resolve(path); err == nil {
			path = resolved
		}
	}

	if err := t.backend.Initialize(ctx, path); err != nil {
		return ErrorResult(err.Error()), nil
	}

	return JSONResult(map[string]string{"status": "initialized", "model_path": path}), nil
}

func (t *serviceTools) chat(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params codec.ChatRequest
	if err := DecodeArguments(req, &params); err != nil {
		return ErrorResult(err.Error()), nil
	}

	resp, err := t.backend.Chat(ctx, &params)
	if err != nil {
		return ErrorResult(err.Error()), nil
	}

	return JSONResult(resp), nil
}

func (t *serviceTools) listModels(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := t.backend.ListModels(ctx)
	if err != nil {
		return ErrorResult(err.Error()), nil
	}

	return JSONResult(names), nil
}

func (t *serviceTools) scanModels(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	found, err := t.catalog.List()
	if err != nil {
		return ErrorResult(err.Error()), nil
	}

	return JSONResult(found), nil
}
