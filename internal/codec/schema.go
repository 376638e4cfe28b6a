package codec

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/wagiedev/crane-service-go/internal/errors"
)

var (
	resolveOnce sync.Once
	resolved    map[string]*jsonschema.Resolved
	resolveErr  error
)

// InitializeSchema returns the JSON schema for initialize parameters.
func InitializeSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"model_path": {
				Type:        "string",
				Description: "Absolute path of the model checkpoint directory",
				MinLength:   intPtr(1),
			},
		},
		Required: []string{"model_path"},
	}
}

// ChatSchema returns the JSON schema for chat parameters.
func ChatSchema() *jsonschema.Schema {
	message := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"role": {
				Type: "string",
				Enum: []any{string(RoleUser), string(RoleAssistant), string(RoleSystem)},
			},
			"content": {Type: "string"},
		},
		Required: []string{"role", "content"},
	}

	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"model": {
				Type:        "string",
				Description: "Name of the loaded model",
			},
			"messages": {
				Type:        "array",
				Description: "Conversation so far, oldest first",
				Items:       message,
				MinItems:    intPtr(1),
			},
			"temperature": {
				Type:    "number",
				Minimum: float64Ptr(0),
				Maximum: float64Ptr(2),
			},
			"max_tokens": {
				Type:    "integer",
				Minimum: float64Ptr(1),
			},
		},
		Required: []string{"model", "messages"},
	}
}

// ListModelsSchema returns the JSON schema for list_models parameters.
func ListModelsSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: map[string]*jsonschema.Schema{},
	}
}

// SchemaFor returns the parameter schema for a method, or nil for an
// unknown method.
func SchemaFor(method string) *jsonschema.Schema {
	switch method {
	case MethodInitialize:
		return InitializeSchema()
	case MethodChat:
		return ChatSchema()
	case MethodListModels:
		return ListModelsSchema()
	default:
		return nil
	}
}

// Validate checks a request variant against its schema.
//
// Returns a *errors.ValidationError describing the first violation.
func Validate(p Params) error {
	resolveOnce.Do(resolveSchemas)

	if resolveErr != nil {
		return fmt.Errorf("resolve schemas: %w", resolveErr)
	}

	schema, ok := resolved[p.Method()]
	if !ok {
		return &errors.ValidationError{Method: p.Method(), Err: fmt.Errorf("unknown method")}
	}

	// Schemas validate JSON values, so round-trip the struct first.
	data, err := json.Marshal(p)
	if err != nil {
		return &errors.ValidationError{Method: p.Method(), Err: err}
	}

	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return &errors.ValidationError{Method: p.Method(), Err: err}
	}

	if err := schema.Validate(instance); err != nil {
		return &errors.ValidationError{Method: p.Method(), Err: err}
	}

	return nil
}

func resolveSchemas() {
	resolved = make(map[string]*jsonschema.Resolved, 3)

	for _, method := range []string{MethodInitialize, MethodChat, MethodListModels} {
		r, err := SchemaFor(method).Resolve(nil)
		if err != nil {
			resolveErr = fmt.Errorf("%s: %w", method, err)

			return
		}

		resolved[method] = r
	}
}

func intPtr(v int) *int { return &v }

func float64Ptr(v float64) *float64 { return &v }
