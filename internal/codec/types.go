package codec

// Method names understood by the chat-service worker.
const (
	MethodInitialize = "initialize"
	MethodChat       = "chat"
	MethodListModels = "list_models"
)

// Role identifies the author of a chat message.
type Role string

const (
	// RoleUser marks a message written by the user.
	RoleUser Role = "user"
	// RoleAssistant marks a message produced by the model.
	RoleAssistant Role = "assistant"
	// RoleSystem marks a system instruction.
	RoleSystem Role = "system"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Params is the closed set of request variants the worker accepts.
// Implementations: InitializeParams, ChatRequest, ListModelsParams.
type Params interface {
	// Method returns the wire method name for this variant.
	Method() string

	params() // marker method
}

// InitializeParams asks the worker to load the model at ModelPath.
type InitializeParams struct {
	ModelPath string `json:"model_path"` //nolint:tagliatelle // worker uses snake_case
}

// Method implements Params.
func (InitializeParams) Method() string { return MethodInitialize }

func (InitializeParams) params() {}

// ChatRequest asks the worker for one assistant reply to Messages.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"` //nolint:tagliatelle // worker uses snake_case
}

// Method implements Params.
func (ChatRequest) Method() string { return MethodChat }

func (ChatRequest) params() {}

// ListModelsParams asks the worker for the names of the models it knows.
// It always encodes as an empty object.
type ListModelsParams struct{}

// Method implements Params.
func (ListModelsParams) Method() string { return MethodListModels }

func (ListModelsParams) params() {}

// ChatResponse is the result of a chat call.
//
// Wire format:
//
//	{"message": {"role": "assistant", "content": "..."}, "done": true}
type ChatResponse struct {
	Message ChatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// Compile-time verification that all variants implement Params.
var (
	_ Params = InitializeParams{}
	_ Params = ChatRequest{}
	_ Params = ListModelsParams{}
)
