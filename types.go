package crane

import (
	"github.com/wagiedev/crane-service-go/internal/codec"
	"github.com/wagiedev/crane-service-go/internal/config"
	"github.com/wagiedev/crane-service-go/internal/protocol"
	"github.com/wagiedev/crane-service-go/internal/service"
)

// ChatRequest asks the worker for one assistant reply.
type ChatRequest = codec.ChatRequest

// ChatMessage is one turn of a conversation.
type ChatMessage = codec.ChatMessage

// ChatResponse is the worker's reply to a chat call.
type ChatResponse = codec.ChatResponse

// Role identifies the author of a chat message.
type Role = codec.Role

// Message roles.
const (
	RoleUser      = codec.RoleUser
	RoleAssistant = codec.RoleAssistant
	RoleSystem    = codec.RoleSystem
)

// Status is a point-in-time view of a Service.
type Status = service.Status

// PendingCall describes one call awaiting its reply.
type PendingCall = protocol.PendingCall

// MatchPolicy selects how worker replies are paired with calls.
type MatchPolicy = config.MatchPolicy

// Reply matching policies.
const (
	// MatchFIFO pairs each reply with the oldest pending call.
	MatchFIFO = config.MatchFIFO
	// MatchByID tags requests with an id and pairs echoed ids.
	MatchByID = config.MatchByID
)

// Timeouts holds per-method call deadlines.
type Timeouts = config.Timeouts

// Layout describes where the worker binary may be found.
type Layout = config.Layout

// Options is the resolved configuration built from Option values.
type Options = config.Options
