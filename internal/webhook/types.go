package webhook

import (
	"encoding/json"

	"github.com/fieldops/toolgate/internal/schema"
	"github.com/fieldops/toolgate/internal/tool"
)

// Envelope is the signed request body sent by the orchestration platform.
// Params stays raw until the tool's schema has accepted it.
type Envelope struct {
	Tool      string          `json:"tool"`
	Params    json.RawMessage `json:"params"`
	Context   EnvelopeContext `json:"context"`
	AgentID   string          `json:"agentId"`
	RequestID string          `json:"requestId"`
	Timestamp int64           `json:"timestamp"`
}

// EnvelopeContext is the caller-supplied portion of the execution context.
// The resolved environment and logger are never on the wire.
type EnvelopeContext struct {
	Message tool.Message `json:"message"`
	Agent   tool.Agent   `json:"agent"`
}

// ResultResponse is the body for a completed execution, success or failure.
type ResultResponse struct {
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ErrorResponse is the body for every pre-execution failure. Details is only
// populated on parameter validation failures.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Details []schema.Issue `json:"details,omitempty"`
}

// ToolInfo is one entry in the operator tool listing.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
	Env         []string        `json:"env,omitempty"`
}

// DefaultMaxBodySize bounds request bodies read before verification.
const DefaultMaxBodySize = 1048576 // 1 MB
