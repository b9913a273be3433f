// Package harness builds synthetic execution contexts and signed requests
// for exercising the verification and invocation pipeline without a live
// network or real process environment.
package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/toolgate/internal/signature"
	"github.com/fieldops/toolgate/internal/tool"
	"github.com/fieldops/toolgate/internal/webhook"
)

// LogCapture accumulates tool log calls in order for assertions.
type LogCapture struct {
	mu      sync.Mutex
	entries []string
}

// Append records one log entry.
func (c *LogCapture) Append(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, msg)
}

// Entries returns a copy of all recorded entries in call order.
func (c *LogCapture) Entries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.entries...)
}

// MockContext is a ready-made execution context whose log sink is captured.
type MockContext struct {
	*tool.Context
	Logs *LogCapture
}

// ContextOption overrides a mock context default.
type ContextOption func(*tool.Context)

// WithMessage overrides the triggering message.
func WithMessage(m tool.Message) ContextOption {
	return func(tc *tool.Context) { tc.Message = m }
}

// WithAgent overrides the agent identity.
func WithAgent(a tool.Agent) ContextOption {
	return func(tc *tool.Context) { tc.Agent = a }
}

// WithEnv overrides the resolved environment.
func WithEnv(env map[string]string) ContextOption {
	return func(tc *tool.Context) { tc.Env = env }
}

// NewMockContext returns an execution context with deterministic defaults
// and a capturing log sink.
func NewMockContext(opts ...ContextOption) *MockContext {
	capture := &LogCapture{}
	tc := &tool.Context{
		Message: tool.Message{
			Sender:    "orchestrator@example.com",
			Recipient: "tools@example.com",
			Subject:   "test invocation",
			Body:      "please run the tool",
			ThreadID:  "thread-0001",
			MessageID: "message-0001",
		},
		Agent: tool.Agent{Name: "Test Agent", Email: "agent@example.com"},
		Env:   map[string]string{},
		Log:   capture.Append,
	}
	for _, opt := range opts {
		opt(tc)
	}
	return &MockContext{Context: tc, Logs: capture}
}

// SignPayload signs body with secret at the current time, exposing the
// production signing algorithm for fixtures.
func SignPayload(body []byte, secret string) signature.Signed {
	return signature.Sign(body, secret, time.Now())
}

// SignedRequest is ready-to-feed request material: the serialized envelope,
// the headers that authenticate it, and the envelope itself for assertions.
type SignedRequest struct {
	Body     []byte
	Headers  map[string]string
	Envelope webhook.Envelope
}

// RequestOption adjusts a signed request before serialization and signing.
type RequestOption func(*requestSpec)

type requestSpec struct {
	envelope webhook.Envelope
	signedAt time.Time
	secret   string
}

// WithContext sets the envelope's caller-supplied context.
func WithContext(ec webhook.EnvelopeContext) RequestOption {
	return func(rs *requestSpec) { rs.envelope.Context = ec }
}

// WithRequestID overrides the generated request id.
func WithRequestID(id string) RequestOption {
	return func(rs *requestSpec) { rs.envelope.RequestID = id }
}

// WithAgentID overrides the generated agent id.
func WithAgentID(id string) RequestOption {
	return func(rs *requestSpec) { rs.envelope.AgentID = id }
}

// SignedAt signs the request as of a specific instant, for replay-window
// tests.
func SignedAt(t time.Time) RequestOption {
	return func(rs *requestSpec) { rs.signedAt = t }
}

// NewSignedRequest assembles a full envelope for toolName, serializes it,
// signs the exact serialized bytes and returns the request material.
func NewSignedRequest(toolName string, params any, secret string, opts ...RequestOption) (*SignedRequest, error) {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}

	rs := &requestSpec{
		envelope: webhook.Envelope{
			Tool:      toolName,
			Params:    rawParams,
			AgentID:   uuid.NewString(),
			RequestID: uuid.NewString(),
		},
		signedAt: time.Now(),
		secret:   secret,
	}
	for _, opt := range opts {
		opt(rs)
	}
	rs.envelope.Timestamp = rs.signedAt.Unix()

	body, err := json.Marshal(rs.envelope)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}

	signed := signature.Sign(body, rs.secret, rs.signedAt)
	return &SignedRequest{
		Body:     body,
		Envelope: rs.envelope,
		Headers: map[string]string{
			signature.SignatureHeader: signed.Signature,
			signature.TimestampHeader: strconv.FormatInt(signed.Timestamp, 10),
		},
	}, nil
}

// HTTPRequest builds an httptest request carrying the signed body and
// headers, targeted at path.
func (sr *SignedRequest) HTTPRequest(path string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(sr.Body))
	for k, v := range sr.Headers {
		req.Header.Set(k, v)
	}
	return req
}
