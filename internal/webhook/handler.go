package webhook

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fieldops/toolgate/internal/audit"
	"github.com/fieldops/toolgate/internal/signature"
	"github.com/fieldops/toolgate/internal/tool"
)

// Handler serves signed invocations of a single tool. Each request is an
// independent unit of work: the pipeline reads and writes nothing outside
// the call's envelope, context and response, so concurrent requests need no
// coordination. Repeated delivery of the same valid signed request within
// the replay window re-executes the tool; tool bodies must tolerate
// at-least-once delivery.
type Handler struct {
	tool     *tool.Tool
	secret   string
	env      tool.EnvSource
	now      func() time.Time
	logger   *slog.Logger
	recorder audit.Recorder
	maxBody  int64
}

// HandlerOption adjusts optional handler collaborators.
type HandlerOption func(*Handler)

// WithEnvSource overrides the environment accessor (default: process env).
func WithEnvSource(src tool.EnvSource) HandlerOption {
	return func(h *Handler) { h.env = src }
}

// WithClock overrides the verification clock, for tests.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) { h.now = now }
}

// WithRecorder attaches an audit recorder for terminal outcomes.
func WithRecorder(rec audit.Recorder) HandlerOption {
	return func(h *Handler) { h.recorder = rec }
}

// WithMaxBodySize overrides the request body limit.
func WithMaxBodySize(n int64) HandlerOption {
	return func(h *Handler) { h.maxBody = n }
}

// NewHandler builds the invocation pipeline for one tool and its shared
// secret.
func NewHandler(t *tool.Tool, secret string, logger *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		tool:    t,
		secret:  secret,
		env:     tool.OSEnv{},
		now:     time.Now,
		logger:  logger.With(slog.String("tool", t.Name())),
		maxBody: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP runs one call through the pipeline: verify the signature over
// the raw bytes, parse the envelope, validate params against the tool's
// schema, build the execution context, run the tool, map the outcome to a
// response. Every failure branch is terminal and returns a JSON body.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := h.now()

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.respondError(w, r, start, nil, http.StatusMethodNotAllowed, "method not allowed", audit.OutcomeMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, h.maxBody+1))
	if err != nil {
		h.respondError(w, r, start, nil, http.StatusBadRequest, "failed to read request body", audit.OutcomeBadRequest)
		return
	}
	if int64(len(body)) > h.maxBody {
		h.respondError(w, r, start, nil, http.StatusRequestEntityTooLarge, "payload too large", audit.OutcomeBadRequest)
		return
	}

	// Verification runs over the exact received bytes, never a re-serialized
	// form, and always before the body is parsed.
	sigHeader := r.Header.Get(signature.SignatureHeader)
	tsHeader := r.Header.Get(signature.TimestampHeader)
	if verr := signature.Verify(body, sigHeader, tsHeader, h.secret, h.now()); verr != nil {
		h.logger.Warn("webhook verification failed", "kind", verr.Kind.String())
		h.respondError(w, r, start, nil, http.StatusUnauthorized, verr.Error(), audit.OutcomeUnauthorized)
		return
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		h.respondError(w, r, start, nil, http.StatusBadRequest, "Invalid JSON body", audit.OutcomeBadRequest)
		return
	}
	if env.Tool != "" && env.Tool != h.tool.Name() {
		h.respondError(w, r, start, &env, http.StatusBadRequest, "tool name mismatch", audit.OutcomeBadRequest)
		return
	}

	result := h.tool.Parameters().Validate(env.Params)
	if !result.Valid {
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "invalid parameters",
			Details: result.Issues,
		})
		h.record(r, start, &env, http.StatusUnprocessableEntity, audit.OutcomeInvalidParams, "invalid parameters")
		return
	}

	callLogger := h.logger.With(slog.String("request_id", env.RequestID))
	tc := &tool.Context{
		Message: env.Context.Message,
		Agent:   env.Context.Agent,
		Env:     tool.ResolveEnv(h.env, h.tool.Env()),
		Log: func(msg string) {
			callLogger.Info("tool log", "message", msg)
		},
	}

	out, execErr := h.runTool(r, result.Value, tc)
	if execErr != nil {
		// The raw error goes to the operator log; the caller gets only the
		// message, never a stack trace.
		callLogger.Error("tool execution failed", "error", execErr)
		respondJSON(w, http.StatusInternalServerError, ResultResponse{Success: false, Error: execErr.Error()})
		h.record(r, start, &env, http.StatusInternalServerError, audit.OutcomeExecError, execErr.Error())
		return
	}

	respondJSON(w, http.StatusOK, ResultResponse{Success: true, Result: out})
	h.record(r, start, &env, http.StatusOK, audit.OutcomeOK, "")
}

// runTool invokes the tool body, converting a panic into an execution error
// so every failure path still produces a structured response.
func (h *Handler) runTool(r *http.Request, params map[string]any, tc *tool.Context) (out any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tool panicked: %v", rec)
		}
	}()
	return h.tool.Run(r.Context(), params, tc)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, start time.Time, env *Envelope, status int, message, outcome string) {
	respondJSON(w, status, ErrorResponse{Error: message})
	h.record(r, start, env, status, outcome, message)
}

// record persists the terminal outcome when a recorder is attached.
// Recording failures are logged, never surfaced to the caller.
func (h *Handler) record(r *http.Request, start time.Time, env *Envelope, status int, outcome, errMsg string) {
	if h.recorder == nil {
		return
	}
	entry := audit.Entry{
		Tool:       h.tool.Name(),
		Outcome:    outcome,
		Status:     status,
		Error:      errMsg,
		DurationMs: h.now().Sub(start).Milliseconds(),
	}
	if env != nil {
		entry.RequestID = env.RequestID
		entry.AgentID = env.AgentID
	}
	if err := h.recorder.Record(r.Context(), entry); err != nil {
		h.logger.Warn("failed to record invocation", "error", err)
	}
}
