package tool

import "os"

// Message describes the triggering event. The pipeline passes it through to
// the tool body verbatim; none of these fields influence routing or
// verification.
type Message struct {
	Sender    string `json:"sender,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body,omitempty"`
	ThreadID  string `json:"threadId,omitempty"`
	MessageID string `json:"messageId,omitempty"`
}

// Agent identifies the calling orchestrator's agent persona.
type Agent struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// LogFunc is the per-call logging sink handed to a tool body. Side-effecting,
// no return value; call ordering is preserved by the sink target.
type LogFunc func(msg string)

// Context is the per-invocation bundle handed to a tool's execution
// function. It is built fresh for every call and never shared across
// concurrent calls.
type Context struct {
	Message Message
	Agent   Agent

	// Env maps declared variable names to resolved values. It contains only
	// keys the tool declared and that were set in the environment source —
	// never the full process environment.
	Env map[string]string

	Log LogFunc
}

// EnvSource supplies environment variable lookups. Injecting it keeps the
// pipeline and descriptors away from process-wide state and makes the
// declared-keys-only invariant testable without touching the real
// environment.
type EnvSource interface {
	Lookup(name string) (string, bool)
}

// OSEnv reads from the process environment.
type OSEnv struct{}

// Lookup reports the value of name in the process environment.
func (OSEnv) Lookup(name string) (string, bool) {
	return os.LookupEnv(name)
}

// MapEnv is a fixed in-memory environment, mainly for tests and the mock
// harness.
type MapEnv map[string]string

// Lookup reports the value of name in the map.
func (m MapEnv) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// ResolveEnv looks up each declared name in src, omitting names that are
// unset. The result never widens beyond the declared set.
func ResolveEnv(src EnvSource, declared []string) map[string]string {
	env := make(map[string]string, len(declared))
	for _, name := range declared {
		if v, ok := src.Lookup(name); ok {
			env[name] = v
		}
	}
	return env
}
