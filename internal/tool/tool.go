// Package tool defines the immutable descriptor for a callable capability:
// its name, description, parameter schema, declared environment variable
// names, and execution function. Descriptors are validated when defined, so
// an invalid tool never reaches serving.
package tool

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/fieldops/toolgate/internal/schema"
)

// Construction-time validation failures. A descriptor that fails these is
// never created.
var (
	ErrInvalidName        = errors.New("invalid tool name")
	ErrInvalidDescription = errors.New("invalid tool description")
	ErrNilSchema          = errors.New("tool parameters schema is required")
	ErrNilExecute         = errors.New("tool execute function is required")
)

const (
	maxNameLen        = 64
	maxDescriptionLen = 1024
)

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ExecFunc is the tool author's execution function. It only ever receives
// parameters that passed the descriptor's schema, plus the per-call Context.
// It may return an arbitrary error; the webhook pipeline converts it to a
// structured failure response.
type ExecFunc func(ctx context.Context, params map[string]any, tc *Context) (any, error)

// Config is the input to Define.
type Config struct {
	// Name uniquely identifies the tool within a deployment. Lowercase
	// letters, digits and underscores, starting with a letter, at most 64
	// characters.
	Name string

	// Description is shown to the external decision-maker that selects
	// tools. Non-blank, at most 1024 characters.
	Description string

	// Parameters is the compiled JSON Schema the tool's params must satisfy.
	Parameters *schema.Schema

	// Env lists the environment variable names the tool needs resolved into
	// its execution context. Only these, never the full ambient environment.
	Env []string

	// Execute is the tool body.
	Execute ExecFunc
}

// Tool is an immutable descriptor. Construct with Define; the zero value is
// not usable.
type Tool struct {
	name        string
	description string
	parameters  *schema.Schema
	env         []string
	execute     ExecFunc
}

// Define validates cfg and returns an immutable descriptor. All checks run
// here, never at call time.
func Define(cfg Config) (*Tool, error) {
	if len(cfg.Name) > maxNameLen || !namePattern.MatchString(cfg.Name) {
		return nil, fmt.Errorf("%w: %q must match [a-z][a-z0-9_]* and be at most %d characters", ErrInvalidName, cfg.Name, maxNameLen)
	}
	if strings.TrimSpace(cfg.Description) == "" {
		return nil, fmt.Errorf("%w: description is blank", ErrInvalidDescription)
	}
	if len(cfg.Description) > maxDescriptionLen {
		return nil, fmt.Errorf("%w: description exceeds %d characters", ErrInvalidDescription, maxDescriptionLen)
	}
	if cfg.Parameters == nil {
		return nil, ErrNilSchema
	}
	if cfg.Execute == nil {
		return nil, ErrNilExecute
	}

	return &Tool{
		name:        cfg.Name,
		description: cfg.Description,
		parameters:  cfg.Parameters,
		env:         dedupe(cfg.Env),
		execute:     cfg.Execute,
	}, nil
}

// MustDefine is Define for static tool tables; panics on error.
func MustDefine(cfg Config) *Tool {
	t, err := Define(cfg)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the tool's unique name.
func (t *Tool) Name() string { return t.name }

// Description returns the tool's description.
func (t *Tool) Description() string { return t.description }

// Parameters returns the compiled parameter schema.
func (t *Tool) Parameters() *schema.Schema { return t.parameters }

// Env returns a copy of the declared environment variable names, in
// declaration order.
func (t *Tool) Env() []string {
	return append([]string(nil), t.env...)
}

// Run invokes the tool body. params must already have passed the
// descriptor's schema; the webhook pipeline guarantees this.
func (t *Tool) Run(ctx context.Context, params map[string]any, tc *Context) (any, error) {
	return t.execute(ctx, params, tc)
}

// dedupe removes repeated names while preserving first-seen order.
func dedupe(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
