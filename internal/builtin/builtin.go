// Package builtin provides the tools that ship with the gateway binary.
// They are small by design: echo exercises the full signed round-trip and
// env_report shows which declared variables a deployment actually resolves.
package builtin

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/fieldops/toolgate/internal/schema"
	"github.com/fieldops/toolgate/internal/tool"
)

// Register adds all built-in tools to the registry.
func Register(r *tool.Registry) error {
	for _, t := range []*tool.Tool{Echo(), EnvReport()} {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

var echoSchema = schema.MustCompile(json.RawMessage(`{
	"type": "object",
	"properties": {
		"message": {"type": "string", "description": "text to echo back"},
		"uppercase": {"type": "boolean", "description": "return the message uppercased"}
	},
	"required": ["message"],
	"additionalProperties": false
}`))

// Echo returns a tool that echoes its message parameter, optionally
// uppercased.
func Echo() *tool.Tool {
	return tool.MustDefine(tool.Config{
		Name:        "echo",
		Description: "Echoes the provided message back to the caller. Useful for verifying webhook signing and connectivity end to end.",
		Parameters:  echoSchema,
		Execute: func(ctx context.Context, params map[string]any, tc *tool.Context) (any, error) {
			msg, _ := params["message"].(string)
			if up, _ := params["uppercase"].(bool); up {
				msg = strings.ToUpper(msg)
			}
			tc.Log("echoing " + msg)
			return map[string]any{"echo": msg}, nil
		},
	})
}

var envReportSchema = schema.MustCompile(json.RawMessage(`{
	"type": "object",
	"additionalProperties": false
}`))

// envReportVars are the variables env_report declares. Only their presence
// is reported, never their values.
var envReportVars = []string{"TOOLGATE_DEPLOY_ENV", "TOOLGATE_REGION"}

// EnvReport returns a tool that reports which of its declared environment
// variables are resolved in this deployment.
func EnvReport() *tool.Tool {
	return tool.MustDefine(tool.Config{
		Name:        "env_report",
		Description: "Reports which of the tool's declared environment variables are set in the current deployment, without exposing their values.",
		Parameters:  envReportSchema,
		Env:         envReportVars,
		Execute: func(ctx context.Context, params map[string]any, tc *tool.Context) (any, error) {
			set := make([]string, 0, len(tc.Env))
			for name := range tc.Env {
				set = append(set, name)
			}
			sort.Strings(set)

			missing := make([]string, 0)
			for _, name := range envReportVars {
				if _, ok := tc.Env[name]; !ok {
					missing = append(missing, name)
				}
			}
			return map[string]any{"set": set, "missing": missing}, nil
		},
	})
}
