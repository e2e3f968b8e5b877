// Package tools routes model-emitted function calls to their external
// collaborators and shapes the results the model gets back.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// Invoker executes one named tool against its collaborator and returns a
// JSON-serializable result.
type Invoker func(ctx context.Context, args map[string]any) (any, error)

// Router dispatches tool calls by exact name match. Every dispatch
// produces exactly one serialized result: collaborator failures and
// unknown names become an error-shaped payload, never a panic or a
// missing reply.
type Router struct {
	logger   *slog.Logger
	invokers map[string]Invoker
}

func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		logger:   logger,
		invokers: make(map[string]Invoker),
	}
}

// Register binds a tool name to its invoker. Later registrations replace
// earlier ones.
func (r *Router) Register(name string, fn Invoker) {
	name = strings.TrimSpace(name)
	if name == "" || fn == nil {
		return
	}
	r.invokers[name] = fn
}

// Dispatch executes the named tool and returns the serialized result the
// model should receive. The returned string is always valid JSON.
func (r *Router) Dispatch(ctx context.Context, name string, rawArgs json.RawMessage) string {
	name = strings.TrimSpace(name)

	fn, ok := r.invokers[name]
	if !ok {
		r.logger.Warn("unknown tool call", "tool", name)
		return errorOutput(fmt.Sprintf("unknown tool %q", name))
	}

	args, err := parseArguments(rawArgs)
	if err != nil {
		r.logger.Warn("tool arguments failed to parse", "tool", name, "error", err)
		return errorOutput(fmt.Sprintf("invalid arguments: %v", err))
	}

	result, err := fn(ctx, args)
	if err != nil {
		r.logger.Warn("tool call failed", "tool", name, "error", err)
		return errorOutput(err.Error())
	}

	output, err := json.Marshal(result)
	if err != nil {
		r.logger.Error("tool result failed to serialize", "tool", name, "error", err)
		return errorOutput(fmt.Sprintf("serialize result: %v", err))
	}
	return string(output)
}

// parseArguments accepts the tool-argument payload in either of the two
// forms the upstream emits: a JSON object, or a string-encoded JSON
// object.
func parseArguments(raw json.RawMessage) (map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return map[string]any{}, nil
	}

	if trimmed[0] == '"' {
		var encoded string
		if err := json.Unmarshal(trimmed, &encoded); err != nil {
			return nil, fmt.Errorf("decode argument string: %w", err)
		}
		trimmed = bytes.TrimSpace([]byte(encoded))
		if len(trimmed) == 0 {
			return map[string]any{}, nil
		}
	}

	var args map[string]any
	if err := json.Unmarshal(trimmed, &args); err != nil {
		return nil, fmt.Errorf("decode argument object: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func errorOutput(message string) string {
	out, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return `{"error":"internal error"}`
	}
	return string(out)
}

func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("argument %q must be a non-empty string", key)
	}
	return s, nil
}
