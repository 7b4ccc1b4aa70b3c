// Package tools implements the function tools the model can invoke during a
// conversation. Execution results are spoken back to the user, so every
// failure mode returns a sayable string, never an error the session could
// trip on.
package tools

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/vocalize-ai/vocalize-agent/pkg/core/llm"
)

const (
	ToolEndCall           = "end_call"
	ToolSearchWeb         = "search_web"
	ToolReadWebpage       = "read_webpage"
	ToolSendEmail         = "send_email"
	ToolRequestEmailInput = "request_email_input"
	ToolCloseEmailPopup   = "close_email_popup"
)

// Executor is one tool the model can call.
type Executor interface {
	Name() string
	Definition() llm.ToolDef
	// Execute runs the tool and returns the text relayed to the model.
	Execute(ctx context.Context, input map[string]any) string
}

// Registry holds the executors enabled for a session.
type Registry struct {
	byName map[string]Executor
}

func NewRegistry(executors ...Executor) *Registry {
	r := &Registry{byName: make(map[string]Executor, len(executors))}
	for _, ex := range executors {
		if ex == nil {
			continue
		}
		r.byName[ex.Name()] = ex
	}
	return r
}

func (r *Registry) Has(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.byName[strings.TrimSpace(name)]
	return ok
}

func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the tool definitions in stable order for a generation
// request.
func (r *Registry) Definitions() []llm.ToolDef {
	if r == nil {
		return nil
	}
	defs := make([]llm.ToolDef, 0, len(r.byName))
	for _, name := range r.Names() {
		defs = append(defs, r.byName[name].Definition())
	}
	return defs
}

// Execute runs one tool call by name with raw JSON arguments. Unknown tools
// and malformed argument payloads come back as sayable text.
func (r *Registry) Execute(ctx context.Context, name, rawArgs string) string {
	name = strings.TrimSpace(name)
	ex, ok := r.byName[name]
	if !ok {
		return "That capability is not available right now."
	}

	input := map[string]any{}
	rawArgs = strings.TrimSpace(rawArgs)
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &input); err != nil {
			return "I couldn't make sense of that request."
		}
	}
	return ex.Execute(ctx, input)
}

// objectSchema is a shorthand for simple tool parameter schemas.
func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringParam(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func boolParam(description string) map[string]any {
	return map[string]any{"type": "boolean", "description": description}
}

func boolInput(input map[string]any, key string, def bool) bool {
	v, ok := input[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

func stringInput(input map[string]any, key string) string {
	v, _ := input[key].(string)
	return strings.TrimSpace(v)
}
