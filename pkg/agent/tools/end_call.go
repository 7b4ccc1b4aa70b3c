package tools

import (
	"context"
	"log/slog"

	"github.com/vocalize-ai/vocalize-agent/pkg/core/llm"
)

// EndCallExecutor hangs up the call after the user explicitly says goodbye.
// The confirm flag defaults to false so a stray invocation does nothing.
type EndCallExecutor struct {
	hangup func(ctx context.Context) error
	logger *slog.Logger
}

func NewEndCall(hangup func(ctx context.Context) error, logger *slog.Logger) *EndCallExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &EndCallExecutor{hangup: hangup, logger: logger}
}

func (e *EndCallExecutor) Name() string {
	return ToolEndCall
}

func (e *EndCallExecutor) Definition() llm.ToolDef {
	return llm.ToolDef{
		Name: ToolEndCall,
		Description: "ONLY use this to end the call when the user EXPLICITLY says goodbye, " +
			"\"hang up\", \"end the call\", or \"disconnect\". Never call it during normal " +
			"conversation, during silence, or when unsure what the user wants.",
		Parameters: objectSchema(map[string]any{
			"confirm": boolParam("MUST be true to actually end the call. Default is false for safety."),
		}),
	}
}

func (e *EndCallExecutor) Execute(ctx context.Context, input map[string]any) string {
	if !boolInput(input, "confirm", false) {
		e.logger.Info("end_call invoked without confirm, ignoring")
		return "Okay, we'll keep talking."
	}
	e.logger.Info("user said goodbye, ending call")
	if err := e.hangup(ctx); err != nil {
		e.logger.Error("hangup failed", "error", err)
		return "I couldn't end the call, but you can hang up on your side."
	}
	return "Goodbye!"
}
