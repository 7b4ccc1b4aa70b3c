package tools

import (
	"context"
	"log/slog"

	"github.com/vocalize-ai/vocalize-agent/pkg/agent/tools/adapters/tavily"
	"github.com/vocalize-ai/vocalize-agent/pkg/core/llm"
)

// contentLimit keeps extracted pages short enough to summarize out loud.
const contentLimit = 2000

// ReadWebpageExecutor extracts content from one URL through Tavily.
type ReadWebpageExecutor struct {
	client *tavily.Client
	logger *slog.Logger
}

func NewReadWebpage(client *tavily.Client, logger *slog.Logger) *ReadWebpageExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReadWebpageExecutor{client: client, logger: logger}
}

func (e *ReadWebpageExecutor) Name() string {
	return ToolReadWebpage
}

func (e *ReadWebpageExecutor) Definition() llm.ToolDef {
	return llm.ToolDef{
		Name:        ToolReadWebpage,
		Description: "Extract and read content from a specific webpage URL. Use this when a user provides a URL and wants you to read or summarize the page content.",
		Parameters: objectSchema(map[string]any{
			"url": stringParam("The URL of the webpage to read"),
		}, "url"),
	}
}

func (e *ReadWebpageExecutor) Execute(ctx context.Context, input map[string]any) string {
	if !e.client.Configured() {
		e.logger.Warn("page read requested but tavily is not configured")
		return "Web page reading is not available right now."
	}
	pageURL := stringInput(input, "url")
	if pageURL == "" {
		return "I need a URL to read."
	}

	result, err := e.client.Extract(ctx, pageURL)
	if err != nil {
		e.logger.Error("tavily extract failed", "url", pageURL, "error", err)
		return "I wasn't able to read that webpage. The URL might be invalid or the page might be blocking access."
	}
	if result.Content == "" {
		return "I couldn't extract any text content from that page."
	}
	content := result.Content
	if len(content) > contentLimit {
		content = content[:contentLimit] + "... The page has more content, but I've summarized the key parts."
	}
	return content
}
