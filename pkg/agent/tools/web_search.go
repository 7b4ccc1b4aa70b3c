package tools

import (
	"context"
	"log/slog"
	"strings"

	"github.com/vocalize-ai/vocalize-agent/pkg/agent/control"
	"github.com/vocalize-ai/vocalize-agent/pkg/agent/tools/adapters/tavily"
	"github.com/vocalize-ai/vocalize-agent/pkg/core/llm"
)

const snippetLimit = 200

// WebSearchExecutor answers real-time questions through Tavily and pushes the
// source references to the client UI over the control channel.
type WebSearchExecutor struct {
	client *tavily.Client
	proto  *control.Protocol
	logger *slog.Logger
}

func NewWebSearch(client *tavily.Client, proto *control.Protocol, logger *slog.Logger) *WebSearchExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSearchExecutor{client: client, proto: proto, logger: logger}
}

func (e *WebSearchExecutor) Name() string {
	return ToolSearchWeb
}

func (e *WebSearchExecutor) Definition() llm.ToolDef {
	return llm.ToolDef{
		Name:        ToolSearchWeb,
		Description: "Search the web for current news, weather, sports scores, stock prices, or any real-time information.",
		Parameters: objectSchema(map[string]any{
			"query": stringParam("What to search for"),
		}, "query"),
	}
}

func (e *WebSearchExecutor) Execute(ctx context.Context, input map[string]any) string {
	if !e.client.Configured() {
		e.logger.Warn("search requested but tavily is not configured")
		return "Web search is not available right now."
	}
	query := stringInput(input, "query")
	if query == "" {
		return "I need something to search for."
	}

	if e.proto != nil {
		e.proto.NotifyToolUse(ctx, ToolSearchWeb)
	}

	resp, err := e.client.Search(ctx, query, control.MaxSearchSources, true)
	if err != nil {
		e.logger.Error("tavily search failed", "query", query, "error", err)
		return "I couldn't complete the search right now."
	}

	if e.proto != nil {
		sources := make([]control.Source, 0, len(resp.Hits))
		for _, hit := range resp.Hits {
			if hit.URL == "" {
				continue
			}
			sources = append(sources, control.Source{URL: hit.URL, Title: hit.Title})
		}
		if len(sources) > 0 {
			e.proto.PublishSearchSources(ctx, sources)
		}
	}

	if resp.Answer != "" {
		return resp.Answer
	}
	if len(resp.Hits) == 0 {
		return "No results found for that query."
	}
	summaries := make([]string, 0, 2)
	for _, hit := range resp.Hits {
		if len(summaries) == 2 {
			break
		}
		snippet := hit.Snippet
		if len(snippet) > snippetLimit {
			snippet = snippet[:snippetLimit]
		}
		if snippet != "" {
			summaries = append(summaries, snippet)
		}
	}
	return strings.Join(summaries, " ")
}
