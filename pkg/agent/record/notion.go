package record

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	notionBaseURL    = "https://api.notion.com"
	notionAPIVersion = "2022-06-28"

	// Notion rejects rich text fragments over 2000 characters.
	notionTextLimit = 2000
)

// NotionSink writes each conversation as a page in a Notion database.
type NotionSink struct {
	token      string
	databaseID string
	baseURL    string
	httpClient *http.Client
}

// NewNotionSink creates a sink against the Notion REST API.
func NewNotionSink(token, databaseID string) *NotionSink {
	return NewNotionSinkWithClient(token, databaseID, notionBaseURL, nil)
}

// NewNotionSinkWithClient creates a sink with a custom endpoint and HTTP
// client, used by tests.
func NewNotionSinkWithClient(token, databaseID, baseURL string, client *http.Client) *NotionSink {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = notionBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &NotionSink{
		token:      strings.TrimSpace(token),
		databaseID: strings.TrimSpace(databaseID),
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// Configured reports whether credentials are present.
func (s *NotionSink) Configured() bool {
	return s != nil && s.token != "" && s.databaseID != ""
}

func (s *NotionSink) Name() string {
	return "notion"
}

// Save creates one database page titled after the caller, with session
// details followed by the transcript as paragraph blocks.
func (s *NotionSink) Save(ctx context.Context, conv Conversation) error {
	if !s.Configured() {
		return fmt.Errorf("notion sink is not configured")
	}

	title := strings.TrimSpace(conv.Title)
	if title == "" {
		title = "Unknown Caller"
	}

	blocks := []map[string]any{
		heading("Session Details"),
		bullet("Started: " + conv.StartTime.Format("2006-01-02 15:04:05")),
		bullet("Duration: " + conv.DurationString()),
		bullet("Type: " + conv.CallType),
		{"object": "block", "type": "divider", "divider": map[string]any{}},
		heading("Conversation"),
	}
	for _, entry := range conv.Entries {
		line := fmt.Sprintf("[%s] %s", entry.Speaker, entry.Text)
		if len(line) > notionTextLimit {
			line = line[:notionTextLimit]
		}
		blocks = append(blocks, paragraph(line))
	}

	payload := map[string]any{
		"parent": map[string]any{"database_id": s.databaseID},
		"properties": map[string]any{
			"Name": map[string]any{
				"title": []map[string]any{richText(title)},
			},
			"Date": map[string]any{
				"date": map[string]any{"start": conv.StartTime.Format(time.RFC3339)},
			},
			"Type": map[string]any{
				"select": map[string]any{"name": conv.CallType},
			},
			"Duration": map[string]any{
				"rich_text": []map[string]any{richText(conv.DurationString())},
			},
			"Status": map[string]any{
				"select": map[string]any{"name": "Completed"},
			},
		},
		"children": blocks,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal page: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/pages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Notion-Version", notionAPIVersion)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return fmt.Errorf("notion error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return nil
}

func richText(content string) map[string]any {
	return map[string]any{"type": "text", "text": map[string]any{"content": content}}
}

func heading(text string) map[string]any {
	return map[string]any{
		"object": "block",
		"type":   "heading_2",
		"heading_2": map[string]any{
			"rich_text": []map[string]any{richText(text)},
		},
	}
}

func bullet(text string) map[string]any {
	return map[string]any{
		"object": "block",
		"type":   "bulleted_list_item",
		"bulleted_list_item": map[string]any{
			"rich_text": []map[string]any{richText(text)},
		},
	}
}

func paragraph(text string) map[string]any {
	return map[string]any{
		"object": "block",
		"type":   "paragraph",
		"paragraph": map[string]any{
			"rich_text": []map[string]any{richText(text)},
		},
	}
}
