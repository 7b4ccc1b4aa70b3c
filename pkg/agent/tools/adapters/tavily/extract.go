package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ExtractResult is the content pulled from one page.
type ExtractResult struct {
	URL     string
	Title   string
	Content string
}

// Extract pulls the raw content of one page.
func (c *Client) Extract(ctx context.Context, targetURL string) (*ExtractResult, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("tavily api key is not configured")
	}
	targetURL = strings.TrimSpace(targetURL)
	if targetURL == "" {
		return nil, fmt.Errorf("url is required")
	}

	body, err := json.Marshal(map[string]any{
		"urls":          []string{targetURL},
		"extract_depth": "basic",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return nil, fmt.Errorf("tavily error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var decoded struct {
		Results []struct {
			URL        string `json:"url"`
			Title      string `json:"title,omitempty"`
			RawContent string `json:"raw_content"`
		} `json:"results"`
		FailedResults []struct {
			URL   string `json:"url"`
			Error string `json:"error"`
		} `json:"failed_results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(decoded.Results) == 0 {
		if len(decoded.FailedResults) > 0 {
			msg := strings.TrimSpace(decoded.FailedResults[0].Error)
			if msg == "" {
				msg = "extract failed"
			}
			return nil, fmt.Errorf("tavily: %s", msg)
		}
		return nil, fmt.Errorf("tavily: no extract result returned")
	}

	first := decoded.Results[0]
	return &ExtractResult{
		URL:     strings.TrimSpace(first.URL),
		Title:   strings.TrimSpace(first.Title),
		Content: first.RawContent,
	}, nil
}
