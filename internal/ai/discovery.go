package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// DiscoverFeeds asks the chat API for candidate RSS feed URLs matching a
// topic description. The returned candidates carry no liveness guarantee;
// callers validate them separately.
func (c *Client) DiscoverFeeds(ctx context.Context, description string) ([]string, error) {
	systemPrompt := `Suggest well-known, currently active RSS or Atom feed URLs covering the topic the user describes.
Respond with a JSON array of URL strings only, most relevant first, at most 10 entries.`

	responseContent, err := c.callChat(ctx, systemPrompt, description)
	if err != nil {
		return nil, fmt.Errorf("feed discovery failed: %w", err)
	}

	urls, err := extractURLList(responseContent)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed candidates: %w", err)
	}
	return urls, nil
}

// extractURLList parses a JSON string array, tolerating code fences and
// surrounding prose.
func extractURLList(content string) ([]string, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	content = strings.TrimSpace(content)

	var urls []string
	err := json.Unmarshal([]byte(content), &urls)
	if err != nil {
		startIdx := strings.Index(content, "[")
		endIdx := strings.LastIndex(content, "]")
		if startIdx >= 0 && endIdx > startIdx {
			err = json.Unmarshal([]byte(content[startIdx:endIdx+1]), &urls)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse response as JSON: %w", err)
		}
	}

	// keep only plausible URLs
	filtered := urls[:0]
	for _, u := range urls {
		if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
			filtered = append(filtered, u)
		}
	}
	return filtered, nil
}
