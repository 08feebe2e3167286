package ai

import (
	"context"
	"encoding/json"
	"fmt"
)

// GenerateImage produces a cover image for the given subject and returns it
// as a data URI. Callers treat failures as non-fatal.
func (c *Client) GenerateImage(ctx context.Context, subject string) (string, error) {
	request := struct {
		Model          string `json:"model"`
		Prompt         string `json:"prompt"`
		N              int    `json:"n"`
		Size           string `json:"size"`
		ResponseFormat string `json:"response_format"`
	}{
		Model:          imageModel,
		Prompt:         fmt.Sprintf("Podcast cover art, bold and minimal, no text, for an episode about: %s", subject),
		N:              1,
		Size:           "1024x1024",
		ResponseFormat: "b64_json",
	}

	resp, err := c.postJSON(ctx, "/images/generations", request)
	if err != nil {
		return "", fmt.Errorf("image request failed: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode image response: %w", err)
	}
	if len(result.Data) == 0 || result.Data[0].B64JSON == "" {
		return "", fmt.Errorf("no image in API response")
	}

	return "data:image/png;base64," + result.Data[0].B64JSON, nil
}
