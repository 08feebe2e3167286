package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/podforge/podforge/podcast"
)

const (
	// maxContentLength bounds the source material sent to the script service
	maxContentLength = 40000
	truncationMarker = "\n\n[content truncated]"
)

// GenerateScript asks the chat API for a complete podcast script built from
// the request's source content and options. Any unparsable response is fatal.
func (c *Client) GenerateScript(ctx context.Context, req podcast.ScriptRequest) (podcast.Script, error) {
	content := req.Content
	if len(content) > maxContentLength {
		content = content[:maxContentLength] + truncationMarker
	}

	responseContent, err := c.callChat(ctx, scriptSystemPrompt(req.Kind, req.Options), content)
	if err != nil {
		return podcast.Script{}, fmt.Errorf("failed to generate script: %w", err)
	}

	script, err := extractScript(responseContent)
	if err != nil {
		return podcast.Script{}, fmt.Errorf("failed to parse script: %w", err)
	}
	return script, nil
}

// scriptSystemPrompt assembles the system prompt from the request kind and the
// per-generation options.
func scriptSystemPrompt(kind podcast.RequestKind, opts podcast.GenerationOptions) string {
	length := valueOr(opts.Length, "medium")
	expertise := valueOr(opts.Expertise, "intermediate")
	format := valueOr(opts.Format, "interview")
	tone := valueOr(opts.Tone, "casual")
	language := valueOr(opts.Language, "English")

	var b strings.Builder
	b.WriteString("You are producing a two-speaker podcast script from the provided source material.\n\n")
	fmt.Fprintf(&b, "Length: %s. Audience expertise: %s. Format: %s. Tone: %s. Output language: %s.\n\n",
		length, expertise, format, tone, language)

	if kind == podcast.KindNews {
		b.WriteString("The source material is a news digest with multiple articles. " +
			"Pick the genuinely newsworthy items, skip advertisements, boilerplate, and near-duplicate stories, " +
			"and weave the survivors into one coherent conversation.\n\n")
	}

	b.WriteString(`Respond with a single JSON object, no surrounding prose:
{
  "title": "episode title",
  "topic": "short subject phrase",
  "summary": "one-paragraph summary",
  "digest": "long-form markdown summary of the material",
  "lines": [{"speaker": "host", "text": "..."}, {"speaker": "expert", "text": "..."}]
}
The only valid speaker values are "host" and "expert". Alternate speakers naturally.`)
	return b.String()
}

// extractScript extracts and parses the script JSON from the chat response,
// tolerating code fences and surrounding prose.
func extractScript(content string) (podcast.Script, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	content = strings.TrimSpace(content)

	var script podcast.Script
	err := json.Unmarshal([]byte(content), &script)
	if err != nil {
		// the model may wrap the JSON in text, try the outermost object
		startIdx := strings.Index(content, "{")
		endIdx := strings.LastIndex(content, "}")
		if startIdx >= 0 && endIdx > startIdx {
			err = json.Unmarshal([]byte(content[startIdx:endIdx+1]), &script)
		}
		if err != nil {
			return podcast.Script{}, fmt.Errorf("failed to parse response as JSON: %w", err)
		}
	}

	if len(script.Lines) == 0 {
		return podcast.Script{}, fmt.Errorf("script has no dialogue lines")
	}
	for i := range script.Lines {
		if script.Lines[i].Speaker != podcast.SpeakerExpert {
			script.Lines[i].Speaker = podcast.SpeakerHost
		}
	}
	return script, nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
