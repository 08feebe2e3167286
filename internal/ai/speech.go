package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/podforge/podforge/podcast"
)

const (
	// speech synthesis retry policy: up to 3 retries with exponential
	// backoff starting at 1s, doubling each attempt
	maxSpeechRetries     = 3
	speechBackoffInitial = time.Second

	hostVoice   = "onyx"
	expertVoice = "nova"
)

// speechRequest represents the request structure for the speech API
type speechRequest struct {
	Model      string        `json:"model"`
	Messages   []chatMessage `json:"messages"`
	Modalities []string      `json:"modalities"`
	Audio      struct {
		Voice  string `json:"voice"`
		Format string `json:"format"`
	} `json:"audio"`
}

// SynthesizeSpeech generates a two-voice reading of the given script fragment
// and returns raw 24kHz 16-bit mono PCM. Transient failures are retried per
// the backoff policy; exhausting retries fails the call.
func (c *Client) SynthesizeSpeech(ctx context.Context, lines []podcast.ScriptLine) ([]byte, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("no lines to synthesize")
	}

	request := speechRequest{
		Model:      speechModel,
		Modalities: []string{"text", "audio"},
		Messages: []chatMessage{
			{Role: "system", Content: speechSystemPrompt()},
			{Role: "user", Content: formatDialogue(lines)},
		},
	}
	request.Audio.Voice = hostVoice
	request.Audio.Format = "pcm16"

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.speechBackoff
	bo.Multiplier = 2
	bo.RandomizationFactor = 0

	audioData, err := backoff.RetryWithData(func() ([]byte, error) {
		data, callErr := c.callSpeechAPI(ctx, request)
		if callErr != nil {
			c.log.WithError(callErr).Warn("speech synthesis attempt failed")
		}
		return data, callErr
	}, backoff.WithContext(backoff.WithMaxRetries(bo, maxSpeechRetries), ctx))
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	return audioData, nil
}

// callSpeechAPI makes a single request to the speech API
func (c *Client) callSpeechAPI(ctx context.Context, request speechRequest) ([]byte, error) {
	resp, err := c.postJSON(ctx, "/chat/completions", request)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result struct {
		Choices []struct {
			Message struct {
				Audio struct {
					Data string `json:"data"`
				} `json:"audio"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode speech response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("no speech response from API")
	}

	// decode base64 audio data
	audioData, err := base64.StdEncoding.DecodeString(result.Choices[0].Message.Audio.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio data: %w", err)
	}
	return audioData, nil
}

// speechSystemPrompt instructs the model to voice-act both fixed roles.
func speechSystemPrompt() string {
	return fmt.Sprintf("Read the following podcast dialogue aloud, acting both parts. "+
		"Lines marked %q are the curious host (voice %s), lines marked %q are the invited expert (voice %s). "+
		"Keep the delivery natural and conversational, with a clear change of voice between speakers.",
		podcast.SpeakerHost, hostVoice, podcast.SpeakerExpert, expertVoice)
}

// formatDialogue renders lines as "speaker: text" pairs for the speech prompt.
func formatDialogue(lines []podcast.ScriptLine) string {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(string(line.Speaker))
		b.WriteString(": ")
		b.WriteString(line.Text)
		b.WriteString("\n")
	}
	return b.String()
}
