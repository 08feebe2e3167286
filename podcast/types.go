// Package podcast holds the domain types shared by the generation pipeline,
// the topic registry, and the episode library.
package podcast

import "time"

// Speaker identifies one of the two fixed voices a script line is read by.
type Speaker string

// The two speaker roles every generated script is limited to.
const (
	SpeakerHost   Speaker = "host"
	SpeakerExpert Speaker = "expert"
)

// ScriptLine is a single utterance in a generated script.
type ScriptLine struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Script is a complete generated podcast script. Digest carries the
// marked-up long-form summary that accompanies the dialogue.
type Script struct {
	Title   string       `json:"title"`
	Topic   string       `json:"topic"`
	Summary string       `json:"summary"`
	Digest  string       `json:"digest"`
	Lines   []ScriptLine `json:"lines"`
}

// RequestKind distinguishes plain source content from a pre-assembled news
// context that carries filtering instructions for the script service.
type RequestKind string

// Supported script request kinds.
const (
	KindStandard RequestKind = "standard"
	KindNews     RequestKind = "news"
)

// GenerationOptions are the knobs the user can set per generation. Each field
// independently affects how the script is produced; empty values fall back to
// service defaults.
type GenerationOptions struct {
	Length    string // short, medium, long
	Expertise string // beginner, intermediate, expert
	Format    string // interview, debate, narrative
	Tone      string // casual, professional, humorous
	Language  string // output language, e.g. "English"
}

// ScriptRequest is what the script generation service consumes.
type ScriptRequest struct {
	Content string
	Kind    RequestKind
	Options GenerationOptions
}

// AudioSegment is an opaque handle to the playable audio produced for one
// script chunk. Index is the chunk index the segment was synthesized for;
// skipped chunks leave gaps in the index sequence, never placeholders.
type AudioSegment struct {
	Index int    `json:"index"`
	URL   string `json:"url"`
}

// Episode is a persisted, completed generation result. Episodes are immutable
// once created and owned exclusively by the library.
type Episode struct {
	ID            string         `json:"id"`
	Script        Script         `json:"script"`
	AudioSegments []AudioSegment `json:"audioSegments"`
	CreatedAt     time.Time      `json:"createdAt"`
	Category      string         `json:"category"`
	CoverImage    string         `json:"coverImage,omitempty"`
}

// Topic is a selectable subject for news-based generation. Built-in topics
// live for the process lifetime; custom topics are created with IsLoading set
// and enriched in the background.
type Topic struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	RSSURLs     []string `json:"rssUrls"`
	IsCustom    bool     `json:"isCustom"`
	IsLoading   bool     `json:"isLoading"`
	Color       string   `json:"color"`
	CustomImage string   `json:"customImage,omitempty"`
}

// SessionStatus is the lifecycle state of a generation session.
type SessionStatus string

// Session statuses, in rough lifecycle order.
const (
	StatusIdle         SessionStatus = "idle"
	StatusScripting    SessionStatus = "scripting"
	StatusSynthesizing SessionStatus = "synthesizing"
	StatusComplete     SessionStatus = "complete"
	StatusError        SessionStatus = "error"
)

// CustomContentCategory is the grouping label assigned to generations from
// pasted text or uploaded documents rather than a named topic.
const CustomContentCategory = "Custom Content"
