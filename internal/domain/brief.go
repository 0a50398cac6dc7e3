package domain

import (
	"fmt"
	"strings"
)

// Brief defaults.
const (
	DefaultAudience  = "General Public"
	DefaultTone      = "Neutral"
	DefaultWordCount = 800
)

// Audiences are the reader groups a brief can target.
var Audiences = []string{
	"General Public",
	"Business / Execs",
	"Tech / Developers",
	"Policy Makers",
}

// Tones are the voices a brief can request.
var Tones = []string{
	"Neutral",
	"Investigative",
	"Opinionated",
	"Witty/Casual",
}

// Length is a named target word count.
type Length struct {
	Label string
	Words int
}

// Lengths are the word counts offered by the brief form.
var Lengths = []Length{
	{Label: "Short", Words: 600},
	{Label: "Standard", Words: 800},
	{Label: "Longform", Words: 1200},
}

// String renders the option the way the form shows it, e.g. "Standard (800)".
func (l Length) String() string {
	return fmt.Sprintf("%s (%d)", l.Label, l.Words)
}

// Brief describes the article a writer wants generated. WordCount travels
// as a JSON string because the generation API declares it as text.
type Brief struct {
	Topic     string `json:"topic"`
	Angle     string `json:"angle"`
	Audience  string `json:"audience"`
	Tone      string `json:"tone"`
	WordCount int    `json:"word_count,string"`
}

// NewBrief returns a brief populated with the form defaults.
func NewBrief() Brief {
	return Brief{
		Audience:  DefaultAudience,
		Tone:      DefaultTone,
		WordCount: DefaultWordCount,
	}
}

// HasTopic reports whether the brief names something to write about.
func (b Brief) HasTopic() bool {
	return strings.TrimSpace(b.Topic) != ""
}

// Normalized trims the free-text fields and restores defaults for blanks.
func (b Brief) Normalized() Brief {
	b.Topic = strings.TrimSpace(b.Topic)
	b.Angle = strings.TrimSpace(b.Angle)
	b.Audience = strings.TrimSpace(b.Audience)
	b.Tone = strings.TrimSpace(b.Tone)
	if b.Audience == "" {
		b.Audience = DefaultAudience
	}
	if b.Tone == "" {
		b.Tone = DefaultTone
	}
	if b.WordCount <= 0 {
		b.WordCount = DefaultWordCount
	}
	return b
}

// Draft is what the generation backend returns for a brief.
type Draft struct {
	Article string   `json:"article"`
	Sources []Source `json:"sources,omitempty"`
}

// ArticleFrom builds the new, unsaved article a draft represents.
func (d Draft) ArticleFrom(b Brief) Article {
	sources := d.Sources
	if sources == nil {
		sources = []Source{}
	}
	return Article{
		Title:   b.Topic,
		Content: d.Article,
		Status:  StatusDraft,
		Angle:   b.Angle,
		Sources: sources,
	}
}
