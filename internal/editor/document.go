// Package editor is the rich-text engine behind the article editor: a flat
// list of blocks with inline marks, parsed from and serialized to HTML.
package editor

import (
	"strings"
	"unicode"
)

// Kind is the block type.
type Kind string

const (
	Paragraph   Kind = "paragraph"
	Heading1    Kind = "heading1"
	Heading2    Kind = "heading2"
	Heading3    Kind = "heading3"
	BulletItem  Kind = "bullet"
	OrderedItem Kind = "ordered"
	Quote       Kind = "quote"
	Image       Kind = "image"
)

// Run is a span of text sharing the same inline marks.
type Run struct {
	Text   string
	Bold   bool
	Italic bool
	Href   string
}

func (r Run) sameMarks(o Run) bool {
	return r.Bold == o.Bold && r.Italic == o.Italic && r.Href == o.Href
}

// Block is one top-level unit of the document. Images carry Src and Alt and
// no runs.
type Block struct {
	Kind Kind
	Runs []Run
	Src  string
	Alt  string
}

// IsText reports whether the block holds editable text.
func (b Block) IsText() bool {
	return b.Kind != Image
}

// Text is the block's plain text.
func (b Block) Text() string {
	var sb strings.Builder
	for _, r := range b.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// allRuns reports whether every run satisfies pred. Empty blocks report false.
func (b Block) allRuns(pred func(Run) bool) bool {
	if len(b.Runs) == 0 {
		return false
	}
	for _, r := range b.Runs {
		if !pred(r) {
			return false
		}
	}
	return true
}

func (b Block) clone() Block {
	out := b
	if b.Runs != nil {
		out.Runs = append([]Run(nil), b.Runs...)
	}
	return out
}

func cloneBlocks(blocks []Block) []Block {
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		out[i] = b.clone()
	}
	return out
}

// normalizeRuns collapses whitespace the way HTML rendering does, trims the
// block edges, drops empty runs and merges neighbours with equal marks. The
// result serializes and re-parses to itself.
func normalizeRuns(runs []Run) []Run {
	out := make([]Run, 0, len(runs))
	prevSpace := true
	for _, r := range runs {
		var sb strings.Builder
		for _, ch := range r.Text {
			if unicode.IsSpace(ch) {
				if prevSpace {
					continue
				}
				sb.WriteByte(' ')
				prevSpace = true
				continue
			}
			sb.WriteRune(ch)
			prevSpace = false
		}
		r.Text = sb.String()
		if r.Text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].sameMarks(r) {
			out[n-1].Text += r.Text
			continue
		}
		out = append(out, r)
	}
	for len(out) > 0 {
		last := &out[len(out)-1]
		last.Text = strings.TrimRightFunc(last.Text, unicode.IsSpace)
		if last.Text != "" {
			break
		}
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
