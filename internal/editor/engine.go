package editor

import (
	"errors"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// Command is a toolbar action.
type Command int

const (
	Bold Command = iota
	Italic
	H2
	H3
	BulletList
	OrderedList
	Blockquote
	InsertImage
	Undo
	Redo
)

// Toolbar lists the commands in display order.
var Toolbar = []Command{Bold, Italic, H2, H3, BulletList, OrderedList, Blockquote, InsertImage, Undo, Redo}

// Label is the short toolbar caption.
func (c Command) Label() string {
	switch c {
	case Bold:
		return "B"
	case Italic:
		return "I"
	case H2:
		return "H2"
	case H3:
		return "H3"
	case BulletList:
		return "• List"
	case OrderedList:
		return "1. List"
	case Blockquote:
		return "❝ Quote"
	case InsertImage:
		return "Image"
	case Undo:
		return "Undo"
	case Redo:
		return "Redo"
	default:
		return "?"
	}
}

const maxHistory = 100

// ErrEmptyImageURL is returned when an image is inserted without a source.
var ErrEmptyImageURL = errors.New("editor: image url is empty")

type snapshot struct {
	blocks []Block
	focus  int
}

// Engine holds the document being edited, the focused block and the undo
// history. It is not safe for concurrent use; the TUI drives it from its
// update loop.
type Engine struct {
	blocks   []Block
	focus    int
	undo     []snapshot
	redo     []snapshot
	onChange func(string)
}

// New returns an engine loaded with content. Markup that fails to parse
// yields an empty document.
func New(content string) *Engine {
	e := &Engine{}
	e.load(content)
	return e
}

// OnChange registers fn to receive the serialized document after every edit.
// Reconcile does not notify.
func (e *Engine) OnChange(fn func(html string)) {
	e.onChange = fn
}

// HTML serializes the current document.
func (e *Engine) HTML() string {
	return Render(e.blocks)
}

// Blocks returns a copy of the document blocks.
func (e *Engine) Blocks() []Block {
	return cloneBlocks(e.blocks)
}

// Focus returns the index of the focused block.
func (e *Engine) Focus() int {
	return e.focus
}

// Focused returns a copy of the focused block.
func (e *Engine) Focused() Block {
	return e.blocks[e.focus].clone()
}

// MoveFocus shifts focus by delta, clamped to the document.
func (e *Engine) MoveFocus(delta int) {
	e.focus = clamp(e.focus+delta, len(e.blocks))
}

// SetFocus focuses block i, clamped to the document.
func (e *Engine) SetFocus(i int) {
	e.focus = clamp(i, len(e.blocks))
}

// Reconcile replaces the document with content when it differs from what the
// engine currently holds, and reports whether it did. Equal content is a
// no-op, so feeding the engine its own output is idempotent. A replacement
// clears history and may move focus.
func (e *Engine) Reconcile(content string) bool {
	blocks, err := Parse(content)
	if err != nil {
		return false
	}
	if cmp.Equal(blocks, e.blocks) {
		return false
	}
	e.blocks = blocks
	e.focus = clamp(e.focus, len(e.blocks))
	e.undo = nil
	e.redo = nil
	return true
}

// Reset loads content as a fresh document: focus returns to the first block
// and history is dropped even when content matches what the engine holds.
// Listeners are not notified.
func (e *Engine) Reset(content string) {
	e.load(content)
	e.undo = nil
	e.redo = nil
}

// IsActive reports whether cmd's formatting applies to the focused block.
func (e *Engine) IsActive(cmd Command) bool {
	b := e.blocks[e.focus]
	switch cmd {
	case Bold:
		return b.allRuns(func(r Run) bool { return r.Bold })
	case Italic:
		return b.allRuns(func(r Run) bool { return r.Italic })
	case H2:
		return b.Kind == Heading2
	case H3:
		return b.Kind == Heading3
	case BulletList:
		return b.Kind == BulletItem
	case OrderedList:
		return b.Kind == OrderedItem
	case Blockquote:
		return b.Kind == Quote
	case InsertImage:
		return b.Kind == Image
	default:
		return false
	}
}

// Enabled reports whether cmd can run in the current state.
func (e *Engine) Enabled(cmd Command) bool {
	b := e.blocks[e.focus]
	switch cmd {
	case Bold, Italic:
		return b.IsText() && len(b.Runs) > 0
	case H2, H3, BulletList, OrderedList, Blockquote:
		return b.IsText()
	case InsertImage:
		return true
	case Undo:
		return e.CanUndo()
	case Redo:
		return e.CanRedo()
	default:
		return false
	}
}

// CanUndo reports whether there is an edit to undo.
func (e *Engine) CanUndo() bool {
	return len(e.undo) > 0
}

// CanRedo reports whether there is an undone edit to reapply.
func (e *Engine) CanRedo() bool {
	return len(e.redo) > 0
}

// Exec runs a toolbar command and reports whether the document changed.
// InsertImage needs a URL and is run through InsertImageURL instead.
func (e *Engine) Exec(cmd Command) bool {
	if !e.Enabled(cmd) {
		return false
	}
	switch cmd {
	case Bold:
		on := !e.IsActive(Bold)
		return e.mutateRuns(func(r *Run) { r.Bold = on })
	case Italic:
		on := !e.IsActive(Italic)
		return e.mutateRuns(func(r *Run) { r.Italic = on })
	case H2:
		return e.toggleKind(Heading2)
	case H3:
		return e.toggleKind(Heading3)
	case BulletList:
		return e.toggleKind(BulletItem)
	case OrderedList:
		return e.toggleKind(OrderedItem)
	case Blockquote:
		return e.toggleKind(Quote)
	case Undo:
		return e.stepHistory(&e.undo, &e.redo)
	case Redo:
		return e.stepHistory(&e.redo, &e.undo)
	default:
		return false
	}
}

// InsertImageURL inserts an image block after the focused block and focuses it.
func (e *Engine) InsertImageURL(url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return ErrEmptyImageURL
	}
	e.record()
	e.insertAfter(Block{Kind: Image, Src: url})
	e.changed()
	return nil
}

// SetText replaces the focused block's text. Inline marks shared by the whole
// block survive; partial marks and links are dropped.
func (e *Engine) SetText(text string) bool {
	b := e.blocks[e.focus]
	if !b.IsText() {
		return false
	}
	mark := Run{
		Bold:   b.allRuns(func(r Run) bool { return r.Bold }),
		Italic: b.allRuns(func(r Run) bool { return r.Italic }),
	}
	mark.Text = text
	runs := normalizeRuns([]Run{mark})
	if cmp.Equal(runs, b.Runs) {
		return false
	}
	e.record()
	e.blocks[e.focus].Runs = runs
	e.changed()
	return true
}

// InsertBlock adds an empty block after the focused one and focuses it. A new
// block continues a list; anything else starts a paragraph.
func (e *Engine) InsertBlock() {
	kind := Paragraph
	if k := e.blocks[e.focus].Kind; k == BulletItem || k == OrderedItem || k == Quote {
		kind = k
	}
	e.record()
	e.insertAfter(Block{Kind: kind})
	e.changed()
}

// DeleteBlock removes the focused block. The document keeps at least one
// empty paragraph.
func (e *Engine) DeleteBlock() {
	e.record()
	e.blocks = append(e.blocks[:e.focus], e.blocks[e.focus+1:]...)
	if len(e.blocks) == 0 {
		e.blocks = []Block{{Kind: Paragraph}}
	}
	e.focus = clamp(e.focus, len(e.blocks))
	e.changed()
}

func (e *Engine) load(content string) {
	blocks, err := Parse(content)
	if err != nil {
		blocks = []Block{{Kind: Paragraph}}
	}
	e.blocks = blocks
	e.focus = 0
}

func (e *Engine) toggleKind(kind Kind) bool {
	e.record()
	b := &e.blocks[e.focus]
	if b.Kind == kind {
		b.Kind = Paragraph
	} else {
		b.Kind = kind
	}
	e.changed()
	return true
}

func (e *Engine) mutateRuns(fn func(*Run)) bool {
	e.record()
	b := &e.blocks[e.focus]
	for i := range b.Runs {
		fn(&b.Runs[i])
	}
	b.Runs = normalizeRuns(b.Runs)
	e.changed()
	return true
}

func (e *Engine) insertAfter(b Block) {
	at := e.focus + 1
	e.blocks = append(e.blocks, Block{})
	copy(e.blocks[at+1:], e.blocks[at:])
	e.blocks[at] = b
	e.focus = at
}

func (e *Engine) record() {
	e.undo = append(e.undo, e.snapshot())
	if len(e.undo) > maxHistory {
		e.undo = e.undo[len(e.undo)-maxHistory:]
	}
	e.redo = nil
}

func (e *Engine) stepHistory(from, to *[]snapshot) bool {
	if len(*from) == 0 {
		return false
	}
	last := (*from)[len(*from)-1]
	*from = (*from)[:len(*from)-1]
	*to = append(*to, e.snapshot())
	e.blocks = last.blocks
	e.focus = clamp(last.focus, len(e.blocks))
	e.changed()
	return true
}

func (e *Engine) snapshot() snapshot {
	return snapshot{blocks: cloneBlocks(e.blocks), focus: e.focus}
}

func (e *Engine) changed() {
	if e.onChange != nil {
		e.onChange(e.HTML())
	}
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}
