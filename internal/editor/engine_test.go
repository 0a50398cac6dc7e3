package editor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseBlocks(t *testing.T) {
	content := `
<h2>Rates hold</h2>
<p>The <strong>central bank</strong> kept rates
   at <em>4%</em>, citing <a href="https://fed.example">data</a>.</p>
<ul><li><p>one</p></li><li>two</li></ul>
<ol><li>first</li></ol>
<blockquote><p>We are patient.</p></blockquote>
<p><img src="https://img.example/a.png" alt="chart"></p>
<h5>Footnote</h5>`

	blocks, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Block{
		{Kind: Heading2, Runs: []Run{{Text: "Rates hold"}}},
		{Kind: Paragraph, Runs: []Run{
			{Text: "The "},
			{Text: "central bank", Bold: true},
			{Text: " kept rates at "},
			{Text: "4%", Italic: true},
			{Text: ", citing "},
			{Text: "data", Href: "https://fed.example"},
			{Text: "."},
		}},
		{Kind: BulletItem, Runs: []Run{{Text: "one"}}},
		{Kind: BulletItem, Runs: []Run{{Text: "two"}}},
		{Kind: OrderedItem, Runs: []Run{{Text: "first"}}},
		{Kind: Quote, Runs: []Run{{Text: "We are patient."}}},
		{Kind: Image, Src: "https://img.example/a.png", Alt: "chart"},
		{Kind: Heading3, Runs: []Run{{Text: "Footnote"}}},
	}
	if diff := cmp.Diff(want, blocks); diff != "" {
		t.Fatalf("blocks mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderGroupsListsAndQuotes(t *testing.T) {
	blocks := []Block{
		{Kind: BulletItem, Runs: []Run{{Text: "a"}}},
		{Kind: BulletItem, Runs: []Run{{Text: "b", Bold: true}}},
		{Kind: OrderedItem, Runs: []Run{{Text: "c"}}},
		{Kind: Quote, Runs: []Run{{Text: "q1"}}},
		{Kind: Quote, Runs: []Run{{Text: "q2"}}},
		{Kind: Paragraph, Runs: []Run{{Text: "x < y & \"z\""}}},
	}
	got := Render(blocks)
	want := `<ul><li><p>a</p></li><li><p><strong>b</strong></p></li></ul>` +
		`<ol><li><p>c</p></li></ol>` +
		`<blockquote><p>q1</p><p>q2</p></blockquote>` +
		`<p>x &lt; y &amp; &#34;z&#34;</p>`
	if got != want {
		t.Fatalf("Render =\n%s\nwant\n%s", got, want)
	}
}

func TestRenderParseIsStable(t *testing.T) {
	inputs := []string{
		"",
		"<p></p>",
		"plain words",
		"<p>a <strong>b <em>c</em></strong> d</p><h1>Top</h1>",
		"<blockquote><p>one</p></blockquote><blockquote><p>two</p></blockquote>",
		`<p>caption<img src="x.png"></p><ul><li></li></ul>`,
	}
	for _, in := range inputs {
		first, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", in, err)
		}
		second, err := Parse(Render(first))
		if err != nil {
			t.Fatalf("re-parse: %v", err)
		}
		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatalf("round trip of %q changed (-first +second):\n%s", in, diff)
		}
	}
}

func TestReconcileOverwritesOnlyOnDifference(t *testing.T) {
	e := New("<p>old</p>")
	notified := 0
	e.OnChange(func(string) { notified++ })

	if !e.Reconcile("<p>new</p>") {
		t.Fatalf("differing content must overwrite")
	}
	if got := e.HTML(); got != "<p>new</p>" {
		t.Fatalf("HTML = %q", got)
	}
	if e.Reconcile("<p>new</p>") {
		t.Fatalf("equal content must be a no-op")
	}
	if e.Reconcile(e.HTML()) {
		t.Fatalf("feeding back own output must be a no-op")
	}
	if e.Reconcile("<p>new</p>\n") {
		t.Fatalf("whitespace-only differences must be a no-op")
	}
	if notified != 0 {
		t.Fatalf("reconcile must not notify, got %d", notified)
	}
}

func TestReconcileClampsFocus(t *testing.T) {
	e := New("<p>a</p><p>b</p><p>c</p>")
	e.SetFocus(2)
	e.Reconcile("<p>only</p>")
	if e.Focus() != 0 {
		t.Fatalf("focus = %d, want 0", e.Focus())
	}
}

func TestResetDropsHistoryAndFocus(t *testing.T) {
	e := New("<p>a</p><p>b</p>")
	notified := 0
	e.OnChange(func(string) { notified++ })
	e.SetFocus(1)
	e.Exec(Bold)
	e.Exec(Bold)
	if !e.CanUndo() {
		t.Fatalf("toggles should be undoable")
	}
	notified = 0

	e.Reset("<p>a</p><p>b</p>")
	if e.CanUndo() || e.CanRedo() {
		t.Fatalf("reset must drop history even for equal content")
	}
	if e.Focus() != 0 {
		t.Fatalf("focus = %d, want 0", e.Focus())
	}
	if e.Exec(Undo) {
		t.Fatalf("undo after reset must be a no-op")
	}
	if got := e.HTML(); got != "<p>a</p><p>b</p>" {
		t.Fatalf("HTML = %q", got)
	}
	if notified != 0 {
		t.Fatalf("reset must not notify, got %d", notified)
	}
}

func TestToggleCommandsAndActiveState(t *testing.T) {
	e := New("<p>hello</p>")
	var last string
	e.OnChange(func(html string) { last = html })

	if e.IsActive(Bold) {
		t.Fatalf("bold should start inactive")
	}
	e.Exec(Bold)
	if !e.IsActive(Bold) || last != "<p><strong>hello</strong></p>" {
		t.Fatalf("bold toggle failed: active=%v html=%q", e.IsActive(Bold), last)
	}
	e.Exec(Bold)
	if e.IsActive(Bold) || last != "<p>hello</p>" {
		t.Fatalf("bold untoggle failed: %q", last)
	}

	e.Exec(H2)
	if !e.IsActive(H2) || last != "<h2>hello</h2>" {
		t.Fatalf("h2 toggle failed: %q", last)
	}
	e.Exec(H3)
	if e.IsActive(H2) || !e.IsActive(H3) {
		t.Fatalf("h3 should replace h2")
	}
	e.Exec(H3)
	if e.Focused().Kind != Paragraph {
		t.Fatalf("toggling the active heading returns to paragraph")
	}

	e.Exec(BulletList)
	if last != "<ul><li><p>hello</p></li></ul>" {
		t.Fatalf("bullet list: %q", last)
	}
	e.Exec(OrderedList)
	if !e.IsActive(OrderedList) || e.IsActive(BulletList) {
		t.Fatalf("ordered list should replace bullet list")
	}
	e.Exec(Blockquote)
	if last != "<blockquote><p>hello</p></blockquote>" {
		t.Fatalf("blockquote: %q", last)
	}
}

func TestMarksDisabledOnEmptyAndImageBlocks(t *testing.T) {
	e := New("")
	if e.Enabled(Bold) || e.Exec(Bold) {
		t.Fatalf("bold must be disabled on an empty block")
	}
	if err := e.InsertImageURL("https://img.example/p.jpg"); err != nil {
		t.Fatalf("InsertImageURL: %v", err)
	}
	if !e.IsActive(InsertImage) || e.Enabled(H2) || e.Enabled(Italic) {
		t.Fatalf("image block should only report image active")
	}
	if e.SetText("nope") {
		t.Fatalf("image blocks hold no text")
	}
	if err := e.InsertImageURL("   "); err != ErrEmptyImageURL {
		t.Fatalf("blank url error = %v", err)
	}
}

func TestInsertImagePlacesBlockAfterFocus(t *testing.T) {
	e := New("<p>a</p><p>b</p>")
	if err := e.InsertImageURL(" https://img.example/p.jpg "); err != nil {
		t.Fatalf("InsertImageURL: %v", err)
	}
	want := `<p>a</p><img src="https://img.example/p.jpg"><p>b</p>`
	if got := e.HTML(); got != want {
		t.Fatalf("HTML = %q, want %q", got, want)
	}
	if e.Focus() != 1 {
		t.Fatalf("focus = %d, want 1", e.Focus())
	}
}

func TestUndoRedo(t *testing.T) {
	e := New("<p>draft</p>")
	if e.CanUndo() || e.CanRedo() || e.Enabled(Undo) {
		t.Fatalf("fresh engine has no history")
	}
	e.SetText("draft two")
	e.Exec(Italic)
	if got := e.HTML(); got != "<p><em>draft two</em></p>" {
		t.Fatalf("HTML = %q", got)
	}

	e.Exec(Undo)
	if got := e.HTML(); got != "<p>draft two</p>" {
		t.Fatalf("after undo HTML = %q", got)
	}
	e.Exec(Undo)
	if got := e.HTML(); got != "<p>draft</p>" || e.CanUndo() {
		t.Fatalf("after second undo HTML = %q", got)
	}
	if !e.CanRedo() {
		t.Fatalf("redo should be available")
	}
	e.Exec(Redo)
	if got := e.HTML(); got != "<p>draft two</p>" {
		t.Fatalf("after redo HTML = %q", got)
	}

	e.SetText("fork")
	if e.CanRedo() {
		t.Fatalf("a new edit clears redo")
	}
}

func TestSetTextKeepsWholeBlockMarks(t *testing.T) {
	e := New("<h2><strong>Old</strong></h2>")
	if !e.SetText("  New\nheadline ") {
		t.Fatalf("SetText reported no change")
	}
	if got := e.HTML(); got != "<h2><strong>New headline</strong></h2>" {
		t.Fatalf("HTML = %q", got)
	}
	if e.SetText("New headline") {
		t.Fatalf("identical text is not an edit")
	}
}

func TestInsertAndDeleteBlocks(t *testing.T) {
	e := New("<ul><li>a</li></ul>")
	e.InsertBlock()
	if e.Focus() != 1 || e.Focused().Kind != BulletItem {
		t.Fatalf("new block should continue the list")
	}
	e.SetText("b")
	if got := e.HTML(); got != "<ul><li><p>a</p></li><li><p>b</p></li></ul>" {
		t.Fatalf("HTML = %q", got)
	}
	e.DeleteBlock()
	e.DeleteBlock()
	if got := e.HTML(); got != "<p></p>" {
		t.Fatalf("document should keep one empty paragraph, got %q", got)
	}
}

func TestToolbarLabels(t *testing.T) {
	seen := map[string]bool{}
	for _, cmd := range Toolbar {
		label := cmd.Label()
		if label == "?" || seen[label] {
			t.Fatalf("bad or duplicate label %q", label)
		}
		seen[label] = true
	}
	if len(Toolbar) != 10 {
		t.Fatalf("toolbar has %d commands, want 10", len(Toolbar))
	}
}
