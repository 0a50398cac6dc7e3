package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/newsroom/internal/domain"
	"github.com/kingrea/newsroom/internal/editor"
)

type editorArea int

const (
	areaTitle editorArea = iota
	areaBody
	areaToolbar
	areaStatus
	areaVision
	editorAreaCount
)

// Requests the editor hands to the orchestrator.
type (
	saveRequestedMsg    struct{}
	leaveEditorMsg      struct{}
	analyzeRequestedMsg struct{ url string }
)

// bodyShortcuts binds single keys to toolbar commands while the body is
// focused.
var bodyShortcuts = map[string]editor.Command{
	"b": editor.Bold,
	"i": editor.Italic,
	"2": editor.H2,
	"3": editor.H3,
	"u": editor.BulletList,
	"1": editor.OrderedList,
	"q": editor.Blockquote,
	"z": editor.Undo,
	"y": editor.Redo,
}

// MarkdownRenderer turns markdown into terminal output.
type MarkdownRenderer func(markdown string) (string, error)

// editorView wraps the document engine with a title field, a toolbar, a
// block list and the sidebar cards. The article itself belongs to the
// orchestrator; edits flow back through the callbacks.
type editorView struct {
	engine   *editor.Engine
	title    textinput.Model
	block    textarea.Model
	imageURL textinput.Model
	vision   textinput.Model
	report   viewport.Model

	area       editorArea
	tool       int
	editing    bool
	prompting  bool
	promptErr  string
	article    domain.Article
	role       domain.Role
	saving     bool
	analyzing  bool
	analysis   string
	renderer   MarkdownRenderer
	width      int
	sideWidth  int
	onTitle    func(string)
	onContent  func(string)
	onStatus   func(domain.Status)
	lastRender string
}

func newEditorView(renderer MarkdownRenderer) *editorView {
	title := textinput.New()
	title.Placeholder = "Untitled Draft"
	title.Prompt = ""
	title.CharLimit = 300
	title.Cursor.SetMode(cursor.CursorStatic)

	block := textarea.New()
	block.ShowLineNumbers = false
	block.Prompt = "┃ "
	block.SetHeight(4)
	block.Cursor.SetMode(cursor.CursorStatic)

	imageURL := textinput.New()
	imageURL.Placeholder = "https://..."
	imageURL.Prompt = "Image URL: "
	imageURL.Cursor.SetMode(cursor.CursorStatic)

	vision := textinput.New()
	vision.Placeholder = "https://example.com/photo.jpg"
	vision.Prompt = ""
	vision.Cursor.SetMode(cursor.CursorStatic)

	v := &editorView{
		engine:    editor.New(""),
		title:     title,
		block:     block,
		imageURL:  imageURL,
		vision:    vision,
		report:    viewport.New(30, 8),
		renderer:  renderer,
		role:      domain.DefaultRole,
		width:     80,
		sideWidth: 34,
	}
	v.engine.OnChange(func(html string) {
		v.article.Content = html
		if v.onContent != nil {
			v.onContent(html)
		}
	})
	v.setArea(areaBody)
	return v
}

// Load makes article the one being edited. Reloading the same saved article
// reconciles the document, so content the engine already holds is a no-op.
// Any other article starts from a fresh document with no undo history.
func (v *editorView) Load(article domain.Article) {
	sameArticle := v.article.ID == article.ID && !article.IsNew()
	v.article = article
	if v.title.Value() != article.Title {
		v.title.SetValue(article.Title)
	}
	if sameArticle {
		v.engine.Reconcile(article.Content)
		return
	}
	v.engine.Reset(article.Content)
	v.editing = false
	v.prompting = false
	v.promptErr = ""
}

func (v *editorView) SetRole(role domain.Role) {
	v.role = role.OrDefault()
}

func (v *editorView) SetSaving(saving bool) {
	v.saving = saving
}

// SetAnalyzing marks an analysis in flight. Starting one clears the previous
// report.
func (v *editorView) SetAnalyzing(analyzing bool) {
	v.analyzing = analyzing
	if analyzing {
		v.SetAnalysis("")
	}
}

func (v *editorView) SetAnalysis(markdown string) {
	v.analysis = markdown
	v.lastRender = ""
	if markdown != "" {
		v.lastRender = markdown
		if v.renderer != nil {
			if out, err := v.renderer(markdown); err == nil {
				v.lastRender = strings.TrimSpace(out)
			}
		}
	}
	v.report.SetContent(v.lastRender)
	v.report.GotoTop()
}

func (v *editorView) SetSize(width, height int) {
	v.width = max(40, width)
	v.sideWidth = max(28, v.width/3)
	main := v.mainWidth()
	v.title.Width = main - 4
	v.block.SetWidth(main - 2)
	v.imageURL.Width = main - 16
	v.vision.Width = v.sideWidth - 6
	v.report.Width = v.sideWidth - 4
	v.report.Height = max(4, min(12, height/3))
}

func (v *editorView) mainWidth() int {
	return max(30, v.width-v.sideWidth-4)
}

func (v *editorView) setArea(area editorArea) {
	v.area = area
	v.title.Blur()
	v.vision.Blur()
	switch area {
	case areaTitle:
		v.title.Focus()
	case areaVision:
		v.vision.Focus()
	}
}

// Busy reports whether a nested input owns the keyboard.
func (v *editorView) Busy() bool {
	return v.editing || v.prompting
}

func (v *editorView) Update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	if key.String() == "ctrl+s" {
		v.commitBlock()
		return emit(saveRequestedMsg{})
	}
	switch {
	case v.prompting:
		return v.updatePrompt(key)
	case v.editing:
		return v.updateBlockEdit(key)
	}
	switch key.String() {
	case "esc":
		return emit(leaveEditorMsg{})
	case "tab":
		v.setArea(editorArea((int(v.area) + 1) % int(editorAreaCount)))
		return nil
	case "shift+tab":
		v.setArea(editorArea((int(v.area) - 1 + int(editorAreaCount)) % int(editorAreaCount)))
		return nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		v.report, cmd = v.report.Update(msg)
		return cmd
	}
	switch v.area {
	case areaTitle:
		return v.updateTitle(key)
	case areaBody:
		return v.updateBody(key)
	case areaToolbar:
		return v.updateToolbar(key)
	case areaStatus:
		v.updateStatus(key)
		return nil
	case areaVision:
		return v.updateVision(key)
	}
	return nil
}

func (v *editorView) updateTitle(key tea.KeyMsg) tea.Cmd {
	if key.String() == "enter" || key.String() == "down" {
		v.setArea(areaBody)
		return nil
	}
	var cmd tea.Cmd
	before := v.title.Value()
	v.title, cmd = v.title.Update(key)
	if after := v.title.Value(); after != before {
		v.article.Title = after
		if v.onTitle != nil {
			v.onTitle(after)
		}
	}
	return cmd
}

func (v *editorView) updateBody(key tea.KeyMsg) tea.Cmd {
	switch key.String() {
	case "up", "k":
		v.engine.MoveFocus(-1)
	case "down", "j":
		v.engine.MoveFocus(1)
	case "enter", "e":
		v.beginBlockEdit()
	case "o":
		v.engine.InsertBlock()
		v.beginBlockEdit()
	case "d":
		v.engine.DeleteBlock()
	case "g":
		v.beginPrompt()
	default:
		if cmd, ok := bodyShortcuts[key.String()]; ok {
			v.engine.Exec(cmd)
		}
	}
	return nil
}

func (v *editorView) updateToolbar(key tea.KeyMsg) tea.Cmd {
	switch key.String() {
	case "left", "h":
		v.tool = wrapIndex(v.tool-1, len(editor.Toolbar))
	case "right", "l":
		v.tool = wrapIndex(v.tool+1, len(editor.Toolbar))
	case "enter", " ":
		v.run(editor.Toolbar[v.tool])
	}
	return nil
}

func (v *editorView) run(cmd editor.Command) {
	if cmd == editor.InsertImage {
		v.beginPrompt()
		return
	}
	v.engine.Exec(cmd)
}

func (v *editorView) updateStatus(key tea.KeyMsg) {
	if !v.role.CanChangeStatus() {
		return
	}
	status := v.article.Status.OrDraft()
	switch key.String() {
	case "left", "h":
		status = status.Prev()
	case "right", "l", "enter", " ":
		status = status.Next()
	default:
		return
	}
	v.article.Status = status
	if v.onStatus != nil {
		v.onStatus(status)
	}
}

func (v *editorView) updateVision(key tea.KeyMsg) tea.Cmd {
	if key.String() == "enter" {
		url := strings.TrimSpace(v.vision.Value())
		if url == "" || v.analyzing {
			return nil
		}
		return emit(analyzeRequestedMsg{url: url})
	}
	var cmd tea.Cmd
	v.vision, cmd = v.vision.Update(key)
	return cmd
}

func (v *editorView) beginBlockEdit() {
	b := v.engine.Focused()
	if !b.IsText() {
		return
	}
	v.editing = true
	v.block.SetValue(b.Text())
	v.block.Focus()
}

func (v *editorView) commitBlock() {
	if !v.editing {
		return
	}
	v.engine.SetText(v.block.Value())
	v.editing = false
	v.block.Blur()
}

func (v *editorView) updateBlockEdit(key tea.KeyMsg) tea.Cmd {
	switch key.String() {
	case "enter":
		v.commitBlock()
		return nil
	case "esc":
		v.editing = false
		v.block.Blur()
		return nil
	}
	var cmd tea.Cmd
	v.block, cmd = v.block.Update(key)
	return cmd
}

func (v *editorView) beginPrompt() {
	v.prompting = true
	v.promptErr = ""
	v.imageURL.Reset()
	v.imageURL.Focus()
}

func (v *editorView) updatePrompt(key tea.KeyMsg) tea.Cmd {
	switch key.String() {
	case "esc":
		v.prompting = false
		v.imageURL.Blur()
		return nil
	case "enter":
		if err := v.engine.InsertImageURL(v.imageURL.Value()); err != nil {
			v.promptErr = "Enter an image URL or press esc."
			return nil
		}
		v.prompting = false
		v.imageURL.Blur()
		return nil
	}
	var cmd tea.Cmd
	v.imageURL, cmd = v.imageURL.Update(key)
	return cmd
}

func (v *editorView) View() string {
	main := v.renderMain(v.mainWidth())
	side := v.renderSidebar(v.sideWidth)
	return lipgloss.JoinHorizontal(lipgloss.Top, main, " ", side)
}

func (v *editorView) renderMain(width int) string {
	var sections []string
	sections = append(sections, v.areaLabel(areaTitle, "Title"))
	sections = append(sections, lipgloss.NewStyle().Bold(true).Render(v.title.View()))
	sections = append(sections, "", v.renderToolbar())
	sections = append(sections, "", v.renderBlocks(width-2))
	switch {
	case v.editing:
		sections = append(sections, "", v.block.View(), hintStyle.Render("enter → apply    esc → discard"))
	case v.prompting:
		sections = append(sections, "", v.imageURL.View())
		if v.promptErr != "" {
			sections = append(sections, lipgloss.NewStyle().Foreground(colorRed).Render(v.promptErr))
		}
		sections = append(sections, hintStyle.Render("enter → insert    esc → cancel"))
	}
	saveLabel := "Save Changes"
	if v.saving {
		saveLabel = "Saving..."
	}
	sections = append(sections, "", accentStyle.Render("[ "+saveLabel+" ]")+"  "+hintStyle.Render("ctrl+s"))
	sections = append(sections, hintStyle.Render("tab → next area    ↑/↓ → block    enter → edit    o → new    d → delete    g → image    esc → dashboard"))
	return lipgloss.NewStyle().Width(width).Render(strings.Join(sections, "\n"))
}

func (v *editorView) areaLabel(area editorArea, text string) string {
	if v.area == area && !v.Busy() {
		return focusedStyle.Render("› " + text)
	}
	return sectionStyle.Render("  " + text)
}

func (v *editorView) renderToolbar() string {
	parts := make([]string, 0, len(editor.Toolbar))
	for i, cmd := range editor.Toolbar {
		label := " " + cmd.Label() + " "
		style := mutedStyle
		switch {
		case !v.engine.Enabled(cmd):
			style = disabledStyle
		case v.engine.IsActive(cmd):
			style = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(colorPurple)
		}
		if v.area == areaToolbar && i == v.tool && !v.Busy() {
			style = style.Underline(true).Foreground(colorAccent)
		}
		parts = append(parts, style.Render(label))
	}
	return v.areaLabel(areaToolbar, "Format") + " " + strings.Join(parts, "│")
}

func (v *editorView) renderBlocks(width int) string {
	blocks := v.engine.Blocks()
	lines := make([]string, 0, len(blocks))
	ordinal := 0
	for i, b := range blocks {
		if b.Kind == editor.OrderedItem {
			ordinal++
		} else {
			ordinal = 0
		}
		gutter := "  "
		if i == v.engine.Focus() {
			gutter = lipgloss.NewStyle().Foreground(colorAccent).Render("▌ ")
			if v.area != areaBody {
				gutter = mutedStyle.Render("▏ ")
			}
		}
		lines = append(lines, gutter+renderBlock(b, ordinal, width-2))
	}
	return v.areaLabel(areaBody, "Body") + "\n" + strings.Join(lines, "\n")
}

func renderBlock(b editor.Block, ordinal, width int) string {
	if b.Kind == editor.Image {
		label := "🖼  " + b.Src
		if b.Alt != "" {
			label += " (" + b.Alt + ")"
		}
		return italicMuted.Render(label)
	}
	text := renderRuns(b.Runs)
	if text == "" {
		text = disabledStyle.Render("empty")
	}
	style := lipgloss.NewStyle().Width(max(10, width-4))
	switch b.Kind {
	case editor.Heading1:
		return style.Bold(true).Foreground(colorBrand).Render(text)
	case editor.Heading2:
		return style.Bold(true).Render("## " + text)
	case editor.Heading3:
		return style.Bold(true).Foreground(colorMuted).Render("### " + text)
	case editor.BulletItem:
		return style.Render("• " + text)
	case editor.OrderedItem:
		return style.Render(fmt.Sprintf("%d. %s", ordinal, text))
	case editor.Quote:
		return style.Italic(true).Foreground(colorMuted).Render("❝ " + text)
	default:
		return style.Render(text)
	}
}

func renderRuns(runs []editor.Run) string {
	var b strings.Builder
	for _, r := range runs {
		style := lipgloss.NewStyle().Bold(r.Bold).Italic(r.Italic)
		if r.Href != "" {
			style = style.Underline(true).Foreground(colorAccent)
		}
		b.WriteString(style.Render(r.Text))
	}
	return b.String()
}

func (v *editorView) renderSidebar(width int) string {
	card := func(title, body string) string {
		return boxStyle.Width(max(20, width-2)).Render(sectionStyle.Render(title) + "\n" + body)
	}
	cards := []string{
		card("Editorial Status", v.renderStatusCard()),
		card("AI Vision Analyst", v.renderVisionCard()),
		card("Sources & Citations", v.renderSources()),
		card("Original Angle", v.renderAngle()),
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

func (v *editorView) renderStatusCard() string {
	status := v.article.Status.OrDraft()
	var selector string
	if v.role.CanChangeStatus() {
		selector = fmt.Sprintf("◂ %s ▸", status)
		if v.area == areaStatus && !v.Busy() {
			selector = focusedStyle.Render(selector)
		}
	} else {
		selector = disabledStyle.Render(string(status))
	}
	lines := []string{v.areaLabel(areaStatus, "Status") + "  " + selector, renderBadge(status)}
	if !v.role.CanChangeStatus() {
		lines = append(lines, italicMuted.Render(statusGateNote))
	}
	return strings.Join(lines, "\n")
}

// statusGateNote is shown beside a disabled status control.
const statusGateNote = "*Only Editors can change publication status."

func (v *editorView) renderVisionCard() string {
	button := "Analyze Image"
	if v.analyzing {
		button = "Analyzing..."
	}
	buttonStyle := accentStyle
	if v.analyzing || strings.TrimSpace(v.vision.Value()) == "" {
		buttonStyle = disabledStyle
	}
	lines := []string{
		mutedStyle.Render("Paste an image URL to generate a caption."),
		v.areaLabel(areaVision, "URL") + " " + v.vision.View(),
		buttonStyle.Render("[ " + button + " ]"),
	}
	if v.analysis != "" {
		lines = append(lines, "", sectionStyle.Render("Analysis Report"), v.report.View())
	}
	return strings.Join(lines, "\n")
}

func (v *editorView) renderSources() string {
	if len(v.article.Sources) == 0 {
		return italicMuted.Render("No sources linked.")
	}
	lines := make([]string, 0, len(v.article.Sources)*2)
	for i, s := range v.article.Sources {
		lines = append(lines, fmt.Sprintf("[%d] %s", i+1, s.Label()))
		if s.URL != "" && s.URL != s.Label() {
			lines = append(lines, hintStyle.Render("    "+s.URL))
		}
	}
	return strings.Join(lines, "\n")
}

func (v *editorView) renderAngle() string {
	if angle := strings.TrimSpace(v.article.Angle); angle != "" {
		return italicMuted.Render(`"` + angle + `"`)
	}
	return italicMuted.Render("No brief available")
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}
