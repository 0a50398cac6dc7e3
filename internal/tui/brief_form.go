package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/newsroom/internal/domain"
)

type briefField int

const (
	fieldTopic briefField = iota
	fieldAngle
	fieldAudience
	fieldTone
	fieldLength
	fieldSubmit
	briefFieldCount
)

// briefSubmittedMsg carries a snapshot of the form to the orchestrator.
type briefSubmittedMsg struct {
	brief domain.Brief
}

// briefForm collects the inputs for a generation request. It keeps its own
// state; the caller decides what a submission does.
type briefForm struct {
	topic    textinput.Model
	angle    textarea.Model
	audience int
	tone     int
	length   int
	focus    briefField
	width    int
}

func newBriefForm() *briefForm {
	topic := textinput.New()
	topic.Placeholder = "e.g., The Impact of AI on Healthcare"
	topic.CharLimit = 200
	topic.Prompt = ""
	topic.Cursor.SetMode(cursor.CursorStatic)

	angle := textarea.New()
	angle.Placeholder = "What is the core argument or unique perspective?"
	angle.ShowLineNumbers = false
	angle.SetHeight(3)
	angle.Prompt = ""
	angle.Cursor.SetMode(cursor.CursorStatic)

	f := &briefForm{topic: topic, angle: angle, width: 60}
	f.Reset()
	return f
}

// Reset restores the defaults and focuses the topic.
func (f *briefForm) Reset() {
	f.topic.Reset()
	f.angle.Reset()
	f.audience = indexOf(domain.Audiences, domain.DefaultAudience)
	f.tone = indexOf(domain.Tones, domain.DefaultTone)
	f.length = 0
	for i, l := range domain.Lengths {
		if l.Words == domain.DefaultWordCount {
			f.length = i
		}
	}
	f.setFocus(fieldTopic)
}

func (f *briefForm) SetSize(width int) {
	f.width = max(30, width)
	f.topic.Width = f.width - 4
	f.angle.SetWidth(f.width - 2)
}

// Brief returns the current form contents.
func (f *briefForm) Brief() domain.Brief {
	return domain.Brief{
		Topic:     f.topic.Value(),
		Angle:     f.angle.Value(),
		Audience:  domain.Audiences[f.audience],
		Tone:      domain.Tones[f.tone],
		WordCount: domain.Lengths[f.length].Words,
	}
}

// canSubmitBrief reports whether the submit control is enabled.
func canSubmitBrief(b domain.Brief, generating bool) bool {
	return !generating && b.HasTopic()
}

func (f *briefForm) setFocus(field briefField) {
	f.focus = field
	f.topic.Blur()
	f.angle.Blur()
	switch field {
	case fieldTopic:
		f.topic.Focus()
	case fieldAngle:
		f.angle.Focus()
	}
}

func (f *briefForm) moveFocus(delta int) {
	next := (int(f.focus) + delta + int(briefFieldCount)) % int(briefFieldCount)
	f.setFocus(briefField(next))
}

func (f *briefForm) cycle(delta int) {
	switch f.focus {
	case fieldAudience:
		f.audience = wrapIndex(f.audience+delta, len(domain.Audiences))
	case fieldTone:
		f.tone = wrapIndex(f.tone+delta, len(domain.Tones))
	case fieldLength:
		f.length = wrapIndex(f.length+delta, len(domain.Lengths))
	}
}

// Update handles form keys. A submission is returned as a command so the
// orchestrator sees it as a message. generating disables submit.
func (f *briefForm) Update(msg tea.Msg, generating bool) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	switch key.String() {
	case "tab", "down":
		if f.focus != fieldAngle || key.String() == "tab" {
			f.moveFocus(1)
			return nil
		}
	case "shift+tab", "up":
		if f.focus != fieldAngle || key.String() == "shift+tab" {
			f.moveFocus(-1)
			return nil
		}
	case "left":
		if f.isSelect() {
			f.cycle(-1)
			return nil
		}
	case "right":
		if f.isSelect() {
			f.cycle(1)
			return nil
		}
	case "ctrl+s":
		return f.submit(generating)
	case "enter":
		if f.focus == fieldSubmit {
			return f.submit(generating)
		}
		if f.focus != fieldAngle {
			f.moveFocus(1)
			return nil
		}
	}
	var cmd tea.Cmd
	switch f.focus {
	case fieldTopic:
		f.topic, cmd = f.topic.Update(msg)
	case fieldAngle:
		f.angle, cmd = f.angle.Update(msg)
	}
	return cmd
}

func (f *briefForm) isSelect() bool {
	return f.focus == fieldAudience || f.focus == fieldTone || f.focus == fieldLength
}

func (f *briefForm) submit(generating bool) tea.Cmd {
	brief := f.Brief()
	if !canSubmitBrief(brief, generating) {
		return nil
	}
	return func() tea.Msg {
		return briefSubmittedMsg{brief: brief}
	}
}

func (f *briefForm) View(generating bool, spin string) string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("New Story Brief"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("Describe the story; the desk drafts it with sources."))
	b.WriteString("\n\n")

	b.WriteString(f.label(fieldTopic, "Topic"))
	b.WriteString("\n")
	b.WriteString(f.inputBox(fieldTopic, f.topic.View()))
	b.WriteString("\n")
	b.WriteString(f.label(fieldAngle, "Angle / Perspective"))
	b.WriteString("\n")
	b.WriteString(f.inputBox(fieldAngle, f.angle.View()))
	b.WriteString("\n")
	b.WriteString(f.selectRow(fieldAudience, "Audience", domain.Audiences[f.audience]))
	b.WriteString("\n")
	b.WriteString(f.selectRow(fieldTone, "Tone", domain.Tones[f.tone]))
	b.WriteString("\n")
	b.WriteString(f.selectRow(fieldLength, "Length", domain.Lengths[f.length].String()))
	b.WriteString("\n\n")

	label := "Generate Draft"
	if generating {
		label = spin + " Researching & Writing..."
	}
	var button string
	switch {
	case !canSubmitBrief(f.Brief(), generating):
		button = disabledStyle.Render("[ " + label + " ]")
	case f.focus == fieldSubmit:
		button = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(colorAccent).Render("[ " + label + " ]")
	default:
		button = accentStyle.Render("[ " + label + " ]")
	}
	b.WriteString(button)
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("tab → next field    ←/→ → change option    ctrl+s → generate    esc → back"))
	return b.String()
}

func (f *briefForm) label(field briefField, text string) string {
	if f.focus == field {
		return focusedStyle.Render("› " + text)
	}
	return sectionStyle.Render("  " + text)
}

func (f *briefForm) inputBox(field briefField, content string) string {
	border := colorBorder
	if f.focus == field {
		border = colorAccent
	}
	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(border).
		Width(max(20, f.width-2)).
		Render(content)
}

func (f *briefForm) selectRow(field briefField, name, value string) string {
	row := fmt.Sprintf("%-9s ◂ %s ▸", name, value)
	if f.focus == field {
		return focusedStyle.Render("› " + row)
	}
	return mutedStyle.Render("  " + row)
}

func indexOf(values []string, target string) int {
	for i, v := range values {
		if v == target {
			return i
		}
	}
	return 0
}

func wrapIndex(i, n int) int {
	if n == 0 {
		return 0
	}
	return ((i % n) + n) % n
}
