package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/newsroom/internal/backend"
)

// NoticeLevel is the severity of a banner notice.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeError
)

// Notice is a user-facing outcome message shown in the banner until the next
// one replaces it or the user dismisses it.
type Notice struct {
	Level NoticeLevel
	Text  string
}

func successNotice(text string) *Notice {
	return &Notice{Level: NoticeSuccess, Text: text}
}

// errorNotice pairs the action summary with the cause, preferring the
// backend's own detail when it sent one.
func errorNotice(summary string, err error) *Notice {
	if err == nil {
		return &Notice{Level: NoticeError, Text: summary}
	}
	var apiErr *backend.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Detail != "":
		return &Notice{Level: NoticeError, Text: fmt.Sprintf("%s %s", summary, apiErr.Detail)}
	case backend.IsUnreachable(err):
		return &Notice{Level: NoticeError, Text: summary + " Backend unreachable."}
	default:
		return &Notice{Level: NoticeError, Text: fmt.Sprintf("%s %v", summary, err)}
	}
}

func (n *Notice) render(width int) string {
	if n == nil || n.Text == "" {
		return ""
	}
	color := colorAccent
	prefix := "ℹ"
	switch n.Level {
	case NoticeSuccess:
		color = colorGreen
		prefix = "✅"
	case NoticeError:
		color = colorRed
		prefix = "⚠"
	}
	return lipgloss.NewStyle().
		Foreground(color).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1).
		Width(max(20, width)).
		Render(prefix + " " + n.Text + "  " + hintStyle.Render("(ctrl+x to dismiss)"))
}
