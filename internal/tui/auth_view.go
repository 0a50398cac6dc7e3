package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/newsroom/internal/domain"
)

// providerItem implements list.Item for a sign-in choice.
type providerItem struct {
	provider domain.Provider
}

func (i providerItem) Title() string {
	return "Sign in with " + i.provider.DisplayName()
}
func (i providerItem) Description() string {
	return fmt.Sprintf("OAuth via %s, completes in your browser", i.provider.DisplayName())
}
func (i providerItem) FilterValue() string { return string(i.provider) }

type authView struct {
	menu       list.Model
	connecting bool
	provider   domain.Provider
}

func newAuthView() *authView {
	items := make([]list.Item, 0, len(domain.Providers))
	for _, p := range domain.Providers {
		items = append(items, providerItem{provider: p})
	}
	menu := list.New(items, list.NewDefaultDelegate(), 40, 8)
	menu.Title = "Authorized Personnel Only"
	menu.SetShowStatusBar(false)
	menu.SetFilteringEnabled(false)
	menu.SetShowHelp(false)
	menu.SetShowPagination(false)
	return &authView{menu: menu}
}

func (v *authView) SetSize(width, height int) {
	v.menu.SetSize(max(20, min(60, width-6)), max(6, min(10, height-10)))
}

// Selected returns the highlighted provider.
func (v *authView) Selected() (domain.Provider, bool) {
	item, ok := v.menu.SelectedItem().(providerItem)
	if !ok {
		return "", false
	}
	return item.provider, true
}

// Begin enters the connecting state; choices stay disabled until Reset.
func (v *authView) Begin(p domain.Provider) {
	v.connecting = true
	v.provider = p
}

// Reset leaves the connecting state.
func (v *authView) Reset() {
	v.connecting = false
	v.provider = ""
}

func (v *authView) Update(msg tea.Msg) tea.Cmd {
	if v.connecting {
		return nil
	}
	var cmd tea.Cmd
	v.menu, cmd = v.menu.Update(msg)
	return cmd
}

func (v *authView) View() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Render("NEWSROOM")
	var body string
	if v.connecting {
		body = lipgloss.JoinVertical(lipgloss.Left,
			accentStyle.Render("Connecting..."),
			mutedStyle.Render(fmt.Sprintf("Finish signing in with %s in your browser.", v.provider.DisplayName())),
			hintStyle.Render("esc → cancel"),
		)
	} else {
		body = lipgloss.JoinVertical(lipgloss.Left,
			v.menu.View(),
			hintStyle.Render("enter → sign in    q → quit"),
		)
	}
	footer := mutedStyle.Render("Protected by OAuth (PKCE)")
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", footer))
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
