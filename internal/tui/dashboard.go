package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/kingrea/newsroom/internal/domain"
)

// EmptyDashboardMessage fills the single placeholder row of an empty dashboard.
const EmptyDashboardMessage = `No stories yet. Press "n" to begin.`

const statusColumn = 2

var dashboardColumns = []table.Column{
	{Title: "Title / Topic", Width: 28},
	{Title: "Angle", Width: 24},
	{Title: "Status", Width: 11},
	{Title: "Last Updated", Width: 15},
	{Title: "Action", Width: 6},
}

var (
	dashboardHeader   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	dashboardCell     = lipgloss.NewStyle().Padding(0, 1)
	dashboardSelected = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#FFFFFF")).Background(colorAccent)
)

// dashboard is a pure display over the articles it is handed; it owns only
// the cursor and layout. The bubbles table drives the cursor and key map;
// rows are drawn with lipgloss/table so each status cell carries its badge color.
type dashboard struct {
	table    table.Model
	articles []domain.Article
	now      func() time.Time
}

func newDashboard(now func() time.Time) *dashboard {
	t := table.New(
		table.WithColumns(dashboardColumns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	return &dashboard{table: t, now: now}
}

func (d *dashboard) SetHeight(height int) {
	d.table.SetHeight(max(3, height))
}

// SetArticles replaces the rows. The cursor is kept when still in range.
func (d *dashboard) SetArticles(articles []domain.Article) {
	d.articles = articles
	d.table.SetRows(dashboardRows(articles, d.now()))
	if n := len(articles); n > 0 {
		if cursor := d.table.Cursor(); cursor < 0 || cursor >= n {
			d.table.SetCursor(min(max(cursor, 0), n-1))
		}
	}
}

// Selected returns the article under the cursor.
func (d *dashboard) Selected() (domain.Article, bool) {
	if len(d.articles) == 0 {
		return domain.Article{}, false
	}
	cursor := d.table.Cursor()
	if cursor < 0 || cursor >= len(d.articles) {
		return domain.Article{}, false
	}
	return d.articles[cursor], true
}

func (d *dashboard) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	d.table, cmd = d.table.Update(msg)
	return cmd
}

func (d *dashboard) View() string {
	title := lipgloss.NewStyle().Bold(true).Render("Recent Stories")
	hint := hintStyle.Render("n → + New Story    enter/e → Edit    r → refresh")
	var body string
	if len(d.articles) == 0 {
		body = d.placeholder()
	} else {
		body = d.renderTable()
	}
	parts := []string{title, hint, "", body}
	if article, ok := d.Selected(); ok {
		parts = append(parts, "", mutedStyle.Render(article.DisplayTitle()+" · ")+renderBadge(article.Status))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderTable draws the window of rows around the cursor.
func (d *dashboard) renderTable() string {
	rows := d.table.Rows()
	start := 0
	if cursor, height := d.table.Cursor(), d.table.Height(); cursor >= height {
		start = cursor - height + 1
	}
	end := min(len(rows), start+d.table.Height())

	headers := make([]string, 0, len(dashboardColumns))
	for _, col := range dashboardColumns {
		headers = append(headers, col.Title)
	}
	visible := make([][]string, 0, end-start)
	for _, row := range rows[start:end] {
		cells := make([]string, len(row))
		for i, value := range row {
			cells[i] = truncateCell(value, dashboardColumns[i].Width)
		}
		visible = append(visible, cells)
	}
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		Headers(headers...).
		Rows(visible...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == lgtable.HeaderRow {
				return d.cellStyle(-1, col)
			}
			return d.cellStyle(start+row, col)
		}).
		String()
}

// cellStyle styles one cell; index -1 is the header row.
func (d *dashboard) cellStyle(index, col int) lipgloss.Style {
	width := dashboardColumns[col].Width + 2
	if index < 0 {
		return dashboardHeader.Width(width)
	}
	if index == d.table.Cursor() {
		return dashboardSelected.Width(width)
	}
	if col == statusColumn && index < len(d.articles) {
		return dashboardCell.Foreground(badgeStyle(d.articles[index].Status).GetForeground()).Width(width)
	}
	return dashboardCell.Width(width)
}

// truncateCell shortens s to width runes, marking the cut with an ellipsis.
func truncateCell(s string, width int) string {
	runes := []rune(s)
	if width <= 0 || len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}

// placeholder renders the column headers and one row spanning all columns.
func (d *dashboard) placeholder() string {
	total := 0
	headers := make([]string, 0, len(dashboardColumns))
	for _, col := range dashboardColumns {
		total += col.Width + 2
		headers = append(headers, lipgloss.NewStyle().Width(col.Width).Padding(0, 1).Bold(true).Render(col.Title))
	}
	header := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorBorder).
		BorderBottom(true).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, headers...))
	row := lipgloss.NewStyle().
		Width(total).
		Align(lipgloss.Center).
		Padding(1, 0).
		Foreground(colorMuted).
		Render(EmptyDashboardMessage)
	return lipgloss.JoinVertical(lipgloss.Left, header, row)
}

// dashboardRows converts articles into table rows, applying the display
// fallbacks for missing titles, angles and timestamps. Every status cell is a
// badge label.
func dashboardRows(articles []domain.Article, now time.Time) []table.Row {
	rows := make([]table.Row, 0, len(articles))
	for _, a := range articles {
		angle := strings.TrimSpace(a.Angle)
		if angle == "" {
			angle = "-"
		}
		rows = append(rows, table.Row{
			a.DisplayTitle(),
			angle,
			badgeLabel(a.Status),
			lastUpdated(a.CreatedAt, now),
			"Edit",
		})
	}
	return rows
}

// lastUpdated renders a relative timestamp such as "3 minutes ago", or "-".
func lastUpdated(ts domain.Timestamp, now time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return humanize.RelTime(ts.Time, now, "ago", "from now")
}
