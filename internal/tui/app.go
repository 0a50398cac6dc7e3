// internal/tui/app.go
//
// This is the main TUI for newsroom. It follows The Elm Architecture:
// every remote call runs in a tea.Cmd and comes back as a message, and
// Update is the only place state changes.
//
// Screens: loading (session gate) -> sign in -> main. The main screen
// switches between the dashboard, the brief form and the editor.

package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/kingrea/newsroom/internal/backend"
	"github.com/kingrea/newsroom/internal/config"
	"github.com/kingrea/newsroom/internal/domain"
	"github.com/kingrea/newsroom/internal/identity"
	"github.com/kingrea/newsroom/internal/logbook"
	"github.com/kingrea/newsroom/internal/logging"
)

// appState is the session gate position.
type appState int

const (
	stateLoading appState = iota // resolving the stored session and role
	stateSignIn                  // no session
	stateMain                    // signed in
)

// view is the main-screen view.
type view int

const (
	viewDashboard view = iota
	viewCreate
	viewEditor
)

// User-facing outcome texts.
const (
	msgGenerateFailed = "Error generating story. Ensure backend is running."
	msgSaved          = "Saved successfully!"
	msgSaveFailed     = "Error saving."
	msgAnalyzeFailed  = "Error analyzing image. Ensure URL is valid."
	msgListFailed     = "Backend offline or empty"
	msgSignInFailed   = "Error logging in: "
)

// ArticleService is the backend API the desk talks to.
type ArticleService interface {
	ListArticles(ctx context.Context) ([]domain.Article, error)
	Generate(ctx context.Context, brief domain.Brief) (domain.Draft, error)
	SaveArticle(ctx context.Context, req backend.SaveRequest) (backend.SaveResult, error)
	AnalyzeImage(ctx context.Context, imageURL string) (string, error)
}

// IdentityService signs users in and out and resolves their role.
type IdentityService interface {
	Session(ctx context.Context) (*domain.Session, error)
	Role(ctx context.Context, userID string) (domain.Role, error)
	SignIn(ctx context.Context, provider domain.Provider) (*domain.Session, error)
	SignOut(ctx context.Context) error
	Subscribe(fn identity.Listener) func()
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithLogbook sets the activity journal shown in the log panel.
func WithLogbook(lb *logbook.Logbook) AppOption {
	return func(a *App) {
		a.logbook = lb
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) AppOption {
	return func(a *App) {
		a.logger = logging.OrNop(l)
	}
}

// WithMarkdownRenderer replaces the glamour renderer used for analysis
// reports.
func WithMarkdownRenderer(r MarkdownRenderer) AppOption {
	return func(a *App) {
		a.renderer = r
	}
}

// WithClock overrides the time source used for relative timestamps.
func WithClock(now func() time.Time) AppOption {
	return func(a *App) {
		if now != nil {
			a.now = now
		}
	}
}

type (
	sessionLoadedMsg struct {
		session *domain.Session
		err     error
	}
	roleLoadedMsg struct {
		userID string
		role   domain.Role
		err    error
	}
	authEventMsg struct {
		event identity.Event
	}
	signInFinishedMsg struct {
		err error
	}
	signedOutMsg struct {
		err error
	}
	articlesLoadedMsg struct {
		articles []domain.Article
		err      error
	}
	generateFinishedMsg struct {
		brief domain.Brief
		draft domain.Draft
		err   error
	}
	saveFinishedMsg struct {
		wasNew bool
		result backend.SaveResult
		err    error
	}
	analyzeFinishedMsg struct {
		analysis string
		err      error
	}
)

// App is the main application model.
type App struct {
	state  appState
	view   view
	config *config.Config

	articles ArticleService
	auth     IdentityService
	logbook  *logbook.Logbook
	logger   *zap.Logger
	renderer MarkdownRenderer
	now      func() time.Time

	session  *domain.Session
	role     domain.Role
	roleUser string
	current  domain.Article

	generating   bool
	saving       bool
	analyzing    bool
	cancelSignIn context.CancelFunc
	notice       *Notice

	authView  *authView
	dashboard *dashboard
	form      *briefForm
	editor    *editorView
	spinner   spinner.Model

	width  int
	height int
}

// NewApp wires the desk to its services.
func NewApp(cfg *config.Config, articles ArticleService, auth IdentityService, opts ...AppOption) *App {
	a := &App{
		state:    stateLoading,
		view:     viewDashboard,
		config:   cfg,
		articles: articles,
		auth:     auth,
		logger:   zap.NewNop(),
		now:      time.Now,
		role:     domain.DefaultRole,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	if a.renderer == nil {
		a.renderer = glamourRenderer(cfg)
	}
	a.spinner = spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(accentStyle))
	a.authView = newAuthView()
	a.dashboard = newDashboard(a.now)
	a.form = newBriefForm()
	a.editor = newEditorView(a.renderer)
	a.editor.onTitle = func(title string) { a.current.Title = title }
	a.editor.onContent = func(html string) { a.current.Content = html }
	a.editor.onStatus = a.changeStatus
	return a
}

func glamourRenderer(cfg *config.Config) MarkdownRenderer {
	theme := config.DefaultTheme
	wrap := config.DefaultWordWrap
	if cfg != nil {
		if t := strings.TrimSpace(cfg.Settings.UI.Theme); t != "" {
			theme = t
		}
		if cfg.Settings.UI.WordWrap > 0 {
			wrap = cfg.Settings.UI.WordWrap
		}
	}
	r, err := glamour.NewTermRenderer(glamour.WithStandardStyle(theme), glamour.WithWordWrap(wrap))
	if err != nil {
		return nil
	}
	return r.Render
}

// Attach forwards identity change events into the running program. The
// returned func unsubscribes and must be called when the program exits.
func (a *App) Attach(send func(tea.Msg)) func() {
	if a.auth == nil || send == nil {
		return func() {}
	}
	return a.auth.Subscribe(func(evt identity.Event) {
		send(authEventMsg{event: evt})
	})
}

func (a *App) logInfo(format string, args ...any) {
	a.logbook.Info(format, args...)
}

func (a *App) logWarn(format string, args ...any) {
	a.logbook.Warn(format, args...)
}

// Init resolves the stored session.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.loadSession())
}

func (a *App) loadSession() tea.Cmd {
	auth := a.auth
	return func() tea.Msg {
		session, err := auth.Session(context.Background())
		return sessionLoadedMsg{session: session, err: err}
	}
}

func (a *App) loadRole(userID string) tea.Cmd {
	auth := a.auth
	return func() tea.Msg {
		role, err := auth.Role(context.Background(), userID)
		return roleLoadedMsg{userID: userID, role: role, err: err}
	}
}

func (a *App) fetchArticles() tea.Cmd {
	svc := a.articles
	return func() tea.Msg {
		articles, err := svc.ListArticles(context.Background())
		return articlesLoadedMsg{articles: articles, err: err}
	}
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case sessionLoadedMsg:
		return a, a.handleSessionLoaded(msg)

	case roleLoadedMsg:
		return a, a.handleRoleLoaded(msg)

	case authEventMsg:
		return a, a.handleAuthEvent(msg.event)

	case signInFinishedMsg:
		a.cancelSignIn = nil
		a.authView.Reset()
		switch {
		case msg.err == nil:
		case errors.Is(msg.err, identity.ErrSignInCancelled):
			a.notice = &Notice{Level: NoticeInfo, Text: "Sign-in cancelled."}
			a.logInfo("Sign-in cancelled")
		default:
			a.notice = &Notice{Level: NoticeError, Text: msgSignInFailed + msg.err.Error()}
			a.logWarn("Sign-in failed: %v", msg.err)
		}
		return a, nil

	case signedOutMsg:
		if msg.err != nil {
			a.logger.Warn("sign out", zap.Error(msg.err))
		}
		return a, a.applySignedOut()

	case articlesLoadedMsg:
		if msg.err != nil {
			a.logWarn(msgListFailed)
			a.logger.Warn("list articles", zap.Error(msg.err))
			return a, nil
		}
		a.dashboard.SetArticles(msg.articles)
		return a, nil

	case briefSubmittedMsg:
		return a, a.generate(msg.brief)

	case generateFinishedMsg:
		a.generating = false
		if msg.err != nil {
			a.notice = errorNotice(msgGenerateFailed, msg.err)
			a.logWarn("Generation failed for %q: %v", msg.brief.Topic, msg.err)
			return a, nil
		}
		a.openEditor(msg.draft.ArticleFrom(msg.brief))
		a.logInfo("Draft generated · %s", a.current.DisplayTitle())
		return a, nil

	case saveRequestedMsg:
		return a, a.save()

	case saveFinishedMsg:
		a.saving = false
		a.editor.SetSaving(false)
		if msg.err != nil {
			a.notice = errorNotice(msgSaveFailed, msg.err)
			a.logWarn("Save failed: %v", msg.err)
			return a, nil
		}
		a.notice = successNotice(msgSaved)
		a.logInfo("Saved · %s (%s)", a.current.DisplayTitle(), a.current.Status.OrDraft())
		if msg.wasNew {
			return a, a.showDashboard()
		}
		return a, nil

	case leaveEditorMsg:
		return a, a.showDashboard()

	case analyzeRequestedMsg:
		return a, a.analyze(msg.url)

	case analyzeFinishedMsg:
		a.analyzing = false
		a.editor.SetAnalyzing(false)
		if msg.err != nil {
			a.notice = errorNotice(msgAnalyzeFailed, msg.err)
			a.logWarn("Image analysis failed: %v", msg.err)
			return a, nil
		}
		a.editor.SetAnalysis(msg.analysis)
		a.logInfo("Image analyzed")
		return a, nil

	case tea.KeyMsg:
		return a, a.handleKey(msg)
	}
	return a, nil
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height
	inner := max(40, width-4)
	a.authView.SetSize(width, height)
	a.dashboard.SetHeight(max(5, height-20))
	a.form.SetSize(min(80, inner))
	a.editor.SetSize(inner, height)
}

func (a *App) handleSessionLoaded(msg sessionLoadedMsg) tea.Cmd {
	if msg.err != nil && !errors.Is(msg.err, identity.ErrNoSession) {
		a.logger.Warn("load session", zap.Error(msg.err))
	}
	if a.state != stateLoading {
		return nil
	}
	if msg.session == nil {
		a.state = stateSignIn
		return nil
	}
	a.session = msg.session
	return a.loadRole(msg.session.UserID())
}

func (a *App) handleRoleLoaded(msg roleLoadedMsg) tea.Cmd {
	if a.session == nil || msg.userID != a.session.UserID() {
		return nil
	}
	if msg.err != nil {
		a.logger.Warn("role lookup", zap.String("user_id", msg.userID), zap.Error(msg.err))
	}
	a.setRole(msg.userID, msg.role)
	if a.state == stateLoading {
		a.state = stateMain
		a.logInfo("Session resumed · %s", a.session.User.Email)
		return a.showDashboard()
	}
	return nil
}

func (a *App) setRole(userID string, role domain.Role) {
	a.role = role.OrDefault()
	a.roleUser = userID
	a.editor.SetRole(a.role)
}

func (a *App) handleAuthEvent(evt identity.Event) tea.Cmd {
	switch evt.Kind {
	case identity.SignedIn:
		if evt.Session == nil {
			return nil
		}
		a.session = evt.Session
		a.authView.Reset()
		var cmds []tea.Cmd
		if uid := evt.Session.UserID(); uid != a.roleUser {
			a.setRole("", domain.DefaultRole)
			cmds = append(cmds, a.loadRole(uid))
		}
		if a.state != stateMain {
			a.state = stateMain
			a.logInfo("Signed in · %s", evt.Session.User.Email)
			cmds = append(cmds, a.showDashboard())
		}
		return tea.Batch(cmds...)
	case identity.TokenRefreshed:
		if evt.Session != nil {
			a.session = evt.Session
		}
		return nil
	case identity.SignedOut:
		return a.applySignedOut()
	}
	return nil
}

func (a *App) applySignedOut() tea.Cmd {
	if a.state == stateSignIn {
		return nil
	}
	a.state = stateSignIn
	a.view = viewDashboard
	a.session = nil
	a.setRole("", domain.DefaultRole)
	a.current = domain.Article{}
	a.dashboard.SetArticles(nil)
	a.authView.Reset()
	a.logInfo("Signed out")
	return nil
}

// showDashboard switches to the dashboard and refetches the list.
func (a *App) showDashboard() tea.Cmd {
	a.view = viewDashboard
	if a.session == nil {
		return nil
	}
	return a.fetchArticles()
}

func (a *App) openCreate() {
	a.form.Reset()
	a.view = viewCreate
}

// openEditor makes article current, replacing whatever was being edited.
func (a *App) openEditor(article domain.Article) {
	if article.Sources == nil {
		article.Sources = []domain.Source{}
	}
	a.current = article
	a.editor.SetRole(a.role)
	a.editor.Load(article)
	a.view = viewEditor
}

func (a *App) changeStatus(status domain.Status) {
	if !a.role.CanChangeStatus() {
		return
	}
	a.current.Status = status
	a.logInfo("Status → %s · %s", status, a.current.DisplayTitle())
}

func (a *App) generate(brief domain.Brief) tea.Cmd {
	if !canSubmitBrief(brief, a.generating) {
		return nil
	}
	a.generating = true
	a.notice = nil
	svc := a.articles
	a.logInfo("Generating draft · %s", strings.TrimSpace(brief.Topic))
	return func() tea.Msg {
		draft, err := svc.Generate(context.Background(), brief)
		return generateFinishedMsg{brief: brief, draft: draft, err: err}
	}
}

func (a *App) save() tea.Cmd {
	if a.saving {
		return nil
	}
	a.saving = true
	a.editor.SetSaving(true)
	article := a.current
	req := backend.NewSaveRequest(article, article.Status, a.session.UserID())
	svc := a.articles
	return func() tea.Msg {
		result, err := svc.SaveArticle(context.Background(), req)
		return saveFinishedMsg{wasNew: article.IsNew(), result: result, err: err}
	}
}

func (a *App) analyze(url string) tea.Cmd {
	if a.analyzing {
		return nil
	}
	a.analyzing = true
	a.editor.SetAnalyzing(true)
	svc := a.articles
	return func() tea.Msg {
		analysis, err := svc.AnalyzeImage(context.Background(), url)
		return analyzeFinishedMsg{analysis: analysis, err: err}
	}
}

func (a *App) signIn(provider domain.Provider) tea.Cmd {
	if a.cancelSignIn != nil {
		return nil
	}
	a.notice = nil
	a.authView.Begin(provider)
	ctx, cancel := context.WithCancel(context.Background())
	a.cancelSignIn = cancel
	auth := a.auth
	a.logInfo("Signing in with %s", provider.DisplayName())
	return func() tea.Msg {
		defer cancel()
		_, err := auth.SignIn(ctx, provider)
		return signInFinishedMsg{err: err}
	}
}

func (a *App) signOut() tea.Cmd {
	auth := a.auth
	return func() tea.Msg {
		return signedOutMsg{err: auth.SignOut(context.Background())}
	}
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c":
		if a.cancelSignIn != nil {
			a.cancelSignIn()
		}
		return tea.Quit
	case "ctrl+x":
		a.notice = nil
		return nil
	}
	switch a.state {
	case stateLoading:
		return nil
	case stateSignIn:
		return a.handleSignInKey(msg)
	}
	if msg.String() == "ctrl+l" {
		return a.signOut()
	}
	switch a.view {
	case viewCreate:
		if msg.String() == "esc" {
			return a.showDashboard()
		}
		return a.form.Update(msg, a.generating)
	case viewEditor:
		return a.editor.Update(msg)
	default:
		return a.handleDashboardKey(msg)
	}
}

func (a *App) handleSignInKey(msg tea.KeyMsg) tea.Cmd {
	if a.authView.connecting {
		if msg.String() == "esc" && a.cancelSignIn != nil {
			a.cancelSignIn()
		}
		return nil
	}
	switch msg.String() {
	case "q":
		return tea.Quit
	case "enter":
		if p, ok := a.authView.Selected(); ok {
			return a.signIn(p)
		}
		return nil
	}
	return a.authView.Update(msg)
}

func (a *App) handleDashboardKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q":
		return tea.Quit
	case "n":
		a.openCreate()
		return nil
	case "r":
		return a.fetchArticles()
	case "enter", "e":
		if article, ok := a.dashboard.Selected(); ok {
			a.openEditor(article)
		}
		return nil
	}
	return a.dashboard.Update(msg)
}

// View renders the current screen.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	switch a.state {
	case stateLoading:
		return lipgloss.JoinVertical(lipgloss.Left,
			headerStyle.Render("⬡ NEWSROOM"),
			"",
			a.spinner.View()+" "+mutedStyle.Render("Loading..."),
		)
	case stateSignIn:
		sections := []string{a.authView.View()}
		if n := a.notice.render(min(width-2, 70)); n != "" {
			sections = append(sections, n)
		}
		return strings.Join(sections, "\n")
	}

	var content string
	switch a.view {
	case viewCreate:
		content = a.form.View(a.generating, a.spinner.View())
	case viewEditor:
		content = a.editor.View()
	default:
		content = a.dashboard.View()
	}
	sections := []string{a.renderHeader(width)}
	if n := a.notice.render(width - 2); n != "" {
		sections = append(sections, n)
	}
	sections = append(sections, boxStyle.Width(max(20, width-2)).Render(content))
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	return strings.Join(sections, "\n")
}

func (a *App) renderHeader(width int) string {
	left := headerStyle.Render("⬡ NEWSROOM")
	var right []string
	if a.session != nil && a.session.User.Email != "" {
		right = append(right, mutedStyle.Render(a.session.User.Email))
	}
	right = append(right, roleStyle.Render(fmt.Sprintf("ROLE: %s", a.role)))
	rightBlock := strings.Join(right, "  ")
	gap := max(1, width-lipgloss.Width(left)-lipgloss.Width(rightBlock)-2)
	return lipgloss.JoinHorizontal(lipgloss.Center, left, strings.Repeat(" ", gap), rightBlock) +
		"\n" + hintStyle.Render("ctrl+l → sign out    ctrl+c → quit")
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines, total := a.logbook.Tail(6)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := accentStyle.Render(fmt.Sprintf("LOG · %s", fileName)) +
		mutedStyle.Render(fmt.Sprintf("  last %d of %d", len(lines), total))
	body := hintStyle.Render(strings.Join(lines, "\n"))
	return boxStyle.Render(fmt.Sprintf("%s\n%s", head, body))
}
