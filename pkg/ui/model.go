// Package ui is the interactive terminal view of a thread dump report.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/kraitsura/tdv/pkg/client"
	"github.com/kraitsura/tdv/pkg/format"
	"github.com/kraitsura/tdv/pkg/model"
	"github.com/kraitsura/tdv/pkg/report"
	"github.com/kraitsura/tdv/pkg/session"
	"github.com/kraitsura/tdv/pkg/watcher"
)

// Analyzer submits dumps for analysis.
type Analyzer interface {
	Analyze(ctx context.Context, path string) ([]model.ThreadRecord, error)
	Health(ctx context.Context) (client.HealthStatus, error)
}

// Options configures the Model.
type Options struct {
	Analyzer Analyzer
	Session  *session.Session
	Theme    Theme
	Watcher  *watcher.Watcher // nil disables live re-analysis
	// InitialPath is submitted as soon as the program starts.
	InitialPath string
	Endpoint    string
	Context     context.Context
	Logger      *slog.Logger
	// Clipboard replaces the system clipboard writer.
	Clipboard func(string) error
}

type focus int

const (
	focusTable focus = iota
	focusSearch
	focusJump
	focusDetail
	focusForm
)

// Messages
type (
	submitMsg       struct{ path string }
	analysisDoneMsg struct {
		path    string
		threads []model.ThreadRecord
		err     error
	}
	healthMsg struct {
		status client.HealthStatus
		err    error
	}
	fileChangedMsg struct{}
)

// Model is the bubbletea model of the viewer.
type Model struct {
	ctx      context.Context
	analyzer Analyzer
	session  *session.Session
	watcher  *watcher.Watcher
	logger   *slog.Logger
	copyFn   func(string) error

	theme       Theme
	keys        keyMap
	help        help.Model
	helpOverlay HelpOverlayModel
	spinner     spinner.Model
	search      textinput.Model
	jump        textinput.Model
	detail      viewport.Model
	form        *huh.Form
	formPath    *string

	focus        focus
	cursor       int // index into the visible rows
	offset       int // first table line shown
	stateFilter  model.State
	healthFilter model.Health

	width       int
	height      int
	initialPath string
	endpoint    string
	health      string
	status      string
	quitting    bool
}

// NewModel creates the viewer model.
func NewModel(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	theme := opts.Theme
	if theme.Renderer == nil {
		theme = DefaultTheme(nil, "dark")
	}
	sess := opts.Session
	if sess == nil {
		sess = session.New(report.RenderOptions{}, logger)
	}
	copyFn := opts.Clipboard
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}

	keys := newKeyMap()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Renderer.NewStyle().Foreground(theme.Primary)

	search := textinput.New()
	search.Prompt = "/"
	search.Placeholder = "thread name"
	search.CharLimit = 256

	jump := textinput.New()
	jump.Prompt = ":"
	jump.Placeholder = "jump to thread"
	jump.CharLimit = 256

	m := Model{
		ctx:         ctx,
		analyzer:    opts.Analyzer,
		session:     sess,
		watcher:     opts.Watcher,
		logger:      logger,
		copyFn:      copyFn,
		theme:       theme,
		keys:        keys,
		help:        help.New(),
		helpOverlay: NewHelpOverlayModel(keys, theme),
		spinner:     sp,
		search:      search,
		jump:        jump,
		detail:      viewport.New(80, 20),
		initialPath: opts.InitialPath,
		endpoint:    opts.Endpoint,
	}

	// A report loaded before start-up may already carry a filter.
	if rep := sess.Report(); rep != nil {
		c := rep.Criteria()
		m.search.SetValue(c.Query)
		m.stateFilter = c.State
		m.healthFilter = c.Health
	}
	return m
}

// Run starts the full-screen program.
func Run(opts Options) error {
	p := tea.NewProgram(NewModel(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func analyzeCmd(ctx context.Context, a Analyzer, path string) tea.Cmd {
	return func() tea.Msg {
		threads, err := a.Analyze(ctx, path)
		return analysisDoneMsg{path: path, threads: threads, err: err}
	}
}

func healthCmd(ctx context.Context, a Analyzer) tea.Cmd {
	return func() tea.Msg {
		st, err := a.Health(ctx)
		return healthMsg{status: st, err: err}
	}
}

// waitForChange blocks until the watcher reports a change
func waitForChange(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return fileChangedMsg{}
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.analyzer != nil {
		cmds = append(cmds, healthCmd(m.ctx, m.analyzer))
	}
	if m.watcher != nil {
		cmds = append(cmds, waitForChange(m.watcher))
	}
	if m.initialPath != "" {
		path := m.initialPath
		cmds = append(cmds, func() tea.Msg { return submitMsg{path: path} })
	}
	return tea.Batch(cmds...)
}

// submit starts an analysis of path. Nothing is sent when the path is
// empty or another analysis is still running.
func (m *Model) submit(path string) tea.Cmd {
	if err := m.session.Begin(path); err != nil {
		if errors.Is(err, session.ErrBusy) {
			m.status = "Analysis already in progress"
		}
		return nil
	}
	m.status = ""
	if m.analyzer == nil {
		m.session.Fail(errors.New("no analyzer configured"))
		return nil
	}
	return tea.Batch(m.spinner.Tick, analyzeCmd(m.ctx, m.analyzer, path))
}

func (m *Model) finishAnalysis(msg analysisDoneMsg) {
	if msg.err != nil {
		m.session.Fail(msg.err)
		return
	}
	if err := m.session.Succeed(m.ctx, msg.threads); err != nil {
		return
	}
	m.resetView()
	m.status = fmt.Sprintf("Analyzed %s: %d threads", filepath.Base(msg.path), len(msg.threads))
}

// resetView drops per-report UI state after a new report replaced the old.
func (m *Model) resetView() {
	m.cursor = 0
	m.offset = 0
	m.search.SetValue("")
	m.search.Blur()
	m.stateFilter = ""
	m.healthFilter = ""
	if m.focus == focusDetail || m.focus == focusSearch || m.focus == focusJump {
		m.focus = focusTable
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.detail.Width = msg.Width
		m.detail.Height = max(msg.Height-4, MinContentHeight)
		if m.focus == focusDetail {
			m.refreshDetail()
		}
		if m.form != nil {
			return m.updateForm(msg)
		}
		m.syncScroll()
		return m, nil

	case submitMsg:
		cmd := m.submit(msg.path)
		return m, cmd

	case analysisDoneMsg:
		m.finishAnalysis(msg)
		m.syncScroll()
		return m, nil

	case healthMsg:
		if msg.err != nil {
			m.health = "analyzer unreachable"
			m.logger.Warn("analyzer health check failed", "endpoint", m.endpoint, "error", msg.err)
		} else {
			m.health = "analyzer " + msg.status.Status
		}
		return m, nil

	case fileChangedMsg:
		next := waitForChange(m.watcher)
		if m.session.Busy() {
			m.logger.Info("dump changed during analysis, change ignored", "path", m.watcher.Path())
			return m, next
		}
		m.logger.Info("dump changed, re-analyzing", "path", m.watcher.Path())
		cmd := m.submit(m.watcher.Path())
		return m, tea.Batch(next, cmd)

	case spinner.TickMsg:
		if !m.session.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.form != nil {
		return m.updateForm(msg)
	}

	if k, ok := msg.(tea.KeyMsg); ok {
		next, cmd := m.handleKey(k)
		next.syncScroll()
		return next, cmd
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusSearch:
		m.search, cmd = m.search.Update(msg)
	case focusJump:
		m.jump, cmd = m.jump.Update(msg)
	case focusDetail:
		m.detail, cmd = m.detail.Update(msg)
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.helpOverlay.IsVisible() {
		m.helpOverlay, _ = m.helpOverlay.Update(msg)
		return m, nil
	}

	switch m.focus {
	case focusSearch:
		return m.handleSearchKey(msg)
	case focusJump:
		return m.handleJumpKey(msg)
	case focusDetail:
		return m.handleDetailKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.helpOverlay.Toggle()
		return m, nil
	case key.Matches(msg, m.keys.Open):
		if m.session.Busy() {
			m.status = "Analysis already in progress"
			return m, nil
		}
		cmd := m.openForm()
		return m, cmd
	case key.Matches(msg, m.keys.Resubmit):
		if src := m.session.Source(); src != "" {
			cmd := m.submit(src)
			return m, cmd
		}
		if m.session.Busy() {
			return m, nil
		}
		cmd := m.openForm()
		return m, cmd
	case key.Matches(msg, m.keys.Back):
		m.session.ClearError()
		m.status = ""
		return m, nil
	}

	if !m.session.HasReport() {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Top):
		m.cursor = 0
	case key.Matches(msg, m.keys.Bottom):
		m.cursor = m.session.Report().VisibleCount() - 1
		m.clampCursor()
	case key.Matches(msg, m.keys.PageUp):
		m.moveCursor(-m.pageSize())
	case key.Matches(msg, m.keys.PageDown):
		m.moveCursor(m.pageSize())
	case key.Matches(msg, m.keys.Toggle):
		m.toggleSelected()
	case key.Matches(msg, m.keys.Detail):
		m.openDetail()
	case key.Matches(msg, m.keys.Search):
		m.focus = focusSearch
		cmd := m.search.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.StateFilter):
		m.stateFilter = cycle(m.session.Report().StateOptions(), m.stateFilter)
		m.applyFilter()
	case key.Matches(msg, m.keys.HealthFilt):
		m.healthFilter = cycle(m.session.Report().HealthOptions(), m.healthFilter)
		m.applyFilter()
	case key.Matches(msg, m.keys.Clear):
		m.search.SetValue("")
		m.stateFilter = ""
		m.healthFilter = ""
		m.applyFilter()
	case key.Matches(msg, m.keys.Jump):
		m.focus = focusJump
		m.jump.SetValue("")
		cmd := m.jump.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.Copy):
		m.copySelected()
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "enter", "esc":
		m.search.Blur()
		m.focus = focusTable
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m Model) handleJumpKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "esc":
		m.jump.Blur()
		m.focus = focusTable
		return m, nil
	case "enter":
		m.jump.Blur()
		m.focus = focusTable
		query := strings.TrimSpace(m.jump.Value())
		if query == "" {
			return m, nil
		}
		ordinal, ok := m.session.Report().Jump(query)
		if !ok {
			m.status = fmt.Sprintf("No visible thread matches %q", query)
			return m, nil
		}
		for i, row := range m.session.Report().VisibleRows() {
			if row.Ordinal == ordinal {
				m.cursor = i
				break
			}
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.jump, cmd = m.jump.Update(msg)
	return m, cmd
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Detail), msg.String() == "q":
		m.focus = focusTable
		return m, nil
	case key.Matches(msg, m.keys.Copy):
		m.copySelected()
		return m, nil
	}
	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

func (m *Model) openForm() tea.Cmd {
	path := m.session.Source()
	m.formPath = &path
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Thread dump file").
				Description("Path of a jstack or kill -3 thread dump to analyze").
				Placeholder("/path/to/threads.tdump").
				Value(m.formPath),
		),
	).WithShowHelp(true)
	m.form.SubmitCmd = nil
	m.form.CancelCmd = nil
	if m.width > 0 {
		m.form = m.form.WithWidth(min(m.width-4, 80))
	}
	m.focus = focusForm
	return m.form.Init()
}

func (m *Model) closeForm() {
	m.form = nil
	m.formPath = nil
	m.focus = focusTable
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
		m.closeForm()
		return m, nil
	}

	f, cmd := m.form.Update(msg)
	if f, ok := f.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		path := strings.TrimSpace(*m.formPath)
		m.closeForm()
		cmd := m.submit(path)
		return m, cmd
	case huh.StateAborted:
		m.closeForm()
		return m, nil
	}
	return m, cmd
}

// cycle returns the option after cur, wrapping through the zero value
// which stands for "no constraint".
func cycle[T comparable](opts []T, cur T) T {
	var zero T
	if cur == zero {
		if len(opts) > 0 {
			return opts[0]
		}
		return zero
	}
	for i, o := range opts {
		if o == cur && i+1 < len(opts) {
			return opts[i+1]
		}
	}
	return zero
}

func (m *Model) applyFilter() {
	rep := m.session.Report()
	if rep == nil {
		return
	}
	rep.ApplyFilter(report.Criteria{
		Query:  m.search.Value(),
		State:  m.stateFilter,
		Health: m.healthFilter,
	})
	m.clampCursor()
}

func (m *Model) clampCursor() {
	n := 0
	if rep := m.session.Report(); rep != nil {
		n = rep.VisibleCount()
	}
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
}

func (m Model) pageSize() int {
	return max(m.tableHeight()/2, 1)
}

// selected returns the row under the cursor.
func (m Model) selected() (report.Row, bool) {
	rep := m.session.Report()
	if rep == nil {
		return report.Row{}, false
	}
	rows := rep.VisibleRows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return report.Row{}, false
	}
	return rows[m.cursor], true
}

func (m *Model) toggleSelected() {
	row, ok := m.selected()
	if !ok {
		return
	}
	m.session.Report().ToggleDetail(row.Ordinal)
}

func (m *Model) openDetail() {
	if _, ok := m.selected(); !ok {
		return
	}
	m.focus = focusDetail
	m.refreshDetail()
	m.detail.GotoTop()
}

func (m *Model) refreshDetail() {
	row, ok := m.selected()
	if !ok {
		return
	}
	t, ok := m.session.Report().Thread(row.Ordinal)
	if !ok {
		return
	}
	m.detail.SetContent(renderMarkdown(threadMarkdown(t, row), m.detail.Width-2, m.theme))
}

func (m *Model) copySelected() {
	row, ok := m.selected()
	if !ok {
		return
	}
	if !row.Detail.HasTrace {
		m.status = "No stack trace to copy"
		return
	}
	if err := m.copyFn(row.Detail.StackTrace); err != nil {
		m.status = "Clipboard unavailable: " + err.Error()
		m.logger.Warn("clipboard write failed", "error", err)
		return
	}
	m.status = "Copied stack trace of " + format.SingleLine(row.Cells[report.ColName])
}

// syncScroll keeps the selected row, and its open trace, on screen.
func (m *Model) syncScroll() {
	if !m.session.HasReport() || m.width == 0 {
		return
	}
	row, ok := m.selected()
	if !ok {
		m.offset = 0
		return
	}
	lines := m.tableLines(layoutColumns(m.width), m.width)
	first, last := -1, -1
	for i, l := range lines {
		if l.ordinal == row.Ordinal {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	h := m.tableHeight()
	m.offset = scrollWindow(m.offset, last, h, len(lines))
	m.offset = scrollWindow(m.offset, first, h, len(lines))
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.helpOverlay.IsVisible() {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.helpOverlay.View())
	}
	if m.form != nil {
		return lipgloss.JoinVertical(lipgloss.Left, m.titleBar(), "", m.form.View())
	}

	top := m.topSection()
	footer := m.footer()

	if !m.session.HasReport() {
		hint := m.theme.Renderer.NewStyle().Foreground(m.theme.Subtext).Italic(true).
			Render("No thread dump analyzed yet. Press o to open one.")
		return lipgloss.JoinVertical(lipgloss.Left, top, "", hint, "", footer)
	}
	if m.focus == focusDetail {
		return lipgloss.JoinVertical(lipgloss.Left, m.titleBar(), m.detail.View(), footer)
	}
	return lipgloss.JoinVertical(lipgloss.Left, top, m.renderTable(m.tableHeight()), footer)
}

func (m Model) titleBar() string {
	title := m.theme.Renderer.NewStyle().Bold(true).Foreground(m.theme.Primary).Render("tdv")
	parts := []string{title + " thread dump viewer"}
	if src := m.session.Source(); src != "" {
		parts = append(parts, format.SingleLine(filepath.Base(src)))
	}
	if m.health != "" {
		color := m.theme.Success
		if m.health == "analyzer unreachable" {
			color = m.theme.Danger
		}
		parts = append(parts, m.theme.Renderer.NewStyle().Foreground(color).Render(m.health))
	}
	return strings.Join(parts, " · ")
}

// topSection renders everything above the table.
func (m Model) topSection() string {
	sections := []string{m.titleBar()}
	if msg := m.session.ErrorMessage(); msg != "" {
		sections = append(sections, m.theme.Renderer.NewStyle().
			Foreground(m.theme.Danger).Bold(true).
			Render("✗ "+format.SingleLine(msg)))
	}
	if m.session.Busy() {
		sections = append(sections, m.spinner.View()+" Analyzing "+format.SingleLine(filepath.Base(m.session.Pending()))+"…")
	}
	rep := m.session.Report()
	if rep == nil {
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}
	summary := renderSummary(rep.Summary(), m.width, m.theme)
	if m.width >= BreakpointWide {
		bars := lipgloss.JoinVertical(lipgloss.Left, renderStateBars(rep.Summary(), m.theme)...)
		summary = lipgloss.JoinHorizontal(lipgloss.Top, summary, "  ", bars)
	}
	sections = append(sections, summary)
	if cpu := renderCPUStats(rep.CPUStats(), m.theme); cpu != "" {
		sections = append(sections, cpu)
	}
	sections = append(sections, m.filterBar())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) filterBar() string {
	rep := m.session.Report()
	muted := m.theme.Renderer.NewStyle().Foreground(m.theme.Secondary)

	search := m.search.View()
	if m.focus != focusSearch {
		q := m.search.Value()
		if q == "" {
			q = muted.Render("—")
		}
		search = "Search: " + format.SingleLine(q)
	}
	state := "all"
	if m.stateFilter != "" {
		state = format.SingleLine(string(m.stateFilter))
	}
	health := "all"
	if m.healthFilter != "" {
		health = format.SingleLine(string(m.healthFilter))
	}
	count := muted.Render(fmt.Sprintf("%d of %d threads", rep.VisibleCount(), rep.Len()))
	return fmt.Sprintf("%s   State: %s   Health: %s   %s", search, state, health, count)
}

func (m Model) footer() string {
	var lines []string
	if m.focus == focusJump {
		lines = append(lines, m.jump.View())
	}
	if m.status != "" {
		lines = append(lines, m.theme.Renderer.NewStyle().Foreground(m.theme.Subtext).Render(m.status))
	}
	lines = append(lines, m.help.View(m.keys))
	return strings.Join(lines, "\n")
}

// tableHeight is the number of body lines available to the table.
func (m Model) tableHeight() int {
	used := lipgloss.Height(m.topSection()) + lipgloss.Height(m.footer()) + 1
	return max(m.height-used, MinContentHeight)
}

func (m Model) renderTable(height int) string {
	rep := m.session.Report()
	cols := layoutColumns(m.width)
	header := m.renderHeader(cols)

	if rep.NoResults() {
		empty := m.theme.Renderer.NewStyle().Foreground(m.theme.Subtext).Italic(true).
			Render("No threads match the current filter.")
		return lipgloss.JoinVertical(lipgloss.Left, header, empty)
	}

	lines := m.tableLines(cols, m.width)
	start := min(m.offset, len(lines))
	end := min(start+height, len(lines))
	out := make([]string, 0, end-start+1)
	out = append(out, header)
	for _, l := range lines[start:end] {
		out = append(out, l.text)
	}
	return strings.Join(out, "\n")
}
