// Package app is the terminal front end. It renders store snapshots and turns
// key presses into deletion intents; it never mutates list state itself.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"reprieve/internal/coordinator"
	"reprieve/internal/logging"
	"reprieve/internal/reconcile"
	"reprieve/internal/state"
	"reprieve/internal/types"
)

const (
	defaultPageSize = 50
	loadAheadLines  = 3
	minListHeight   = 3
)

// DeletionIntents is the part of the deletion coordinator the UI drives.
type DeletionIntents interface {
	Request(scope types.Scope, refs []types.ItemRef) (string, error)
	Undo(scope types.Scope, token string) error
	Flush(ctx context.Context, scope types.Scope) error
	FlushAll(ctx context.Context) error
}

// PageLoader fetches one page of a scope's source list.
type PageLoader interface {
	Page(ctx context.Context, scope types.Scope, cursor string, limit int) (types.SourceList, error)
}

type Options struct {
	Store    *state.Store
	Intents  DeletionIntents
	Pages    PageLoader
	Scopes   []types.Scope
	Scope    types.Scope
	Buckets  string
	PageSize int
	Now      func() time.Time
	Logger   logging.Logger
}

type Model struct {
	store      *state.Store
	intents    DeletionIntents
	pages      PageLoader
	projection *state.Projection
	bridge     *storeBridge
	logger     logging.Logger
	now        func() time.Time
	pageSize   int

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	scopes     []types.Scope
	scopeIndex int
	requested  map[types.Scope]bool
	loading    map[types.Scope]bool

	visible    types.VisibleList
	lines      []listLine
	cursor     int
	offset     int
	marked     map[types.ItemRef]struct{}
	lastToken  map[types.Scope]string
	episode    types.EpisodeSnapshot
	hasEpisode bool
	day        string

	status      string
	statusLevel statusLevel
	showHelp    bool
	quitting    bool
	width       int
	height      int
}

func NewModel(opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	scopes := append([]types.Scope(nil), opts.Scopes...)
	if len(scopes) == 0 {
		scopes = types.DefaultScopes()
	}
	scopeIndex := 0
	for i, scope := range scopes {
		if scope == opts.Scope {
			scopeIndex = i
		}
	}
	loader := spinner.New()
	loader.Spinner = spinner.Line
	loader.Style = lipgloss.NewStyle()

	m := Model{
		store:      opts.Store,
		intents:    opts.Intents,
		pages:      opts.Pages,
		logger:     logger.With(logging.F("component", "ui")),
		now:        now,
		pageSize:   pageSize,
		keys:       newKeyMap(),
		help:       help.New(),
		spinner:    loader,
		scopes:     scopes,
		scopeIndex: scopeIndex,
		requested:  map[types.Scope]bool{},
		loading:    map[types.Scope]bool{},
		marked:     map[types.ItemRef]struct{}{},
		lastToken:  map[types.Scope]string{},
		day:        now().Format(time.DateOnly),
	}
	bucketMode := opts.Buckets
	m.projection = state.NewProjection(func() reconcile.Bucketer {
		return reconcile.BucketerForMode(bucketMode, now())
	}, nil)
	if m.store != nil {
		m.bridge = newStoreBridge(m.store)
		m.applyState(m.store.State())
	}
	return m
}

// Run starts the UI and blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	model := NewModel(opts)
	defer model.Close()
	p := tea.NewProgram(&model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m *Model) Close() {
	if m.bridge != nil {
		m.bridge.Close()
	}
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(), m.spinner.Tick, m.ensureLoadedCmd()}
	if m.bridge != nil {
		cmds = append(cmds, m.bridge.wait())
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.clampOffset()
		return m, nil
	case stateMsg:
		m.applyState(msg.state)
		return m, tea.Batch(m.bridge.wait(), m.loadMoreCmd())
	case pageLoadedMsg:
		return m, m.handlePageLoaded(msg)
	case flushDoneMsg:
		if msg.err != nil {
			m.setStatus(statusError, "delete failed: "+msg.err.Error())
		}
		return m, nil
	case quitFlushedMsg:
		if msg.err != nil {
			m.logger.Warn("quit_flush_failed", logging.F("error", msg.err))
		}
		return m, tea.Quit
	case tickMsg:
		m.onTick(time.Time(msg))
		return m, tickCmd()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.quitting {
		return nil
	}
	if m.showHelp && !key.Matches(msg, m.keys.Quit) {
		if key.Matches(msg, m.keys.Help) || msg.String() == "esc" {
			m.showHelp = false
		}
		return nil
	}
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return nil
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
		return m.loadMoreCmd()
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
		return m.loadMoreCmd()
	case key.Matches(msg, m.keys.Mark):
		m.toggleMark()
		return nil
	case key.Matches(msg, m.keys.Delete):
		m.deleteSelection()
		return nil
	case key.Matches(msg, m.keys.Undo):
		m.undo()
		return nil
	case key.Matches(msg, m.keys.Flush):
		if m.intents == nil {
			return nil
		}
		return flushCmd(m.intents, m.currentScope())
	case key.Matches(msg, m.keys.NextScope):
		m.nextScope()
		return m.ensureLoadedCmd()
	case key.Matches(msg, m.keys.CopyURL):
		m.copySelectedURL()
		return nil
	}
	return nil
}

func (m *Model) View() string {
	if m.quitting {
		return "finishing pending deletions…\n"
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	header := m.headerLine()
	if m.showHelp {
		body := helpOverlayStyle.Render(renderMarkdown(helpMarkdown, max(20, width-4)))
		return lipgloss.JoinVertical(lipgloss.Left, header, body, m.statusLine())
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, m.listView(width), m.statusLine())
}

func (m *Model) headerLine() string {
	parts := []string{titleStyle.Render("reprieve")}
	for i, scope := range m.scopes {
		if i == m.scopeIndex {
			parts = append(parts, scopeActiveStyle.Render(string(scope)))
			continue
		}
		parts = append(parts, scopeStyle.Render(string(scope)))
	}
	return strings.Join(parts, " ")
}

func (m *Model) listView(width int) string {
	if len(m.lines) == 0 {
		text := "nothing here"
		if m.loading[m.currentScope()] {
			text = m.spinner.View() + " loading"
		}
		return emptyStyle.Render(text)
	}
	height := m.listHeight()
	end := min(len(m.lines), m.offset+height)
	rendered := make([]string, 0, end-m.offset)
	for i := m.offset; i < end; i++ {
		line := m.lines[i]
		_, marked := m.marked[line.ref]
		rendered = append(rendered, line.render(width, i == m.cursor, marked && line.selectable()))
	}
	return strings.Join(rendered, "\n")
}

func (m *Model) listHeight() int {
	if m.height <= 0 {
		return max(len(m.lines), minListHeight)
	}
	return max(minListHeight, m.height-2)
}

func (m *Model) currentScope() types.Scope {
	if len(m.scopes) == 0 {
		return ""
	}
	return m.scopes[m.scopeIndex]
}

// applyState folds a store snapshot into the view: the projection recomputes
// changed scopes and the current scope's lines are rebuilt, keeping the
// cursor on the same ref when it is still visible.
func (m *Model) applyState(s state.State) {
	m.projection.Apply(s)
	scope := m.currentScope()
	episode, ok := s.Episode(scope)
	if ok != m.hasEpisode || episode.Token != m.episode.Token || episode.State != m.episode.State {
		m.clearStatus()
	}
	m.episode, m.hasEpisode = episode, ok
	if ok && episode.State.Live() {
		m.lastToken[scope] = episode.Token
	}
	m.refreshLines()
}

func (m *Model) refreshLines() {
	scope := m.currentScope()
	visible, ok := m.projection.Visible(scope)
	if !ok {
		visible = types.VisibleList{Scope: scope}
	}
	var current types.ItemRef
	hadCursor := m.cursor >= 0 && m.cursor < len(m.lines)
	if hadCursor {
		current = m.lines[m.cursor].ref
	}
	m.visible = visible
	m.lines = buildLines(visible)
	for ref := range m.marked {
		if !visible.Contains(ref) && !containsGroup(visible, ref) {
			delete(m.marked, ref)
		}
	}
	if hadCursor {
		for i, line := range m.lines {
			if line.selectable() && line.ref == current {
				m.cursor = i
				m.clampOffset()
				return
			}
		}
	}
	m.cursor = min(m.cursor, len(m.lines)-1)
	m.snapCursor(1)
	m.clampOffset()
}

func containsGroup(v types.VisibleList, ref types.ItemRef) bool {
	if !ref.IsGroup() {
		return false
	}
	for _, row := range v.Rows {
		if row.Entry.IsGroup() && row.Entry.Group.ID == ref.GroupID {
			return true
		}
	}
	return false
}

// snapCursor moves the cursor off header lines, preferring dir.
func (m *Model) snapCursor(dir int) {
	if len(m.lines) == 0 {
		m.cursor = 0
		return
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	for _, step := range []int{dir, -dir} {
		for i := m.cursor; i >= 0 && i < len(m.lines); i += step {
			if m.lines[i].selectable() {
				m.cursor = i
				return
			}
		}
	}
}

func (m *Model) moveCursor(delta int) {
	if len(m.lines) == 0 {
		return
	}
	next := m.cursor + delta
	for next >= 0 && next < len(m.lines) && !m.lines[next].selectable() {
		next += delta
	}
	if next < 0 || next >= len(m.lines) {
		return
	}
	m.cursor = next
	m.clampOffset()
}

func (m *Model) clampOffset() {
	height := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+height {
		m.offset = m.cursor - height + 1
	}
	// Keep a bucket header in view above its first row.
	if m.offset > 0 && m.offset == m.cursor && !m.lines[m.offset-1].selectable() {
		m.offset--
	}
	m.offset = max(0, min(m.offset, max(0, len(m.lines)-height)))
}

func (m *Model) selected() (listLine, bool) {
	if m.cursor < 0 || m.cursor >= len(m.lines) || !m.lines[m.cursor].selectable() {
		return listLine{}, false
	}
	return m.lines[m.cursor], true
}

func (m *Model) toggleMark() {
	line, ok := m.selected()
	if !ok {
		return
	}
	if _, marked := m.marked[line.ref]; marked {
		delete(m.marked, line.ref)
	} else {
		m.marked[line.ref] = struct{}{}
	}
	m.moveCursor(1)
}

// selectionRefs returns the marked refs, or the ref under the cursor when
// nothing is marked.
func (m *Model) selectionRefs() []types.ItemRef {
	if len(m.marked) > 0 {
		refs := make([]types.ItemRef, 0, len(m.marked))
		for ref := range m.marked {
			refs = append(refs, ref)
		}
		return types.NormalizeItemRefs(refs)
	}
	line, ok := m.selected()
	if !ok {
		return nil
	}
	return []types.ItemRef{line.ref}
}

func (m *Model) deleteSelection() {
	if m.intents == nil {
		return
	}
	refs := m.selectionRefs()
	if len(refs) == 0 {
		m.setStatus(statusWarning, "nothing selected")
		return
	}
	scope := m.currentScope()
	token, err := m.intents.Request(scope, refs)
	if err != nil {
		m.setStatus(statusError, "delete failed: "+err.Error())
		return
	}
	m.lastToken[scope] = token
	clear(m.marked)
	m.logger.Debug("ui_delete_requested",
		logging.F("scope", scope),
		logging.F("token", token),
		logging.F("items", types.ItemRefs(refs)),
	)
}

func (m *Model) undo() {
	if m.intents == nil {
		return
	}
	scope := m.currentScope()
	token := m.lastToken[scope]
	if token == "" {
		m.setStatus(statusWarning, "nothing to undo")
		return
	}
	err := m.intents.Undo(scope, token)
	switch coordinator.KindOf(err) {
	case "":
		if err != nil {
			m.setStatus(statusError, "undo failed: "+err.Error())
		}
	case coordinator.ErrorTooLate:
		m.setStatus(statusWarning, "too late to undo, deletion already started")
	case coordinator.ErrorInvalidRequest:
		delete(m.lastToken, scope)
		m.setStatus(statusWarning, "nothing to undo")
	default:
		m.setStatus(statusError, "undo failed: "+err.Error())
	}
}

func (m *Model) nextScope() {
	if len(m.scopes) < 2 {
		return
	}
	m.scopeIndex = (m.scopeIndex + 1) % len(m.scopes)
	m.cursor = 0
	m.offset = 0
	m.lines = nil
	clear(m.marked)
	m.clearStatus()
	if m.store != nil {
		m.applyState(m.store.State())
	}
}

func (m *Model) copySelectedURL() {
	line, ok := m.selected()
	if !ok {
		return
	}
	if line.url == "" {
		m.setStatus(statusWarning, fmt.Sprintf("%s has no url", line.title))
		return
	}
	m.copyWithStatus(line.url, "copied "+line.url)
}

func (m *Model) quit() tea.Cmd {
	m.quitting = true
	if m.intents == nil {
		return tea.Quit
	}
	return flushAllCmd(m.intents)
}

func (m *Model) onTick(now time.Time) {
	day := now.Format(time.DateOnly)
	if day != m.day && m.store != nil {
		m.day = day
		m.projection.Refresh(m.store.State())
		m.refreshLines()
	}
}

func (m *Model) ensureLoadedCmd() tea.Cmd {
	scope := m.currentScope()
	if m.pages == nil || scope == "" || m.requested[scope] {
		return nil
	}
	m.requested[scope] = true
	m.loading[scope] = true
	return loadPageCmd(m.pages, scope, "", m.pageSize)
}

// loadMoreCmd fetches the next page when every loaded row is pending or the
// cursor is close to the end of what is loaded.
func (m *Model) loadMoreCmd() tea.Cmd {
	scope := m.currentScope()
	if m.pages == nil || m.store == nil || m.loading[scope] || !m.visible.HasMore {
		return nil
	}
	if !m.visible.NeedsMore && m.cursor < len(m.lines)-loadAheadLines {
		return nil
	}
	list := m.store.State().List(scope)
	if list.Cursor == "" {
		return nil
	}
	m.loading[scope] = true
	return loadPageCmd(m.pages, scope, list.Cursor, m.pageSize)
}

func (m *Model) handlePageLoaded(msg pageLoadedMsg) tea.Cmd {
	m.loading[msg.scope] = false
	if msg.err != nil {
		m.setStatus(statusError, fmt.Sprintf("load %s failed: %v", msg.scope, msg.err))
		m.logger.Warn("ui_page_load_failed", logging.F("scope", msg.scope), logging.F("error", msg.err))
		return nil
	}
	if m.store == nil {
		return nil
	}
	if msg.cursor == "" {
		m.store.Dispatch(state.ListLoaded{Scope: msg.scope, List: msg.page})
	} else {
		m.store.Dispatch(state.ListPageAppended{Scope: msg.scope, Page: msg.page})
	}
	return nil
}
