package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ppiankov/dqlens/internal/filter"
	"github.com/ppiankov/dqlens/internal/models"
	"github.com/ppiankov/dqlens/internal/rules"
)

// mode represents the current UI interaction mode.
type mode int

const (
	modeNormal mode = iota
	modeSearch
)

const defaultTableHeight = 15

// Loader produces a fresh report. It is called from a tea.Cmd on reload.
type Loader func() (*models.QualityReport, error)

// Options configures the dashboard.
type Options struct {
	// Load reloads the report; nil disables reloading.
	Load Loader
	// Book holds the rules edited in this session; nil starts from the
	// report's rules.
	Book *rules.Book
	// Sparkline is the average score percent of recent history snapshots.
	Sparkline []int
	// Watch reloads on this interval when positive.
	Watch time.Duration
}

// loadedMsg carries the result of a reload. Responses with a sequence
// lower than the latest request are dropped.
type loadedMsg struct {
	seq    int
	report *models.QualityReport
	err    error
}

type tickMsg time.Time

// Model is the top-level Bubble Tea model for the dashboard.
type Model struct {
	report    *models.QualityReport
	book      *rules.Book
	load      Loader
	watch     time.Duration
	sparkline []int
	now       func() time.Time

	// UI state
	view           view
	table          table.Model
	searchInput    textinput.Model
	criteria       filter.Criteria
	categoryCursor int
	severityCursor int
	sortBy         [viewCount]int
	mode           mode
	loadSeq        int
	loading        bool
	width          int
	height         int
	statusMsg      string

	observations []models.MetricObservation
	tables       []models.TableQuality
	rules        []models.CustomRule
}

// New creates a dashboard model showing report.
func New(report *models.QualityReport, opts Options) Model {
	book := opts.Book
	if book == nil {
		book = rules.NewBook(report.Rules)
	}

	ti := textinput.New()
	ti.Placeholder = "search tables, schemas, databases, rules..."
	ti.CharLimit = 64

	m := Model{
		report:      report,
		book:        book,
		load:        opts.Load,
		watch:       opts.Watch,
		sparkline:   opts.Sparkline,
		now:         time.Now,
		view:        viewMetrics,
		searchInput: ti,
		criteria:    filter.Criteria{Category: filter.All, Severity: filter.All},
		mode:        modeNormal,
		width:       80,
		height:      24,
	}
	m.table = newTable(m.view, nil, defaultTableHeight)
	m.rebuildTable()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width)
		tableH := msg.Height - headerHeight - detailHeight - 4
		if tableH < 3 {
			tableH = 3
		}
		m.table.SetHeight(tableH)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		var reload tea.Cmd
		m, reload = m.reload()
		return m, tea.Batch(reload, m.tick())

	case loadedMsg:
		return m.handleLoaded(msg), nil
	}

	var cmd tea.Cmd
	switch m.mode {
	case modeSearch:
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	default:
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == modeSearch {
		return m.handleSearchKey(msg)
	}
	return m.handleNormalKey(msg)
}

func (m Model) handleNormalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Search):
		m.mode = modeSearch
		m.searchInput.SetValue(m.criteria.Search)
		m.searchInput.Focus()
		return m, textinput.Blink
	case key.Matches(msg, keys.Category):
		m.cycleFilter()
		return m, nil
	case key.Matches(msg, keys.Sort):
		options := sortOptions[m.view]
		m.sortBy[m.view] = (m.sortBy[m.view] + 1) % len(options)
		m.rebuildTable()
		m.statusMsg = fmt.Sprintf("Sort: %s", options[m.sortBy[m.view]])
		return m, nil
	case key.Matches(msg, keys.NextView):
		m.switchView((m.view + 1) % viewCount)
		return m, nil
	case key.Matches(msg, keys.PrevView):
		m.switchView((m.view + viewCount - 1) % viewCount)
		return m, nil
	case key.Matches(msg, keys.Toggle):
		m.toggleSelectedRule()
		return m, nil
	case key.Matches(msg, keys.Delete):
		m.deleteSelectedRule()
		return m, nil
	case key.Matches(msg, keys.Reload):
		return m.reload()
	case key.Matches(msg, keys.ClearFilter):
		m.criteria = filter.Criteria{Category: filter.All, Severity: filter.All}
		m.categoryCursor = 0
		m.severityCursor = 0
		m.statusMsg = ""
		m.rebuildTable()
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.criteria.Search = m.searchInput.Value()
		m.mode = modeNormal
		m.searchInput.Blur()
		m.rebuildTable()
		return m, nil
	case "esc":
		m.mode = modeNormal
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// cycleFilter advances the category filter, or the severity filter on the
// rules view.
func (m *Model) cycleFilter() {
	if m.view == viewRules {
		choices := severityChoices()
		m.severityCursor = (m.severityCursor + 1) % len(choices)
		m.criteria.Severity = choices[m.severityCursor]
		m.statusMsg = fmt.Sprintf("Severity: %s", m.criteria.Severity)
	} else {
		choices := categoryChoices()
		m.categoryCursor = (m.categoryCursor + 1) % len(choices)
		m.criteria.Category = choices[m.categoryCursor]
		m.statusMsg = fmt.Sprintf("Category: %s", m.criteria.Category)
	}
	m.rebuildTable()
}

func (m *Model) switchView(v view) {
	m.view = v
	m.statusMsg = ""
	m.table.SetRows(nil)
	m.table.SetColumns(viewColumns[v])
	m.rebuildTable()
	m.table.SetCursor(0)
}

func (m *Model) rebuildTable() {
	var rows []table.Row
	field := sortOptions[m.view][m.sortBy[m.view]]

	switch m.view {
	case viewMetrics:
		m.observations = filter.Observations(m.report.Observations(), m.criteria)
		sortObservations(m.observations, field)
		rows = observationRows(m.observations)
	case viewTables:
		m.tables = filter.Tables(m.report.Tables, filter.Criteria{
			Search:   m.criteria.Search,
			Category: m.criteria.Category,
		})
		sortTables(m.tables, field)
		rows = tableRows(m.tables)
	case viewRules:
		m.rules = filter.Rules(m.book.List(), m.criteria)
		sortRules(m.rules, field)
		rows = ruleRows(m.rules)
	}

	m.table.SetRows(rows)
}

func (m *Model) selectedObservation() *models.MetricObservation {
	cursor := m.table.Cursor()
	if m.view != viewMetrics || cursor < 0 || cursor >= len(m.observations) {
		return nil
	}
	return &m.observations[cursor]
}

func (m *Model) selectedTable() *models.TableQuality {
	cursor := m.table.Cursor()
	if m.view != viewTables || cursor < 0 || cursor >= len(m.tables) {
		return nil
	}
	return &m.tables[cursor]
}

func (m *Model) selectedRule() *models.CustomRule {
	cursor := m.table.Cursor()
	if m.view != viewRules || cursor < 0 || cursor >= len(m.rules) {
		return nil
	}
	return &m.rules[cursor]
}

func (m *Model) toggleSelectedRule() {
	r := m.selectedRule()
	if r == nil {
		return
	}
	updated, err := m.book.Toggle(r.ID)
	if err != nil {
		m.statusMsg = err.Error()
		return
	}
	state := "disabled"
	if updated.Enabled {
		state = "enabled"
	}
	m.statusMsg = fmt.Sprintf("%s %s", updated.Name, state)
	m.rebuildTable()
}

func (m *Model) deleteSelectedRule() {
	r := m.selectedRule()
	if r == nil {
		return
	}
	name := r.Name
	if err := m.book.Delete(r.ID); err != nil {
		m.statusMsg = err.Error()
		return
	}
	m.statusMsg = fmt.Sprintf("Deleted %s", name)
	m.rebuildTable()
}

// reload issues a load with a new sequence number.
func (m Model) reload() (Model, tea.Cmd) {
	if m.load == nil {
		m.statusMsg = "Reload unavailable"
		return m, nil
	}
	m.loadSeq++
	m.loading = true
	m.statusMsg = "Reloading..."

	seq, load := m.loadSeq, m.load
	return m, func() tea.Msg {
		report, err := load()
		return loadedMsg{seq: seq, report: report, err: err}
	}
}

func (m Model) handleLoaded(msg loadedMsg) Model {
	if msg.seq < m.loadSeq {
		return m
	}
	m.loading = false
	if msg.err != nil {
		m.statusMsg = fmt.Sprintf("Reload failed: %v", msg.err)
		return m
	}
	if msg.report == nil {
		m.statusMsg = "Reload failed: empty report"
		return m
	}
	m.report = msg.report
	m.statusMsg = fmt.Sprintf("Reloaded %s", msg.report.Timestamp.Format("15:04:05"))
	m.rebuildTable()
	return m
}

func (m Model) tick() tea.Cmd {
	if m.watch <= 0 {
		return nil
	}
	return tea.Tick(m.watch, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) activeRules() int {
	n := 0
	for _, r := range m.book.List() {
		if r.Enabled {
			n++
		}
	}
	return n
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(renderHeader(m.report, m.activeRules(), m.book.Len(), m.sparkline, m.width))
	b.WriteString("\n")
	b.WriteString(renderTabs(m.view))
	b.WriteString("\n")

	// Search bar overlay
	if m.mode == modeSearch {
		b.WriteString(styleSearchPrompt.Render("/ "))
		b.WriteString(m.searchInput.View())
		b.WriteString("\n")
	}

	// Table
	b.WriteString(m.table.View())
	b.WriteString("\n")

	// Detail panel
	switch m.view {
	case viewMetrics:
		b.WriteString(renderObservationDetail(m.selectedObservation(), m.width))
	case viewTables:
		b.WriteString(renderTableDetail(m.selectedTable(), m.width))
	case viewRules:
		b.WriteString(renderRuleDetail(m.selectedRule(), m.now(), m.width))
	}
	b.WriteString("\n")

	// Footer
	b.WriteString(m.renderFooter())

	return b.String()
}

func (m *Model) renderFooter() string {
	left := "q:quit  tab:view  /:search  c:filter  s:sort  r:reload  esc:clear"
	if m.view == viewRules {
		left += "  space:toggle  x:delete"
	}

	var right string
	switch m.view {
	case viewMetrics:
		right = fmt.Sprintf("%d/%d observations", len(m.observations), len(m.report.Observations()))
	case viewTables:
		right = fmt.Sprintf("%d/%d tables", len(m.tables), len(m.report.Tables))
	case viewRules:
		right = fmt.Sprintf("%d/%d rules", len(m.rules), m.book.Len())
	}

	if m.statusMsg != "" {
		right = m.statusMsg + "  " + right
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return styleFooter.Render(left + strings.Repeat(" ", gap) + right)
}

// Run starts the Bubble Tea program. Called from the dashboard command.
func Run(report *models.QualityReport, opts Options) error {
	m := New(report, opts)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
