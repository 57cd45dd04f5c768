// Package picker is the interactive browser for learned patterns.
package picker

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/arkantu/psicoscore/internal/patterns"
)

// Source supplies and deletes patterns.
type Source interface {
	ListPatterns(ctx context.Context) ([]patterns.LearnedPattern, error)
	DeletePattern(ctx context.Context, labelOrID string) (bool, error)
}

// pickerState represents the current state of the browser.
type pickerState int

const (
	stateIdle     pickerState = iota // Before the first load
	stateLoading                     // List in flight
	stateLoaded                      // At least one pattern
	stateEmpty                       // Store has no patterns
	stateError                       // Last operation failed
	stateDeleting                    // Delete in flight
	stateDone                        // User quit
)

type loadedMsg struct {
	items []patterns.LearnedPattern
	err   error
}

type deletedMsg struct {
	id  string
	ok  bool
	err error
}

type initMsg struct{}

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Delete key.Binding
	Reload key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Delete, k.Reload, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "subir")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "bajar")),
	Delete: key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "borrar")),
	Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "recargar")),
	Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "salir")),
}

// Model is the Bubble Tea model for the pattern browser.
type Model struct {
	state     pickerState
	source    Source
	items     []patterns.LearnedPattern
	selection int // -1 when empty
	deleted   int
	status    string
	err       error
	help      help.Model

	width  int
	height int
}

// NewModel creates a browser over source.
func NewModel(source Source) Model {
	return Model{
		state:     stateIdle,
		source:    source,
		selection: -1,
		help:      help.New(),
	}
}

// Deleted returns how many patterns were removed during the session.
func (m Model) Deleted() int {
	return m.deleted
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return func() tea.Msg { return initMsg{} }
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case initMsg:
		return m, m.startLoad()

	case loadedMsg:
		return m.handleLoaded(msg)

	case deletedMsg:
		return m.handleDeleted(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.state = stateDone
		return m, tea.Quit

	case key.Matches(msg, keys.Up):
		if m.selection > 0 {
			m.selection--
		}

	case key.Matches(msg, keys.Down):
		if m.selection < len(m.items)-1 {
			m.selection++
		}

	case key.Matches(msg, keys.Reload):
		if m.state != stateLoading && m.state != stateDeleting {
			return m, m.startLoad()
		}

	case key.Matches(msg, keys.Delete):
		if m.state == stateLoaded && m.selection >= 0 {
			return m, m.startDelete(m.items[m.selection])
		}
	}
	return m, nil
}

func (m Model) handleLoaded(msg loadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.state = stateError
		m.err = msg.err
		m.items = nil
		m.selection = -1
		return m, nil
	}
	m.err = nil
	m.items = msg.items
	if len(m.items) == 0 {
		m.state = stateEmpty
		m.selection = -1
		return m, nil
	}
	m.state = stateLoaded
	m.clampSelection()
	return m, nil
}

func (m Model) handleDeleted(msg deletedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.state = stateError
		m.err = msg.err
		return m, nil
	}
	if msg.ok {
		m.deleted++
		m.status = "Patrón eliminado."
	} else {
		m.status = "El patrón ya no existe."
	}
	return m, m.startLoad()
}

func (m *Model) startLoad() tea.Cmd {
	m.state = stateLoading
	src := m.source
	return func() tea.Msg {
		items, err := src.ListPatterns(context.Background())
		return loadedMsg{items: items, err: err}
	}
}

func (m *Model) startDelete(p patterns.LearnedPattern) tea.Cmd {
	m.state = stateDeleting
	src := m.source
	id := p.ID
	return func() tea.Msg {
		ok, err := src.DeletePattern(context.Background(), id)
		return deletedMsg{id: id, ok: ok, err: err}
	}
}

func (m *Model) clampSelection() {
	if len(m.items) == 0 {
		m.selection = -1
		return
	}
	m.selection = max(0, min(m.selection, len(m.items)-1))
}

// listHeight is the number of visible rows below the title and above the
// status and help lines.
func (m Model) listHeight() int {
	const chrome = 4
	h := m.height - chrome
	if h < 1 {
		h = 20
	}
	return h
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	normalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Patrones aprendidos (%d)", len(m.items))))
	b.WriteRune('\n')
	b.WriteString(m.viewContent())
	b.WriteRune('\n')
	if m.status != "" {
		b.WriteString(dimStyle.Render(m.status))
	}
	b.WriteRune('\n')
	b.WriteString(m.help.View(keys))
	return b.String()
}

func (m Model) viewContent() string {
	switch m.state {
	case stateIdle, stateLoading:
		return dimStyle.Render("Cargando...")
	case stateDeleting:
		return dimStyle.Render("Eliminando...")
	case stateEmpty:
		return dimStyle.Render("No hay patrones aprendidos.")
	case stateError:
		return errorStyle.Render(fmt.Sprintf("Error: %s", m.err))
	case stateLoaded:
		return m.viewList()
	}
	return ""
}

func (m Model) viewList() string {
	rows := m.listHeight()
	start := 0
	if m.selection >= rows {
		start = m.selection - rows + 1
	}
	end := min(len(m.items), start+rows)

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		line := FormatRow(m.items[i], m.width-2)
		if i == m.selection {
			lines = append(lines, selectedStyle.Render("> "+line))
		} else {
			lines = append(lines, normalStyle.Render("  "+line))
		}
	}
	return strings.Join(lines, "\n")
}

// FormatRow renders one pattern as a single line no wider than width
// columns. A non-positive width disables truncation.
func FormatRow(p patterns.LearnedPattern, width int) string {
	rng := fmt.Sprintf("%g", p.ScoreMin)
	if p.HasRange() {
		rng = fmt.Sprintf("%g–%g", p.ScoreMin, p.ScoreMax)
	}
	line := fmt.Sprintf("%s  %s  conf=%d  [%s]", Sanitize(p.Label), p.Type, p.Confidence, rng)
	if p.TestName != "" {
		line += "  " + Sanitize(p.TestName)
	}
	if width > 0 {
		line = MiddleTruncate(line, width)
	}
	return line
}
