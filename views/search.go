// Package views holds the interactive terminal screens of the CLI.
package views

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"nourish/async"
	"nourish/models"
)

const maxResults = 12

// SearchFunc looks foods up by free text.
type SearchFunc func(ctx context.Context, q string) ([]models.Food, error)

type searchKeys struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Quit   key.Binding
}

func (k searchKeys) ShortHelp() []key.Binding { return []key.Binding{k.Up, k.Down, k.Select, k.Quit} }

func (k searchKeys) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

var defaultSearchKeys = searchKeys{
	Up:     key.NewBinding(key.WithKeys("up", "ctrl+p"), key.WithHelp("↑", "previous")),
	Down:   key.NewBinding(key.WithKeys("down", "ctrl+n"), key.WithHelp("↓", "next")),
	Select: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	Quit:   key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	sourceStyles = map[models.FoodSource]lipgloss.Style{
		models.SourceCatalog:  lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		models.SourceCustom:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.SourceExternal: lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
	}
)

type resultsMsg struct{}

// SearchModel is search-as-you-type over the food database. Keystrokes go
// through a Debouncer; the settled query runs through a fenced Operation,
// so a slow response for an old query never replaces newer results.
type SearchModel struct {
	input   textinput.Model
	spinner spinner.Model
	help    help.Model
	keys    searchKeys

	op      *async.Operation[string, []models.Food]
	deb     *async.Debouncer
	updates chan struct{}
	done    chan struct{}
	once    sync.Once
	minLen  int

	pending  bool
	cursor   int
	selected *models.Food
	width    int
}

// NewSearchModel builds the model. wait and minLen fall back to the
// debouncer defaults when zero.
func NewSearchModel(search SearchFunc, wait time.Duration, minLen int) *SearchModel {
	ti := textinput.New()
	ti.Placeholder = "Search foods..."
	ti.CharLimit = 100
	ti.Width = 40
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = cursorStyle

	if minLen <= 0 {
		minLen = async.DefaultMinLength
	}
	m := &SearchModel{
		input:   ti,
		spinner: sp,
		help:    help.New(),
		keys:    defaultSearchKeys,
		op:      async.New(async.Func[string, []models.Food](search)),
		updates: make(chan struct{}, 1),
		done:    make(chan struct{}),
		minLen:  minLen,
	}
	m.deb = async.NewDebouncer(wait, minLen, func(ctx context.Context, q string) {
		if res := m.op.Execute(ctx, q); res.Stale || res.Canceled {
			return
		}
		select {
		case m.updates <- struct{}{}:
		default:
		}
	})
	return m
}

// Selected is the food chosen with enter, or nil when the user quit.
func (m *SearchModel) Selected() *models.Food { return m.selected }

// Close stops pending searches. Safe to call more than once.
func (m *SearchModel) Close() {
	m.once.Do(func() {
		m.deb.Close()
		m.op.Discard()
		close(m.done)
	})
}

func (m *SearchModel) waitForResults() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.updates:
			return resultsMsg{}
		case <-m.done:
			return nil
		}
	}
}

func (m *SearchModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.waitForResults())
}

func (m *SearchModel) results() []models.Food {
	if !m.searchable() {
		return nil
	}
	res := m.op.State().Data
	if len(res) > maxResults {
		res = res[:maxResults]
	}
	return res
}

func (m *SearchModel) searchable() bool {
	return len([]rune(strings.TrimSpace(m.input.Value()))) >= m.minLen
}

func (m *SearchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case resultsMsg:
		m.pending = false
		if n := len(m.results()); m.cursor >= n {
			m.cursor = 0
		}
		return m, m.waitForResults()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.Close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Select):
			if res := m.results(); len(res) > 0 {
				f := res[m.cursor]
				m.selected = &f
				m.Close()
				return m, tea.Quit
			}
			return m, nil
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.results())-1 {
				m.cursor++
			}
			return m, nil
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != before {
		m.pending = m.deb.Input(v)
		m.cursor = 0
	}
	return m, cmd
}

func (m *SearchModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Find a food"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	st := m.op.State()
	switch {
	case !m.searchable():
		b.WriteString(dimStyle.Render(fmt.Sprintf("Type at least %d characters", m.minLen)))
	case m.pending || st.Loading:
		b.WriteString(m.spinner.View() + " Searching...")
	case st.Err != nil:
		b.WriteString(errorStyle.Render(st.Message()))
	case len(st.Data) == 0:
		b.WriteString(dimStyle.Render("No foods found"))
	default:
		for i, f := range m.results() {
			prefix := "  "
			name := f.Name
			if i == m.cursor {
				prefix = cursorStyle.Render("> ")
				name = cursorStyle.Render(name)
			}
			b.WriteString(prefix + name)
			if f.Brand != "" {
				b.WriteString(dimStyle.Render(" (" + f.Brand + ")"))
			}
			src := f.Source()
			b.WriteString(" " + sourceStyles[src].Render("["+string(src)+"]"))
			b.WriteString(dimStyle.Render(fmt.Sprintf("  %.0f cal/%s", f.Calories, per(f))))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func per(f models.Food) string {
	if f.Per != "" {
		return f.Per
	}
	if f.Source() == models.SourceCustom && f.ServingSize > 0 {
		return fmt.Sprintf("%gg", f.ServingSize)
	}
	return "100g"
}
