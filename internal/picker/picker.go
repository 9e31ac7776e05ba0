package picker

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nikbrunner/gamecrate/internal/catalog"
	"github.com/nikbrunner/gamecrate/internal/search"
)

var (
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)

	ownedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true).
			MarginBottom(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("78"))
)

// Picker is a small TUI for choosing one catalog search result.
type Picker struct {
	results   []search.Result
	query     string
	format    *catalog.Formatter
	owned     map[string]bool
	copy      func(string) error
	status    string
	cursor    int
	selected  bool
	cancelled bool
	width     int
	height    int
}

// New creates a Picker over results. Games in owned are marked as
// already in the collection.
func New(results []search.Result, query string, format *catalog.Formatter, owned map[string]bool) Picker {
	return Picker{
		results: results,
		query:   query,
		format:  format,
		owned:   owned,
		copy:    clipboard.WriteAll,
		cursor:  0,
		width:   80,
		height:  24,
	}
}

// Init implements tea.Model.
func (p Picker) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		return p, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc, tea.KeyCtrlC:
			p.cancelled = true
			return p, tea.Quit

		case tea.KeyEnter:
			if len(p.results) == 0 {
				return p, nil
			}
			p.selected = true
			return p, tea.Quit

		case tea.KeyDown:
			p.moveDown()
			return p, nil

		case tea.KeyUp:
			p.moveUp()
			return p, nil
		}

		// Handle j/k vim keys
		if msg.Type == tea.KeyRunes {
			switch string(msg.Runes) {
			case "j":
				p.moveDown()
				return p, nil
			case "k":
				p.moveUp()
				return p, nil
			case "y":
				p.copyURL()
				return p, nil
			case "q":
				p.cancelled = true
				return p, tea.Quit
			}
		}
	}

	return p, nil
}

func (p *Picker) moveDown() {
	if p.cursor < len(p.results)-1 {
		p.cursor++
	}
	p.status = ""
}

func (p *Picker) moveUp() {
	if p.cursor > 0 {
		p.cursor--
	}
	p.status = ""
}

func (p *Picker) copyURL() {
	if p.cursor >= len(p.results) {
		return
	}
	url := catalog.StoreURL(p.results[p.cursor].Record.ID)
	if err := p.copy(url); err != nil {
		p.status = "copy failed: " + err.Error()
		return
	}
	p.status = "copied " + url
}

// View implements tea.Model.
func (p Picker) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("Search: %s (%d results)", p.query, len(p.results))))
	b.WriteString("\n\n")

	start, end := visibleRange(maxVisibleResults(p.height), p.cursor, len(p.results))
	for i := start; i < end; i++ {
		cursor := "  "
		style := normalStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedStyle
		}

		rec := p.results[i].Record
		title := style.Render(truncate(rec.Title, p.width-4))
		if p.owned[rec.ID] {
			title += " " + ownedStyle.Render("★")
		}
		detail := rec.ID
		if p.format != nil {
			detail = p.format.Price(rec) + "  " + rec.ID
		}

		b.WriteString(fmt.Sprintf("%s%s\n", cursor, title))
		b.WriteString(fmt.Sprintf("   %s\n", detailStyle.Render(truncate(detail, p.width-3))))
	}

	b.WriteString("\n")
	if p.status != "" {
		b.WriteString(statusStyle.Render(p.status))
		b.WriteString("\n")
	}
	b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Render("j/k: move  Enter: add  y: copy store URL  q/Esc: cancel"))

	return b.String()
}

// Selected returns the chosen record. ok is false when the picker was
// cancelled or nothing was chosen.
func (p Picker) Selected() (catalog.Record, bool) {
	if p.cancelled || !p.selected || p.cursor >= len(p.results) {
		return catalog.Record{}, false
	}
	return p.results[p.cursor].Record, true
}

// Cancelled returns true if the user cancelled the selection.
func (p Picker) Cancelled() bool {
	return p.cancelled
}

// Run shows the picker on the terminal and returns the chosen record.
func Run(results []search.Result, query string, format *catalog.Formatter, owned map[string]bool) (catalog.Record, bool, error) {
	final, err := tea.NewProgram(New(results, query, format, owned)).Run()
	if err != nil {
		return catalog.Record{}, false, fmt.Errorf("picker: %w", err)
	}
	rec, ok := final.(Picker).Selected()
	return rec, ok, nil
}
