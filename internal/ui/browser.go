package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/progress"
)

// SortOrder of the progress browser.
type SortOrder int

const (
	SortByName SortOrder = iota
	SortMostWatched
	SortLeastWatched
)

func (o SortOrder) String() string {
	switch o {
	case SortMostWatched:
		return "most watched"
	case SortLeastWatched:
		return "least watched"
	default:
		return "title"
	}
}

var browserColumns = []table.Column{
	{Title: "Show", Width: 36},
	{Title: "Year", Width: 6},
	{Title: "Status", Width: 12},
	{Title: "Seen", Width: 9},
	{Title: "Collected", Width: 10},
	{Title: "Episodes", Width: 12},
	{Title: "Specials", Width: 10},
}

// Browser is an interactive table of one user's show progress. Keys: s
// cycles the sort order, / filters by title, q quits.
type Browser struct {
	user      string
	rows      []progress.Row
	order     SortOrder
	filter    textinput.Model
	filtering bool
	table     table.Model
}

func NewBrowser(user string, rows []progress.Row) Browser {
	filter := textinput.New()
	filter.Placeholder = "filter titles"
	filter.Prompt = "/ "
	filter.CharLimit = 64

	t := table.New(
		table.WithColumns(browserColumns),
		table.WithFocused(true),
		table.WithHeight(20),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).Bold(true)
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	t.SetStyles(styles)

	b := Browser{user: user, rows: rows, filter: filter, table: t}
	b.refresh()
	return b
}

// Visible returns the rows currently shown, in display order.
func (b Browser) Visible() []progress.Row {
	var rows []progress.Row
	switch b.order {
	case SortMostWatched:
		rows = progress.MostWatched(b.rows)
	case SortLeastWatched:
		rows = progress.LeastWatched(b.rows)
	default:
		rows = b.rows
	}

	q := strings.ToLower(strings.TrimSpace(b.filter.Value()))
	if q == "" {
		return rows
	}
	var out []progress.Row
	for _, r := range rows {
		if strings.Contains(strings.ToLower(r.Name), q) {
			out = append(out, r)
		}
	}
	return out
}

func (b *Browser) refresh() {
	visible := b.Visible()
	rows := make([]table.Row, 0, len(visible))
	for _, r := range visible {
		rows = append(rows, table.Row{
			r.Name,
			r.StartYear,
			r.Status,
			fmt.Sprintf("%.1f%%", r.PercentSeen),
			fmt.Sprintf("%.1f%%", r.PercentCollected),
			fmt.Sprintf("%d/%d", r.SeenEpisodes, r.Total),
			strconv.Itoa(r.SeenSpecials) + "/" + strconv.Itoa(r.CollectedSpecials),
		})
	}
	b.table.SetRows(rows)
	b.table.SetCursor(0)
}

func (b Browser) Init() tea.Cmd { return nil }

func (b Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.table.SetHeight(max(msg.Height-6, 5))
		return b, nil

	case tea.KeyMsg:
		if b.filtering {
			return b.updateFilter(msg)
		}
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return b, tea.Quit
		case "s":
			b.order = (b.order + 1) % 3
			b.refresh()
			return b, nil
		case "/":
			b.filtering = true
			return b, b.filter.Focus()
		}
	}

	var cmd tea.Cmd
	b.table, cmd = b.table.Update(msg)
	return b, cmd
}

func (b Browser) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return b, tea.Quit
	case "enter", "esc":
		b.filtering = false
		b.filter.Blur()
		if msg.String() == "esc" {
			b.filter.SetValue("")
		}
		b.refresh()
		return b, nil
	}
	var cmd tea.Cmd
	b.filter, cmd = b.filter.Update(msg)
	b.refresh()
	return b, cmd
}

func (b Browser) View() string {
	var s strings.Builder
	s.WriteString(Title(fmt.Sprintf("Show progress for %s", b.user)))
	s.WriteString(Dim(fmt.Sprintf("  (%d shows, sorted by %s)", len(b.Visible()), b.order)))
	s.WriteString("\n\n")
	s.WriteString(b.table.View())
	s.WriteString("\n")
	if b.filtering || b.filter.Value() != "" {
		s.WriteString(b.filter.View())
		s.WriteString("\n")
	}
	s.WriteString(Dim("s sort • / filter • ↑/↓ move • q quit"))
	s.WriteString("\n")
	return s.String()
}

// Browse runs the browser until the user quits.
func Browse(user string, rows []progress.Row) error {
	_, err := tea.NewProgram(NewBrowser(user, rows), tea.WithAltScreen()).Run()
	return err
}
