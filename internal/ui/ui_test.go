package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/progress"
)

func init() {
	DisableColors()
}

func TestTableRender(t *testing.T) {
	tbl := NewTable("User", "Movies")
	tbl.AddRow("alice", "12")
	tbl.AddRow("bob")

	var buf bytes.Buffer
	tbl.Render(&buf)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")

	require.Len(t, lines, 6)
	assert.Equal(t, "┌───────┬────────┐", lines[0])
	assert.Equal(t, "│ User  │ Movies │", lines[1])
	assert.Equal(t, "│ alice │ 12     │", lines[3])
	assert.Equal(t, "│ bob   │        │", lines[4])
	assert.Equal(t, 2, tbl.Len())
}

func TestTableShrinksToMaxWidth(t *testing.T) {
	tbl := NewTable("Title")
	tbl.SetMaxWidth(20)
	tbl.AddRow(strings.Repeat("x", 40))

	var buf bytes.Buffer
	tbl.Render(&buf)
	assert.Contains(t, buf.String(), "│ xxxxx... │")
	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), 20)
	}
}

func TestCompactTable(t *testing.T) {
	var buf bytes.Buffer
	CompactTable(&buf, []string{"Mode", "Status"}, [][]string{{"full", "success"}})
	assert.Equal(t, "Mode    Status\n──────  ─────────\nfull    success\n", buf.String())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd...", truncate("abcdefghij", 7))
	assert.Equal(t, "ab", truncate("abcdefghij", 2))
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "1.5s", FormatDuration(1500*time.Millisecond))
	assert.Equal(t, "2.0m", FormatDuration(2*time.Minute))
	assert.Equal(t, "1,234,567", FormatCount(1234567))
	assert.Equal(t, "never", FormatAgo(time.Time{}))
	assert.Equal(t, "Lookups Failed", Label("lookups_failed"))
	assert.Equal(t, "100.0%", Percent(100))
	assert.Equal(t, "Success", Status("success"))
}

func TestProgressBarPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBar(&buf, "full run")
	for _, p := range []float64{0, 5, 10, 10, 55, 100, 100} {
		bar.Report(p)
	}
	bar.Finish()
	assert.Equal(t, "full run: 0%\nfull run: 10%\nfull run: 100%\n", buf.String())
}

func browserRows() []progress.Row {
	return []progress.Row{
		{Id: "a", Name: "Alpha", PercentSeen: 20, Total: 10},
		{Id: "b", Name: "Beta", PercentSeen: 90, Total: 10},
		{Id: "c", Name: "Gamma", PercentSeen: 50, Total: 10},
	}
}

func names(rows []progress.Row) []string {
	var out []string
	for _, r := range rows {
		out = append(out, r.Name)
	}
	return out
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestBrowserSortCycles(t *testing.T) {
	var m tea.Model = NewBrowser("alice", browserRows())
	assert.Equal(t, []string{"Alpha", "Beta", "Gamma"}, names(m.(Browser).Visible()))

	m, _ = m.Update(key("s"))
	assert.Equal(t, []string{"Beta", "Gamma", "Alpha"}, names(m.(Browser).Visible()))
	assert.Contains(t, m.View(), "most watched")

	m, _ = m.Update(key("s"))
	assert.Equal(t, []string{"Alpha", "Gamma", "Beta"}, names(m.(Browser).Visible()))

	m, _ = m.Update(key("s"))
	assert.Equal(t, SortByName, m.(Browser).order)
}

func TestBrowserFilter(t *testing.T) {
	var m tea.Model = NewBrowser("alice", browserRows())

	m, _ = m.Update(key("/"))
	require.True(t, m.(Browser).filtering)
	m, _ = m.Update(key("a"))
	m, _ = m.Update(key("m"))
	assert.Equal(t, []string{"Gamma"}, names(m.(Browser).Visible()))

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.(Browser).filtering)
	assert.Equal(t, []string{"Gamma"}, names(m.(Browser).Visible()))

	m, _ = m.Update(key("/"))
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Len(t, m.(Browser).Visible(), 3)
}

func TestBrowserQuits(t *testing.T) {
	m := NewBrowser("alice", nil)
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestMessages(t *testing.T) {
	var buf bytes.Buffer
	SuccessMsg(&buf, "saved %d", 3)
	WarningMsg(&buf, "slow")
	assert.Equal(t, "✓ saved 3\n⚠ slow\n", buf.String())
}
