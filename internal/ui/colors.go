package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle lipgloss.Style
	errorStyle   lipgloss.Style
	warningStyle lipgloss.Style
	infoStyle    lipgloss.Style
	dimStyle     lipgloss.Style
	titleStyle   lipgloss.Style
	valueStyle   lipgloss.Style
	headerStyle  lipgloss.Style
)

func init() {
	initStyles()
}

func initStyles() {
	if !IsTerminal() {
		successStyle = lipgloss.NewStyle()
		errorStyle = lipgloss.NewStyle()
		warningStyle = lipgloss.NewStyle()
		infoStyle = lipgloss.NewStyle()
		dimStyle = lipgloss.NewStyle()
		titleStyle = lipgloss.NewStyle()
		valueStyle = lipgloss.NewStyle()
		headerStyle = lipgloss.NewStyle()
		return
	}

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
}

func Success(text string) string { return successStyle.Render(text) }
func Error(text string) string   { return errorStyle.Render(text) }
func Warning(text string) string { return warningStyle.Render(text) }
func Info(text string) string    { return infoStyle.Render(text) }
func Dim(text string) string     { return dimStyle.Render(text) }
func Title(text string) string   { return titleStyle.Render(text) }
func Value(text string) string   { return valueStyle.Render(text) }

// Percent colors a completion percentage: finished green, started yellow,
// untouched dim.
func Percent(p float64) string {
	text := fmt.Sprintf("%5.1f%%", p)
	switch {
	case p >= 100:
		return successStyle.Render(text)
	case p > 0:
		return warningStyle.Render(text)
	default:
		return dimStyle.Render(text)
	}
}

// Status colors a run status.
func Status(status string) string {
	switch status {
	case "success":
		return Success(Label(status))
	case "failed":
		return Error(Label(status))
	default:
		return Warning(Label(status))
	}
}

// SuccessMsg writes a success message
func SuccessMsg(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, Success("✓")+" "+fmt.Sprintf(format, args...))
}

// ErrorMsg writes an error message
func ErrorMsg(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, Error("✗")+" "+fmt.Sprintf(format, args...))
}

// WarningMsg writes a warning message
func WarningMsg(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, Warning("⚠")+" "+fmt.Sprintf(format, args...))
}

// InfoMsg writes an info message
func InfoMsg(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, Info("ℹ")+" "+fmt.Sprintf(format, args...))
}
