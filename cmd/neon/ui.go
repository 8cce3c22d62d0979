package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bdobrica/Neon/internal/neon/affect"
	"github.com/bdobrica/Neon/internal/neon/journal"
)

var (
	neonColor   = lipgloss.Color("205")
	userColor   = lipgloss.Color("39")
	systemColor = lipgloss.Color("241")

	neonStyle   = lipgloss.NewStyle().Foreground(neonColor).Bold(true)
	userStyle   = lipgloss.NewStyle().Foreground(userColor).Bold(true)
	systemStyle = lipgloss.NewStyle().Foreground(systemColor).Italic(true)
	labelStyle  = lipgloss.NewStyle().Foreground(systemColor)
	bannerStyle = lipgloss.NewStyle().
			Foreground(neonColor).
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(neonColor).
			Padding(0, 1)

	outcomeStyles = map[journal.Outcome]lipgloss.Style{
		journal.OutcomeReply:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		journal.OutcomeEmpty:   lipgloss.NewStyle().Foreground(systemColor),
		journal.OutcomeTimeout: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		journal.OutcomeError:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

func printNeon(w io.Writer, text string) {
	fmt.Fprintf(w, "%s %s\n", neonStyle.Render("Neon:"), text)
}

func printSystem(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, systemStyle.Render(fmt.Sprintf(format, args...)))
}

func moodLine(s affect.State) string {
	return fmt.Sprintf("[%s %.2f | affection %.1f]", s.Emotion, s.Intensity, s.Affection)
}

func printEntry(w io.Writer, e journal.Entry) {
	style, ok := outcomeStyles[e.Outcome]
	if !ok {
		style = labelStyle
	}
	fmt.Fprintf(w, "%s %s %s\n",
		labelStyle.Render(e.StartedAt.Local().Format("2006-01-02 15:04:05")),
		style.Render(fmt.Sprintf("%-7s", e.Outcome)),
		labelStyle.Render(fmt.Sprintf("%s %.2f a=%.1f", e.Emotion, e.Intensity, e.Affection)),
	)
	fmt.Fprintf(w, "  %s %s\n", userStyle.Render(">"), oneLine(e.Input))
	if e.Reply != "" {
		fmt.Fprintf(w, "  %s %s\n", neonStyle.Render("<"), oneLine(e.Reply))
	}
}

// outcomeTotals renders the per-outcome turn counts in a fixed order.
func outcomeTotals(counts map[journal.Outcome]int, schema int) string {
	parts := make([]string, 0, 4)
	for _, o := range []journal.Outcome{journal.OutcomeReply, journal.OutcomeEmpty, journal.OutcomeTimeout, journal.OutcomeError} {
		parts = append(parts, fmt.Sprintf("%s %d", o, counts[o]))
	}
	return fmt.Sprintf("totals: %s (schema v%d)", strings.Join(parts, " · "), schema)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
