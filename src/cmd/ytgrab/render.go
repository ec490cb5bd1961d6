package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/events"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
)

var (
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	labelStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	stageStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// newPrinter returns the consumer the dispatcher delivers events to. It is
// only ever called from the dispatcher goroutine.
func newPrinter(w io.Writer) events.Sink {
	return events.Func(func(e models.Event) {
		if line := renderEvent(e); line != "" {
			fmt.Fprintln(w, line)
		}
	})
}

func renderEvent(e models.Event) string {
	switch e.Kind {
	case models.EventLog:
		if e.Stream == models.StreamStderr {
			return dimStyle.Render(e.Text)
		}
		return e.Text
	case models.EventProgress:
		return labelStyle.Render(progressBar(e.Sample.Percent)) + " " + e.String()
	case models.EventStage:
		return stageStyle.Render("→ " + string(e.To))
	case models.EventCompleted:
		return successStyle.Render("✓ " + e.Text)
	case models.EventFailed:
		return errorStyle.Render("✗ " + e.String())
	}
	return ""
}

const barWidth = 20

func progressBar(percent float64) string {
	filled := int(percent / 100 * barWidth)
	filled = max(0, min(barWidth, filled))
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled) + "]"
}

func renderError(err error) string {
	reason := models.FailureReason(err)
	if reason == "unknown" {
		return errorStyle.Render("✗ " + err.Error())
	}
	return errorStyle.Render(fmt.Sprintf("✗ %s", err)) + "\n" + dimStyle.Render("reason: "+reason)
}
