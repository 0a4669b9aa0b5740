package watch

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/automationd/internal/wire"
)

func sortedJobIDs(jobs map[string]wire.StatusDoc) []string {
	ids := make([]string, 0, len(jobs))
	for id := range jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func renderJobs(jobs map[string]wire.StatusDoc, workspace string, theme Theme, width int) string {
	innerWidth := width - 4

	title := theme.Title.Render(fmt.Sprintf("JOBS — %s", workspace))

	if len(jobs) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			theme.Dim.Render("  No jobs scheduled..."),
		)
		return theme.Border.Width(innerWidth).Render(content)
	}

	ids := sortedJobIDs(jobs)
	var lines []string
	for i, id := range ids {
		if i >= 12 {
			break
		}
		lines = append(lines, renderJobRow(jobs[id], theme))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{title}, lines...)...,
	)
	return theme.Border.Width(innerWidth).Render(content)
}

func renderJobRow(doc wire.StatusDoc, theme Theme) string {
	status := theme.Dim.Render(fmt.Sprintf("[%s]", doc.JobState))
	switch doc.JobState {
	case wire.StateRunning:
		status = theme.StatusRunning.Render(fmt.Sprintf("[%s]", doc.JobState))
	case wire.StateSuccess:
		status = theme.StatusOK.Render(fmt.Sprintf("[%s]", doc.JobState))
	case wire.StateFailure:
		status = theme.StatusFailed.Render(fmt.Sprintf("[%s]", doc.JobState))
	case wire.StateWaiting:
		status = theme.Highlight.Render(fmt.Sprintf("[%s]", doc.JobState))
	}

	id := doc.JobID
	if len(id) > 8 {
		id = id[:8]
	}

	name := doc.JobName
	if name == "" {
		name = "(unnamed)"
	}

	when := ""
	if doc.JobState == wire.StateWaiting {
		next := time.Unix(int64(doc.SchedTimestamp), 0)
		when = theme.Dim.Render("next: " + formatCountdown(time.Until(next)))
	} else if doc.JobDuration > 0 {
		when = theme.Dim.Render(fmt.Sprintf("took %ss", wire.FormatDuration(doc.JobDuration)))
	}

	mode := strings.ToLower(doc.SchedMode.String())

	return fmt.Sprintf(" %-8s %-24s %-9s %-9s %s", id, name, status, mode, when)
}

func formatCountdown(until time.Duration) string {
	if until <= 0 {
		return "due now"
	}
	until = until.Round(time.Second)
	if until < time.Minute {
		return fmt.Sprintf("in %ds", int(until.Seconds()))
	}
	if until < time.Hour {
		return fmt.Sprintf("in %dm%02ds", int(until.Minutes()), int(until.Seconds())%60)
	}
	return fmt.Sprintf("in %dh%02dm", int(until.Hours()), int(until.Minutes())%60)
}
