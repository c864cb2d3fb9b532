package flow

import (
	"fmt"
	"math"
	"strings"

	"github.com/m3rciful/sprintbot/core/telegram/format"
	"github.com/m3rciful/sprintbot/internal/domain"
)

const progressCells = 10

// progressBar draws round(done/total*10) filled cells followed by the
// percentage.
func progressBar(done, total int) string {
	rate := domain.SprintStats{Total: total, Completed: done}.Rate()
	filled := int(math.Round(rate * progressCells))
	pct := int(math.Round(rate * 100))
	return strings.Repeat("█", filled) + strings.Repeat("░", progressCells-filled) + fmt.Sprintf(" %d%%", pct)
}

func sprintHeader(sp domain.Sprint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏁 *%s* (#%d)\n", format.MD(sp.Name), sp.ID)
	fmt.Fprintf(&b, "%s - %s · %s", sp.StartDate.Format(displayDate), sp.EndDate.Format(displayDate), strings.ToLower(string(sp.Status)))
	if sp.Description != "" {
		b.WriteString("\n")
		b.WriteString(format.MD(sp.Description))
	}
	return b.String()
}

// taskBreakdown lists tasks grouped by status in the fixed display order.
func taskBreakdown(tasks []domain.Task) string {
	if len(tasks) == 0 {
		return "No tasks yet."
	}
	stats := domain.Stats(tasks)
	groups := domain.GroupByStatus(tasks)

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d/%d)\n", progressBar(stats.Completed, stats.Total), stats.Completed, stats.Total)
	for _, status := range domain.StatusOrder {
		group := groups[status]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n*%s* (%d)\n", status.Label(), len(group))
		for _, t := range group {
			fmt.Fprintf(&b, "• #%d %s\n", t.ID, format.MD(t.Title))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func endSprintSummary(sp domain.Sprint, tasks []domain.Task) string {
	stats := domain.Stats(tasks)
	var b strings.Builder
	b.WriteString(sprintHeader(sp))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Total tasks: %d\n", stats.Total)
	fmt.Fprintf(&b, "Completed: %d\n", stats.Completed)
	fmt.Fprintf(&b, "Incomplete: %d\n", stats.Incomplete)
	fmt.Fprintf(&b, "Completion rate: %s\n\n", progressBar(stats.Completed, stats.Total))
	b.WriteString("End this sprint?")
	return b.String()
}
