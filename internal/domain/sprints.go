package domain

import (
	"sort"
	"time"
)

// ActiveSprint picks the earliest-ending sprint whose end date is strictly
// after now. Completed sprints are skipped.
func ActiveSprint(sprints []Sprint, now time.Time) (Sprint, bool) {
	sorted := append([]Sprint(nil), sprints...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EndDate.Before(sorted[j].EndDate)
	})
	for _, s := range sorted {
		if s.Status == SprintCompleted {
			continue
		}
		if s.EndDate.After(now) {
			return s, true
		}
	}
	return Sprint{}, false
}

// SprintStats summarises task completion for a sprint.
type SprintStats struct {
	Total      int
	Completed  int
	Incomplete int
}

// Rate is the completed fraction in [0,1]; zero when there are no tasks.
func (s SprintStats) Rate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total)
}

// Stats counts done and outstanding tasks.
func Stats(tasks []Task) SprintStats {
	st := SprintStats{Total: len(tasks)}
	for _, t := range tasks {
		if t.Done() {
			st.Completed++
		}
	}
	st.Incomplete = st.Total - st.Completed
	return st
}

// GroupByStatus buckets tasks by status keeping input order within a bucket.
func GroupByStatus(tasks []Task) map[TaskStatus][]Task {
	out := make(map[TaskStatus][]Task, len(StatusOrder))
	for _, t := range tasks {
		out[t.Status] = append(out[t.Status], t)
	}
	return out
}

// StartOfDay truncates t to local midnight.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last second of t's day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}
