// internal/views/gantt.go
package views

import (
	"math"
	"time"
)

// GanttOptions configures the gantt transform: which columns carry the
// task fields and an optional date range applied as a post-filter.
type GanttOptions struct {
	NameColumn       string `json:"name_column"`
	StartColumn      string `json:"start_column"`
	EndColumn        string `json:"end_column"`
	ProgressColumn   string `json:"progress_column,omitempty"`
	DependencyColumn string `json:"dependency_column,omitempty"`
	CategoryColumn   string `json:"category_column,omitempty"`
	AssigneeColumn   string `json:"assignee_column,omitempty"`
	StatusColumn     string `json:"status_column,omitempty"`

	// Half-open interval overlap filter: kept when start <= RangeEnd
	// and end >= RangeStart. Empty bounds are unbounded.
	RangeStart string `json:"range_start,omitempty"`
	RangeEnd   string `json:"range_end,omitempty"`
}

// GanttTask is one row reshaped for a gantt chart.
type GanttTask struct {
	ID           any            `json:"id"`
	Name         string         `json:"name"`
	Start        string         `json:"start"`
	End          string         `json:"end"`
	Duration     int            `json:"duration"` // absolute day difference
	Progress     any            `json:"progress,omitempty"`
	Dependencies any            `json:"dependencies,omitempty"`
	Category     string         `json:"category,omitempty"`
	Assignee     string         `json:"assignee,omitempty"`
	Fields       map[string]any `json:"fields,omitempty"` // passthrough of remaining columns
}

// GanttTimeline summarizes the task list for the chart header.
type GanttTimeline struct {
	ProjectStart    string         `json:"project_start,omitempty"`
	ProjectEnd      string         `json:"project_end,omitempty"`
	TotalDuration   int            `json:"total_duration"`
	TaskCount       int            `json:"task_count"`
	CountsByStatus  map[string]int `json:"counts_by_status,omitempty"`
	AverageDuration float64        `json:"average_duration"`
}

// BuildGantt maps records to gantt tasks plus a derived timeline
// summary. The date-range filter is applied here, after the query, not
// pushed into the SQL.
func BuildGantt(records []map[string]any, opts GanttOptions) ([]GanttTask, GanttTimeline) {
	rangeStart, hasRangeStart := parseTime(opts.RangeStart)
	rangeEnd, hasRangeEnd := parseTime(opts.RangeEnd)

	tasks := make([]GanttTask, 0, len(records))
	var projectStart, projectEnd time.Time
	totalDuration := 0
	countsByStatus := make(map[string]int)

	for _, record := range records {
		start, hasStart := parseTime(record[opts.StartColumn])
		end, hasEnd := parseTime(record[opts.EndColumn])

		if hasRangeStart && hasEnd && end.Before(rangeStart) {
			continue
		}
		if hasRangeEnd && hasStart && start.After(rangeEnd) {
			continue
		}

		task := GanttTask{
			ID:   record["id"],
			Name: stringify(record[opts.NameColumn]),
		}
		if hasStart {
			task.Start = start.Format("2006-01-02")
		}
		if hasEnd {
			task.End = end.Format("2006-01-02")
		}
		if hasStart && hasEnd {
			task.Duration = int(math.Abs(end.Sub(start).Hours() / 24))
		}
		if opts.ProgressColumn != "" {
			task.Progress = record[opts.ProgressColumn]
		}
		if opts.DependencyColumn != "" {
			task.Dependencies = record[opts.DependencyColumn]
		}
		if opts.CategoryColumn != "" {
			task.Category = stringify(record[opts.CategoryColumn])
		}
		if opts.AssigneeColumn != "" {
			task.Assignee = stringify(record[opts.AssigneeColumn])
		}

		task.Fields = passthroughFields(record, opts)
		tasks = append(tasks, task)

		if hasStart && (projectStart.IsZero() || start.Before(projectStart)) {
			projectStart = start
		}
		if hasEnd && (projectEnd.IsZero() || end.After(projectEnd)) {
			projectEnd = end
		}
		totalDuration += task.Duration
		if opts.StatusColumn != "" {
			countsByStatus[stringify(record[opts.StatusColumn])]++
		}
	}

	timeline := GanttTimeline{
		TaskCount:      len(tasks),
		CountsByStatus: countsByStatus,
	}
	if !projectStart.IsZero() {
		timeline.ProjectStart = projectStart.Format("2006-01-02")
	}
	if !projectEnd.IsZero() {
		timeline.ProjectEnd = projectEnd.Format("2006-01-02")
	}
	if !projectStart.IsZero() && !projectEnd.IsZero() {
		timeline.TotalDuration = int(math.Abs(projectEnd.Sub(projectStart).Hours() / 24))
	}
	if len(tasks) > 0 {
		sum := 0
		for _, task := range tasks {
			sum += task.Duration
		}
		timeline.AverageDuration = float64(sum) / float64(len(tasks))
	}
	return tasks, timeline
}

func passthroughFields(record map[string]any, opts GanttOptions) map[string]any {
	mapped := map[string]bool{
		"id":                  true,
		opts.NameColumn:       true,
		opts.StartColumn:      true,
		opts.EndColumn:        true,
		opts.ProgressColumn:   true,
		opts.DependencyColumn: true,
		opts.CategoryColumn:   true,
		opts.AssigneeColumn:   true,
	}
	fields := make(map[string]any)
	for k, v := range record {
		if !mapped[k] {
			fields[k] = v
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
