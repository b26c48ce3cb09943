// internal/views/kanban.go
package views

// DefaultKanbanBucket collects rows whose status value is null or missing.
const DefaultKanbanBucket = "No Status"

// KanbanBoard is one status bucket of a kanban view.
type KanbanBoard struct {
	Status  string           `json:"status"`
	Records []map[string]any `json:"records"`
	Count   int              `json:"count"`
}

// BuildKanban groups records by the value of statusColumn. Bucket order
// is first-seen order in the result set; null or missing statuses land
// in the DefaultKanbanBucket.
func BuildKanban(records []map[string]any, statusColumn string) []KanbanBoard {
	boards := make([]KanbanBoard, 0)
	index := make(map[string]int)

	for _, record := range records {
		status := DefaultKanbanBucket
		if v, ok := record[statusColumn]; ok && !isEmpty(v) {
			status = stringify(v)
		}

		i, ok := index[status]
		if !ok {
			i = len(boards)
			index[status] = i
			boards = append(boards, KanbanBoard{Status: status, Records: make([]map[string]any, 0)})
		}
		boards[i].Records = append(boards[i].Records, record)
		boards[i].Count++
	}

	return boards
}
