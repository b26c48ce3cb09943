// api/handlers/view_handler.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quasarhq/quasar-backend/api/models"
	"github.com/quasarhq/quasar-backend/internal/guard"
	"github.com/quasarhq/quasar-backend/internal/views"
)

// Kanban groups the queried records into boards keyed by one column.
// Board order follows first appearance in the result set.
func (h *QueryHandler) Kanban(c *gin.Context) {
	ws, schema, err := workspaceSchema(c, h.Store, guard.RelationView)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var payload models.KanbanViewRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		_ = c.Error(err)
		return
	}

	response, err := h.execute(c, ws, schema, payload.Query.ToDomain(), payload.StatusColumn)
	if err != nil {
		_ = c.Error(err)
		return
	}

	boards := views.BuildKanban(response.Records, payload.StatusColumn)
	c.JSON(http.StatusOK, gin.H{
		"boards": boards,
		"total":  response.Total,
	})
}

// Tree nests the queried records by a self-referential parent column.
func (h *QueryHandler) Tree(c *gin.Context) {
	ws, schema, err := workspaceSchema(c, h.Store, guard.RelationView)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var payload models.TreeViewRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		_ = c.Error(err)
		return
	}

	response, err := h.execute(c, ws, schema, payload.Query.ToDomain(), payload.ParentColumn)
	if err != nil {
		_ = c.Error(err)
		return
	}

	roots := views.BuildTree(response.Records, payload.ParentColumn, payload.RootValue, payload.MaxDepth)
	c.JSON(http.StatusOK, gin.H{
		"tree":  roots,
		"total": response.Total,
	})
}

// Gantt lays the queried records out as tasks on a timeline.
func (h *QueryHandler) Gantt(c *gin.Context) {
	ws, schema, err := workspaceSchema(c, h.Store, guard.RelationView)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var payload models.GanttViewRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		_ = c.Error(err)
		return
	}

	mandatory := []string{payload.NameColumn, payload.StartColumn, payload.EndColumn}
	response, err := h.execute(c, ws, schema, payload.Query.ToDomain(), mandatory...)
	if err != nil {
		_ = c.Error(err)
		return
	}

	tasks, timeline := views.BuildGantt(response.Records, views.GanttOptions{
		NameColumn:       payload.NameColumn,
		StartColumn:      payload.StartColumn,
		EndColumn:        payload.EndColumn,
		ProgressColumn:   payload.ProgressColumn,
		DependencyColumn: payload.DependencyColumn,
		CategoryColumn:   payload.CategoryColumn,
		AssigneeColumn:   payload.AssigneeColumn,
		StatusColumn:     payload.StatusColumn,
		RangeStart:       payload.RangeStart,
		RangeEnd:         payload.RangeEnd,
	})
	c.JSON(http.StatusOK, gin.H{
		"tasks":    tasks,
		"timeline": timeline,
	})
}

// Dropdown reduces the queried records to label/value options.
func (h *QueryHandler) Dropdown(c *gin.Context) {
	ws, schema, err := workspaceSchema(c, h.Store, guard.RelationView)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var payload models.DropdownViewRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		_ = c.Error(err)
		return
	}

	response, err := h.execute(c, ws, schema, payload.Query.ToDomain(), payload.LabelColumn, payload.ValueColumn)
	if err != nil {
		_ = c.Error(err)
		return
	}

	options, truncated := views.BuildDropdown(response.Records, views.DropdownOptions{
		LabelColumn: payload.LabelColumn,
		ValueColumn: payload.ValueColumn,
		GroupColumn: payload.GroupColumn,
		SkipEmpty:   payload.SkipEmpty,
		Distinct:    payload.Distinct,
		Limit:       payload.Limit,
	})
	c.JSON(http.StatusOK, gin.H{
		"options":   options,
		"truncated": truncated,
	})
}

// Breadcrumb walks the parent chain upward from one record.
func (h *QueryHandler) Breadcrumb(c *gin.Context) {
	ws, schema, err := workspaceSchema(c, h.Store, guard.RelationView)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var payload models.BreadcrumbViewRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		_ = c.Error(err)
		return
	}

	response, err := h.execute(c, ws, schema, payload.Query.ToDomain(), payload.ParentColumn, payload.LabelColumn)
	if err != nil {
		_ = c.Error(err)
		return
	}

	trail := views.BuildBreadcrumb(response.Records, payload.StartID, views.BreadcrumbOptions{
		ParentColumn: payload.ParentColumn,
		LabelColumn:  payload.LabelColumn,
		MaxDepth:     payload.MaxDepth,
		RootToLeaf:   payload.RootToLeaf,
	})
	c.JSON(http.StatusOK, gin.H{
		"breadcrumb": trail,
	})
}
