// api/handlers/table_handler.go
package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quasarhq/quasar-backend/api/models"
	"github.com/quasarhq/quasar-backend/config"
	"github.com/quasarhq/quasar-backend/internal/cleanup"
	"github.com/quasarhq/quasar-backend/internal/core"
	"github.com/quasarhq/quasar-backend/internal/guard"
	"github.com/quasarhq/quasar-backend/internal/storage"
)

// TableHandler holds dependencies for dynamic-table schema handlers.
type TableHandler struct {
	Store   *storage.Store
	Cfg     *config.Config
	Cleanup *cleanup.Queue
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(store *storage.Store, cfg *config.Config, queue *cleanup.Queue) *TableHandler {
	return &TableHandler{
		Store:   store,
		Cfg:     cfg,
		Cleanup: queue,
	}
}

// CreateTable declares a new dynamic table: the catalog row and the
// physical table are created together. Admin only.
func (h *TableHandler) CreateTable(c *gin.Context) {
	ws, err := resolveWorkspace(c, h.Store)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if err := guard.CheckPermission(c.Request.Context(), h.Store, ws.ID, currentUserID(c), guard.RelationAdmin); err != nil {
		_ = c.Error(err)
		return
	}

	var req models.CreateTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("CreateTable binding error: %v", err)
		_ = c.Error(err)
		return
	}
	if !core.IsValidSlug(req.Slug) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Table slug must be lowercase letters, digits or underscores, starting with a letter."})
		return
	}

	cols := models.ColumnsToDomain(req.Columns)
	if err := core.ValidateColumnDefinitions(cols); err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schema, err := h.Store.CreateSchema(c.Request.Context(), ws.ID, req.Slug, req.Label, req.Description, cols)
	if err != nil {
		customLog.Warnf("Failed to create table '%s' in workspace '%s': %v", req.Slug, ws.Slug, err)
		_ = c.Error(err)
		return
	}

	customLog.Printf("Table '%s' created in workspace '%s'", schema.Slug, ws.Slug)
	c.JSON(http.StatusCreated, schema)
}

// ListTables returns every table schema of the workspace.
func (h *TableHandler) ListTables(c *gin.Context) {
	ws, err := resolveWorkspace(c, h.Store)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if err := guard.CheckPermission(c.Request.Context(), h.Store, ws.ID, currentUserID(c), guard.RelationView); err != nil {
		_ = c.Error(err)
		return
	}

	schemas, err := h.Store.ListSchemas(c.Request.Context(), ws.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tables": schemas})
}

// GetTable returns one table schema.
func (h *TableHandler) GetTable(c *gin.Context) {
	_, schema, err := workspaceSchema(c, h.Store, guard.RelationView)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, schema)
}

// AlterTable applies the diff between the stored column list and the
// submitted one. Admin only. Retypes outside the allowed migration set
// are skipped silently; the response carries the reconciled schema.
func (h *TableHandler) AlterTable(c *gin.Context) {
	ws, schema, err := workspaceSchema(c, h.Store, guard.RelationAdmin)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req models.AlterTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("AlterTable binding error: %v", err)
		_ = c.Error(err)
		return
	}

	cols := models.ColumnsToDomain(req.Columns)
	if err := core.ValidateColumnDefinitions(cols); err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.Store.AlterSchema(c.Request.Context(), schema, cols)
	if err != nil {
		customLog.Warnf("Failed to alter table '%s' in workspace '%s': %v", schema.Slug, ws.Slug, err)
		_ = c.Error(err)
		return
	}

	customLog.Printf("Table '%s' altered in workspace '%s'", schema.Slug, ws.Slug)
	c.JSON(http.StatusOK, updated)
}

// DeleteTable drops the table and its catalog row together. Admin only.
func (h *TableHandler) DeleteTable(c *gin.Context) {
	ws, schema, err := workspaceSchema(c, h.Store, guard.RelationAdmin)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.Store.DeleteSchema(c.Request.Context(), schema); err != nil {
		customLog.Warnf("Failed to delete table '%s' in workspace '%s': %v", schema.Slug, ws.Slug, err)
		_ = c.Error(err)
		return
	}

	// Prune the migration log after the drop has committed. Best effort:
	// a leftover log row is harmless.
	workspaceID, slug := ws.ID, schema.Slug
	h.Cleanup.Enqueue(cleanup.Task{
		Name: fmt.Sprintf("prune-migrations-%d-%s", workspaceID, slug),
		Run: func(ctx context.Context) error {
			stmt := fmt.Sprintf(`DELETE FROM qs_schema_migrations WHERE workspace_id = %s AND table_slug = %s`,
				h.Store.Dialect.Placeholder(1), h.Store.Dialect.Placeholder(2))
			_, err := h.Store.DB.ExecContext(ctx, stmt, workspaceID, slug)
			return err
		},
	})

	customLog.Printf("Table '%s' deleted from workspace '%s'", schema.Slug, ws.Slug)
	c.Status(http.StatusNoContent)
}

// ListMigrations returns the table's applied migration log.
func (h *TableHandler) ListMigrations(c *gin.Context) {
	ws, schema, err := workspaceSchema(c, h.Store, guard.RelationView)
	if err != nil {
		_ = c.Error(err)
		return
	}

	migrations, err := h.Store.ListMigrations(c.Request.Context(), ws.ID, schema.Slug)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"migrations": migrations})
}
