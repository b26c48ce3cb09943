// api/handlers/record_handler.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quasarhq/quasar-backend/config"
	"github.com/quasarhq/quasar-backend/internal/guard"
	"github.com/quasarhq/quasar-backend/internal/storage"
)

// RecordHandler holds dependencies for record CRUD handlers.
type RecordHandler struct {
	Store *storage.Store
	Cfg   *config.Config
}

// NewRecordHandler creates a new RecordHandler.
func NewRecordHandler(store *storage.Store, cfg *config.Config) *RecordHandler {
	return &RecordHandler{
		Store: store,
		Cfg:   cfg,
	}
}

// CreateRecord handles inserting a new record.
func (h *RecordHandler) CreateRecord(c *gin.Context) {
	ws, schema, err := workspaceSchema(c, h.Store, guard.RelationEdit)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var recordData map[string]any
	if err := c.ShouldBindJSON(&recordData); err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON request body: " + err.Error()})
		return
	}
	if len(recordData) == 0 {
		_ = c.Error(errors.New("empty request body"))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Request body cannot be empty."})
		return
	}

	id, err := h.Store.InsertRecord(c.Request.Context(), schema, recordData, currentUserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	customLog.Printf("Handler: Record %s created in '%s/%s'", id, ws.Slug, schema.Slug)
	c.JSON(http.StatusCreated, gin.H{
		"message":   "Record created successfully",
		"record_id": id,
	})
}

// BatchCreateRecords inserts many records at once. Valid items commit
// even when others fail; failures come back with their index and input.
func (h *RecordHandler) BatchCreateRecords(c *gin.Context) {
	ws, schema, err := workspaceSchema(c, h.Store, guard.RelationEdit)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var items []map[string]any
	if err := c.ShouldBindJSON(&items); err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON request body: " + err.Error()})
		return
	}
	if len(items) == 0 {
		_ = c.Error(errors.New("empty batch"))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Batch cannot be empty."})
		return
	}

	ids, failures := h.Store.BatchInsert(c.Request.Context(), schema, items, currentUserID(c))

	status := http.StatusCreated
	if len(failures) > 0 {
		status = http.StatusMultiStatus
	}
	customLog.Printf("Handler: Batch insert into '%s/%s': %d created, %d failed", ws.Slug, schema.Slug, len(ids), len(failures))
	c.JSON(status, gin.H{
		"created":  ids,
		"failures": failures,
	})
}

// GetRecord handles retrieving a single record by ID.
func (h *RecordHandler) GetRecord(c *gin.Context) {
	_, schema, err := workspaceSchema(c, h.Store, guard.RelationView)
	if err != nil {
		_ = c.Error(err)
		return
	}

	record, err := h.Store.GetRecord(c.Request.Context(), schema, c.Param("record_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// UpdateRecord handles a partial update of an existing record.
func (h *RecordHandler) UpdateRecord(c *gin.Context) {
	ws, schema, err := workspaceSchema(c, h.Store, guard.RelationEdit)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var updateData map[string]any
	if err := c.ShouldBindJSON(&updateData); err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON request body: " + err.Error()})
		return
	}
	if len(updateData) == 0 {
		_ = c.Error(errors.New("empty request body for update"))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Request body cannot be empty for update."})
		return
	}

	recordID := c.Param("record_id")
	if err := h.Store.UpdateRecord(c.Request.Context(), schema, recordID, updateData); err != nil {
		_ = c.Error(err)
		return
	}

	customLog.Printf("Handler: Record %s updated in '%s/%s'", recordID, ws.Slug, schema.Slug)
	c.JSON(http.StatusOK, gin.H{
		"message":   "Record updated successfully",
		"record_id": recordID,
	})
}

// DeleteRecord handles deleting a specific record by ID.
func (h *RecordHandler) DeleteRecord(c *gin.Context) {
	ws, schema, err := workspaceSchema(c, h.Store, guard.RelationEdit)
	if err != nil {
		_ = c.Error(err)
		return
	}

	recordID := c.Param("record_id")
	if err := h.Store.DeleteRecord(c.Request.Context(), schema, recordID); err != nil {
		_ = c.Error(err)
		return
	}

	customLog.Printf("Handler: Record %s deleted from '%s/%s'", recordID, ws.Slug, schema.Slug)
	c.Status(http.StatusNoContent)
}
