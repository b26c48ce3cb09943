// api/handlers/workspace_handler.go
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

// WorkspaceHandler holds dependencies for workspace management handlers.
type WorkspaceHandler struct {
	Store   *storage.Store
	Cfg     *config.Config
	Cleanup *cleanup.Queue
}

// NewWorkspaceHandler creates a new WorkspaceHandler.
func NewWorkspaceHandler(store *storage.Store, cfg *config.Config, queue *cleanup.Queue) *WorkspaceHandler {
	return &WorkspaceHandler{
		Store:   store,
		Cfg:     cfg,
		Cleanup: queue,
	}
}

// CreateWorkspace registers a new workspace owned by the caller.
func (h *WorkspaceHandler) CreateWorkspace(c *gin.Context) {
	var req models.CreateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("CreateWorkspace binding error: %v", err)
		_ = c.Error(err)
		return
	}
	if !core.IsValidSlug(req.Slug) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Workspace slug must be lowercase letters, digits or underscores, starting with a letter."})
		return
	}

	userID := currentUserID(c)
	ws, err := h.Store.CreateWorkspace(c.Request.Context(), req.Slug, req.Name, userID)
	if err != nil {
		customLog.Warnf("Failed to create workspace %s: %v", req.Slug, err)
		_ = c.Error(err)
		return
	}

	customLog.Printf("Workspace '%s' created by user %s", ws.Slug, userID)
	c.JSON(http.StatusCreated, ws)
}

// ListWorkspaces returns the workspaces the caller belongs to.
func (h *WorkspaceHandler) ListWorkspaces(c *gin.Context) {
	workspaces, err := h.Store.ListWorkspaces(c.Request.Context(), currentUserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workspaces": workspaces})
}

// GetWorkspace returns one workspace the caller can view.
func (h *WorkspaceHandler) GetWorkspace(c *gin.Context) {
	ws, err := resolveWorkspace(c, h.Store)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if err := guard.CheckPermission(c.Request.Context(), h.Store, ws.ID, currentUserID(c), guard.RelationView); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ws)
}

// AddMember grants or changes a user's role. Admin only.
func (h *WorkspaceHandler) AddMember(c *gin.Context) {
	ws, err := resolveWorkspace(c, h.Store)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if err := guard.CheckPermission(c.Request.Context(), h.Store, ws.ID, currentUserID(c), guard.RelationAdmin); err != nil {
		_ = c.Error(err)
		return
	}

	var req models.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	if _, err := h.Store.FindUserByUserID(c.Request.Context(), req.UserID); err != nil {
		_ = c.Error(err)
		return
	}
	if err := h.Store.AddMember(c.Request.Context(), ws.ID, req.UserID, req.Role); err != nil {
		_ = c.Error(err)
		return
	}

	customLog.Printf("User %s added to workspace '%s' as %s", req.UserID, ws.Slug, req.Role)
	c.JSON(http.StatusOK, gin.H{"message": "Member added successfully"})
}

// DeleteWorkspace removes a workspace and everything in it. Admin only.
// API keys are revoked by a deferred cleanup task after the commit.
func (h *WorkspaceHandler) DeleteWorkspace(c *gin.Context) {
	ws, err := resolveWorkspace(c, h.Store)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if err := guard.CheckPermission(c.Request.Context(), h.Store, ws.ID, currentUserID(c), guard.RelationAdmin); err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.Store.DeleteWorkspace(c.Request.Context(), ws); err != nil {
		_ = c.Error(err)
		return
	}

	workspaceID := ws.ID
	h.Cleanup.Enqueue(cleanup.Task{
		Name: fmt.Sprintf("revoke-api-keys-ws-%d", workspaceID),
		Run: func(ctx context.Context) error {
			return h.Store.DeleteAPIKeysForWorkspace(ctx, workspaceID)
		},
	})

	customLog.Printf("Workspace '%s' deleted", ws.Slug)
	c.Status(http.StatusNoContent)
}

// CreateAPIKey generates the workspace's API key. Admin only. The key
// is returned once and never shown again.
func (h *WorkspaceHandler) CreateAPIKey(c *gin.Context) {
	ws, err := resolveWorkspace(c, h.Store)
	if err != nil {
		_ = c.Error(err)
		return
	}
	userID := currentUserID(c)
	if err := guard.CheckPermission(c.Request.Context(), h.Store, ws.ID, userID, guard.RelationAdmin); err != nil {
		_ = c.Error(err)
		return
	}

	key, err := h.Store.CreateAPIKey(c.Request.Context(), ws.ID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	customLog.Printf("API key generated for workspace '%s'", ws.Slug)
	c.JSON(http.StatusCreated, models.APIKeyResponse{
		Message: "Store this key securely. It will not be shown again.",
		APIKey:  key,
	})
}
