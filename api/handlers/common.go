// api/handlers/common.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/quasarhq/quasar-backend/internal/domain"
	"github.com/quasarhq/quasar-backend/internal/guard"
	"github.com/quasarhq/quasar-backend/internal/logger"
	"github.com/quasarhq/quasar-backend/internal/storage"
)

var customLog = logger.NewLogger()

// currentUserID reads the authenticated user set by the auth middleware.
func currentUserID(c *gin.Context) string {
	return c.MustGet("userId").(string)
}

// resolveWorkspace loads the workspace named in the URL and, for
// API-key authenticated requests, verifies the key is scoped to that
// same workspace. A key for workspace A must not reach workspace B.
func resolveWorkspace(c *gin.Context, store *storage.Store) (*domain.Workspace, error) {
	ws, err := store.FindWorkspaceBySlug(c.Request.Context(), c.Param("ws_slug"))
	if err != nil {
		return nil, err
	}
	if scoped, ok := c.Get("workspaceId"); ok && scoped != nil {
		if scopedID, ok := scoped.(int64); ok && scopedID != ws.ID {
			return nil, guard.ErrPermissionDenied
		}
	}
	return ws, nil
}

// workspaceSchema resolves the workspace and table from the URL and
// checks the caller holds the given relation. Missing table and missing
// permission come back as the same not-found error.
func workspaceSchema(c *gin.Context, store *storage.Store, relation string) (*domain.Workspace, *domain.TableSchema, error) {
	ws, err := resolveWorkspace(c, store)
	if err != nil {
		return nil, nil, err
	}
	userID := currentUserID(c)
	if err := guard.CheckPermission(c.Request.Context(), store, ws.ID, userID, relation); err != nil {
		return nil, nil, err
	}
	schema, err := store.GetSchemaForUser(c.Request.Context(), ws.ID, c.Param("table_slug"), userID)
	if err != nil {
		return nil, nil, err
	}
	return ws, schema, nil
}
