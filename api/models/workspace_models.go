// api/models/workspace_models.go
package models

// --- Workspace Request/Response Structs ---

// CreateWorkspaceRequest defines the structure for registering a workspace
type CreateWorkspaceRequest struct {
	Slug string `json:"slug" binding:"required"`
	Name string `json:"name" binding:"required"`
}

// AddMemberRequest grants or changes a user's role in a workspace
type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required,oneof=owner editor viewer"`
}

// APIKeyResponse returns a freshly generated workspace key. The key is
// only ever shown once.
type APIKeyResponse struct {
	Message string `json:"message"`
	APIKey  string `json:"api_key"`
}
