// internal/guard/guard.go
package guard

import (
	"context"
	"errors"

	"github.com/quasarhq/quasar-backend/internal/domain"
	"github.com/quasarhq/quasar-backend/internal/logger"
)

var customLog = logger.NewLogger()

// ErrPermissionDenied is returned whenever the caller's role does not
// grant the requested relation, including when the caller is not a
// member at all.
var ErrPermissionDenied = errors.New("permission denied")

// Relations a caller can hold against a workspace.
const (
	RelationView  = "view"
	RelationEdit  = "edit"
	RelationAdmin = "admin"
)

// RoleReader answers membership questions; satisfied by storage.Store.
type RoleReader interface {
	MemberRole(ctx context.Context, workspaceID int64, userID string) (string, error)
}

// roleGrants maps each role to the relations it carries. Anything not
// listed is denied, so an unknown role grants nothing.
var roleGrants = map[string]map[string]bool{
	domain.RoleOwner:  {RelationView: true, RelationEdit: true, RelationAdmin: true},
	domain.RoleEditor: {RelationView: true, RelationEdit: true},
	domain.RoleViewer: {RelationView: true},
}

// CheckPermission resolves the caller's role in the workspace and
// verifies it grants the relation. Deny by default: a lookup error, a
// missing membership and an unknown role all come back as
// ErrPermissionDenied.
func CheckPermission(ctx context.Context, roles RoleReader, workspaceID int64, userID, relation string) error {
	role, err := roles.MemberRole(ctx, workspaceID, userID)
	if err != nil {
		customLog.Warnf("Guard: membership lookup failed for user %s in workspace %d: %v", userID, workspaceID, err)
		return ErrPermissionDenied
	}
	if role == "" {
		return ErrPermissionDenied
	}
	if !roleGrants[role][relation] {
		return ErrPermissionDenied
	}
	return nil
}
