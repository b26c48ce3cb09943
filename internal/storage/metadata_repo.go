// internal/storage/metadata_repo.go
package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/quasarhq/quasar-backend/internal/core"
	"github.com/quasarhq/quasar-backend/internal/domain"
)

// Specific errors for metadata operations
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already exists")
	ErrWorkspaceExists    = errors.New("workspace slug already exists")
	ErrWorkspaceNotFound  = errors.New("workspace not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAPIKeyConflict     = errors.New("workspace already has an api key")
	ErrAPIKeyGeneration   = errors.New("failed to generate api key")
	ErrAPIKeyNotFound     = errors.New("api key not found")
)

const (
	// APIKeyPrefix identifies our keys in the Authorization header.
	APIKeyPrefix       = "qsr_"
	apiKeySecretLength = 32
)

// isUniqueViolation matches the unique-constraint error text of both
// engines. Driver-specific error types would tie this file to one
// driver, so the check stays on the message.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // sqlite3
		strings.Contains(msg, "duplicate key value") // postgres
}

// --- User Operations ---

// CreateUser inserts a new user and returns its public user id.
func (s *Store) CreateUser(ctx context.Context, userID, username, email, passwordHash string) (string, error) {
	stmt := fmt.Sprintf(`INSERT INTO qs_users (user_id, username, email, password_hash) VALUES (%s)`,
		strings.Join(s.Placeholders(0, 4), ", "))
	_, err := s.DB.ExecContext(ctx, stmt, userID, username, email, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrEmailExists
		}
		customLog.Warnf("Storage: failed to insert user %s: %v", email, err)
		return "", fmt.Errorf("database error during user creation: %w", err)
	}
	return userID, nil
}

// FindUserByEmail retrieves a user by email address.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	stmt := fmt.Sprintf(`SELECT id, user_id, username, email, password_hash, created_at FROM qs_users WHERE email = %s LIMIT 1`,
		s.Dialect.Placeholder(1))
	var user domain.User
	err := s.DB.QueryRowContext(ctx, stmt, email).
		Scan(&user.ID, &user.UserID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		customLog.Warnf("Storage: failed to find user by email %s: %v", email, err)
		return nil, fmt.Errorf("database error finding user: %w", err)
	}
	return &user, nil
}

// FindUserByUserID retrieves a user by public id.
func (s *Store) FindUserByUserID(ctx context.Context, userID string) (*domain.User, error) {
	stmt := fmt.Sprintf(`SELECT id, user_id, username, email, password_hash, created_at FROM qs_users WHERE user_id = %s LIMIT 1`,
		s.Dialect.Placeholder(1))
	var user domain.User
	err := s.DB.QueryRowContext(ctx, stmt, userID).
		Scan(&user.ID, &user.UserID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("database error finding user: %w", err)
	}
	return &user, nil
}

// --- Workspace Operations ---

// CreateWorkspace registers a workspace and makes the creator its owner.
func (s *Store) CreateWorkspace(ctx context.Context, slug, name, ownerID string) (*domain.Workspace, error) {
	var ws *domain.Workspace
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		stmt := fmt.Sprintf(`INSERT INTO qs_workspaces (slug, name, owner_id) VALUES (%s)`,
			strings.Join(s.Placeholders(0, 3), ", "))
		if _, err := tx.ExecContext(ctx, stmt, slug, name, ownerID); err != nil {
			if isUniqueViolation(err) {
				return ErrWorkspaceExists
			}
			return fmt.Errorf("database error registering workspace: %w", err)
		}

		lookup := fmt.Sprintf(`SELECT id, slug, name, owner_id, created_at FROM qs_workspaces WHERE slug = %s`,
			s.Dialect.Placeholder(1))
		ws = &domain.Workspace{}
		if err := tx.QueryRowContext(ctx, lookup, slug).
			Scan(&ws.ID, &ws.Slug, &ws.Name, &ws.OwnerID, &ws.CreatedAt); err != nil {
			return fmt.Errorf("database error reading workspace back: %w", err)
		}

		member := fmt.Sprintf(`INSERT INTO qs_members (workspace_id, user_id, role) VALUES (%s)`,
			strings.Join(s.Placeholders(0, 3), ", "))
		if _, err := tx.ExecContext(ctx, member, ws.ID, ownerID, domain.RoleOwner); err != nil {
			return fmt.Errorf("database error adding workspace owner: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// FindWorkspaceBySlug retrieves a workspace by slug.
func (s *Store) FindWorkspaceBySlug(ctx context.Context, slug string) (*domain.Workspace, error) {
	stmt := fmt.Sprintf(`SELECT id, slug, name, owner_id, created_at FROM qs_workspaces WHERE slug = %s LIMIT 1`,
		s.Dialect.Placeholder(1))
	var ws domain.Workspace
	err := s.DB.QueryRowContext(ctx, stmt, slug).
		Scan(&ws.ID, &ws.Slug, &ws.Name, &ws.OwnerID, &ws.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("database error finding workspace: %w", err)
	}
	return &ws, nil
}

// ListWorkspaces returns the workspaces the user is a member of.
func (s *Store) ListWorkspaces(ctx context.Context, userID string) ([]domain.Workspace, error) {
	stmt := fmt.Sprintf(`SELECT w.id, w.slug, w.name, w.owner_id, w.created_at
		FROM qs_workspaces w JOIN qs_members m ON m.workspace_id = w.id
		WHERE m.user_id = %s ORDER BY w.slug`, s.Dialect.Placeholder(1))
	rows, err := s.DB.QueryContext(ctx, stmt, userID)
	if err != nil {
		return nil, fmt.Errorf("database error listing workspaces: %w", err)
	}
	defer rows.Close()

	workspaces := make([]domain.Workspace, 0)
	for rows.Next() {
		var ws domain.Workspace
		if err := rows.Scan(&ws.ID, &ws.Slug, &ws.Name, &ws.OwnerID, &ws.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed reading workspace list: %w", err)
		}
		workspaces = append(workspaces, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading workspace list: %w", err)
	}
	return workspaces, nil
}

// MemberRole returns the caller's role in a workspace, or "" when the
// caller is not a member.
func (s *Store) MemberRole(ctx context.Context, workspaceID int64, userID string) (string, error) {
	stmt := fmt.Sprintf(`SELECT role FROM qs_members WHERE workspace_id = %s AND user_id = %s LIMIT 1`,
		s.Dialect.Placeholder(1), s.Dialect.Placeholder(2))
	var role string
	err := s.DB.QueryRowContext(ctx, stmt, workspaceID, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("database error reading membership: %w", err)
	}
	return role, nil
}

// AddMember upserts a user's role in a workspace.
func (s *Store) AddMember(ctx context.Context, workspaceID int64, userID, role string) error {
	stmt := fmt.Sprintf(`INSERT INTO qs_members (workspace_id, user_id, role) VALUES (%s)`,
		strings.Join(s.Placeholders(0, 3), ", "))
	if _, err := s.DB.ExecContext(ctx, stmt, workspaceID, userID, role); err != nil {
		if isUniqueViolation(err) {
			update := fmt.Sprintf(`UPDATE qs_members SET role = %s WHERE workspace_id = %s AND user_id = %s`,
				s.Dialect.Placeholder(1), s.Dialect.Placeholder(2), s.Dialect.Placeholder(3))
			if _, err := s.DB.ExecContext(ctx, update, role, workspaceID, userID); err != nil {
				return fmt.Errorf("database error updating membership: %w", err)
			}
			return nil
		}
		return fmt.Errorf("database error adding member: %w", err)
	}
	return nil
}

// DeleteWorkspace removes the workspace, its memberships, its schema
// catalog rows and every physical dynamic table in one transaction.
// API keys are left to the caller's deferred cleanup.
func (s *Store) DeleteWorkspace(ctx context.Context, ws *domain.Workspace) error {
	schemas, err := s.ListSchemas(ctx, ws.ID)
	if err != nil {
		return err
	}

	return s.WithTx(ctx, func(tx *sql.Tx) error {
		for i := range schemas {
			table := PhysicalTable(ws.ID, schemas[i].Slug)
			for _, stmt := range core.DropTableSQL(s.Dialect, table) {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					customLog.Warnf("Storage: DROP failed for table %s: %v", table, err)
					return fmt.Errorf("failed to drop table: %w", err)
				}
			}
		}

		cleanups := []string{
			`DELETE FROM qs_table_schemas WHERE workspace_id = %s`,
			`DELETE FROM qs_members WHERE workspace_id = %s`,
			`DELETE FROM qs_workspaces WHERE id = %s`,
		}
		args := []any{ws.ID, ws.ID, ws.ID}
		for i, tmpl := range cleanups {
			stmt := fmt.Sprintf(tmpl, s.Dialect.Placeholder(1))
			if _, err := tx.ExecContext(ctx, stmt, args[i]); err != nil {
				return fmt.Errorf("database error deleting workspace: %w", err)
			}
		}
		return nil
	})
}

// --- API Key Operations ---

// CreateAPIKey generates and stores the workspace's API key. At most one
// key exists per workspace.
func (s *Store) CreateAPIKey(ctx context.Context, workspaceID int64, ownerID string) (string, error) {
	secret := make([]byte, apiKeySecretLength)
	if _, err := rand.Read(secret); err != nil {
		customLog.Warnf("Storage: api key generation failed: %v", err)
		return "", ErrAPIKeyGeneration
	}
	key := APIKeyPrefix + base64.RawURLEncoding.EncodeToString(secret)

	stmt := fmt.Sprintf(`INSERT INTO qs_api_keys (key, workspace_id, owner_id) VALUES (%s)`,
		strings.Join(s.Placeholders(0, 3), ", "))
	if _, err := s.DB.ExecContext(ctx, stmt, key, workspaceID, ownerID); err != nil {
		if isUniqueViolation(err) {
			return "", ErrAPIKeyConflict
		}
		return "", fmt.Errorf("database error storing api key: %w", err)
	}
	return key, nil
}

// FindAPIKey resolves an API key to its workspace and owner.
func (s *Store) FindAPIKey(ctx context.Context, key string) (workspaceID int64, ownerID string, err error) {
	stmt := fmt.Sprintf(`SELECT workspace_id, owner_id FROM qs_api_keys WHERE key = %s LIMIT 1`,
		s.Dialect.Placeholder(1))
	err = s.DB.QueryRowContext(ctx, stmt, key).Scan(&workspaceID, &ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, "", ErrAPIKeyNotFound
		}
		return 0, "", fmt.Errorf("database error finding api key: %w", err)
	}
	return workspaceID, ownerID, nil
}

// DeleteAPIKeysForWorkspace removes all keys of a workspace. Used by the
// best-effort cleanup after a schema or workspace deletion.
func (s *Store) DeleteAPIKeysForWorkspace(ctx context.Context, workspaceID int64) error {
	stmt := fmt.Sprintf(`DELETE FROM qs_api_keys WHERE workspace_id = %s`, s.Dialect.Placeholder(1))
	if _, err := s.DB.ExecContext(ctx, stmt, workspaceID); err != nil {
		return fmt.Errorf("database error deleting api keys: %w", err)
	}
	return nil
}
