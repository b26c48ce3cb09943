// internal/storage/storage_test.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quasarhq/quasar-backend/internal/core"
	"github.com/quasarhq/quasar-backend/internal/dialect"
	"github.com/quasarhq/quasar-backend/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// One connection so every statement sees the same in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s := NewStore(db, dialect.SQLite{})
	require.NoError(t, s.EnsureSystemTables(context.Background()))
	return s
}

func seedWorkspace(t *testing.T, s *Store) *domain.Workspace {
	t.Helper()
	ctx := context.Background()
	_, err := s.CreateUser(ctx, "u1", "alice", "alice@example.com", "hash")
	require.NoError(t, err)
	ws, err := s.CreateWorkspace(ctx, "acme", "Acme Inc", "u1")
	require.NoError(t, err)
	return ws
}

func ticketColumns() []domain.ColumnDefinition {
	return []domain.ColumnDefinition{
		{Name: "title", DataType: core.TypeText, Nullable: false},
		{Name: "status", DataType: core.TypeText, Nullable: true},
		{Name: "amount", DataType: core.TypeDecimal, Nullable: true},
		{Name: "done", DataType: core.TypeBoolean, Nullable: true},
	}
}

func TestUserAndWorkspaceLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ws := seedWorkspace(t, s)

	// Duplicate email is rejected.
	_, err := s.CreateUser(ctx, "u2", "alice2", "alice@example.com", "hash")
	require.ErrorIs(t, err, ErrEmailExists)

	// The creator became the owner.
	role, err := s.MemberRole(ctx, ws.ID, "u1")
	require.NoError(t, err)
	require.Equal(t, domain.RoleOwner, role)

	// A non-member has no role, without error.
	role, err = s.MemberRole(ctx, ws.ID, "stranger")
	require.NoError(t, err)
	require.Empty(t, role)

	// AddMember upserts the role.
	_, err = s.CreateUser(ctx, "u2", "bob", "bob@example.com", "hash")
	require.NoError(t, err)
	require.NoError(t, s.AddMember(ctx, ws.ID, "u2", domain.RoleViewer))
	require.NoError(t, s.AddMember(ctx, ws.ID, "u2", domain.RoleEditor))
	role, err = s.MemberRole(ctx, ws.ID, "u2")
	require.NoError(t, err)
	require.Equal(t, domain.RoleEditor, role)

	list, err := s.ListWorkspaces(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "acme", list[0].Slug)

	// Deleting the workspace removes memberships with it.
	require.NoError(t, s.DeleteWorkspace(ctx, ws))
	_, err = s.FindWorkspaceBySlug(ctx, "acme")
	require.ErrorIs(t, err, ErrWorkspaceNotFound)
	role, err = s.MemberRole(ctx, ws.ID, "u2")
	require.NoError(t, err)
	require.Empty(t, role)
}

func TestSchemaLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ws := seedWorkspace(t, s)

	schema, err := s.CreateSchema(ctx, ws.ID, "tickets", "Tickets", "support tickets", ticketColumns())
	require.NoError(t, err)
	require.Equal(t, "tickets", schema.Slug)
	require.Len(t, schema.Columns, 4)
	require.False(t, schema.HasRelation)

	// Same slug in the same workspace is rejected.
	_, err = s.CreateSchema(ctx, ws.ID, "tickets", "Again", "", ticketColumns())
	require.ErrorIs(t, err, ErrSchemaExists)

	// Visibility follows membership.
	_, err = s.GetSchemaForUser(ctx, ws.ID, "tickets", "u1")
	require.NoError(t, err)
	_, err = s.GetSchemaForUser(ctx, ws.ID, "tickets", "stranger")
	require.ErrorIs(t, err, ErrSchemaNotFound)

	// Add a column.
	newCols := append(ticketColumns(), domain.ColumnDefinition{
		Name: "priority", DataType: core.TypeInt, Nullable: true,
	})
	schema, err = s.AlterSchema(ctx, schema, newCols)
	require.NoError(t, err)
	require.Len(t, schema.Columns, 5)

	// The migration log carries the create and the alter, newest first.
	migrations, err := s.ListMigrations(ctx, ws.ID, "tickets")
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	require.Equal(t, int64(2), migrations[0].Version)
	require.Contains(t, migrations[0].Statements, "ADD COLUMN priority")
	require.Contains(t, migrations[1].Statements, "CREATE TABLE")

	require.NoError(t, s.DeleteSchema(ctx, schema))
	_, err = s.GetSchema(ctx, ws.ID, "tickets")
	require.ErrorIs(t, err, ErrSchemaNotFound)

	migrations, err = s.ListMigrations(ctx, ws.ID, "tickets")
	require.NoError(t, err)
	require.Len(t, migrations, 3)
	require.Contains(t, migrations[0].Statements, "DROP TABLE")
}

func TestSchemaAlterRetypeSkippedOnSQLite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ws := seedWorkspace(t, s)

	schema, err := s.CreateSchema(ctx, ws.ID, "tickets", "Tickets", "", ticketColumns())
	require.NoError(t, err)

	newCols := ticketColumns()
	newCols[2].DataType = core.TypeText // amount: decimal -> text
	schema, err = s.AlterSchema(ctx, schema, newCols)
	require.NoError(t, err)

	// The engine cannot retype, so the catalog keeps the old type.
	require.Equal(t, core.TypeDecimal, schema.Column("amount").DataType)

	// A no-op diff writes no migration entry.
	migrations, err := s.ListMigrations(ctx, ws.ID, "tickets")
	require.NoError(t, err)
	require.Len(t, migrations, 1)
}

func TestRecordCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ws := seedWorkspace(t, s)
	schema, err := s.CreateSchema(ctx, ws.ID, "tickets", "Tickets", "", ticketColumns())
	require.NoError(t, err)

	id, err := s.InsertRecord(ctx, schema, map[string]any{
		"title": "first", "status": "open", "amount": 10,
	}, "u1")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// Missing required column.
	_, err = s.InsertRecord(ctx, schema, map[string]any{"status": "open"}, "u1")
	require.ErrorIs(t, err, ErrMissingRequired)

	// Undeclared column.
	_, err = s.InsertRecord(ctx, schema, map[string]any{"title": "x", "nope": 1}, "u1")
	require.ErrorIs(t, err, ErrColumnNotFound)

	// Wrong type.
	_, err = s.InsertRecord(ctx, schema, map[string]any{"title": "x", "amount": "lots"}, "u1")
	require.ErrorIs(t, err, core.ErrTypeMismatch)

	record, err := s.GetRecord(ctx, schema, id)
	require.NoError(t, err)
	require.Equal(t, "first", record["title"])
	require.Equal(t, id, record["id"])
	require.Equal(t, "u1", record["created_by"])
	require.NotNil(t, record["created_at"])

	require.NoError(t, s.UpdateRecord(ctx, schema, id, map[string]any{"status": "closed"}))
	record, err = s.GetRecord(ctx, schema, id)
	require.NoError(t, err)
	require.Equal(t, "closed", record["status"])

	// System columns are read-only.
	err = s.UpdateRecord(ctx, schema, id, map[string]any{"created_by": "u2"})
	require.ErrorIs(t, err, ErrColumnNotFound)

	// Unknown id.
	err = s.UpdateRecord(ctx, schema, "00000000-0000-0000-0000-000000000000", map[string]any{"status": "x"})
	require.ErrorIs(t, err, ErrRecordNotFound)

	require.NoError(t, s.DeleteRecord(ctx, schema, id))
	_, err = s.GetRecord(ctx, schema, id)
	require.ErrorIs(t, err, ErrRecordNotFound)
	require.ErrorIs(t, s.DeleteRecord(ctx, schema, id), ErrRecordNotFound)
}

func TestBatchInsertPartialFailure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ws := seedWorkspace(t, s)
	schema, err := s.CreateSchema(ctx, ws.ID, "tickets", "Tickets", "", ticketColumns())
	require.NoError(t, err)

	items := []map[string]any{
		{"title": "a"},
		{"status": "no title"},
		{"title": "c"},
	}
	ids, failures := s.BatchInsert(ctx, schema, items, "u1")
	require.Len(t, ids, 2)
	require.Len(t, failures, 1)
	require.Equal(t, 1, failures[0].Index)
	require.Contains(t, failures[0].Error, "required")
}

func TestRunQueryAndFacets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ws := seedWorkspace(t, s)
	schema, err := s.CreateSchema(ctx, ws.ID, "tickets", "Tickets", "", ticketColumns())
	require.NoError(t, err)

	seed := []map[string]any{
		{"title": "a", "status": "open", "amount": 10, "done": false},
		{"title": "b", "status": "open", "amount": 20, "done": true},
		{"title": "c", "status": "closed", "amount": 30},
	}
	for _, item := range seed {
		_, err := s.InsertRecord(ctx, schema, item, "u1")
		require.NoError(t, err)
	}

	compiler := &core.Compiler{
		Dialect: s.Dialect,
		Table:   PhysicalTable(ws.ID, schema.Slug),
		Qualify: func(slug string) string { return PhysicalTable(ws.ID, slug) },
		Schema:  schema,
	}
	compiled, err := compiler.Compile(nil, &domain.QueryRequest{
		Filters: map[string]any{"status": "open"},
	})
	require.NoError(t, err)

	records, total, err := s.RunQuery(ctx, compiled)
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, records, 2)

	// Search finds substring matches across text columns.
	compiled, err = compiler.Compile(nil, &domain.QueryRequest{Search: "A"})
	require.NoError(t, err)
	_, total, err = s.RunQuery(ctx, compiled)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)

	facets, err := s.Facets(ctx, schema, []string{"amount", "status", "done"})
	require.NoError(t, err)

	amount := facets["amount"].(map[string]any)
	require.Equal(t, 10.0, amount["min"])
	require.Equal(t, 30.0, amount["max"])
	require.Equal(t, 20.0, amount["avg"])
	require.Equal(t, int64(3), amount["count"])

	status := facets["status"].(map[string]any)
	counts := status["count"].(map[string]int64)
	require.Equal(t, int64(2), counts["open"])
	require.Equal(t, int64(1), counts["closed"])
	// Most frequent first.
	require.Equal(t, "open", status["values"].([]string)[0])

	done := facets["done"].(map[string]any)
	require.Equal(t, int64(1), done["true_count"])
	require.Equal(t, int64(1), done["false_count"])
	require.Equal(t, int64(1), done["null_count"])

	// An unknown facet column is an error, not a skip.
	_, err = s.Facets(ctx, schema, []string{"nope"})
	require.ErrorIs(t, err, ErrColumnNotFound)
}

func TestRelationFacet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ws := seedWorkspace(t, s)

	projects, err := s.CreateSchema(ctx, ws.ID, "projects", "Projects", "", []domain.ColumnDefinition{
		{Name: "name", DataType: core.TypeText, Nullable: false},
	})
	require.NoError(t, err)
	tickets, err := s.CreateSchema(ctx, ws.ID, "tickets", "Tickets", "", []domain.ColumnDefinition{
		{Name: "title", DataType: core.TypeText, Nullable: false},
		{Name: "project_id", DataType: core.TypeUUID, Nullable: true, IsRelation: true,
			RelationSetting: &domain.RelationSetting{TargetTable: "projects", DisplayColumn: "name"}},
	})
	require.NoError(t, err)

	p1, err := s.InsertRecord(ctx, projects, map[string]any{"name": "Apollo"}, "u1")
	require.NoError(t, err)
	p2, err := s.InsertRecord(ctx, projects, map[string]any{"name": "Borealis"}, "u1")
	require.NoError(t, err)

	for _, item := range []map[string]any{
		{"title": "t1", "project_id": p1},
		{"title": "t2", "project_id": p1},
		{"title": "t3", "project_id": p2},
		{"title": "t4"},
	} {
		_, err := s.InsertRecord(ctx, tickets, item, "u1")
		require.NoError(t, err)
	}

	facets, err := s.Facets(ctx, tickets, []string{"project_id"})
	require.NoError(t, err)

	facet := facets["project_id"].(map[string]any)
	values := facet["values"].([]map[string]any)
	// Null local keys never contribute an entry.
	require.Len(t, values, 2)

	// Most referenced target first, display joined from the target table.
	require.Equal(t, p1, values[0]["id"])
	require.Equal(t, "Apollo", values[0]["display"])
	require.Equal(t, int64(2), values[0]["count"])
	require.Equal(t, p2, values[1]["id"])
	require.Equal(t, "Borealis", values[1]["display"])
	require.Equal(t, int64(1), values[1]["count"])
}

func TestResolveRelationsAndAggregates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ws := seedWorkspace(t, s)

	projects, err := s.CreateSchema(ctx, ws.ID, "projects", "Projects", "", []domain.ColumnDefinition{
		{Name: "name", DataType: core.TypeText, Nullable: false},
	})
	require.NoError(t, err)
	tasks, err := s.CreateSchema(ctx, ws.ID, "tasks", "Tasks", "", []domain.ColumnDefinition{
		{Name: "title", DataType: core.TypeText, Nullable: false},
		{Name: "project_id", DataType: core.TypeUUID, Nullable: true},
		{Name: "hours", DataType: core.TypeDecimal, Nullable: true},
	})
	require.NoError(t, err)

	p1, err := s.InsertRecord(ctx, projects, map[string]any{"name": "Apollo"}, "u1")
	require.NoError(t, err)
	p2, err := s.InsertRecord(ctx, projects, map[string]any{"name": "Borealis"}, "u1")
	require.NoError(t, err)

	for _, item := range []map[string]any{
		{"title": "t1", "project_id": p1, "hours": 2},
		{"title": "t2", "project_id": p1, "hours": 3},
		{"title": "t3", "project_id": p2, "hours": 5},
		{"title": "zz-orphan"},
	} {
		_, err := s.InsertRecord(ctx, tasks, item, "u1")
		require.NoError(t, err)
	}

	taskRows, err := QueryMaps(ctx, s.DB, "SELECT * FROM "+PhysicalTable(ws.ID, "tasks")+" ORDER BY title")
	require.NoError(t, err)
	require.Len(t, taskRows, 4)

	err = s.ResolveRelations(ctx, ws.ID, taskRows, []domain.RelationColumn{
		{Label: "project_name", LocalKey: "project_id", ForeignTable: "projects", DisplayColumns: []string{"name"}},
	})
	require.NoError(t, err)
	require.Equal(t, "Apollo", taskRows[0]["project_name"])
	require.Equal(t, "Borealis", taskRows[2]["project_name"])
	require.Nil(t, taskRows[3]["project_name"]) // no local key

	// Multiple display columns come back as a map.
	err = s.ResolveRelations(ctx, ws.ID, taskRows, []domain.RelationColumn{
		{Label: "project_ref", LocalKey: "project_id", ForeignTable: "projects", DisplayColumns: []string{"id", "name"}},
	})
	require.NoError(t, err)
	ref := taskRows[0]["project_ref"].(map[string]any)
	require.Equal(t, p1, ref["id"])
	require.Equal(t, "Apollo", ref["name"])

	projectRows, err := QueryMaps(ctx, s.DB, "SELECT * FROM "+PhysicalTable(ws.ID, "projects")+" ORDER BY name")
	require.NoError(t, err)
	require.Len(t, projectRows, 2)

	err = s.ResolveAggregates(ctx, ws.ID, projectRows, []domain.AggregateColumn{
		{Label: "task_count", LocalKey: "id", ForeignTable: "tasks", ForeignKey: "project_id", Function: "count"},
		{Label: "total_hours", LocalKey: "id", ForeignTable: "tasks", ForeignKey: "project_id", Function: "sum", FunctionField: "hours"},
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), asInt64(projectRows[0]["task_count"]))
	require.Equal(t, int64(1), asInt64(projectRows[1]["task_count"]))
	require.EqualValues(t, 5, asInt64(projectRows[0]["total_hours"]))

	// string_agg has no rendering on this engine: accepted, skipped.
	err = s.ResolveAggregates(ctx, ws.ID, projectRows, []domain.AggregateColumn{
		{Label: "titles", LocalKey: "id", ForeignTable: "tasks", ForeignKey: "project_id", Function: "string_agg", FunctionField: "title"},
	})
	require.NoError(t, err)
	_, attached := projectRows[0]["titles"]
	require.False(t, attached)

	// Hostile spec fields never reach the SQL.
	err = s.ResolveRelations(ctx, ws.ID, taskRows, []domain.RelationColumn{
		{Label: "x", LocalKey: "project_id", ForeignTable: "projects; DROP TABLE qs_users", DisplayColumns: []string{"name"}},
	})
	require.Error(t, err)
}

func TestAPIKeyLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ws := seedWorkspace(t, s)

	key, err := s.CreateAPIKey(ctx, ws.ID, "u1")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(key, APIKeyPrefix))

	wsID, ownerID, err := s.FindAPIKey(ctx, key)
	require.NoError(t, err)
	require.Equal(t, ws.ID, wsID)
	require.Equal(t, "u1", ownerID)

	// One key per workspace.
	_, err = s.CreateAPIKey(ctx, ws.ID, "u1")
	require.ErrorIs(t, err, ErrAPIKeyConflict)

	require.NoError(t, s.DeleteAPIKeysForWorkspace(ctx, ws.ID))
	_, _, err = s.FindAPIKey(ctx, key)
	require.ErrorIs(t, err, ErrAPIKeyNotFound)
}

func TestGetSchemaForUserLookupFailure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ws := seedWorkspace(t, s)
	_, err := s.CreateSchema(ctx, ws.ID, "tickets", "Tickets", "", ticketColumns())
	require.NoError(t, err)

	// A schema fetch for a missing slug still reports not-found for members.
	_, err = s.GetSchemaForUser(ctx, ws.ID, "missing", "u1")
	require.True(t, errors.Is(err, ErrSchemaNotFound))
}
