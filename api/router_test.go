// api/router_test.go
package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/quasarhq/quasar-backend/config"
	"github.com/quasarhq/quasar-backend/internal/cleanup"
	"github.com/quasarhq/quasar-backend/internal/dialect"
	"github.com/quasarhq/quasar-backend/internal/storage"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := storage.NewStore(db, dialect.SQLite{})
	require.NoError(t, store.EnsureSystemTables(context.Background()))

	cfg := &config.Config{
		ServerPort:         ":0",
		JWTSecret:          "test-secret",
		JWTExpiration:      time.Hour,
		RateLimitPerMinute: 10000,
	}
	queue := cleanup.NewQueue(8, time.Second)
	t.Cleanup(queue.Close)

	return SetupRouter(store, cfg, queue)
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func signupAndLogin(t *testing.T, router *gin.Engine, username, email string) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/auth/signup", "", gin.H{
		"username": username, "email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodPost, "/auth/login", "", gin.H{
		"email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token, _ := decode(t, w)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func textColumn(name string) gin.H {
	return gin.H{"name": name, "data_type": "text", "nullable": true, "view_type": "text", "view_editor": "input"}
}

func TestAuthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	token := signupAndLogin(t, router, "alice", "alice@example.com")

	// Wrong password and unknown email both come back as 401.
	w := doJSON(t, router, http.MethodPost, "/auth/login", "", gin.H{
		"email": "alice@example.com", "password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = doJSON(t, router, http.MethodPost, "/auth/login", "", gin.H{
		"email": "ghost@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Duplicate signup conflicts.
	w = doJSON(t, router, http.MethodPost, "/auth/signup", "", gin.H{
		"username": "alice2", "email": "alice@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusConflict, w.Code)

	// Protected routes demand credentials.
	w = doJSON(t, router, http.MethodGet, "/api/v1/workspaces", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = doJSON(t, router, http.MethodGet, "/api/v1/me", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, decode(t, w)["user_id"])
}

func TestTableAndRecordFlow(t *testing.T) {
	router := newTestRouter(t)
	token := signupAndLogin(t, router, "alice", "alice@example.com")

	w := doJSON(t, router, http.MethodPost, "/api/v1/workspaces", token, gin.H{
		"slug": "acme", "name": "Acme Inc",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Bad slug is rejected before touching the store.
	w = doJSON(t, router, http.MethodPost, "/api/v1/workspaces", token, gin.H{
		"slug": "Not-A-Slug", "name": "Nope",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/workspaces/acme/tables", token, gin.H{
		"slug":  "tickets",
		"label": "Tickets",
		"columns": []gin.H{
			{"name": "title", "data_type": "text", "nullable": false, "view_type": "text", "view_editor": "input"},
			textColumn("status"),
			{"name": "amount", "data_type": "decimal", "nullable": true, "view_type": "number", "view_editor": "number"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// A column failing catalog validation is a 400.
	w = doJSON(t, router, http.MethodPost, "/api/v1/workspaces/acme/tables", token, gin.H{
		"slug":  "broken",
		"label": "Broken",
		"columns": []gin.H{
			{"name": "flag", "data_type": "boolean", "nullable": true, "view_type": "text", "view_editor": "input"},
		},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/workspaces/acme/tables/tickets/records", token, gin.H{
		"title": "first", "status": "open", "amount": 12.5,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	recordID, _ := decode(t, w)["record_id"].(string)
	require.NotEmpty(t, recordID)

	// Type mismatch surfaces as 400, unknown table as 404.
	w = doJSON(t, router, http.MethodPost, "/api/v1/workspaces/acme/tables/tickets/records", token, gin.H{
		"title": "second", "amount": "plenty",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(t, router, http.MethodPost, "/api/v1/workspaces/acme/tables/ghosts/records", token, gin.H{"title": "x"})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/workspaces/acme/tables/tickets/records/"+recordID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "first", decode(t, w)["title"])

	w = doJSON(t, router, http.MethodPut, "/api/v1/workspaces/acme/tables/tickets/records/"+recordID, token, gin.H{
		"status": "closed",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/workspaces/acme/tables/tickets/query", token, gin.H{
		"filters": gin.H{"status": "closed"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode(t, w)
	require.EqualValues(t, 1, result["total"])
	require.Len(t, result["records"], 1)

	w = doJSON(t, router, http.MethodPost, "/api/v1/workspaces/acme/tables/tickets/views/kanban", token, gin.H{
		"query":         gin.H{},
		"status_column": "status",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	boards := decode(t, w)["boards"].([]any)
	require.Len(t, boards, 1)
	board := boards[0].(map[string]any)
	require.Equal(t, "closed", board["status"])
	require.EqualValues(t, 1, board["count"])

	w = doJSON(t, router, http.MethodDelete, "/api/v1/workspaces/acme/tables/tickets/records/"+recordID, token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = doJSON(t, router, http.MethodGet, "/api/v1/workspaces/acme/tables/tickets/records/"+recordID, token, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	// The migration log is visible over HTTP.
	w = doJSON(t, router, http.MethodGet, "/api/v1/workspaces/acme/tables/tickets/migrations", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode(t, w)["migrations"], 1)
}

func TestWorkspaceIsolation(t *testing.T) {
	router := newTestRouter(t)
	alice := signupAndLogin(t, router, "alice", "alice@example.com")
	bob := signupAndLogin(t, router, "bob", "bob@example.com")

	w := doJSON(t, router, http.MethodPost, "/api/v1/workspaces", alice, gin.H{
		"slug": "acme", "name": "Acme Inc",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// A non-member cannot see the workspace or act inside it.
	w = doJSON(t, router, http.MethodGet, "/api/v1/workspaces/acme", bob, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	w = doJSON(t, router, http.MethodPost, "/api/v1/workspaces/acme/tables", bob, gin.H{
		"slug": "sneaky", "label": "Sneaky", "columns": []gin.H{textColumn("x")},
	})
	require.Equal(t, http.StatusForbidden, w.Code)

	// Owner grants the viewer role: reads work, writes stay forbidden.
	var bobID string
	w = doJSON(t, router, http.MethodGet, "/api/v1/me", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	bobID, _ = decode(t, w)["user_id"].(string)

	w = doJSON(t, router, http.MethodPost, "/api/v1/workspaces/acme/members", alice, gin.H{
		"user_id": bobID, "role": "viewer",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodGet, "/api/v1/workspaces/acme", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, router, http.MethodPost, "/api/v1/workspaces/acme/tables", bob, gin.H{
		"slug": "sneaky", "label": "Sneaky", "columns": []gin.H{textColumn("x")},
	})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAPIKeyScoping(t *testing.T) {
	router := newTestRouter(t)
	alice := signupAndLogin(t, router, "alice", "alice@example.com")

	for _, slug := range []string{"acme", "globex"} {
		w := doJSON(t, router, http.MethodPost, "/api/v1/workspaces", alice, gin.H{
			"slug": slug, "name": slug,
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, router, http.MethodPost, "/api/v1/workspaces/acme/apikey", alice, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	key, _ := decode(t, w)["api_key"].(string)
	require.NotEmpty(t, key)

	keyReq := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "ApiKey "+key)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	// The key works inside its own workspace only.
	require.Equal(t, http.StatusOK, keyReq("/api/v1/workspaces/acme").Code)
	require.Equal(t, http.StatusForbidden, keyReq("/api/v1/workspaces/globex").Code)

	// A made-up key is rejected outright.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/workspaces/acme", nil)
	req.Header.Set("Authorization", "ApiKey qsr_forged")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Account-level routes never accept a workspace key, even a valid one.
	require.Equal(t, http.StatusUnauthorized, keyReq("/api/v1/me").Code)
	require.Equal(t, http.StatusUnauthorized, keyReq("/api/v1/workspaces").Code)

	// The session token still reaches them.
	w = doJSON(t, router, http.MethodGet, "/api/v1/workspaces", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
}
