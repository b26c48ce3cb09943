// api/handlers/query_handler.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quasarhq/quasar-backend/api/models"
	"github.com/quasarhq/quasar-backend/config"
	"github.com/quasarhq/quasar-backend/internal/core"
	"github.com/quasarhq/quasar-backend/internal/domain"
	"github.com/quasarhq/quasar-backend/internal/guard"
	"github.com/quasarhq/quasar-backend/internal/storage"
)

// QueryHandler holds dependencies for the structured-query endpoint and
// the view transforms built on top of it.
type QueryHandler struct {
	Store *storage.Store
	Cfg   *config.Config
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(store *storage.Store, cfg *config.Config) *QueryHandler {
	return &QueryHandler{
		Store: store,
		Cfg:   cfg,
	}
}

// Query executes a structured query against one dynamic table:
// compile, run, then enrich the page with relation values, aggregates
// and facets.
func (h *QueryHandler) Query(c *gin.Context) {
	ws, schema, err := workspaceSchema(c, h.Store, guard.RelationView)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var payload models.QueryPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		customLog.Warnf("Query binding error: %v", err)
		_ = c.Error(err)
		return
	}

	response, err := h.execute(c, ws, schema, payload.ToDomain())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// execute runs the full query pipeline for one table. mandatory columns
// are forced into the select list so a view transform always finds the
// columns it groups or nests by.
func (h *QueryHandler) execute(c *gin.Context, ws *domain.Workspace, schema *domain.TableSchema, req *domain.QueryRequest, mandatory ...string) (*domain.QueryResponse, error) {
	cols := core.ParseColumns(req.Columns, schema, mandatory...)

	compiler := &core.Compiler{
		Dialect: h.Store.Dialect,
		Table:   storage.PhysicalTable(ws.ID, schema.Slug),
		Qualify: func(slug string) string { return storage.PhysicalTable(ws.ID, slug) },
		Schema:  schema,
	}
	compiled, err := compiler.Compile(cols, req)
	if err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	records, total, err := h.Store.RunQuery(ctx, compiled)
	if err != nil {
		return nil, err
	}

	if err := h.Store.ResolveRelations(ctx, ws.ID, records, req.RelationColumns); err != nil {
		return nil, err
	}
	if err := h.Store.ResolveAggregates(ctx, ws.ID, records, req.AggColumns); err != nil {
		return nil, err
	}

	var aggregation map[string]any
	if len(req.AggregationFilter) > 0 {
		aggregation, err = h.Store.Facets(ctx, schema, req.AggregationFilter)
		if err != nil {
			return nil, err
		}
	}

	limit := req.Limit
	if limit <= 0 {
		limit = core.DefaultLimit
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	return &domain.QueryResponse{
		Records:     records,
		Total:       total,
		Limit:       limit,
		Offset:      offset,
		Aggregation: aggregation,
	}, nil
}
