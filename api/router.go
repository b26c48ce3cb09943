// api/router.go
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/quasarhq/quasar-backend/api/handlers"
	"github.com/quasarhq/quasar-backend/api/middleware"
	"github.com/quasarhq/quasar-backend/config"
	"github.com/quasarhq/quasar-backend/internal/cleanup"
	"github.com/quasarhq/quasar-backend/internal/storage"
)

// SetupRouter initializes the Gin router and sets up all routes.
func SetupRouter(store *storage.Store, cfg *config.Config, queue *cleanup.Queue) *gin.Engine {
	router := gin.Default() // Includes Logger and Recovery

	router.Use(cors.Default())

	ratelimiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	router.Use(middleware.RateLimitMiddleware(ratelimiter))
	// Runs after Logger/Recovery but wraps every handler below.
	router.Use(middleware.ErrorHandler())

	// Initialize Handlers
	authHandler := handlers.NewAuthHandler(store, cfg)
	workspaceHandler := handlers.NewWorkspaceHandler(store, cfg, queue)
	tableHandler := handlers.NewTableHandler(store, cfg, queue)
	recordHandler := handlers.NewRecordHandler(store, cfg)
	queryHandler := handlers.NewQueryHandler(store, cfg)

	// --- Public Routes ---
	router.GET("/ping", func(c *gin.Context) { c.String(200, "pong") })
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/signup", authHandler.Signup)
		authRoutes.POST("/login", authHandler.Login)
	}

	// --- Protected Routes ---
	apiRoutes := router.Group("/api/v1")

	// Account-level routes take a user session only; a workspace API key
	// cannot act on the account.
	userRoutes := apiRoutes.Group("")
	userRoutes.Use(middleware.AuthMiddleware(cfg))
	{
		userRoutes.GET("/me", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"user_id": c.MustGet("userId")})
		})
		userRoutes.GET("/users/:user_id", authHandler.FindUser)

		userRoutes.GET("/workspaces", workspaceHandler.ListWorkspaces)
		userRoutes.POST("/workspaces", workspaceHandler.CreateWorkspace)
	}

	// Workspace-scoped routes: JWT for user sessions, ApiKey for
	// workspace-scoped automation.
	wsRoutes := apiRoutes.Group("/workspaces/:ws_slug")
	wsRoutes.Use(middleware.CombinedAuthMiddleware(store, cfg))
	{
		wsRoutes.GET("", workspaceHandler.GetWorkspace)
		wsRoutes.DELETE("", workspaceHandler.DeleteWorkspace)
		wsRoutes.POST("/members", workspaceHandler.AddMember)
		wsRoutes.POST("/apikey", workspaceHandler.CreateAPIKey)

		wsRoutes.GET("/tables", tableHandler.ListTables)
		wsRoutes.POST("/tables", tableHandler.CreateTable)
		wsRoutes.GET("/tables/:table_slug", tableHandler.GetTable)
		wsRoutes.PUT("/tables/:table_slug", tableHandler.AlterTable)
		wsRoutes.DELETE("/tables/:table_slug", tableHandler.DeleteTable)
		wsRoutes.GET("/tables/:table_slug/migrations", tableHandler.ListMigrations)

		wsRoutes.POST("/tables/:table_slug/records", recordHandler.CreateRecord)
		wsRoutes.POST("/tables/:table_slug/records/batch", recordHandler.BatchCreateRecords)
		wsRoutes.GET("/tables/:table_slug/records/:record_id", recordHandler.GetRecord)
		wsRoutes.PUT("/tables/:table_slug/records/:record_id", recordHandler.UpdateRecord)
		wsRoutes.DELETE("/tables/:table_slug/records/:record_id", recordHandler.DeleteRecord)

		wsRoutes.POST("/tables/:table_slug/query", queryHandler.Query)
		wsRoutes.POST("/tables/:table_slug/views/kanban", queryHandler.Kanban)
		wsRoutes.POST("/tables/:table_slug/views/tree", queryHandler.Tree)
		wsRoutes.POST("/tables/:table_slug/views/gantt", queryHandler.Gantt)
		wsRoutes.POST("/tables/:table_slug/views/dropdown", queryHandler.Dropdown)
		wsRoutes.POST("/tables/:table_slug/views/breadcrumb", queryHandler.Breadcrumb)
	}

	return router
}
