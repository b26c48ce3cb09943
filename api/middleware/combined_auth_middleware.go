// api/middleware/combined_auth_middleware.go
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quasarhq/quasar-backend/config"
	"github.com/quasarhq/quasar-backend/internal/auth"
	"github.com/quasarhq/quasar-backend/internal/logger"
	"github.com/quasarhq/quasar-backend/internal/storage"
)

var customLog = logger.NewLogger()

// CombinedAuthMiddleware accepts either a user JWT ("Bearer {token}") or
// a workspace API key ("ApiKey {key}") in the Authorization header.
// Bearer auth sets userId only; ApiKey auth additionally pins the
// request to the key's workspace via workspaceId.
func CombinedAuthMiddleware(store *storage.Store, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			err := auth.ErrUnauthorized
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 {
			err := fmt.Errorf("%w: invalid header format", auth.ErrTokenMalformed)
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be 'Bearer {token}' or 'ApiKey {key}'"})
			return
		}

		scheme := strings.ToLower(parts[0])
		credentials := parts[1]

		var userId string
		var workspaceId any
		var authErr error
		isApiKeyAuth := false

		switch scheme {
		case "apikey":
			customLog.Println("CombinedAuthMiddleware: Attempting ApiKey authentication...")
			if !strings.HasPrefix(credentials, storage.APIKeyPrefix) {
				_ = c.Error(fmt.Errorf("%w: invalid key prefix", auth.ErrTokenMalformed))
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
				return
			}

			keyWorkspaceID, ownerID, err := store.FindAPIKey(c.Request.Context(), credentials)
			if err != nil {
				if errors.Is(err, storage.ErrAPIKeyNotFound) {
					_ = c.Error(fmt.Errorf("%w: invalid API key", auth.ErrTokenMalformed))
					c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
					return
				}
				customLog.Warnf("CombinedAuthMiddleware: DB error looking up ApiKey: %v", err)
				_ = c.Error(fmt.Errorf("internal error during auth: %w", err))
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
				return
			}

			userId = ownerID
			workspaceId = keyWorkspaceID
			isApiKeyAuth = true
			c.Set("isApiKey", isApiKeyAuth)

		case "bearer":
			customLog.Println("CombinedAuthMiddleware: Attempting Bearer token authentication...")
			var jwtUserID string

			jwtUserID, authErr = auth.ValidateJWT(credentials, cfg.JWTSecret)
			if authErr != nil {
				customLog.Printf("CombinedAuthMiddleware: Token validation failed: %v", authErr)
				errMsg := "Invalid token"
				if errors.Is(authErr, auth.ErrTokenMalformed) || errors.Is(authErr, auth.ErrTokenExpired) {
					errMsg = authErr.Error()
				}

				_ = c.Error(authErr)
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMsg})
				return
			}

			userId = jwtUserID
			workspaceId = nil // user-scoped: workspace resolved per route

		default:
			authErr = fmt.Errorf("%w: unsupported scheme '%s'", auth.ErrTokenMalformed, parts[0])
		}

		if authErr != nil {
			customLog.Warnf("CombinedAuthMiddleware: Authentication failed (Scheme: %s): %v", scheme, authErr)
			_ = c.Error(authErr)
			c.Abort()
			return
		}

		customLog.Printf("CombinedAuthMiddleware: Auth success. UserID: %s, WorkspaceID: %v (Scheme: %s)\n", userId, workspaceId, scheme)
		c.Set("userId", userId)
		c.Set("workspaceId", workspaceId) // int64 for key-scoped auth, nil for JWT

		c.Next()
	}
}
