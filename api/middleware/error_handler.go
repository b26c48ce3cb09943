// api/middleware/error_handler.go
package middleware

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/quasarhq/quasar-backend/internal/auth"
	"github.com/quasarhq/quasar-backend/internal/core"
	"github.com/quasarhq/quasar-backend/internal/guard"
	"github.com/quasarhq/quasar-backend/internal/storage"
)

// ErrorHandler creates a Gin middleware for centralized error handling.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		// Only the last error drives the response.
		err := c.Errors.Last().Err

		log.Printf("[ErrorHandler] Detected error: %v | Type: %T", err, err)

		var statusCode int
		var userMessage string

		if errors.Is(err, storage.ErrUserNotFound) ||
			errors.Is(err, storage.ErrWorkspaceNotFound) ||
			errors.Is(err, storage.ErrSchemaNotFound) ||
			errors.Is(err, storage.ErrRecordNotFound) ||
			errors.Is(err, storage.ErrAPIKeyNotFound) {
			statusCode = http.StatusNotFound
			userMessage = err.Error()
		} else if errors.Is(err, storage.ErrEmailExists) ||
			errors.Is(err, storage.ErrWorkspaceExists) ||
			errors.Is(err, storage.ErrSchemaExists) ||
			errors.Is(err, storage.ErrAPIKeyConflict) ||
			errors.Is(err, storage.ErrConstraintViolation) {
			statusCode = http.StatusConflict
			userMessage = err.Error()
		} else if errors.Is(err, storage.ErrInvalidCredentials) {
			statusCode = http.StatusUnauthorized
			userMessage = "Invalid email or password."
		} else if errors.Is(err, guard.ErrPermissionDenied) {
			statusCode = http.StatusForbidden
			userMessage = "You do not have permission to perform this action."
		} else if errors.Is(err, auth.ErrTokenMalformed) ||
			errors.Is(err, auth.ErrTokenInvalid) ||
			errors.Is(err, auth.ErrTokenClaimsInvalid) ||
			errors.Is(err, auth.ErrUnexpectedSigningMethod) {
			statusCode = http.StatusUnauthorized
			userMessage = "Invalid or malformed authentication token."
		} else if errors.Is(err, auth.ErrTokenExpired) {
			statusCode = http.StatusUnauthorized
			userMessage = "Authentication token has expired."
		} else if validationErrs, ok := err.(validator.ValidationErrors); ok {
			// Binding errors from c.ShouldBindJSON
			statusCode = http.StatusBadRequest
			userMessage = "Validation failed. Please check your input."
			for _, fe := range validationErrs {
				log.Printf("Validation Error: Field %s failed on %s", fe.Field(), fe.Tag())
			}
		} else if errors.Is(err, storage.ErrColumnNotFound) ||
			errors.Is(err, storage.ErrMissingRequired) ||
			errors.Is(err, core.ErrTypeMismatch) ||
			errors.Is(err, core.ErrUnknownDataType) ||
			errors.Is(err, core.ErrUnknownViewType) {
			// Schema mismatches and bad input values are the caller's fault.
			statusCode = http.StatusBadRequest
			userMessage = err.Error()
		} else {
			statusCode = http.StatusInternalServerError
			userMessage = "An unexpected internal server error occurred."
			log.Printf("Unhandled error type: %T, Error: %v", err, err)
		}

		if !c.Writer.Written() {
			c.AbortWithStatusJSON(statusCode, gin.H{"error": userMessage})
		} else {
			log.Printf("[ErrorHandler] Warning: Response already written before handling error.")
		}
	}
}
