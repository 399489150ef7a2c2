package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"guideline-extractor/internal/shared/server/respond"
	"guideline-extractor/internal/shared/telemetry"
)

// Recovery turns a panic in an extractor or handler into a 500 envelope.
// When the response has already started, for example mid-download, the
// connection is only aborted.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			fields := map[string]any{
				"request_id": RequestIDFromContext(c),
				"error":      fmt.Sprint(rec),
				"stack":      string(debug.Stack()),
				"route":      c.FullPath(),
				"method":     c.Request.Method,
			}
			if id := c.GetString("extractionId"); id != "" {
				fields["extraction_id"] = id
			}
			telemetry.Error("http.panic", fields)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal_error", "unexpected error while processing the request", nil)
		}()
		c.Next()
	}
}
