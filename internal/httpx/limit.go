// Package httpx holds gin helpers shared by the feature handlers.
package httpx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abduss/artifactdrive/internal/artifact"
)

// LimitBody caps the request body of a route at limit bytes. A request that
// declares a larger Content-Length is refused before any of its body is read;
// one that does not is cut off once limit bytes have been read.
func LimitBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			abortTooLarge(c, limit)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

// BodyTooLarge answers 413 and reports true when err came from reading past
// the limit set by LimitBody.
func BodyTooLarge(c *gin.Context, err error) bool {
	var maxErr *http.MaxBytesError
	if !errors.As(err, &maxErr) {
		return false
	}
	abortTooLarge(c, maxErr.Limit)
	return true
}

func abortTooLarge(c *gin.Context, limit int64) {
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
		"error": fmt.Sprintf("Request body exceeds maximum allowed size (%s)", artifact.FormatSize(limit)),
	})
}
