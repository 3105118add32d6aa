package httpx

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newLimitedRouter(limit int64, reached *bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/upload", LimitBody(limit), func(c *gin.Context) {
		*reached = true
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			if BodyTooLarge(c, err) {
				return
			}
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestLimitBodyRefusesDeclaredOversizeBody(t *testing.T) {
	var reached bool
	router := newLimitedRouter(10, &reached)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(strings.Repeat("x", 11))))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.False(t, reached, "handler must not run when Content-Length is over the limit")
	assert.JSONEq(t, `{"error":"Request body exceeds maximum allowed size (10 B)"}`, rec.Body.String())
}

func TestLimitBodyCutsOffUndeclaredOversizeBody(t *testing.T) {
	var reached bool
	router := newLimitedRouter(10, &reached)

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(strings.Repeat("x", 11)))
	req.ContentLength = -1
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.True(t, reached)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestLimitBodyAllowsBodyAtLimit(t *testing.T) {
	var reached bool
	router := newLimitedRouter(10, &reached)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(strings.Repeat("x", 10))))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestBodyTooLargeIgnoresOtherErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.False(t, BodyTooLarge(c, io.ErrUnexpectedEOF))
}
