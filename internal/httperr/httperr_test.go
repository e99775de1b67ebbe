package httperr

import (
	"bitwise74/blog-api/internal/apperr"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, fn func(c *gin.Context)) (int, map[string]string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set("requestID", "req_1")

	fn(c)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestAbort(t *testing.T) {
	code, body := run(t, func(c *gin.Context) {
		Abort(c, apperr.Validation("email", "Enter a valid email address"))
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "email", body["field"])
	assert.Equal(t, "Enter a valid email address", body["error"])
	assert.Equal(t, "req_1", body["requestID"])

	code, body = run(t, func(c *gin.Context) {
		Abort(c, fmt.Errorf("post %w", apperr.ErrNotFound))
	})
	assert.Equal(t, http.StatusNotFound, code)
	assert.NotContains(t, body, "field")

	code, body = run(t, func(c *gin.Context) {
		Abort(c, errors.New("pq: connection refused"))
	})
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Internal server error", body["error"])
}

func TestBind(t *testing.T) {
	code, body := run(t, func(c *gin.Context) {
		Bind(c, errors.New("unexpected EOF"))
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Malformed request body", body["error"])

	code, _ = run(t, func(c *gin.Context) {
		Bind(c, fmt.Errorf("read body, %w", &http.MaxBytesError{Limit: 1}))
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, code)
}
